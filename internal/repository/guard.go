package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v4"
	apperrors "github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
)

// EmailGuard serializes writers touching the same email value. Email
// uniqueness lives inside the document, not in an indexed column, so
// the insert/update itself cannot raise a constraint violation - the
// guard closes the check-then-act race instead.
//
// LockEmails must run inside a transaction: each advisory lock is
// scoped to hashtext(email) and held until that transaction commits
// or rolls back. EmailOwnedByOther is the authoritative re-check to
// run after the locks are taken
type EmailGuard interface {
	LockEmails(context.Context, []string) error
	EmailOwnedByOther(context.Context, string, int64) (bool, error)
}

type postgresEmailGuard struct {
	ex transactor.PgxWithinTransactionExecutor
}

// NewPostgresEmailGuard builds postgres EmailGuard
func NewPostgresEmailGuard(ex transactor.PgxWithinTransactionExecutor) EmailGuard {
	return &postgresEmailGuard{ex: ex}
}

func (g *postgresEmailGuard) LockEmails(ctx context.Context, emails []string) error {
	// distinct and sorted, so two transactions sharing several emails
	// always acquire locks in the same order
	distinct := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		distinct[email] = struct{}{}
	}

	ordered := make([]string, 0, len(distinct))
	for email := range distinct {
		ordered = append(ordered, email)
	}
	sort.Strings(ordered)

	q := "SELECT pg_advisory_xact_lock(hashtext($1))"
	for _, email := range ordered {
		if _, err := g.ex.Executor(ctx).Exec(ctx, q, email); err != nil {
			return apperrors.FromStorage(err)
		}
	}
	return nil
}

func (g *postgresEmailGuard) EmailOwnedByOther(ctx context.Context, email string, selfID int64) (bool, error) {
	filter, err := emailContainmentFilter(email)
	if err != nil {
		return false, apperrors.Internal("failed to build email filter", err)
	}

	var id int64
	q := "SELECT id FROM customers WHERE document @> $1::jsonb AND id <> $2 LIMIT 1"
	if err := g.ex.Executor(ctx).QueryRow(ctx, q, filter, selfID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, apperrors.FromStorage(err)
	}
	return true, nil
}
