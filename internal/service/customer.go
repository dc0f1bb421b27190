package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-registry/internal/cache"
	apperrors "github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/event"
	"github.com/umalmyha/customer-registry/internal/idgen"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/patch"
	"github.com/umalmyha/customer-registry/internal/repository"
	"github.com/umalmyha/customer-registry/internal/validation"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
)

// maxPageLimit bounds a single page, larger requests are clamped
const maxPageLimit = 100

// CustomerService is the single choke point for aggregate mutations.
// It owns id assignment and both timestamps, runs the uniqueness
// guard around every write and synchronously publishes one event per
// successful mutation. Read-modify-write operations lock the target
// row for the whole transaction, so concurrent mutations of one
// aggregate serialize instead of overwriting each other. A publish
// failure is reported as an operation failure even though storage
// already committed - consumers must not silently diverge from
// storage state
type CustomerService interface {
	Create(context.Context, *model.Customer) (*model.Customer, error)
	Update(context.Context, int64, *model.Customer) (*model.Customer, error)
	Patch(context.Context, int64, []byte) (*model.Customer, error)
	DeleteByID(context.Context, int64) error
	FindByID(context.Context, int64) (*model.Customer, error)
	FindByEmail(context.Context, string) (*model.Customer, error)
	Page(context.Context, *int64, int) (*model.CustomerPage, error)
}

type customerService struct {
	trx           transactor.PgxTransactor
	customerRepo  repository.CustomerRepository
	emailGuard    repository.EmailGuard
	customerCache cache.CustomerCacheRepository
	publisher     event.Publisher
	idGen         *idgen.Generator
	validator     *validation.Validator
}

// NewCustomerService builds CustomerService
func NewCustomerService(
	trx transactor.PgxTransactor,
	customerRepo repository.CustomerRepository,
	emailGuard repository.EmailGuard,
	customerCache cache.CustomerCacheRepository,
	publisher event.Publisher,
	idGen *idgen.Generator,
	validator *validation.Validator,
) CustomerService {
	return &customerService{
		trx:           trx,
		customerRepo:  customerRepo,
		emailGuard:    emailGuard,
		customerCache: customerCache,
		publisher:     publisher,
		idGen:         idGen,
		validator:     validator,
	}
}

func (s *customerService) Create(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	if err := s.validator.ValidateStruct(c); err != nil {
		return nil, err
	}

	if c.ID != 0 {
		existing, err := s.customerRepo.FindByID(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, apperrors.Conflict(fmt.Sprintf("customer %d already exists", c.ID))
		}
	} else {
		c.ID = s.idGen.Next()
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.precheckEmails(ctx, c); err != nil {
		return nil, err
	}

	err := s.trx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.guardEmails(txCtx, c); err != nil {
			return err
		}
		return s.customerRepo.Create(txCtx, c)
	})
	if err != nil {
		return nil, err
	}

	if err := s.publish(ctx, event.TypeCustomerCreated, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *customerService) Update(ctx context.Context, id int64, c *model.Customer) (*model.Customer, error) {
	if c.ID != 0 && c.ID != id {
		return nil, validation.NewPayloadError(validation.Violation{
			Field:   "id",
			Message: "id in payload differs from addressed customer",
		})
	}

	if err := s.validator.ValidateStruct(c); err != nil {
		return nil, err
	}

	c.ID = id
	if err := s.precheckEmails(ctx, c); err != nil {
		return nil, err
	}

	err := s.trx.WithinTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.customerRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperrors.NotFound(fmt.Sprintf("customer %d does not exist", id))
		}

		c.CreatedAt = existing.CreatedAt
		c.UpdatedAt = time.Now().UTC()

		if err := s.guardEmails(txCtx, c); err != nil {
			return err
		}
		return s.customerRepo.Update(txCtx, c)
	})
	if err != nil {
		return nil, err
	}

	if err := s.customerCache.DeleteByID(ctx, id); err != nil {
		return nil, err
	}

	if err := s.publish(ctx, event.TypeCustomerUpdated, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *customerService) Patch(ctx context.Context, id int64, patchDoc []byte) (*model.Customer, error) {
	existing, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("customer %d does not exist", id))
	}

	// probe merge against the unlocked snapshot, so a malformed or
	// invalid patch and the common duplicate email fail before a
	// transaction is opened
	probe, err := s.mergePatch(existing, patchDoc)
	if err != nil {
		return nil, err
	}
	if err := s.precheckEmails(ctx, probe); err != nil {
		return nil, err
	}

	var merged *model.Customer
	err = s.trx.WithinTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.customerRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return apperrors.NotFound(fmt.Sprintf("customer %d does not exist", id))
		}

		// merge against the row-locked state: a concurrent patch
		// committed between the probe and the lock must not be lost
		merged, err = s.mergePatch(current, patchDoc)
		if err != nil {
			return err
		}

		// an empty patch is still a mutation: updatedAt is bumped and
		// the updated event republished
		merged.UpdatedAt = time.Now().UTC()

		if err := s.guardEmails(txCtx, merged); err != nil {
			return err
		}
		return s.customerRepo.Update(txCtx, merged)
	})
	if err != nil {
		return nil, err
	}

	if err := s.customerCache.DeleteByID(ctx, id); err != nil {
		return nil, err
	}

	if err := s.publish(ctx, event.TypeCustomerUpdated, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *customerService) DeleteByID(ctx context.Context, id int64) error {
	existing, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperrors.NotFound(fmt.Sprintf("customer %d does not exist", id))
	}

	if err := s.customerRepo.DeleteByID(ctx, id); err != nil {
		return err
	}

	if err := s.customerCache.DeleteByID(ctx, id); err != nil {
		return err
	}

	return s.publish(ctx, event.TypeCustomerDeleted, existing)
}

func (s *customerService) FindByID(ctx context.Context, id int64) (*model.Customer, error) {
	c, err := s.customerCache.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}

	c, err = s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("customer %d does not exist", id))
	}

	if err := s.customerCache.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *customerService) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	if strings.TrimSpace(email) == "" {
		return nil, validation.NewPayloadError(validation.Violation{
			Field:   "email",
			Message: "email must not be blank",
		})
	}

	c, err := s.customerRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("no customer with email %s", email))
	}
	return c, nil
}

// Page returns up to limit customers with id greater than cursor in
// ascending id order. It fetches limit+1 rows, so detecting a next
// page never needs a count query and page cost stays flat no matter
// how many pages precede it. A cursor pointing at a deleted id simply
// degrades to "everything greater"
func (s *customerService) Page(ctx context.Context, cursor *int64, limit int) (*model.CustomerPage, error) {
	if limit < 1 {
		return nil, validation.NewPayloadError(validation.Violation{
			Field:   "limit",
			Message: "limit must be a positive integer",
		})
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	var after int64
	if cursor != nil {
		after = *cursor
	}

	rows, err := s.customerRepo.PageAfter(ctx, after, limit+1)
	if err != nil {
		return nil, err
	}

	page := &model.CustomerPage{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		page.HasMore = true
		next := page.Items[limit-1].ID
		page.NextCursor = &next
	}
	return page, nil
}

// mergePatch applies the merge-patch document and re-validates the
// merged aggregate against the full set of constraints
func (s *customerService) mergePatch(target *model.Customer, patchDoc []byte) (*model.Customer, error) {
	merged, err := patch.Apply(target, patchDoc)
	if err != nil {
		if errors.Is(err, patch.ErrMalformedPatch) {
			return nil, validation.NewPayloadError(validation.Violation{
				Field:   "patch",
				Message: err.Error(),
			})
		}
		return nil, apperrors.Internal("failed to apply merge patch", err)
	}

	if err := s.validator.ValidateStruct(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// precheckEmails is the cheap first layer of the uniqueness guard: a
// containment lookup per email outside of any transaction rejects the
// common duplicate early. The authoritative re-check runs under locks
func (s *customerService) precheckEmails(ctx context.Context, c *model.Customer) error {
	for _, email := range c.EmailValues() {
		owner, err := s.customerRepo.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if owner != nil && owner.ID != c.ID {
			return apperrors.Conflict(fmt.Sprintf("email %s is already in use", email))
		}
	}
	return nil
}

// guardEmails must run inside the mutation transaction: every email of
// the row is advisory-locked and re-checked there, and the locks die
// with the transaction, so no lock ever outlives a request. The row
// lock, when one is taken, is always acquired before the email locks
func (s *customerService) guardEmails(ctx context.Context, c *model.Customer) error {
	emails := c.EmailValues()

	if err := s.emailGuard.LockEmails(ctx, emails); err != nil {
		return err
	}

	for _, email := range emails {
		owned, err := s.emailGuard.EmailOwnedByOther(ctx, email, c.ID)
		if err != nil {
			return err
		}
		if owned {
			return apperrors.Conflict(fmt.Sprintf("email %s is already in use", email))
		}
	}
	return nil
}

// publish sends the event synchronously. Storage is committed at this
// point and is not rolled back on failure - the error is surfaced so
// the caller never assumes consumers saw the mutation
func (s *customerService) publish(ctx context.Context, eventType string, c *model.Customer) error {
	if err := s.publisher.Publish(ctx, eventType, c); err != nil {
		logrus.Errorf("customer %d committed but %s event was not published - %v", c.ID, eventType, err)
		return apperrors.Internal(fmt.Sprintf("customer %d persisted but %s event publish failed", c.ID, eventType), err)
	}
	return nil
}
