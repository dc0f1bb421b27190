package patch

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/umalmyha/customer-registry/internal/model"
)

// ErrMalformedPatch marks merge-patch documents which are not valid
// JSON or do not decode into the aggregate shape
var ErrMalformedPatch = errors.New("malformed merge patch document")

// Apply merges an RFC 7396 merge-patch document into the customer:
// object values merge recursively, null removes the key, any other
// value replaces wholesale, absent keys stay untouched. Server-owned
// id and createdAt always win over values present in the patch.
// The input customer is never modified
func Apply(target *model.Customer, patchDoc []byte) (*model.Customer, error) {
	original, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize customer %d - %w", target.ID, err)
	}

	merged, err := jsonpatch.MergePatch(original, patchDoc)
	if err != nil {
		return nil, fmt.Errorf("%w - %s", ErrMalformedPatch, err)
	}

	var c model.Customer
	if err := json.Unmarshal(merged, &c); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w - field %s expects %s", ErrMalformedPatch, typeErr.Field, typeErr.Type)
		}
		return nil, fmt.Errorf("%w - %s", ErrMalformedPatch, err)
	}

	c.ID = target.ID
	c.CreatedAt = target.CreatedAt
	return &c, nil
}
