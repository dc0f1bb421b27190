package patch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/umalmyha/customer-registry/internal/model"
)

func testCustomer() *model.Customer {
	middleName := "Lee"
	return &model.Customer{
		ID:        77,
		Type:      "person",
		FirstName: "John",
		LastName:  "Walls",
		MiddleName: &middleName,
		Emails: []model.Email{
			{Email: "john.walls@somemail.com", Primary: true},
		},
		Phones: []model.Phone{
			{Number: "+12025550119"},
		},
		CreatedAt: time.Date(2022, time.July, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2022, time.July, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestApplyReplacesScalar(t *testing.T) {
	c := testCustomer()

	merged, err := Apply(c, []byte(`{"firstName":"Jane"}`))
	require.NoError(t, err)
	require.Equal(t, "Jane", merged.FirstName, "patched field must be replaced")
	require.Equal(t, c.LastName, merged.LastName, "absent keys must stay untouched")
	require.Equal(t, c.Emails, merged.Emails, "absent keys must stay untouched")
}

func TestApplyNullRemovesKey(t *testing.T) {
	c := testCustomer()

	merged, err := Apply(c, []byte(`{"middleName":null}`))
	require.NoError(t, err)
	require.Nil(t, merged.MiddleName, "null in patch must remove the key")
}

func TestApplyArrayReplacedWholesale(t *testing.T) {
	c := testCustomer()

	merged, err := Apply(c, []byte(`{"emails":[{"email":"new@somemail.com","primary":false}]}`))
	require.NoError(t, err)
	require.Len(t, merged.Emails, 1)
	require.Equal(t, "new@somemail.com", merged.Emails[0].Email, "arrays are replaced, not merged")
}

func TestApplyServerOwnedFieldsWin(t *testing.T) {
	c := testCustomer()

	merged, err := Apply(c, []byte(`{"id":"999","createdAt":"2000-01-01T00:00:00Z"}`))
	require.NoError(t, err)
	require.Equal(t, c.ID, merged.ID, "id from patch must be discarded")
	require.Equal(t, c.CreatedAt, merged.CreatedAt, "createdAt from patch must be discarded")
}

func TestApplyEmptyPatchKeepsShape(t *testing.T) {
	c := testCustomer()

	merged, err := Apply(c, []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, c, merged, "empty patch must change nothing")
}

func TestApplyIdempotentShape(t *testing.T) {
	c := testCustomer()
	doc := []byte(`{"firstName":"Jane","middleName":null,"phones":[]}`)

	once, err := Apply(c, doc)
	require.NoError(t, err)

	twice, err := Apply(once, doc)
	require.NoError(t, err)
	require.Equal(t, once, twice, "applying the same patch twice must yield the same values")
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	c := testCustomer()

	_, err := Apply(c, []byte(`{"firstName":"Jane"}`))
	require.NoError(t, err)
	require.Equal(t, "John", c.FirstName, "input aggregate must stay unchanged")
}

func TestApplyMalformedPatch(t *testing.T) {
	c := testCustomer()

	_, err := Apply(c, []byte(`{"firstName":`))
	require.ErrorIs(t, err, ErrMalformedPatch, "broken JSON must be rejected")

	_, err = Apply(c, []byte(`{"firstName":5}`))
	require.ErrorIs(t, err, ErrMalformedPatch, "type mismatch must be rejected")
}
