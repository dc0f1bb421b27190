package model

import "time"

// Address is customer postal address value object
type Address struct {
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	Region     *string `json:"region,omitempty"`
	PostalCode string  `json:"postalCode"`
	Country    string  `json:"country" validate:"required"`
}

// Email is customer email value object. Primary flag is informational,
// no uniqueness is enforced across the list
type Email struct {
	Email   string `json:"email" validate:"required,email"`
	Primary bool   `json:"primary"`
}

// Phone is customer phone value object
type Phone struct {
	Number string  `json:"number" validate:"required"`
	Kind   *string `json:"kind,omitempty"`
}

// Customer is the aggregate root persisted as a single JSON document
type Customer struct {
	ID         int64     `json:"id,string"`
	Type       string    `json:"type" validate:"required"`
	FirstName  string    `json:"firstName" validate:"required"`
	LastName   string    `json:"lastName" validate:"required"`
	MiddleName *string   `json:"middleName,omitempty"`
	Suffix     *string   `json:"suffix,omitempty"`
	Addresses  []Address `json:"addresses" validate:"omitempty,dive"`
	Emails     []Email   `json:"emails" validate:"required,min=1,dive"`
	Phones     []Phone   `json:"phones" validate:"omitempty,dive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// EmailValues returns plain email strings in list order
func (c *Customer) EmailValues() []string {
	emails := make([]string, 0, len(c.Emails))
	for _, e := range c.Emails {
		emails = append(emails, e.Email)
	}
	return emails
}

// CustomerPage is a single page of customers in ascending id order.
// NextCursor is nil on the last page
type CustomerPage struct {
	Items      []*Customer
	NextCursor *int64
	HasMore    bool
}
