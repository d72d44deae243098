package business

import (
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

// Patch is a partial attribute update. Nil fields are unchanged.
type Patch struct {
	Name           *string    `json:"name,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Website        *string    `json:"website,omitempty"`
	Email          *[]string  `json:"email,omitempty"`
	Phone          *[]string  `json:"phone,omitempty"`
	Address        *Address   `json:"address,omitempty"`
	Category       *[]string  `json:"category,omitempty"`
	Delivery       *[]string  `json:"delivery,omitempty"`
	PaymentMethods *[]string  `json:"paymentMethods,omitempty"`
	Location       *geo.Point `json:"location,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Website == nil &&
		p.Email == nil && p.Phone == nil && p.Address == nil &&
		p.Category == nil && p.Delivery == nil && p.PaymentMethods == nil &&
		p.Location == nil
}

// ChangesZip reports whether the patch moves the business to another zip code
// without giving an explicit location.
func (p Patch) ChangesZip(current Address) bool {
	return p.Address != nil && p.Location == nil && p.Address.Zip != current.Zip
}

func (p Patch) apply(a Attributes) Attributes {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Website != nil {
		a.Website = *p.Website
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if p.Phone != nil {
		a.Phone = *p.Phone
	}
	if p.Address != nil {
		a.Address = *p.Address
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Delivery != nil {
		a.Delivery = *p.Delivery
	}
	if p.PaymentMethods != nil {
		a.PaymentMethods = *p.PaymentMethods
	}
	if p.Location != nil {
		loc := *p.Location
		a.Location = &loc
	}
	return a
}
