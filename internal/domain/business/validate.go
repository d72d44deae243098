package business

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/kailas-cloud/directory/internal/domain"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

// Field limits.
const (
	MaxNameLength        = 200
	MaxDescriptionLength = 1500
	MaxListLength        = 20
)

// Delivery options.
const (
	DeliveryCollect   = "collect"
	DeliveryByOwner   = "deliveryByOwner"
	DeliveryByService = "deliveryByService"
)

var deliveryOptions = map[string]bool{
	DeliveryCollect:   true,
	DeliveryByOwner:   true,
	DeliveryByService: true,
}

var paymentMethods = map[string]bool{
	"cash":    true,
	"card":    true,
	"paypal":  true,
	"invoice": true,
	"other":   true,
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidBusiness, fmt.Sprintf(format, args...))
}

// Validate checks attrs. Errors wrap domain.ErrInvalidBusiness.
func Validate(a Attributes) error {
	if a.Name == "" {
		return invalid("name is required")
	}
	if len(a.Name) > MaxNameLength {
		return invalid("name too long (max %d)", MaxNameLength)
	}
	if len(a.Description) > MaxDescriptionLength {
		return invalid("description too long (max %d)", MaxDescriptionLength)
	}
	if len(a.Category) == 0 {
		return invalid("at least one category is required")
	}
	for name, l := range map[string][]string{
		"email": a.Email, "phone": a.Phone, "category": a.Category,
		"delivery": a.Delivery, "paymentMethods": a.PaymentMethods,
	} {
		if len(l) > MaxListLength {
			return invalid("%s has too many entries (max %d)", name, MaxListLength)
		}
	}
	if a.Website != "" {
		u, err := url.Parse(a.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("website %q must be an http(s) URL", a.Website)
		}
	}
	for _, e := range a.Email {
		if _, err := mail.ParseAddress(e); err != nil {
			return invalid("email %q is not a valid address", e)
		}
	}
	for _, d := range a.Delivery {
		if !deliveryOptions[d] {
			return invalid("unknown delivery option %q", d)
		}
	}
	for _, p := range a.PaymentMethods {
		if !paymentMethods[p] {
			return invalid("unknown payment method %q", p)
		}
	}
	if a.Location != nil && !geo.ValidateCoordinates(a.Location.Lat, a.Location.Lng) {
		return invalid("location out of range")
	}
	return nil
}

// normalize trims text fields and drops empty list entries.
func normalize(a Attributes) Attributes {
	a.Name = strings.TrimSpace(a.Name)
	a.Description = strings.TrimSpace(a.Description)
	a.Website = strings.TrimSpace(a.Website)
	a.Email = compact(a.Email)
	a.Phone = compact(a.Phone)
	a.Category = compact(a.Category)
	a.Delivery = compact(a.Delivery)
	a.PaymentMethods = compact(a.PaymentMethods)
	a.Address.Zip = strings.TrimSpace(a.Address.Zip)
	return a
}

func compact(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
