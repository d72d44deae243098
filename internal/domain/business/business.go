// Package business holds the directory entry aggregate.
package business

import (
	"time"

	"github.com/kailas-cloud/directory/internal/domain/geo"
)

// TimeLayout formats timestamps with a fixed width so their text order
// matches their chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// MaxPerOwner is the number of businesses a single owner may register.
const MaxPerOwner = 5

// Address is a postal address.
type Address struct {
	Street       string `json:"street,omitempty"`
	StreetNumber string `json:"streetNumber,omitempty"`
	Zip          string `json:"zip,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country,omitempty"`
}

// Media references stored objects by key.
type Media struct {
	Logo    string   `json:"logo,omitempty"`
	Cover   string   `json:"cover,omitempty"`
	Profile string   `json:"profile,omitempty"`
	Stories []string `json:"stories,omitempty"`
}

// References reports whether key is one of the media objects.
func (m Media) References(key string) bool {
	if key == "" {
		return false
	}
	if m.Logo == key || m.Cover == key || m.Profile == key {
		return true
	}
	for _, s := range m.Stories {
		if s == key {
			return true
		}
	}
	return false
}

// Keys returns every referenced object key.
func (m Media) Keys() []string {
	var keys []string
	for _, k := range []string{m.Logo, m.Cover, m.Profile} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return append(keys, m.Stories...)
}

// Attributes are the owner-editable fields of a business.
type Attributes struct {
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Website        string     `json:"website,omitempty"`
	Email          []string   `json:"email,omitempty"`
	Phone          []string   `json:"phone,omitempty"`
	Address        Address    `json:"address"`
	Category       []string   `json:"category"`
	Delivery       []string   `json:"delivery,omitempty"`
	PaymentMethods []string   `json:"paymentMethods,omitempty"`
	Location       *geo.Point `json:"location,omitempty"`
}

// Business is the directory entry aggregate.
type Business struct {
	id       string
	owner    string
	attrs    Attributes
	media    Media
	active   bool
	created  time.Time
	modified time.Time
}

// New validates attrs and creates an inactive business.
func New(id, owner string, attrs Attributes, now time.Time) (Business, error) {
	if id == "" {
		return Business{}, invalid("id is required")
	}
	if owner == "" {
		return Business{}, invalid("owner is required")
	}
	attrs = normalize(attrs)
	if err := Validate(attrs); err != nil {
		return Business{}, err
	}
	now = now.UTC()
	return Business{
		id:       id,
		owner:    owner,
		attrs:    attrs,
		created:  now,
		modified: now,
	}, nil
}

// Reconstruct creates a Business without validation (storage hydration).
func Reconstruct(
	id, owner string, attrs Attributes, media Media, active bool, created, modified time.Time,
) Business {
	return Business{
		id: id, owner: owner, attrs: attrs, media: media,
		active: active, created: created, modified: modified,
	}
}

// ID returns the business identifier.
func (b Business) ID() string { return b.id }

// Owner returns the owning account id.
func (b Business) Owner() string { return b.owner }

// Attributes returns the editable fields.
func (b Business) Attributes() Attributes { return b.attrs }

// Media returns the media references.
func (b Business) Media() Media { return b.media }

// Active reports whether the business is listed publicly.
func (b Business) Active() bool { return b.active }

// Created returns the creation time.
func (b Business) Created() time.Time { return b.created }

// Modified returns the last modification time.
func (b Business) Modified() time.Time { return b.modified }

// Location returns the coordinate, or nil when unknown.
func (b Business) Location() *geo.Point { return b.attrs.Location }

// OwnedBy reports whether owner may modify the business.
func (b Business) OwnedBy(owner string) bool { return owner != "" && b.owner == owner }

// WithLocation returns a copy positioned at p.
func (b Business) WithLocation(p *geo.Point) Business {
	b.attrs.Location = p
	return b
}

// WithMedia returns a copy with media replaced and the modification time bumped.
func (b Business) WithMedia(m Media, now time.Time) Business {
	b.media = m
	b.modified = now.UTC()
	return b
}

// WithActive returns a copy with the activation flag set.
func (b Business) WithActive(active bool, now time.Time) Business {
	b.active = active
	b.modified = now.UTC()
	return b
}

// Apply validates p against the current attributes and returns the updated copy.
func (b Business) Apply(p Patch, now time.Time) (Business, error) {
	attrs := normalize(p.apply(b.attrs))
	if err := Validate(attrs); err != nil {
		return Business{}, err
	}
	b.attrs = attrs
	b.modified = now.UTC()
	return b, nil
}

// Document renders the filterable attribute map.
func (b Business) Document() map[string]any {
	a := b.attrs
	fields := map[string]any{
		"name":           a.Name,
		"owner":          b.owner,
		"description":    a.Description,
		"website":        a.Website,
		"email":          list(a.Email),
		"phone":          list(a.Phone),
		"address":        addressFields(a.Address),
		"category":       list(a.Category),
		"delivery":       list(a.Delivery),
		"paymentMethods": list(a.PaymentMethods),
		"media":          mediaFields(b.media),
		"active":         b.active,
		"created":        b.created.UTC().Format(TimeLayout),
		"modified":       b.modified.UTC().Format(TimeLayout),
	}
	if a.Location != nil {
		fields["location"] = []float64{a.Location.Lng, a.Location.Lat}
	}
	return fields
}

func addressFields(a Address) map[string]any {
	return map[string]any{
		"street":       a.Street,
		"streetNumber": a.StreetNumber,
		"zip":          a.Zip,
		"city":         a.City,
		"state":        a.State,
		"country":      a.Country,
	}
}

func mediaFields(m Media) map[string]any {
	return map[string]any{
		"logo":    m.Logo,
		"cover":   m.Cover,
		"profile": m.Profile,
		"stories": list(m.Stories),
	}
}

// list never returns nil so empty lists serialize as [].
func list(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}
