package business

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/directory/internal/domain"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

var now = time.Date(2024, 3, 1, 12, 30, 0, 123456000, time.UTC)

func validAttrs() Attributes {
	return Attributes{
		Name:           "  Bäckerei Brot ",
		Email:          []string{"info@brot.de", "info@brot.de", " "},
		Category:       []string{"bakery"},
		Delivery:       []string{DeliveryCollect},
		PaymentMethods: []string{"cash", "card"},
		Website:        "https://brot.de",
		Address:        Address{Zip: " 90409 ", City: "Nürnberg"},
	}
}

func TestNew_Valid(t *testing.T) {
	b, err := New("b1", "owner-1", validAttrs(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Active() {
		t.Error("new business must be inactive")
	}
	if b.Attributes().Name != "Bäckerei Brot" {
		t.Errorf("name not trimmed: %q", b.Attributes().Name)
	}
	if len(b.Attributes().Email) != 1 {
		t.Errorf("emails not compacted: %v", b.Attributes().Email)
	}
	if b.Attributes().Address.Zip != "90409" {
		t.Errorf("zip not trimmed: %q", b.Attributes().Address.Zip)
	}
	if !b.Created().Equal(now) || !b.Modified().Equal(now) {
		t.Errorf("timestamps: %v %v", b.Created(), b.Modified())
	}
	if !b.OwnedBy("owner-1") || b.OwnedBy("someone") || b.OwnedBy("") {
		t.Error("unexpected ownership")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		owner  string
		mutate func(a *Attributes)
	}{
		{"missing id", "", "o", func(*Attributes) {}},
		{"missing owner", "b", "", func(*Attributes) {}},
		{"missing name", "b", "o", func(a *Attributes) { a.Name = "   " }},
		{"long name", "b", "o", func(a *Attributes) { a.Name = strings.Repeat("x", MaxNameLength+1) }},
		{"long description", "b", "o", func(a *Attributes) { a.Description = strings.Repeat("x", MaxDescriptionLength+1) }},
		{"no category", "b", "o", func(a *Attributes) { a.Category = nil }},
		{"bad website", "b", "o", func(a *Attributes) { a.Website = "ftp://brot.de" }},
		{"bad email", "b", "o", func(a *Attributes) { a.Email = []string{"not-an-address"} }},
		{"bad delivery", "b", "o", func(a *Attributes) { a.Delivery = []string{"drone"} }},
		{"bad payment", "b", "o", func(a *Attributes) { a.PaymentMethods = []string{"bitcoin"} }},
		{"bad location", "b", "o", func(a *Attributes) { a.Location = &geo.Point{Lng: 200, Lat: 0} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := validAttrs()
			tt.mutate(&attrs)
			_, err := New(tt.id, tt.owner, attrs, now)
			if !errors.Is(err, domain.ErrInvalidBusiness) {
				t.Fatalf("want ErrInvalidBusiness, got %v", err)
			}
		})
	}
}

func TestDocument(t *testing.T) {
	attrs := validAttrs()
	attrs.Location = &geo.Point{Lng: 11.0793, Lat: 49.4626}
	b, err := New("b1", "owner-1", attrs, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b = b.WithActive(true, now)

	doc := b.Document()
	if doc["name"] != "Bäckerei Brot" || doc["owner"] != "owner-1" || doc["active"] != true {
		t.Errorf("unexpected scalars: %v", doc)
	}
	if doc["modified"] != "2024-03-01T12:30:00.123456Z" {
		t.Errorf("modified layout: %v", doc["modified"])
	}
	if loc, ok := doc["location"].([]float64); !ok || loc[0] != 11.0793 || loc[1] != 49.4626 {
		t.Errorf("location: %v", doc["location"])
	}
	if phones, ok := doc["phone"].([]string); !ok || phones == nil || len(phones) != 0 {
		t.Errorf("empty list must render as []: %#v", doc["phone"])
	}
	addr := doc["address"].(map[string]any)
	if addr["zip"] != "90409" {
		t.Errorf("address zip: %v", addr["zip"])
	}
}

func TestTimeLayout_SortsChronologically(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(TimeLayout)
	late := time.Date(2024, 1, 1, 0, 0, 0, 500000, time.UTC).Format(TimeLayout)
	if !(early < late) {
		t.Fatalf("%s should sort before %s", early, late)
	}
}

func TestApply(t *testing.T) {
	b, err := New("b1", "owner-1", validAttrs(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name := "Brot & Butter"
	later := now.Add(time.Hour)
	updated, err := b.Apply(Patch{Name: &name}, later)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Attributes().Name != name {
		t.Errorf("name: %q", updated.Attributes().Name)
	}
	if !updated.Modified().Equal(later) || !updated.Created().Equal(now) {
		t.Errorf("timestamps: %v %v", updated.Created(), updated.Modified())
	}
	if b.Attributes().Name == name {
		t.Error("Apply mutated the receiver")
	}

	empty := ""
	if _, err := b.Apply(Patch{Name: &empty}, later); !errors.Is(err, domain.ErrInvalidBusiness) {
		t.Errorf("want ErrInvalidBusiness, got %v", err)
	}
}

func TestPatch(t *testing.T) {
	if !(Patch{}).IsEmpty() {
		t.Error("zero patch must be empty")
	}
	addr := Address{Zip: "10115"}
	p := Patch{Address: &addr}
	if p.IsEmpty() {
		t.Error("patch with address is not empty")
	}
	if !p.ChangesZip(Address{Zip: "90409"}) {
		t.Error("zip change not detected")
	}
	if p.ChangesZip(Address{Zip: "10115"}) {
		t.Error("same zip reported as change")
	}
	p.Location = &geo.Point{Lng: 13.38, Lat: 52.53}
	if p.ChangesZip(Address{Zip: "90409"}) {
		t.Error("explicit location must suppress geocoding")
	}
}

func TestMedia(t *testing.T) {
	var m Media
	m, displaced, err := m.With(MediaLogo, "k1")
	if err != nil || displaced != "" || m.Logo != "k1" {
		t.Fatalf("first logo: %+v %q %v", m, displaced, err)
	}
	m, displaced, _ = m.With(MediaLogo, "k2")
	if displaced != "k1" || m.Logo != "k2" {
		t.Fatalf("replace logo: %+v %q", m, displaced)
	}

	for i := 0; i < MaxStories; i++ {
		m, _, _ = m.With(MediaStory, "s"+string(rune('a'+i)))
	}
	m, displaced, _ = m.With(MediaStory, "new")
	if displaced != "sa" || len(m.Stories) != MaxStories || m.Stories[MaxStories-1] != "new" {
		t.Fatalf("story rotation: %q %v", displaced, m.Stories)
	}

	if !m.References("k2") || m.References("k1") || m.References("") {
		t.Error("unexpected references")
	}
	m = m.Without("k2").Without("new")
	if m.Logo != "" || m.References("new") {
		t.Errorf("Without left references: %+v", m)
	}
	if len(m.Keys()) != MaxStories-1 {
		t.Errorf("keys: %v", m.Keys())
	}

	if _, err := ParseMediaKind("banner"); !errors.Is(err, domain.ErrInvalidBusiness) {
		t.Errorf("want ErrInvalidBusiness, got %v", err)
	}
	if k, err := ParseMediaKind("story"); err != nil || k != MediaStory {
		t.Errorf("parse story: %v %v", k, err)
	}
}
