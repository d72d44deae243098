package filter

import (
	"errors"
	"net/url"
	"testing"

	"github.com/kailas-cloud/directory/internal/domain"
)

func TestFromValues(t *testing.T) {
	raw, err := FromValues(url.Values{"filter_category": {"bakery"}, "limit": {"10"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw["filter_category"] != "bakery" || raw["limit"] != "10" {
		t.Fatalf("unexpected map %v", raw)
	}
}

func TestFromValues_RepeatedKey(t *testing.T) {
	_, err := FromValues(url.Values{"filter_category": {"bakery", "cafe"}})
	if !errors.Is(err, domain.ErrMalformedQuery) {
		t.Fatalf("want ErrMalformedQuery, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"flat object", `{"filter_category":"bakery","limit":"10"}`, false},
		{"empty object", `{}`, false},
		{"null", `null`, true},
		{"array", `["filter_category"]`, true},
		{"string", `"filter_category"`, true},
		{"nested", `{"filter_category":{"$ne":"x"}}`, true},
		{"number value", `{"limit":10}`, true},
		{"invalid json", `{`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, domain.ErrMalformedQuery) {
					t.Fatalf("want ErrMalformedQuery, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDecode_TypedMapIsCopied(t *testing.T) {
	src := map[string]string{"limit": "5"}
	raw, err := Decode(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src["limit"] = "6"
	if raw["limit"] != "5" {
		t.Fatal("decoded map must be a copy")
	}
}
