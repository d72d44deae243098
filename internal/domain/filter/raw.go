package filter

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/kailas-cloud/directory/internal/domain"
)

// FromValues flattens decoded URL query values into a raw query map.
// A key repeated with several values is rejected.
func FromValues(values url.Values) (map[string]string, error) {
	raw := make(map[string]string, len(values))
	for k, vs := range values {
		switch len(vs) {
		case 0:
			raw[k] = ""
		case 1:
			raw[k] = vs[0]
		default:
			return nil, &domain.MalformedQueryError{Reason: fmt.Sprintf("parameter %q given %d times", k, len(vs))}
		}
	}
	return raw, nil
}

// DecodeJSON decodes a JSON object whose values are all strings into a
// raw query map. null, arrays, scalars and nested values are rejected.
func DecodeJSON(data []byte) (map[string]string, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, &domain.MalformedQueryError{Reason: "body is not valid JSON"}
	}
	return Decode(generic)
}

// Decode converts an untyped decoded value into a raw query map.
func Decode(v any) (map[string]string, error) {
	switch m := v.(type) {
	case nil:
		return nil, &domain.MalformedQueryError{Reason: "query is null"}
	case map[string]string:
		raw := make(map[string]string, len(m))
		for k, val := range m {
			raw[k] = val
		}
		return raw, nil
	case map[string]any:
		raw := make(map[string]string, len(m))
		for k, val := range m {
			s, ok := val.(string)
			if !ok {
				return nil, &domain.MalformedQueryError{Reason: fmt.Sprintf("value of %q is not a string", k)}
			}
			raw[k] = s
		}
		return raw, nil
	default:
		return nil, &domain.MalformedQueryError{Reason: fmt.Sprintf("query must be an object, got %T", v)}
	}
}
