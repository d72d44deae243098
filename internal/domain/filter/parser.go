package filter

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/directory/internal/domain"
)

// Raw query key conventions.
const (
	filterPrefix = "filter_"
	sortPrefix   = "sort_"
	limitKey     = "limit"
	pageKey      = "page"
)

// Parser turns raw query maps into Definitions.
type Parser struct {
	postal        PostalLookup
	defaultLimit  int
	maxLimit      int
	defaultRadius float64
}

// NewParser creates a Parser backed by the given postal lookup table.
func NewParser(postal PostalLookup) *Parser {
	return &Parser{
		postal:        postal,
		defaultLimit:  DefaultLimit,
		maxLimit:      MaxLimit,
		defaultRadius: DefaultRadiusMeter,
	}
}

// WithPageSize overrides the default and maximum page size.
func (p *Parser) WithPageSize(defaultLimit, maxLimit int) *Parser {
	if defaultLimit > 0 {
		p.defaultLimit = defaultLimit
	}
	if maxLimit > 0 {
		p.maxLimit = maxLimit
	}
	if p.defaultLimit > p.maxLimit {
		p.defaultLimit = p.maxLimit
	}
	return p
}

// WithDefaultRadius overrides the radius reported when no location is given.
func (p *Parser) WithDefaultRadius(meters float64) *Parser {
	if meters > 0 {
		p.defaultRadius = meters
	}
	return p
}

// Parse validates a raw query map. limit and page are checked before any
// filter, so a bad page parameter never reaches location resolution.
// Keys are visited in sorted order, which also fixes the order of filters
// and sort fields.
func (p *Parser) Parse(raw map[string]string) (Definition, error) {
	if raw == nil {
		return Definition{}, &domain.MalformedQueryError{Reason: "query is null"}
	}

	def := Definition{
		Location: Location{MaxDistanceMeters: p.defaultRadius},
		Limit:    p.defaultLimit,
	}

	if v, ok := raw[limitKey]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 1 || n > p.maxLimit {
			return Definition{}, &domain.ParameterError{Name: limitKey, Value: v}
		}
		def.Limit = n
	}
	if v, ok := raw[pageKey]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 || n > math.MaxInt/def.Limit {
			return Definition{}, &domain.ParameterError{Name: pageKey, Value: v}
		}
		def.Page = n
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		switch {
		case strings.HasPrefix(key, filterPrefix):
			name := strings.TrimPrefix(key, filterPrefix)
			if name == "" {
				continue
			}
			token, remainder := splitOperator(value)
			if name == LocationField {
				loc, err := ResolveLocation(remainder, p.postal)
				if err != nil {
					return Definition{}, err
				}
				def.Location = loc
				continue
			}
			if remainder == "" {
				continue
			}
			def.Filters = append(def.Filters, Filter{Name: name, Token: token, Value: splitList(remainder)})

		case strings.HasPrefix(key, sortPrefix):
			name := strings.TrimPrefix(key, sortPrefix)
			if name == "" {
				continue
			}
			dir := Desc
			if strings.EqualFold(strings.TrimSpace(value), string(Asc)) {
				dir = Asc
			}
			def.Sorting = append(def.Sorting, SortField{Field: name, Direction: dir})
		}
	}

	return def, nil
}

// splitOperator splits "token:rest" on the first colon.
func splitOperator(value string) (string, string) {
	token, rest, found := strings.Cut(value, ":")
	if !found {
		return "", value
	}
	return token, rest
}

func splitList(s string) Value {
	if strings.Contains(s, "|") {
		return Value{List: strings.Split(s, "|")}
	}
	return Value{Scalar: s}
}
