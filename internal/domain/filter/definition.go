package filter

import "github.com/kailas-cloud/directory/internal/domain/geo"

// Defaults applied when the caller does not specify a value.
const (
	DefaultLimit       = 25
	MaxLimit           = 100
	DefaultRadiusMeter = 5000.0
)

// Reserved record fields understood by every store.
const (
	FieldID       = "id"
	FieldModified = "modified"
	FieldDistance = "distance"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortField orders results by one field.
type SortField struct {
	Field     string
	Direction Direction
}

// Value is either a scalar or a list of strings.
type Value struct {
	Scalar string
	List   []string
}

// IsList reports whether the value is a pipe-delimited list.
func (v Value) IsList() bool {
	return v.List != nil
}

// Filter is a single parsed filter_<name> entry.
type Filter struct {
	Name  string
	Token string // raw operator token, empty when absent
	Value Value
}

// Location is the optional proximity predicate. Coordinate is nil when
// the query has no location filter.
type Location struct {
	Coordinate        *geo.Point
	MaxDistanceMeters float64
}

// IsSet reports whether a proximity search was requested.
func (l Location) IsSet() bool {
	return l.Coordinate != nil
}

// Definition is the validated, typed form of a raw query map.
type Definition struct {
	Location Location
	Filters  []Filter
	Limit    int
	Page     int
	Sorting  []SortField
}

// Skip returns the number of records preceding the requested page.
func (d Definition) Skip() int {
	return d.Page * d.Limit
}

// With returns a copy of d with an extra equals filter appended.
func (d Definition) With(name, value string) Definition {
	filters := make([]Filter, 0, len(d.Filters)+1)
	filters = append(filters, d.Filters...)
	filters = append(filters, Filter{Name: name, Token: string(OpEquals), Value: Value{Scalar: value}})
	d.Filters = filters
	return d
}
