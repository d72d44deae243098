package filter

import "encoding/json"

// Record is one entry of a filter result.
type Record struct {
	ID       string
	Fields   map[string]any
	Distance *float64 // meters, set only for proximity queries
}

// WithDistance returns a copy of r annotated with d.
func (r Record) WithDistance(d float64) Record {
	r.Distance = &d
	return r
}

// MarshalJSON flattens the record fields next to id and distance.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[FieldID] = r.ID
	if r.Distance != nil {
		out[FieldDistance] = *r.Distance
	} else {
		delete(out, FieldDistance)
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err //nolint:wrapcheck // decoding into a local map
	}
	rec := Record{}
	if id, ok := m[FieldID].(string); ok {
		rec.ID = id
	}
	if d, ok := m[FieldDistance].(float64); ok {
		rec.Distance = &d
	}
	delete(m, FieldID)
	delete(m, FieldDistance)
	rec.Fields = m
	*r = rec
	return nil
}

// Result is one page of filtered records.
type Result struct {
	Total   int
	Page    int
	PerPage int
	List    []Record
}

// NewResult builds a Result. list is never nil in the output.
func NewResult(total, page, perPage int, list []Record) Result {
	if list == nil {
		list = []Record{}
	}
	return Result{Total: total, Page: page, PerPage: perPage, List: list}
}

// LastPage is ceil(Total/PerPage), derived on every call.
func (r Result) LastPage() int {
	if r.PerPage <= 0 || r.Total <= 0 {
		return 0
	}
	return (r.Total + r.PerPage - 1) / r.PerPage
}

type resultJSON struct {
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PerPage  int      `json:"perPage"`
	LastPage int      `json:"lastPage"`
	List     []Record `json:"list"`
}

// MarshalJSON writes lastPage computed from total and perPage.
func (r Result) MarshalJSON() ([]byte, error) {
	list := r.List
	if list == nil {
		list = []Record{}
	}
	return json.Marshal(resultJSON{
		Total:    r.Total,
		Page:     r.Page,
		PerPage:  r.PerPage,
		LastPage: r.LastPage(),
		List:     list,
	})
}

// UnmarshalJSON ignores the encoded lastPage.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err //nolint:wrapcheck // decoding into a local struct
	}
	*r = NewResult(raw.Total, raw.Page, raw.PerPage, raw.List)
	return nil
}
