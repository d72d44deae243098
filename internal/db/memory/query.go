package memory

import (
	"strconv"

	"github.com/kailas-cloud/directory/internal/domain/filter"
)

type cond func(id string, fields map[string]any) bool

// query is an immutable conjunction of conditions.
type query struct {
	conds []cond
	ids   map[string]int // id → position in distance order
}

func (q *query) with(c cond) *query {
	conds := make([]cond, 0, len(q.conds)+1)
	conds = append(conds, q.conds...)
	return &query{conds: append(conds, c), ids: q.ids}
}

func (q *query) WhereEquals(field, value string) filter.Query {
	return q.with(func(id string, fields map[string]any) bool {
		for _, v := range scalars(lookup(id, fields, field)) {
			if s, ok := text(v); ok && s == value {
				return true
			}
		}
		return false
	})
}

func (q *query) WhereLte(field, value string) filter.Query {
	return q.with(compare(field, value, func(c int) bool { return c <= 0 }))
}

func (q *query) WhereGte(field, value string) filter.Query {
	return q.with(compare(field, value, func(c int) bool { return c >= 0 }))
}

func (q *query) WhereIn(field string, values []string) filter.Query {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return q.with(func(id string, fields map[string]any) bool {
		for _, v := range scalars(lookup(id, fields, field)) {
			if s, ok := text(v); ok {
				if _, hit := set[s]; hit {
					return true
				}
			}
		}
		return false
	})
}

func (q *query) WhereMatches(field string, pattern filter.Pattern) filter.Query {
	return q.with(func(id string, fields map[string]any) bool {
		for _, v := range scalars(lookup(id, fields, field)) {
			if s, ok := text(v); ok && pattern.MatchString(s) {
				return true
			}
		}
		return false
	})
}

func (q *query) WhereIDIn(ids []string) filter.Query {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := pos[id]; !dup {
			pos[id] = i
		}
	}
	return &query{conds: q.conds, ids: pos}
}

// compare matches numerically when both sides are numbers, else as text.
func compare(field, value string, ok func(int) bool) cond {
	num, numErr := strconv.ParseFloat(value, 64)
	return func(id string, fields map[string]any) bool {
		for _, v := range scalars(lookup(id, fields, field)) {
			switch t := v.(type) {
			case float64:
				if numErr == nil && ok(cmpFloat(t, num)) {
					return true
				}
			case string:
				if numErr != nil && ok(cmpString(t, value)) {
					return true
				}
			}
		}
		return false
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// rank orders value kinds: missing < bool < number < string < other.
func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

func cmpValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpFloat(float64(ra), float64(rb))
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		if x == y {
			return 0
		}
		if !x {
			return -1
		}
		return 1
	case float64:
		return cmpFloat(x, b.(float64))
	case string:
		return cmpString(x, b.(string))
	default:
		return 0
	}
}

func less(q *query, a, b entry, order []filter.SortField) bool {
	for _, s := range order {
		var c int
		if s.Field == filter.FieldDistance {
			if q.ids == nil {
				continue
			}
			c = cmpFloat(float64(q.ids[a.doc.ID]), float64(q.ids[b.doc.ID]))
		} else {
			av := sortKey(lookup(a.doc.ID, a.fields, s.Field))
			bv := sortKey(lookup(b.doc.ID, b.fields, s.Field))
			c = cmpValues(av, bv)
		}
		if c == 0 {
			continue
		}
		if s.Direction == filter.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

// sortKey sorts arrays by their first element.
func sortKey(v any) any {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	}
	return v
}
