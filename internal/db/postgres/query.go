package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/kailas-cloud/directory/internal/domain/filter"
)

type condKind int

const (
	condEquals condKind = iota
	condLte
	condGte
	condIn
	condMatches
)

type cond struct {
	kind   condKind
	field  string
	value  string
	values []string
}

// query is an immutable conjunction rendered to SQL at execution time.
type query struct {
	conds []cond
	ids   []string // nil: unrestricted
}

func (q *query) with(c cond) *query {
	conds := make([]cond, 0, len(q.conds)+1)
	conds = append(conds, q.conds...)
	return &query{conds: append(conds, c), ids: q.ids}
}

func (q *query) WhereEquals(field, value string) filter.Query {
	return q.with(cond{kind: condEquals, field: field, value: value})
}

func (q *query) WhereLte(field, value string) filter.Query {
	return q.with(cond{kind: condLte, field: field, value: value})
}

func (q *query) WhereGte(field, value string) filter.Query {
	return q.with(cond{kind: condGte, field: field, value: value})
}

func (q *query) WhereIn(field string, values []string) filter.Query {
	return q.with(cond{kind: condIn, field: field, values: append([]string(nil), values...)})
}

func (q *query) WhereMatches(field string, pattern filter.Pattern) filter.Query {
	return q.with(cond{kind: condMatches, field: field, value: pattern.Literal()})
}

func (q *query) WhereIDIn(ids []string) filter.Query {
	restricted := make([]string, len(ids))
	copy(restricted, ids)
	return &query{conds: q.conds, ids: restricted}
}

// binder collects positional arguments.
type binder struct {
	args []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// where renders the WHERE clause body. An unrestricted query renders TRUE.
func (q *query) where(b *binder) string {
	parts := make([]string, 0, len(q.conds)+1)
	if q.ids != nil {
		parts = append(parts, "id = ANY("+b.bind(pq.Array(q.ids))+")")
	}
	for _, c := range q.conds {
		parts = append(parts, c.render(b))
	}
	if len(parts) == 0 {
		return "TRUE"
	}
	return strings.Join(parts, " AND ")
}

func (c cond) render(b *binder) string {
	if c.field == filter.FieldID {
		return c.renderID(b)
	}

	path := b.bind(pq.Array(strings.Split(c.field, "."))) + "::text[]"
	elems := fmt.Sprintf(
		"jsonb_array_elements(CASE jsonb_typeof(document #> %[1]s) WHEN 'array' THEN document #> %[1]s "+
			"ELSE jsonb_build_array(document #> %[1]s) END)", path)
	text := "e.v #>> '{}'"

	var pred string
	switch c.kind {
	case condEquals:
		pred = fmt.Sprintf("jsonb_typeof(e.v) <> 'null' AND %s = %s", text, b.bind(c.value))
	case condIn:
		pred = fmt.Sprintf("jsonb_typeof(e.v) <> 'null' AND %s = ANY(%s)", text, b.bind(pq.Array(c.values)))
	case condMatches:
		pred = fmt.Sprintf("jsonb_typeof(e.v) <> 'null' AND position(lower(%s::text) IN lower(%s)) > 0",
			b.bind(c.value), text)
	case condLte, condGte:
		pred = compare(b, c, text)
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s AS e(v) WHERE %s)", elems, pred)
}

// compare matches numbers numerically when the operand is numeric and
// strings lexically otherwise.
func compare(b *binder, c cond, text string) string {
	op := "<="
	if c.kind == condGte {
		op = ">="
	}
	if n, err := strconv.ParseFloat(c.value, 64); err == nil {
		return fmt.Sprintf("CASE WHEN jsonb_typeof(e.v) = 'number' THEN (%s)::numeric %s %s ELSE FALSE END",
			text, op, b.bind(n))
	}
	return fmt.Sprintf("CASE WHEN jsonb_typeof(e.v) = 'string' THEN %s %s %s ELSE FALSE END",
		text, op, b.bind(c.value))
}

func (c cond) renderID(b *binder) string {
	switch c.kind {
	case condEquals:
		return "id = " + b.bind(c.value)
	case condIn:
		return "id = ANY(" + b.bind(pq.Array(c.values)) + ")"
	case condMatches:
		return "position(lower(" + b.bind(c.value) + "::text) IN lower(id)) > 0"
	default:
		if _, err := strconv.ParseFloat(c.value, 64); err == nil {
			return "FALSE"
		}
		op := "<="
		if c.kind == condGte {
			op = ">="
		}
		return "id " + op + " " + b.bind(c.value)
	}
}

// orderBy renders the ORDER BY list. Missing values sort first ascending.
func (q *query) orderBy(b *binder, order []filter.SortField) string {
	parts := make([]string, 0, len(order))
	for _, s := range order {
		dir := "ASC NULLS FIRST"
		if s.Direction == filter.Desc {
			dir = "DESC NULLS LAST"
		}
		switch s.Field {
		case filter.FieldDistance:
			if q.ids == nil {
				continue
			}
			parts = append(parts, fmt.Sprintf("array_position(%s::text[], id) %s", b.bind(pq.Array(q.ids)), dir))
		case filter.FieldID:
			parts = append(parts, "id "+dir)
		default:
			path := b.bind(pq.Array(strings.Split(s.Field, "."))) + "::text[]"
			parts = append(parts, fmt.Sprintf(
				"NULLIF(CASE jsonb_typeof(document #> %[1]s) WHEN 'array' THEN document #> %[1]s -> 0 "+
					"ELSE document #> %[1]s END, 'null'::jsonb) %[2]s", path, dir))
		}
	}
	if len(parts) == 0 {
		return "id ASC"
	}
	return strings.Join(parts, ", ")
}
