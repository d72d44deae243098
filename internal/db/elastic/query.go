package elastic

import (
	"strings"

	"github.com/kailas-cloud/directory/internal/domain/filter"
)

// query is an immutable list of bool/filter clauses.
type query struct {
	clauses []map[string]any
	ids     []string // nil: unrestricted
}

func (q *query) with(clause map[string]any) *query {
	clauses := make([]map[string]any, 0, len(q.clauses)+1)
	clauses = append(clauses, q.clauses...)
	return &query{clauses: append(clauses, clause), ids: q.ids}
}

// path maps a record field to its indexed name.
func path(field string) string {
	if field == filter.FieldID {
		return idField
	}
	return docField + "." + field
}

func (q *query) WhereEquals(field, value string) filter.Query {
	return q.with(map[string]any{"term": map[string]any{path(field): value}})
}

func (q *query) WhereLte(field, value string) filter.Query {
	return q.with(map[string]any{"range": map[string]any{path(field): map[string]any{"lte": value}}})
}

func (q *query) WhereGte(field, value string) filter.Query {
	return q.with(map[string]any{"range": map[string]any{path(field): map[string]any{"gte": value}}})
}

func (q *query) WhereIn(field string, values []string) filter.Query {
	return q.with(map[string]any{"terms": map[string]any{path(field): append([]string(nil), values...)}})
}

func (q *query) WhereMatches(field string, pattern filter.Pattern) filter.Query {
	return q.with(map[string]any{"wildcard": map[string]any{path(field): map[string]any{
		"value":            "*" + escapeWildcard(pattern.Literal()) + "*",
		"case_insensitive": true,
	}}})
}

func (q *query) WhereIDIn(ids []string) filter.Query {
	restricted := make([]string, len(ids))
	copy(restricted, ids)
	return &query{clauses: q.clauses, ids: restricted}
}

// body renders the query DSL.
func (q *query) body() map[string]any {
	clauses := make([]any, 0, len(q.clauses)+1)
	if q.ids != nil {
		clauses = append(clauses, map[string]any{"terms": map[string]any{idField: q.ids}})
	}
	for _, c := range q.clauses {
		clauses = append(clauses, c)
	}
	if len(clauses) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{"bool": map[string]any{"filter": clauses}}
}

// sort renders the sort list. Missing values sort first ascending.
func (q *query) sort(order []filter.SortField) []any {
	out := make([]any, 0, len(order))
	for _, s := range order {
		dir := string(s.Direction)
		missing := "_first"
		if s.Direction == filter.Desc {
			missing = "_last"
		}
		if s.Field == filter.FieldDistance {
			if q.ids == nil {
				continue
			}
			rank := make(map[string]int, len(q.ids))
			for i, id := range q.ids {
				if _, dup := rank[id]; !dup {
					rank[id] = i
				}
			}
			out = append(out, map[string]any{"_script": map[string]any{
				"type": "number",
				"script": map[string]any{
					"source": "params.rank.getOrDefault(doc['" + idField + "'].value, params.rank.size())",
					"params": map[string]any{"rank": rank},
				},
				"order": dir,
			}})
			continue
		}
		out = append(out, map[string]any{path(s.Field): map[string]any{
			"order":         dir,
			"missing":       missing,
			"unmapped_type": "keyword",
		}})
	}
	if len(out) == 0 {
		out = append(out, map[string]any{idField: map[string]any{"order": "asc"}})
	}
	return out
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}
