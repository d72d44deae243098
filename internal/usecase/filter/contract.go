package filter

import (
	domfilter "github.com/kailas-cloud/directory/internal/domain/filter"
)

// Store is the record collection queried by the executor.
type Store = domfilter.Store

// builder applies one compiled predicate to a query handle.
type builder func(q domfilter.Query, p domfilter.Predicate) domfilter.Query

// builders is the complete operator dispatch table. OpNear is absent:
// proximity is handled before predicates are applied.
var builders = map[domfilter.Operator]builder{
	domfilter.OpEquals: func(q domfilter.Query, p domfilter.Predicate) domfilter.Query {
		return q.WhereEquals(p.Field, p.Value)
	},
	domfilter.OpLte: func(q domfilter.Query, p domfilter.Predicate) domfilter.Query {
		return q.WhereLte(p.Field, p.Value)
	},
	domfilter.OpGte: func(q domfilter.Query, p domfilter.Predicate) domfilter.Query {
		return q.WhereGte(p.Field, p.Value)
	},
	domfilter.OpIn: func(q domfilter.Query, p domfilter.Predicate) domfilter.Query {
		return q.WhereIn(p.Field, p.Values)
	},
	domfilter.OpRegex: func(q domfilter.Query, p domfilter.Predicate) domfilter.Query {
		return q.WhereMatches(p.Field, p.Pattern)
	},
}
