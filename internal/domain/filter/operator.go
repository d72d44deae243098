package filter

// Operator is a canonical predicate operator.
type Operator string

// Canonical operators.
const (
	OpEquals Operator = "equals"
	OpLte    Operator = "lte"
	OpGte    Operator = "gte"
	OpIn     Operator = "in"
	OpNear   Operator = "near"
	OpRegex  Operator = "regex"
)

// LocationField is the reserved filter name for the proximity predicate.
const LocationField = "location"

// tokens maps recognized raw operator tokens to canonical operators.
var tokens = map[string]Operator{
	"equals":   OpEquals,
	"lte":      OpLte,
	"gte":      OpGte,
	"contains": OpRegex,
}

// Resolve maps a raw operator token and field name to a canonical operator.
// A list value always yields OpIn. Unknown tokens are treated as absent.
func Resolve(token, field string, value Value) Operator {
	if value.IsList() {
		return OpIn
	}
	if op, ok := tokens[token]; ok {
		return op
	}
	if field == LocationField {
		return OpNear
	}
	return OpEquals
}
