package filter

import "regexp"

// Pattern is a case-insensitive substring matcher over a literal string.
// Regex metacharacters in the literal match themselves.
type Pattern struct {
	literal string
	re      *regexp.Regexp
}

// NewPattern builds a Pattern for literal.
func NewPattern(literal string) Pattern {
	return Pattern{
		literal: literal,
		re:      regexp.MustCompile("(?i)" + regexp.QuoteMeta(literal)),
	}
}

// Literal returns the unescaped search text.
func (p Pattern) Literal() string { return p.literal }

// MatchString reports whether s contains the literal, ignoring case.
func (p Pattern) MatchString(s string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(s)
}

// String returns the compiled expression.
func (p Pattern) String() string {
	if p.re == nil {
		return ""
	}
	return p.re.String()
}

// Predicate is a compiled, store-ready filter condition. Exactly one
// operand is meaningful, chosen by Operator.
type Predicate struct {
	Field    string
	Operator Operator
	Value    string
	Values   []string
	Pattern  Pattern
}

// Compile resolves operators and shapes operands. It never touches a store.
func Compile(filters []Filter) []Predicate {
	out := make([]Predicate, 0, len(filters))
	for _, f := range filters {
		op := Resolve(f.Token, f.Name, f.Value)
		p := Predicate{Field: f.Name, Operator: op}
		switch op {
		case OpIn:
			if f.Value.IsList() {
				p.Values = append([]string(nil), f.Value.List...)
			} else {
				p.Values = []string{f.Value.Scalar}
			}
		case OpRegex:
			p.Pattern = NewPattern(f.Value.Scalar)
		default:
			p.Value = f.Value.Scalar
		}
		out = append(out, p)
	}
	return out
}
