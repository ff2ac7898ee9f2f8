package engine

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PREDICATES - Record filters for aggregation
// =============================================================================

// Predicate selects records. Fields lists the schema fields it reads so a
// spec can be checked before it runs.
type Predicate interface {
	Match(rec Record) bool
	Fields() []string
}

type eqPred struct {
	field string
	value string
}

// Eq matches records whose field holds value. Numbers and dates compare by
// value, so "500.00" matches a stored 500.
func Eq(field, value string) Predicate { return eqPred{field, value} }

func (p eqPred) Match(rec Record) bool { return holds(rec.Value(p.field), p.value) }
func (p eqPred) Fields() []string { return []string{p.field} }

type inPred struct {
	field  string
	values map[string]bool
}

// In matches records whose field holds any of values.
func In(field string, values ...string) Predicate {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return inPred{field, set}
}

func (p inPred) Match(rec Record) bool {
	v := rec.Value(p.field)
	if v.IsBlank() {
		return false
	}
	if v.Kind == KindText {
		return p.values[v.Text]
	}
	for s := range p.values {
		if holds(v, s) {
			return true
		}
	}
	return false
}
func (p inPred) Fields() []string { return []string{p.field} }

// holds compares a stored value against predicate text. Text that does not
// parse as the stored kind never matches.
func holds(v Value, s string) bool {
	switch v.Kind {
	case KindNumber:
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		return err == nil && v.Num.Equal(d)
	case KindDate:
		tp, err := ParseTimePoint(s)
		return err == nil && v.Date.Equal(tp)
	case KindText:
		return v.Text == s
	default:
		return false
	}
}

// NotEq matches records whose field is blank or differs from value.
func NotEq(field, value string) Predicate { return Not(Eq(field, value)) }

type hasValuePred struct{ field string }

// HasValue matches records where field is not blank.
func HasValue(field string) Predicate { return hasValuePred{field} }

func (p hasValuePred) Match(rec Record) bool { return !rec.Value(p.field).IsBlank() }
func (p hasValuePred) Fields() []string      { return []string{p.field} }

type gtPred struct {
	field string
	than  decimal.Decimal
}

// GreaterThan matches numeric fields strictly above than.
func GreaterThan(field string, than decimal.Decimal) Predicate { return gtPred{field, than} }

func (p gtPred) Match(rec Record) bool {
	v := rec.Value(p.field)
	return v.IsNumber() && v.Num.GreaterThan(p.than)
}
func (p gtPred) Fields() []string { return []string{p.field} }

type tagPred struct{ tags map[Tag]bool }

// TagIn matches records classified under any of tags.
func TagIn(tags ...Tag) Predicate {
	set := make(map[Tag]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return tagPred{set}
}

func (p tagPred) Match(rec Record) bool { return p.tags[rec.Tag] }
func (p tagPred) Fields() []string      { return nil }

// =============================================================================
// COMBINATORS
// =============================================================================

type andPred []Predicate
type orPred []Predicate
type notPred struct{ p Predicate }

func And(ps ...Predicate) Predicate { return andPred(ps) }
func Or(ps ...Predicate) Predicate  { return orPred(ps) }
func Not(p Predicate) Predicate     { return notPred{p} }

func (ps andPred) Match(rec Record) bool {
	for _, p := range ps {
		if !p.Match(rec) {
			return false
		}
	}
	return true
}

func (ps orPred) Match(rec Record) bool {
	for _, p := range ps {
		if p.Match(rec) {
			return true
		}
	}
	return false
}

func (p notPred) Match(rec Record) bool { return !p.p.Match(rec) }

func (ps andPred) Fields() []string { return fieldsOf(ps) }
func (ps orPred) Fields() []string  { return fieldsOf(ps) }
func (p notPred) Fields() []string  { return p.p.Fields() }

func fieldsOf(ps []Predicate) []string {
	var out []string
	for _, p := range ps {
		out = append(out, p.Fields()...)
	}
	return out
}
