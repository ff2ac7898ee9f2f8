package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW INPUT VALIDATION
// =============================================================================

// Apply parses raw and overlays it on base (nil for an insert). The returned
// record holds raw fields only; derived values must be recomputed. Nothing is
// returned on error, so a rejected write never leaves partial state behind.
func (s *Schema) Apply(base *Record, raw RawRecord) (Record, error) {
	var id RecordID
	out := Record{Values: make(map[string]Value), Slots: make(map[string][]SubEntry)}
	if base != nil {
		id = base.Seq
		out = base.Clone()
		for _, f := range s.order {
			delete(out.Values, f.Name)
		}
	}

	if err := s.checkNames(raw, id); err != nil {
		return Record{}, err
	}

	for _, f := range s.fields {
		text, ok := raw.Fields[f.Name]
		if !ok || f.IsDerived() {
			continue
		}
		v, err := s.ParseCell(f, text)
		if err != nil {
			err.Record = id
			return Record{}, err
		}
		if v.IsBlank() {
			delete(out.Values, f.Name)
		} else {
			out.Values[f.Name] = v
		}
	}

	for _, g := range s.groups {
		entries, ok := raw.Slots[g.Name]
		if !ok {
			continue
		}
		parsed, err := s.parseSlots(g, entries)
		if err != nil {
			err.Record = id
			return Record{}, err
		}
		if len(parsed) == 0 {
			delete(out.Slots, g.Name)
		} else {
			out.Slots[g.Name] = parsed
		}
	}

	for _, f := range s.fields {
		if f.Required && out.Value(f.Name).IsBlank() {
			return Record{}, &ValidationError{
				Kind:    ValidationMissingRequired,
				Field:   f.Name,
				Record:  id,
				Message: "value is required",
			}
		}
	}
	return out, nil
}

// checkNames rejects unknown names and writes to derived fields. Names are
// visited in sorted order so the reported error is stable.
func (s *Schema) checkNames(raw RawRecord, id RecordID) error {
	names := make([]string, 0, len(raw.Fields))
	for name := range raw.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f, ok := s.byName[name]
		if !ok {
			return &ValidationError{Kind: ValidationUnknownField, Field: name, Record: id,
				Value: raw.Fields[name], Message: "no such field"}
		}
		if f.IsDerived() {
			return &ValidationError{Kind: ValidationDerivedWrite, Field: name, Record: id,
				Value: raw.Fields[name], Message: "derived fields are computed, not written"}
		}
	}

	groups := make([]string, 0, len(raw.Slots))
	for name := range raw.Slots {
		groups = append(groups, name)
	}
	sort.Strings(groups)
	for _, name := range groups {
		if _, ok := s.groupByNm[name]; !ok {
			return &ValidationError{Kind: ValidationUnknownField, Field: name, Record: id,
				Message: "no such slot group"}
		}
	}
	return nil
}

// ParseCell converts cell text into a typed value for a raw field. Empty text
// is blank.
func (s *Schema) ParseCell(f *Field, text string) (Value, *ValidationError) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Blank(), nil
	}
	switch f.Type {
	case TypeText:
		return Text(text), nil

	case TypeEnum:
		if !s.InDomain(f.Name, text) {
			return Value{}, &ValidationError{Kind: ValidationOutOfDomain, Field: f.Name, Value: text,
				Message: fmt.Sprintf("must be one of %s", strings.Join(f.Domain, ", "))}
		}
		return Text(text), nil

	case TypeDate:
		tp, err := ParseTimePoint(text)
		if err != nil {
			return Value{}, &ValidationError{Kind: ValidationInvalidDate, Field: f.Name, Value: text,
				Message: err.Error()}
		}
		return Date(tp), nil
	}

	d, verr := parseNumeric(f.Name, f.Type, text)
	if verr != nil {
		return Value{}, verr
	}
	return Number(d), nil
}

func parseNumeric(field string, typ FieldType, text string) (decimal.Decimal, *ValidationError) {
	percent := false
	clean := strings.ReplaceAll(text, ",", "")
	if typ == TypePercent && strings.HasSuffix(clean, "%") {
		percent = true
		clean = strings.TrimSpace(strings.TrimSuffix(clean, "%"))
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, &ValidationError{Kind: ValidationNotNumeric, Field: field, Value: text,
			Message: "not a number"}
	}
	if percent {
		d = d.Div(decimal.NewFromInt(100))
	}

	switch typ {
	case TypeCurrency:
		if !d.Equal(d.Round(2)) {
			return decimal.Zero, &ValidationError{Kind: ValidationPrecision, Field: field, Value: text,
				Message: "currency amounts have at most two decimals"}
		}
	case TypePercent:
		if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
			return decimal.Zero, &ValidationError{Kind: ValidationOutOfRange, Field: field, Value: text,
				Message: "rates are fractions between 0 and 1"}
		}
	}
	return d, nil
}

// parseSlots validates one slot group. Empty slots are dropped, so the
// result only holds populated entries in input order.
func (s *Schema) parseSlots(g *SlotGroup, entries []RawSubEntry) ([]SubEntry, *ValidationError) {
	if len(entries) > g.MaxSlots {
		return nil, &ValidationError{Kind: ValidationTooManySlots, Field: g.Name,
			Message: fmt.Sprintf("%d slots given, at most %d allowed", len(entries), g.MaxSlots)}
	}
	var out []SubEntry
	for i, e := range entries {
		category := strings.TrimSpace(e.Category)
		value := strings.TrimSpace(e.Value)
		if category == "" {
			if value != "" {
				return nil, &ValidationError{Kind: ValidationOrphanSlotValue, Field: g.Name, Value: value,
					Message: fmt.Sprintf("slot %d has a value but no category", i+1)}
			}
			continue
		}
		if !g.InDomain(category) {
			return nil, &ValidationError{Kind: ValidationOutOfDomain, Field: g.Name, Value: category,
				Message: fmt.Sprintf("slot %d: must be one of %s", i+1, strings.Join(g.CategoryDomain, ", "))}
		}
		entry := SubEntry{Category: category}
		if value != "" {
			d, verr := parseNumeric(g.Name, g.ValueType, value)
			if verr != nil {
				verr.Message = fmt.Sprintf("slot %d: %s", i+1, verr.Message)
				return nil, verr
			}
			entry.Value = Number(d)
		}
		out = append(out, entry)
	}
	return out, nil
}
