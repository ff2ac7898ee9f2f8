package engine

import (
	"fmt"

	"go.uber.org/zap"
)

// =============================================================================
// DERIVATION - Computed fields per record
// =============================================================================

// DerivationEngine evaluates a schema's derived fields in the order cached at
// schema build time.
type DerivationEngine struct {
	schema *Schema
	logger *zap.Logger
}

func NewDerivationEngine(schema *Schema, logger *zap.Logger) *DerivationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DerivationEngine{schema: schema, logger: logger}
}

// Derive recomputes every derived field of rec in place and replaces
// rec.Warnings with the failures recovered on the way. Running it twice on an
// unchanged record yields the same values.
func (d *DerivationEngine) Derive(rec *Record) {
	if rec.Values == nil {
		rec.Values = make(map[string]Value)
	}
	order := d.schema.DerivedOrder()
	for _, f := range order {
		delete(rec.Values, f.Name)
	}

	env := &evalEnv{
		values: rec.Values,
		slots:  rec.Slots,
		groups: d.schema.groupByNm,
		seq:    rec.Seq,
	}
	for _, f := range order {
		env.field = f.Name
		v := coerce(env, f.Result, f.expr.root.eval(env))
		if v.IsBlank() {
			delete(rec.Values, f.Name)
			continue
		}
		rec.Values[f.Name] = v
	}

	rec.Warnings = env.errs
	for _, w := range env.errs {
		d.logger.Warn("derivation recovered",
			zap.String("field", w.Field),
			zap.Int64("record", int64(w.Record)),
			zap.String("cause", w.Cause),
			zap.String("fallback", w.Fallback.String()),
		)
	}
}

// coerce fits an expression result to the declared result type. Currency is
// held at two decimals.
func coerce(env *evalEnv, typ FieldType, v Value) Value {
	if v.IsBlank() {
		return v
	}
	switch typ {
	case TypeText:
		if v.Kind != KindText {
			return Text(v.String())
		}
		return v
	case TypeDate:
		if v.Kind != KindDate {
			return env.fail(fmt.Sprintf("expected a date, got %s", v.Kind), Blank())
		}
		return v
	}
	if !v.IsNumber() {
		return env.fail(fmt.Sprintf("expected a number, got %s", v.Kind), Blank())
	}
	if typ == TypeCurrency {
		return Number(v.Num.Round(2))
	}
	return v
}
