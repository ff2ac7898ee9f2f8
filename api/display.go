package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/tally/engine"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// =============================================================================
// DISPLAY - Locale formatting for the render feed
// =============================================================================

var hundred = decimal.NewFromInt(100)

// Formatter renders numeric cells for people: grouped digits, currency
// symbol, percent sign. The canonical cell text is returned alongside it,
// so clients never parse display strings.
type Formatter struct {
	p      *message.Printer
	symbol string
}

// NewFormatter builds a formatter for tag, e.g. language.MustParse("en-IN").
func NewFormatter(tag language.Tag, currencySymbol string) *Formatter {
	return &Formatter{p: message.NewPrinter(tag), symbol: currencySymbol}
}

func (f *Formatter) Currency(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + f.symbol + f.p.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(2)))
}

func (f *Formatter) Number(d decimal.Decimal) string {
	return f.p.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(4)))
}

// Percent renders a stored fraction, 0.18 -> 18%.
func (f *Formatter) Percent(d decimal.Decimal) string {
	return f.p.Sprint(number.Decimal(d.Mul(hundred).InexactFloat64(), number.MaxFractionDigits(2))) + "%"
}

// Value formats v as typ. Non-numeric values use their cell text.
func (f *Formatter) Value(typ engine.FieldType, v engine.Value) string {
	if !v.IsNumber() {
		return v.String()
	}
	switch typ {
	case engine.TypeCurrency:
		return f.Currency(v.Num)
	case engine.TypePercent:
		return f.Percent(v.Num)
	default:
		return f.Number(v.Num)
	}
}
