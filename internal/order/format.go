package order

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const maxFractionDigits = 3

// Formatter renders an amount the way the buyer reads prices
type Formatter interface {
	Format(amount decimal.Decimal) string
}

// PriceFormatter formats amounts with the grouping and decimal separators
// of a locale and at most three fraction digits, the browser default for
// plain number formatting.
type PriceFormatter struct {
	printer *message.Printer
}

func NewPriceFormatter(locale string) (*PriceFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return &PriceFormatter{printer: message.NewPrinter(tag)}, nil
}

func (f *PriceFormatter) Format(amount decimal.Decimal) string {
	// round first so the float handed to the printer carries no noise
	v := amount.Round(maxFractionDigits).InexactFloat64()
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(maxFractionDigits)))
}
