package money

import (
	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
)

// Formatter renders decimal amounts for display. It never rounds the
// amounts used in arithmetic; only the rendered string is rounded.
type Formatter struct {
	ac *accounting.Accounting
}

type Config struct {
	Symbol    string
	Precision int
	Thousand  string
	Decimal   string
}

func NewFormatter(cfg Config) *Formatter {
	if cfg.Thousand == "" {
		cfg.Thousand = ","
	}
	if cfg.Decimal == "" {
		cfg.Decimal = "."
	}
	if cfg.Precision < 0 {
		cfg.Precision = 2
	}
	return &Formatter{ac: &accounting.Accounting{
		Symbol:    cfg.Symbol,
		Precision: cfg.Precision,
		Thousand:  cfg.Thousand,
		Decimal:   cfg.Decimal,
	}}
}

func (f *Formatter) Format(amount decimal.Decimal) string {
	return f.ac.FormatMoneyDecimal(amount)
}
