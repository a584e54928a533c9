// Package currency converts monetary amounts between a small static set of
// currencies through a common reference unit. Rates are data, not code:
// adding a currency is a config or seed-table change.
package currency

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedCurrency is returned when a currency code is not in the table.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// UnsupportedError wraps ErrUnsupportedCurrency with the offending code.
func UnsupportedError(code string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, code)
}

// displayScale is the number of fractional digits of the final result.
// Intermediate math runs at full decimal precision.
const displayScale = 2

// Table maps currency codes to their rate against the reference currency
// (1 unit of the currency = rate units of reference). Immutable after load.
type Table struct {
	reference string
	rates     map[string]decimal.Decimal
}

// NewTable builds a conversion table. The reference currency must be present
// in rates with rate 1; every rate must be positive.
func NewTable(reference string, rates map[string]decimal.Decimal) (*Table, error) {
	if len(rates) == 0 {
		return nil, fmt.Errorf("currency: empty rate table")
	}
	ref, ok := rates[reference]
	if !ok {
		return nil, fmt.Errorf("currency: reference %q missing from rate table", reference)
	}
	if !ref.Equal(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("currency: reference %q must have rate 1, got %s", reference, ref)
	}
	for code, rate := range rates {
		if rate.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("currency: non-positive rate %s for %q", rate, code)
		}
	}
	copied := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		copied[code] = rate
	}
	return &Table{reference: reference, rates: copied}, nil
}

// Reference returns the reference currency code.
func (t *Table) Reference() string {
	return t.reference
}

// Supports reports whether code is in the table.
func (t *Table) Supports(code string) bool {
	_, ok := t.rates[code]
	return ok
}

// Codes returns the supported currency codes, sorted.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.rates))
	for code := range t.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Convert converts amount from one currency to another via the reference
// currency, rounding the final result to 2 decimal places (half-up). Same
// from/to is an identity: the amount is returned untouched, no rounding.
func (t *Table) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		if !t.Supports(from) {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, from)
		}
		return amount, nil
	}
	fromRate, ok := t.rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, from)
	}
	toRate, ok := t.rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, to)
	}
	converted := amount.Mul(fromRate).Div(toRate)
	return converted.Round(displayScale), nil
}

// rateFile is the on-disk YAML shape of a rate table.
type rateFile struct {
	Reference string            `yaml:"reference"`
	Rates     map[string]string `yaml:"rates"`
}

// LoadFile reads a rate table from a YAML file:
//
//	reference: USD
//	rates:
//	  USD: "1"
//	  NIO: "0.027322"
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("currency: reading rate file: %w", err)
	}
	var file rateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("currency: parsing rate file: %w", err)
	}
	rates := make(map[string]decimal.Decimal, len(file.Rates))
	for code, raw := range file.Rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("currency: rate for %q: %w", code, err)
		}
		rates[code] = rate
	}
	return NewTable(file.Reference, rates)
}
