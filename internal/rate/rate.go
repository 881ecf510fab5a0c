package rate

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the unit every rate in the table is expressed in.
const Currency = "INR"

var (
	// ErrUnknownCountry is returned when a destination has no rate.
	ErrUnknownCountry = errors.New("unknown destination country")
	// ErrOutOfRange is returned when a cost does not fit in a float64.
	ErrOutOfRange = errors.New("shipping cost out of range")
)

// Rate is the cost of shipping one kilogram to a country.
type Rate struct {
	Country string  `json:"country"`
	PerKg   float64 `json:"rate"`
}

// table is kept in display order; the destination select lists it as-is.
var table = []Rate{
	{Country: "Sweden", PerKg: 7.35},
	{Country: "China", PerKg: 11.53},
	{Country: "Brazil", PerKg: 15.63},
	{Country: "Australia", PerKg: 50.09},
}

// Rates returns a copy of the rate table in display order.
func Rates() []Rate {
	out := make([]Rate, len(table))
	copy(out, table)
	return out
}

// Countries returns the supported destination names in display order.
func Countries() []string {
	out := make([]string, 0, len(table))
	for _, r := range table {
		out = append(out, r.Country)
	}
	return out
}

// Lookup returns the per-kilogram rate for a country. Matching is exact.
func Lookup(country string) (float64, bool) {
	for _, r := range table {
		if r.Country == country {
			return r.PerKg, true
		}
	}
	return 0, false
}

// Fits reports whether weightKg shipped to country has a finite cost.
// Unknown countries report false.
func Fits(country string, weightKg float64) bool {
	_, err := NewTable().Estimate(country, weightKg)
	return err == nil
}

// Estimator defines the interface for shipping cost engines.
type Estimator interface {
	Estimate(country string, weightKg float64) (float64, error)
}

// Table multiplies with decimal arithmetic so that 10 kg to China is exactly 115.3.
type Table struct{}

func NewTable() *Table { return &Table{} }

func (t *Table) Estimate(country string, weightKg float64) (float64, error) {
	perKg, ok := Lookup(country)
	if !ok {
		return 0, fmt.Errorf("estimate %q: %w", country, ErrUnknownCountry)
	}
	cost, _ := decimal.NewFromFloat(weightKg).Mul(decimal.NewFromFloat(perKg)).Float64()
	return checkFinite(country, weightKg, cost)
}

// Float is the plain float64 product, matching what a browser would compute.
type Float struct{}

func NewFloat() *Float { return &Float{} }

func (f *Float) Estimate(country string, weightKg float64) (float64, error) {
	perKg, ok := Lookup(country)
	if !ok {
		return 0, fmt.Errorf("estimate %q: %w", country, ErrUnknownCountry)
	}
	return checkFinite(country, weightKg, weightKg*perKg)
}

func checkFinite(country string, weightKg, cost float64) (float64, error) {
	if math.IsInf(cost, 0) || math.IsNaN(cost) {
		return 0, fmt.Errorf("estimate %q x %g: %w", country, weightKg, ErrOutOfRange)
	}
	return cost, nil
}

// NewByName returns an Estimator by provider name.
// Unknown names fall back to Table.
func NewByName(name string) Estimator {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "float":
		return NewFloat()
	default:
		return NewTable()
	}
}
