package server

import (
	"fmt"
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"shippingbox/internal/color"
)

var inr = message.NewPrinter(language.MustParse("en-IN"))

// formatCost renders an amount as Indian rupees with two decimals.
func formatCost(amount float64) string {
	return "₹" + inr.Sprintf("%.2f", amount)
}

func formatWeight(kg float64) string {
	return fmt.Sprintf("%.2f", kg)
}

var templateFuncs = template.FuncMap{
	"weight": formatWeight,
	"cost":   formatCost,
	// html/template filters parentheses out of plain strings in CSS context.
	"swatch": func(rgb string) template.CSS { return template.CSS(color.Swatch(rgb)) },
}
