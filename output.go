package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"goPropertyTax/taxcalc"
)

// breakdownRow is one labelled line of a calculation breakdown
type breakdownRow struct {
	Label string
	Value string
}

// breakdown is the printable form of a calculation, shared by the console and PDF output
type breakdown struct {
	Kind   calcKind
	Title  string
	Inputs []breakdownRow
	Steps  []breakdownRow
	Total  breakdownRow
}

var wonPrinter = message.NewPrinter(language.Korean)

// FormatWon formats whole won with thousands separators, e.g. "1,234,567 KRW"
func FormatWon(amount int64) string {
	return wonPrinter.Sprintf("%d KRW", amount)
}

// FormatRate formats a fraction as a percentage with at most four decimals
func FormatRate(rate decimal.Decimal) string {
	return rate.Shift(2).Round(4).String() + "%"
}

func formatYears(n int) string {
	if n == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", n)
}

func formatHouses(h taxcalc.HousingCount) string {
	if h < taxcalc.OneHouse || h >= taxcalc.FourPlusHouses {
		return "4 or more"
	}
	return fmt.Sprintf("%d", h)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

const consoleWidth = 64

// PrintBreakdown writes a calculation breakdown as an aligned console table
func PrintBreakdown(w io.Writer, b breakdown) {
	rule := strings.Repeat("═", consoleWidth)
	fmt.Fprintf(w, "╔%s╗\n", rule)
	fmt.Fprintf(w, "║ %-*s ║\n", consoleWidth-2, strings.ToUpper(b.Title))
	fmt.Fprintf(w, "╚%s╝\n", rule)
	fmt.Fprintln(w)

	printRows(w, "Inputs", b.Inputs)
	printRows(w, "Calculation", b.Steps)

	fmt.Fprintln(w, strings.Repeat("─", consoleWidth+2))
	fmt.Fprintf(w, "  %-38s %24s\n", b.Total.Label, b.Total.Value)
}

func printRows(w io.Writer, heading string, rows []breakdownRow) {
	fmt.Fprintf(w, "%s:\n", heading)
	fmt.Fprintln(w, strings.Repeat("─", len(heading)+1))
	for _, row := range rows {
		fmt.Fprintf(w, "  %-38s %24s\n", row.Label, row.Value)
	}
	fmt.Fprintln(w)
}
