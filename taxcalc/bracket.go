package taxcalc

import (
	"github.com/shopspring/decimal"
)

// BracketResult is the outcome of applying a progressive table to an amount.
type BracketResult struct {
	Tax       int64           `json:"tax"`
	Rate      decimal.Decimal `json:"rate"`
	Deduction int64           `json:"deduction"`
}

// ApplyBrackets calculates the tax owed on a taxable amount using the
// 누진공제 (quick deduction) form: amount × rate − deduction of the first
// bracket whose upper bound is at or above the amount.
//
// A non-positive amount owes nothing but still reports the lowest rate so the
// caller can display it. Amounts past a bounded table use the last bracket.
func ApplyBrackets(amount decimal.Decimal, table []Bracket) BracketResult {
	if len(table) == 0 {
		return BracketResult{Rate: decimal.Zero}
	}
	if !amount.IsPositive() {
		return BracketResult{Rate: table[0].Rate}
	}

	for _, b := range table {
		if amount.LessThanOrEqual(decimal.NewFromInt(b.Upper)) {
			return bracketTax(amount, b)
		}
	}
	return bracketTax(amount, table[len(table)-1])
}

// ApplyBracketsInt is ApplyBrackets for whole-won amounts.
func ApplyBracketsInt(amount int64, table []Bracket) BracketResult {
	return ApplyBrackets(decimal.NewFromInt(amount), table)
}

func bracketTax(amount decimal.Decimal, b Bracket) BracketResult {
	tax := amount.Mul(b.Rate).Sub(decimal.NewFromInt(b.Deduction)).IntPart()
	return BracketResult{Tax: tax, Rate: b.Rate, Deduction: b.Deduction}
}
