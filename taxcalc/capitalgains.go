package taxcalc

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RateBasis says which rate schedule produced the bracket tax.
type RateBasis string

const (
	BasisBasic           RateBasis = "basic"
	BasisNonBusinessLand RateBasis = "non-business-land"
	BasisShortTerm       RateBasis = "short-term"
)

// CapitalGainsInput describes an ordinary sale. Prices are in won.
type CapitalGainsInput struct {
	Property         PropertyKind   `json:"property"`
	Exempt           bool           `json:"exempt"`
	HoldingYears     int            `json:"holding_years"`
	ResidenceYears   int            `json:"residence_years"`
	DeductionTable   DeductionTable `json:"deduction_table"`
	Joint            bool           `json:"joint"`
	Surcharge        Surcharge      `json:"surcharge"`
	SalePrice        int64          `json:"sale_price"`
	AcquisitionPrice int64          `json:"acquisition_price"`
}

// CapitalGainsResult records every intermediate of the calculation. For joint
// ownership the gain figures are one owner's half and FinalTax is the
// household total.
type CapitalGainsResult struct {
	TotalGain            int64           `json:"total_gain"`
	ExemptGain           int64           `json:"exempt_gain"`
	TaxableGain          int64           `json:"taxable_gain"`
	DeductionRate        decimal.Decimal `json:"deduction_rate"`
	HoldingDeduction     int64           `json:"holding_deduction"`
	GainIncome           int64           `json:"gain_income"`
	BasicDeduction       int64           `json:"basic_deduction"`
	TaxBase              int64           `json:"tax_base"`
	RateBasis            RateBasis       `json:"rate_basis"`
	RateLabel            string          `json:"rate_label"`
	AppliedRate          decimal.Decimal `json:"applied_rate"`
	ProgressiveDeduction int64           `json:"progressive_deduction"`
	BracketTax           int64           `json:"bracket_tax"`
	SurchargeTax         int64           `json:"surcharge_tax"`
	ComputedTax          int64           `json:"computed_tax"`
	LocalSurtax          int64           `json:"local_surtax"`
	TaxWithSurtax        int64           `json:"tax_with_surtax"`
	FinalTax             int64           `json:"final_tax"`
	Joint                bool            `json:"joint"`
}

// CapitalGains computes 양도소득세 for an ordinary sale.
//
// Inputs are not sanity checked: a sale below the acquisition price flows
// through as a negative gain and yields zero tax.
func (e *Engine) CapitalGains(in CapitalGainsInput) CapitalGainsResult {
	cg := &e.tables.CapitalGains
	in = in.normalized()

	totalGain := jointShare(decimal.NewFromInt(in.SalePrice-in.AcquisitionPrice), in.Joint)
	exempt := e.exemptGain(totalGain, in.SalePrice, in.Exempt)
	taxableGain := totalGain.Sub(exempt)

	// The holding deduction and the surcharge never apply together.
	rate := decimal.Zero
	var holdingDeduction int64
	if in.Surcharge == SurchargeNone {
		rate = cg.HoldingDeduction.HoldingDeductionRate(in.DeductionTable, in.HoldingYears, in.ResidenceYears)
		holdingDeduction = truncate(taxableGain.Mul(rate))
	}

	income := taxableGain.Sub(decimal.NewFromInt(holdingDeduction))
	tail := e.taxBase(income)

	res := CapitalGainsResult{
		TotalGain:        truncate(totalGain),
		ExemptGain:       truncate(exempt),
		TaxableGain:      truncate(taxableGain),
		DeductionRate:    rate,
		HoldingDeduction: holdingDeduction,
		GainIncome:       tail.income,
		BasicDeduction:   tail.basicDeduction,
		TaxBase:          tail.base,
		Joint:            in.Joint,
	}

	e.applyCapitalGainsRate(&res, in.Property)

	res.ComputedTax = res.BracketTax
	if surcharge, ok := cg.SurchargeRates[in.Surcharge]; ok {
		res.SurchargeTax = truncate(decimal.NewFromInt(res.TaxBase).Mul(surcharge))
		res.ComputedTax += res.SurchargeTax
	}

	res.LocalSurtax = e.localSurtax(res.ComputedTax)
	res.TaxWithSurtax = res.ComputedTax + res.LocalSurtax
	res.FinalTax = res.TaxWithSurtax
	if in.Joint {
		res.FinalTax *= 2
	}
	return res
}

// normalized maps Korean labels and empty fields onto the canonical values.
func (in CapitalGainsInput) normalized() CapitalGainsInput {
	in.Property = ParsePropertyKind(string(in.Property))
	in.DeductionTable = ParseDeductionTable(string(in.DeductionTable))
	in.Surcharge = ParseSurcharge(string(in.Surcharge))
	return in
}

// applyCapitalGainsRate picks the rate schedule. A short-term label wins over
// the non-business land table; everything else uses the basic table.
func (e *Engine) applyCapitalGainsRate(res *CapitalGainsResult, property PropertyKind) {
	cg := &e.tables.CapitalGains
	base := decimal.NewFromInt(res.TaxBase)

	if flat, ok := cg.ShortTermRates[property]; ok {
		res.RateBasis = BasisShortTerm
		res.RateLabel = fmt.Sprintf("%s%% (short-term rate)", flat.Shift(2).String())
		res.AppliedRate = flat
		res.BracketTax = truncate(base.Mul(flat))
		return
	}

	table := cg.BasicBrackets
	res.RateBasis = BasisBasic
	res.RateLabel = "basic rate"
	if property == PropertyNonBusinessLand {
		table = cg.NonBusinessLandBrackets
		res.RateBasis = BasisNonBusinessLand
		res.RateLabel = "basic rate + 10%"
	}

	br := ApplyBrackets(base, table)
	res.AppliedRate = br.Rate
	res.ProgressiveDeduction = br.Deduction
	res.BracketTax = br.Tax
}
