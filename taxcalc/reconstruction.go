package taxcalc

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ReconstructionInput describes the sale of a new build received by an
// original member of a reconstruction project who paid a settlement (청산금).
// Amounts are in won; dates are YYYY-MM-DD.
type ReconstructionInput struct {
	SalePrice                int64          `json:"sale_price"`                 // 신축 양도가액
	NewBuildExpenses         int64          `json:"new_build_expenses"`         // 신축 필요경비
	RightsValue              int64          `json:"rights_value"`               // 권리가액
	SettlementPayment        int64          `json:"settlement_payment"`         // 청산금 납부액
	OriginalAcquisitionPrice int64          `json:"original_acquisition_price"` // 종전 취득가액
	OriginalExpenses         int64          `json:"original_expenses"`          // 종전 필요경비
	SaleDate                 string         `json:"sale_date"`
	ApprovalDate             string         `json:"approval_date"` // 관리처분계획 인가일
	AcquisitionDate          string         `json:"acquisition_date"`
	Exempt                   bool           `json:"exempt"`
	OriginalTable            DeductionTable `json:"original_table"`
	OriginalResidenceYears   int            `json:"original_residence_years"`
	SettlementTable          DeductionTable `json:"settlement_table"`
	SettlementResidenceYears int            `json:"settlement_residence_years"`
	Joint                    bool           `json:"joint"`
}

// ReconstructionResult records every intermediate, split between the original
// share (종전분) and the settlement payment (청산금분).
type ReconstructionResult struct {
	OriginalHoldingYears    int             `json:"original_holding_years"`
	SettlementHoldingYears  int             `json:"settlement_holding_years"`
	OriginalDeductionRate   decimal.Decimal `json:"original_deduction_rate"`
	SettlementDeductionRate decimal.Decimal `json:"settlement_deduction_rate"`

	TotalGain        int64 `json:"total_gain"`
	PreApprovalGain  int64 `json:"pre_approval_gain"`
	PostApprovalGain int64 `json:"post_approval_gain"`
	OriginalGain     int64 `json:"original_gain"`
	SettlementGain   int64 `json:"settlement_gain"`
	CombinedGain     int64 `json:"combined_gain"`
	ExemptGain       int64 `json:"exempt_gain"`
	TaxableGain      int64 `json:"taxable_gain"`

	OriginalTaxableGain   int64 `json:"original_taxable_gain"`
	SettlementTaxableGain int64 `json:"settlement_taxable_gain"`
	OriginalDeduction     int64 `json:"original_deduction"`
	SettlementDeduction   int64 `json:"settlement_deduction"`
	TotalDeduction        int64 `json:"total_deduction"`

	GainIncome           int64           `json:"gain_income"`
	BasicDeduction       int64           `json:"basic_deduction"`
	TaxBase              int64           `json:"tax_base"`
	AppliedRate          decimal.Decimal `json:"applied_rate"`
	ProgressiveDeduction int64           `json:"progressive_deduction"`
	ComputedTax          int64           `json:"computed_tax"`
	LocalSurtax          int64           `json:"local_surtax"`
	TaxWithSurtax        int64           `json:"tax_with_surtax"`
	FinalTax             int64           `json:"final_tax"`
	Joint                bool            `json:"joint"`
}

// Reconstruction computes capital gains tax on a reconstruction new build.
//
// The gain after management plan approval is split between the original
// share and the settlement payment in proportion to rights value and
// settlement. The taxable gain left after the exemption is split again by
// each part's share of the gain, so each part gets its own holding deduction.
// Only malformed dates are reported as errors.
func (e *Engine) Reconstruction(in ReconstructionInput) (ReconstructionResult, error) {
	cg := &e.tables.CapitalGains

	sale, err := ParseDate(in.SaleDate)
	if err != nil {
		return ReconstructionResult{}, fmt.Errorf("sale date: %w", err)
	}
	approval, err := ParseDate(in.ApprovalDate)
	if err != nil {
		return ReconstructionResult{}, fmt.Errorf("approval date: %w", err)
	}
	acquired, err := ParseDate(in.AcquisitionDate)
	if err != nil {
		return ReconstructionResult{}, fmt.Errorf("acquisition date: %w", err)
	}

	res := ReconstructionResult{
		OriginalHoldingYears:   HoldingYears(acquired, sale),
		SettlementHoldingYears: HoldingYears(approval, sale),
		Joint:                  in.Joint,
	}
	hd := &cg.HoldingDeduction
	res.OriginalDeductionRate = hd.ReconstructionDeductionRate(
		ParseDeductionTable(string(in.OriginalTable)), res.OriginalHoldingYears, in.OriginalResidenceYears)
	res.SettlementDeductionRate = hd.ReconstructionDeductionRate(
		ParseDeductionTable(string(in.SettlementTable)), res.SettlementHoldingYears, in.SettlementResidenceYears)

	totalGain := in.SalePrice - in.NewBuildExpenses - in.SettlementPayment - in.OriginalAcquisitionPrice - in.OriginalExpenses
	preGain := in.RightsValue - in.OriginalAcquisitionPrice - in.OriginalExpenses
	postGain := in.SalePrice - (in.RightsValue + in.SettlementPayment) - in.NewBuildExpenses
	res.TotalGain, res.PreApprovalGain, res.PostApprovalGain = totalGain, preGain, postGain

	original, settlement := apportionPostApproval(totalGain, preGain, postGain, in.RightsValue, in.SettlementPayment)
	original = jointShare(original, in.Joint)
	settlement = jointShare(settlement, in.Joint)
	combined := original.Add(settlement)

	exempt := e.exemptGain(combined, in.SalePrice, in.Exempt)
	taxable := combined.Sub(exempt)

	originalTaxable, settlementTaxable := decimal.Zero, decimal.Zero
	if !combined.IsZero() {
		originalTaxable = taxable.Mul(original).Div(combined)
		settlementTaxable = taxable.Mul(settlement).Div(combined)
	}

	res.OriginalGain = truncate(original)
	res.SettlementGain = truncate(settlement)
	res.CombinedGain = truncate(combined)
	res.ExemptGain = truncate(exempt)
	res.TaxableGain = truncate(taxable)
	res.OriginalTaxableGain = truncate(originalTaxable)
	res.SettlementTaxableGain = truncate(settlementTaxable)
	res.OriginalDeduction = truncate(originalTaxable.Mul(res.OriginalDeductionRate))
	res.SettlementDeduction = truncate(settlementTaxable.Mul(res.SettlementDeductionRate))
	res.TotalDeduction = res.OriginalDeduction + res.SettlementDeduction

	tail := e.taxBase(taxable.Sub(decimal.NewFromInt(res.TotalDeduction)))
	res.GainIncome = tail.income
	res.BasicDeduction = tail.basicDeduction
	res.TaxBase = tail.base

	br := ApplyBracketsInt(res.TaxBase, cg.BasicBrackets)
	res.AppliedRate = br.Rate
	res.ProgressiveDeduction = br.Deduction
	res.ComputedTax = br.Tax
	res.LocalSurtax = e.localSurtax(res.ComputedTax)
	res.TaxWithSurtax = res.ComputedTax + res.LocalSurtax
	res.FinalTax = res.TaxWithSurtax
	if in.Joint {
		res.FinalTax *= 2
	}
	return res, nil
}

// apportionPostApproval splits the gain between the original share and the
// settlement payment. When rights value plus settlement is not positive there
// is nothing to weight by, and the whole gain goes to the original share.
func apportionPostApproval(totalGain, preGain, postGain, rights, settlement int64) (original, settled decimal.Decimal) {
	sum := rights + settlement
	if sum <= 0 {
		return decimal.NewFromInt(totalGain), decimal.Zero
	}
	post := decimal.NewFromInt(postGain)
	total := decimal.NewFromInt(sum)
	original = decimal.NewFromInt(preGain).Add(post.Mul(decimal.NewFromInt(rights)).Div(total))
	settled = post.Mul(decimal.NewFromInt(settlement)).Div(total)
	return original, settled
}
