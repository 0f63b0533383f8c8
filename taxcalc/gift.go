package taxcalc

import (
	"github.com/shopspring/decimal"
)

// GiftInput describes a gift. All amounts are in won.
type GiftInput struct {
	Relationship   Relationship `json:"relationship"`
	GiftValue      int64        `json:"gift_value"`
	PriorGifts     int64        `json:"prior_gifts"`      // same donor, within the 10-year lookback
	ExemptAmount   int64        `json:"exempt_amount"`    // 비과세
	ExcludedAmount int64        `json:"excluded_amount"`  // 과세가액 불산입
	AssumedDebt    int64        `json:"assumed_debt"`     // 채무
	PriorTaxCredit int64        `json:"prior_tax_credit"` // 납부세액공제
}

// GiftResult records every intermediate of a gift tax calculation.
type GiftResult struct {
	TaxableValue          int64           `json:"taxable_value"`
	RelationshipDeduction int64           `json:"relationship_deduction"`
	TaxBase               int64           `json:"tax_base"`
	AppliedRate           decimal.Decimal `json:"applied_rate"`
	ProgressiveDeduction  int64           `json:"progressive_deduction"`
	ComputedTax           int64           `json:"computed_tax"`
	PriorTaxCredit        int64           `json:"prior_tax_credit"`
	FilingCredit          int64           `json:"filing_credit"`
	PayableTax            int64           `json:"payable_tax"`
}

// Gift computes 증여세.
func (e *Engine) Gift(in GiftInput) GiftResult {
	g := &e.tables.Gift

	value := in.GiftValue + in.PriorGifts - in.ExemptAmount - in.ExcludedAmount - in.AssumedDebt
	deduction := g.RelationshipDeductions[ParseRelationship(string(in.Relationship))]
	base := max(0, value-deduction)

	br := ApplyBracketsInt(base, g.Brackets)
	filing := truncate(decimal.NewFromInt(br.Tax).Mul(g.FilingCreditRate))

	return GiftResult{
		TaxableValue:          value,
		RelationshipDeduction: deduction,
		TaxBase:               base,
		AppliedRate:           br.Rate,
		ProgressiveDeduction:  br.Deduction,
		ComputedTax:           br.Tax,
		PriorTaxCredit:        in.PriorTaxCredit,
		FilingCredit:          filing,
		PayableTax:            max(0, br.Tax-in.PriorTaxCredit-filing),
	}
}
