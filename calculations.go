package main

import (
	"errors"
	"fmt"

	"goPropertyTax/taxcalc"
)

// calcKind names a calculation. It doubles as the API path segment and the
// report kind.
type calcKind string

const (
	kindCapitalGains   calcKind = "capital-gains"
	kindGift           calcKind = "gift-tax"
	kindAcquisition    calcKind = "acquisition-tax"
	kindReconstruction calcKind = "reconstruction"
)

var calcKinds = []calcKind{kindCapitalGains, kindGift, kindAcquisition, kindReconstruction}

var (
	errUnknownKind    = errors.New("unknown calculation")
	errInvalidRequest = errors.New("invalid request")
)

// calculation is one tax request: decoded into Input, then Run against an engine.
type calculation interface {
	Kind() calcKind
	// Input returns a pointer for a decoder or flag set to fill.
	Input() any
	// Run returns the engine result and its printable breakdown.
	Run(e *taxcalc.Engine) (any, breakdown, error)
}

// newCalculation returns a calculation whose input carries the form defaults.
func newCalculation(kind calcKind) (calculation, error) {
	switch kind {
	case kindCapitalGains:
		return &capitalGainsCalc{in: defaultCapitalGainsInput()}, nil
	case kindGift:
		return &giftCalc{in: defaultGiftInput()}, nil
	case kindAcquisition:
		return &acquisitionCalc{in: defaultAcquisitionInput()}, nil
	case kindReconstruction:
		return &reconstructionCalc{in: defaultReconstructionInput()}, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownKind, kind)
}

func defaultCapitalGainsInput() taxcalc.CapitalGainsInput {
	return taxcalc.CapitalGainsInput{
		Property:       taxcalc.PropertyGeneral,
		DeductionTable: taxcalc.TableGeneral,
		Surcharge:      taxcalc.SurchargeNone,
	}
}

func defaultGiftInput() taxcalc.GiftInput {
	return taxcalc.GiftInput{Relationship: taxcalc.RelationAdultDescendant}
}

func defaultAcquisitionInput() taxcalc.AcquisitionInput {
	return taxcalc.AcquisitionInput{
		Property:  taxcalc.AcquireNationalHousing,
		Cause:     taxcalc.CausePurchase,
		Houses:    taxcalc.OneHouse,
		Regulated: true,
	}
}

func defaultReconstructionInput() taxcalc.ReconstructionInput {
	return taxcalc.ReconstructionInput{
		SaleDate:        "2025-01-01",
		ApprovalDate:    "2020-01-01",
		AcquisitionDate: "2015-01-01",
		Exempt:          true,
		OriginalTable:   taxcalc.TableGeneral,
		SettlementTable: taxcalc.TableGeneral,
	}
}

// =============================================================================
// Capital gains
// =============================================================================

type capitalGainsCalc struct {
	in taxcalc.CapitalGainsInput
}

func (c *capitalGainsCalc) Kind() calcKind { return kindCapitalGains }
func (c *capitalGainsCalc) Input() any     { return &c.in }

func (c *capitalGainsCalc) Run(e *taxcalc.Engine) (any, breakdown, error) {
	res := e.CapitalGains(c.in)
	in := c.in

	b := breakdown{
		Kind:  kindCapitalGains,
		Title: "Capital Gains Tax",
		Inputs: []breakdownRow{
			{"Property", string(taxcalc.ParsePropertyKind(string(in.Property)))},
			{"Sale price", FormatWon(in.SalePrice)},
			{"Acquisition price", FormatWon(in.AcquisitionPrice)},
			{"Holding period", formatYears(in.HoldingYears)},
			{"Residence period", formatYears(in.ResidenceYears)},
			{"Deduction table", string(taxcalc.ParseDeductionTable(string(in.DeductionTable)))},
			{"Surcharge", string(taxcalc.ParseSurcharge(string(in.Surcharge)))},
			{"One-house exemption", yesNo(in.Exempt)},
			{"Joint ownership", yesNo(in.Joint)},
		},
		Steps: []breakdownRow{
			{"Total gain", FormatWon(res.TotalGain)},
			{"Exempt gain", FormatWon(res.ExemptGain)},
			{"Taxable gain", FormatWon(res.TaxableGain)},
			{"Holding deduction (" + FormatRate(res.DeductionRate) + ")", FormatWon(res.HoldingDeduction)},
			{"Gain income", FormatWon(res.GainIncome)},
			{"Basic deduction", FormatWon(res.BasicDeduction)},
			{"Tax base", FormatWon(res.TaxBase)},
			{"Rate (" + res.RateLabel + ")", FormatRate(res.AppliedRate)},
			{"Progressive deduction", FormatWon(res.ProgressiveDeduction)},
			{"Bracket tax", FormatWon(res.BracketTax)},
			{"Surcharge tax", FormatWon(res.SurchargeTax)},
			{"Computed tax", FormatWon(res.ComputedTax)},
			{"Local income tax", FormatWon(res.LocalSurtax)},
			{"Tax incl. local tax", FormatWon(res.TaxWithSurtax)},
		},
		Total: breakdownRow{finalTaxLabel(res.Joint), FormatWon(res.FinalTax)},
	}
	return res, b, nil
}

// =============================================================================
// Gift
// =============================================================================

type giftCalc struct {
	in taxcalc.GiftInput
}

func (c *giftCalc) Kind() calcKind { return kindGift }
func (c *giftCalc) Input() any     { return &c.in }

func (c *giftCalc) Run(e *taxcalc.Engine) (any, breakdown, error) {
	res := e.Gift(c.in)
	in := c.in

	b := breakdown{
		Kind:  kindGift,
		Title: "Gift Tax",
		Inputs: []breakdownRow{
			{"Relationship", string(taxcalc.ParseRelationship(string(in.Relationship)))},
			{"Gift value", FormatWon(in.GiftValue)},
			{"Prior gifts (10 years)", FormatWon(in.PriorGifts)},
			{"Exempt amount", FormatWon(in.ExemptAmount)},
			{"Excluded amount", FormatWon(in.ExcludedAmount)},
			{"Assumed debt", FormatWon(in.AssumedDebt)},
		},
		Steps: []breakdownRow{
			{"Taxable value", FormatWon(res.TaxableValue)},
			{"Relationship deduction", FormatWon(res.RelationshipDeduction)},
			{"Tax base", FormatWon(res.TaxBase)},
			{"Rate", FormatRate(res.AppliedRate)},
			{"Progressive deduction", FormatWon(res.ProgressiveDeduction)},
			{"Computed tax", FormatWon(res.ComputedTax)},
			{"Prior tax credit", FormatWon(res.PriorTaxCredit)},
			{"Filing credit", FormatWon(res.FilingCredit)},
		},
		Total: breakdownRow{"Payable tax", FormatWon(res.PayableTax)},
	}
	return res, b, nil
}

// =============================================================================
// Acquisition
// =============================================================================

type acquisitionCalc struct {
	in taxcalc.AcquisitionInput
}

func (c *acquisitionCalc) Kind() calcKind { return kindAcquisition }
func (c *acquisitionCalc) Input() any     { return &c.in }

func (c *acquisitionCalc) Run(e *taxcalc.Engine) (any, breakdown, error) {
	res := e.Acquisition(c.in)
	in := c.in

	b := breakdown{
		Kind:  kindAcquisition,
		Title: "Acquisition Tax",
		Inputs: []breakdownRow{
			{"Property", string(taxcalc.ParseAcquisitionProperty(string(in.Property)))},
			{"Cause", string(taxcalc.ParseAcquisitionCause(string(in.Cause)))},
			{"Houses held", formatHouses(in.Houses)},
			{"Regulated area", yesNo(in.Regulated)},
			{"Price", FormatWon(in.Price)},
			{"Assessed at 300M or more", yesNo(in.AssessedOver300M)},
			{"Sole-house inheritance", yesNo(in.SoleHouseInheritance)},
		},
		Steps: []breakdownRow{
			{"Rule", res.Rule},
			{"Acquisition tax (" + FormatRate(res.AcquisitionRate) + ")", FormatWon(res.AcquisitionTax)},
			{"Agriculture tax (" + FormatRate(res.AgricultureRate) + ")", FormatWon(res.AgricultureTax)},
			{"Education tax (" + FormatRate(res.EducationRate) + ")", FormatWon(res.EducationTax)},
			{"Combined rate", FormatRate(res.CombinedRate)},
		},
		Total: breakdownRow{"Total tax", FormatWon(res.TotalTax)},
	}
	return res, b, nil
}

// =============================================================================
// Reconstruction
// =============================================================================

type reconstructionCalc struct {
	in taxcalc.ReconstructionInput
}

func (c *reconstructionCalc) Kind() calcKind { return kindReconstruction }
func (c *reconstructionCalc) Input() any     { return &c.in }

func (c *reconstructionCalc) Run(e *taxcalc.Engine) (any, breakdown, error) {
	res, err := e.Reconstruction(c.in)
	if err != nil {
		return nil, breakdown{}, err
	}
	in := c.in

	b := breakdown{
		Kind:  kindReconstruction,
		Title: "Reconstruction Capital Gains Tax",
		Inputs: []breakdownRow{
			{"Sale price", FormatWon(in.SalePrice)},
			{"New build expenses", FormatWon(in.NewBuildExpenses)},
			{"Rights value", FormatWon(in.RightsValue)},
			{"Settlement payment", FormatWon(in.SettlementPayment)},
			{"Original acquisition price", FormatWon(in.OriginalAcquisitionPrice)},
			{"Original expenses", FormatWon(in.OriginalExpenses)},
			{"Sale date", in.SaleDate},
			{"Plan approval date", in.ApprovalDate},
			{"Original acquisition date", in.AcquisitionDate},
			{"One-house exemption", yesNo(in.Exempt)},
			{"Joint ownership", yesNo(in.Joint)},
		},
		Steps: []breakdownRow{
			{"Original share held", formatYears(res.OriginalHoldingYears)},
			{"Settlement share held", formatYears(res.SettlementHoldingYears)},
			{"Total gain", FormatWon(res.TotalGain)},
			{"Pre-approval gain", FormatWon(res.PreApprovalGain)},
			{"Post-approval gain", FormatWon(res.PostApprovalGain)},
			{"Original share gain", FormatWon(res.OriginalGain)},
			{"Settlement share gain", FormatWon(res.SettlementGain)},
			{"Exempt gain", FormatWon(res.ExemptGain)},
			{"Taxable gain", FormatWon(res.TaxableGain)},
			{"Original deduction (" + FormatRate(res.OriginalDeductionRate) + ")", FormatWon(res.OriginalDeduction)},
			{"Settlement deduction (" + FormatRate(res.SettlementDeductionRate) + ")", FormatWon(res.SettlementDeduction)},
			{"Gain income", FormatWon(res.GainIncome)},
			{"Basic deduction", FormatWon(res.BasicDeduction)},
			{"Tax base", FormatWon(res.TaxBase)},
			{"Rate", FormatRate(res.AppliedRate)},
			{"Progressive deduction", FormatWon(res.ProgressiveDeduction)},
			{"Computed tax", FormatWon(res.ComputedTax)},
			{"Local income tax", FormatWon(res.LocalSurtax)},
		},
		Total: breakdownRow{finalTaxLabel(res.Joint), FormatWon(res.FinalTax)},
	}
	return res, b, nil
}

func finalTaxLabel(joint bool) string {
	if joint {
		return "Final tax (both owners)"
	}
	return "Final tax"
}
