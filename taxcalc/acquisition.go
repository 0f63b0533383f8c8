package taxcalc

import (
	"github.com/shopspring/decimal"
)

// AcquisitionInput describes an acquisition. Price is in won.
type AcquisitionInput struct {
	Property             AcquisitionProperty `json:"property"`
	Cause                AcquisitionCause    `json:"cause"`
	Houses               HousingCount        `json:"houses"`
	Regulated            bool                `json:"regulated"`              // 조정대상지역
	Price                int64               `json:"price"`                  // 취득가액
	AssessedOver300M     bool                `json:"assessed_over_300m"`     // 기준시가 3억 이상
	SoleHouseInheritance bool                `json:"sole_house_inheritance"` // 1가구 1주택 상속
}

// AcquisitionResult reports the resolved rates and the tax for each component.
type AcquisitionResult struct {
	Rule            string          `json:"rule"`
	AcquisitionRate decimal.Decimal `json:"acquisition_rate"`
	AgricultureRate decimal.Decimal `json:"agriculture_rate"`
	EducationRate   decimal.Decimal `json:"education_rate"`
	CombinedRate    decimal.Decimal `json:"combined_rate"`
	AcquisitionTax  int64           `json:"acquisition_tax"`
	AgricultureTax  int64           `json:"agriculture_tax"`
	EducationTax    int64           `json:"education_tax"`
	TotalTax        int64           `json:"total_tax"`
}

// Acquisition computes 취득세 with its agriculture (농어촌특별세) and local
// education (지방교육세) components.
func (e *Engine) Acquisition(in AcquisitionInput) AcquisitionResult {
	rates, rule := ResolveAcquisitionRates(in, &e.tables.Acquisition)
	price := decimal.NewFromInt(in.Price)

	res := AcquisitionResult{
		Rule:            rule,
		AcquisitionRate: rates.Acquisition,
		AgricultureRate: rates.Agriculture,
		EducationRate:   rates.Education,
		CombinedRate:    rates.Combined(),
		AcquisitionTax:  truncate(price.Mul(rates.Acquisition)),
		AgricultureTax:  truncate(price.Mul(rates.Agriculture)),
		EducationTax:    truncate(price.Mul(rates.Education)),
	}
	res.TotalTax = res.AcquisitionTax + res.AgricultureTax + res.EducationTax
	return res
}

// acquisitionRule is one row of the acquisition rate decision table.
type acquisitionRule struct {
	name  string
	match func(in AcquisitionInput) bool
	rates func(t *AcquisitionTable, in AcquisitionInput) RateTriple
}

// acquisitionRules is evaluated top to bottom; the first match wins. The last
// rule matches every housing input, so resolution always succeeds.
var acquisitionRules = []acquisitionRule{
	{
		name:  "general-building-land",
		match: func(in AcquisitionInput) bool { return in.Property == AcquireGeneralBuildingLand },
		rates: func(t *AcquisitionTable, in AcquisitionInput) RateTriple {
			return byCause(t.GeneralBuildingLand, in.Cause)
		},
	},
	{
		name:  "farmland",
		match: func(in AcquisitionInput) bool { return in.Property == AcquireFarmland },
		rates: func(t *AcquisitionTable, in AcquisitionInput) RateTriple {
			return byCause(t.Farmland, in.Cause)
		},
	},
	{
		name:  "housing/new-construction",
		match: housingCause(CauseNewConstruction),
		rates: func(t *AcquisitionTable, _ AcquisitionInput) RateTriple { return t.Housing.NewConstruction },
	},
	{
		name: "housing/inheritance-sole-house",
		match: func(in AcquisitionInput) bool {
			return housingCause(CauseInheritance)(in) && in.SoleHouseInheritance
		},
		rates: func(t *AcquisitionTable, _ AcquisitionInput) RateTriple { return t.Housing.InheritanceSoleHouse },
	},
	{
		name:  "housing/inheritance",
		match: housingCause(CauseInheritance),
		rates: func(t *AcquisitionTable, _ AcquisitionInput) RateTriple { return t.Housing.Inheritance },
	},
	{
		name: "housing/gift-heavy",
		match: func(in AcquisitionInput) bool {
			return housingCause(CauseGift)(in) && in.Regulated && in.AssessedOver300M
		},
		rates: func(t *AcquisitionTable, _ AcquisitionInput) RateTriple { return t.Housing.GiftHeavy },
	},
	{
		name:  "housing/gift",
		match: housingCause(CauseGift),
		rates: func(t *AcquisitionTable, _ AcquisitionInput) RateTriple { return t.Housing.Gift },
	},
	{
		name:  "housing/purchase-1",
		match: housingPurchase(func(in AcquisitionInput) bool { return in.Houses == OneHouse }),
		rates: tieredPurchase,
	},
	{
		name:  "housing/purchase-2-regulated",
		match: housingPurchase(func(in AcquisitionInput) bool { return in.Houses == TwoHouses && in.Regulated }),
		rates: func(t *AcquisitionTable, _ AcquisitionInput) RateTriple { return t.Housing.PurchaseTwoRegulated },
	},
	{
		name:  "housing/purchase-2",
		match: housingPurchase(func(in AcquisitionInput) bool { return in.Houses == TwoHouses }),
		rates: tieredPurchase,
	},
	{
		name:  "housing/purchase-3-regulated",
		match: housingPurchase(func(in AcquisitionInput) bool { return in.Houses == ThreeHouses && in.Regulated }),
		rates: func(t *AcquisitionTable, _ AcquisitionInput) RateTriple { return t.Housing.PurchaseThreeRegulated },
	},
	{
		name:  "housing/purchase-3",
		match: housingPurchase(func(in AcquisitionInput) bool { return in.Houses == ThreeHouses }),
		rates: func(t *AcquisitionTable, _ AcquisitionInput) RateTriple { return t.Housing.PurchaseThree },
	},
	{
		name:  "housing/purchase-4-plus",
		match: func(in AcquisitionInput) bool { return in.Property.IsHousing() },
		rates: func(t *AcquisitionTable, _ AcquisitionInput) RateTriple { return t.Housing.PurchaseFourPlus },
	},
}

// ResolveAcquisitionRates returns the rate triple for an acquisition and the
// name of the rule that produced it. National housing pays no agriculture tax.
func ResolveAcquisitionRates(in AcquisitionInput, t *AcquisitionTable) (RateTriple, string) {
	in = in.normalized()
	for _, rule := range acquisitionRules {
		if !rule.match(in) {
			continue
		}
		rates := rule.rates(t, in)
		if in.Property == AcquireNationalHousing {
			rates.Agriculture = decimal.Zero
		}
		return rates, rule.name
	}
	// Unreachable: the last rule accepts every housing input and the first two
	// cover the rest.
	return t.Housing.PurchaseFourPlus, "housing/purchase-4-plus"
}

func (in AcquisitionInput) normalized() AcquisitionInput {
	in.Property = ParseAcquisitionProperty(string(in.Property))
	in.Cause = ParseAcquisitionCause(string(in.Cause))
	if in.Houses < OneHouse || in.Houses > FourPlusHouses {
		in.Houses = FourPlusHouses
	}
	return in
}

// byCause looks a cause up in a non-housing table, defaulting to the purchase rates.
func byCause(rates map[AcquisitionCause]RateTriple, cause AcquisitionCause) RateTriple {
	if r, ok := rates[cause]; ok {
		return r
	}
	return rates[CausePurchase]
}

func housingCause(cause AcquisitionCause) func(AcquisitionInput) bool {
	return func(in AcquisitionInput) bool {
		return in.Property.IsHousing() && in.Cause == cause
	}
}

// housingPurchase matches housing acquired by any cause other than new
// construction, inheritance or gift.
func housingPurchase(extra func(AcquisitionInput) bool) func(AcquisitionInput) bool {
	return func(in AcquisitionInput) bool {
		if !in.Property.IsHousing() {
			return false
		}
		switch in.Cause {
		case CauseNewConstruction, CauseInheritance, CauseGift:
			return false
		}
		return extra(in)
	}
}

var (
	tierStep    = decimal.NewFromInt(300_000_000)
	two         = decimal.NewFromInt(2)
	three       = decimal.NewFromInt(3)
	hundred     = decimal.NewFromInt(100)
	educationOf = decimal.New(1, -1)
)

// tieredPurchase applies the price-tiered rate for a first house (or a second
// outside a regulated area). Between the tiers the acquisition rate rises
// linearly: (price / 300M × 2 − 3)%, with education at a tenth of it.
func tieredPurchase(t *AcquisitionTable, in AcquisitionInput) RateTriple {
	h := t.Housing
	switch {
	case in.Price <= h.PurchaseLowCeiling:
		return h.PurchaseLow
	case in.Price <= h.PurchaseHighFloor:
		rate := decimal.NewFromInt(in.Price).Div(tierStep).Mul(two).Sub(three).Div(hundred)
		return RateTriple{
			Acquisition: rate,
			Agriculture: h.PurchaseLow.Agriculture,
			Education:   rate.Mul(educationOf),
		}
	default:
		return h.PurchaseHigh
	}
}
