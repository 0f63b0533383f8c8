package taxcalc

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed rates_2025.yaml
var defaultRatesYAML string

// ErrInvalidTables is returned when a rate table file fails validation.
var ErrInvalidTables = errors.New("invalid rate tables")

// Unbounded is the upper bound of the open-ended top bracket.
const Unbounded int64 = math.MaxInt64

// Bracket is one row of a progressive tax table. Tax for an amount inside the
// bracket is amount × Rate − Deduction (누진공제).
type Bracket struct {
	Lower     int64           `yaml:"lower"`
	Upper     int64           `yaml:"upper"`
	Rate      decimal.Decimal `yaml:"rate"`
	Deduction int64           `yaml:"deduction"`
}

// bracketJSON leaves out the upper bound of the open-ended top bracket;
// Unbounded does not survive a round trip through a JavaScript number.
type bracketJSON struct {
	Lower     int64           `json:"lower"`
	Upper     *int64          `json:"upper,omitempty"`
	Rate      decimal.Decimal `json:"rate"`
	Deduction int64           `json:"deduction"`
}

func (b Bracket) MarshalJSON() ([]byte, error) {
	out := bracketJSON{Lower: b.Lower, Rate: b.Rate, Deduction: b.Deduction}
	if b.Upper != Unbounded {
		upper := b.Upper
		out.Upper = &upper
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a missing upper bound as Unbounded.
func (b *Bracket) UnmarshalJSON(data []byte) error {
	var in bracketJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*b = Bracket{Lower: in.Lower, Upper: Unbounded, Rate: in.Rate, Deduction: in.Deduction}
	if in.Upper != nil {
		b.Upper = *in.Upper
	}
	return nil
}

// RateTriple is the set of acquisition tax component rates, each a fraction of the price.
type RateTriple struct {
	Acquisition decimal.Decimal `yaml:"acquisition" json:"acquisition"`
	Agriculture decimal.Decimal `yaml:"agriculture" json:"agriculture"`
	Education   decimal.Decimal `yaml:"education" json:"education"`
}

// Combined returns the sum of the three component rates.
func (r RateTriple) Combined() decimal.Decimal {
	return r.Acquisition.Add(r.Agriculture).Add(r.Education)
}

// GeneralHoldingDeduction is 표1.
type GeneralHoldingDeduction struct {
	PerYear  decimal.Decimal `yaml:"per_year" json:"per_year"`
	MaxYears int             `yaml:"max_years" json:"max_years"`
}

// SingleHomeHoldingDeduction is 표2.
type SingleHomeHoldingDeduction struct {
	HoldingPerYear    decimal.Decimal `yaml:"holding_per_year" json:"holding_per_year"`
	HoldingMaxYears   int             `yaml:"holding_max_years" json:"holding_max_years"`
	MinResidenceYears int             `yaml:"min_residence_years" json:"min_residence_years"`
	ResidencePerYear  decimal.Decimal `yaml:"residence_per_year" json:"residence_per_year"`
	ResidenceMaxYears int             `yaml:"residence_max_years" json:"residence_max_years"`
}

// HoldingDeductionTable holds the long-term holding deduction schedules.
type HoldingDeductionTable struct {
	MinHoldingYears int                        `yaml:"min_holding_years" json:"min_holding_years"`
	General         GeneralHoldingDeduction    `yaml:"general" json:"general"`
	SingleHome      SingleHomeHoldingDeduction `yaml:"single_home" json:"single_home"`
}

// CapitalGainsTable holds everything the capital gains engines read.
type CapitalGainsTable struct {
	BasicDeduction          int64                            `yaml:"basic_deduction" json:"basic_deduction"`
	ExemptionThreshold      int64                            `yaml:"exemption_threshold" json:"exemption_threshold"`
	LocalSurtaxRate         decimal.Decimal                  `yaml:"local_surtax_rate" json:"local_surtax_rate"`
	BasicBrackets           []Bracket                        `yaml:"basic_brackets" json:"basic_brackets"`
	NonBusinessLandBrackets []Bracket                        `yaml:"non_business_land_brackets" json:"non_business_land_brackets"`
	ShortTermRates          map[PropertyKind]decimal.Decimal `yaml:"short_term_rates" json:"short_term_rates"`
	SurchargeRates          map[Surcharge]decimal.Decimal    `yaml:"surcharge_rates" json:"surcharge_rates"`
	HoldingDeduction        HoldingDeductionTable            `yaml:"holding_deduction" json:"holding_deduction"`
}

// GiftTable holds the gift tax brackets and deductions.
type GiftTable struct {
	FilingCreditRate       decimal.Decimal        `yaml:"filing_credit_rate" json:"filing_credit_rate"`
	Brackets               []Bracket              `yaml:"brackets" json:"brackets"`
	RelationshipDeductions map[Relationship]int64 `yaml:"relationship_deductions" json:"relationship_deductions"`
}

// HousingRates are the rate triples used by the housing acquisition rules.
type HousingRates struct {
	NewConstruction        RateTriple `yaml:"new_construction" json:"new_construction"`
	Inheritance            RateTriple `yaml:"inheritance" json:"inheritance"`
	InheritanceSoleHouse   RateTriple `yaml:"inheritance_sole_house" json:"inheritance_sole_house"`
	Gift                   RateTriple `yaml:"gift" json:"gift"`
	GiftHeavy              RateTriple `yaml:"gift_heavy" json:"gift_heavy"`
	PurchaseLow            RateTriple `yaml:"purchase_low" json:"purchase_low"`
	PurchaseHigh           RateTriple `yaml:"purchase_high" json:"purchase_high"`
	PurchaseLowCeiling     int64      `yaml:"purchase_low_ceiling" json:"purchase_low_ceiling"`
	PurchaseHighFloor      int64      `yaml:"purchase_high_floor" json:"purchase_high_floor"`
	PurchaseTwoRegulated   RateTriple `yaml:"purchase_two_regulated" json:"purchase_two_regulated"`
	PurchaseThree          RateTriple `yaml:"purchase_three" json:"purchase_three"`
	PurchaseThreeRegulated RateTriple `yaml:"purchase_three_regulated" json:"purchase_three_regulated"`
	PurchaseFourPlus       RateTriple `yaml:"purchase_four_plus" json:"purchase_four_plus"`
}

// AcquisitionTable holds the acquisition tax rate triples.
type AcquisitionTable struct {
	GeneralBuildingLand map[AcquisitionCause]RateTriple `yaml:"general_building_land" json:"general_building_land"`
	Farmland            map[AcquisitionCause]RateTriple `yaml:"farmland" json:"farmland"`
	Housing             HousingRates                    `yaml:"housing" json:"housing"`
}

// Tables is the complete, read-only rate table set for one tax year.
type Tables struct {
	Year         int               `yaml:"year" json:"year"`
	CapitalGains CapitalGainsTable `yaml:"capital_gains" json:"capital_gains"`
	Gift         GiftTable         `yaml:"gift" json:"gift"`
	Acquisition  AcquisitionTable  `yaml:"acquisition" json:"acquisition"`
}

var defaultTables = sync.OnceValues(func() (*Tables, error) {
	return LoadTables([]byte(defaultRatesYAML))
})

// DefaultTables returns the embedded 2025 tables. They are decoded once and
// must not be modified by callers.
func DefaultTables() *Tables {
	t, err := defaultTables()
	if err != nil {
		panic(fmt.Sprintf("taxcalc: embedded rate tables: %v", err))
	}
	return t
}

// LoadTables decodes and validates a rate table document. Percentages such as
// "0.2%" are accepted alongside decimal fractions.
func LoadTables(data []byte) (*Tables, error) {
	content := preprocessPercentages(string(data))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(content)))
	dec.KnownFields(true)

	var t Tables
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTables, err)
	}
	if err := t.normalize(); err != nil {
		return nil, err
	}
	return &t, nil
}

var percentPattern = regexp.MustCompile(`(:\s*)(\d+\.?\d*)%`)

// preprocessPercentages converts percentage values like "5%" to decimal "0.05"
func preprocessPercentages(content string) string {
	return percentPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := percentPattern.FindStringSubmatch(match)
		if len(parts) < 3 {
			return match
		}
		num, err := decimal.NewFromString(parts[2])
		if err != nil {
			return match
		}
		return parts[1] + num.Shift(-2).String()
	})
}

func (t *Tables) normalize() error {
	cg := &t.CapitalGains
	for name, table := range map[string][]Bracket{
		"capital_gains.basic_brackets":             cg.BasicBrackets,
		"capital_gains.non_business_land_brackets": cg.NonBusinessLandBrackets,
		"gift.brackets":                            t.Gift.Brackets,
	} {
		if err := normalizeBrackets(name, table); err != nil {
			return err
		}
	}

	if cg.BasicDeduction < 0 || cg.ExemptionThreshold <= 0 {
		return fmt.Errorf("%w: capital_gains deduction and threshold must be positive", ErrInvalidTables)
	}
	rates := map[string]decimal.Decimal{
		"capital_gains.local_surtax_rate": cg.LocalSurtaxRate,
		"gift.filing_credit_rate":         t.Gift.FilingCreditRate,
	}
	for k, r := range cg.ShortTermRates {
		rates["capital_gains.short_term_rates."+string(k)] = r
	}
	for k, r := range cg.SurchargeRates {
		rates["capital_gains.surcharge_rates."+string(k)] = r
	}
	for name, r := range rates {
		if err := checkRate(name, r); err != nil {
			return err
		}
	}
	for rel, amount := range t.Gift.RelationshipDeductions {
		if amount < 0 {
			return fmt.Errorf("%w: gift.relationship_deductions.%s is negative", ErrInvalidTables, rel)
		}
	}
	h := t.Acquisition.Housing
	if h.PurchaseLowCeiling <= 0 || h.PurchaseHighFloor <= h.PurchaseLowCeiling {
		return fmt.Errorf("%w: housing purchase tiers must satisfy 0 < low ceiling < high floor", ErrInvalidTables)
	}
	if _, ok := t.Acquisition.GeneralBuildingLand[CausePurchase]; !ok {
		return fmt.Errorf("%w: acquisition.general_building_land needs a purchase entry", ErrInvalidTables)
	}
	if _, ok := t.Acquisition.Farmland[CausePurchase]; !ok {
		return fmt.Errorf("%w: acquisition.farmland needs a purchase entry", ErrInvalidTables)
	}
	return nil
}

// normalizeBrackets checks ordering and coverage and marks the top bracket unbounded.
func normalizeBrackets(name string, table []Bracket) error {
	if len(table) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidTables, name)
	}
	if table[0].Lower != 0 {
		return fmt.Errorf("%w: %s must start at 0", ErrInvalidTables, name)
	}
	last := len(table) - 1
	for i := range table {
		b := &table[i]
		if err := checkRate(fmt.Sprintf("%s[%d].rate", name, i), b.Rate); err != nil {
			return err
		}
		if i > 0 && b.Lower != table[i-1].Upper {
			return fmt.Errorf("%w: %s[%d] lower bound %d does not continue from %d",
				ErrInvalidTables, name, i, b.Lower, table[i-1].Upper)
		}
		if i == last && b.Upper == 0 {
			b.Upper = Unbounded
		}
		if b.Upper <= b.Lower {
			return fmt.Errorf("%w: %s[%d] upper bound must exceed lower bound", ErrInvalidTables, name, i)
		}
	}
	if table[last].Upper != Unbounded {
		return fmt.Errorf("%w: %s top bracket must be open-ended", ErrInvalidTables, name)
	}
	return nil
}

func checkRate(name string, r decimal.Decimal) error {
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s = %s is outside [0, 1]", ErrInvalidTables, name, r)
	}
	return nil
}
