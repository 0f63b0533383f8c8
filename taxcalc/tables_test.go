package taxcalc

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	tables := DefaultTables()
	require.NotNil(t, tables)
	assert.Same(t, tables, DefaultTables(), "tables are decoded once")

	assert.Equal(t, 2025, tables.Year)

	cg := tables.CapitalGains
	assert.Equal(t, int64(2_500_000), cg.BasicDeduction)
	assert.Equal(t, int64(1_200_000_000), cg.ExemptionThreshold)
	assertRate(t, "0.1", cg.LocalSurtaxRate)
	assert.Len(t, cg.BasicBrackets, 8)
	assert.Len(t, cg.NonBusinessLandBrackets, 8)
	assert.Equal(t, Unbounded, cg.BasicBrackets[7].Upper)
	assert.Equal(t, Unbounded, cg.NonBusinessLandBrackets[7].Upper)

	assertRate(t, "0.7", cg.ShortTermRates[PropertyHouseUnder1Y])
	assertRate(t, "0.6", cg.ShortTermRates[PropertyHouseUnder2Y])
	assertRate(t, "0.5", cg.ShortTermRates[PropertyLandUnder1Y])
	assertRate(t, "0.4", cg.ShortTermRates[PropertyLandUnder2Y])
	assertRate(t, "0.2", cg.SurchargeRates[Surcharge20])
	assertRate(t, "0.3", cg.SurchargeRates[Surcharge30])

	hd := cg.HoldingDeduction
	assert.Equal(t, 3, hd.MinHoldingYears)
	assertRate(t, "0.02", hd.General.PerYear)
	assert.Equal(t, 15, hd.General.MaxYears)
	assertRate(t, "0.04", hd.SingleHome.HoldingPerYear)
	assert.Equal(t, 2, hd.SingleHome.MinResidenceYears)

	assert.Len(t, tables.Gift.Brackets, 5)
	assertRate(t, "0.03", tables.Gift.FilingCreditRate)
	assert.Equal(t, int64(600_000_000), tables.Gift.RelationshipDeductions[RelationSpouse])
	assert.Equal(t, int64(0), tables.Gift.RelationshipDeductions[RelationNone])

	acq := tables.Acquisition
	assertRate(t, "0.002", acq.GeneralBuildingLand[CausePurchase].Agriculture)
	assertRate(t, "0.0006", acq.Farmland[CauseInheritance].Education)
	assert.Equal(t, int64(600_000_000), acq.Housing.PurchaseLowCeiling)
	assert.Equal(t, int64(900_000_000), acq.Housing.PurchaseHighFloor)
	assertRate(t, "0.134", acq.Housing.PurchaseFourPlus.Combined())
}

func TestPreprocessPercentages(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"rate: 5%", "rate: 0.05"},
		{"rate: 0.16%", "rate: 0.0016"},
		{"{acquisition: 12%, agriculture: 1%}", "{acquisition: 0.12, agriculture: 0.01}"},
		{"rate: 0.05", "rate: 0.05"},
		{"# 6% or 0.06", "# 6% or 0.06"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, preprocessPercentages(tt.input))
	}
}

func TestLoadTables_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		new     string
		message string
	}{
		{
			name:    "gap between brackets",
			old:     "{lower: 14000000, upper: 50000000, rate: 0.15",
			new:     "{lower: 15000000, upper: 50000000, rate: 0.15",
			message: "does not continue",
		},
		{
			name:    "bounded top bracket",
			old:     "{lower: 3000000000, rate: 0.50",
			new:     "{lower: 3000000000, upper: 4000000000, rate: 0.50",
			message: "open-ended",
		},
		{
			name:    "rate above one",
			old:     "local_surtax_rate: 10%",
			new:     "local_surtax_rate: 150%",
			message: "outside [0, 1]",
		},
		{
			name:    "negative relationship deduction",
			old:     "other-relative: 10000000",
			new:     "other-relative: -10000000",
			message: "negative",
		},
		{
			name:    "inverted purchase tiers",
			old:     "purchase_high_floor: 900000000",
			new:     "purchase_high_floor: 500000000",
			message: "low ceiling < high floor",
		},
		{
			name:    "farmland without purchase",
			old:     "    purchase: {acquisition: 3%, agriculture: 0.2%, education: 0.2%}\n",
			new:     "",
			message: "farmland needs a purchase entry",
		},
		{
			name:    "unknown field",
			old:     "year: 2025",
			new:     "year: 2025\nbogus: 1",
			message: "bogus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Contains(t, defaultRatesYAML, tt.old)
			doc := strings.Replace(defaultRatesYAML, tt.old, tt.new, 1)

			_, err := LoadTables([]byte(doc))
			require.ErrorIs(t, err, ErrInvalidTables)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadTables_FractionsAndPercentagesAgree(t *testing.T) {
	doc := strings.Replace(defaultRatesYAML, "local_surtax_rate: 10%", "local_surtax_rate: 0.1", 1)
	tables, err := LoadTables([]byte(doc))
	require.NoError(t, err)
	assert.True(t, tables.CapitalGains.LocalSurtaxRate.Equal(DefaultTables().CapitalGains.LocalSurtaxRate))
}

func TestBracketJSON_OpenEndedUpperBound(t *testing.T) {
	brackets := DefaultTables().CapitalGains.BasicBrackets

	data, err := json.Marshal(brackets)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "9223372036854775807")

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, len(brackets))
	assert.EqualValues(t, 14_000_000, raw[0]["upper"])
	assert.NotContains(t, raw[len(raw)-1], "upper")

	var back []Bracket
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, len(brackets))
	for i, b := range back {
		assert.Equal(t, brackets[i].Lower, b.Lower, i)
		assert.Equal(t, brackets[i].Upper, b.Upper, i)
		assert.Equal(t, brackets[i].Deduction, b.Deduction, i)
		assertRate(t, brackets[i].Rate.String(), b.Rate, i)
	}
	assert.Equal(t, Unbounded, back[len(back)-1].Upper)
}
