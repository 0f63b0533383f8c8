package taxcalc

import (
	"github.com/shopspring/decimal"
)

// HoldingDeductionRate returns the long-term holding deduction rate for an
// ordinary sale. Both schedules require the minimum holding period; residence
// only counts under the single-home schedule once it reaches its own minimum.
// Unknown schedules deduct nothing.
func (t *HoldingDeductionTable) HoldingDeductionRate(table DeductionTable, holdingYears, residenceYears int) decimal.Decimal {
	switch table {
	case TableGeneral:
		if holdingYears < t.MinHoldingYears {
			return decimal.Zero
		}
		return t.generalRate(holdingYears)
	case TableSingleHome:
		if holdingYears < t.MinHoldingYears {
			return decimal.Zero
		}
		return t.singleHomeRate(holdingYears, residenceYears)
	}
	return decimal.Zero
}

// ReconstructionDeductionRate is the schedule used for reconstruction sales:
// the general schedule has no minimum holding period there.
func (t *HoldingDeductionTable) ReconstructionDeductionRate(table DeductionTable, holdingYears, residenceYears int) decimal.Decimal {
	switch table {
	case TableGeneral:
		return t.generalRate(max(0, holdingYears))
	case TableSingleHome:
		if holdingYears < t.MinHoldingYears {
			return decimal.Zero
		}
		return t.singleHomeRate(holdingYears, residenceYears)
	}
	return decimal.Zero
}

func (t *HoldingDeductionTable) generalRate(holdingYears int) decimal.Decimal {
	years := min(holdingYears, t.General.MaxYears)
	return t.General.PerYear.Mul(decimal.NewFromInt(int64(years)))
}

func (t *HoldingDeductionTable) singleHomeRate(holdingYears, residenceYears int) decimal.Decimal {
	s := t.SingleHome
	rate := s.HoldingPerYear.Mul(decimal.NewFromInt(int64(min(holdingYears, s.HoldingMaxYears))))
	if residenceYears >= s.MinResidenceYears {
		rate = rate.Add(s.ResidencePerYear.Mul(decimal.NewFromInt(int64(min(residenceYears, s.ResidenceMaxYears)))))
	}
	return rate
}
