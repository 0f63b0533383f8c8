package taxcalc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PropertyKind selects the rate basis for an ordinary capital gains calculation.
type PropertyKind string

const (
	PropertyGeneral         PropertyKind = "general"
	PropertyNonBusinessLand PropertyKind = "non-business-land"
	PropertyHouseUnder1Y    PropertyKind = "house-under-1y"
	PropertyHouseUnder2Y    PropertyKind = "house-under-2y"
	PropertyLandUnder1Y     PropertyKind = "land-under-1y"
	PropertyLandUnder2Y     PropertyKind = "land-under-2y"
)

// DeductionTable selects the long-term holding deduction schedule.
type DeductionTable string

const (
	// TableGeneral is 표1: 2% per year held.
	TableGeneral DeductionTable = "table-1"
	// TableSingleHome is 표2 (one household, one house): 4% per year held plus 4% per year lived in.
	TableSingleHome DeductionTable = "table-2"
)

// Surcharge is the heavy-taxation category of a sale.
type Surcharge string

const (
	SurchargeNone Surcharge = "none"
	Surcharge20   Surcharge = "surcharge-20"
	Surcharge30   Surcharge = "surcharge-30"
)

// Relationship is the donee's kinship to the donor.
type Relationship string

const (
	RelationSpouse          Relationship = "spouse"
	RelationAdultDescendant Relationship = "adult-descendant"
	RelationMinorDescendant Relationship = "minor-descendant"
	RelationAscendant       Relationship = "ascendant"
	RelationOtherRelative   Relationship = "other-relative"
	RelationNone            Relationship = "none"
)

// AcquisitionProperty is the property type of an acquisition.
type AcquisitionProperty string

const (
	AcquireGeneralBuildingLand AcquisitionProperty = "general-building-land"
	AcquireFarmland            AcquisitionProperty = "farmland"
	AcquireNationalHousing     AcquisitionProperty = "national-housing"
	AcquireHousing             AcquisitionProperty = "housing"
)

// IsHousing reports whether the housing rules apply. Anything that is not
// general building/land or farmland is treated as housing.
func (p AcquisitionProperty) IsHousing() bool {
	return p != AcquireGeneralBuildingLand && p != AcquireFarmland
}

// AcquisitionCause is how the property was acquired.
type AcquisitionCause string

const (
	CausePurchase        AcquisitionCause = "purchase"
	CauseGift            AcquisitionCause = "gift"
	CauseInheritance     AcquisitionCause = "inheritance"
	CauseNewConstruction AcquisitionCause = "new-construction"
)

// HousingCount is the number of houses held after a purchase. Values of four
// and above share the same rule.
type HousingCount int

const (
	OneHouse       HousingCount = 1
	TwoHouses      HousingCount = 2
	ThreeHouses    HousingCount = 3
	FourPlusHouses HousingCount = 4
)

// String returns the form label, e.g. "2주택".
func (h HousingCount) String() string {
	if h >= FourPlusHouses {
		return "4주택 이상"
	}
	return strconv.Itoa(int(h)) + "주택"
}

// UnmarshalJSON accepts a number (1, 4) or a form label ("2주택", "4주택 이상").
func (h *HousingCount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("housing count: %w", err)
		}
		s = strconv.Itoa(n)
	}
	*h = ParseHousingCount(s)
	return nil
}

var propertyKindLabels = map[string]PropertyKind{
	"일반 주택 상가 토지": PropertyGeneral,
	"비사업용 토지":     PropertyNonBusinessLand,
	"1년 미만 주택":     PropertyHouseUnder1Y,
	"2년 미만 주택":     PropertyHouseUnder2Y,
	"1년 미만 건물 토지":  PropertyLandUnder1Y,
	"2년 미만 건물 토지":  PropertyLandUnder2Y,
}

var relationshipLabels = map[string]Relationship{
	"배우자":        RelationSpouse,
	"직계비속 (성인)":  RelationAdultDescendant,
	"직계비속 (미성년)": RelationMinorDescendant,
	"직계존속":       RelationAscendant,
	"기타 친족":      RelationOtherRelative,
	"관계 없음":      RelationNone,
}

var causeLabels = map[string]AcquisitionCause{
	"매매": CausePurchase,
	"증여": CauseGift,
	"상속": CauseInheritance,
	"신축": CauseNewConstruction,
}

// ParsePropertyKind accepts the canonical token or the Korean form label.
// Unrecognised labels are returned trimmed and fall through to the basic table.
func ParsePropertyKind(s string) PropertyKind {
	s = strings.TrimSpace(s)
	if s == "" {
		return PropertyGeneral
	}
	if k, ok := propertyKindLabels[s]; ok {
		return k
	}
	return PropertyKind(s)
}

// ParseDeductionTable accepts "table-1"/"table-2" or "표1"/"표2".
func ParseDeductionTable(s string) DeductionTable {
	switch strings.TrimSpace(s) {
	case "", "표1", "1", string(TableGeneral):
		return TableGeneral
	case "표2", "2", string(TableSingleHome):
		return TableSingleHome
	}
	return DeductionTable(strings.TrimSpace(s))
}

// ParseSurcharge accepts the canonical token or "없음", "20% 중과세", "30% 중과세".
func ParseSurcharge(s string) Surcharge {
	switch strings.TrimSpace(s) {
	case "", "없음", string(SurchargeNone):
		return SurchargeNone
	case "20% 중과세", "20%", string(Surcharge20):
		return Surcharge20
	case "30% 중과세", "30%", string(Surcharge30):
		return Surcharge30
	}
	return Surcharge(strings.TrimSpace(s))
}

// ParseRelationship accepts the canonical token or the Korean form label.
// Unknown relationships receive no deduction.
func ParseRelationship(s string) Relationship {
	s = strings.TrimSpace(s)
	if r, ok := relationshipLabels[s]; ok {
		return r
	}
	return Relationship(s)
}

// ParseAcquisitionProperty maps a form label onto a property type. Housing
// labels mentioning 85㎡ or less (whitespace ignored) or exactly "국민주택"
// count as national housing.
func ParseAcquisitionProperty(s string) AcquisitionProperty {
	compact := strings.Join(strings.Fields(s), "")
	switch compact {
	case "일반건물/토지", string(AcquireGeneralBuildingLand):
		return AcquireGeneralBuildingLand
	case "농지", string(AcquireFarmland):
		return AcquireFarmland
	case "국민주택", string(AcquireNationalHousing):
		return AcquireNationalHousing
	}
	// Spacing is ignored, so the form's default label "국민주택 (85㎡ 이하)"
	// counts as national housing.
	if strings.Contains(compact, "85㎡이하") || strings.Contains(compact, "85이하") {
		return AcquireNationalHousing
	}
	return AcquireHousing
}

// ParseAcquisitionCause accepts the canonical token or 매매/증여/상속/신축.
func ParseAcquisitionCause(s string) AcquisitionCause {
	s = strings.TrimSpace(s)
	if c, ok := causeLabels[s]; ok {
		return c
	}
	if s == "" {
		return CausePurchase
	}
	return AcquisitionCause(s)
}

// ParseHousingCount accepts "1".."4+" or "1주택".."4주택 이상". Anything
// unrecognised resolves to the four-or-more rule.
func ParseHousingCount(s string) HousingCount {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "주택")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 3 {
		return FourPlusHouses
	}
	return HousingCount(n)
}
