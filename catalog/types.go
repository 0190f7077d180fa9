/*
Package catalog provides the read-mostly reference data for pricing and
claims validation.

PURPOSE:
  Holds the entities that are shared across every quote and claim: product
  templates with their base premiums, age-band multipliers, terms-and-
  conditions factors and their options, rate tables, and benefit
  configurations with their validation parameters.

KEY CONCEPTS IN THIS FILE (types.go):
  - ProductTemplate: base premiums per demographic, effective [from,to)
  - AgeBandMultiplier: inclusive [age_from, age_to] x gender multiplier grid
  - TCFactor / TCFactorOption: policy-level multiplicative dimensions
  - RateTable: age-band x gender rate grid keyed by (rate, benefit, date)
  - BenefitConfiguration: the full validation contract for one benefit code

IMMUTABILITY:
  The catalog is treated as immutable at runtime. A Snapshot is built once
  (from the YAML seed file or programmatically in tests) and swapped
  atomically on reload. Policy configurations reference catalog records by
  business code, never by pointer, so a swap cannot dangle.

SEE ALSO:
  - catalog.go: Snapshot lookups and the atomic holder
  - loader.go: YAML seed file parsing
*/
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SHARED ENUMS
// =============================================================================

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderChild  Gender = "CHILD"
)

// EffectiveGender maps a member's biological gender and age to the gender
// dimension used by premium and age-band lookups: under 18 is always CHILD.
func EffectiveGender(g Gender, age int) Gender {
	if age < 18 {
		return GenderChild
	}
	return g
}

type BenefitCategory string

const (
	CategoryInpatient    BenefitCategory = "INPATIENT"
	CategoryOutpatient   BenefitCategory = "OUTPATIENT"
	CategoryDental       BenefitCategory = "DENTAL"
	CategoryMaternity    BenefitCategory = "MATERNITY"
	CategoryOptical      BenefitCategory = "OPTICAL"
	CategoryMentalHealth BenefitCategory = "MENTAL_HEALTH"
	CategoryASO          BenefitCategory = "ASO"
)

// AllCategories is the fixed ordering used when initializing benefit
// selections for a new policy configuration.
var AllCategories = []BenefitCategory{
	CategoryInpatient,
	CategoryOutpatient,
	CategoryDental,
	CategoryMaternity,
	CategoryOptical,
	CategoryMentalHealth,
	CategoryASO,
}

type CoverageType string

const (
	CoverageNotCovered CoverageType = "NOT_COVERED"
	CoverageStandard   CoverageType = "COVERED_STANDARD"
	CoveragePerCase    CoverageType = "COVERED_PER_CASE"
	CoveragePerYear    CoverageType = "COVERED_PER_YEAR"
	CoveragePerVisit   CoverageType = "COVERED_PER_VISIT"
	CoveragePerDay     CoverageType = "COVERED_PER_DAY"
	CoverageMedicalInd CoverageType = "COVERED_WITH_MEDICAL_INDICATION"
)

// =============================================================================
// PRODUCT TEMPLATES
// =============================================================================

// ProductTemplate carries the base premiums for one benefit category
// (e.g. IP-1000, OP-500). Effective window is [EffectiveFrom, EffectiveTo);
// a nil EffectiveTo means open-ended.
type ProductTemplate struct {
	TemplateCode string
	TemplateName string
	Category     BenefitCategory

	BasePremiumAdultMale   decimal.Decimal
	BasePremiumAdultFemale decimal.Decimal
	BasePremiumChild       decimal.Decimal

	EffectiveFrom time.Time
	EffectiveTo   *time.Time
}

// BasePremium returns the base premium for the given demographics.
// Under 18 always uses the child rate regardless of gender.
func (t ProductTemplate) BasePremium(gender Gender, age int) decimal.Decimal {
	switch EffectiveGender(gender, age) {
	case GenderChild:
		return t.BasePremiumChild
	case GenderMale:
		return t.BasePremiumAdultMale
	default:
		return t.BasePremiumAdultFemale
	}
}

// EffectiveOn reports whether the template covers the given date.
func (t ProductTemplate) EffectiveOn(d time.Time) bool {
	if d.Before(t.EffectiveFrom) {
		return false
	}
	return t.EffectiveTo == nil || !d.After(*t.EffectiveTo)
}

// AgeBandMultiplier scales a template's base premium for an age range.
// Bounds are inclusive on both ends.
type AgeBandMultiplier struct {
	TemplateCode string
	AgeFrom      int
	AgeTo        int
	Gender       Gender
	Multiplier   decimal.Decimal
}

// Matches reports whether this band applies to the given age and gender.
// Callers must pass the effective gender (CHILD for under-18s).
func (b AgeBandMultiplier) Matches(age int, gender Gender) bool {
	return b.Gender == gender && age >= b.AgeFrom && age <= b.AgeTo
}

// =============================================================================
// TERMS & CONDITIONS FACTORS
// =============================================================================

// TCFactor is a policy-level terms-and-conditions dimension (class structure,
// geographic coverage, ...) whose selected option multiplies the premium.
type TCFactor struct {
	FactorCode   string
	FactorName   string
	Category     string
	Description  string
	IsActive     bool
	DisplayOrder int
	Options      []TCFactorOption
}

// DefaultOption returns the option flagged as default, or the first option if
// none is flagged. ok is false when the factor has no options at all.
func (f TCFactor) DefaultOption() (TCFactorOption, bool) {
	for _, opt := range f.Options {
		if opt.IsDefault {
			return opt, true
		}
	}
	if len(f.Options) > 0 {
		return f.Options[0], true
	}
	return TCFactorOption{}, false
}

// Option looks up an option by its value.
func (f TCFactor) Option(value string) (TCFactorOption, bool) {
	for _, opt := range f.Options {
		if opt.OptionValue == value {
			return opt, true
		}
	}
	return TCFactorOption{}, false
}

type TCFactorOption struct {
	OptionValue     string
	OptionLabel     string
	Multiplier      decimal.Decimal
	IsDefault       bool
	MinParticipants *int
	MaxParticipants *int
	DisplayOrder    int
}

// AllowsParticipants reports whether a participant count satisfies the
// option's min/max bounds (unset bounds are unbounded).
func (o TCFactorOption) AllowsParticipants(count int) bool {
	if o.MinParticipants != nil && count < *o.MinParticipants {
		return false
	}
	if o.MaxParticipants != nil && count > *o.MaxParticipants {
		return false
	}
	return true
}

// =============================================================================
// RATE TABLES
// =============================================================================

// RateTable is an age-band x gender rate grid for one benefit code,
// keyed by (rate_code, benefit_code, effective_date).
type RateTable struct {
	RateCode      string
	BenefitCode   string
	Description   string
	EffectiveDate time.Time
	ExpiryDate    *time.Time
	Rates         []RateBand
}

// RateBand is one cell range of the grid. Bounds are inclusive.
type RateBand struct {
	AgeFrom int
	AgeTo   int
	Gender  Gender
	Rate    decimal.Decimal
}

// Rate returns the grid rate for the given demographics, or zero when no
// band matches (e.g. ages above the covered range).
func (rt RateTable) Rate(age int, gender Gender) decimal.Decimal {
	eff := EffectiveGender(gender, age)
	for _, band := range rt.Rates {
		if band.Gender == eff && age >= band.AgeFrom && age <= band.AgeTo {
			return band.Rate
		}
	}
	return decimal.Zero
}

// =============================================================================
// BENEFIT CONFIGURATIONS
// =============================================================================

// BenefitConfiguration is the validation contract for a single benefit code.
// This is the data the claims validation engine evaluates rules against.
type BenefitConfiguration struct {
	BenefitCode string
	BenefitName string
	Category    BenefitCategory
	Coverage    CoverageType

	SettlementPct  decimal.Decimal // claim settlement percentage [0,100]
	CoinsurancePct decimal.Decimal // member share percentage [0,100]
	LimitValue     *decimal.Decimal

	MaxDaysPerYear   *int
	MaxVisitsPerYear *int
	MaxCasesPerYear  *int

	RequiresPreauth           bool
	RequiresMedicalIndication bool
	MinAgeYears               *int
	MaxAgeYears               *int
	WaitingPeriodDays         int
	PreHospitalizationDays    *int
	PostHospitalizationDays   *int

	// Excluded diagnosis codes; any match fails the claim outright.
	Exclusions []string

	// Benefit codes that must appear as PASSED in the member's claim
	// history for the same coverage period.
	Prerequisites []string

	// Diagnosis codes that satisfy the medical-indication requirement for
	// benefits that demand a specific indication (e.g. circumcision-class
	// codes require N47.0/N47.1/Z41.2). Empty means any diagnosis suffices.
	IndicationWhitelist []string
}
