/*
loader.go - YAML seed file parsing for the reference catalog

PURPOSE:
  The catalog ships as a versioned YAML file (templates, T&C factors, age
  bands, benefit configurations, rate tables). LoadFile parses and validates
  it into a Snapshot; operators reload by calling LoadFile again and swapping
  the Holder.

VALIDATION:
  Structural invariants are checked at load time so the engines can trust
  the data: non-negative premiums and rates, age_to >= age_from, at most one
  default option per factor, option multipliers > 0, min <= max participant
  bounds, settlement/coinsurance percentages within [0,100]. A violation
  fails the whole load; a half-applied catalog is worse than a stale one.

SEE ALSO:
  - catalog.go: Snapshot construction
*/
package catalog

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// FILE SCHEMA
// =============================================================================

type seedFile struct {
	Templates []seedTemplate `yaml:"templates"`
	AgeBands  []seedAgeBand  `yaml:"age_bands"`
	Factors   []seedFactor   `yaml:"tc_factors"`
	Benefits  []seedBenefit  `yaml:"benefits"`
	Rates     []seedRate     `yaml:"rate_tables"`
}

type seedTemplate struct {
	Code          string `yaml:"code"`
	Name          string `yaml:"name"`
	Category      string `yaml:"category"`
	AdultMale     string `yaml:"base_premium_adult_male"`
	AdultFemale   string `yaml:"base_premium_adult_female"`
	Child         string `yaml:"base_premium_child"`
	EffectiveFrom string `yaml:"effective_from"`
	EffectiveTo   string `yaml:"effective_to"`
}

type seedAgeBand struct {
	Template   string `yaml:"template"`
	AgeFrom    int    `yaml:"age_from"`
	AgeTo      int    `yaml:"age_to"`
	Gender     string `yaml:"gender"`
	Multiplier string `yaml:"multiplier"`
}

type seedFactor struct {
	Code         string       `yaml:"code"`
	Name         string       `yaml:"name"`
	Category     string       `yaml:"category"`
	Description  string       `yaml:"description"`
	Active       *bool        `yaml:"active"`
	DisplayOrder int          `yaml:"display_order"`
	Options      []seedOption `yaml:"options"`
}

type seedOption struct {
	Value           string `yaml:"value"`
	Label           string `yaml:"label"`
	Multiplier      string `yaml:"multiplier"`
	Default         bool   `yaml:"default"`
	MinParticipants *int   `yaml:"min_participants"`
	MaxParticipants *int   `yaml:"max_participants"`
	DisplayOrder    int    `yaml:"display_order"`
}

type seedBenefit struct {
	Code                string   `yaml:"code"`
	Name                string   `yaml:"name"`
	Category            string   `yaml:"category"`
	Coverage            string   `yaml:"coverage"`
	SettlementPct       int      `yaml:"settlement_pct"`
	CoinsurancePct      int      `yaml:"coinsurance_pct"`
	LimitValue          string   `yaml:"limit_value"`
	MaxDaysPerYear      *int     `yaml:"max_days_per_year"`
	MaxVisitsPerYear    *int     `yaml:"max_visits_per_year"`
	MaxCasesPerYear     *int     `yaml:"max_cases_per_year"`
	RequiresPreauth     bool     `yaml:"requires_preauth"`
	RequiresIndication  bool     `yaml:"requires_medical_indication"`
	MinAgeYears         *int     `yaml:"min_age_years"`
	MaxAgeYears         *int     `yaml:"max_age_years"`
	WaitingPeriodDays   int      `yaml:"waiting_period_days"`
	PreHospDays         *int     `yaml:"pre_hospitalization_days"`
	PostHospDays        *int     `yaml:"post_hospitalization_days"`
	Exclusions          []string `yaml:"exclusions"`
	Prerequisites       []string `yaml:"prerequisites"`
	IndicationWhitelist []string `yaml:"indication_whitelist"`
}

type seedRate struct {
	RateCode      string         `yaml:"rate_code"`
	BenefitCode   string         `yaml:"benefit_code"`
	Description   string         `yaml:"description"`
	EffectiveDate string         `yaml:"effective_date"`
	ExpiryDate    string         `yaml:"expiry_date"`
	Bands         []seedRateBand `yaml:"bands"`
}

type seedRateBand struct {
	AgeFrom int    `yaml:"age_from"`
	AgeTo   int    `yaml:"age_to"`
	Gender  string `yaml:"gender"`
	Rate    string `yaml:"rate"`
}

// =============================================================================
// LOADER
// =============================================================================

// LoadFile parses a catalog seed file into a validated Snapshot.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	return Load(data)
}

// Load parses catalog seed YAML into a validated Snapshot.
func Load(data []byte) (*Snapshot, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	templates := make([]ProductTemplate, 0, len(file.Templates))
	for _, st := range file.Templates {
		t, err := st.build()
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", st.Code, err)
		}
		templates = append(templates, t)
	}

	bands := make([]AgeBandMultiplier, 0, len(file.AgeBands))
	for _, sb := range file.AgeBands {
		b, err := sb.build()
		if err != nil {
			return nil, fmt.Errorf("age band %s[%d-%d]: %w", sb.Template, sb.AgeFrom, sb.AgeTo, err)
		}
		bands = append(bands, b)
	}

	factors := make([]TCFactor, 0, len(file.Factors))
	for _, sf := range file.Factors {
		f, err := sf.build()
		if err != nil {
			return nil, fmt.Errorf("factor %s: %w", sf.Code, err)
		}
		factors = append(factors, f)
	}

	benefits := make([]BenefitConfiguration, 0, len(file.Benefits))
	for _, sb := range file.Benefits {
		b, err := sb.build()
		if err != nil {
			return nil, fmt.Errorf("benefit %s: %w", sb.Code, err)
		}
		benefits = append(benefits, b)
	}

	rates := make([]RateTable, 0, len(file.Rates))
	for _, sr := range file.Rates {
		rt, err := sr.build()
		if err != nil {
			return nil, fmt.Errorf("rate table %s/%s: %w", sr.RateCode, sr.BenefitCode, err)
		}
		rates = append(rates, rt)
	}

	return NewSnapshot(templates, factors, bands, benefits, rates), nil
}

func (st seedTemplate) build() (ProductTemplate, error) {
	from, err := parseDate(st.EffectiveFrom)
	if err != nil {
		return ProductTemplate{}, fmt.Errorf("effective_from: %w", err)
	}
	t := ProductTemplate{
		TemplateCode:           st.Code,
		TemplateName:           st.Name,
		Category:               BenefitCategory(st.Category),
		BasePremiumAdultMale:   MustDecimal(st.AdultMale),
		BasePremiumAdultFemale: MustDecimal(st.AdultFemale),
		BasePremiumChild:       MustDecimal(st.Child),
		EffectiveFrom:          from,
	}
	if st.EffectiveTo != "" {
		to, err := parseDate(st.EffectiveTo)
		if err != nil {
			return ProductTemplate{}, fmt.Errorf("effective_to: %w", err)
		}
		if to.Before(from) {
			return ProductTemplate{}, fmt.Errorf("effective_to before effective_from")
		}
		t.EffectiveTo = &to
	}
	for _, p := range []decimal.Decimal{t.BasePremiumAdultMale, t.BasePremiumAdultFemale, t.BasePremiumChild} {
		if p.IsNegative() {
			return ProductTemplate{}, fmt.Errorf("negative base premium")
		}
	}
	return t, nil
}

func (sb seedAgeBand) build() (AgeBandMultiplier, error) {
	if sb.AgeTo < sb.AgeFrom {
		return AgeBandMultiplier{}, fmt.Errorf("age_to below age_from")
	}
	mult := MustDecimal(sb.Multiplier)
	if mult.IsNegative() {
		return AgeBandMultiplier{}, fmt.Errorf("negative multiplier")
	}
	g := Gender(sb.Gender)
	if g != GenderMale && g != GenderFemale && g != GenderChild {
		return AgeBandMultiplier{}, fmt.Errorf("invalid gender %q", sb.Gender)
	}
	return AgeBandMultiplier{
		TemplateCode: sb.Template,
		AgeFrom:      sb.AgeFrom,
		AgeTo:        sb.AgeTo,
		Gender:       g,
		Multiplier:   mult,
	}, nil
}

func (sf seedFactor) build() (TCFactor, error) {
	f := TCFactor{
		FactorCode:   sf.Code,
		FactorName:   sf.Name,
		Category:     sf.Category,
		Description:  sf.Description,
		IsActive:     sf.Active == nil || *sf.Active,
		DisplayOrder: sf.DisplayOrder,
	}
	defaults := 0
	for _, so := range sf.Options {
		mult := MustDecimal(so.Multiplier)
		if !mult.IsPositive() {
			return TCFactor{}, fmt.Errorf("option %s: multiplier must be > 0", so.Value)
		}
		if so.MinParticipants != nil && so.MaxParticipants != nil && *so.MinParticipants > *so.MaxParticipants {
			return TCFactor{}, fmt.Errorf("option %s: min_participants above max_participants", so.Value)
		}
		if so.Default {
			defaults++
		}
		f.Options = append(f.Options, TCFactorOption{
			OptionValue:     so.Value,
			OptionLabel:     so.Label,
			Multiplier:      mult,
			IsDefault:       so.Default,
			MinParticipants: so.MinParticipants,
			MaxParticipants: so.MaxParticipants,
			DisplayOrder:    so.DisplayOrder,
		})
	}
	if defaults > 1 {
		return TCFactor{}, fmt.Errorf("more than one default option")
	}
	return f, nil
}

func (sb seedBenefit) build() (BenefitConfiguration, error) {
	if sb.SettlementPct < 0 || sb.SettlementPct > 100 {
		return BenefitConfiguration{}, fmt.Errorf("settlement_pct outside [0,100]")
	}
	if sb.CoinsurancePct < 0 || sb.CoinsurancePct > 100 {
		return BenefitConfiguration{}, fmt.Errorf("coinsurance_pct outside [0,100]")
	}
	if sb.WaitingPeriodDays < 0 {
		return BenefitConfiguration{}, fmt.Errorf("negative waiting_period_days")
	}
	b := BenefitConfiguration{
		BenefitCode:               sb.Code,
		BenefitName:               sb.Name,
		Category:                  BenefitCategory(sb.Category),
		Coverage:                  CoverageType(sb.Coverage),
		SettlementPct:             decimal.NewFromInt(int64(sb.SettlementPct)),
		CoinsurancePct:            decimal.NewFromInt(int64(sb.CoinsurancePct)),
		MaxDaysPerYear:            sb.MaxDaysPerYear,
		MaxVisitsPerYear:          sb.MaxVisitsPerYear,
		MaxCasesPerYear:           sb.MaxCasesPerYear,
		RequiresPreauth:           sb.RequiresPreauth,
		RequiresMedicalIndication: sb.RequiresIndication,
		MinAgeYears:               sb.MinAgeYears,
		MaxAgeYears:               sb.MaxAgeYears,
		WaitingPeriodDays:         sb.WaitingPeriodDays,
		PreHospitalizationDays:    sb.PreHospDays,
		PostHospitalizationDays:   sb.PostHospDays,
		Exclusions:                sb.Exclusions,
		Prerequisites:             sb.Prerequisites,
		IndicationWhitelist:       sb.IndicationWhitelist,
	}
	if sb.LimitValue != "" {
		limit := MustDecimal(sb.LimitValue)
		if limit.IsNegative() {
			return BenefitConfiguration{}, fmt.Errorf("negative limit_value")
		}
		b.LimitValue = &limit
	}
	return b, nil
}

func (sr seedRate) build() (RateTable, error) {
	eff, err := parseDate(sr.EffectiveDate)
	if err != nil {
		return RateTable{}, fmt.Errorf("effective_date: %w", err)
	}
	rt := RateTable{
		RateCode:      sr.RateCode,
		BenefitCode:   sr.BenefitCode,
		Description:   sr.Description,
		EffectiveDate: eff,
	}
	if sr.ExpiryDate != "" {
		exp, err := parseDate(sr.ExpiryDate)
		if err != nil {
			return RateTable{}, fmt.Errorf("expiry_date: %w", err)
		}
		rt.ExpiryDate = &exp
	}
	for _, band := range sr.Bands {
		rate := MustDecimal(band.Rate)
		if rate.IsNegative() {
			return RateTable{}, fmt.Errorf("negative rate in band %d-%d", band.AgeFrom, band.AgeTo)
		}
		if band.AgeTo < band.AgeFrom {
			return RateTable{}, fmt.Errorf("band %d-%d: age_to below age_from", band.AgeFrom, band.AgeTo)
		}
		rt.Rates = append(rt.Rates, RateBand{
			AgeFrom: band.AgeFrom,
			AgeTo:   band.AgeTo,
			Gender:  Gender(band.Gender),
			Rate:    rate,
		})
	}
	return rt, nil
}

// MustDecimal parses a decimal seed value; empty or malformed input is zero.
func MustDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
