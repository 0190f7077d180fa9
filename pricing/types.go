/*
Package pricing implements the premium pricing engine for group health
policies.

PURPOSE:
  Owns the mutable per-quote state (policy configurations, benefit and T&C
  selections, enrolled members, calculation history, approval workflow) and
  the arithmetic that turns it into a premium: member base premiums from the
  catalog, category factors, T&C multipliers, administrative fees, and the
  threshold-driven approval workflow.

KEY CONCEPTS IN THIS FILE (types.go):
  - PolicyConfig: one quote/policy and its cached totals
  - BenefitSelection / TCSelection / BenefitOverride: per-config choices,
    holding catalog BUSINESS CODES (not pointers) so catalog reloads never
    dangle
  - Member: one enrolled person with a stored base premium
  - CalculationLog: append-only snapshot of every premium calculation
  - WorkflowStep: one approval step with its premium threshold

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every stored monetary value
  2. Auditability: calculations are logged, logs are never edited
  3. Weak coupling: selections reference the catalog by code

SEE ALSO:
  - engine.go: The operations
  - store.go: Persistence interface
  - errors.go: Error taxonomy
*/
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/medena/grouphealth/catalog"
)

// =============================================================================
// IDENTIFIERS & ENUMS
// =============================================================================

type ConfigID string
type MemberID string

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusQuoted    Status = "QUOTED"
	StatusApproved  Status = "APPROVED"
	StatusActive    Status = "ACTIVE"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

type PricingMethod string

const (
	MethodFullyExperienced PricingMethod = "FULLY_EXPERIENCED"
	MethodManualRate       PricingMethod = "MANUAL_RATE"
	MethodCommunityRated   PricingMethod = "COMMUNITY_RATED"
	MethodASO              PricingMethod = "ASO"
)

type MemberType string

const (
	MemberEmployee MemberType = "EMPLOYEE"
	MemberSpouse   MemberType = "SPOUSE"
	MemberChild    MemberType = "CHILD"
)

type MemberStatus string

const (
	MemberActive     MemberStatus = "ACTIVE"
	MemberTerminated MemberStatus = "TERMINATED"
)

type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepApproved StepStatus = "APPROVED"
	StepRejected StepStatus = "REJECTED"
	StepRevision StepStatus = "REVISION"
)

// =============================================================================
// POLICY CONFIGURATION
// =============================================================================

// PolicyConfig is one quote and, once approved, one policy.
//
// Status transitions: DRAFT -> QUOTED -> APPROVED -> ACTIVE -> EXPIRED|CANCELLED.
// The policy number is minted exactly once, on transition to APPROVED.
type PolicyConfig struct {
	ID           ConfigID
	QuoteNumber  string
	PolicyNumber string // empty until APPROVED

	CompanyName      string
	IndustryType     string
	ParticipantCount int
	ClassCount       int

	CoverageStart time.Time
	CoverageEnd   time.Time

	PricingMethod PricingMethod
	Status        Status

	// Cached totals, updated atomically with each saved calculation.
	TotalBasePremium      decimal.Decimal
	TotalFactorMultiplier decimal.Decimal
	TotalAdjustedPremium  decimal.Decimal

	CreatedBy  string
	ApprovedBy string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ApprovedAt *time.Time
}

// CoverageDays returns the coverage period length in days.
func (c PolicyConfig) CoverageDays() int {
	return int(c.CoverageEnd.Sub(c.CoverageStart).Hours() / 24)
}

// BenefitSelection records whether a benefit category is part of the quote
// and the loading factor applied when it is. (config, category) is unique.
type BenefitSelection struct {
	ConfigID       ConfigID
	Category       catalog.BenefitCategory
	TemplateCode   string // empty when no template is effective for the category
	IsSelected     bool
	CategoryFactor decimal.Decimal // 1.000 when not selected
}

// TCSelection records the chosen option for one T&C factor.
// AppliedMultiplier is copied from the option at selection time so that a
// catalog reload cannot silently reprice an existing quote.
type TCSelection struct {
	ConfigID          ConfigID
	FactorCode        string
	OptionValue       string
	AppliedMultiplier decimal.Decimal
}

// BenefitOverride is a per-quote customization of one benefit limit.
type BenefitOverride struct {
	ConfigID      ConfigID
	BenefitCode   string
	OriginalLimit decimal.Decimal
	OverrideLimit decimal.Decimal
	Reason        string
}

// =============================================================================
// MEMBERS
// =============================================================================

// Member is one enrolled person. MemberNumber is 1-based and dense per
// config; the parent's ParticipantCount always equals the ACTIVE count.
type Member struct {
	ID           MemberID
	ConfigID     ConfigID
	MemberNumber int

	FullName    string
	DateOfBirth time.Time
	Gender      catalog.Gender
	MemberType  MemberType
	Relation    string
	ClassCode   string

	AgeBand     string
	BasePremium decimal.Decimal

	EnrollmentDate  time.Time
	TerminationDate *time.Time
	Status          MemberStatus
}

// AgeOn returns the member's age in whole years on the given date.
func (m Member) AgeOn(on time.Time) int {
	age := on.Year() - m.DateOfBirth.Year()
	if on.Month() < m.DateOfBirth.Month() ||
		(on.Month() == m.DateOfBirth.Month() && on.Day() < m.DateOfBirth.Day()) {
		age--
	}
	return age
}

// AgeBandFor returns the display age band used on quote documents.
func AgeBandFor(age int) string {
	switch {
	case age < 18:
		return "CHILD"
	case age <= 55:
		return "0-55"
	case age <= 60:
		return "56-60"
	case age <= 65:
		return "61-65"
	case age <= 70:
		return "66-70"
	case age <= 75:
		return "71-75"
	default:
		return "76+"
	}
}

// =============================================================================
// CALCULATION RESULTS & LOG
// =============================================================================

// PremiumBreakdown is the arithmetic trail of one calculation.
// All fields keep full precision except TotalPremium, which is the half-up
// 2dp presentation value.
type PremiumBreakdown struct {
	BasePremium     decimal.Decimal
	TotalMultiplier decimal.Decimal
	AdjustedPremium decimal.Decimal
	AdminFee        decimal.Decimal
	TPAFee          decimal.Decimal
	TotalPremium    decimal.Decimal
}

// MemberPremiumDetail is one member's line in a calculation result.
type MemberPremiumDetail struct {
	MemberID    MemberID
	Name        string
	Age         int
	Gender      catalog.Gender
	BasePremium decimal.Decimal
}

// FactorBreakdown itemizes every multiplier that contributed to the total.
type FactorBreakdown struct {
	BenefitFactors  map[string]decimal.Decimal // by category
	TCFactors       map[string]TCFactorDetail  // by factor code
	TotalMultiplier decimal.Decimal
}

type TCFactorDetail struct {
	Name       string
	Option     string
	Multiplier decimal.Decimal
}

// CalculationResult is the full output of CalculatePremium.
type CalculationResult struct {
	ConfigID         ConfigID
	CalculatedAt     time.Time
	CompanyName      string
	ParticipantCount int
	CoverageStart    time.Time
	CoverageEnd      time.Time
	CoverageDays     int

	Breakdown        PremiumBreakdown
	MonthlyPremium   decimal.Decimal // total / 12, not re-rounded
	PerMemberAverage decimal.Decimal // total / participants, 0 when empty
	Factors          FactorBreakdown
	MemberDetails    []MemberPremiumDetail
}

// CalculationLog is the append-only audit row for one saved calculation.
// Snapshot fields are stored as JSON blobs; everything numeric is decimal.
type CalculationLog struct {
	ID           string
	ConfigID     ConfigID
	CalculatedAt time.Time

	ParticipantCount int
	SelectedBenefits map[string]bool   // category -> selected
	SelectedFactors  map[string]string // factor code -> option value

	BasePremiumTotal decimal.Decimal
	FactorDetails    FactorBreakdown
	TotalMultiplier  decimal.Decimal
	MonthlyPremium   decimal.Decimal
	AnnualPremium    decimal.Decimal
	AdminFee         decimal.Decimal
	TPAFee           decimal.Decimal
	TotalPremium     decimal.Decimal

	CalculatedBy string
}

// =============================================================================
// APPROVAL WORKFLOW
// =============================================================================

// WorkflowStep is one approval gate. Steps are created at submission for
// every threshold the adjusted premium meets; (config, step_order) is unique.
type WorkflowStep struct {
	ID        string
	ConfigID  ConfigID
	StepName  string
	StepOrder int

	Status     StepStatus
	ApproverID string
	ApprovedAt *time.Time
	Comments   string

	PremiumThreshold decimal.Decimal
}

// ImportRecord is one row of a bulk member import.
type ImportRecord struct {
	FullName    string
	DateOfBirth string // YYYY-MM-DD
	Gender      string
	MemberType  string
	Relation    string
	ClassCode   string
}

// ImportError records a failed import row. Rows are 1-based.
type ImportError struct {
	Row   int
	Error string
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Imported []Member
	Errors   []ImportError
	// Premium is the recalculation performed after the import, nil when
	// no member was added.
	Premium *CalculationResult
}
