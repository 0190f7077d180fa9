/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Internally every amount is a decimal.Decimal. At the API boundary
  amounts serialize as JSON numbers via InexactFloat64; the authoritative
  values stay in the store with full precision.

VALIDATION:
  Validation is done in the engines, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - pricing/types.go, claims/types.go: Domain shapes these mirror
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/medena/grouphealth/claims"
	"github.com/medena/grouphealth/pricing"
)

// =============================================================================
// CONFIGURATION TYPES
// =============================================================================

// ConfigurationDTO represents a policy configuration in API responses.
type ConfigurationDTO struct {
	ID               string  `json:"id"`
	QuoteNumber      string  `json:"quote_number"`
	PolicyNumber     string  `json:"policy_number,omitempty"`
	CompanyName      string  `json:"company_name"`
	IndustryType     string  `json:"industry_type,omitempty"`
	ParticipantCount int     `json:"participant_count"`
	ClassCount       int     `json:"class_count"`
	CoverageStart    string  `json:"coverage_start"`
	CoverageEnd      string  `json:"coverage_end"`
	PricingMethod    string  `json:"pricing_method"`
	Status           string  `json:"status"`
	TotalBasePremium float64 `json:"total_base_premium"`
	TotalMultiplier  float64 `json:"total_factor_multiplier"`
	TotalAdjusted    float64 `json:"total_adjusted_premium"`
	CreatedBy        string  `json:"created_by,omitempty"`
	ApprovedBy       string  `json:"approved_by,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
	ApprovedAt       *string `json:"approved_at,omitempty"`
}

// CreateConfigurationRequest is the request to create a configuration.
type CreateConfigurationRequest struct {
	CompanyName      string `json:"company_name"`
	IndustryType     string `json:"industry_type"`
	ParticipantCount int    `json:"participant_count"`
	ClassCount       int    `json:"class_count"`
	CoverageStart    string `json:"coverage_start"` // YYYY-MM-DD
	CoverageEnd      string `json:"coverage_end"`   // YYYY-MM-DD
	PricingMethod    string `json:"pricing_method"`
	CreatedBy        string `json:"created_by"`
}

// =============================================================================
// BENEFIT & T&C TYPES
// =============================================================================

// BenefitSelectionDTO represents one benefit category choice.
type BenefitSelectionDTO struct {
	Category       string  `json:"category"`
	TemplateCode   string  `json:"template_code,omitempty"`
	IsSelected     bool    `json:"is_selected"`
	CategoryFactor float64 `json:"category_factor"`
}

// ToggleBenefitRequest selects or deselects one category.
type ToggleBenefitRequest struct {
	Category   string `json:"category"`
	IsSelected bool   `json:"is_selected"`
}

// OverrideLimitRequest customizes one benefit limit for the quote.
type OverrideLimitRequest struct {
	BenefitCode string  `json:"benefit_code"`
	NewLimit    float64 `json:"new_limit"`
	Reason      string  `json:"reason"`
}

// BenefitOverrideDTO represents one saved limit override.
type BenefitOverrideDTO struct {
	BenefitCode   string  `json:"benefit_code"`
	OriginalLimit float64 `json:"original_limit"`
	OverrideLimit float64 `json:"override_limit"`
	Reason        string  `json:"reason,omitempty"`
}

// TCSelectionDTO represents one chosen T&C option.
type TCSelectionDTO struct {
	FactorCode        string  `json:"factor_code"`
	OptionValue       string  `json:"option_value"`
	AppliedMultiplier float64 `json:"applied_multiplier"`
}

// UpdateFactorRequest switches one T&C factor to a different option.
type UpdateFactorRequest struct {
	FactorCode  string `json:"factor_code"`
	OptionValue string `json:"option_value"`
}

// UpdateFactorResponse returns the saved selection plus the premium the
// update triggered.
type UpdateFactorResponse struct {
	Selection TCSelectionDTO     `json:"selection"`
	Premium   *PremiumCalcDTO    `json:"premium_update,omitempty"`
}

// =============================================================================
// MEMBER TYPES
// =============================================================================

// MemberDTO represents one enrolled member.
type MemberDTO struct {
	ID              string  `json:"id"`
	MemberNumber    int     `json:"member_number"`
	FullName        string  `json:"full_name"`
	DateOfBirth     string  `json:"date_of_birth"`
	Gender          string  `json:"gender"`
	MemberType      string  `json:"member_type"`
	Relation        string  `json:"relation,omitempty"`
	ClassCode       string  `json:"class_code"`
	AgeBand         string  `json:"age_band,omitempty"`
	BasePremium     float64 `json:"base_premium"`
	EnrollmentDate  string  `json:"enrollment_date"`
	TerminationDate *string `json:"termination_date,omitempty"`
	Status          string  `json:"status"`
}

// AddMemberRequest enrolls one member.
type AddMemberRequest struct {
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD
	Gender      string `json:"gender"`
	MemberType  string `json:"member_type"`
	Relation    string `json:"relation"`
	ClassCode   string `json:"class_code"`
}

// ImportResultDTO summarizes a bulk member import.
type ImportResultDTO struct {
	ImportedCount int              `json:"imported_count"`
	ErrorCount    int              `json:"error_count"`
	Errors        []ImportErrorDTO `json:"errors"`
	PremiumUpdate *PremiumCalcDTO  `json:"premium_update,omitempty"`
}

// ImportErrorDTO is one failed import row. Rows are 1-based.
type ImportErrorDTO struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// =============================================================================
// CALCULATION TYPES
// =============================================================================

// PremiumCalcDTO is the full premium calculation response.
type PremiumCalcDTO struct {
	ConfigID         string  `json:"config_id"`
	CalculatedAt     string  `json:"calculated_at"`
	CompanyName      string  `json:"company_name"`
	ParticipantCount int     `json:"participant_count"`
	CoverageStart    string  `json:"coverage_start"`
	CoverageEnd      string  `json:"coverage_end"`
	CoverageDays     int     `json:"coverage_days"`

	BasePremium      float64 `json:"base_premium"`
	TotalMultiplier  float64 `json:"total_multiplier"`
	AdjustedPremium  float64 `json:"adjusted_premium"`
	AdminFee         float64 `json:"admin_fee"`
	TPAFee           float64 `json:"tpa_fee"`
	TotalPremium     float64 `json:"total_premium"`
	MonthlyPremium   float64 `json:"monthly_premium"`
	PerMemberAverage float64 `json:"per_member_average"`

	Factors FactorBreakdownDTO `json:"factors"`
	Members []MemberPremiumDTO `json:"member_details,omitempty"`
}

// FactorBreakdownDTO itemizes every applied multiplier.
type FactorBreakdownDTO struct {
	BenefitFactors  map[string]float64       `json:"benefit_factors"`
	TCFactors       map[string]TCFactorDTO   `json:"tc_factors"`
	TotalMultiplier float64                  `json:"total_multiplier"`
}

type TCFactorDTO struct {
	Name       string  `json:"name"`
	Option     string  `json:"option"`
	Multiplier float64 `json:"multiplier"`
}

// MemberPremiumDTO is one member's line in a calculation.
type MemberPremiumDTO struct {
	MemberID    string  `json:"member_id"`
	Name        string  `json:"name"`
	Age         int     `json:"age"`
	Gender      string  `json:"gender"`
	BasePremium float64 `json:"base_premium"`
}

// CalculationLogDTO is one audit row of the calculation history.
type CalculationLogDTO struct {
	ID               string            `json:"id"`
	CalculatedAt     string            `json:"calculated_at"`
	ParticipantCount int               `json:"participant_count"`
	SelectedBenefits map[string]bool   `json:"selected_benefits"`
	SelectedFactors  map[string]string `json:"selected_factors"`
	BasePremiumTotal float64           `json:"base_premium_total"`
	TotalMultiplier  float64           `json:"total_multiplier"`
	MonthlyPremium   float64           `json:"monthly_premium"`
	AnnualPremium    float64           `json:"annual_premium"`
	AdminFee         float64           `json:"admin_fee"`
	TPAFee           float64           `json:"tpa_fee"`
	TotalPremium     float64           `json:"total_premium"`
	CalculatedBy     string            `json:"calculated_by,omitempty"`
}

// =============================================================================
// WORKFLOW TYPES
// =============================================================================

// SubmitRequest moves a DRAFT configuration to QUOTED.
type SubmitRequest struct {
	SubmittedBy string `json:"submitted_by"`
}

// ApprovalActionRequest approves, rejects, or sends back one step.
type ApprovalActionRequest struct {
	ApproverID string `json:"approver_id"`
	StepName   string `json:"step_name"`
	Comments   string `json:"comments"`
}

// WorkflowStepDTO represents one approval gate.
type WorkflowStepDTO struct {
	ID               string  `json:"id"`
	StepName         string  `json:"step_name"`
	StepOrder        int     `json:"step_order"`
	Status           string  `json:"status"`
	ApproverID       string  `json:"approver_id,omitempty"`
	ApprovedAt       *string `json:"approved_at,omitempty"`
	Comments         string  `json:"comments,omitempty"`
	PremiumThreshold float64 `json:"premium_threshold"`
}

// =============================================================================
// CLAIMS TYPES
// =============================================================================

// ValidateClaimRequest carries a claim plus the member/coverage context the
// caller resolved. The accumulator snapshot and prior-claim history are
// loaded server-side.
type ValidateClaimRequest struct {
	ClaimID       string   `json:"claim_id"`
	MemberID      string   `json:"member_id"`
	BenefitCode   string   `json:"benefit_code"`
	ServiceDate   string   `json:"service_date"` // YYYY-MM-DD
	ClaimedAmount float64  `json:"claimed_amount"`
	Channel       string   `json:"channel"`
	Diagnoses     []string `json:"diagnosis_codes"`
	IsEmergency   bool     `json:"is_emergency"`
	HasPreauth    bool     `json:"has_preauth"`
	PreauthNumber string   `json:"preauth_number"`
	AdmissionDate string   `json:"admission_date,omitempty"` // YYYY-MM-DD
	DischargeDate string   `json:"discharge_date,omitempty"` // YYYY-MM-DD

	MemberAge     int    `json:"member_age"`
	Gender        string `json:"gender"`
	MemberSince   string `json:"member_since"`   // YYYY-MM-DD
	CoverageStart string `json:"coverage_start"` // YYYY-MM-DD
	CoverageEnd   string `json:"coverage_end"`   // YYYY-MM-DD
}

// ValidateClaimResponse is the validation verdict.
type ValidateClaimResponse struct {
	ClaimID           string                `json:"claim_id"`
	Results           []ValidationResultDTO `json:"results"`
	CanAutoAdjudicate bool                  `json:"can_auto_adjudicate"`
	PendReasons       []string              `json:"pend_reasons,omitempty"`
	AllowedAmount     float64               `json:"allowed_amount"`
}

// ValidationResultDTO is one rule's verdict.
type ValidationResultDTO struct {
	RuleCode               string         `json:"rule_code"`
	RuleName               string         `json:"rule_name"`
	Status                 string         `json:"status"`
	Message                string         `json:"message,omitempty"`
	Details                map[string]any `json:"details,omitempty"`
	CanOverride            bool           `json:"can_override"`
	RequiredAuthorityLevel int            `json:"required_authority_level,omitempty"`
}

// AccumulateRequest applies one claim to an accumulator. Retries with the
// same claim_id are no-ops.
type AccumulateRequest struct {
	MemberID    string  `json:"member_id"`
	BenefitCode string  `json:"benefit_code"`
	PeriodStart string  `json:"period_start"` // YYYY-MM-DD
	PeriodEnd   string  `json:"period_end"`   // YYYY-MM-DD
	ClaimID     string  `json:"claim_id"`
	Amount      float64 `json:"amount"`
}

// AccumulatorDTO is the accumulator state after an application.
type AccumulatorDTO struct {
	MemberID    string  `json:"member_id"`
	BenefitCode string  `json:"benefit_code"`
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	UsedAmount  float64 `json:"used_amount"`
	UsedCount   int     `json:"used_count"`
	UpdatedAt   string  `json:"updated_at"`
}

// =============================================================================
// QUOTE DOCUMENT TYPES
// =============================================================================

// QuoteDocumentDTO is the printable quote document.
type QuoteDocumentDTO struct {
	QuoteNumber      string  `json:"quote_number"`
	PolicyNumber     string  `json:"policy_number,omitempty"`
	GeneratedAt      string  `json:"generated_at"`
	ValidUntil       string  `json:"valid_until"`
	CompanyName      string  `json:"company_name"`
	IndustryType     string  `json:"industry_type,omitempty"`
	ParticipantCount int     `json:"participant_count"`
	CoverageStart    string  `json:"coverage_start"`
	CoverageEnd      string  `json:"coverage_end"`
	Status           string  `json:"status"`

	Benefits   []QuoteBenefitDTO  `json:"benefits"`
	Terms      []QuoteTermDTO     `json:"terms"`
	Census     []CensusBandDTO    `json:"census"`
	AverageAge float64            `json:"average_age"`
	Premium    *PremiumSummaryDTO `json:"premium,omitempty"`
	Monthly    float64            `json:"monthly_premium"`
}

type QuoteBenefitDTO struct {
	Category       string   `json:"category"`
	TemplateCode   string   `json:"template_code,omitempty"`
	CategoryFactor float64  `json:"category_factor"`
	OverrideLimit  *float64 `json:"override_limit,omitempty"`
	OverrideReason string   `json:"override_reason,omitempty"`
}

type QuoteTermDTO struct {
	FactorCode string  `json:"factor_code"`
	FactorName string  `json:"factor_name,omitempty"`
	Option     string  `json:"option"`
	Multiplier float64 `json:"multiplier"`
	ImpactPct  float64 `json:"impact_pct"`
}

type CensusBandDTO struct {
	AgeBand string `json:"age_band"`
	Males   int    `json:"males"`
	Females int    `json:"females"`
	Total   int    `json:"total"`
}

// PremiumSummaryDTO is the premium section of the quote document.
type PremiumSummaryDTO struct {
	BasePremium     float64 `json:"base_premium"`
	TotalMultiplier float64 `json:"total_multiplier"`
	AdjustedPremium float64 `json:"adjusted_premium"`
	AdminFee        float64 `json:"admin_fee"`
	TPAFee          float64 `json:"tpa_fee"`
	TotalPremium    float64 `json:"total_premium"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DOMAIN -> DTO CONVERSIONS
// =============================================================================

func toConfigurationDTO(cfg pricing.PolicyConfig) ConfigurationDTO {
	dto := ConfigurationDTO{
		ID:               string(cfg.ID),
		QuoteNumber:      cfg.QuoteNumber,
		PolicyNumber:     cfg.PolicyNumber,
		CompanyName:      cfg.CompanyName,
		IndustryType:     cfg.IndustryType,
		ParticipantCount: cfg.ParticipantCount,
		ClassCount:       cfg.ClassCount,
		CoverageStart:    cfg.CoverageStart.Format("2006-01-02"),
		CoverageEnd:      cfg.CoverageEnd.Format("2006-01-02"),
		PricingMethod:    string(cfg.PricingMethod),
		Status:           string(cfg.Status),
		TotalBasePremium: cfg.TotalBasePremium.InexactFloat64(),
		TotalMultiplier:  cfg.TotalFactorMultiplier.InexactFloat64(),
		TotalAdjusted:    cfg.TotalAdjustedPremium.InexactFloat64(),
		CreatedBy:        cfg.CreatedBy,
		ApprovedBy:       cfg.ApprovedBy,
		CreatedAt:        cfg.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        cfg.UpdatedAt.Format(time.RFC3339),
	}
	if cfg.ApprovedAt != nil {
		s := cfg.ApprovedAt.Format(time.RFC3339)
		dto.ApprovedAt = &s
	}
	return dto
}

func toBenefitSelectionDTO(sel pricing.BenefitSelection) BenefitSelectionDTO {
	return BenefitSelectionDTO{
		Category:       string(sel.Category),
		TemplateCode:   sel.TemplateCode,
		IsSelected:     sel.IsSelected,
		CategoryFactor: sel.CategoryFactor.InexactFloat64(),
	}
}

func toTCSelectionDTO(sel pricing.TCSelection) TCSelectionDTO {
	return TCSelectionDTO{
		FactorCode:        sel.FactorCode,
		OptionValue:       sel.OptionValue,
		AppliedMultiplier: sel.AppliedMultiplier.InexactFloat64(),
	}
}

func toMemberDTO(m pricing.Member) MemberDTO {
	dto := MemberDTO{
		ID:             string(m.ID),
		MemberNumber:   m.MemberNumber,
		FullName:       m.FullName,
		DateOfBirth:    m.DateOfBirth.Format("2006-01-02"),
		Gender:         string(m.Gender),
		MemberType:     string(m.MemberType),
		Relation:       m.Relation,
		ClassCode:      m.ClassCode,
		AgeBand:        m.AgeBand,
		BasePremium:    m.BasePremium.InexactFloat64(),
		EnrollmentDate: m.EnrollmentDate.Format("2006-01-02"),
		Status:         string(m.Status),
	}
	if m.TerminationDate != nil {
		s := m.TerminationDate.Format("2006-01-02")
		dto.TerminationDate = &s
	}
	return dto
}

func toPremiumCalcDTO(res pricing.CalculationResult) PremiumCalcDTO {
	dto := PremiumCalcDTO{
		ConfigID:         string(res.ConfigID),
		CalculatedAt:     res.CalculatedAt.Format(time.RFC3339),
		CompanyName:      res.CompanyName,
		ParticipantCount: res.ParticipantCount,
		CoverageStart:    res.CoverageStart.Format("2006-01-02"),
		CoverageEnd:      res.CoverageEnd.Format("2006-01-02"),
		CoverageDays:     res.CoverageDays,
		BasePremium:      res.Breakdown.BasePremium.InexactFloat64(),
		TotalMultiplier:  res.Breakdown.TotalMultiplier.InexactFloat64(),
		AdjustedPremium:  res.Breakdown.AdjustedPremium.InexactFloat64(),
		AdminFee:         res.Breakdown.AdminFee.InexactFloat64(),
		TPAFee:           res.Breakdown.TPAFee.InexactFloat64(),
		TotalPremium:     res.Breakdown.TotalPremium.InexactFloat64(),
		MonthlyPremium:   res.MonthlyPremium.InexactFloat64(),
		PerMemberAverage: res.PerMemberAverage.InexactFloat64(),
		Factors:          toFactorBreakdownDTO(res.Factors),
	}
	for _, m := range res.MemberDetails {
		dto.Members = append(dto.Members, MemberPremiumDTO{
			MemberID:    string(m.MemberID),
			Name:        m.Name,
			Age:         m.Age,
			Gender:      string(m.Gender),
			BasePremium: m.BasePremium.InexactFloat64(),
		})
	}
	return dto
}

func toFactorBreakdownDTO(fb pricing.FactorBreakdown) FactorBreakdownDTO {
	dto := FactorBreakdownDTO{
		BenefitFactors:  make(map[string]float64, len(fb.BenefitFactors)),
		TCFactors:       make(map[string]TCFactorDTO, len(fb.TCFactors)),
		TotalMultiplier: fb.TotalMultiplier.InexactFloat64(),
	}
	for k, v := range fb.BenefitFactors {
		dto.BenefitFactors[k] = v.InexactFloat64()
	}
	for k, v := range fb.TCFactors {
		dto.TCFactors[k] = TCFactorDTO{Name: v.Name, Option: v.Option, Multiplier: v.Multiplier.InexactFloat64()}
	}
	return dto
}

func toCalculationLogDTO(l pricing.CalculationLog) CalculationLogDTO {
	return CalculationLogDTO{
		ID:               l.ID,
		CalculatedAt:     l.CalculatedAt.Format(time.RFC3339),
		ParticipantCount: l.ParticipantCount,
		SelectedBenefits: l.SelectedBenefits,
		SelectedFactors:  l.SelectedFactors,
		BasePremiumTotal: l.BasePremiumTotal.InexactFloat64(),
		TotalMultiplier:  l.TotalMultiplier.InexactFloat64(),
		MonthlyPremium:   l.MonthlyPremium.InexactFloat64(),
		AnnualPremium:    l.AnnualPremium.InexactFloat64(),
		AdminFee:         l.AdminFee.InexactFloat64(),
		TPAFee:           l.TPAFee.InexactFloat64(),
		TotalPremium:     l.TotalPremium.InexactFloat64(),
		CalculatedBy:     l.CalculatedBy,
	}
}

func toWorkflowStepDTO(step pricing.WorkflowStep) WorkflowStepDTO {
	dto := WorkflowStepDTO{
		ID:               step.ID,
		StepName:         step.StepName,
		StepOrder:        step.StepOrder,
		Status:           string(step.Status),
		ApproverID:       step.ApproverID,
		Comments:         step.Comments,
		PremiumThreshold: step.PremiumThreshold.InexactFloat64(),
	}
	if step.ApprovedAt != nil {
		s := step.ApprovedAt.Format(time.RFC3339)
		dto.ApprovedAt = &s
	}
	return dto
}

func toValidationResultDTOs(results []claims.ValidationResult) []ValidationResultDTO {
	dtos := make([]ValidationResultDTO, len(results))
	for i, r := range results {
		dtos[i] = ValidationResultDTO{
			RuleCode:               r.RuleCode,
			RuleName:               r.RuleName,
			Status:                 string(r.Status),
			Message:                r.Message,
			Details:                r.Details,
			CanOverride:            r.CanOverride,
			RequiredAuthorityLevel: r.RequiredAuthorityLevel,
		}
	}
	return dtos
}

func toQuoteDocumentDTO(doc pricing.QuoteDocument) QuoteDocumentDTO {
	dto := QuoteDocumentDTO{
		QuoteNumber:      doc.QuoteNumber,
		PolicyNumber:     doc.PolicyNumber,
		GeneratedAt:      doc.GeneratedAt.Format(time.RFC3339),
		ValidUntil:       doc.ValidUntil.Format("2006-01-02"),
		CompanyName:      doc.CompanyName,
		IndustryType:     doc.IndustryType,
		ParticipantCount: doc.ParticipantCount,
		CoverageStart:    doc.CoverageStart.Format("2006-01-02"),
		CoverageEnd:      doc.CoverageEnd.Format("2006-01-02"),
		Status:           string(doc.Status),
		Benefits:         []QuoteBenefitDTO{},
		Terms:            []QuoteTermDTO{},
		Census:           []CensusBandDTO{},
		AverageAge:       doc.AverageAge.InexactFloat64(),
		Monthly:          doc.Monthly.InexactFloat64(),
	}
	for _, b := range doc.Benefits {
		line := QuoteBenefitDTO{
			Category:       b.Category,
			TemplateCode:   b.TemplateCode,
			CategoryFactor: b.CategoryFactor.InexactFloat64(),
			OverrideReason: b.OverrideReason,
		}
		if b.OverrideLimit != nil {
			f := b.OverrideLimit.InexactFloat64()
			line.OverrideLimit = &f
		}
		dto.Benefits = append(dto.Benefits, line)
	}
	for _, t := range doc.Terms {
		dto.Terms = append(dto.Terms, QuoteTermDTO{
			FactorCode: t.FactorCode,
			FactorName: t.FactorName,
			Option:     t.Option,
			Multiplier: t.Multiplier.InexactFloat64(),
			ImpactPct:  t.ImpactPct.InexactFloat64(),
		})
	}
	for _, c := range doc.Census {
		dto.Census = append(dto.Census, CensusBandDTO{
			AgeBand: c.AgeBand, Males: c.Males, Females: c.Females, Total: c.Total,
		})
	}
	if doc.Premium != nil {
		dto.Premium = &PremiumSummaryDTO{
			BasePremium:     doc.Premium.BasePremium.InexactFloat64(),
			TotalMultiplier: doc.Premium.TotalMultiplier.InexactFloat64(),
			AdjustedPremium: doc.Premium.AdjustedPremium.InexactFloat64(),
			AdminFee:        doc.Premium.AdminFee.InexactFloat64(),
			TPAFee:          doc.Premium.TPAFee.InexactFloat64(),
			TotalPremium:    doc.Premium.TotalPremium.InexactFloat64(),
		}
	}
	return dto
}

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
