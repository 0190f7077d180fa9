/*
rules_category.go - Category-specific validation rules

PURPOSE:
  Rules that only run for claims in a particular benefit category:
  hospitalization windows and inpatient limits, outpatient visit caps,
  and the per-category eligibility checks.

  Several codes are registered as reserved placeholders: the rule exists
  so the code is claimed and the category wiring is exercised, but the
  underlying data (room classes, surgery schedules, package definitions)
  is not modeled yet. Placeholders return nil, which aggregates as a
  silent pass.

SEE ALSO:
  - rules.go: Base rules and conventions
*/
package claims

import (
	"fmt"
	"time"

	"github.com/medena/grouphealth/catalog"
)

func inpatient() map[catalog.BenefitCategory]bool {
	return map[catalog.BenefitCategory]bool{catalog.CategoryInpatient: true}
}

func outpatient() map[catalog.BenefitCategory]bool {
	return map[catalog.BenefitCategory]bool{catalog.CategoryOutpatient: true}
}

func only(c catalog.BenefitCategory) map[catalog.BenefitCategory]bool {
	return map[catalog.BenefitCategory]bool{c: true}
}

func categoryRules() []Rule {
	return []Rule{
		{Code: "VAL011", Name: "Room Upgrade", Categories: inpatient(), Fn: ruleRoomUpgrade},
		{Code: "VAL012", Name: "Surgery Classification", Categories: inpatient(), Fn: ruleSurgeryClass},
		{Code: "VAL013", Name: "Hospitalization Window", Categories: inpatient(), Fn: ruleHospitalizationWindow},
		{Code: "VAL014", Name: "ICU Limits", Categories: inpatient(), Fn: ruleICULimits},
		{Code: "VAL015", Name: "Recovery Period", Categories: inpatient(), Fn: ruleRecoveryPeriod},
		{Code: "VAL016", Name: "Visit Limits", Categories: outpatient(), Fn: ruleVisitLimits},
		{Code: "VAL017", Name: "Package Benefits", Categories: outpatient(), Fn: rulePackageBenefits},
		{Code: "VAL018", Name: "Referral Requirement", Categories: outpatient(), Fn: ruleReferral},
		{Code: "VAL019", Name: "Maternity Eligibility", Categories: only(catalog.CategoryMaternity), Fn: ruleMaternityEligibility},
		{Code: "VAL020", Name: "Dental Classification", Categories: only(catalog.CategoryDental), Fn: ruleDentalClass},
		{Code: "VAL021", Name: "Optical Cycle", Categories: only(catalog.CategoryOptical), Fn: ruleOpticalCycle},
		{Code: "VAL022", Name: "Session Limits", Categories: only(catalog.CategoryMentalHealth), Fn: ruleSessionLimits},
	}
}

// ruleHospitalizationWindow requires the service date to fall inside
// [admission - pre_days, discharge + post_days] when the benefit sets
// those windows and the episode dates are known.
func ruleHospitalizationWindow(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	if benefit.PreHospitalizationDays == nil && benefit.PostHospitalizationDays == nil {
		return nil
	}
	if cc.Claim.AdmissionDate == nil || cc.Claim.DischargeDate == nil {
		return nil
	}

	windowStart := *cc.Claim.AdmissionDate
	if benefit.PreHospitalizationDays != nil {
		windowStart = windowStart.AddDate(0, 0, -*benefit.PreHospitalizationDays)
	}
	windowEnd := *cc.Claim.DischargeDate
	if benefit.PostHospitalizationDays != nil {
		windowEnd = windowEnd.AddDate(0, 0, *benefit.PostHospitalizationDays)
	}

	service := cc.Claim.ServiceDate
	if service.Before(windowStart) || service.After(windowEnd) {
		return &ValidationResult{
			RuleCode: "VAL013", RuleName: "Hospitalization Window",
			Status: StatusFailed,
			Message: fmt.Sprintf("service date %s outside hospitalization window %s to %s",
				service.Format("2006-01-02"),
				windowStart.Format("2006-01-02"),
				windowEnd.Format("2006-01-02")),
			Details: map[string]any{
				"window_start": windowStart.Format(time.RFC3339),
				"window_end":   windowEnd.Format(time.RFC3339),
			},
		}
	}
	return nil
}

// ruleVisitLimits rejects outpatient claims once the annual visit cap is
// reached.
func ruleVisitLimits(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	if benefit.MaxVisitsPerYear == nil {
		return nil
	}
	if cc.Accumulator.UsedCount >= *benefit.MaxVisitsPerYear {
		return &ValidationResult{
			RuleCode: "VAL016", RuleName: "Visit Limits",
			Status: StatusFailed,
			Message: fmt.Sprintf("annual visit limit reached: %d of %d visits used",
				cc.Accumulator.UsedCount, *benefit.MaxVisitsPerYear),
			Details: map[string]any{
				"used_visits": cc.Accumulator.UsedCount,
				"max_visits":  *benefit.MaxVisitsPerYear,
			},
		}
	}
	return nil
}

// Reserved placeholders. Room classes, surgery schedules, referral chains,
// and the per-category cycle data are not modeled yet.

func ruleRoomUpgrade(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

func ruleSurgeryClass(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

func ruleICULimits(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

func ruleRecoveryPeriod(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

func rulePackageBenefits(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

func ruleReferral(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

func ruleMaternityEligibility(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

func ruleDentalClass(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

func ruleOpticalCycle(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

func ruleSessionLimits(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}
