/*
rules.go - Base validation rules applied to every claim

PURPOSE:
  The rules that run regardless of benefit category: demographic
  eligibility, waiting period, annual limit, pre-authorization, medical
  indication, exclusions, duplicate detection, prerequisites, and
  coinsurance splitting.

CONVENTIONS:
  - A rule returning nil passed silently and contributes no result
  - Rules only read the ClaimContext and BenefitConfiguration
  - Overridable verdicts carry the minimum operator authority level

SEE ALSO:
  - rules_category.go: INPATIENT/OUTPATIENT/etc. specific rules
  - engine.go: Execution and aggregation
*/
package claims

import (
	"fmt"

	"github.com/medena/grouphealth/catalog"
	"github.com/medena/grouphealth/money"
)

func baseRules() []Rule {
	return []Rule{
		{Code: "VAL001", Name: "Age Eligibility", Fn: ruleAgeEligibility},
		{Code: "VAL002", Name: "Waiting Period", Fn: ruleWaitingPeriod},
		{Code: "VAL003", Name: "Annual Limit", Fn: ruleAnnualLimit},
		{Code: "VAL004", Name: "Pre-Authorization", Fn: rulePreauth},
		{Code: "VAL005", Name: "Medical Indication", Fn: ruleMedicalIndication},
		{Code: "VAL006", Name: "Exclusions", Fn: ruleExclusions},
		{Code: "VAL007", Name: "Submission Channel", Fn: ruleChannel},
		{Code: "VAL008", Name: "Duplicate Claim", Fn: ruleDuplicate},
		{Code: "VAL009", Name: "Prerequisite Benefits", Fn: rulePrerequisites},
		{Code: "VAL010", Name: "Accumulator Validity", Fn: ruleAccumulatorValidity},
		{Code: "VAL023", Name: "ASO Fund Balance", Fn: ruleASOFunds},
		{Code: "VAL024", Name: "Buffer Fund Balance", Fn: ruleBufferFunds},
		{Code: "VAL025", Name: "Coinsurance Split", Fn: ruleCoinsurance},
	}
}

// ruleAgeEligibility rejects members outside the benefit's age window.
func ruleAgeEligibility(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	if benefit.MinAgeYears != nil && cc.MemberAge < *benefit.MinAgeYears {
		return &ValidationResult{
			RuleCode: "VAL001", RuleName: "Age Eligibility",
			Status:  StatusFailed,
			Message: fmt.Sprintf("member age %d below minimum %d for benefit %s", cc.MemberAge, *benefit.MinAgeYears, benefit.BenefitCode),
			Details: map[string]any{"member_age": cc.MemberAge, "min_age": *benefit.MinAgeYears},
		}
	}
	if benefit.MaxAgeYears != nil && cc.MemberAge > *benefit.MaxAgeYears {
		return &ValidationResult{
			RuleCode: "VAL001", RuleName: "Age Eligibility",
			Status:  StatusFailed,
			Message: fmt.Sprintf("member age %d above maximum %d for benefit %s", cc.MemberAge, *benefit.MaxAgeYears, benefit.BenefitCode),
			Details: map[string]any{"member_age": cc.MemberAge, "max_age": *benefit.MaxAgeYears},
		}
	}
	return nil
}

// ruleWaitingPeriod rejects claims serviced before the member's waiting
// period elapsed.
func ruleWaitingPeriod(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	if benefit.WaitingPeriodDays <= 0 {
		return nil
	}
	enrolled := int(cc.Claim.ServiceDate.Sub(cc.MemberSince).Hours() / 24)
	if enrolled < benefit.WaitingPeriodDays {
		return &ValidationResult{
			RuleCode: "VAL002", RuleName: "Waiting Period",
			Status: StatusFailed,
			Message: fmt.Sprintf("waiting period not met: %d of %d days since enrollment",
				enrolled, benefit.WaitingPeriodDays),
			Details: map[string]any{"days_enrolled": enrolled, "waiting_period_days": benefit.WaitingPeriodDays},
		}
	}
	return nil
}

// ruleAnnualLimit checks the claimed amount against the remaining annual
// limit. Exhausted limit fails outright; dipping past the remainder is an
// overridable warning.
func ruleAnnualLimit(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	if benefit.LimitValue == nil {
		return nil
	}
	limit := *benefit.LimitValue
	used := cc.Accumulator.UsedAmount

	if used.GreaterThanOrEqual(limit) {
		return &ValidationResult{
			RuleCode: "VAL003", RuleName: "Annual Limit",
			Status:  StatusFailed,
			Message: fmt.Sprintf("annual limit exhausted: used %s of %s", used, limit),
			Details: map[string]any{"limit": limit.String(), "used": used.String()},
		}
	}
	remaining := limit.Sub(used)
	if cc.Claim.ClaimedAmount.GreaterThan(remaining) {
		return &ValidationResult{
			RuleCode: "VAL003", RuleName: "Annual Limit",
			Status: StatusWarning,
			Message: fmt.Sprintf("claimed %s exceeds remaining annual limit %s",
				cc.Claim.ClaimedAmount, remaining),
			Details: map[string]any{
				"limit":     limit.String(),
				"used":      used.String(),
				"remaining": remaining.String(),
				"claimed":   cc.Claim.ClaimedAmount.String(),
			},
			CanOverride:            true,
			RequiredAuthorityLevel: 2,
		}
	}
	return nil
}

// rulePreauth fails claims missing a required pre-authorization.
// Emergencies are exempt.
func rulePreauth(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	if !benefit.RequiresPreauth || cc.Claim.IsEmergency || cc.Claim.HasPreauth {
		return nil
	}
	return &ValidationResult{
		RuleCode: "VAL004", RuleName: "Pre-Authorization",
		Status:                 StatusFailed,
		Message:                fmt.Sprintf("benefit %s requires pre-authorization", benefit.BenefitCode),
		Details:                map[string]any{"benefit_code": benefit.BenefitCode},
		CanOverride:            true,
		RequiredAuthorityLevel: 3,
	}
}

// ruleMedicalIndication enforces the medical-indication requirement. When
// the benefit carries an indication whitelist, at least one diagnosis must
// be on it.
func ruleMedicalIndication(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	if !benefit.RequiresMedicalIndication {
		return nil
	}
	if len(cc.Claim.DiagnosisCodes) == 0 {
		return &ValidationResult{
			RuleCode: "VAL005", RuleName: "Medical Indication",
			Status:  StatusFailed,
			Message: fmt.Sprintf("benefit %s requires a medical indication but no diagnosis was supplied", benefit.BenefitCode),
		}
	}
	if len(benefit.IndicationWhitelist) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(benefit.IndicationWhitelist))
	for _, code := range benefit.IndicationWhitelist {
		allowed[code] = true
	}
	for _, dx := range cc.Claim.DiagnosisCodes {
		if allowed[dx] {
			return nil
		}
	}
	return &ValidationResult{
		RuleCode: "VAL005", RuleName: "Medical Indication",
		Status: StatusFailed,
		Message: fmt.Sprintf("no diagnosis satisfies the medical indication for benefit %s",
			benefit.BenefitCode),
		Details: map[string]any{
			"diagnosis_codes":  cc.Claim.DiagnosisCodes,
			"accepted_as_indication": benefit.IndicationWhitelist,
		},
	}
}

// ruleExclusions fails the claim when any diagnosis is excluded.
func ruleExclusions(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	if len(benefit.Exclusions) == 0 {
		return nil
	}
	excluded := make(map[string]bool, len(benefit.Exclusions))
	for _, code := range benefit.Exclusions {
		excluded[code] = true
	}
	for _, dx := range cc.Claim.DiagnosisCodes {
		if excluded[dx] {
			return &ValidationResult{
				RuleCode: "VAL006", RuleName: "Exclusions",
				Status:  StatusFailed,
				Message: fmt.Sprintf("diagnosis %s is excluded for benefit %s", dx, benefit.BenefitCode),
				Details: map[string]any{"diagnosis": dx},
			}
		}
	}
	return nil
}

// ruleChannel validates the submission channel.
// Channel restrictions are not part of the benefit configuration yet; the
// rule is registered so its code stays reserved.
func ruleChannel(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

// ruleDuplicate warns when a prior claim carries the same fingerprint
// within the duplicate window.
func ruleDuplicate(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	fp := cc.Claim.Fingerprint()
	for _, prior := range cc.History {
		if prior.ClaimID == cc.Claim.ID || prior.Fingerprint != fp {
			continue
		}
		gap := cc.Claim.ServiceDate.Sub(prior.ServiceDate).Hours() / 24
		if gap < 0 {
			gap = -gap
		}
		if int(gap) <= duplicateWindowDays {
			return &ValidationResult{
				RuleCode: "VAL008", RuleName: "Duplicate Claim",
				Status: StatusWarning,
				Message: fmt.Sprintf("possible duplicate of claim %s serviced %s",
					prior.ClaimID, prior.ServiceDate.Format("2006-01-02")),
				Details: map[string]any{
					"prior_claim_id": prior.ClaimID,
					"days_apart":     int(gap),
					"fingerprint":    fp,
				},
				CanOverride:            true,
				RequiredAuthorityLevel: 2,
			}
		}
	}
	return nil
}

// rulePrerequisites requires every prerequisite benefit to appear as a
// passed claim within the same coverage period.
func rulePrerequisites(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	for _, required := range benefit.Prerequisites {
		if !hasPassedClaim(cc, required) {
			return &ValidationResult{
				RuleCode: "VAL009", RuleName: "Prerequisite Benefits",
				Status: StatusFailed,
				Message: fmt.Sprintf("prerequisite benefit %s has no passed claim in the coverage period",
					required),
				Details: map[string]any{"missing_prerequisite": required},
			}
		}
	}
	return nil
}

func hasPassedClaim(cc ClaimContext, benefitCode string) bool {
	for _, prior := range cc.History {
		if prior.BenefitCode != benefitCode || !prior.Passed {
			continue
		}
		if prior.ServiceDate.Before(cc.CoverageStart) || prior.ServiceDate.After(cc.CoverageEnd) {
			continue
		}
		return true
	}
	return false
}

// ruleAccumulatorValidity cross-checks the accumulator snapshot.
// The snapshot is assembled by the caller and trusted as-is for now.
func ruleAccumulatorValidity(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

// ruleASOFunds checks ASO fund balances. ASO fund ledgers are not
// modeled yet; the code is reserved.
func ruleASOFunds(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

// ruleBufferFunds checks buffer fund balances. Reserved, see ruleASOFunds.
func ruleBufferFunds(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	return nil
}

// ruleCoinsurance splits the claimed amount into member and payer
// liabilities when the benefit carries coinsurance.
func ruleCoinsurance(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult {
	if !benefit.CoinsurancePct.IsPositive() {
		return nil
	}
	memberShare := cc.Claim.ClaimedAmount.Mul(benefit.CoinsurancePct).Div(money.Hundred)
	payerShare := cc.Claim.ClaimedAmount.Sub(memberShare)
	return &ValidationResult{
		RuleCode: "VAL025", RuleName: "Coinsurance Split",
		Status: StatusPassed,
		Message: fmt.Sprintf("coinsurance %s%%: member %s, payer %s",
			benefit.CoinsurancePct, memberShare, payerShare),
		Details: map[string]any{
			"coinsurance_pct":  benefit.CoinsurancePct.String(),
			"member_liability": memberShare.String(),
			"payer_liability":  payerShare.String(),
		},
	}
}
