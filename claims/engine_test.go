package claims_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medena/grouphealth/catalog"
	"github.com/medena/grouphealth/claims"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(n int) *int { return &n }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// inpatientRoomBenefit mirrors a typical IP room-and-board configuration:
// 2M annual limit, 30-day waiting period, preauth required, 10% coinsurance.
func inpatientRoomBenefit() catalog.BenefitConfiguration {
	return catalog.BenefitConfiguration{
		BenefitCode:       "IP_ROOM",
		BenefitName:       "Inpatient Room & Board",
		Category:          catalog.CategoryInpatient,
		Coverage:          catalog.CoveragePerYear,
		SettlementPct:     dec("100"),
		CoinsurancePct:    dec("10"),
		LimitValue:        decPtr("2000000"),
		RequiresPreauth:   true,
		WaitingPeriodDays: 30,
	}
}

func happyContext() claims.ClaimContext {
	return claims.ClaimContext{
		Claim: claims.Claim{
			ID:            "clm-001",
			MemberID:      "mem-001",
			BenefitCode:   "IP_ROOM",
			ServiceDate:   date(2025, time.August, 15),
			ClaimedAmount: dec("1500000"),
			Channel:       claims.ChannelProvider,
			HasPreauth:    true,
		},
		MemberAge:     35,
		Gender:        catalog.GenderMale,
		MemberSince:   date(2025, time.January, 1),
		CoverageStart: date(2025, time.January, 1),
		CoverageEnd:   date(2025, time.December, 31),
	}
}

func resultFor(results []claims.ValidationResult, code string) (claims.ValidationResult, bool) {
	for _, r := range results {
		if r.RuleCode == code {
			return r, true
		}
	}
	return claims.ValidationResult{}, false
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestValidate_HappyPath(t *testing.T) {
	// GIVEN: 35-year-old member past the waiting period, preauth in hand,
	//        1.5M claimed against an untouched 2M limit
	// WHEN: Validating
	// THEN: No FAILED/WARNING/PENDING; coinsurance emits PASSED with the
	//       liability split; auto-adjudication allowed; allowed = 1.5M

	engine := claims.NewEngine()
	benefit := inpatientRoomBenefit()
	cc := happyContext()

	results := engine.Validate(context.Background(), cc, benefit)

	for _, r := range results {
		assert.Equal(t, claims.StatusPassed, r.Status,
			"rule %s: %s", r.RuleCode, r.Message)
	}

	coins, ok := resultFor(results, "VAL025")
	require.True(t, ok, "coinsurance result must be present")
	assert.Equal(t, claims.StatusPassed, coins.Status)
	assert.Equal(t, "150000", coins.Details["member_liability"])
	assert.Equal(t, "1350000", coins.Details["payer_liability"])

	assert.True(t, claims.CanAutoAdjudicate(results))
	assert.Empty(t, claims.PendReasons(results))

	allowed := claims.CalculateAllowedAmount(cc, benefit)
	assert.True(t, allowed.Equal(dec("1500000")), "allowed = %s", allowed)
}

func TestValidate_DuplicateAndLimitWarnings(t *testing.T) {
	// GIVEN: A prior claim with the identical fingerprint 10 days earlier
	//        and 1.8M already used against the 2M limit; 500k claimed
	// WHEN: Validating
	// THEN: Annual-limit WARNING and duplicate WARNING, both overridable at
	//       authority 2; no FAILED; auto-adjudication still allowed

	engine := claims.NewEngine()
	benefit := inpatientRoomBenefit()
	cc := happyContext()
	cc.Claim.ClaimedAmount = dec("500000")
	cc.Accumulator = claims.AccumulatorSnapshot{UsedAmount: dec("1800000"), UsedCount: 3}
	cc.History = []claims.PriorClaim{{
		ClaimID:     "clm-000",
		BenefitCode: "IP_ROOM",
		ServiceDate: cc.Claim.ServiceDate.AddDate(0, 0, -10),
		Amount:      cc.Claim.ClaimedAmount,
		Fingerprint: cc.Claim.Fingerprint(),
		Passed:      true,
	}}

	results := engine.Validate(context.Background(), cc, benefit)

	limit, ok := resultFor(results, "VAL003")
	require.True(t, ok)
	assert.Equal(t, claims.StatusWarning, limit.Status)
	assert.True(t, limit.CanOverride)
	assert.Equal(t, 2, limit.RequiredAuthorityLevel)
	assert.Contains(t, limit.Message, "200000", "message should surface the remaining limit")

	dup, ok := resultFor(results, "VAL008")
	require.True(t, ok)
	assert.Equal(t, claims.StatusWarning, dup.Status)
	assert.True(t, dup.CanOverride)
	assert.Equal(t, 2, dup.RequiredAuthorityLevel)

	for _, r := range results {
		assert.NotEqual(t, claims.StatusFailed, r.Status, "rule %s", r.RuleCode)
	}
	assert.True(t, claims.CanAutoAdjudicate(results))
}

// =============================================================================
// INDIVIDUAL RULES
// =============================================================================

func TestValidate_WaitingPeriodNotMet(t *testing.T) {
	engine := claims.NewEngine()
	benefit := inpatientRoomBenefit()
	cc := happyContext()
	cc.MemberSince = cc.Claim.ServiceDate.AddDate(0, 0, -10) // 10 of 30 days

	results := engine.Validate(context.Background(), cc, benefit)

	wp, ok := resultFor(results, "VAL002")
	require.True(t, ok)
	assert.Equal(t, claims.StatusFailed, wp.Status)
	assert.False(t, claims.CanAutoAdjudicate(results))
	assert.NotEmpty(t, claims.PendReasons(results))
}

func TestValidate_AgeBounds(t *testing.T) {
	engine := claims.NewEngine()
	benefit := inpatientRoomBenefit()
	benefit.MinAgeYears = intPtr(18)
	benefit.MaxAgeYears = intPtr(65)

	cc := happyContext()
	cc.MemberAge = 70

	results := engine.Validate(context.Background(), cc, benefit)
	age, ok := resultFor(results, "VAL001")
	require.True(t, ok)
	assert.Equal(t, claims.StatusFailed, age.Status)
}

func TestValidate_AnnualLimitExhausted(t *testing.T) {
	engine := claims.NewEngine()
	benefit := inpatientRoomBenefit()
	cc := happyContext()
	cc.Accumulator.UsedAmount = dec("2000000")

	results := engine.Validate(context.Background(), cc, benefit)
	limit, ok := resultFor(results, "VAL003")
	require.True(t, ok)
	assert.Equal(t, claims.StatusFailed, limit.Status)
	assert.False(t, claims.CanAutoAdjudicate(results))
}

func TestValidate_PreauthMissing(t *testing.T) {
	engine := claims.NewEngine()
	benefit := inpatientRoomBenefit()

	cc := happyContext()
	cc.Claim.HasPreauth = false

	results := engine.Validate(context.Background(), cc, benefit)
	pa, ok := resultFor(results, "VAL004")
	require.True(t, ok)
	assert.Equal(t, claims.StatusFailed, pa.Status)
	assert.True(t, pa.CanOverride)
	assert.Equal(t, 3, pa.RequiredAuthorityLevel)

	// Emergencies are exempt.
	cc.Claim.IsEmergency = true
	results = engine.Validate(context.Background(), cc, benefit)
	_, ok = resultFor(results, "VAL004")
	assert.False(t, ok, "emergency claims skip the preauth rule")
}

func TestValidate_MedicalIndicationWhitelist(t *testing.T) {
	// GIVEN: A circumcision-class benefit accepting only specific codes
	engine := claims.NewEngine()
	benefit := inpatientRoomBenefit()
	benefit.BenefitCode = "CIRC_STD"
	benefit.RequiresMedicalIndication = true
	benefit.IndicationWhitelist = []string{"N47.0", "N47.1", "Z41.2"}

	cc := happyContext()
	cc.Claim.DiagnosisCodes = []string{"J06.9"}

	results := engine.Validate(context.Background(), cc, benefit)
	mi, ok := resultFor(results, "VAL005")
	require.True(t, ok)
	assert.Equal(t, claims.StatusFailed, mi.Status)

	cc.Claim.DiagnosisCodes = []string{"N47.0"}
	results = engine.Validate(context.Background(), cc, benefit)
	_, ok = resultFor(results, "VAL005")
	assert.False(t, ok, "whitelisted diagnosis passes silently")
}

func TestValidate_ExcludedDiagnosis(t *testing.T) {
	engine := claims.NewEngine()
	benefit := inpatientRoomBenefit()
	benefit.Exclusions = []string{"Z41.1"}

	cc := happyContext()
	cc.Claim.DiagnosisCodes = []string{"J06.9", "Z41.1"}

	results := engine.Validate(context.Background(), cc, benefit)
	ex, ok := resultFor(results, "VAL006")
	require.True(t, ok)
	assert.Equal(t, claims.StatusFailed, ex.Status)
	assert.Contains(t, ex.Message, "Z41.1")
}

func TestValidate_HospitalizationWindow(t *testing.T) {
	engine := claims.NewEngine()
	benefit := inpatientRoomBenefit()
	benefit.PreHospitalizationDays = intPtr(7)
	benefit.PostHospitalizationDays = intPtr(14)

	admission := date(2025, time.August, 10)
	discharge := date(2025, time.August, 20)

	cc := happyContext()
	cc.Claim.AdmissionDate = &admission
	cc.Claim.DischargeDate = &discharge

	// Inside the window: Aug 3 (admission - 7) through Sep 3 (discharge + 14).
	cc.Claim.ServiceDate = date(2025, time.August, 5)
	results := engine.Validate(context.Background(), cc, benefit)
	_, ok := resultFor(results, "VAL013")
	assert.False(t, ok, "in-window service date passes silently")

	cc.Claim.ServiceDate = date(2025, time.September, 10)
	results = engine.Validate(context.Background(), cc, benefit)
	win, ok := resultFor(results, "VAL013")
	require.True(t, ok)
	assert.Equal(t, claims.StatusFailed, win.Status)
}

func TestValidate_VisitLimit(t *testing.T) {
	engine := claims.NewEngine()
	benefit := catalog.BenefitConfiguration{
		BenefitCode:      "OP_GP",
		Category:         catalog.CategoryOutpatient,
		SettlementPct:    dec("100"),
		MaxVisitsPerYear: intPtr(12),
	}

	cc := happyContext()
	cc.Claim.BenefitCode = "OP_GP"
	cc.Accumulator.UsedCount = 12

	results := engine.Validate(context.Background(), cc, benefit)
	vl, ok := resultFor(results, "VAL016")
	require.True(t, ok)
	assert.Equal(t, claims.StatusFailed, vl.Status)
}

func TestValidate_PrerequisiteMissing(t *testing.T) {
	engine := claims.NewEngine()
	benefit := inpatientRoomBenefit()
	benefit.Prerequisites = []string{"IP_ADMISSION"}

	cc := happyContext()

	results := engine.Validate(context.Background(), cc, benefit)
	pr, ok := resultFor(results, "VAL009")
	require.True(t, ok)
	assert.Equal(t, claims.StatusFailed, pr.Status)

	cc.History = []claims.PriorClaim{{
		ClaimID:     "clm-pre",
		BenefitCode: "IP_ADMISSION",
		ServiceDate: date(2025, time.August, 10),
		Passed:      true,
	}}
	results = engine.Validate(context.Background(), cc, benefit)
	_, ok = resultFor(results, "VAL009")
	assert.False(t, ok, "satisfied prerequisite passes silently")
}

// =============================================================================
// EXECUTION GUARANTEES
// =============================================================================

func TestValidate_Deterministic(t *testing.T) {
	// Property: identical inputs produce the identical ordered result list,
	// regardless of goroutine completion order.

	engine := claims.NewEngine()
	benefit := inpatientRoomBenefit()
	cc := happyContext()
	cc.Claim.HasPreauth = false
	cc.Accumulator.UsedAmount = dec("1800000")

	baseline := engine.Validate(context.Background(), cc, benefit)
	require.NotEmpty(t, baseline)

	for i := 0; i < 25; i++ {
		results := engine.Validate(context.Background(), cc, benefit)
		require.Equal(t, len(baseline), len(results))
		for j := range baseline {
			assert.Equal(t, baseline[j].RuleCode, results[j].RuleCode)
			assert.Equal(t, baseline[j].Status, results[j].Status)
		}
	}
}

func TestValidate_SortOrder(t *testing.T) {
	// FAILED < WARNING < PENDING < PASSED, then rule_code ascending.

	engine := claims.NewEngine()
	benefit := inpatientRoomBenefit()
	cc := happyContext()
	cc.Claim.HasPreauth = false                 // VAL004 FAILED
	cc.MemberSince = date(2025, time.August, 1) // VAL002 FAILED
	cc.Accumulator.UsedAmount = dec("1800000")  // VAL003 WARNING

	results := engine.Validate(context.Background(), cc, benefit)
	require.GreaterOrEqual(t, len(results), 4)

	assert.Equal(t, "VAL002", results[0].RuleCode)
	assert.Equal(t, "VAL004", results[1].RuleCode)
	assert.Equal(t, "VAL003", results[2].RuleCode)
	lastRank := -1
	rank := map[claims.RuleStatus]int{
		claims.StatusFailed: 0, claims.StatusWarning: 1,
		claims.StatusPending: 2, claims.StatusPassed: 3,
	}
	for _, r := range results {
		require.GreaterOrEqual(t, rank[r.Status], lastRank)
		lastRank = rank[r.Status]
	}
}

func TestValidate_PanickingRuleIsolated(t *testing.T) {
	// GIVEN: A registered rule that panics
	// WHEN: Validating
	// THEN: That rule yields a synthetic FAILED carrying the panic message;
	//       every sibling still completes

	engine := claims.NewEngine()
	engine.Register(claims.Rule{
		Code: "VAL900", Name: "Exploding Rule",
		Fn: func(cc claims.ClaimContext, b catalog.BenefitConfiguration) *claims.ValidationResult {
			panic("boom")
		},
	})

	benefit := inpatientRoomBenefit()
	results := engine.Validate(context.Background(), happyContext(), benefit)

	exploded, ok := resultFor(results, "VAL900")
	require.True(t, ok)
	assert.Equal(t, claims.StatusFailed, exploded.Status)
	assert.Contains(t, exploded.Message, "boom")

	coins, ok := resultFor(results, "VAL025")
	require.True(t, ok, "siblings must still run")
	assert.Equal(t, claims.StatusPassed, coins.Status)
}

func TestValidate_CancellationYieldsPending(t *testing.T) {
	// GIVEN: A slow rule and a short deadline
	// WHEN: The deadline fires mid-validation
	// THEN: Completed results are returned plus one synthetic PENDING
	//       naming the unfinished rule

	engine := claims.NewEngine()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	engine.Register(claims.Rule{
		Code: "VAL901", Name: "Slow Rule",
		Fn: func(cc claims.ClaimContext, b catalog.BenefitConfiguration) *claims.ValidationResult {
			<-release
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	results := engine.Validate(ctx, happyContext(), inpatientRoomBenefit())

	pending, ok := resultFor(results, "VAL000")
	require.True(t, ok, "cancellation must surface a synthetic PENDING result")
	assert.Equal(t, claims.StatusPending, pending.Status)
	assert.Contains(t, pending.Message, "VAL901")
	assert.False(t, claims.CanAutoAdjudicate(results))
}

func TestValidate_CategoryScoping(t *testing.T) {
	// Outpatient-only rules must not run for inpatient claims and vice versa.

	engine := claims.NewEngine()

	ip := inpatientRoomBenefit()
	ip.PreHospitalizationDays = intPtr(7)
	ip.PostHospitalizationDays = intPtr(14)
	cc := happyContext()
	admission := date(2025, time.September, 1)
	discharge := date(2025, time.September, 5)
	cc.Claim.AdmissionDate = &admission
	cc.Claim.DischargeDate = &discharge
	cc.Claim.ServiceDate = date(2025, time.August, 1) // outside window

	results := engine.Validate(context.Background(), cc, ip)
	_, hasWindow := resultFor(results, "VAL013")
	assert.True(t, hasWindow, "inpatient window rule runs for inpatient claims")

	op := catalog.BenefitConfiguration{
		BenefitCode: "OP_GP", Category: catalog.CategoryOutpatient,
		SettlementPct: dec("100"),
	}
	results = engine.Validate(context.Background(), cc, op)
	_, hasWindow = resultFor(results, "VAL013")
	assert.False(t, hasWindow, "inpatient window rule must not run for outpatient claims")
}

// =============================================================================
// HELPERS & FINGERPRINT
// =============================================================================

func TestFingerprint_Stable(t *testing.T) {
	a := claims.Fingerprint("mem-1", "IP_ROOM", date(2025, time.August, 15), dec("500000"))
	b := claims.Fingerprint("mem-1", "IP_ROOM", date(2025, time.August, 15), dec("500000.00"))
	c := claims.Fingerprint("mem-1", "IP_ROOM", date(2025, time.August, 16), dec("500000"))

	assert.Equal(t, a, b, "amount normalization must keep equal amounts colliding")
	assert.NotEqual(t, a, c, "different service dates must not collide")
	assert.Len(t, a, 64)
}

func TestCalculateAllowedAmount_CapsAtLimit(t *testing.T) {
	benefit := inpatientRoomBenefit()
	cc := happyContext()
	cc.Claim.ClaimedAmount = dec("3000000")

	allowed := claims.CalculateAllowedAmount(cc, benefit)
	assert.True(t, allowed.Equal(dec("2000000")), "allowed = %s", allowed)

	benefit.SettlementPct = dec("80")
	allowed = claims.CalculateAllowedAmount(cc, benefit)
	assert.True(t, allowed.Equal(dec("1600000")), "allowed = %s", allowed)
}

func TestCanAutoAdjudicate(t *testing.T) {
	assert.True(t, claims.CanAutoAdjudicate(nil))
	assert.True(t, claims.CanAutoAdjudicate([]claims.ValidationResult{
		{Status: claims.StatusPassed}, {Status: claims.StatusWarning},
	}))
	assert.False(t, claims.CanAutoAdjudicate([]claims.ValidationResult{
		{Status: claims.StatusPassed}, {Status: claims.StatusFailed},
	}))
	assert.False(t, claims.CanAutoAdjudicate([]claims.ValidationResult{
		{Status: claims.StatusPending},
	}))
}
