package pricing_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medena/grouphealth/catalog"
	"github.com/medena/grouphealth/pricing"
	"github.com/medena/grouphealth/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func intPtr(n int) *int { return &n }

// testCatalog builds a snapshot with flat 1 000 000 base rates so scenario
// arithmetic stays legible: no age bands, one T&C factor defaulting to 1.000.
func testCatalog() *catalog.Snapshot {
	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	million := dec("1000000")

	templates := []catalog.ProductTemplate{
		{
			TemplateCode: "IP-1000", TemplateName: "Inpatient Room 1M",
			Category:               catalog.CategoryInpatient,
			BasePremiumAdultMale:   million,
			BasePremiumAdultFemale: million,
			BasePremiumChild:       million,
			EffectiveFrom:          from,
		},
		{
			TemplateCode: "OP-500", TemplateName: "Outpatient 500",
			Category:               catalog.CategoryOutpatient,
			BasePremiumAdultMale:   million,
			BasePremiumAdultFemale: million,
			BasePremiumChild:       million,
			EffectiveFrom:          from,
		},
		{
			TemplateCode: "MAT-STD", TemplateName: "Maternity Standard",
			Category:               catalog.CategoryMaternity,
			BasePremiumAdultMale:   million,
			BasePremiumAdultFemale: million,
			BasePremiumChild:       million,
			EffectiveFrom:          from,
		},
	}

	factors := []catalog.TCFactor{
		{
			FactorCode: "CLASS_STRUCTURE", FactorName: "Class Structure",
			IsActive: true, DisplayOrder: 1,
			Options: []catalog.TCFactorOption{
				{OptionValue: "single", OptionLabel: "Single Class", Multiplier: dec("1.000"), IsDefault: true, DisplayOrder: 1},
				{OptionValue: "multi", OptionLabel: "Multi Class", Multiplier: dec("1.100"), MinParticipants: intPtr(50), DisplayOrder: 2},
			},
		},
	}

	benefits := []catalog.BenefitConfiguration{
		{
			BenefitCode: "IP-1000", BenefitName: "Inpatient Room",
			Category:      catalog.CategoryInpatient,
			Coverage:      catalog.CoveragePerYear,
			SettlementPct: dec("100"),
			LimitValue:    decPtr("2000000"),
		},
		{
			// Benefit code deliberately distinct from the template code.
			BenefitCode: "IP_ROOM", BenefitName: "Inpatient Room & Board",
			Category:      catalog.CategoryInpatient,
			Coverage:      catalog.CoveragePerDay,
			SettlementPct: dec("100"),
			LimitValue:    decPtr("2000000"),
		},
	}

	return catalog.NewSnapshot(templates, factors, nil, benefits, nil)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestEngine(t *testing.T) (*pricing.Engine, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := pricing.NewEngine(store, testCatalog(), pricing.FixedClock{At: testNow})
	return engine, store
}

func createTestConfig(t *testing.T, e *pricing.Engine, participants int) pricing.PolicyConfig {
	cfg, err := e.CreateConfiguration(context.Background(), pricing.CreateParams{
		CompanyName:      "PT Sehat Selalu",
		IndustryType:     "MANUFACTURING",
		ParticipantCount: participants,
		CoverageStart:    time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		CoverageEnd:      time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
		PricingMethod:    pricing.MethodFullyExperienced,
		CreatedBy:        "underwriter-1",
	})
	require.NoError(t, err)
	return cfg
}

// addTestMembers enrolls n ACTIVE employees aged 30-40; the first `females`
// of them are FEMALE and aged 25-35.
func addTestMembers(t *testing.T, e *pricing.Engine, id pricing.ConfigID, n, females int) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		gender := catalog.GenderMale
		birthYear := 1990 - i%10 // ages 35-44... keep within 30-40 below
		if i < females {
			gender = catalog.GenderFemale
			birthYear = 1995 - i%5 // ages 30-34
		} else {
			birthYear = 1992 - i%8 // ages 33-40
		}
		_, err := e.AddMember(ctx, id, pricing.MemberParams{
			FullName:    fmt.Sprintf("Member %02d", i+1),
			DateOfBirth: time.Date(birthYear, time.March, 10, 0, 0, 0, 0, time.UTC),
			Gender:      gender,
			MemberType:  pricing.MemberEmployee,
		})
		require.NoError(t, err)
	}
}

// =============================================================================
// CONFIGURATION CREATION
// =============================================================================

func TestCreateConfiguration_Defaults(t *testing.T) {
	// GIVEN: A fresh engine over an empty store
	// WHEN: Creating a configuration
	// THEN: Quote number follows Q<YYYYMMDD><NNNN>, status DRAFT, all seven
	//       benefit categories initialized with IP/OP selected, T&C defaults set

	e, _ := newTestEngine(t)
	ctx := context.Background()

	cfg := createTestConfig(t, e, 10)

	assert.Equal(t, "Q202506150001", cfg.QuoteNumber)
	assert.Equal(t, pricing.StatusDraft, cfg.Status)
	assert.Empty(t, cfg.PolicyNumber)

	selections, err := e.GetBenefitSelections(ctx, cfg.ID)
	require.NoError(t, err)
	require.Len(t, selections, 7)
	for _, sel := range selections {
		switch sel.Category {
		case catalog.CategoryInpatient, catalog.CategoryOutpatient:
			assert.True(t, sel.IsSelected, "%s should be selected by default", sel.Category)
		default:
			assert.False(t, sel.IsSelected, "%s should not be selected by default", sel.Category)
		}
	}

	tc, err := e.GetTCSelections(ctx, cfg.ID)
	require.NoError(t, err)
	require.Len(t, tc, 1)
	assert.Equal(t, "CLASS_STRUCTURE", tc[0].FactorCode)
	assert.Equal(t, "single", tc[0].OptionValue)
	assert.True(t, tc[0].AppliedMultiplier.Equal(dec("1.000")))
}

func TestCreateConfiguration_QuoteNumberSequence(t *testing.T) {
	// GIVEN: One configuration exists for today's prefix
	// WHEN: Creating a second
	// THEN: The sequence increments

	e, _ := newTestEngine(t)

	first := createTestConfig(t, e, 10)
	second := createTestConfig(t, e, 20)

	assert.Equal(t, "Q202506150001", first.QuoteNumber)
	assert.Equal(t, "Q202506150002", second.QuoteNumber)
}

func TestCreateConfiguration_Validation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)

	_, err := e.CreateConfiguration(ctx, pricing.CreateParams{
		ParticipantCount: 10, CoverageStart: start, CoverageEnd: end,
	})
	assert.True(t, pricing.IsClientError(err), "missing company name should be a validation error")

	_, err = e.CreateConfiguration(ctx, pricing.CreateParams{
		CompanyName: "X", ParticipantCount: 0, CoverageStart: start, CoverageEnd: end,
	})
	assert.True(t, pricing.IsClientError(err), "non-positive participants should be a validation error")

	_, err = e.CreateConfiguration(ctx, pricing.CreateParams{
		CompanyName: "X", ParticipantCount: 10, CoverageStart: end, CoverageEnd: start,
	})
	assert.True(t, pricing.IsClientError(err), "inverted coverage period should be a validation error")
}

// =============================================================================
// PREMIUM CALCULATION
// =============================================================================

func TestCalculatePremium_SmallGroup(t *testing.T) {
	// GIVEN: 10 ACTIVE employees, INPATIENT + OUTPATIENT selected, flat
	//        1 000 000 base rates, no age bands
	// WHEN: Calculating the premium
	// THEN: base 20 000 000; both category factors 1.500 (small group);
	//       multiplier 2.250; adjusted 45 000 000; admin 2 250 000;
	//       TPA 100 000; total 47 350 000.00

	e, _ := newTestEngine(t)
	ctx := context.Background()

	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 10, 4)

	result, err := e.CalculatePremium(ctx, cfg.ID, true)
	require.NoError(t, err)

	assert.Equal(t, 10, result.ParticipantCount)
	assert.True(t, result.Breakdown.BasePremium.Equal(dec("20000000")),
		"base premium = %s", result.Breakdown.BasePremium)
	assert.True(t, result.Factors.BenefitFactors["INPATIENT"].Equal(dec("1.500")))
	assert.True(t, result.Factors.BenefitFactors["OUTPATIENT"].Equal(dec("1.500")))
	assert.True(t, result.Breakdown.TotalMultiplier.Equal(dec("2.25")),
		"total multiplier = %s", result.Breakdown.TotalMultiplier)
	assert.True(t, result.Breakdown.AdjustedPremium.Equal(dec("45000000")))
	assert.True(t, result.Breakdown.AdminFee.Equal(dec("2250000")))
	assert.True(t, result.Breakdown.TPAFee.Equal(dec("100000")))
	assert.True(t, result.Breakdown.TotalPremium.Equal(dec("47350000")),
		"total premium = %s", result.Breakdown.TotalPremium)
	assert.True(t, result.PerMemberAverage.Equal(dec("4735000")))
}

func TestCalculatePremium_FeeFloors(t *testing.T) {
	// GIVEN: A tiny group whose percentage fees fall below the floors
	// WHEN: Calculating
	// THEN: Both fees clamp at 100 000

	e, _ := newTestEngine(t)
	ctx := context.Background()

	cfg := createTestConfig(t, e, 5)
	// Turn both defaults off and keep only OUTPATIENT with one member, so
	// adjusted stays small.
	_, err := e.ToggleBenefit(ctx, cfg.ID, catalog.CategoryInpatient, false)
	require.NoError(t, err)
	addTestMembers(t, e, cfg.ID, 1, 0)

	result, err := e.CalculatePremium(ctx, cfg.ID, false)
	require.NoError(t, err)

	// 1 member x 1M x 1.5 = 1.5M adjusted; 5% = 75 000 < floor
	assert.True(t, result.Breakdown.AdminFee.Equal(dec("100000")),
		"admin fee = %s", result.Breakdown.AdminFee)
	assert.True(t, result.Breakdown.TPAFee.Equal(dec("100000")),
		"tpa fee = %s", result.Breakdown.TPAFee)
}

func TestCalculatePremium_MaternityLoading(t *testing.T) {
	// GIVEN: MATERNITY selected and 5 of 10 ACTIVE members female aged 25-35
	// WHEN: Calculating
	// THEN: Maternity factor = 1.500 x 1.150 = 1.725; multiplier includes it

	e, _ := newTestEngine(t)
	ctx := context.Background()

	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 10, 5)

	_, err := e.ToggleBenefit(ctx, cfg.ID, catalog.CategoryMaternity, true)
	require.NoError(t, err)

	result, err := e.CalculatePremium(ctx, cfg.ID, true)
	require.NoError(t, err)

	assert.True(t, result.Factors.BenefitFactors["MATERNITY"].Equal(dec("1.725")),
		"maternity factor = %s", result.Factors.BenefitFactors["MATERNITY"])
	// 1.5 x 1.5 x 1.725
	assert.True(t, result.Breakdown.TotalMultiplier.Equal(dec("3.88125")),
		"total multiplier = %s", result.Breakdown.TotalMultiplier)
	assert.True(t, result.Breakdown.BasePremium.Equal(dec("30000000")))
}

func TestCalculatePremium_Idempotent(t *testing.T) {
	// GIVEN: A configuration with members
	// WHEN: Calculating twice with no mutation in between
	// THEN: Totals are identical

	e, _ := newTestEngine(t)
	ctx := context.Background()

	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 10, 3)

	first, err := e.CalculatePremium(ctx, cfg.ID, false)
	require.NoError(t, err)
	second, err := e.CalculatePremium(ctx, cfg.ID, false)
	require.NoError(t, err)

	assert.True(t, first.Breakdown.TotalPremium.Equal(second.Breakdown.TotalPremium))
	assert.True(t, first.Breakdown.BasePremium.Equal(second.Breakdown.BasePremium))
	assert.True(t, first.Breakdown.TotalMultiplier.Equal(second.Breakdown.TotalMultiplier))
}

func TestCalculatePremium_MultiplierIsFactorProduct(t *testing.T) {
	// Property: total_multiplier equals the product of selected category
	// factors and applied T&C multipliers, to 6 decimal places.

	e, _ := newTestEngine(t)
	ctx := context.Background()

	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 10, 5)
	_, err := e.ToggleBenefit(ctx, cfg.ID, catalog.CategoryMaternity, true)
	require.NoError(t, err)

	result, err := e.CalculatePremium(ctx, cfg.ID, false)
	require.NoError(t, err)

	product := dec("1")
	for _, f := range result.Factors.BenefitFactors {
		product = product.Mul(f)
	}
	for _, tc := range result.Factors.TCFactors {
		product = product.Mul(tc.Multiplier)
	}
	assert.True(t, result.Breakdown.TotalMultiplier.Round(6).Equal(product.Round(6)))
}

func TestCalculatePremium_BaseEqualsStoredMemberPremiums(t *testing.T) {
	// Property: base_premium_total equals the sum of stored member
	// base premiums over ACTIVE members after a calculate.

	e, store := newTestEngine(t)
	ctx := context.Background()

	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 10, 3)

	result, err := e.CalculatePremium(ctx, cfg.ID, true)
	require.NoError(t, err)

	members, err := store.ListMembers(ctx, cfg.ID, pricing.MemberActive)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, m := range members {
		sum = sum.Add(m.BasePremium)
	}
	assert.True(t, result.Breakdown.BasePremium.Equal(sum))
}

func TestCalculatePremium_SavedHistoryIsAppendOnly(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 6, 2)

	for i := 0; i < 3; i++ {
		_, err := e.CalculatePremium(ctx, cfg.ID, true)
		require.NoError(t, err)
	}

	history, err := e.GetCalculationHistory(ctx, cfg.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

// =============================================================================
// MEMBERS
// =============================================================================

func TestAddMember_RefreshesParticipantCount(t *testing.T) {
	// Property: participant_count equals the ACTIVE member count after any
	// mutation completes, regardless of the count supplied at creation.

	e, _ := newTestEngine(t)
	ctx := context.Background()

	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 3, 1)

	got, err := e.GetConfiguration(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ParticipantCount)
}

func TestTerminateMember_ExcludedFromPricing(t *testing.T) {
	// GIVEN: 6 ACTIVE members
	// WHEN: Terminating one and recalculating
	// THEN: Count drops to 5 and the base total excludes the terminated member

	e, _ := newTestEngine(t)
	ctx := context.Background()

	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 6, 2)

	members, err := e.ListMembers(ctx, cfg.ID, pricing.MemberActive)
	require.NoError(t, err)
	require.Len(t, members, 6)

	terminated, err := e.TerminateMember(ctx, cfg.ID, members[0].ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.MemberTerminated, terminated.Status)
	assert.NotNil(t, terminated.TerminationDate)

	result, err := e.CalculatePremium(ctx, cfg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 5, result.ParticipantCount)
	assert.True(t, result.Breakdown.BasePremium.Equal(dec("10000000")))
}

func TestAddMember_Validation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)

	_, err := e.AddMember(ctx, cfg.ID, pricing.MemberParams{
		FullName:    "Future Person",
		DateOfBirth: testNow.AddDate(1, 0, 0),
		Gender:      catalog.GenderMale,
		MemberType:  pricing.MemberEmployee,
	})
	assert.True(t, pricing.IsClientError(err), "future DOB should be rejected")

	_, err = e.AddMember(ctx, cfg.ID, pricing.MemberParams{
		FullName:    "Bad Gender",
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:      "OTHER",
		MemberType:  pricing.MemberEmployee,
	})
	assert.True(t, pricing.IsClientError(err), "unknown gender should be rejected")
}

func TestImportMembers_PartialFailure(t *testing.T) {
	// GIVEN: A batch with one malformed row
	// WHEN: Importing
	// THEN: Good rows are committed, the bad row is reported 1-based, and
	//       the premium is recomputed once

	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)

	records := []pricing.ImportRecord{
		{FullName: "Alice", DateOfBirth: "1990-04-01", Gender: "female", MemberType: "employee"},
		{FullName: "Bob", DateOfBirth: "not-a-date", Gender: "male", MemberType: "employee"},
		{FullName: "Cora", DateOfBirth: "1988-09-20", Gender: "female", MemberType: "spouse"},
	}

	result, err := e.ImportMembers(ctx, cfg.ID, records)
	require.NoError(t, err)

	assert.Len(t, result.Imported, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Error, "date_of_birth")
	require.NotNil(t, result.Premium)
	assert.Equal(t, 2, result.Premium.ParticipantCount)
}

func TestImportMembers_Cancelled(t *testing.T) {
	// GIVEN: A cancelled context
	// WHEN: Importing
	// THEN: Every row is reported with a cancelled marker and nothing commits

	e, _ := newTestEngine(t)
	cfg := createTestConfig(t, e, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []pricing.ImportRecord{
		{FullName: "Alice", DateOfBirth: "1990-04-01", Gender: "female", MemberType: "employee"},
		{FullName: "Bob", DateOfBirth: "1991-05-02", Gender: "male", MemberType: "employee"},
	}

	result, err := e.ImportMembers(ctx, cfg.ID, records)
	require.NoError(t, err)

	assert.Empty(t, result.Imported)
	require.Len(t, result.Errors, 2)
	for i, importErr := range result.Errors {
		assert.Equal(t, i+1, importErr.Row)
		assert.Equal(t, "cancelled", importErr.Error)
	}
}

// =============================================================================
// T&C FACTORS
// =============================================================================

func TestUpdateTCFactor_ParticipantLowerBound(t *testing.T) {
	// GIVEN: An option requiring at least 50 participants, config has 10
	// WHEN: Selecting it
	// THEN: ValidationError naming the lower bound

	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)

	_, _, err := e.UpdateTCFactor(ctx, cfg.ID, "CLASS_STRUCTURE", "multi")
	require.Error(t, err)
	assert.True(t, pricing.IsClientError(err))
	assert.Contains(t, err.Error(), "Minimum 50 participants required")
}

func TestUpdateTCFactor_UnknownCodes(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)

	_, _, err := e.UpdateTCFactor(ctx, cfg.ID, "NO_SUCH_FACTOR", "x")
	assert.ErrorIs(t, err, pricing.ErrFactorNotFound)

	_, _, err = e.UpdateTCFactor(ctx, cfg.ID, "CLASS_STRUCTURE", "no-such-option")
	assert.ErrorIs(t, err, pricing.ErrOptionNotFound)
}

func TestUpdateTCFactor_ReturnsSavedRecalculation(t *testing.T) {
	// GIVEN: A priced configuration
	// WHEN: Switching a T&C option
	// THEN: The returned calculation reflects the new multiplier and matches
	//       the single log row the update appended

	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 5, 1)

	sel, calc, err := e.UpdateTCFactor(ctx, cfg.ID, "CLASS_STRUCTURE", "single")
	require.NoError(t, err)

	assert.True(t, sel.AppliedMultiplier.Equal(dec("1.000")))
	assert.True(t, calc.Breakdown.TotalPremium.GreaterThan(decimal.Zero))

	logs, err := e.GetCalculationHistory(ctx, cfg.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1, "one update appends exactly one log row")
	assert.True(t, logs[0].TotalPremium.Equal(calc.Breakdown.TotalPremium))
	assert.True(t, logs[0].TotalMultiplier.Equal(calc.Breakdown.TotalMultiplier))
}

func TestApplicableTCOptions_FiltersByGroupSize(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)

	options, err := e.ApplicableTCOptions(ctx, cfg.ID, "CLASS_STRUCTURE")
	require.NoError(t, err)
	require.Len(t, options, 1, "the 50+ option should be filtered out for a group of 10")
	assert.Equal(t, "single", options[0].OptionValue)
}

// =============================================================================
// SUBMISSION & APPROVAL
// =============================================================================

func TestSubmit_Gate(t *testing.T) {
	// GIVEN: A DRAFT config with 4 members
	// WHEN: Submitting
	// THEN: Fails with the participant minimum; adding a 5th lets it through,
	//       status becomes QUOTED and workflow steps exist per threshold

	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 4, 1)

	_, err := e.Submit(ctx, cfg.ID, "underwriter-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Minimum 5 participants required")

	addTestMembers(t, e, cfg.ID, 1, 0)

	submitted, err := e.Submit(ctx, cfg.ID, "underwriter-1")
	require.NoError(t, err)
	assert.Equal(t, pricing.StatusQuoted, submitted.Status)

	// 5 members x 2M x 2.25 = 22.5M adjusted: all three thresholds met.
	steps, err := e.GetApprovals(ctx, cfg.ID)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, "UNDERWRITING", steps[0].StepName)
	assert.Equal(t, "ACTUARIAL", steps[1].StepName)
	assert.Equal(t, "MANAGEMENT", steps[2].StepName)
	for _, s := range steps {
		assert.Equal(t, pricing.StepPending, s.Status)
	}
}

func TestSubmit_RequiresDraft(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 5, 1)

	_, err := e.Submit(ctx, cfg.ID, "underwriter-1")
	require.NoError(t, err)

	_, err = e.Submit(ctx, cfg.ID, "underwriter-1")
	assert.True(t, pricing.IsStateError(err), "re-submitting a QUOTED config should be a state error")
}

func TestSubmit_RequiresSelectedBenefit(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 5, 1)

	_, err := e.ToggleBenefit(ctx, cfg.ID, catalog.CategoryInpatient, false)
	require.NoError(t, err)
	_, err = e.ToggleBenefit(ctx, cfg.ID, catalog.CategoryOutpatient, false)
	require.NoError(t, err)

	_, err = e.Submit(ctx, cfg.ID, "underwriter-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "At least one benefit")
}

func TestApprove_MintsPolicyNumberOnce(t *testing.T) {
	// GIVEN: A QUOTED config with three pending steps
	// WHEN: Approving all of them
	// THEN: Config becomes APPROVED with a PGH<YYYYMM><NNNNN> policy number;
	//       re-approving a processed step fails

	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 5, 1)
	_, err := e.Submit(ctx, cfg.ID, "underwriter-1")
	require.NoError(t, err)

	for _, step := range []string{"UNDERWRITING", "ACTUARIAL"} {
		got, err := e.Approve(ctx, cfg.ID, "approver-1", step, "ok")
		require.NoError(t, err)
		assert.Equal(t, pricing.StatusQuoted, got.Status, "config must not advance with steps pending")
	}

	final, err := e.Approve(ctx, cfg.ID, "approver-2", "MANAGEMENT", "ok")
	require.NoError(t, err)
	assert.Equal(t, pricing.StatusApproved, final.Status)

	got, err := e.GetConfiguration(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^PGH202506\d{5}$`), got.PolicyNumber)
	assert.Equal(t, "approver-2", got.ApprovedBy)
	assert.NotNil(t, got.ApprovedAt)

	_, err = e.Approve(ctx, cfg.ID, "approver-1", "MANAGEMENT", "again")
	assert.True(t, pricing.IsStateError(err), "approving a processed step should be a state error")
}

func TestReject_BlocksAdvancement(t *testing.T) {
	// GIVEN: Three pending steps, one rejected
	// WHEN: Approving the others
	// THEN: Config stays QUOTED with no policy number

	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 5, 1)
	_, err := e.Submit(ctx, cfg.ID, "underwriter-1")
	require.NoError(t, err)

	rejected, err := e.Reject(ctx, cfg.ID, "approver-1", "ACTUARIAL", "rates off")
	require.NoError(t, err)
	assert.Equal(t, pricing.StepRejected, rejected.Status)

	_, err = e.Approve(ctx, cfg.ID, "approver-1", "UNDERWRITING", "ok")
	require.NoError(t, err)
	got, err := e.Approve(ctx, cfg.ID, "approver-2", "MANAGEMENT", "ok")
	require.NoError(t, err)

	assert.Equal(t, pricing.StatusQuoted, got.Status)
	assert.Empty(t, got.PolicyNumber)
}

// =============================================================================
// QUOTE DOCUMENT
// =============================================================================

func TestGenerateQuoteDocument(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 6, 2)
	_, err := e.CalculatePremium(ctx, cfg.ID, true)
	require.NoError(t, err)

	doc, err := e.GenerateQuoteDocument(ctx, cfg.ID)
	require.NoError(t, err)

	assert.Equal(t, cfg.QuoteNumber, doc.QuoteNumber)
	assert.Equal(t, "PT Sehat Selalu", doc.CompanyName)
	assert.Equal(t, doc.GeneratedAt.AddDate(0, 0, 30), doc.ValidUntil)
	assert.Len(t, doc.Benefits, 2, "only selected benefits appear")
	require.Len(t, doc.Terms, 1)
	assert.Equal(t, "CLASS_STRUCTURE", doc.Terms[0].FactorCode)
	assert.True(t, doc.Terms[0].ImpactPct.IsZero(), "1.000 multiplier has no impact")
	assert.True(t, doc.AverageAge.GreaterThan(decimal.Zero))
	require.NotEmpty(t, doc.Census)
	total := 0
	for _, band := range doc.Census {
		total += band.Total
	}
	assert.Equal(t, 6, total)
	require.NotNil(t, doc.Premium)
	assert.True(t, doc.Premium.TotalPremium.GreaterThan(decimal.Zero))
}

func TestGenerateQuoteDocument_AttachesOverrideByCategory(t *testing.T) {
	// GIVEN: An override recorded under the benefit code IP_ROOM, while the
	//        INPATIENT selection is bound to template IP-1000
	// WHEN: Generating the quote document
	// THEN: The override appears on the INPATIENT benefit line

	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 5, 1)

	_, err := e.OverrideBenefitLimit(ctx, cfg.ID, "IP_ROOM", dec("3500000"), "negotiated for renewal")
	require.NoError(t, err)

	doc, err := e.GenerateQuoteDocument(ctx, cfg.ID)
	require.NoError(t, err)

	var inpatient *pricing.QuoteBenefitLine
	for i := range doc.Benefits {
		if doc.Benefits[i].Category == string(catalog.CategoryInpatient) {
			inpatient = &doc.Benefits[i]
		}
	}
	require.NotNil(t, inpatient)
	require.NotNil(t, inpatient.OverrideLimit, "override missing from the inpatient line")
	assert.True(t, inpatient.OverrideLimit.Equal(dec("3500000")))
	assert.Equal(t, "negotiated for renewal", inpatient.OverrideReason)
}

func TestGenerateQuoteDocument_UnsavedCalculationStillPriced(t *testing.T) {
	// GIVEN: A config priced only with save=false (no calculation log rows)
	// WHEN: Generating the quote document
	// THEN: The premium section is rebuilt from the cached totals

	e, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := createTestConfig(t, e, 10)
	addTestMembers(t, e, cfg.ID, 6, 2)

	result, err := e.CalculatePremium(ctx, cfg.ID, false)
	require.NoError(t, err)

	logs, err := e.GetCalculationHistory(ctx, cfg.ID, 10)
	require.NoError(t, err)
	require.Empty(t, logs, "save=false must not append a log row")

	doc, err := e.GenerateQuoteDocument(ctx, cfg.ID)
	require.NoError(t, err)

	require.NotNil(t, doc.Premium, "cached totals should back the premium section")
	assert.True(t, doc.Premium.TotalPremium.Equal(result.Breakdown.TotalPremium))
	assert.True(t, doc.Premium.AdminFee.Equal(result.Breakdown.AdminFee))
	assert.True(t, doc.Premium.TPAFee.Equal(result.Breakdown.TPAFee))
	assert.True(t, doc.Monthly.Equal(result.MonthlyPremium))
}
