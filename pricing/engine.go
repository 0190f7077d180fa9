/*
engine.go - The premium pricing engine

PURPOSE:
  Implements every pricing operation: configuration creation with catalog
  defaults, benefit toggling with category factors, T&C updates with
  participant bounds, member enrollment and bulk import, the premium
  calculation itself, and the threshold-driven approval workflow.

CALCULATION PIPELINE (CalculatePremium):
  1. Refresh category factors for selected benefit categories
  2. Member base premium = sum over selected benefits of
     template base rate (CHILD under 18) x age-band multiplier
  3. base_premium_total = sum of ACTIVE member base premiums
  4. total_multiplier  = product of selected category factors
                         x product of applied T&C multipliers
  5. adjusted = base_total x multiplier
  6. admin_fee = max(100 000, 5% of adjusted)
     tpa_fee   = max(100 000, 10 000 x participants)
  7. total = round_half_up(adjusted + admin + tpa, 2)
  Intermediates keep full precision; only the total is rounded.

CONCURRENCY:
  Mutations and calculations on one configuration are serialized by a
  per-config mutex; distinct configurations proceed in parallel. Reads of a
  config always see all prior completed mutations on it.

NUMBERING:
  Quote numbers Q<YYYYMMDD><NNNN> and policy numbers PGH<YYYYMM><NNNNN> are
  generated by probing the store's max sequence and retrying on unique-
  constraint collision, bounded at 5 attempts.

SEE ALSO:
  - types.go: Entities and result shapes
  - store.go: Persistence contract
  - quote.go: Quote document assembly
*/
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medena/grouphealth/catalog"
	"github.com/medena/grouphealth/money"
)

const numberRetries = 5

// Administrative fee floors and rates.
var (
	adminFeeFloor = decimal.NewFromInt(100000)
	adminFeeRate  = money.MustParse("0.05")
	tpaFeePerHead = decimal.NewFromInt(10000)
	tpaFeeFloor   = decimal.NewFromInt(100000)
)

// Small-group loading tiers, checked in order.
var smallGroupTiers = []struct {
	below  int
	factor decimal.Decimal
}{
	{15, money.MustParse("1.500")},
	{25, money.MustParse("1.250")},
	{50, money.MustParse("1.100")},
}

// Maternity demographic loading: applied when ACTIVE females aged 18-45
// exceed 40% of participants.
var maternityLoading = money.MustParse("1.150")

// Approval thresholds against the adjusted premium.
var workflowSteps = []struct {
	name      string
	order     int
	threshold decimal.Decimal
}{
	{"UNDERWRITING", 1, decimal.NewFromInt(1000000)},
	{"ACTUARIAL", 2, decimal.NewFromInt(5000000)},
	{"MANAGEMENT", 3, decimal.NewFromInt(10000000)},
}

// Engine is the pricing engine. Safe for concurrent use.
type Engine struct {
	store   Store
	catalog catalog.Catalog
	clock   Clock

	mu    sync.Mutex
	locks map[ConfigID]*sync.Mutex
}

// NewEngine creates a pricing engine over the given store and catalog.
func NewEngine(store Store, cat catalog.Catalog, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{
		store:   store,
		catalog: cat,
		clock:   clock,
		locks:   make(map[ConfigID]*sync.Mutex),
	}
}

// lock serializes operations on one configuration.
func (e *Engine) lock(id ConfigID) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// =============================================================================
// CONFIGURATION CREATION
// =============================================================================

// CreateParams are the inputs for a new policy configuration.
type CreateParams struct {
	CompanyName      string
	IndustryType     string
	ParticipantCount int
	ClassCount       int
	CoverageStart    time.Time
	CoverageEnd      time.Time
	PricingMethod    PricingMethod
	CreatedBy        string
}

// CreateConfiguration creates a DRAFT configuration with default benefit and
// T&C selections populated from the catalog.
func (e *Engine) CreateConfiguration(ctx context.Context, p CreateParams) (PolicyConfig, error) {
	if p.CompanyName == "" {
		return PolicyConfig{}, newValidation("company_name", "company_name is required")
	}
	if p.ParticipantCount <= 0 {
		return PolicyConfig{}, newValidation("participant_count", "participant_count must be positive")
	}
	if !p.CoverageEnd.After(p.CoverageStart) {
		return PolicyConfig{}, newValidation("coverage_period", "coverage_end must be after coverage_start")
	}
	if p.PricingMethod == "" {
		p.PricingMethod = MethodFullyExperienced
	}
	if p.ClassCount <= 0 {
		p.ClassCount = 1
	}

	now := e.clock.Now()
	cfg := PolicyConfig{
		ID:                    ConfigID(uuid.NewString()),
		CompanyName:           p.CompanyName,
		IndustryType:          p.IndustryType,
		ParticipantCount:      p.ParticipantCount,
		ClassCount:            p.ClassCount,
		CoverageStart:         p.CoverageStart,
		CoverageEnd:           p.CoverageEnd,
		PricingMethod:         p.PricingMethod,
		Status:                StatusDraft,
		TotalFactorMultiplier: money.One,
		CreatedBy:             p.CreatedBy,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	benefits := e.defaultBenefitSelections(cfg)
	tc, err := e.defaultTCSelections(cfg)
	if err != nil {
		return PolicyConfig{}, err
	}

	// Quote number: probe max sequence, retry on collision.
	prefix := "Q" + now.Format("20060102")
	seq, err := e.store.MaxQuoteSequence(ctx, prefix)
	if err != nil {
		return PolicyConfig{}, err
	}
	for attempt := 0; attempt < numberRetries; attempt++ {
		cfg.QuoteNumber = fmt.Sprintf("%s%04d", prefix, seq+1+attempt)
		err = e.store.CreateConfig(ctx, cfg, benefits, tc)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, ErrNumberCollision) {
			return PolicyConfig{}, err
		}
	}
	return PolicyConfig{}, ErrNumberCollision
}

// defaultBenefitSelections builds one selection per category, with INPATIENT
// and OUTPATIENT selected. Template binding uses the template effective on
// the coverage start date; categories without a template stay unbound.
func (e *Engine) defaultBenefitSelections(cfg PolicyConfig) []BenefitSelection {
	selections := make([]BenefitSelection, 0, len(catalog.AllCategories))
	for _, category := range catalog.AllCategories {
		sel := BenefitSelection{
			ConfigID:       cfg.ID,
			Category:       category,
			IsSelected:     category == catalog.CategoryInpatient || category == catalog.CategoryOutpatient,
			CategoryFactor: money.One,
		}
		if tpl, ok := e.catalog.TemplateForCategory(category, cfg.CoverageStart); ok {
			sel.TemplateCode = tpl.TemplateCode
		}
		selections = append(selections, sel)
	}
	return selections
}

// defaultTCSelections points each active factor at its default option
// (or the first option when none is flagged).
func (e *Engine) defaultTCSelections(cfg PolicyConfig) ([]TCSelection, error) {
	var selections []TCSelection
	for _, factor := range e.catalog.ActiveFactors() {
		opt, ok := factor.DefaultOption()
		if !ok {
			return nil, &DependencyError{Kind: "factor_option", Key: factor.FactorCode}
		}
		selections = append(selections, TCSelection{
			ConfigID:          cfg.ID,
			FactorCode:        factor.FactorCode,
			OptionValue:       opt.OptionValue,
			AppliedMultiplier: opt.Multiplier,
		})
	}
	return selections, nil
}

// GetConfiguration returns a configuration by ID.
func (e *Engine) GetConfiguration(ctx context.Context, id ConfigID) (PolicyConfig, error) {
	return e.store.GetConfig(ctx, id)
}

// ListConfigurations returns configurations newest first.
func (e *Engine) ListConfigurations(ctx context.Context, filter ListFilter) ([]PolicyConfig, error) {
	return e.store.ListConfigs(ctx, filter)
}

// =============================================================================
// BENEFIT CONFIGURATION
// =============================================================================

// GetBenefitSelections returns the config's benefit selections.
func (e *Engine) GetBenefitSelections(ctx context.Context, id ConfigID) ([]BenefitSelection, error) {
	if _, err := e.store.GetConfig(ctx, id); err != nil {
		return nil, err
	}
	return e.store.GetBenefitSelections(ctx, id)
}

// ToggleBenefit switches a benefit category on or off. Toggling on computes
// the category factor from the current group; toggling off resets it to 1.000.
func (e *Engine) ToggleBenefit(ctx context.Context, id ConfigID, category catalog.BenefitCategory, selected bool) (BenefitSelection, error) {
	unlock := e.lock(id)
	defer unlock()

	cfg, err := e.store.GetConfig(ctx, id)
	if err != nil {
		return BenefitSelection{}, err
	}

	selections, err := e.store.GetBenefitSelections(ctx, id)
	if err != nil {
		return BenefitSelection{}, err
	}
	var target *BenefitSelection
	for i := range selections {
		if selections[i].Category == category {
			target = &selections[i]
			break
		}
	}
	if target == nil {
		return BenefitSelection{}, newValidation("benefit_category", "unknown benefit category: %s", category)
	}

	target.IsSelected = selected
	if selected {
		members, err := e.store.ListMembers(ctx, id, MemberActive)
		if err != nil {
			return BenefitSelection{}, err
		}
		target.CategoryFactor = e.categoryFactor(cfg, members, category)
	} else {
		target.CategoryFactor = money.One
	}

	if err := e.store.SaveBenefitSelection(ctx, *target); err != nil {
		return BenefitSelection{}, err
	}
	return *target, nil
}

// categoryFactor computes the loading factor for one benefit category:
// small-group loading by participant count, times the maternity demographic
// loading when applicable.
func (e *Engine) categoryFactor(cfg PolicyConfig, activeMembers []Member, category catalog.BenefitCategory) decimal.Decimal {
	factor := money.One
	for _, tier := range smallGroupTiers {
		if cfg.ParticipantCount < tier.below {
			factor = factor.Mul(tier.factor)
			break
		}
	}

	if category == catalog.CategoryMaternity {
		now := e.clock.Now()
		females := 0
		for _, m := range activeMembers {
			age := m.AgeOn(now)
			if m.Gender == catalog.GenderFemale && age >= 18 && age <= 45 {
				females++
			}
		}
		// females / participants > 0.40, in integer arithmetic
		if cfg.ParticipantCount > 0 && females*10 > cfg.ParticipantCount*4 {
			factor = factor.Mul(maternityLoading)
		}
	}

	return factor
}

// OverrideBenefitLimit records a per-quote limit override for one benefit.
// The original limit is resolved from the catalog benefit configuration.
func (e *Engine) OverrideBenefitLimit(ctx context.Context, id ConfigID, benefitCode string, newLimit decimal.Decimal, reason string) (BenefitOverride, error) {
	unlock := e.lock(id)
	defer unlock()

	if _, err := e.store.GetConfig(ctx, id); err != nil {
		return BenefitOverride{}, err
	}
	if !newLimit.IsPositive() {
		return BenefitOverride{}, newValidation("override_limit", "override limit must be positive")
	}

	original := decimal.Zero
	if benefit, ok := e.catalog.BenefitConfig(benefitCode); ok && benefit.LimitValue != nil {
		original = *benefit.LimitValue
	}

	override := BenefitOverride{
		ConfigID:      id,
		BenefitCode:   benefitCode,
		OriginalLimit: original,
		OverrideLimit: newLimit,
		Reason:        reason,
	}
	if err := e.store.SaveOverride(ctx, override); err != nil {
		return BenefitOverride{}, err
	}
	return override, nil
}

// =============================================================================
// T&C FACTOR MANAGEMENT
// =============================================================================

// GetTCSelections returns the config's T&C selections.
func (e *Engine) GetTCSelections(ctx context.Context, id ConfigID) ([]TCSelection, error) {
	if _, err := e.store.GetConfig(ctx, id); err != nil {
		return nil, err
	}
	return e.store.GetTCSelections(ctx, id)
}

// UpdateTCFactor changes the selected option for a factor, enforcing the
// option's participant bounds, then recomputes the premium. The returned
// calculation is the saved recomputation; callers need not price again.
func (e *Engine) UpdateTCFactor(ctx context.Context, id ConfigID, factorCode, optionValue string) (TCSelection, CalculationResult, error) {
	unlock := e.lock(id)
	defer unlock()

	cfg, err := e.store.GetConfig(ctx, id)
	if err != nil {
		return TCSelection{}, CalculationResult{}, err
	}

	factor, ok := e.catalog.Factor(factorCode)
	if !ok {
		return TCSelection{}, CalculationResult{}, fmt.Errorf("%w: %s", ErrFactorNotFound, factorCode)
	}
	option, ok := factor.Option(optionValue)
	if !ok {
		return TCSelection{}, CalculationResult{}, fmt.Errorf("%w: %s/%s", ErrOptionNotFound, factorCode, optionValue)
	}

	if option.MinParticipants != nil && cfg.ParticipantCount < *option.MinParticipants {
		return TCSelection{}, CalculationResult{}, newValidation("min_participants",
			"Minimum %d participants required", *option.MinParticipants)
	}
	if option.MaxParticipants != nil && cfg.ParticipantCount > *option.MaxParticipants {
		return TCSelection{}, CalculationResult{}, newValidation("max_participants",
			"Maximum %d participants allowed", *option.MaxParticipants)
	}

	sel := TCSelection{
		ConfigID:          id,
		FactorCode:        factorCode,
		OptionValue:       optionValue,
		AppliedMultiplier: option.Multiplier,
	}
	if err := e.store.SaveTCSelection(ctx, sel); err != nil {
		return TCSelection{}, CalculationResult{}, err
	}

	calc, err := e.calculate(ctx, id, true)
	if err != nil {
		return TCSelection{}, CalculationResult{}, err
	}
	return sel, calc, nil
}

// ApplicableTCOptions returns a factor's options whose participant bounds
// admit the config's group size, in display order.
func (e *Engine) ApplicableTCOptions(ctx context.Context, id ConfigID, factorCode string) ([]catalog.TCFactorOption, error) {
	cfg, err := e.store.GetConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	factor, ok := e.catalog.Factor(factorCode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFactorNotFound, factorCode)
	}
	var options []catalog.TCFactorOption
	for _, opt := range factor.Options {
		if opt.AllowsParticipants(cfg.ParticipantCount) {
			options = append(options, opt)
		}
	}
	return options, nil
}

// =============================================================================
// MEMBER MANAGEMENT
// =============================================================================

// MemberParams are the inputs for enrolling one member.
type MemberParams struct {
	FullName    string
	DateOfBirth time.Time
	Gender      catalog.Gender
	MemberType  MemberType
	Relation    string
	ClassCode   string
}

// AddMember enrolls a member, assigns the next dense member number, computes
// the member's base premium, and refreshes the participant count.
func (e *Engine) AddMember(ctx context.Context, id ConfigID, p MemberParams) (Member, error) {
	unlock := e.lock(id)
	defer unlock()
	return e.addMember(ctx, id, p)
}

func (e *Engine) addMember(ctx context.Context, id ConfigID, p MemberParams) (Member, error) {
	cfg, err := e.store.GetConfig(ctx, id)
	if err != nil {
		return Member{}, err
	}

	now := e.clock.Now()
	if p.FullName == "" {
		return Member{}, newValidation("full_name", "full_name is required")
	}
	if !p.DateOfBirth.Before(now) {
		return Member{}, newValidation("date_of_birth", "date_of_birth must be in the past")
	}
	if p.Gender != catalog.GenderMale && p.Gender != catalog.GenderFemale {
		return Member{}, newValidation("gender", "gender must be MALE or FEMALE")
	}
	switch p.MemberType {
	case MemberEmployee, MemberSpouse, MemberChild:
	default:
		return Member{}, newValidation("member_type", "invalid member_type: %s", p.MemberType)
	}
	if p.ClassCode == "" {
		p.ClassCode = "1"
	}

	all, err := e.store.ListMembers(ctx, id, "")
	if err != nil {
		return Member{}, err
	}
	maxNumber := 0
	for _, m := range all {
		if m.MemberNumber > maxNumber {
			maxNumber = m.MemberNumber
		}
	}

	member := Member{
		ID:             MemberID(uuid.NewString()),
		ConfigID:       id,
		MemberNumber:   maxNumber + 1,
		FullName:       p.FullName,
		DateOfBirth:    p.DateOfBirth,
		Gender:         p.Gender,
		MemberType:     p.MemberType,
		Relation:       p.Relation,
		ClassCode:      p.ClassCode,
		EnrollmentDate: now,
		Status:         MemberActive,
	}
	age := member.AgeOn(now)
	member.AgeBand = AgeBandFor(age)

	selections, err := e.store.GetBenefitSelections(ctx, id)
	if err != nil {
		return Member{}, err
	}
	member.BasePremium = e.memberPremium(member, selections, now)

	if err := e.store.AddMember(ctx, member); err != nil {
		return Member{}, err
	}

	if err := e.refreshParticipantCount(ctx, &cfg); err != nil {
		return Member{}, err
	}
	return member, nil
}

// TerminateMember marks a member TERMINATED and refreshes the count.
func (e *Engine) TerminateMember(ctx context.Context, id ConfigID, memberID MemberID) (Member, error) {
	unlock := e.lock(id)
	defer unlock()

	cfg, err := e.store.GetConfig(ctx, id)
	if err != nil {
		return Member{}, err
	}
	all, err := e.store.ListMembers(ctx, id, "")
	if err != nil {
		return Member{}, err
	}
	for _, m := range all {
		if m.ID != memberID {
			continue
		}
		now := e.clock.Now()
		m.Status = MemberTerminated
		m.TerminationDate = &now
		if err := e.store.SaveMember(ctx, m); err != nil {
			return Member{}, err
		}
		if err := e.refreshParticipantCount(ctx, &cfg); err != nil {
			return Member{}, err
		}
		return m, nil
	}
	return Member{}, ErrMemberNotFound
}

// ListMembers returns a config's members, optionally filtered by status.
func (e *Engine) ListMembers(ctx context.Context, id ConfigID, status MemberStatus) ([]Member, error) {
	if _, err := e.store.GetConfig(ctx, id); err != nil {
		return nil, err
	}
	return e.store.ListMembers(ctx, id, status)
}

// refreshParticipantCount pins cfg.ParticipantCount to the ACTIVE count.
func (e *Engine) refreshParticipantCount(ctx context.Context, cfg *PolicyConfig) error {
	active, err := e.store.ListMembers(ctx, cfg.ID, MemberActive)
	if err != nil {
		return err
	}
	cfg.ParticipantCount = len(active)
	cfg.UpdatedAt = e.clock.Now()
	return e.store.SaveConfig(ctx, *cfg)
}

// ImportMembers bulk-enrolls members from a tabular record set. Rows are
// processed one at a time to keep member numbers dense; a failing row is
// recorded (1-based index) and the import continues. On context
// cancellation, rows already committed stay committed and the remaining
// rows are reported as cancelled. The premium is recomputed once at the end
// when at least one member was added.
func (e *Engine) ImportMembers(ctx context.Context, id ConfigID, records []ImportRecord) (ImportResult, error) {
	unlock := e.lock(id)
	defer unlock()

	// The existence check and final recalculation run even when the caller
	// cancelled mid-import: committed rows must still be priced.
	if _, err := e.store.GetConfig(context.WithoutCancel(ctx), id); err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	for i, rec := range records {
		row := i + 1
		if ctx.Err() != nil {
			for j := i; j < len(records); j++ {
				result.Errors = append(result.Errors, ImportError{Row: j + 1, Error: "cancelled"})
			}
			break
		}

		params, err := rec.toParams()
		if err != nil {
			result.Errors = append(result.Errors, ImportError{Row: row, Error: err.Error()})
			continue
		}
		member, err := e.addMember(ctx, id, params)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{Row: row, Error: err.Error()})
			continue
		}
		result.Imported = append(result.Imported, member)
	}

	if len(result.Imported) > 0 {
		calc, err := e.calculate(context.WithoutCancel(ctx), id, true)
		if err != nil {
			return result, err
		}
		result.Premium = &calc
	}
	return result, nil
}

func (r ImportRecord) toParams() (MemberParams, error) {
	if r.FullName == "" {
		return MemberParams{}, errors.New("full_name is required")
	}
	if r.DateOfBirth == "" {
		return MemberParams{}, errors.New("date_of_birth is required")
	}
	dob, err := time.Parse("2006-01-02", r.DateOfBirth)
	if err != nil {
		return MemberParams{}, fmt.Errorf("invalid date_of_birth %q (use YYYY-MM-DD)", r.DateOfBirth)
	}
	if r.Gender == "" {
		return MemberParams{}, errors.New("gender is required")
	}
	if r.MemberType == "" {
		return MemberParams{}, errors.New("member_type is required")
	}
	classCode := r.ClassCode
	if classCode == "" {
		classCode = "1"
	}
	return MemberParams{
		FullName:    r.FullName,
		DateOfBirth: dob,
		Gender:      catalog.Gender(strings.ToUpper(r.Gender)),
		MemberType:  MemberType(strings.ToUpper(r.MemberType)),
		Relation:    r.Relation,
		ClassCode:   classCode,
	}, nil
}

// =============================================================================
// PREMIUM CALCULATION
// =============================================================================

// CalculatePremium computes the full premium breakdown for a configuration.
// When save is true, a calculation log row is appended atomically with the
// config's cached totals.
func (e *Engine) CalculatePremium(ctx context.Context, id ConfigID, save bool) (CalculationResult, error) {
	unlock := e.lock(id)
	defer unlock()
	return e.calculate(ctx, id, save)
}

func (e *Engine) calculate(ctx context.Context, id ConfigID, save bool) (CalculationResult, error) {
	cfg, err := e.store.GetConfig(ctx, id)
	if err != nil {
		return CalculationResult{}, err
	}

	selections, err := e.store.GetBenefitSelections(ctx, id)
	if err != nil {
		return CalculationResult{}, err
	}
	tcSelections, err := e.store.GetTCSelections(ctx, id)
	if err != nil {
		return CalculationResult{}, err
	}
	activeMembers, err := e.store.ListMembers(ctx, id, MemberActive)
	if err != nil {
		return CalculationResult{}, err
	}

	now := e.clock.Now()

	// Step 1: refresh category factors for selected categories so the
	// calculation reflects the current group, not the group at toggle time.
	for i := range selections {
		if !selections[i].IsSelected {
			continue
		}
		factor := e.categoryFactor(cfg, activeMembers, selections[i].Category)
		if !factor.Equal(selections[i].CategoryFactor) {
			selections[i].CategoryFactor = factor
			if err := e.store.SaveBenefitSelection(ctx, selections[i]); err != nil {
				return CalculationResult{}, err
			}
		}
	}

	// Step 2: member base premiums.
	baseTotal := decimal.Zero
	details := make([]MemberPremiumDetail, 0, len(activeMembers))
	for _, m := range activeMembers {
		premium := e.memberPremium(m, selections, now)
		baseTotal = baseTotal.Add(premium)
		if !premium.Equal(m.BasePremium) {
			m.BasePremium = premium
			if err := e.store.SaveMember(ctx, m); err != nil {
				return CalculationResult{}, err
			}
		}
		details = append(details, MemberPremiumDetail{
			MemberID:    m.ID,
			Name:        m.FullName,
			Age:         m.AgeOn(now),
			Gender:      m.Gender,
			BasePremium: premium,
		})
	}

	// Step 3: total multiplier.
	factors := FactorBreakdown{
		BenefitFactors:  make(map[string]decimal.Decimal),
		TCFactors:       make(map[string]TCFactorDetail),
		TotalMultiplier: money.One,
	}
	for _, sel := range selections {
		if !sel.IsSelected {
			continue
		}
		factors.BenefitFactors[string(sel.Category)] = sel.CategoryFactor
		factors.TotalMultiplier = factors.TotalMultiplier.Mul(sel.CategoryFactor)
	}
	for _, tc := range tcSelections {
		detail := TCFactorDetail{Option: tc.OptionValue, Multiplier: tc.AppliedMultiplier}
		if factor, ok := e.catalog.Factor(tc.FactorCode); ok {
			detail.Name = factor.FactorName
			if opt, ok := factor.Option(tc.OptionValue); ok {
				detail.Option = opt.OptionLabel
			}
		}
		factors.TCFactors[tc.FactorCode] = detail
		factors.TotalMultiplier = factors.TotalMultiplier.Mul(tc.AppliedMultiplier)
	}

	// Steps 4-6: adjusted premium, fees, rounded total.
	adjusted := baseTotal.Mul(factors.TotalMultiplier)
	adminFee := money.Max(adminFeeFloor, adjusted.Mul(adminFeeRate))
	tpaFee := money.Max(tpaFeeFloor, tpaFeePerHead.Mul(decimal.NewFromInt(int64(cfg.ParticipantCount))))
	total := money.RoundPremium(adjusted.Add(adminFee).Add(tpaFee))

	result := CalculationResult{
		ConfigID:         id,
		CalculatedAt:     now,
		CompanyName:      cfg.CompanyName,
		ParticipantCount: cfg.ParticipantCount,
		CoverageStart:    cfg.CoverageStart,
		CoverageEnd:      cfg.CoverageEnd,
		CoverageDays:     cfg.CoverageDays(),
		Breakdown: PremiumBreakdown{
			BasePremium:     baseTotal,
			TotalMultiplier: factors.TotalMultiplier,
			AdjustedPremium: adjusted,
			AdminFee:        adminFee,
			TPAFee:          tpaFee,
			TotalPremium:    total,
		},
		MonthlyPremium:   total.Div(money.Twelve),
		PerMemberAverage: money.SafeDiv(total, decimal.NewFromInt(int64(cfg.ParticipantCount))),
		Factors:          factors,
		MemberDetails:    details,
	}

	// Step 7: persist cached totals, with a log row when requested.
	cfg.TotalBasePremium = baseTotal
	cfg.TotalFactorMultiplier = factors.TotalMultiplier
	cfg.TotalAdjustedPremium = adjusted
	cfg.UpdatedAt = now

	if save {
		log := CalculationLog{
			ID:               uuid.NewString(),
			ConfigID:         id,
			CalculatedAt:     now,
			ParticipantCount: cfg.ParticipantCount,
			SelectedBenefits: make(map[string]bool, len(selections)),
			SelectedFactors:  make(map[string]string, len(tcSelections)),
			BasePremiumTotal: baseTotal,
			FactorDetails:    factors,
			TotalMultiplier:  factors.TotalMultiplier,
			MonthlyPremium:   result.MonthlyPremium,
			AnnualPremium:    total,
			AdminFee:         adminFee,
			TPAFee:           tpaFee,
			TotalPremium:     total,
		}
		for _, sel := range selections {
			log.SelectedBenefits[string(sel.Category)] = sel.IsSelected
		}
		for _, tc := range tcSelections {
			log.SelectedFactors[tc.FactorCode] = tc.OptionValue
		}
		if err := e.store.AppendCalculation(ctx, log, cfg); err != nil {
			return CalculationResult{}, err
		}
	} else if err := e.store.SaveConfig(ctx, cfg); err != nil {
		return CalculationResult{}, err
	}

	return result, nil
}

// memberPremium sums the member's contribution across selected benefit
// selections that are bound to a template: base rate for the effective
// demographic times the age-band multiplier (1.000 when no band matches).
func (e *Engine) memberPremium(m Member, selections []BenefitSelection, now time.Time) decimal.Decimal {
	premium := decimal.Zero
	age := m.AgeOn(now)
	for _, sel := range selections {
		if !sel.IsSelected || sel.TemplateCode == "" {
			continue
		}
		tpl, ok := e.catalog.Template(sel.TemplateCode)
		if !ok {
			continue
		}
		base := tpl.BasePremium(m.Gender, age)
		multiplier := e.catalog.AgeBandMultiplier(sel.TemplateCode, age, m.Gender)
		premium = premium.Add(base.Mul(multiplier))
	}
	return premium
}

// GetCalculationHistory returns saved calculations, newest first.
func (e *Engine) GetCalculationHistory(ctx context.Context, id ConfigID, limit int) ([]CalculationLog, error) {
	if _, err := e.store.GetConfig(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return e.store.ListCalculations(ctx, id, limit)
}

// =============================================================================
// SUBMISSION & APPROVAL WORKFLOW
// =============================================================================

// Submit validates a DRAFT configuration, recomputes its premium, moves it
// to QUOTED, and creates a workflow step for every threshold the adjusted
// premium meets. Preconditions are checked in order; the first violation is
// surfaced.
func (e *Engine) Submit(ctx context.Context, id ConfigID, submittedBy string) (PolicyConfig, error) {
	unlock := e.lock(id)
	defer unlock()

	cfg, err := e.store.GetConfig(ctx, id)
	if err != nil {
		return PolicyConfig{}, err
	}
	if cfg.Status != StatusDraft {
		return PolicyConfig{}, &StateError{
			ConfigID: id, Status: cfg.Status,
			Message: "only draft configurations can be submitted for approval",
		}
	}
	if cfg.ParticipantCount < 5 {
		return PolicyConfig{}, newValidation("min_participants", "Minimum 5 participants required")
	}
	selections, err := e.store.GetBenefitSelections(ctx, id)
	if err != nil {
		return PolicyConfig{}, err
	}
	anySelected := false
	for _, sel := range selections {
		if sel.IsSelected {
			anySelected = true
			break
		}
	}
	if !anySelected {
		return PolicyConfig{}, newValidation("benefit_selection", "At least one benefit must be selected")
	}
	active, err := e.store.ListMembers(ctx, id, MemberActive)
	if err != nil {
		return PolicyConfig{}, err
	}
	if len(active) == 0 {
		return PolicyConfig{}, newValidation("members", "No members enrolled")
	}

	if _, err := e.calculate(ctx, id, true); err != nil {
		return PolicyConfig{}, err
	}

	cfg, err = e.store.GetConfig(ctx, id)
	if err != nil {
		return PolicyConfig{}, err
	}
	cfg.Status = StatusQuoted
	cfg.UpdatedAt = e.clock.Now()
	if err := e.store.SaveConfig(ctx, cfg); err != nil {
		return PolicyConfig{}, err
	}

	var steps []WorkflowStep
	for _, step := range workflowSteps {
		if cfg.TotalAdjustedPremium.GreaterThanOrEqual(step.threshold) {
			steps = append(steps, WorkflowStep{
				ID:               uuid.NewString(),
				ConfigID:         id,
				StepName:         step.name,
				StepOrder:        step.order,
				Status:           StepPending,
				PremiumThreshold: step.threshold,
			})
		}
	}
	if len(steps) > 0 {
		if err := e.store.CreateWorkflowSteps(ctx, steps); err != nil {
			return PolicyConfig{}, err
		}
	}
	return cfg, nil
}

// Approve marks a PENDING workflow step APPROVED. When no PENDING, REJECTED,
// or REVISION steps remain, the configuration becomes APPROVED and a policy
// number is minted (exactly once).
func (e *Engine) Approve(ctx context.Context, id ConfigID, approverID, stepName, comments string) (PolicyConfig, error) {
	unlock := e.lock(id)
	defer unlock()

	cfg, err := e.store.GetConfig(ctx, id)
	if err != nil {
		return PolicyConfig{}, err
	}

	step, err := e.pendingStep(ctx, id, stepName)
	if err != nil {
		return PolicyConfig{}, err
	}

	now := e.clock.Now()
	step.Status = StepApproved
	step.ApproverID = approverID
	step.ApprovedAt = &now
	step.Comments = comments
	if err := e.store.SaveWorkflowStep(ctx, step); err != nil {
		return PolicyConfig{}, err
	}

	steps, err := e.store.ListWorkflowSteps(ctx, id)
	if err != nil {
		return PolicyConfig{}, err
	}
	for _, s := range steps {
		if s.Status != StepApproved {
			return cfg, nil // advancement blocked
		}
	}

	cfg.Status = StatusApproved
	cfg.ApprovedBy = approverID
	cfg.ApprovedAt = &now
	cfg.UpdatedAt = now
	return cfg, e.mintPolicyNumber(ctx, cfg)
}

// Reject marks a PENDING step REJECTED, blocking config advancement.
func (e *Engine) Reject(ctx context.Context, id ConfigID, approverID, stepName, comments string) (WorkflowStep, error) {
	return e.resolveStep(ctx, id, approverID, stepName, comments, StepRejected)
}

// RequestRevision marks a PENDING step REVISION, sending the quote back.
func (e *Engine) RequestRevision(ctx context.Context, id ConfigID, approverID, stepName, comments string) (WorkflowStep, error) {
	return e.resolveStep(ctx, id, approverID, stepName, comments, StepRevision)
}

func (e *Engine) resolveStep(ctx context.Context, id ConfigID, approverID, stepName, comments string, status StepStatus) (WorkflowStep, error) {
	unlock := e.lock(id)
	defer unlock()

	if _, err := e.store.GetConfig(ctx, id); err != nil {
		return WorkflowStep{}, err
	}
	step, err := e.pendingStep(ctx, id, stepName)
	if err != nil {
		return WorkflowStep{}, err
	}
	now := e.clock.Now()
	step.Status = status
	step.ApproverID = approverID
	step.ApprovedAt = &now
	step.Comments = comments
	return step, e.store.SaveWorkflowStep(ctx, step)
}

func (e *Engine) pendingStep(ctx context.Context, id ConfigID, stepName string) (WorkflowStep, error) {
	steps, err := e.store.ListWorkflowSteps(ctx, id)
	if err != nil {
		return WorkflowStep{}, err
	}
	for _, s := range steps {
		if s.StepName != stepName {
			continue
		}
		if s.Status != StepPending {
			return WorkflowStep{}, &StateError{
				ConfigID: id, Status: "",
				Message: fmt.Sprintf("step %s already processed", stepName),
			}
		}
		return s, nil
	}
	return WorkflowStep{}, fmt.Errorf("%w: %s", ErrStepNotFound, stepName)
}

// mintPolicyNumber assigns PGH<YYYYMM><NNNNN>, retrying on collision.
func (e *Engine) mintPolicyNumber(ctx context.Context, cfg PolicyConfig) error {
	prefix := "PGH" + e.clock.Now().Format("200601")
	seq, err := e.store.MaxPolicySequence(ctx, prefix)
	if err != nil {
		return err
	}
	for attempt := 0; attempt < numberRetries; attempt++ {
		cfg.PolicyNumber = fmt.Sprintf("%s%05d", prefix, seq+1+attempt)
		err = e.store.SaveConfig(ctx, cfg)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNumberCollision) {
			return err
		}
	}
	return ErrNumberCollision
}

// GetApprovals returns workflow steps in step order.
func (e *Engine) GetApprovals(ctx context.Context, id ConfigID) ([]WorkflowStep, error) {
	if _, err := e.store.GetConfig(ctx, id); err != nil {
		return nil, err
	}
	return e.store.ListWorkflowSteps(ctx, id)
}
