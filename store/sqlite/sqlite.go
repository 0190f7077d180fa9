/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements pricing.Store, accumulator.Store, and claims.HistoryStore
  over one SQLite database. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  configs:             Policy configurations with cached totals
  benefit_selections:  Per-config benefit choices, (config, category) unique
  tc_selections:       Per-config T&C choices, (config, factor) unique
  benefit_overrides:   Per-quote limit overrides
  members:             Enrolled members
  calculation_log:     Append-only premium calculation audit
  workflow_steps:      Approval workflow, (config, step_order) unique
  accumulators:        Utilization counters, (member, benefit, period) unique
  accumulator_claims:  Idempotency ledger, (accumulator, claim) unique
  claim_history:       Validated claim outcomes for duplicate/prereq checks

UNIQUENESS AS CONCURRENCY CONTROL:
  Quote and policy numbers are UNIQUE columns; a colliding insert surfaces
  pricing.ErrNumberCollision and the engine retries with the next
  sequence. Accumulator idempotency rides the (accumulator, claim) unique
  index: a duplicate application is detected inside the transaction and
  leaves the counter untouched.

APPEND-ONLY ENFORCEMENT:
  calculation_log has no UPDATE or DELETE path. AppendCalculation inserts
  the log row and refreshes the config's cached totals in one transaction.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL mode so
  readers do not block the single writer.

USAGE:
  store, err := sqlite.New("./data/grouphealth.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - pricing/store.go: Interface contract and semantics
  - accumulator/accumulator.go: Idempotent increment contract
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/medena/grouphealth/accumulator"
	"github.com/medena/grouphealth/catalog"
	"github.com/medena/grouphealth/claims"
	"github.com/medena/grouphealth/pricing"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS configs (
		id TEXT PRIMARY KEY,
		quote_number TEXT NOT NULL UNIQUE,
		policy_number TEXT UNIQUE,
		company_name TEXT NOT NULL,
		industry_type TEXT,
		participant_count INTEGER NOT NULL,
		class_count INTEGER NOT NULL DEFAULT 1,
		coverage_start TEXT NOT NULL,
		coverage_end TEXT NOT NULL,
		pricing_method TEXT NOT NULL,
		status TEXT NOT NULL,
		total_base_premium TEXT NOT NULL DEFAULT '0',
		total_factor_multiplier TEXT NOT NULL DEFAULT '1',
		total_adjusted_premium TEXT NOT NULL DEFAULT '0',
		created_by TEXT,
		approved_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		approved_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_configs_status ON configs(status);
	CREATE INDEX IF NOT EXISTS idx_configs_company ON configs(company_name);
	CREATE INDEX IF NOT EXISTS idx_configs_created ON configs(created_at DESC);

	CREATE TABLE IF NOT EXISTS benefit_selections (
		config_id TEXT NOT NULL REFERENCES configs(id) ON DELETE CASCADE,
		category TEXT NOT NULL,
		template_code TEXT,
		is_selected INTEGER NOT NULL DEFAULT 0,
		category_factor TEXT NOT NULL DEFAULT '1',
		PRIMARY KEY (config_id, category)
	);

	CREATE TABLE IF NOT EXISTS tc_selections (
		config_id TEXT NOT NULL REFERENCES configs(id) ON DELETE CASCADE,
		factor_code TEXT NOT NULL,
		option_value TEXT NOT NULL,
		applied_multiplier TEXT NOT NULL,
		PRIMARY KEY (config_id, factor_code)
	);

	CREATE TABLE IF NOT EXISTS benefit_overrides (
		config_id TEXT NOT NULL REFERENCES configs(id) ON DELETE CASCADE,
		benefit_code TEXT NOT NULL,
		original_limit TEXT NOT NULL,
		override_limit TEXT NOT NULL,
		reason TEXT,
		PRIMARY KEY (config_id, benefit_code)
	);

	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL REFERENCES configs(id) ON DELETE CASCADE,
		member_number INTEGER NOT NULL,
		full_name TEXT NOT NULL,
		date_of_birth TEXT NOT NULL,
		gender TEXT NOT NULL,
		member_type TEXT NOT NULL,
		relation TEXT,
		class_code TEXT NOT NULL DEFAULT '1',
		age_band TEXT,
		base_premium TEXT NOT NULL DEFAULT '0',
		enrollment_date TEXT NOT NULL,
		termination_date TEXT,
		status TEXT NOT NULL,
		UNIQUE (config_id, member_number)
	);

	CREATE INDEX IF NOT EXISTS idx_members_config_status ON members(config_id, status);

	-- Append-only: no UPDATE/DELETE statements exist for this table.
	CREATE TABLE IF NOT EXISTS calculation_log (
		id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL REFERENCES configs(id) ON DELETE CASCADE,
		calculated_at TEXT NOT NULL,
		participant_count INTEGER NOT NULL,
		selected_benefits_json TEXT NOT NULL,
		selected_factors_json TEXT NOT NULL,
		factor_details_json TEXT NOT NULL,
		base_premium_total TEXT NOT NULL,
		total_multiplier TEXT NOT NULL,
		monthly_premium TEXT NOT NULL,
		annual_premium TEXT NOT NULL,
		admin_fee TEXT NOT NULL,
		tpa_fee TEXT NOT NULL,
		total_premium TEXT NOT NULL,
		calculated_by TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_calc_log_config
		ON calculation_log(config_id, calculated_at DESC);

	CREATE TABLE IF NOT EXISTS workflow_steps (
		id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL REFERENCES configs(id) ON DELETE CASCADE,
		step_name TEXT NOT NULL,
		step_order INTEGER NOT NULL,
		status TEXT NOT NULL,
		approver_id TEXT,
		approved_at TEXT,
		comments TEXT,
		premium_threshold TEXT NOT NULL,
		UNIQUE (config_id, step_order)
	);

	CREATE TABLE IF NOT EXISTS accumulators (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		benefit_code TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		used_amount TEXT NOT NULL DEFAULT '0',
		used_count INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		UNIQUE (member_id, benefit_code, period_start)
	);

	CREATE TABLE IF NOT EXISTS accumulator_claims (
		accumulator_id TEXT NOT NULL REFERENCES accumulators(id) ON DELETE CASCADE,
		claim_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		applied_at TEXT NOT NULL,
		PRIMARY KEY (accumulator_id, claim_id)
	);

	CREATE TABLE IF NOT EXISTS claim_history (
		claim_id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		benefit_code TEXT NOT NULL,
		service_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		passed INTEGER NOT NULL,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_claim_history_member
		ON claim_history(member_id, service_date DESC);
	CREATE INDEX IF NOT EXISTS idx_claim_history_fingerprint
		ON claim_history(fingerprint);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONFIGURATIONS (pricing.Store)
// =============================================================================

// CreateConfig inserts a configuration with its initial selections in one
// transaction.
func (s *Store) CreateConfig(ctx context.Context, cfg pricing.PolicyConfig, benefits []pricing.BenefitSelection, tc []pricing.TCSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO configs (id, quote_number, policy_number, company_name, industry_type,
			participant_count, class_count, coverage_start, coverage_end, pricing_method,
			status, total_base_premium, total_factor_multiplier, total_adjusted_premium,
			created_by, approved_by, created_at, updated_at, approved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(cfg.ID), cfg.QuoteNumber, nullString(cfg.PolicyNumber),
		cfg.CompanyName, cfg.IndustryType,
		cfg.ParticipantCount, cfg.ClassCount,
		cfg.CoverageStart.Format(time.RFC3339), cfg.CoverageEnd.Format(time.RFC3339),
		string(cfg.PricingMethod), string(cfg.Status),
		cfg.TotalBasePremium.String(), cfg.TotalFactorMultiplier.String(), cfg.TotalAdjustedPremium.String(),
		cfg.CreatedBy, cfg.ApprovedBy,
		cfg.CreatedAt.Format(time.RFC3339), cfg.UpdatedAt.Format(time.RFC3339),
		nullTime(cfg.ApprovedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return pricing.ErrNumberCollision
		}
		return fmt.Errorf("failed to insert config: %w", err)
	}

	for _, b := range benefits {
		if err := upsertBenefitSelection(ctx, tx, b); err != nil {
			return err
		}
	}
	for _, t := range tc {
		if err := upsertTCSelection(ctx, tx, t); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const configColumns = `id, quote_number, policy_number, company_name, industry_type,
	participant_count, class_count, coverage_start, coverage_end, pricing_method,
	status, total_base_premium, total_factor_multiplier, total_adjusted_premium,
	created_by, approved_by, created_at, updated_at, approved_at`

// GetConfig returns a configuration by ID.
func (s *Store) GetConfig(ctx context.Context, id pricing.ConfigID) (pricing.PolicyConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+configColumns+" FROM configs WHERE id = ?", string(id))
	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return pricing.PolicyConfig{}, pricing.ErrConfigNotFound
	}
	return cfg, err
}

// ListConfigs returns configurations newest first.
func (s *Store) ListConfigs(ctx context.Context, filter pricing.ListFilter) ([]pricing.PolicyConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + configColumns + " FROM configs WHERE 1=1"
	var args []any
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.CompanyName != "" {
		query += " AND company_name LIKE ?"
		args = append(args, "%"+filter.CompanyName+"%")
	}
	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = 50
	case limit > 500:
		limit = 500
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query configs: %w", err)
	}
	defer rows.Close()

	var configs []pricing.PolicyConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// SaveConfig updates a configuration's mutable fields.
func (s *Store) SaveConfig(ctx context.Context, cfg pricing.PolicyConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE configs SET
			policy_number = ?,
			company_name = ?,
			industry_type = ?,
			participant_count = ?,
			class_count = ?,
			coverage_start = ?,
			coverage_end = ?,
			pricing_method = ?,
			status = ?,
			total_base_premium = ?,
			total_factor_multiplier = ?,
			total_adjusted_premium = ?,
			approved_by = ?,
			updated_at = ?,
			approved_at = ?
		WHERE id = ?`,
		nullString(cfg.PolicyNumber),
		cfg.CompanyName, cfg.IndustryType,
		cfg.ParticipantCount, cfg.ClassCount,
		cfg.CoverageStart.Format(time.RFC3339), cfg.CoverageEnd.Format(time.RFC3339),
		string(cfg.PricingMethod), string(cfg.Status),
		cfg.TotalBasePremium.String(), cfg.TotalFactorMultiplier.String(), cfg.TotalAdjustedPremium.String(),
		cfg.ApprovedBy,
		cfg.UpdatedAt.Format(time.RFC3339),
		nullTime(cfg.ApprovedAt),
		string(cfg.ID),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return pricing.ErrNumberCollision
		}
		return fmt.Errorf("failed to update config: %w", err)
	}
	return nil
}

// DeleteConfig removes a configuration; owned rows cascade.
func (s *Store) DeleteConfig(ctx context.Context, id pricing.ConfigID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM configs WHERE id = ?", string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pricing.ErrConfigNotFound
	}
	return nil
}

// MaxQuoteSequence returns the highest numeric suffix among quote numbers
// with the given prefix.
func (s *Store) MaxQuoteSequence(ctx context.Context, prefix string) (int, error) {
	return s.maxSequence(ctx, "quote_number", prefix)
}

// MaxPolicySequence returns the highest numeric suffix among policy numbers
// with the given prefix.
func (s *Store) MaxPolicySequence(ctx context.Context, prefix string) (int, error) {
	return s.maxSequence(ctx, "policy_number", prefix)
}

func (s *Store) maxSequence(ctx context.Context, column, prefix string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Suffix length varies by numbering scheme, so take the max over the
	// numeric remainder after the prefix.
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(CAST(SUBSTR(%s, ?) AS INTEGER)), 0)
		FROM configs WHERE %s LIKE ?`, column, column)

	var max int
	err := s.db.QueryRowContext(ctx, query, len(prefix)+1, prefix+"%").Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query max sequence: %w", err)
	}
	return max, nil
}

// =============================================================================
// BENEFIT & T&C SELECTIONS (pricing.Store)
// =============================================================================

// GetBenefitSelections returns selections in catalog category order.
func (s *Store) GetBenefitSelections(ctx context.Context, id pricing.ConfigID) ([]pricing.BenefitSelection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT config_id, category, template_code, is_selected, category_factor
		FROM benefit_selections WHERE config_id = ?`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byCategory := make(map[catalog.BenefitCategory]pricing.BenefitSelection)
	for rows.Next() {
		var sel pricing.BenefitSelection
		var configID, category, factor string
		var template sql.NullString
		if err := rows.Scan(&configID, &category, &template, &sel.IsSelected, &factor); err != nil {
			return nil, err
		}
		sel.ConfigID = pricing.ConfigID(configID)
		sel.Category = catalog.BenefitCategory(category)
		sel.TemplateCode = template.String
		sel.CategoryFactor = mustDecimal(factor)
		byCategory[sel.Category] = sel
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []pricing.BenefitSelection
	for _, c := range catalog.AllCategories {
		if sel, ok := byCategory[c]; ok {
			out = append(out, sel)
		}
	}
	return out, nil
}

// SaveBenefitSelection upserts one selection.
func (s *Store) SaveBenefitSelection(ctx context.Context, sel pricing.BenefitSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertBenefitSelection(ctx, s.db, sel)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertBenefitSelection(ctx context.Context, db execer, sel pricing.BenefitSelection) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO benefit_selections (config_id, category, template_code, is_selected, category_factor)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(config_id, category) DO UPDATE SET
			template_code = excluded.template_code,
			is_selected = excluded.is_selected,
			category_factor = excluded.category_factor`,
		string(sel.ConfigID), string(sel.Category), nullString(sel.TemplateCode),
		sel.IsSelected, sel.CategoryFactor.String(),
	)
	return err
}

// GetTCSelections returns the config's T&C selections.
func (s *Store) GetTCSelections(ctx context.Context, id pricing.ConfigID) ([]pricing.TCSelection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT config_id, factor_code, option_value, applied_multiplier
		FROM tc_selections WHERE config_id = ? ORDER BY factor_code`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.TCSelection
	for rows.Next() {
		var sel pricing.TCSelection
		var configID, multiplier string
		if err := rows.Scan(&configID, &sel.FactorCode, &sel.OptionValue, &multiplier); err != nil {
			return nil, err
		}
		sel.ConfigID = pricing.ConfigID(configID)
		sel.AppliedMultiplier = mustDecimal(multiplier)
		out = append(out, sel)
	}
	return out, rows.Err()
}

// SaveTCSelection upserts one T&C selection.
func (s *Store) SaveTCSelection(ctx context.Context, sel pricing.TCSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertTCSelection(ctx, s.db, sel)
}

func upsertTCSelection(ctx context.Context, db execer, sel pricing.TCSelection) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tc_selections (config_id, factor_code, option_value, applied_multiplier)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(config_id, factor_code) DO UPDATE SET
			option_value = excluded.option_value,
			applied_multiplier = excluded.applied_multiplier`,
		string(sel.ConfigID), sel.FactorCode, sel.OptionValue, sel.AppliedMultiplier.String(),
	)
	return err
}

// GetOverrides returns the config's benefit limit overrides.
func (s *Store) GetOverrides(ctx context.Context, id pricing.ConfigID) ([]pricing.BenefitOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT config_id, benefit_code, original_limit, override_limit, reason
		FROM benefit_overrides WHERE config_id = ? ORDER BY benefit_code`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.BenefitOverride
	for rows.Next() {
		var o pricing.BenefitOverride
		var configID, original, override string
		var reason sql.NullString
		if err := rows.Scan(&configID, &o.BenefitCode, &original, &override, &reason); err != nil {
			return nil, err
		}
		o.ConfigID = pricing.ConfigID(configID)
		o.OriginalLimit = mustDecimal(original)
		o.OverrideLimit = mustDecimal(override)
		o.Reason = reason.String
		out = append(out, o)
	}
	return out, rows.Err()
}

// SaveOverride upserts one benefit limit override.
func (s *Store) SaveOverride(ctx context.Context, o pricing.BenefitOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO benefit_overrides (config_id, benefit_code, original_limit, override_limit, reason)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(config_id, benefit_code) DO UPDATE SET
			original_limit = excluded.original_limit,
			override_limit = excluded.override_limit,
			reason = excluded.reason`,
		string(o.ConfigID), o.BenefitCode,
		o.OriginalLimit.String(), o.OverrideLimit.String(), nullString(o.Reason),
	)
	return err
}

// =============================================================================
// MEMBERS (pricing.Store)
// =============================================================================

const memberColumns = `id, config_id, member_number, full_name, date_of_birth, gender,
	member_type, relation, class_code, age_band, base_premium,
	enrollment_date, termination_date, status`

// ListMembers returns members ordered by member_number. Empty status means all.
func (s *Store) ListMembers(ctx context.Context, id pricing.ConfigID, status pricing.MemberStatus) ([]pricing.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + memberColumns + " FROM members WHERE config_id = ?"
	args := []any{string(id)}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY member_number"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []pricing.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember inserts a member.
func (s *Store) AddMember(ctx context.Context, m pricing.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, config_id, member_number, full_name, date_of_birth, gender,
			member_type, relation, class_code, age_band, base_premium,
			enrollment_date, termination_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(m.ID), string(m.ConfigID), m.MemberNumber,
		m.FullName, m.DateOfBirth.Format(time.RFC3339), string(m.Gender),
		string(m.MemberType), m.Relation, m.ClassCode,
		m.AgeBand, m.BasePremium.String(),
		m.EnrollmentDate.Format(time.RFC3339), nullTime(m.TerminationDate), string(m.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// SaveMember updates a member's mutable fields.
func (s *Store) SaveMember(ctx context.Context, m pricing.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE members SET
			full_name = ?, date_of_birth = ?, gender = ?, member_type = ?,
			relation = ?, class_code = ?, age_band = ?, base_premium = ?,
			termination_date = ?, status = ?
		WHERE id = ?`,
		m.FullName, m.DateOfBirth.Format(time.RFC3339), string(m.Gender), string(m.MemberType),
		m.Relation, m.ClassCode, m.AgeBand, m.BasePremium.String(),
		nullTime(m.TerminationDate), string(m.Status),
		string(m.ID),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pricing.ErrMemberNotFound
	}
	return nil
}

// =============================================================================
// CALCULATION LOG (pricing.Store)
// =============================================================================

// AppendCalculation inserts the log row and updates the config's cached
// totals in one transaction. Log rows are never updated or deleted.
func (s *Store) AppendCalculation(ctx context.Context, log pricing.CalculationLog, cfg pricing.PolicyConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	benefitsJSON, _ := json.Marshal(log.SelectedBenefits)
	factorsJSON, _ := json.Marshal(log.SelectedFactors)
	detailsJSON, _ := json.Marshal(factorDetailsDoc(log.FactorDetails))

	_, err = tx.ExecContext(ctx, `
		INSERT INTO calculation_log (id, config_id, calculated_at, participant_count,
			selected_benefits_json, selected_factors_json, factor_details_json,
			base_premium_total, total_multiplier, monthly_premium, annual_premium,
			admin_fee, tpa_fee, total_premium, calculated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, string(log.ConfigID), log.CalculatedAt.Format(time.RFC3339),
		log.ParticipantCount,
		string(benefitsJSON), string(factorsJSON), string(detailsJSON),
		log.BasePremiumTotal.String(), log.TotalMultiplier.String(),
		log.MonthlyPremium.String(), log.AnnualPremium.String(),
		log.AdminFee.String(), log.TPAFee.String(), log.TotalPremium.String(),
		log.CalculatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert calculation log: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE configs SET
			total_base_premium = ?, total_factor_multiplier = ?,
			total_adjusted_premium = ?, participant_count = ?, updated_at = ?
		WHERE id = ?`,
		cfg.TotalBasePremium.String(), cfg.TotalFactorMultiplier.String(),
		cfg.TotalAdjustedPremium.String(), cfg.ParticipantCount,
		cfg.UpdatedAt.Format(time.RFC3339),
		string(cfg.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update cached totals: %w", err)
	}

	return tx.Commit()
}

// ListCalculations returns log rows newest first.
func (s *Store) ListCalculations(ctx context.Context, id pricing.ConfigID, limit int) ([]pricing.CalculationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, config_id, calculated_at, participant_count,
			selected_benefits_json, selected_factors_json, factor_details_json,
			base_premium_total, total_multiplier, monthly_premium, annual_premium,
			admin_fee, tpa_fee, total_premium, calculated_by
		FROM calculation_log
		WHERE config_id = ?
		ORDER BY calculated_at DESC, id DESC
		LIMIT ?`, string(id), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []pricing.CalculationLog
	for rows.Next() {
		var l pricing.CalculationLog
		var configID, calculatedAt string
		var benefitsJSON, factorsJSON, detailsJSON string
		var base, mult, monthly, annual, admin, tpa, total string
		var calculatedBy sql.NullString
		if err := rows.Scan(
			&l.ID, &configID, &calculatedAt, &l.ParticipantCount,
			&benefitsJSON, &factorsJSON, &detailsJSON,
			&base, &mult, &monthly, &annual, &admin, &tpa, &total, &calculatedBy,
		); err != nil {
			return nil, err
		}
		l.ConfigID = pricing.ConfigID(configID)
		l.CalculatedAt, _ = time.Parse(time.RFC3339, calculatedAt)
		json.Unmarshal([]byte(benefitsJSON), &l.SelectedBenefits)
		json.Unmarshal([]byte(factorsJSON), &l.SelectedFactors)
		l.FactorDetails = factorDetailsFromDoc(detailsJSON)
		l.BasePremiumTotal = mustDecimal(base)
		l.TotalMultiplier = mustDecimal(mult)
		l.MonthlyPremium = mustDecimal(monthly)
		l.AnnualPremium = mustDecimal(annual)
		l.AdminFee = mustDecimal(admin)
		l.TPAFee = mustDecimal(tpa)
		l.TotalPremium = mustDecimal(total)
		l.CalculatedBy = calculatedBy.String
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// factorDetailsJSON is the serialized shape of a FactorBreakdown.
// Decimals travel as strings to keep full precision through JSON.
type factorDetailsJSON struct {
	BenefitFactors  map[string]string       `json:"benefit_factors"`
	TCFactors       map[string]tcDetailJSON `json:"tc_factors"`
	TotalMultiplier string                  `json:"total_multiplier"`
}

type tcDetailJSON struct {
	Name       string `json:"name"`
	Option     string `json:"option"`
	Multiplier string `json:"multiplier"`
}

func factorDetailsDoc(fb pricing.FactorBreakdown) factorDetailsJSON {
	doc := factorDetailsJSON{
		BenefitFactors:  make(map[string]string, len(fb.BenefitFactors)),
		TCFactors:       make(map[string]tcDetailJSON, len(fb.TCFactors)),
		TotalMultiplier: fb.TotalMultiplier.String(),
	}
	for k, v := range fb.BenefitFactors {
		doc.BenefitFactors[k] = v.String()
	}
	for k, v := range fb.TCFactors {
		doc.TCFactors[k] = tcDetailJSON{Name: v.Name, Option: v.Option, Multiplier: v.Multiplier.String()}
	}
	return doc
}

func factorDetailsFromDoc(raw string) pricing.FactorBreakdown {
	var doc factorDetailsJSON
	json.Unmarshal([]byte(raw), &doc)
	fb := pricing.FactorBreakdown{
		BenefitFactors:  make(map[string]decimal.Decimal, len(doc.BenefitFactors)),
		TCFactors:       make(map[string]pricing.TCFactorDetail, len(doc.TCFactors)),
		TotalMultiplier: mustDecimal(doc.TotalMultiplier),
	}
	for k, v := range doc.BenefitFactors {
		fb.BenefitFactors[k] = mustDecimal(v)
	}
	for k, v := range doc.TCFactors {
		fb.TCFactors[k] = pricing.TCFactorDetail{Name: v.Name, Option: v.Option, Multiplier: mustDecimal(v.Multiplier)}
	}
	return fb
}

// =============================================================================
// WORKFLOW STEPS (pricing.Store)
// =============================================================================

// CreateWorkflowSteps inserts the steps atomically.
func (s *Store) CreateWorkflowSteps(ctx context.Context, steps []pricing.WorkflowStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, step := range steps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO workflow_steps (id, config_id, step_name, step_order,
				status, approver_id, approved_at, comments, premium_threshold)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			step.ID, string(step.ConfigID), step.StepName, step.StepOrder,
			string(step.Status), step.ApproverID, nullTime(step.ApprovedAt),
			step.Comments, step.PremiumThreshold.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert workflow step: %w", err)
		}
	}
	return tx.Commit()
}

// ListWorkflowSteps returns steps in step order.
func (s *Store) ListWorkflowSteps(ctx context.Context, id pricing.ConfigID) ([]pricing.WorkflowStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, config_id, step_name, step_order, status, approver_id,
			approved_at, comments, premium_threshold
		FROM workflow_steps WHERE config_id = ? ORDER BY step_order`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []pricing.WorkflowStep
	for rows.Next() {
		var step pricing.WorkflowStep
		var configID, threshold string
		var approverID, comments, approvedAt sql.NullString
		if err := rows.Scan(
			&step.ID, &configID, &step.StepName, &step.StepOrder,
			&step.Status, &approverID, &approvedAt, &comments, &threshold,
		); err != nil {
			return nil, err
		}
		step.ConfigID = pricing.ConfigID(configID)
		step.ApproverID = approverID.String
		step.Comments = comments.String
		step.PremiumThreshold = mustDecimal(threshold)
		if approvedAt.Valid {
			t, _ := time.Parse(time.RFC3339, approvedAt.String)
			step.ApprovedAt = &t
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// SaveWorkflowStep updates one step.
func (s *Store) SaveWorkflowStep(ctx context.Context, step pricing.WorkflowStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE workflow_steps SET
			status = ?, approver_id = ?, approved_at = ?, comments = ?
		WHERE id = ?`,
		string(step.Status), step.ApproverID, nullTime(step.ApprovedAt), step.Comments,
		step.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pricing.ErrStepNotFound
	}
	return nil
}

// =============================================================================
// ACCUMULATORS (accumulator.Store)
// =============================================================================

// Get returns the accumulator for the key.
func (s *Store) Get(ctx context.Context, memberID, benefitCode string, periodStart time.Time) (accumulator.Accumulator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, member_id, benefit_code, period_start, period_end,
			used_amount, used_count, updated_at
		FROM accumulators
		WHERE member_id = ? AND benefit_code = ? AND period_start = ?`,
		memberID, benefitCode, periodStart.Format(time.RFC3339))

	acc, err := scanAccumulator(row)
	if err == sql.ErrNoRows {
		return accumulator.Accumulator{}, accumulator.ErrNotFound
	}
	return acc, err
}

// ListForMember returns all of a member's accumulators.
func (s *Store) ListForMember(ctx context.Context, memberID string) ([]accumulator.Accumulator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, benefit_code, period_start, period_end,
			used_amount, used_count, updated_at
		FROM accumulators WHERE member_id = ?
		ORDER BY benefit_code, period_start`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accs []accumulator.Accumulator
	for rows.Next() {
		acc, err := scanAccumulator(rows)
		if err != nil {
			return nil, err
		}
		accs = append(accs, acc)
	}
	return accs, rows.Err()
}

// Apply increments the accumulator by the claim's amount, creating it on
// first use. The (accumulator, claim) primary key makes retries no-ops.
func (s *Store) Apply(ctx context.Context, memberID, benefitCode string, periodStart, periodEnd time.Time, claimID string, amount decimal.Decimal) (accumulator.Accumulator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return accumulator.Accumulator{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	startStr := periodStart.Format(time.RFC3339)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accumulators (id, member_id, benefit_code, period_start, period_end,
			used_amount, used_count, updated_at)
		VALUES (?, ?, ?, ?, ?, '0', 0, ?)
		ON CONFLICT(member_id, benefit_code, period_start) DO NOTHING`,
		uuid.NewString(), memberID, benefitCode,
		startStr, periodEnd.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return accumulator.Accumulator{}, fmt.Errorf("failed to ensure accumulator: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, member_id, benefit_code, period_start, period_end,
			used_amount, used_count, updated_at
		FROM accumulators
		WHERE member_id = ? AND benefit_code = ? AND period_start = ?`,
		memberID, benefitCode, startStr)
	acc, err := scanAccumulator(row)
	if err != nil {
		return accumulator.Accumulator{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accumulator_claims (accumulator_id, claim_id, amount, applied_at)
		VALUES (?, ?, ?, ?)`,
		acc.ID, claimID, amount.String(), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			// Already applied; current state is returned unchanged.
			return acc, nil
		}
		return accumulator.Accumulator{}, fmt.Errorf("failed to record application: %w", err)
	}

	acc.UsedAmount = acc.UsedAmount.Add(amount)
	acc.UsedCount++
	acc.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		UPDATE accumulators SET used_amount = ?, used_count = ?, updated_at = ?
		WHERE id = ?`,
		acc.UsedAmount.String(), acc.UsedCount, now.Format(time.RFC3339), acc.ID,
	)
	if err != nil {
		return accumulator.Accumulator{}, fmt.Errorf("failed to update accumulator: %w", err)
	}

	return acc, tx.Commit()
}

// =============================================================================
// CLAIM HISTORY (claims.HistoryStore)
// =============================================================================

// RecordClaim upserts a claim outcome.
func (s *Store) RecordClaim(ctx context.Context, rec claims.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claim_history (claim_id, member_id, benefit_code, service_date,
			amount, fingerprint, passed, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id) DO UPDATE SET
			passed = excluded.passed,
			recorded_at = excluded.recorded_at`,
		rec.ClaimID, rec.MemberID, rec.BenefitCode,
		rec.ServiceDate.Format(time.RFC3339),
		rec.Amount.String(), rec.Fingerprint, rec.Passed,
		rec.RecordedAt.Format(time.RFC3339),
	)
	return err
}

// MemberHistory returns a member's recorded claims, newest first.
func (s *Store) MemberHistory(ctx context.Context, memberID string) ([]claims.PriorClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT claim_id, benefit_code, service_date, amount, fingerprint, passed
		FROM claim_history WHERE member_id = ?
		ORDER BY service_date DESC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []claims.PriorClaim
	for rows.Next() {
		var p claims.PriorClaim
		var serviceDate, amount string
		if err := rows.Scan(&p.ClaimID, &p.BenefitCode, &serviceDate, &amount, &p.Fingerprint, &p.Passed); err != nil {
			return nil, err
		}
		p.ServiceDate, _ = time.Parse(time.RFC3339, serviceDate)
		p.Amount = mustDecimal(amount)
		history = append(history, p)
	}
	return history, rows.Err()
}

// =============================================================================
// SCAN & CONVERSION HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (pricing.PolicyConfig, error) {
	var cfg pricing.PolicyConfig
	var id, coverageStart, coverageEnd, createdAt, updatedAt string
	var policyNumber, industryType, createdBy, approvedBy, approvedAt sql.NullString
	var base, mult, adjusted string

	err := row.Scan(
		&id, &cfg.QuoteNumber, &policyNumber, &cfg.CompanyName, &industryType,
		&cfg.ParticipantCount, &cfg.ClassCount, &coverageStart, &coverageEnd, &cfg.PricingMethod,
		&cfg.Status, &base, &mult, &adjusted,
		&createdBy, &approvedBy, &createdAt, &updatedAt, &approvedAt,
	)
	if err != nil {
		return cfg, err
	}

	cfg.ID = pricing.ConfigID(id)
	cfg.PolicyNumber = policyNumber.String
	cfg.IndustryType = industryType.String
	cfg.CoverageStart, _ = time.Parse(time.RFC3339, coverageStart)
	cfg.CoverageEnd, _ = time.Parse(time.RFC3339, coverageEnd)
	cfg.TotalBasePremium = mustDecimal(base)
	cfg.TotalFactorMultiplier = mustDecimal(mult)
	cfg.TotalAdjustedPremium = mustDecimal(adjusted)
	cfg.CreatedBy = createdBy.String
	cfg.ApprovedBy = approvedBy.String
	cfg.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	cfg.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if approvedAt.Valid {
		t, _ := time.Parse(time.RFC3339, approvedAt.String)
		cfg.ApprovedAt = &t
	}
	return cfg, nil
}

func scanMember(row rowScanner) (pricing.Member, error) {
	var m pricing.Member
	var id, configID, dob, enrollment string
	var relation, ageBand, termination sql.NullString
	var base string

	err := row.Scan(
		&id, &configID, &m.MemberNumber, &m.FullName, &dob, &m.Gender,
		&m.MemberType, &relation, &m.ClassCode, &ageBand, &base,
		&enrollment, &termination, &m.Status,
	)
	if err != nil {
		return m, err
	}

	m.ID = pricing.MemberID(id)
	m.ConfigID = pricing.ConfigID(configID)
	m.DateOfBirth, _ = time.Parse(time.RFC3339, dob)
	m.Relation = relation.String
	m.AgeBand = ageBand.String
	m.BasePremium = mustDecimal(base)
	m.EnrollmentDate, _ = time.Parse(time.RFC3339, enrollment)
	if termination.Valid {
		t, _ := time.Parse(time.RFC3339, termination.String)
		m.TerminationDate = &t
	}
	return m, nil
}

func scanAccumulator(row rowScanner) (accumulator.Accumulator, error) {
	var acc accumulator.Accumulator
	var periodStart, periodEnd, used, updatedAt string

	err := row.Scan(
		&acc.ID, &acc.MemberID, &acc.BenefitCode,
		&periodStart, &periodEnd, &used, &acc.UsedCount, &updatedAt,
	)
	if err != nil {
		return acc, err
	}

	acc.PeriodStart, _ = time.Parse(time.RFC3339, periodStart)
	acc.PeriodEnd, _ = time.Parse(time.RFC3339, periodEnd)
	acc.UsedAmount = mustDecimal(used)
	acc.UpdatedAt = parseTime(updatedAt)
	return acc, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
