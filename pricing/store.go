/*
store.go - Persistence interface for policy configuration state

PURPOSE:
  Defines the interface between the pricing engine and the database. The
  engine owns the arithmetic and the invariants; the Store owns durability,
  uniqueness enforcement, and cascade deletion.

KEY CONTRACTS:
  - CreateConfig persists a config together with its initial benefit and
    T&C selections atomically.
  - Quote and policy numbers are protected by UNIQUE constraints; inserts
    that collide return ErrNumberCollision so the engine can retry with the
    next sequence. Never an in-memory counter.
  - AppendCalculation writes the calculation log row and the config's cached
    totals in a single transaction. The log is APPEND-ONLY: no update or
    delete methods exist for it.
  - Deleting a config cascades to its selections, members, overrides,
    workflow steps, and calculation log.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite (same SQL shape as PostgreSQL)

SEE ALSO:
  - engine.go: The only caller
  - store/sqlite/sqlite.go: Concrete implementation
*/
package pricing

import (
	"context"
	"time"
)

// ListFilter narrows ListConfigs. Zero values mean "no filter".
type ListFilter struct {
	Status      Status
	CompanyName string // substring match
	Limit       int    // 1..500, store clamps
	Offset      int
}

// Store handles persistence of policy configurations and their owned rows.
type Store interface {
	// CreateConfig persists a new configuration with its initial selections
	// atomically. Returns ErrNumberCollision if the quote number exists.
	CreateConfig(ctx context.Context, cfg PolicyConfig, benefits []BenefitSelection, tc []TCSelection) error

	// GetConfig returns a configuration by ID, or ErrConfigNotFound.
	GetConfig(ctx context.Context, id ConfigID) (PolicyConfig, error)

	// ListConfigs returns configurations ordered by created_at descending.
	ListConfigs(ctx context.Context, filter ListFilter) ([]PolicyConfig, error)

	// SaveConfig updates a configuration's mutable fields (status, cached
	// totals, approval metadata, participant count, policy number).
	// Returns ErrNumberCollision if the policy number exists.
	SaveConfig(ctx context.Context, cfg PolicyConfig) error

	// DeleteConfig removes a configuration and all owned rows.
	DeleteConfig(ctx context.Context, id ConfigID) error

	// MaxQuoteSequence returns the highest numeric suffix among quote
	// numbers with the given prefix (0 when none exist).
	MaxQuoteSequence(ctx context.Context, prefix string) (int, error)

	// MaxPolicySequence returns the highest numeric suffix among policy
	// numbers with the given prefix (0 when none exist).
	MaxPolicySequence(ctx context.Context, prefix string) (int, error)

	// Benefit selections, keyed (config, category).
	GetBenefitSelections(ctx context.Context, id ConfigID) ([]BenefitSelection, error)
	SaveBenefitSelection(ctx context.Context, sel BenefitSelection) error

	// T&C selections, keyed (config, factor).
	GetTCSelections(ctx context.Context, id ConfigID) ([]TCSelection, error)
	SaveTCSelection(ctx context.Context, sel TCSelection) error

	// Benefit limit overrides, keyed (config, benefit_code).
	GetOverrides(ctx context.Context, id ConfigID) ([]BenefitOverride, error)
	SaveOverride(ctx context.Context, o BenefitOverride) error

	// Members. ListMembers with status == "" returns all members.
	ListMembers(ctx context.Context, id ConfigID, status MemberStatus) ([]Member, error)
	AddMember(ctx context.Context, m Member) error
	SaveMember(ctx context.Context, m Member) error

	// AppendCalculation atomically inserts the log row and updates the
	// config's cached totals. The log is append-only.
	AppendCalculation(ctx context.Context, log CalculationLog, cfg PolicyConfig) error

	// ListCalculations returns log rows newest first, up to limit.
	ListCalculations(ctx context.Context, id ConfigID, limit int) ([]CalculationLog, error)

	// Approval workflow, keyed (config, step_order).
	CreateWorkflowSteps(ctx context.Context, steps []WorkflowStep) error
	ListWorkflowSteps(ctx context.Context, id ConfigID) ([]WorkflowStep, error)
	SaveWorkflowStep(ctx context.Context, step WorkflowStep) error
}

// Clock abstracts "now" so tests can pin quote numbering and age
// calculations to a fixed date.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. For tests.
type FixedClock struct{ At time.Time }

func (c FixedClock) Now() time.Time { return c.At }
