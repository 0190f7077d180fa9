/*
Package accumulator tracks per-member benefit utilization.

PURPOSE:
  An accumulator is the running usage counter for one (member, benefit,
  coverage period) triple: total amount consumed and number of uses. The
  claims validation engine reads accumulators to enforce annual limits and
  visit/day/case caps; claim settlement writes them back.

IDEMPOTENCY:
  Apply is keyed by claim ID. Re-applying the same claim to the same
  accumulator is a no-op, so settlement retries never double-count. The
  store enforces this with a (accumulator, claim_id) uniqueness constraint,
  never with in-memory bookkeeping.

SEE ALSO:
  - claims: Reads snapshots of these counters during validation
  - store/sqlite: Durable implementation
*/
package accumulator

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no accumulator matches the key.
var ErrNotFound = errors.New("accumulator not found")

// Accumulator is the usage counter for one member-benefit-period triple.
type Accumulator struct {
	ID          string
	MemberID    string
	BenefitCode string
	PeriodStart time.Time
	PeriodEnd   time.Time

	UsedAmount decimal.Decimal
	UsedCount  int

	UpdatedAt time.Time
}

// Remaining returns limit minus used, floored at zero.
func (a Accumulator) Remaining(limit decimal.Decimal) decimal.Decimal {
	r := limit.Sub(a.UsedAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Application records one claim's contribution to an accumulator.
type Application struct {
	AccumulatorID string
	ClaimID       string
	Amount        decimal.Decimal
	AppliedAt     time.Time
}

// Store persists accumulators.
type Store interface {
	// Get returns the accumulator for the key, or ErrNotFound.
	Get(ctx context.Context, memberID, benefitCode string, periodStart time.Time) (Accumulator, error)

	// ListForMember returns all of a member's accumulators.
	ListForMember(ctx context.Context, memberID string) ([]Accumulator, error)

	// Apply adds a claim's amount to the accumulator, creating it on first
	// use. Applying the same claim ID twice leaves the counter unchanged
	// and returns the current state.
	Apply(ctx context.Context, memberID, benefitCode string, periodStart, periodEnd time.Time, claimID string, amount decimal.Decimal) (Accumulator, error)
}
