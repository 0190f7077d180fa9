/*
Package claims implements the claims validation engine.

PURPOSE:
  Evaluates a submitted claim against the registered rule set for its
  benefit category and produces a verdict list that drives auto-
  adjudication or manual review. The engine is pure: rules read an
  immutable ClaimContext snapshot and never mutate state.

KEY CONCEPTS IN THIS FILE (types.go):
  - Claim: the submitted claim as received
  - ClaimContext: the full evaluation snapshot (member, coverage,
    accumulator, prior claims), assembled by the caller before validation
  - ValidationResult: one rule's verdict with override metadata
  - Fingerprint: stable duplicate-detection hash

SEE ALSO:
  - engine.go: Registry and concurrent execution
  - rules.go: Base rules applied to every claim
  - rules_category.go: Category-specific rules
*/
package claims

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medena/grouphealth/catalog"
)

// =============================================================================
// RESULT MODEL
// =============================================================================

// RuleStatus is the outcome tier of one rule.
type RuleStatus string

const (
	StatusPassed  RuleStatus = "PASSED"
	StatusFailed  RuleStatus = "FAILED"
	StatusWarning RuleStatus = "WARNING"
	StatusPending RuleStatus = "PENDING"
)

// statusRank orders verdicts for aggregation: FAILED < WARNING < PENDING < PASSED.
var statusRank = map[RuleStatus]int{
	StatusFailed:  0,
	StatusWarning: 1,
	StatusPending: 2,
	StatusPassed:  3,
}

// ValidationResult is one rule's verdict on a claim.
type ValidationResult struct {
	RuleCode string
	RuleName string
	Status   RuleStatus
	Message  string
	Details  map[string]any

	// CanOverride marks a verdict a claims operator with sufficient
	// authority may waive. Authority levels run 0 (none) to 3 (management).
	CanOverride            bool
	RequiredAuthorityLevel int
}

// =============================================================================
// CLAIM & CONTEXT
// =============================================================================

// Channel is the submission channel of a claim.
type Channel string

const (
	ChannelProvider      Channel = "PROVIDER"
	ChannelReimbursement Channel = "REIMBURSEMENT"
)

// Claim is a submitted claim as received from the channel.
type Claim struct {
	ID          string
	MemberID    string
	BenefitCode string

	ServiceDate   time.Time
	ClaimedAmount decimal.Decimal

	DiagnosisCodes []string
	Channel        Channel

	IsEmergency   bool
	HasPreauth    bool
	PreauthNumber string

	// Hospitalization episode, when the claim belongs to one.
	AdmissionDate *time.Time
	DischargeDate *time.Time
}

// PriorClaim is a summarized historical claim used by duplicate detection
// and prerequisite checks.
type PriorClaim struct {
	ClaimID     string
	BenefitCode string
	ServiceDate time.Time
	Amount      decimal.Decimal
	Fingerprint string
	// Passed reports whether the claim's validation outcome was PASSED.
	Passed bool
}

// AccumulatorSnapshot is the utilization state read at context-assembly
// time. Rules never read the store directly.
type AccumulatorSnapshot struct {
	UsedAmount decimal.Decimal
	UsedCount  int
}

// ClaimContext is the immutable snapshot a claim is validated against.
// The caller assembles it once; rules only read it.
type ClaimContext struct {
	Claim Claim

	MemberAge   int
	Gender      catalog.Gender
	MemberSince time.Time

	CoverageStart time.Time
	CoverageEnd   time.Time

	Accumulator AccumulatorSnapshot
	History     []PriorClaim
}

// =============================================================================
// FINGERPRINT
// =============================================================================

// duplicateWindowDays bounds how far apart two claims with the same
// fingerprint may be and still count as duplicates.
const duplicateWindowDays = 30

// Fingerprint returns the stable duplicate-detection hash for a claim key.
// Equal inputs always produce equal output; the amount is normalized to
// two decimal places first so 500000 and 500000.00 collide.
func Fingerprint(memberID, benefitCode string, serviceDate time.Time, amount decimal.Decimal) string {
	key := fmt.Sprintf("%s_%s_%s_%s",
		memberID, benefitCode,
		serviceDate.Format("2006-01-02"),
		amount.Round(2).String(),
	)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns the claim's own duplicate-detection hash.
func (c Claim) Fingerprint() string {
	return Fingerprint(c.MemberID, c.BenefitCode, c.ServiceDate, c.ClaimedAmount)
}
