/*
history.go - Claim history persistence contract

PURPOSE:
  Validated claims are recorded so later validations can see them:
  duplicate detection scans fingerprints, prerequisite checks scan passed
  claims. The engine itself never touches this store; callers load a
  member's history into the ClaimContext before validating.
*/
package claims

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one persisted claim outcome.
type Record struct {
	ClaimID     string
	MemberID    string
	BenefitCode string
	ServiceDate time.Time
	Amount      decimal.Decimal
	Fingerprint string
	Passed      bool
	RecordedAt  time.Time
}

// HistoryStore persists claim outcomes for later validations.
type HistoryStore interface {
	// RecordClaim stores a claim outcome. Recording the same claim ID
	// again overwrites the outcome.
	RecordClaim(ctx context.Context, rec Record) error

	// MemberHistory returns a member's recorded claims, newest first.
	MemberHistory(ctx context.Context, memberID string) ([]PriorClaim, error)
}
