/*
engine.go - Rule registry and concurrent execution

PURPOSE:
  Holds the registered rules and runs the subset applicable to a claim's
  benefit category. Execution is concurrent; aggregation is deterministic.

EXECUTION GUARANTEES:
  1. Every applicable rule runs exactly once per Validate call
  2. Result order is deterministic regardless of completion order:
     FAILED < WARNING < PENDING < PASSED, then rule_code ascending
  3. A panicking rule yields a synthetic FAILED result and cannot cancel
     its siblings
  4. On context cancellation the completed subset is returned plus one
     synthetic PENDING result naming the rules that did not finish

PURITY:
  Rules read the ClaimContext snapshot and the benefit configuration.
  Nothing here writes to any store.

SEE ALSO:
  - rules.go / rules_category.go: The registered rule set
  - types.go: Result and context shapes
*/
package claims

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/medena/grouphealth/catalog"
	"github.com/medena/grouphealth/money"
)

// RuleFunc evaluates one rule. Returning nil means the rule passed
// silently and contributes no result.
type RuleFunc func(cc ClaimContext, benefit catalog.BenefitConfiguration) *ValidationResult

// Rule is one registered validation rule. A nil Categories set means the
// rule is a base rule and applies to every claim.
type Rule struct {
	Code       string
	Name       string
	Categories map[catalog.BenefitCategory]bool
	Fn         RuleFunc
}

// appliesTo reports whether the rule runs for the given category.
func (r Rule) appliesTo(category catalog.BenefitCategory) bool {
	return r.Categories == nil || r.Categories[category]
}

// Engine is the claims validation engine. Register rules at startup;
// Validate is safe for concurrent use afterwards.
type Engine struct {
	mu     sync.RWMutex
	rules  []Rule
	byCode map[string]int
}

// NewEngine returns an engine with the standard rule set registered.
func NewEngine() *Engine {
	e := &Engine{byCode: make(map[string]int)}
	for _, r := range baseRules() {
		e.Register(r)
	}
	for _, r := range categoryRules() {
		e.Register(r)
	}
	return e
}

// Register adds a rule, replacing any existing rule with the same code.
// Intended for startup; additional rules must use new codes.
func (e *Engine) Register(r Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx, ok := e.byCode[r.Code]; ok {
		log.Printf("claims: replacing rule %s (%s)", r.Code, r.Name)
		e.rules[idx] = r
		return
	}
	e.byCode[r.Code] = len(e.rules)
	e.rules = append(e.rules, r)
}

// applicable returns the rules that run for a category, by registration order.
func (e *Engine) applicable(category catalog.BenefitCategory) []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []Rule
	for _, r := range e.rules {
		if r.appliesTo(category) {
			out = append(out, r)
		}
	}
	return out
}

// indexedResult carries a completed rule's output back to the collector.
type indexedResult struct {
	index  int
	result *ValidationResult
}

// Validate runs every applicable rule concurrently and returns the
// aggregated, deterministically ordered result list.
func (e *Engine) Validate(ctx context.Context, cc ClaimContext, benefit catalog.BenefitConfiguration) []ValidationResult {
	rules := e.applicable(benefit.Category)
	if len(rules) == 0 {
		return nil
	}

	// Buffered so stragglers can finish after a cancellation without
	// blocking; their results are simply never read.
	ch := make(chan indexedResult, len(rules))
	for i, rule := range rules {
		go func(i int, rule Rule) {
			defer func() {
				if r := recover(); r != nil {
					ch <- indexedResult{i, &ValidationResult{
						RuleCode: rule.Code,
						RuleName: rule.Name,
						Status:   StatusFailed,
						Message:  fmt.Sprintf("rule execution error: %v", r),
					}}
				}
			}()
			ch <- indexedResult{i, rule.Fn(cc, benefit)}
		}(i, rule)
	}

	results := make([]*ValidationResult, len(rules))
	seen := make([]bool, len(rules))
	received := 0
collect:
	for received < len(rules) {
		select {
		case r := <-ch:
			results[r.index] = r.result
			seen[r.index] = true
			received++
		case <-ctx.Done():
			break collect
		}
	}

	var out []ValidationResult
	for i := range results {
		if results[i] != nil {
			out = append(out, *results[i])
		}
	}

	if received < len(rules) {
		var cancelled []string
		for i, rule := range rules {
			if !seen[i] {
				cancelled = append(cancelled, rule.Code)
			}
		}
		out = append(out, ValidationResult{
			RuleCode: "VAL000",
			RuleName: "Validation Cancelled",
			Status:   StatusPending,
			Message:  "validation cancelled before rules completed: " + strings.Join(cancelled, ", "),
			Details:  map[string]any{"cancelled_rules": cancelled},
		})
	}

	sortResults(out)
	return out
}

// sortResults orders verdicts FAILED < WARNING < PENDING < PASSED, then by
// rule code ascending within a tier.
func sortResults(results []ValidationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := statusRank[results[i].Status], statusRank[results[j].Status]
		if ri != rj {
			return ri < rj
		}
		return results[i].RuleCode < results[j].RuleCode
	})
}

// =============================================================================
// AGGREGATION HELPERS
// =============================================================================

// CanAutoAdjudicate reports whether the claim may settle without manual
// review: no FAILED and no PENDING verdicts.
func CanAutoAdjudicate(results []ValidationResult) bool {
	for _, r := range results {
		if r.Status == StatusFailed || r.Status == StatusPending {
			return false
		}
	}
	return true
}

// PendReasons returns the messages of FAILED and PENDING verdicts, in
// aggregated order.
func PendReasons(results []ValidationResult) []string {
	var reasons []string
	for _, r := range results {
		if r.Status == StatusFailed || r.Status == StatusPending {
			reasons = append(reasons, r.Message)
		}
	}
	return reasons
}

// CalculateAllowedAmount returns the payable base for a claim:
// min(claimed, limit) scaled by the settlement percentage. A benefit with
// no limit caps at the claimed amount.
func CalculateAllowedAmount(cc ClaimContext, benefit catalog.BenefitConfiguration) decimal.Decimal {
	allowed := cc.Claim.ClaimedAmount
	if benefit.LimitValue != nil {
		allowed = money.Min(allowed, *benefit.LimitValue)
	}
	return allowed.Mul(benefit.SettlementPct).Div(money.Hundred)
}
