/*
catalog.go - Snapshot lookups and the atomic reload holder

PURPOSE:
  A Snapshot is a fully-built, immutable view of the reference catalog. All
  engine lookups (templates effective on a date, active factors in display
  order, age-band multipliers, benefit configurations) read from a Snapshot.

RELOAD SEMANTICS:
  The Holder wraps an atomic.Pointer[Snapshot]. Reloading the seed file
  builds a fresh Snapshot and swaps the pointer; in-flight operations keep
  the snapshot they started with. Policy configurations store business codes
  (template_code, factor_code, option_value) rather than pointers, so a swap
  never invalidates live state.

SEE ALSO:
  - types.go: Entity definitions
  - loader.go: Seed file parsing
*/
package catalog

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// Catalog is the read-only lookup interface the engines depend on.
type Catalog interface {
	// TemplateForCategory returns the template effective on the given date
	// for a benefit category, if any.
	TemplateForCategory(category BenefitCategory, on time.Time) (ProductTemplate, bool)

	// Template returns a template by code.
	Template(code string) (ProductTemplate, bool)

	// ActiveFactors returns active T&C factors in display order, options
	// included in their own display order.
	ActiveFactors() []TCFactor

	// Factor returns a factor by code (active or not).
	Factor(code string) (TCFactor, bool)

	// AgeBandMultiplier returns the multiplier for (template, age, gender).
	// Gender is resolved to CHILD for under-18s. Defaults to 1.000 when no
	// band matches.
	AgeBandMultiplier(templateCode string, age int, gender Gender) decimal.Decimal

	// BenefitConfig returns the benefit configuration for a code.
	BenefitConfig(benefitCode string) (BenefitConfiguration, bool)

	// RateFor returns the latest rate-table rate for (benefit, age, gender)
	// effective on the given date. Zero when no table or band matches.
	RateFor(benefitCode string, age int, gender Gender, on time.Time) decimal.Decimal
}

// =============================================================================
// SNAPSHOT - Immutable catalog view
// =============================================================================

type Snapshot struct {
	templates      []ProductTemplate
	templateByCode map[string]ProductTemplate
	factors        []TCFactor
	factorByCode   map[string]TCFactor
	ageBands       map[string][]AgeBandMultiplier // by template code
	benefits       map[string]BenefitConfiguration
	rateTables     map[string][]RateTable // by benefit code, newest first
}

// NewSnapshot builds an immutable snapshot from the given entities.
// Inputs are copied; the caller may mutate its slices afterwards.
func NewSnapshot(
	templates []ProductTemplate,
	factors []TCFactor,
	bands []AgeBandMultiplier,
	benefits []BenefitConfiguration,
	rates []RateTable,
) *Snapshot {
	s := &Snapshot{
		templateByCode: make(map[string]ProductTemplate, len(templates)),
		factorByCode:   make(map[string]TCFactor, len(factors)),
		ageBands:       make(map[string][]AgeBandMultiplier),
		benefits:       make(map[string]BenefitConfiguration, len(benefits)),
		rateTables:     make(map[string][]RateTable),
	}

	s.templates = append(s.templates, templates...)
	for _, t := range templates {
		s.templateByCode[t.TemplateCode] = t
	}

	s.factors = append(s.factors, factors...)
	sort.SliceStable(s.factors, func(i, j int) bool {
		return s.factors[i].DisplayOrder < s.factors[j].DisplayOrder
	})
	for i := range s.factors {
		opts := append([]TCFactorOption(nil), s.factors[i].Options...)
		sort.SliceStable(opts, func(a, b int) bool {
			return opts[a].DisplayOrder < opts[b].DisplayOrder
		})
		s.factors[i].Options = opts
		s.factorByCode[s.factors[i].FactorCode] = s.factors[i]
	}

	for _, b := range bands {
		s.ageBands[b.TemplateCode] = append(s.ageBands[b.TemplateCode], b)
	}

	for _, b := range benefits {
		s.benefits[b.BenefitCode] = b
	}

	for _, rt := range rates {
		s.rateTables[rt.BenefitCode] = append(s.rateTables[rt.BenefitCode], rt)
	}
	for code := range s.rateTables {
		tables := s.rateTables[code]
		sort.SliceStable(tables, func(i, j int) bool {
			return tables[i].EffectiveDate.After(tables[j].EffectiveDate)
		})
		s.rateTables[code] = tables
	}

	return s
}

func (s *Snapshot) TemplateForCategory(category BenefitCategory, on time.Time) (ProductTemplate, bool) {
	for _, t := range s.templates {
		if t.Category == category && t.EffectiveOn(on) {
			return t, true
		}
	}
	return ProductTemplate{}, false
}

func (s *Snapshot) Template(code string) (ProductTemplate, bool) {
	t, ok := s.templateByCode[code]
	return t, ok
}

func (s *Snapshot) ActiveFactors() []TCFactor {
	var active []TCFactor
	for _, f := range s.factors {
		if f.IsActive {
			active = append(active, f)
		}
	}
	return active
}

func (s *Snapshot) Factor(code string) (TCFactor, bool) {
	f, ok := s.factorByCode[code]
	return f, ok
}

func (s *Snapshot) AgeBandMultiplier(templateCode string, age int, gender Gender) decimal.Decimal {
	eff := EffectiveGender(gender, age)
	for _, band := range s.ageBands[templateCode] {
		if band.Matches(age, eff) {
			return band.Multiplier
		}
	}
	return decimal.NewFromInt(1)
}

func (s *Snapshot) BenefitConfig(benefitCode string) (BenefitConfiguration, bool) {
	b, ok := s.benefits[benefitCode]
	return b, ok
}

func (s *Snapshot) RateFor(benefitCode string, age int, gender Gender, on time.Time) decimal.Decimal {
	for _, rt := range s.rateTables[benefitCode] {
		if rt.EffectiveDate.After(on) {
			continue
		}
		if rt.ExpiryDate != nil && on.After(*rt.ExpiryDate) {
			continue
		}
		return rt.Rate(age, gender)
	}
	return decimal.Zero
}

// =============================================================================
// HOLDER - Atomic swap on reload
// =============================================================================

// Holder publishes the current Snapshot and supports atomic replacement.
// It satisfies Catalog by delegating to the current snapshot, so long-lived
// components can hold a *Holder while short-lived operations should take
// Current() once and use it throughout.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

func NewHolder(s *Snapshot) *Holder {
	h := &Holder{}
	h.current.Store(s)
	return h
}

// Current returns the active snapshot.
func (h *Holder) Current() *Snapshot { return h.current.Load() }

// Swap replaces the active snapshot. In-flight readers keep the old one.
func (h *Holder) Swap(s *Snapshot) { h.current.Store(s) }

func (h *Holder) TemplateForCategory(c BenefitCategory, on time.Time) (ProductTemplate, bool) {
	return h.Current().TemplateForCategory(c, on)
}
func (h *Holder) Template(code string) (ProductTemplate, bool) { return h.Current().Template(code) }
func (h *Holder) ActiveFactors() []TCFactor                    { return h.Current().ActiveFactors() }
func (h *Holder) Factor(code string) (TCFactor, bool)          { return h.Current().Factor(code) }
func (h *Holder) AgeBandMultiplier(t string, age int, g Gender) decimal.Decimal {
	return h.Current().AgeBandMultiplier(t, age, g)
}
func (h *Holder) BenefitConfig(code string) (BenefitConfiguration, bool) {
	return h.Current().BenefitConfig(code)
}
func (h *Holder) RateFor(code string, age int, g Gender, on time.Time) decimal.Decimal {
	return h.Current().RateFor(code, age, g, on)
}
