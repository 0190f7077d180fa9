/*
quote.go - Quote document assembly

PURPOSE:
  Builds the printable quote document for a configuration: company header,
  selected benefits with any limit overrides, T&C terms, the member census
  grouped by age band, and the latest premium summary.

SEE ALSO:
  - engine.go: Premium arithmetic the summary reflects
*/
package pricing

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medena/grouphealth/catalog"
	"github.com/medena/grouphealth/money"
)

// QuoteDocument is the assembled quote, ready for rendering.
type QuoteDocument struct {
	QuoteNumber  string
	PolicyNumber string
	GeneratedAt  time.Time
	ValidUntil   time.Time

	CompanyName      string
	IndustryType     string
	ParticipantCount int
	CoverageStart    time.Time
	CoverageEnd      time.Time
	Status           Status

	Benefits   []QuoteBenefitLine
	Terms      []QuoteTermLine
	Census     []CensusBand
	AverageAge decimal.Decimal
	Premium    *PremiumBreakdown // nil when never calculated
	Monthly    decimal.Decimal
}

// quoteValidityDays is how long a generated quote stays honorable.
const quoteValidityDays = 30

// QuoteBenefitLine is one selected benefit on the document.
type QuoteBenefitLine struct {
	Category       string
	TemplateCode   string
	CategoryFactor decimal.Decimal
	OverrideLimit  *decimal.Decimal
	OverrideReason string
}

// QuoteTermLine is one T&C term on the document.
type QuoteTermLine struct {
	FactorCode string
	FactorName string
	Option     string
	Multiplier decimal.Decimal
	ImpactPct  decimal.Decimal // (multiplier - 1) x 100, signed
}

// CensusBand is one age-band row of the member census.
type CensusBand struct {
	AgeBand string
	Males   int
	Females int
	Total   int
}

// censusOrder fixes the band ordering on the document.
var censusOrder = map[string]int{
	"CHILD": 0, "0-55": 1, "56-60": 2, "61-65": 3, "66-70": 4, "71-75": 5, "76+": 6,
}

// GenerateQuoteDocument assembles the quote document from current state.
// It does not recalculate; the premium section reflects the cached totals
// from the most recent calculation.
func (e *Engine) GenerateQuoteDocument(ctx context.Context, id ConfigID) (QuoteDocument, error) {
	cfg, err := e.store.GetConfig(ctx, id)
	if err != nil {
		return QuoteDocument{}, err
	}
	selections, err := e.store.GetBenefitSelections(ctx, id)
	if err != nil {
		return QuoteDocument{}, err
	}
	overrides, err := e.store.GetOverrides(ctx, id)
	if err != nil {
		return QuoteDocument{}, err
	}
	tcSelections, err := e.store.GetTCSelections(ctx, id)
	if err != nil {
		return QuoteDocument{}, err
	}
	members, err := e.store.ListMembers(ctx, id, MemberActive)
	if err != nil {
		return QuoteDocument{}, err
	}

	generated := e.clock.Now()
	doc := QuoteDocument{
		QuoteNumber:      cfg.QuoteNumber,
		PolicyNumber:     cfg.PolicyNumber,
		GeneratedAt:      generated,
		ValidUntil:       generated.AddDate(0, 0, quoteValidityDays),
		CompanyName:      cfg.CompanyName,
		IndustryType:     cfg.IndustryType,
		ParticipantCount: cfg.ParticipantCount,
		CoverageStart:    cfg.CoverageStart,
		CoverageEnd:      cfg.CoverageEnd,
		Status:           cfg.Status,
	}

	// Overrides are keyed by catalog benefit code; selections by category.
	// Resolve each override to its benefit's category to attach it to the
	// right document line.
	overrideByCategory := make(map[catalog.BenefitCategory]BenefitOverride, len(overrides))
	for _, o := range overrides {
		if benefit, ok := e.catalog.BenefitConfig(o.BenefitCode); ok {
			overrideByCategory[benefit.Category] = o
		}
	}
	for _, sel := range selections {
		if !sel.IsSelected {
			continue
		}
		line := QuoteBenefitLine{
			Category:       string(sel.Category),
			TemplateCode:   sel.TemplateCode,
			CategoryFactor: sel.CategoryFactor,
		}
		if o, ok := overrideByCategory[sel.Category]; ok {
			limit := o.OverrideLimit
			line.OverrideLimit = &limit
			line.OverrideReason = o.Reason
		}
		doc.Benefits = append(doc.Benefits, line)
	}

	for _, tc := range tcSelections {
		line := QuoteTermLine{
			FactorCode: tc.FactorCode,
			Option:     tc.OptionValue,
			Multiplier: tc.AppliedMultiplier,
			ImpactPct:  tc.AppliedMultiplier.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)),
		}
		if factor, ok := e.catalog.Factor(tc.FactorCode); ok {
			line.FactorName = factor.FactorName
			if opt, ok := factor.Option(tc.OptionValue); ok {
				line.Option = opt.OptionLabel
			}
		}
		doc.Terms = append(doc.Terms, line)
	}

	bands := make(map[string]*CensusBand)
	ageSum := 0
	for _, m := range members {
		age := m.AgeOn(generated)
		ageSum += age
		band := AgeBandFor(age)
		row, ok := bands[band]
		if !ok {
			row = &CensusBand{AgeBand: band}
			bands[band] = row
		}
		if m.Gender == catalog.GenderFemale {
			row.Females++
		} else {
			row.Males++
		}
		row.Total++
	}
	for _, row := range bands {
		doc.Census = append(doc.Census, *row)
	}
	sort.Slice(doc.Census, func(i, j int) bool {
		return censusOrder[doc.Census[i].AgeBand] < censusOrder[doc.Census[j].AgeBand]
	})
	if len(members) > 0 {
		doc.AverageAge = decimal.NewFromInt(int64(ageSum)).
			Div(decimal.NewFromInt(int64(len(members)))).Round(1)
	}

	if !cfg.TotalBasePremium.IsZero() || !cfg.TotalAdjustedPremium.IsZero() {
		logs, err := e.store.ListCalculations(ctx, id, 1)
		if err != nil {
			return QuoteDocument{}, err
		}
		if len(logs) > 0 {
			latest := logs[0]
			doc.Premium = &PremiumBreakdown{
				BasePremium:     latest.BasePremiumTotal,
				TotalMultiplier: latest.TotalMultiplier,
				AdjustedPremium: latest.BasePremiumTotal.Mul(latest.TotalMultiplier),
				AdminFee:        latest.AdminFee,
				TPAFee:          latest.TPAFee,
				TotalPremium:    latest.TotalPremium,
			}
			doc.Monthly = latest.MonthlyPremium
		} else {
			// Priced only with save=false: no log row exists, but the
			// cached totals are current. Rebuild the fee lines from them.
			adjusted := cfg.TotalAdjustedPremium
			adminFee := money.Max(adminFeeFloor, adjusted.Mul(adminFeeRate))
			tpaFee := money.Max(tpaFeeFloor, tpaFeePerHead.Mul(decimal.NewFromInt(int64(cfg.ParticipantCount))))
			total := money.RoundPremium(adjusted.Add(adminFee).Add(tpaFee))
			doc.Premium = &PremiumBreakdown{
				BasePremium:     cfg.TotalBasePremium,
				TotalMultiplier: cfg.TotalFactorMultiplier,
				AdjustedPremium: adjusted,
				AdminFee:        adminFee,
				TPAFee:          tpaFee,
				TotalPremium:    total,
			}
			doc.Monthly = total.Div(money.Twelve)
		}
	}
	return doc, nil
}
