package catalog_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medena/grouphealth/catalog"
)

const seedYAML = `
templates:
  - code: IP-1000
    name: Inpatient Room 1M
    category: INPATIENT
    base_premium_adult_male: "1200000"
    base_premium_adult_female: "1300000"
    base_premium_child: "900000"
    effective_from: "2024-01-01"
  - code: IP-2000
    name: Inpatient Room 2M
    category: INPATIENT
    base_premium_adult_male: "1800000"
    base_premium_adult_female: "1900000"
    base_premium_child: "1200000"
    effective_from: "2020-01-01"
    effective_to: "2023-12-31"

age_bands:
  - template: IP-1000
    age_from: 56
    age_to: 60
    gender: MALE
    multiplier: "1.250"
  - template: IP-1000
    age_from: 0
    age_to: 17
    gender: CHILD
    multiplier: "0.900"

tc_factors:
  - code: CLASS_STRUCTURE
    name: Class Structure
    display_order: 1
    options:
      - value: single
        label: Single Class
        multiplier: "1.000"
        default: true
        display_order: 1
      - value: multi
        label: Multi Class
        multiplier: "1.100"
        min_participants: 50
        display_order: 2

benefits:
  - code: IP_ROOM
    name: Inpatient Room & Board
    category: INPATIENT
    coverage: COVERED_PER_YEAR
    settlement_pct: 100
    coinsurance_pct: 10
    limit_value: "2000000"
    requires_preauth: true
    waiting_period_days: 30
    exclusions: ["Z41.1"]

rate_tables:
  - rate_code: STD
    benefit_code: IP_ROOM
    effective_date: "2024-01-01"
    bands:
      - age_from: 18
        age_to: 55
        gender: MALE
        rate: "150000"
`

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLoad_FullSeed(t *testing.T) {
	snap, err := catalog.Load([]byte(seedYAML))
	require.NoError(t, err)

	// Template lookup respects the effectivity window.
	tpl, ok := snap.TemplateForCategory(catalog.CategoryInpatient, date(2025, time.June, 1))
	require.True(t, ok)
	assert.Equal(t, "IP-1000", tpl.TemplateCode)

	tpl, ok = snap.TemplateForCategory(catalog.CategoryInpatient, date(2022, time.June, 1))
	require.True(t, ok)
	assert.Equal(t, "IP-2000", tpl.TemplateCode, "expired template still effective in its window")

	factors := snap.ActiveFactors()
	require.Len(t, factors, 1)
	opt, ok := factors[0].DefaultOption()
	require.True(t, ok)
	assert.Equal(t, "single", opt.OptionValue)

	benefit, ok := snap.BenefitConfig("IP_ROOM")
	require.True(t, ok)
	assert.True(t, benefit.RequiresPreauth)
	require.NotNil(t, benefit.LimitValue)
	assert.True(t, benefit.LimitValue.Equal(decimal.NewFromInt(2000000)))
	assert.Equal(t, []string{"Z41.1"}, benefit.Exclusions)
}

func TestLoad_InvalidSeedFails(t *testing.T) {
	cases := map[string]string{
		"zero option multiplier": `
tc_factors:
  - code: X
    name: X
    options:
      - value: a
        label: A
        multiplier: "0"
`,
		"two default options": `
tc_factors:
  - code: X
    name: X
    options:
      - {value: a, label: A, multiplier: "1", default: true}
      - {value: b, label: B, multiplier: "1", default: true}
`,
		"settlement above 100": `
benefits:
  - code: X
    name: X
    category: INPATIENT
    settlement_pct: 120
`,
		"age band inverted": `
age_bands:
  - template: T
    age_from: 60
    age_to: 55
    gender: MALE
    multiplier: "1"
`,
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Load([]byte(yaml))
			assert.Error(t, err)
		})
	}
}

func TestSnapshot_BasePremiumGenderRule(t *testing.T) {
	snap, err := catalog.Load([]byte(seedYAML))
	require.NoError(t, err)
	tpl, ok := snap.Template("IP-1000")
	require.True(t, ok)

	// Under 18 uses the CHILD premium regardless of stored gender.
	assert.True(t, tpl.BasePremium(catalog.GenderFemale, 10).Equal(decimal.NewFromInt(900000)))
	assert.True(t, tpl.BasePremium(catalog.GenderMale, 35).Equal(decimal.NewFromInt(1200000)))
	assert.True(t, tpl.BasePremium(catalog.GenderFemale, 35).Equal(decimal.NewFromInt(1300000)))
}

func TestSnapshot_AgeBandMultiplier(t *testing.T) {
	snap, err := catalog.Load([]byte(seedYAML))
	require.NoError(t, err)

	// Inclusive bounds.
	assert.True(t, snap.AgeBandMultiplier("IP-1000", 56, catalog.GenderMale).Equal(decimal.RequireFromString("1.250")))
	assert.True(t, snap.AgeBandMultiplier("IP-1000", 60, catalog.GenderMale).Equal(decimal.RequireFromString("1.250")))

	// Under 18 matches the CHILD band through the effective-gender rule.
	assert.True(t, snap.AgeBandMultiplier("IP-1000", 10, catalog.GenderMale).Equal(decimal.RequireFromString("0.900")))

	// No matching band defaults to 1.000.
	assert.True(t, snap.AgeBandMultiplier("IP-1000", 40, catalog.GenderMale).Equal(decimal.NewFromInt(1)))
}

func TestHolder_SwapReplacesSnapshot(t *testing.T) {
	snap, err := catalog.Load([]byte(seedYAML))
	require.NoError(t, err)
	holder := catalog.NewHolder(snap)

	_, ok := holder.BenefitConfig("IP_ROOM")
	assert.True(t, ok)

	empty := catalog.NewSnapshot(nil, nil, nil, nil, nil)
	holder.Swap(empty)

	_, ok = holder.BenefitConfig("IP_ROOM")
	assert.False(t, ok)
}
