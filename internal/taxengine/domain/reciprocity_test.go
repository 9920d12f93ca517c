package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver(t *testing.T) *ReciprocityResolver {
	t.Helper()
	rr, err := NewReciprocityResolver([]ReciprocityPair{
		{Origin: "CA", Destination: "*", Policy: ReciprocityPolicy{Mode: ReciprocityFull}},
		{Origin: "CA", Destination: "NV", Policy: ReciprocityPolicy{
			Mode:   ReciprocityPartial,
			Factor: decimal.RequireFromString("0.5"),
			Cap:    decimal.NewFromInt(500),
		}},
		{Origin: "TX", Destination: "OK", Policy: ReciprocityPolicy{Mode: ReciprocityNone}},
	})
	require.NoError(t, err)
	return rr
}

func TestReciprocityFullCredit(t *testing.T) {
	rr := testResolver(t)
	res := rr.ResolveCredit("CA", "AZ", decimal.NewFromInt(800), decimal.NewFromInt(1200))
	assert.Equal(t, ReciprocityFull, res.Mode)
	assert.True(t, res.Credit.Equal(decimal.NewFromInt(800)))
	assert.True(t, res.Overage.IsZero())
}

func TestReciprocityFullCreditCappedByOwed(t *testing.T) {
	rr := testResolver(t)
	res := rr.ResolveCredit("CA", "AZ", decimal.NewFromInt(1500), decimal.NewFromInt(1200))
	assert.True(t, res.Credit.Equal(decimal.NewFromInt(1200)))
	assert.True(t, res.Overage.Equal(decimal.NewFromInt(300)))
}

func TestReciprocityPartialCredit(t *testing.T) {
	rr := testResolver(t)
	// 800 × 0.5 = 400，低于 cap 500 与应缴 1200。
	res := rr.ResolveCredit("CA", "NV", decimal.NewFromInt(800), decimal.NewFromInt(1200))
	assert.Equal(t, ReciprocityPartial, res.Mode)
	assert.True(t, res.Credit.Equal(decimal.NewFromInt(400)))

	// 2000 × 0.5 = 1000，被 cap 500 封顶。
	res = rr.ResolveCredit("CA", "NV", decimal.NewFromInt(2000), decimal.NewFromInt(1200))
	assert.True(t, res.Credit.Equal(decimal.NewFromInt(500)))
}

// 精确配对优先于 (origin, *) 通配。CA→NV 命中 PARTIAL 而不是通配的 FULL。
func TestReciprocitySpecificBeatsWildcard(t *testing.T) {
	rr := testResolver(t)
	res := rr.ResolveCredit("CA", "NV", decimal.NewFromInt(100), decimal.NewFromInt(1000))
	assert.Equal(t, ReciprocityPartial, res.Mode)
}

// 配对缺失按无抵免处理：宁可全额征税，不可误发抵免。
func TestReciprocityMissingPairDefaultsToNoCredit(t *testing.T) {
	rr := testResolver(t)
	res := rr.ResolveCredit("FL", "TX", decimal.NewFromInt(800), decimal.NewFromInt(1200))
	assert.Equal(t, ReciprocityNone, res.Mode)
	assert.True(t, res.Credit.IsZero())
}

func TestReciprocityExplicitNoCredit(t *testing.T) {
	rr := testResolver(t)
	res := rr.ResolveCredit("TX", "OK", decimal.NewFromInt(800), decimal.NewFromInt(1200))
	assert.Equal(t, ReciprocityNone, res.Mode)
	assert.True(t, res.Credit.IsZero())
}

// 抵免上界性质：credit ≤ min(已缴, 应缴)，对任意政策成立。
func TestReciprocityCreditBound(t *testing.T) {
	rr := testResolver(t)
	cases := []struct {
		origin, dest JurisdictionCode
		paid, owed   int64
	}{
		{"CA", "AZ", 800, 1200},
		{"CA", "AZ", 1500, 1200},
		{"CA", "NV", 2000, 300},
		{"TX", "OK", 999, 1},
		{"FL", "TX", 500, 500},
	}
	for _, c := range cases {
		paid := decimal.NewFromInt(c.paid)
		owed := decimal.NewFromInt(c.owed)
		res := rr.ResolveCredit(c.origin, c.dest, paid, owed)
		bound := MinMoney(paid, owed)
		assert.True(t, res.Credit.LessThanOrEqual(bound),
			"%s->%s: credit %s exceeds bound %s", c.origin, c.dest, res.Credit, bound)
		assert.False(t, res.Credit.IsNegative())
	}
}

func TestReciprocityResolverValidation(t *testing.T) {
	t.Run("partial without factor rejected", func(t *testing.T) {
		_, err := NewReciprocityResolver([]ReciprocityPair{
			{Origin: "CA", Destination: "NV", Policy: ReciprocityPolicy{Mode: ReciprocityPartial}},
		})
		assert.ErrorIs(t, err, ErrRegistryValidation)
	})

	t.Run("unknown mode rejected", func(t *testing.T) {
		_, err := NewReciprocityResolver([]ReciprocityPair{
			{Origin: "CA", Destination: "NV", Policy: ReciprocityPolicy{Mode: "MAYBE"}},
		})
		assert.ErrorIs(t, err, ErrRegistryValidation)
	})

	t.Run("duplicate pair rejected", func(t *testing.T) {
		_, err := NewReciprocityResolver([]ReciprocityPair{
			{Origin: "CA", Destination: "NV", Policy: ReciprocityPolicy{Mode: ReciprocityFull}},
			{Origin: "CA", Destination: "NV", Policy: ReciprocityPolicy{Mode: ReciprocityNone}},
		})
		assert.ErrorIs(t, err, ErrRegistryValidation)
	})

	t.Run("empty jurisdiction rejected", func(t *testing.T) {
		_, err := NewReciprocityResolver([]ReciprocityPair{
			{Origin: "", Destination: "NV", Policy: ReciprocityPolicy{Mode: ReciprocityFull}},
		})
		assert.ErrorIs(t, err, ErrRegistryValidation)
	})
}
