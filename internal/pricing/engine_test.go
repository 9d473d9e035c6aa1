package pricing

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eppla/storefront/internal/types"
)

func TestSelectTier(t *testing.T) {
	tiers := DefaultTiers()

	tests := []struct {
		name      string
		price     types.Money
		threshold types.Money
	}{
		{name: "zero price uses base tier", price: 0, threshold: 0},
		{name: "below first bracket", price: 199_99, threshold: 0},
		{name: "exactly on threshold", price: 200_00, threshold: 200_00},
		{name: "middle bracket", price: 750_00, threshold: 500_00},
		{name: "top bracket", price: 9000_00, threshold: 1500_00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.threshold, SelectTier(tt.price, tiers).Threshold)
		})
	}
}

func TestSelectTierFallsBackToLowestThreshold(t *testing.T) {
	tiers := []types.MarkupTier{
		{Threshold: 100_00, Percentage: 22},
		{Threshold: 50_00, Percentage: 33},
	}

	tier := SelectTier(5_00, tiers)
	assert.Equal(t, types.Money(50_00), tier.Threshold)
	assert.Equal(t, types.Money(6_65), ComputePrice(5_00, tiers))
}

func TestComputePrice(t *testing.T) {
	tests := []struct {
		name     string
		price    types.Money
		tiers    []types.MarkupTier
		expected types.Money
	}{
		{
			name:     "flat 40 percent",
			price:    50_00,
			tiers:    []types.MarkupTier{{Threshold: 0, Percentage: 40}},
			expected: 70_00,
		},
		{
			name:     "second bracket",
			price:    200_00,
			tiers:    []types.MarkupTier{{Threshold: 0, Percentage: 40}, {Threshold: 200_00, Percentage: 20}},
			expected: 240_00,
		},
		{
			name:     "rounds half up to the cent",
			price:    1_05,
			tiers:    []types.MarkupTier{{Threshold: 0, Percentage: 50}},
			expected: 1_58,
		},
		{
			name:     "zero price stays zero",
			price:    0,
			tiers:    DefaultTiers(),
			expected: 0,
		},
		{
			name:     "unsorted tiers",
			price:    600_00,
			tiers:    []types.MarkupTier{{Threshold: 500_00, Percentage: 20}, {Threshold: 0, Percentage: 40}, {Threshold: 200_00, Percentage: 30}},
			expected: 720_00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputePrice(tt.price, tt.tiers))
		})
	}
}

func TestMSRPCeiling(t *testing.T) {
	engine, err := NewEngine(Config{
		Tiers:       []types.MarkupTier{{Threshold: 0, Percentage: 50}},
		MSRPCeiling: DefaultMSRPCeiling(),
	})
	require.NoError(t, err)

	t.Run("caps at 95 percent of msrp", func(t *testing.T) {
		q := engine.Quote(100_00, types.MoneyPtr(120_00))
		assert.Equal(t, types.Money(150_00), q.TierPrice)
		assert.Equal(t, types.Money(114_00), q.Price)
		assert.True(t, q.CeilingApplied)
	})

	t.Run("fires when tier price equals msrp", func(t *testing.T) {
		q := engine.Quote(100_00, types.MoneyPtr(150_00))
		assert.Equal(t, types.Money(142_50), q.Price)
		assert.True(t, q.CeilingApplied)
	})

	t.Run("below msrp keeps tier price", func(t *testing.T) {
		q := engine.Quote(100_00, types.MoneyPtr(200_00))
		assert.Equal(t, types.Money(150_00), q.Price)
		assert.False(t, q.CeilingApplied)
	})

	t.Run("no msrp", func(t *testing.T) {
		q := engine.Quote(100_00, nil)
		assert.Equal(t, types.Money(150_00), q.Price)
		assert.False(t, q.CeilingApplied)
	})

	t.Run("disabled rule", func(t *testing.T) {
		disabled, err := NewEngine(Config{
			Tiers:       []types.MarkupTier{{Threshold: 0, Percentage: 50}},
			MSRPCeiling: MSRPCeilingRule{Enabled: false, UndercutPercent: 5},
		})
		require.NoError(t, err)
		assert.Equal(t, types.Money(150_00), disabled.Quote(100_00, types.MoneyPtr(120_00)).Price)
	})

	t.Run("custom undercut", func(t *testing.T) {
		custom, err := NewEngine(Config{
			Tiers:       []types.MarkupTier{{Threshold: 0, Percentage: 50}},
			MSRPCeiling: MSRPCeilingRule{Enabled: true, UndercutPercent: 10},
		})
		require.NoError(t, err)
		assert.Equal(t, types.Money(108_00), custom.Quote(100_00, types.MoneyPtr(120_00)).Price)
	})
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(Config{})
	assert.ErrorIs(t, err, ErrNoTiers)

	_, err = NewEngine(Config{Tiers: []types.MarkupTier{{Threshold: -1, Percentage: 10}}})
	assert.Error(t, err)

	_, err = NewEngine(Config{Tiers: DefaultTiers(), MSRPCeiling: MSRPCeilingRule{Enabled: true, UndercutPercent: 100}})
	assert.Error(t, err)
}

func TestRewardPoints(t *testing.T) {
	engine, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 0, engine.RewardPoints(0))
	assert.Equal(t, 0, engine.RewardPoints(99))
	assert.Equal(t, 70, engine.RewardPoints(70_00))
	assert.Equal(t, 1289, engine.RewardPoints(1289_99))

	double, err := NewEngine(Config{Tiers: DefaultTiers(), RewardPointsPerUnit: 2})
	require.NoError(t, err)
	assert.Equal(t, 141, double.RewardPoints(70_50))
}

func TestExampleSalePrice(t *testing.T) {
	assert.Equal(t, types.Money(260_00), ExampleSalePrice(types.MarkupTier{Threshold: 200_00, Percentage: 30}))
	assert.Equal(t, types.Money(0), ExampleSalePrice(types.MarkupTier{Threshold: 0, Percentage: 40}))
}

func TestWithTiersKeepsCeiling(t *testing.T) {
	engine, err := NewEngine(Config{Tiers: DefaultTiers(), MSRPCeiling: MSRPCeilingRule{Enabled: true, UndercutPercent: 7}})
	require.NoError(t, err)

	updated, err := engine.WithTiers([]types.MarkupTier{{Threshold: 0, Percentage: 10}})
	require.NoError(t, err)
	assert.Equal(t, 7.0, updated.MSRPCeiling().UndercutPercent)
	assert.Len(t, updated.Tiers(), 1)
	assert.Len(t, engine.Tiers(), 4)
}

func TestComputePriceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	tierGen := gen.SliceOfN(4, gen.Float64Range(0, 150)).Map(func(pcts []float64) []types.MarkupTier {
		tiers := []types.MarkupTier{{Threshold: 0, Percentage: pcts[0]}}
		for i, p := range pcts[1:] {
			tiers = append(tiers, types.MarkupTier{Threshold: types.Money((i + 1) * 250_00), Percentage: p})
		}
		return tiers
	})

	properties.Property("price never drops below supplier price", prop.ForAll(
		func(price int64, tiers []types.MarkupTier) bool {
			return ComputePrice(types.Money(price), tiers) >= types.Money(price)
		},
		gen.Int64Range(0, 10_000_00),
		tierGen,
	))

	properties.Property("selected tier is the highest threshold not above price", prop.ForAll(
		func(price int64, tiers []types.MarkupTier) bool {
			selected := SelectTier(types.Money(price), tiers)
			if selected.Threshold > types.Money(price) {
				return false
			}
			for _, t := range tiers {
				if t.Threshold <= types.Money(price) && t.Threshold > selected.Threshold {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 10_000_00),
		tierGen,
	))

	properties.TestingRun(t)
}
