// Package pricing computes retail prices from supplier prices using tiered markups
package pricing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/eppla/storefront/internal/types"
)

var hundred = decimal.NewFromInt(100)

// ErrNoTiers is returned when an engine is built without any markup tier
var ErrNoTiers = errors.New("at least one markup tier is required")

// DefaultTiers returns the stock tier table
func DefaultTiers() []types.MarkupTier {
	return []types.MarkupTier{
		{Threshold: 0, Percentage: 40},
		{Threshold: 200_00, Percentage: 30},
		{Threshold: 500_00, Percentage: 20},
		{Threshold: 1500_00, Percentage: 12},
	}
}

// SortTiers returns a copy of tiers ordered by descending threshold
func SortTiers(tiers []types.MarkupTier) []types.MarkupTier {
	sorted := make([]types.MarkupTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Threshold > sorted[j].Threshold
	})
	return sorted
}

// SelectTier returns the tier with the highest threshold not above supplierPrice.
// When every threshold is above the price, the lowest-threshold tier is used.
func SelectTier(supplierPrice types.Money, tiers []types.MarkupTier) types.MarkupTier {
	if len(tiers) == 0 {
		return types.MarkupTier{}
	}
	sorted := SortTiers(tiers)
	for _, t := range sorted {
		if t.Threshold <= supplierPrice {
			return t
		}
	}
	return sorted[len(sorted)-1]
}

// ApplyMarkup returns price * (1 + percentage/100), rounded half-up to the cent
func ApplyMarkup(price types.Money, percentage float64) types.Money {
	factor := decimal.NewFromFloat(percentage).Add(hundred)
	return types.Money(decimal.NewFromInt(int64(price)).Mul(factor).Div(hundred).Round(0).IntPart())
}

// ComputePrice applies the tier selected for supplierPrice
func ComputePrice(supplierPrice types.Money, tiers []types.MarkupTier) types.Money {
	if supplierPrice == 0 || len(tiers) == 0 {
		return supplierPrice
	}
	return ApplyMarkup(supplierPrice, SelectTier(supplierPrice, tiers).Percentage)
}

// ExampleSalePrice is the retail price a product priced exactly at the tier threshold gets
func ExampleSalePrice(tier types.MarkupTier) types.Money {
	return ApplyMarkup(tier.Threshold, tier.Percentage)
}

// MSRPCeilingRule caps the retail price below a supplier-declared MSRP.
// When the tier price meets or exceeds the MSRP, the price becomes
// MSRP * (1 - UndercutPercent/100).
type MSRPCeilingRule struct {
	Enabled         bool    `json:"enabled"`
	UndercutPercent float64 `json:"undercutPercent"`
}

// DefaultMSRPCeiling undercuts the MSRP by 5%
func DefaultMSRPCeiling() MSRPCeilingRule {
	return MSRPCeilingRule{Enabled: true, UndercutPercent: 5}
}

// Apply returns the capped price and whether the rule fired
func (r MSRPCeilingRule) Apply(tierPrice types.Money, msrp *types.Money) (types.Money, bool) {
	if !r.Enabled || msrp == nil || *msrp <= 0 {
		return tierPrice, false
	}
	if tierPrice < *msrp {
		return tierPrice, false
	}
	return ApplyMarkup(*msrp, -r.UndercutPercent), true
}

// Config configures an Engine
type Config struct {
	Tiers               []types.MarkupTier
	MSRPCeiling         MSRPCeilingRule
	RewardPointsPerUnit float64
}

// DefaultConfig returns the stock pricing configuration
func DefaultConfig() Config {
	return Config{
		Tiers:               DefaultTiers(),
		MSRPCeiling:         DefaultMSRPCeiling(),
		RewardPointsPerUnit: 1,
	}
}

// Engine is an immutable pricing policy
type Engine struct {
	tiers         []types.MarkupTier
	ceiling       MSRPCeilingRule
	pointsPerUnit decimal.Decimal
}

// NewEngine validates cfg and builds an Engine
func NewEngine(cfg Config) (*Engine, error) {
	if len(cfg.Tiers) == 0 {
		return nil, ErrNoTiers
	}
	for _, t := range cfg.Tiers {
		if t.Threshold < 0 {
			return nil, fmt.Errorf("tier threshold must not be negative: %s", t.Threshold)
		}
	}
	if cfg.MSRPCeiling.UndercutPercent < 0 || cfg.MSRPCeiling.UndercutPercent >= 100 {
		return nil, fmt.Errorf("msrp undercut must be in [0, 100): %g", cfg.MSRPCeiling.UndercutPercent)
	}
	if cfg.RewardPointsPerUnit < 0 {
		return nil, fmt.Errorf("reward points rate must not be negative: %g", cfg.RewardPointsPerUnit)
	}
	return &Engine{
		tiers:         SortTiers(cfg.Tiers),
		ceiling:       cfg.MSRPCeiling,
		pointsPerUnit: decimal.NewFromFloat(cfg.RewardPointsPerUnit),
	}, nil
}

// WithTiers returns a copy of the engine using a new tier table
func (e *Engine) WithTiers(tiers []types.MarkupTier) (*Engine, error) {
	return NewEngine(Config{
		Tiers:               tiers,
		MSRPCeiling:         e.ceiling,
		RewardPointsPerUnit: e.pointsPerUnit.InexactFloat64(),
	})
}

// Tiers returns the tier table ordered by descending threshold
func (e *Engine) Tiers() []types.MarkupTier {
	return SortTiers(e.tiers)
}

// MSRPCeiling returns the configured ceiling rule
func (e *Engine) MSRPCeiling() MSRPCeilingRule {
	return e.ceiling
}

// Quote is the full price breakdown for one supplier price
type Quote struct {
	SupplierPrice  types.Money      `json:"supplierPrice"`
	TierPrice      types.Money      `json:"tierPrice"`
	Price          types.Money      `json:"price"`
	Tier           types.MarkupTier `json:"tier"`
	MSRP           *types.Money     `json:"msrp,omitempty"`
	CeilingApplied bool             `json:"ceilingApplied"`
}

// Quote prices supplierPrice through the tiers and then the MSRP ceiling
func (e *Engine) Quote(supplierPrice types.Money, msrp *types.Money) Quote {
	tier := SelectTier(supplierPrice, e.tiers)
	tierPrice := supplierPrice
	if supplierPrice != 0 {
		tierPrice = ApplyMarkup(supplierPrice, tier.Percentage)
	}
	price, capped := e.ceiling.Apply(tierPrice, msrp)
	return Quote{
		SupplierPrice:  supplierPrice,
		TierPrice:      tierPrice,
		Price:          price,
		Tier:           tier,
		MSRP:           msrp,
		CeilingApplied: capped,
	}
}

// RewardPoints returns floor(price in whole units * rate)
func (e *Engine) RewardPoints(price types.Money) int {
	if price <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(price)).Div(hundred).Mul(e.pointsPerUnit).Floor().IntPart())
}
