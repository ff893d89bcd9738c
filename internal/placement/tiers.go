package placement

import (
	"fmt"

	"github.com/crosscartapp/crosscart-backend/pkg/config"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
)

// TierConfig resolves which placement tier handles each retailer. Assignments
// come from configuration; unknown retailers use the default tier.
type TierConfig struct {
	defaultTier enums.PlacementMethod
	tiers       map[string]enums.PlacementMethod
}

// NewTierConfig parses the configured tier assignments.
func NewTierConfig(cfg config.PlacementConfig) (*TierConfig, error) {
	defaultTier, err := enums.ParsePlacementMethod(cfg.DefaultTier)
	if err != nil {
		return nil, fmt.Errorf("default tier: %w", err)
	}

	tiers := make(map[string]enums.PlacementMethod, len(cfg.Tiers))
	for retailerID, raw := range cfg.Tiers {
		method, err := enums.ParsePlacementMethod(raw)
		if err != nil {
			return nil, fmt.Errorf("retailer %q: %w", retailerID, err)
		}
		tiers[retailerID] = method
	}

	return &TierConfig{defaultTier: defaultTier, tiers: tiers}, nil
}

// MethodFor returns the placement tier assigned to the retailer.
func (t *TierConfig) MethodFor(retailerID string) enums.PlacementMethod {
	if t == nil {
		return enums.PlacementMethodManual
	}
	if method, ok := t.tiers[retailerID]; ok {
		return method
	}
	return t.defaultTier
}
