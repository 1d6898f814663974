package pricing

type TipMode string

const (
	TipPercentage TipMode = "percentage"
	TipFixed      TipMode = "fixed"
)

type TipConfig struct {
	Enabled     bool    `json:"enabled"`
	Mode        TipMode `json:"mode"`
	Percentage  float64 `json:"percentage"`
	FixedAmount float64 `json:"fixedAmount"`
}

// ComputeTip turns a subtotal and tip configuration into a tip amount. The
// percentage is clamped to [0, 100], so a percentage tip can never exceed
// the subtotal; a fixed tip is clamped to zero but may legitimately exceed
// the subtotal. The result is never negative.
func ComputeTip(subtotal float64, cfg TipConfig) float64 {
	if !cfg.Enabled {
		return 0
	}
	switch cfg.Mode {
	case TipPercentage:
		pct := cfg.Percentage
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		tip := subtotal * pct / 100
		if tip < 0 {
			return 0
		}
		return tip
	case TipFixed:
		if cfg.FixedAmount < 0 {
			return 0
		}
		return cfg.FixedAmount
	}
	return 0
}
