package engine

import (
	"fmt"
	"math"

	"receiptkit/core"
)

// Contributions are accumulated in centipoints (points × 100) so the
// fractional results a sub-unit rounding precision can produce sum exactly;
// the engine rounds the grand total half-up once at the end.

// calculate maps a match to its centipoint contribution under one policy.
func calculate(policy core.Policy, m Match) (int64, error) {
	switch p := policy.(type) {
	case core.FlatPoints:
		if !m.Matched {
			return 0, nil
		}
		return p.Extra * 100, nil

	case core.PerCharacterPoints:
		if !m.Matched {
			return 0, nil
		}
		return int64(m.CharCount) * p.PerChar * 100, nil

	case core.PerGroupPoints:
		if !m.Matched {
			return 0, nil
		}
		return int64(m.GroupCount) * p.PerGroup * 100, nil

	case core.PriceMultiplier:
		if p.Rounding.Method != core.RoundUp {
			return 0, fmt.Errorf("%w: %q", core.ErrUnsupportedRoundingMethod, p.Rounding.Method)
		}
		var total int64
		for _, it := range m.Items {
			price, err := core.ParseCents(it.Price)
			if err != nil {
				return 0, err
			}
			total += roundUpMultiple(float64(price)*p.Multiplier, int64(p.Rounding.Precision))
		}
		return total, nil

	default:
		return 0, fmt.Errorf("%w: %q", core.ErrUnsupportedCalculationType, policy.PolicyType())
	}
}

// roundUpMultiple rounds raw centipoints up to the nearest multiple of
// precision (also centipoints). The 1e-9 slack keeps exact products from
// float drift into the next step: 1225 × 0.2 must stay 245, not 245.0000001.
func roundUpMultiple(raw float64, precision int64) int64 {
	if raw <= 0 {
		return 0
	}
	steps := int64(math.Ceil(raw/float64(precision) - 1e-9))
	return steps * precision
}
