package service

// PayoutPolicy computes the gross payout and the effective house edge for
// a roll-under target. All arithmetic is integer so results are
// bit-reproducible for audits.
type PayoutPolicy struct {
	baseEdgeBps     int64
	maxExtraEdgeBps int64
}

// NewPayoutPolicy creates a payout policy. Edges are in basis points.
func NewPayoutPolicy(baseEdgeBps, maxExtraEdgeBps int64) *PayoutPolicy {
	return &PayoutPolicy{
		baseEdgeBps:     baseEdgeBps,
		maxExtraEdgeBps: maxExtraEdgeBps,
	}
}

// DynamicEdgeBps returns the house edge for a target: the base edge plus an
// extra penalty growing linearly with the target's deviation from the
// midpoint (50), reaching maxExtraEdgeBps at the extremes. Symmetric payout
// multipliers blow up near the range boundary; the sliding edge caps tail
// risk without banning extreme bets.
func (p *PayoutPolicy) DynamicEdgeBps(target int) int64 {
	clamped := target
	if clamped < 1 {
		clamped = 1
	}
	if clamped > 99 {
		clamped = 99
	}

	dev := int64(clamped - 50)
	if dev < 0 {
		dev = -dev
	}

	// round(dev/49 * maxExtra) in integer math, half rounded up.
	extra := (dev*p.maxExtraEdgeBps*2 + 49) / 98
	return p.baseEdgeBps + extra
}

// Payout returns the gross payout for a winning bet:
// floor(amount * (10000 - edgeBps) / (target * 100)), never negative.
func (p *PayoutPolicy) Payout(amount int64, target int) int64 {
	edge := p.DynamicEdgeBps(target)
	payout := amount * (10000 - edge) / (int64(target) * 100)
	if payout < 0 {
		return 0
	}
	return payout
}
