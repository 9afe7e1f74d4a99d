// Package reward converts tracked voice time into coins.
package reward

import "time"

const (
	// DefaultBlock is the length of one rewarded block of presence.
	DefaultBlock = 10 * time.Minute
	// DefaultCoinsPerBlock is the base payout for one completed block.
	DefaultCoinsPerBlock = 25
)

// BoostTable maps a role ID to an additive boost percentage.
type BoostTable map[string]int

// Percent sums the boosts of every listed role. Unknown roles add nothing.
func (b BoostTable) Percent(roleIDs []string) int {
	total := 0
	for _, id := range roleIDs {
		total += b[id]
	}
	return total
}

// Result is the payout for one user.
type Result struct {
	Base         int // Coins before boosts
	BoostPercent int // Sum of matching role boosts
	Coins        int // Final payout
}

// Calculator computes coin payouts.
type Calculator struct {
	Block         time.Duration
	CoinsPerBlock int
	Boosts        BoostTable
}

// NewCalculator creates a calculator with the default block size and payout.
func NewCalculator(boosts BoostTable) Calculator {
	return Calculator{
		Block:         DefaultBlock,
		CoinsPerBlock: DefaultCoinsPerBlock,
		Boosts:        boosts,
	}
}

// Compute returns the payout for elapsed time and the user's roles.
// Only completed blocks pay. Boosts are summed without a cap and the
// boosted amount is floored.
func (c Calculator) Compute(elapsed time.Duration, roleIDs []string) Result {
	block := c.Block
	if block <= 0 {
		block = DefaultBlock
	}

	var base int
	if elapsed > 0 {
		base = int(elapsed/block) * c.CoinsPerBlock
	}

	boost := c.Boosts.Percent(roleIDs)
	coins := base
	if boost > 0 {
		// floor(base * (1 + boost/100)) in integer arithmetic
		coins = base * (100 + boost) / 100
	}

	return Result{
		Base:         base,
		BoostPercent: boost,
		Coins:        coins,
	}
}
