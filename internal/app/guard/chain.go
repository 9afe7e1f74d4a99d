package guard

import "context"

// Chain executes guards in sequence.
type Chain struct {
	guards []Guard
}

// NewChain creates a new guard chain.
func NewChain(guards ...Guard) *Chain {
	c := &Chain{
		guards: make([]Guard, 0, len(guards)),
	}
	for _, g := range guards {
		c.Add(g)
	}
	return c
}

// Add adds a guard to the chain.
func (c *Chain) Add(g Guard) {
	c.guards = append(c.guards, g)
}

// Execute runs all guards in sequence.
// Returns immediately if any guard denies the invocation.
func (c *Chain) Execute(ctx context.Context, inv Invocation) Result {
	for _, g := range c.guards {
		result := g.Check(ctx, inv)
		if !result.Allowed {
			return result
		}
	}
	return Allow()
}

// Guards returns all guards in the chain.
func (c *Chain) Guards() []Guard {
	return c.guards
}
