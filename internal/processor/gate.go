package processor

import "context"

// gate admits one holder at a time. Waiters give up when their context ends.
type gate chan struct{}

func newGate() gate {
	return make(gate, 1)
}

// enter blocks until the gate is free and returns the function that frees it.
func (g gate) enter(ctx context.Context) (func(), error) {
	select {
	case g <- struct{}{}:
		return func() { <-g }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
