package onboarding

import "context"

// Finalizer persists the full answer map once the user confirms completion.
// The machine always re-sends the complete map, so a retry repeats the same
// payload rather than a delta.
type Finalizer interface {
	Submit(ctx context.Context, ownerID string, answers map[string]Answer) error
}

type FinalizerFunc func(ctx context.Context, ownerID string, answers map[string]Answer) error

func (f FinalizerFunc) Submit(ctx context.Context, ownerID string, answers map[string]Answer) error {
	return f(ctx, ownerID, answers)
}
