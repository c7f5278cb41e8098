package effect

import (
	"context"

	"github.com/poiesic/remessa/core"
)

// Effector performs the side effect for one record.
// Implementations must be safe for concurrent use.
type Effector interface {
	Effect(ctx context.Context, record core.Record) (core.Outcome, error)
}

// EffectorFunc adapts a function to the Effector interface.
type EffectorFunc func(ctx context.Context, record core.Record) (core.Outcome, error)

// Effect calls f(ctx, record).
func (f EffectorFunc) Effect(ctx context.Context, record core.Record) (core.Outcome, error) {
	return f(ctx, record)
}
