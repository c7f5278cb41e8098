package effect

import (
	"context"

	"github.com/poiesic/remessa/core"
)

// Chain runs effectors in order for each record. It stops at the first
// failed outcome or error and returns it; otherwise it returns the last
// effector's outcome.
func Chain(effectors ...Effector) Effector {
	return EffectorFunc(func(ctx context.Context, record core.Record) (core.Outcome, error) {
		outcome := core.Succeeded(record.Identifier())
		for _, e := range effectors {
			var err error
			outcome, err = e.Effect(ctx, record)
			if err != nil {
				return outcome, err
			}
			if !outcome.OK() {
				return outcome, nil
			}
		}
		return outcome, nil
	})
}

// Validated checks each record with core.ValidateRecord before handing it
// to next. Invalid records become failed outcomes and never reach next.
func Validated(next Effector) Effector {
	return EffectorFunc(func(ctx context.Context, record core.Record) (core.Outcome, error) {
		if err := core.ValidateRecord(record); err != nil {
			return core.Failed(record.Identifier(), err.Error()), nil
		}
		return next.Effect(ctx, record)
	})
}
