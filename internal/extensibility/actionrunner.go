package extensibility

import (
	"log/slog"
	"maps"
	"time"

	"github.com/comalice/formchart/internal/core"
)

// LogActions wraps every action so each invocation is logged at Debug with
// its name, phase, state and duration. The returned map is a copy.
func LogActions[C any](logger *slog.Logger, actions map[string]core.Action[C]) map[string]core.Action[C] {
	out := make(map[string]core.Action[C], len(actions))
	for name, a := range actions {
		out[name] = logged(logger, name, a)
	}
	return out
}

func logged[C any](logger *slog.Logger, name string, a core.Action[C]) core.Action[C] {
	return func(args core.ActionArgs[C]) C {
		start := time.Now()
		out := a(args)
		logger.Debug("action",
			"action", name,
			"phase", string(args.Phase),
			"state", args.State,
			"event", args.Event.Type,
			"duration", time.Since(start),
		)
		return out
	}
}

// Chain runs actions in order, feeding each the context the previous one returned.
func Chain[C any](actions ...core.Action[C]) core.Action[C] {
	return func(args core.ActionArgs[C]) C {
		for _, a := range actions {
			args.Context = a(args)
		}
		return args.Context
	}
}

// WithActions returns a copy of reg whose actions are replaced by wrap(reg.Actions).
func WithActions[C any](reg core.Registry[C], wrap func(map[string]core.Action[C]) map[string]core.Action[C]) core.Registry[C] {
	out := reg
	out.Guards = maps.Clone(reg.Guards)
	out.Actions = wrap(reg.Actions)
	return out
}
