// Package backend renders completed turns into backend-specific trace
// structures and delivers them. Adapters are interchangeable: the runner
// holds a list of them and fans every turn out to whichever ones are
// healthy, so each must tolerate duplicate turns (delivery is
// at-least-once).
package backend

import (
	"context"

	"github.com/MikeSquared-Agency/scribe/internal/turn"
)

// Adapter is the capability a telemetry backend must provide.
type Adapter interface {
	// Name identifies the adapter in logs.
	Name() string

	// HealthCheck cheaply reports whether the backend looks reachable.
	// It must return quickly; a raw connect probe is enough, a full
	// protocol handshake is too much.
	HealthCheck(ctx context.Context) bool

	// Emit delivers one turn as a span tree. Errors are per-turn and
	// never abort the caller's pass.
	Emit(ctx context.Context, t *turn.Turn) error
}

// Shutdowner is implemented by adapters that buffer or hold connections
// and need a flush at the end of a pass.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}
