// Package embedding wraps the external embedding gateway that turns text
// into fixed-length vectors. The gateway is a collaborator with its own
// failure mode: every call is bounded by a timeout and protected by a
// circuit breaker, and callers degrade gracefully when it is unavailable.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the gateway could not produce an embedding in
// time: a request timeout, a transport failure, or an open circuit
// breaker. Memory writes treat this as a degraded (not failed) write.
var ErrUnavailable = errors.New("embedding gateway unavailable")

// Gateway converts text to a fixed-length vector.
type Gateway interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
