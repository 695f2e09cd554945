package port

import (
	"context"
	"time"

	"schedcard/internal/core/domain"
)

// CommandExecutor executes one outbound service call against the host
// platform. Calls are asynchronous and fallible; there is no retry and no
// optimistic local mutation, the next snapshot is the only source of truth.
type CommandExecutor interface {
	Call(ctx context.Context, call domain.ServiceCall) error
}

// DurationStore persists the per-direction schedule duration preference
// across card lifetimes.
type DurationStore interface {
	// Duration returns the stored minutes for a direction, or the default
	// when absent.
	Duration(dir domain.Direction) int
	SetDuration(dir domain.Direction, minutes int) error
}

// Clock abstracts wall-clock reads for deterministic tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
