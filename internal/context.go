package internal

import (
	"context"
	"time"
)

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

// StartOfDay truncates t to midnight UTC. Subscription dates are stored this way
// so that "active through end_date" compares whole days.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
