package eventstream

import (
	"math"
	"math/rand"
	"time"
)

// DefaultReconnectDelay is the pause before each reconnection attempt
const DefaultReconnectDelay = 5 * time.Second

// Backoff decides how long to wait before reconnect attempt number
// failures (zero-based, reset after every successful open).
type Backoff interface {
	Next(failures int) time.Duration
}

// ConstantBackoff waits the same delay forever, with no retry cap
type ConstantBackoff struct {
	Delay time.Duration
}

// Next implements Backoff
func (b ConstantBackoff) Next(int) time.Duration {
	if b.Delay <= 0 {
		return DefaultReconnectDelay
	}
	return b.Delay
}

// ExponentialBackoff doubles the delay per consecutive failure up to Max,
// with +/- Jitter (a fraction) applied to each step.
type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

// Next implements Backoff
func (b ExponentialBackoff) Next(failures int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = DefaultReconnectDelay
	}
	max := b.Max
	if max <= 0 {
		max = 2 * time.Minute
	}

	seconds := math.Min(max.Seconds(), base.Seconds()*math.Pow(2, float64(failures)))

	if b.Jitter > 0 {
		jitter := seconds * b.Jitter
		seconds = seconds - jitter + (rand.Float64() * jitter * 2)
	}

	return time.Duration(seconds * float64(time.Second))
}
