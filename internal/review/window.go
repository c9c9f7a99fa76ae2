package review

import (
	"time"

	"github.com/AurifyAE/Mac-and-Ro/internal/models"
)

// ReversalWindow is how long after a decision it may still be reverted
const ReversalWindow = 5 * time.Minute

// CanReverse reports whether a decided entity may still be sent back to pending
func CanReverse(e models.ReviewableEntity, now time.Time) bool {
	return CanReverseWithin(e, now, ReversalWindow)
}

// CanReverseWithin is CanReverse with an explicit window. Timestamps are
// compared at millisecond precision and the boundary itself is still open.
func CanReverseWithin(e models.ReviewableEntity, now time.Time, window time.Duration) bool {
	if e.Status == models.StatusPending || !e.Status.Decided() {
		return false
	}
	if e.ActionTimestamp == nil || e.ActionTimestamp.IsZero() {
		return false
	}
	elapsed := now.Truncate(time.Millisecond).Sub(e.ActionTimestamp.Truncate(time.Millisecond))
	return elapsed <= window
}
