package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AurifyAE/Mac-and-Ro/internal/models"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func decided(status models.Status, ago time.Duration) models.ReviewableEntity {
	ts := baseTime.Add(-ago)
	return models.ReviewableEntity{ID: "e", Status: status, ActionTimestamp: &ts}
}

func TestCanReversePendingNeverReversible(t *testing.T) {
	for _, ago := range []time.Duration{0, time.Second, 4 * time.Minute, time.Hour} {
		e := decided(models.StatusPending, ago)
		assert.False(t, CanReverse(e, baseTime), "ago=%s", ago)
	}
	assert.False(t, CanReverse(models.ReviewableEntity{Status: models.StatusPending}, baseTime))
}

func TestCanReverseRequiresTimestamp(t *testing.T) {
	assert.False(t, CanReverse(models.ReviewableEntity{Status: models.StatusApproved}, baseTime))
	zero := time.Time{}
	assert.False(t, CanReverse(models.ReviewableEntity{Status: models.StatusRejected, ActionTimestamp: &zero}, baseTime))
}

func TestCanReverseWindow(t *testing.T) {
	tests := []struct {
		name   string
		status models.Status
		ago    time.Duration
		want   bool
	}{
		{"approved just now", models.StatusApproved, 0, true},
		{"approved 4m59s ago", models.StatusApproved, 4*time.Minute + 59*time.Second, true},
		{"rejected 4m59s ago", models.StatusRejected, 4*time.Minute + 59*time.Second, true},
		{"exactly at the boundary", models.StatusApproved, 5 * time.Minute, true},
		{"one millisecond past the boundary", models.StatusApproved, 5*time.Minute + time.Millisecond, false},
		{"approved 5m01s ago", models.StatusApproved, 5*time.Minute + time.Second, false},
		{"rejected 10m ago", models.StatusRejected, 10 * time.Minute, false},
		{"closed request", models.StatusClosed, time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanReverse(decided(tt.status, tt.ago), baseTime))
		})
	}
}

func TestCanReverseIgnoresSubMillisecondDrift(t *testing.T) {
	e := decided(models.StatusApproved, 5*time.Minute)
	assert.True(t, CanReverse(e, baseTime.Add(500*time.Microsecond)))
	assert.False(t, CanReverse(e, baseTime.Add(time.Millisecond)))
}

func TestCanReverseWithinCustomWindow(t *testing.T) {
	e := decided(models.StatusApproved, 90*time.Second)
	assert.False(t, CanReverseWithin(e, baseTime, time.Minute))
	assert.True(t, CanReverseWithin(e, baseTime, 2*time.Minute))
}
