package eventstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstantBackoff(t *testing.T) {
	b := ConstantBackoff{Delay: 5 * time.Second}
	for i := 0; i < 50; i++ {
		assert.Equal(t, 5*time.Second, b.Next(i))
	}
	assert.Equal(t, DefaultReconnectDelay, ConstantBackoff{}.Next(3))
}

func TestExponentialBackoffCaps(t *testing.T) {
	b := ExponentialBackoff{Base: 5 * time.Second, Max: time.Minute}

	assert.Equal(t, 5*time.Second, b.Next(0))
	assert.Equal(t, 10*time.Second, b.Next(1))
	assert.Equal(t, 20*time.Second, b.Next(2))
	assert.Equal(t, 40*time.Second, b.Next(3))
	assert.Equal(t, time.Minute, b.Next(4))
	assert.Equal(t, time.Minute, b.Next(40))
}

func TestExponentialBackoffJitterStaysInBounds(t *testing.T) {
	b := ExponentialBackoff{Base: 5 * time.Second, Max: time.Minute, Jitter: 0.2}
	for i := 0; i < 100; i++ {
		d := b.Next(1)
		assert.GreaterOrEqual(t, d, 8*time.Second)
		assert.LessOrEqual(t, d, 12*time.Second)
	}
}
