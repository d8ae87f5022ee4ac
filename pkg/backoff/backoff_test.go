package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialJitter(t *testing.T) {
	base := 100 * time.Millisecond
	max := 2 * time.Second

	for attempt := 1; attempt <= 8; attempt++ {
		want := min(base*time.Duration(1<<(attempt-1)), max)
		lo := want - want/5
		hi := want + want/5
		for i := 0; i < 50; i++ {
			got := ExponentialJitter(base, max, attempt)
			assert.GreaterOrEqual(t, got, lo, "attempt %d", attempt)
			assert.LessOrEqual(t, got, hi, "attempt %d", attempt)
		}
	}
}

func TestExponentialJitterZeroBase(t *testing.T) {
	assert.Equal(t, time.Duration(0), ExponentialJitter(0, time.Second, 3))
}

func TestExponentialJitterClampsAttempt(t *testing.T) {
	got := ExponentialJitter(time.Second, time.Minute, -4)
	assert.InDelta(t, float64(time.Second), float64(got), float64(200*time.Millisecond))
}
