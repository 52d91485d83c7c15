package resilience

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchLimiter_CapsTokens(t *testing.T) {
	l := NewBatchLimiter(3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.TryAcquire(), "token %d should be available", i+1)
	}
	assert.False(t, l.TryAcquire(), "bucket should be empty")
	assert.False(t, l.TryAcquire(), "bucket should stay empty without reset")
}

func TestBatchLimiter_ResetRefills(t *testing.T) {
	l := NewBatchLimiter(2)

	assert.True(t, l.TryAcquire())
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())

	l.Reset()

	assert.True(t, l.TryAcquire())
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
}

func TestBatchLimiter_NonPositiveCapacityDisablesLimiting(t *testing.T) {
	l := NewBatchLimiter(0)

	for i := 0; i < 100; i++ {
		assert.True(t, l.TryAcquire())
	}
}
