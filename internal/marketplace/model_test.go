package marketplace

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionForwardOnly(t *testing.T) {
	assert.True(t, CanTransition(TaskOpen, TaskInProgress))
	assert.True(t, CanTransition(TaskInProgress, TaskCompleted))
	// A task without an accepted proposal may still be closed out
	assert.True(t, CanTransition(TaskOpen, TaskCompleted))

	// No back-transitions, nothing leaves COMPLETED or CANCELLED
	assert.False(t, CanTransition(TaskInProgress, TaskOpen))
	assert.False(t, CanTransition(TaskCompleted, TaskInProgress))
	assert.False(t, CanTransition(TaskCompleted, TaskOpen))
	assert.False(t, CanTransition(TaskCompleted, TaskCompleted))
	assert.False(t, CanTransition(TaskCancelled, TaskInProgress))
	assert.False(t, CanTransition(TaskCancelled, TaskCompleted))
	assert.False(t, CanTransition(TaskOpen, TaskOpen))
}

func TestValidPrice(t *testing.T) {
	assert.True(t, ValidPrice(0))
	assert.True(t, ValidPrice(80))
	assert.True(t, ValidPrice(149.99))

	assert.False(t, ValidPrice(-1))
	assert.False(t, ValidPrice(math.NaN()))
	assert.False(t, ValidPrice(math.Inf(1)))
	assert.False(t, ValidPrice(math.Inf(-1)))
}

func TestValidRating(t *testing.T) {
	for r := 1; r <= 5; r++ {
		assert.True(t, ValidRating(r))
	}
	assert.False(t, ValidRating(0))
	assert.False(t, ValidRating(6))
	assert.False(t, ValidRating(-3))
}
