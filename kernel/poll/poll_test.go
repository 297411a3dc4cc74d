package poll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixed_ExactAttempts(t *testing.T) {
	s := Fixed(context.Background(), time.Millisecond, 8)

	count := 0
	for s.Next() {
		count++
	}

	assert.Equal(t, 8, count)
	assert.Equal(t, 8, s.Attempts())
	assert.False(t, s.Next(), "an exhausted schedule stays exhausted")
}

func TestFixed_StopsOnDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	s := Fixed(ctx, 5*time.Millisecond, 0)
	start := time.Now()
	for s.Next() {
	}

	assert.Greater(t, s.Attempts(), 0)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFixed_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := Fixed(ctx, time.Hour, 3)
	assert.False(t, s.Next())
	assert.Equal(t, 0, s.Attempts())
}

func TestSleep(t *testing.T) {
	assert.True(t, Sleep(context.Background(), 0))
	assert.True(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, Sleep(ctx, time.Hour))
	assert.False(t, Sleep(ctx, 0))
}
