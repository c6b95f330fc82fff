package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_Frozen(t *testing.T) {
	clock := NewManualClock(0)

	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, time.Duration(0), clock.Elapsed())
}

func TestManualClock_Step(t *testing.T) {
	clock := NewManualClock(time.Second)

	// First read is the start, each read advances afterwards
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
	assert.Equal(t, 2*time.Second, clock.Elapsed())
}

func TestManualClock_Advance(t *testing.T) {
	clock := NewManualClock(0)
	clock.Advance(time.Hour)

	assert.Equal(t, Epoch.Add(time.Hour), clock.Now())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock(time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				clock.Now()
			}
		}()
	}
	wg.Wait()

	// 1000 reads total
	assert.Equal(t, time.Second, clock.Elapsed())
}
