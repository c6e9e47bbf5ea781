package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

func TestSteppingClock_FirstCallReturnsStart(t *testing.T) {
	clock := NewSteppingClock(epoch, time.Second)
	assert.Equal(t, epoch, clock.Now())
}

func TestSteppingClock_Advances(t *testing.T) {
	clock := NewSteppingClock(epoch, time.Minute)

	clock.Now()
	assert.Equal(t, epoch.Add(time.Minute), clock.Now())
	assert.Equal(t, epoch.Add(2*time.Minute), clock.Now())
	assert.Equal(t, int64(3), clock.Calls())
}

func TestSteppingClock_Reset(t *testing.T) {
	clock := NewSteppingClock(epoch, time.Second)
	clock.Now()
	clock.Now()

	clock.Reset()

	assert.Equal(t, epoch, clock.Now())
}

func TestSteppingClock_ThreadSafe(t *testing.T) {
	clock := NewSteppingClock(epoch, time.Millisecond)
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var mu sync.Mutex
	seen := make(map[time.Time]bool)
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				now := clock.Now()
				mu.Lock()
				seen[now] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, numGoroutines*callsPerGoroutine, "every call must return a distinct instant")
}

func TestFixedClock(t *testing.T) {
	now := FixedClock(epoch)
	assert.Equal(t, epoch, now())
	assert.Equal(t, epoch, now())
}
