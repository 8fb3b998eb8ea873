package papersources

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewRateLimiter(t *testing.T) {
	tests := []struct {
		name          string
		rate          float64
		burst         int
		expectedLimit rate.Limit
		expectedBurst int
	}{
		{name: "api source", rate: 3, burst: 3, expectedLimit: 3, expectedBurst: 3},
		{name: "scraped site", rate: 0.5, burst: 1, expectedLimit: 0.5, expectedBurst: 1},
		{name: "burst raised to one", rate: 0.5, burst: 0, expectedLimit: 0.5, expectedBurst: 1},
		{name: "negative rate is unlimited", rate: -1, burst: 1, expectedLimit: rate.Inf, expectedBurst: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.rate, tt.burst)
			require.NotNil(t, rl)
			assert.Equal(t, tt.expectedLimit, rl.limiter.Limit())
			assert.Equal(t, tt.expectedBurst, rl.limiter.Burst())
		})
	}
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("returns immediately within burst", func(t *testing.T) {
		rl := NewRateLimiter(1, 3)

		start := time.Now()
		for i := 0; i < 3; i++ {
			require.NoError(t, rl.Wait(context.Background()))
		}
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("blocks once burst is exhausted", func(t *testing.T) {
		rl := NewRateLimiter(20, 1)

		require.NoError(t, rl.Wait(context.Background()))
		start := time.Now()
		require.NoError(t, rl.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("unlimited never blocks", func(t *testing.T) {
		rl := NewRateLimiter(-1, 1)

		start := time.Now()
		for i := 0; i < 100; i++ {
			require.NoError(t, rl.Wait(context.Background()))
		}
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})
}

func TestRateLimiter_WaitContextCanceled(t *testing.T) {
	t.Run("returns error for canceled context", func(t *testing.T) {
		rl := NewRateLimiter(0.1, 1)
		require.NoError(t, rl.Wait(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.Error(t, rl.Wait(ctx))
	})

	t.Run("returns error when deadline is shorter than the wait", func(t *testing.T) {
		rl := NewRateLimiter(0.1, 1)
		require.NoError(t, rl.Wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		assert.Error(t, rl.Wait(ctx))
	})
}

func TestRateLimiter_ConcurrentWaiters(t *testing.T) {
	rl := NewRateLimiter(0.1, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		passed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Wait(ctx) == nil {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, passed)
}
