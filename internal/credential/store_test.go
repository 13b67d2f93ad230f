package credential

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type storeHarness struct {
	store   Store
	advance func(time.Duration)
}

func newMemoryHarness(t *testing.T) storeHarness {
	t.Helper()
	clock := newFakeClock()
	store := NewMemoryStore(clock.Now)
	t.Cleanup(func() { _ = store.Close() })
	return storeHarness{store: store, advance: clock.Advance}
}

func newRedisHarness(t *testing.T) storeHarness {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	clock := newFakeClock()
	return storeHarness{
		store: NewRedisStore(client, "test", clock.Now),
		advance: func(d time.Duration) {
			clock.Advance(d)
			mr.FastForward(d)
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, h storeHarness)) {
	t.Run("memory", func(t *testing.T) { fn(t, newMemoryHarness(t)) })
	t.Run("redis", func(t *testing.T) { fn(t, newRedisHarness(t)) })
}

func TestStorePutGetOverwrite(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		ctx := context.Background()
		require.NoError(t, h.store.PutOTP(ctx, "R1", OTPEntry{Recipient: "a@example.com", Code: "111111"}, time.Minute))
		require.NoError(t, h.store.PutOTP(ctx, "R1", OTPEntry{Recipient: "a@example.com", Code: "222222", Attempts: 2}, time.Minute))

		got, err := h.store.GetOTP(ctx, "R1")
		require.NoError(t, err)
		assert.Equal(t, "R1", got.RequestID)
		assert.Equal(t, "222222", got.Code)
		assert.Equal(t, 2, got.Attempts)

		_, err = h.store.GetOTP(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStoreExpiresLazily(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		ctx := context.Background()
		require.NoError(t, h.store.PutOTP(ctx, "R1", OTPEntry{Code: "123456"}, 300*time.Second))
		require.NoError(t, h.store.PutResetToken(ctx, "T1", ResetToken{Recipient: "a@example.com"}, 900*time.Second))

		h.advance(299 * time.Second)
		_, err := h.store.GetOTP(ctx, "R1")
		require.NoError(t, err)

		h.advance(time.Second)
		_, err = h.store.GetOTP(ctx, "R1")
		assert.ErrorIs(t, err, ErrNotFound)

		h.advance(601 * time.Second)
		_, err = h.store.GetResetToken(ctx, "T1")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = h.store.TakeResetToken(ctx, "T1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStoreAttemptOperations(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		ctx := context.Background()
		require.NoError(t, h.store.IncrementOTPAttempts(ctx, "missing"))

		require.NoError(t, h.store.PutOTP(ctx, "R1", OTPEntry{Code: "123456"}, time.Minute))
		require.NoError(t, h.store.IncrementOTPAttempts(ctx, "R1"))

		ok, err := h.store.CompareAndSwapOTPAttempts(ctx, "R1", 0, 1)
		require.NoError(t, err)
		assert.False(t, ok, "stale expectation must not swap")

		ok, err = h.store.CompareAndSwapOTPAttempts(ctx, "R1", 1, 2)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := h.store.GetOTP(ctx, "R1")
		require.NoError(t, err)
		assert.Equal(t, 2, got.Attempts)

		ok, err = h.store.CompareAndDeleteOTP(ctx, "R1", 1)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = h.store.CompareAndDeleteOTP(ctx, "R1", 2)
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = h.store.GetOTP(ctx, "R1")
		assert.ErrorIs(t, err, ErrNotFound)

		ok, err = h.store.CompareAndSwapOTPAttempts(ctx, "R1", 2, 3)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStoreTakeResetTokenOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		ctx := context.Background()
		require.NoError(t, h.store.PutResetToken(ctx, "T1", ResetToken{Recipient: "a@example.com"}, time.Minute))

		got, err := h.store.GetResetToken(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, "T1", got.Token)

		taken, err := h.store.TakeResetToken(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", taken.Recipient)

		_, err = h.store.TakeResetToken(ctx, "T1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStoreConcurrentIncrementsAreNotLost(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		ctx := context.Background()
		require.NoError(t, h.store.PutOTP(ctx, "R1", OTPEntry{Code: "123456"}, time.Minute))

		const workers = 5
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, h.store.IncrementOTPAttempts(ctx, "R1"))
			}()
		}
		wg.Wait()

		got, err := h.store.GetOTP(ctx, "R1")
		require.NoError(t, err)
		assert.Equal(t, workers, got.Attempts)
	})
}

func TestMemoryStoreSweepAndReaper(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.PutOTP(ctx, "R1", OTPEntry{Code: "123456"}, time.Minute))
	require.NoError(t, store.PutOTP(ctx, "R2", OTPEntry{Code: "654321"}, time.Hour))
	require.NoError(t, store.PutResetToken(ctx, "T1", ResetToken{}, time.Minute))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, 2, store.Sweep())
	assert.Equal(t, 1, store.Len())

	clock.Advance(2 * time.Hour)
	store.StartReaper(ctx, 5*time.Millisecond)
	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, store.PutOTP(ctx, "R3", OTPEntry{Code: "123456"}, time.Minute))
	require.NoError(t, store.Close())
	assert.Equal(t, 0, store.Len())
}
