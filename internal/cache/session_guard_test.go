package cache

import (
	"classtix/config"
	"classtix/internal/database"
	apperrors "classtix/pkg/app_errors"
	"context"
	"log"
	"os"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRDB *redis.Client

func TestMain(m *testing.M) {
	cfg := config.LoadTestConfig()

	var err error
	testRDB, err = database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize test redis: %v", err)
	}

	code := m.Run()

	testRDB.Close()
	os.Exit(code)
}

func setupGuard(t *testing.T) SessionSeatGuard {
	t.Helper()
	if err := testRDB.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("Failed to flush test redis: %v", err)
	}
	return NewSessionSeatGuard(testRDB)
}

func TestGuardNotWarmed(t *testing.T) {
	guard := setupGuard(t)
	ctx := context.Background()

	_, err := guard.RemainingSeats(ctx, 1)
	assert.ErrorIs(t, err, ErrGuardNotWarmed)

	err = guard.Reserve(ctx, 1)
	assert.ErrorIs(t, err, ErrGuardNotWarmed)
}

func TestGuardReserveUntilFull(t *testing.T) {
	guard := setupGuard(t)
	ctx := context.Background()

	require.NoError(t, guard.WarmUp(ctx, 1, 2))

	require.NoError(t, guard.Reserve(ctx, 1))
	require.NoError(t, guard.Reserve(ctx, 1))

	err := guard.Reserve(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrSessionFull)

	remaining, err := guard.RemainingSeats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestGuardRelease(t *testing.T) {
	guard := setupGuard(t)
	ctx := context.Background()

	require.NoError(t, guard.WarmUp(ctx, 1, 1))
	require.NoError(t, guard.Reserve(ctx, 1))

	require.NoError(t, guard.Release(ctx, 1))

	remaining, err := guard.RemainingSeats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	assert.NoError(t, guard.Reserve(ctx, 1))
}

func TestGuardReleaseWithoutWarmUp(t *testing.T) {
	guard := setupGuard(t)
	ctx := context.Background()

	// releasing an unwarmed guard must not create the key
	require.NoError(t, guard.Release(ctx, 1))

	_, err := guard.RemainingSeats(ctx, 1)
	assert.ErrorIs(t, err, ErrGuardNotWarmed)
}

func TestGuardWarmUpNegativeSeats(t *testing.T) {
	guard := setupGuard(t)
	ctx := context.Background()

	// negative remaining is clamped to zero
	require.NoError(t, guard.WarmUp(ctx, 1, -3))

	remaining, err := guard.RemainingSeats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	err = guard.Reserve(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrSessionFull)
}

func TestGuardEvict(t *testing.T) {
	guard := setupGuard(t)
	ctx := context.Background()

	require.NoError(t, guard.WarmUp(ctx, 1, 5))
	require.NoError(t, guard.Evict(ctx, 1))

	_, err := guard.RemainingSeats(ctx, 1)
	assert.ErrorIs(t, err, ErrGuardNotWarmed)
}

// Hammers the Lua reserve script: grants must never exceed the warmed seats.
func TestGuardConcurrentReserve(t *testing.T) {
	guard := setupGuard(t)
	ctx := context.Background()

	seats := 10
	attempts := 100

	require.NoError(t, guard.WarmUp(ctx, 1, seats))

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := guard.Reserve(ctx, 1); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, seats, granted)

	remaining, err := guard.RemainingSeats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestGuardIsolatedPerSession(t *testing.T) {
	guard := setupGuard(t)
	ctx := context.Background()

	require.NoError(t, guard.WarmUp(ctx, 1, 1))
	require.NoError(t, guard.WarmUp(ctx, 2, 1))

	require.NoError(t, guard.Reserve(ctx, 1))

	remaining, err := guard.RemainingSeats(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}
