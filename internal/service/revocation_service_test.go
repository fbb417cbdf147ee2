package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRevocationService(t *testing.T) (*RevocationService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRevocationService(client, testLogger()), mr
}

func TestRevocationService_RevokeAndCheck(t *testing.T) {
	svc, mr := newTestRevocationService(t)
	ctx := context.Background()

	revoked, err := svc.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, svc.Revoke(ctx, "jti-1", time.Hour))

	revoked, err = svc.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	value, err := mr.Get("revoked_token:jti-1")
	require.NoError(t, err)
	assert.Equal(t, "revoked", value)
	assert.Equal(t, time.Hour, mr.TTL("revoked_token:jti-1"))

	revoked, err = svc.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationService_EntryExpires(t *testing.T) {
	svc, mr := newTestRevocationService(t)
	ctx := context.Background()

	require.NoError(t, svc.Revoke(ctx, "jti-1", 10*time.Second))

	mr.FastForward(9 * time.Second)
	revoked, err := svc.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Second)
	revoked, err = svc.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationService_RevokeIsIdempotent(t *testing.T) {
	svc, mr := newTestRevocationService(t)
	ctx := context.Background()

	require.NoError(t, svc.Revoke(ctx, "jti-1", time.Minute))
	require.NoError(t, svc.Revoke(ctx, "jti-1", time.Hour))

	revoked, err := svc.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Len(t, mr.Keys(), 1)
	assert.Equal(t, time.Minute, mr.TTL("revoked_token:jti-1"))
}

func TestRevocationService_Claim(t *testing.T) {
	svc, _ := newTestRevocationService(t)
	ctx := context.Background()

	claimed, err := svc.Claim(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = svc.Claim(ctx, "jti-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)

	revoked, err := svc.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRevocationService_ClaimConcurrent(t *testing.T) {
	svc, _ := newTestRevocationService(t)

	const workers = 20
	results := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := svc.Claim(context.Background(), "jti-1", time.Minute)
			assert.NoError(t, err)
			results <- claimed
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for claimed := range results {
		if claimed {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestRevocationService_MinimumTTL(t *testing.T) {
	svc, mr := newTestRevocationService(t)

	require.NoError(t, svc.Revoke(context.Background(), "jti-1", 0))
	assert.Equal(t, time.Second, mr.TTL("revoked_token:jti-1"))
}

func TestRevocationService_RejectsEmptyID(t *testing.T) {
	svc, _ := newTestRevocationService(t)

	assert.Error(t, svc.Revoke(context.Background(), "", time.Minute))

	claimed, err := svc.Claim(context.Background(), "", time.Minute)
	assert.Error(t, err)
	assert.False(t, claimed)
}

func TestRevocationService_StoreUnavailable(t *testing.T) {
	svc, mr := newTestRevocationService(t)
	ctx := context.Background()

	mr.Close()

	assert.Error(t, svc.Revoke(ctx, "jti-1", time.Minute))

	revoked, err := svc.IsRevoked(ctx, "jti-1")
	assert.Error(t, err)
	assert.False(t, revoked)
}
