package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, now func() time.Time) (*Storage, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStorage(client, "fxdash", WithClock(now)), mr
}

func TestStorage_FreshThenStale(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)
	s, mr := newTestStorage(t, func() time.Time { return now })

	require.NoError(t, s.Set(ctx, "currencies", []byte(`{"EUR":"Euro"}`)))
	assert.True(t, mr.Exists("fxdash:currencies"))

	got, ok, err := s.Get(ctx, "currencies", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"EUR":"Euro"}`, string(got))

	now = now.Add(2 * time.Hour)

	_, ok, err = s.Get(ctx, "currencies", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err = s.GetStale(ctx, "currencies")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"EUR":"Euro"}`, string(got))
}

func TestStorage_MissingAndCorrupt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, mr := newTestStorage(t, time.Now)

	_, ok, err := s.GetStale(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mr.Set("fxdash:broken", "not-json"))
	_, ok, err = s.Get(ctx, "broken", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorage_PublishUpd(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, _ := newTestStorage(t, time.Now)

	sub := s.rdb.Subscribe(ctx, "fxdash:"+UpdatesChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, s.PublishUpd(ctx, "latest:USD:EUR"))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "latest:USD:EUR", msg.Payload)
}

func TestInitStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr := miniredis.RunT(t)

	s, err := InitStorage(ctx, &redis.Options{Addr: mr.Addr()}, "fxdash", 1, 10*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	assert.True(t, mr.Exists("fxdash:k"))
}

func TestInitStorage_Unreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := InitStorage(context.Background(), &redis.Options{Addr: addr, DialTimeout: 100 * time.Millisecond}, "fxdash", 1, 10*time.Millisecond)
	require.Error(t, err)
}
