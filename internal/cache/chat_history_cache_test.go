package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docchat/internal/model"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ChatHistoryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewChatHistoryCache(client, ttl), mr
}

func sampleRecords() []model.ChatRecord {
	return []model.ChatRecord{
		{ID: 1, DocumentID: 3, TokenIdentifier: "gopherai|7", Text: "what is it?", IsHuman: true},
		{ID: 2, DocumentID: 3, TokenIdentifier: "gopherai|7", Text: "a report", IsHuman: false},
	}
}

func TestHistoryKey_ScopedByDocumentAndOwner(t *testing.T) {
	assert.Equal(t, "docchat:chat:history:3:gopherai|7", historyKey(3, "gopherai|7"))
	assert.NotEqual(t, historyKey(3, "gopherai|7"), historyKey(3, "gopherai|8"))
	assert.NotEqual(t, historyKey(3, "gopherai|7"), historyKey(4, "gopherai|7"))
	assert.NotEqual(t, historyKey(3, "gopherai|7"), versionKey(3, "gopherai|7"))
}

func TestChatHistoryCache_SetThenGet(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, hit, err := c.Get(ctx, 3, "gopherai|7")
	require.NoError(t, err)
	assert.False(t, hit)

	v, err := c.Version(ctx, 3, "gopherai|7")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	stored, err := c.Set(ctx, 3, "gopherai|7", v, sampleRecords())
	require.NoError(t, err)
	assert.True(t, stored)

	got, hit, err := c.Get(ctx, 3, "gopherai|7")
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 2)
	assert.Equal(t, "what is it?", got[0].Text)
	assert.True(t, got[0].IsHuman)
	assert.Equal(t, "a report", got[1].Text)

	_, hit, err = c.Get(ctx, 3, "gopherai|8")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestChatHistoryCache_InvalidateDropsEntryAndBumpsVersion(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, err := c.Set(ctx, 3, "gopherai|7", 0, sampleRecords())
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, 3, "gopherai|7"))

	_, hit, err := c.Get(ctx, 3, "gopherai|7")
	require.NoError(t, err)
	assert.False(t, hit)

	v, err := c.Version(ctx, 3, "gopherai|7")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.Greater(t, mr.TTL(versionKey(3, "gopherai|7")), time.Duration(0))
}

func TestChatHistoryCache_EntryExpires(t *testing.T) {
	c, mr := newTestCache(t, 2*time.Second)
	ctx := context.Background()

	_, err := c.Set(ctx, 3, "gopherai|7", 0, sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, mr.TTL(historyKey(3, "gopherai|7")))

	mr.FastForward(3 * time.Second)

	_, hit, err := c.Get(ctx, 3, "gopherai|7")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestChatHistoryCache_StaleSnapshotIsNotStored(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	seen, err := c.Version(ctx, 3, "gopherai|7")
	require.NoError(t, err)

	// A writer changes the history after the reader loaded its snapshot.
	require.NoError(t, c.Invalidate(ctx, 3, "gopherai|7"))

	stored, err := c.Set(ctx, 3, "gopherai|7", seen, []model.ChatRecord{})
	require.NoError(t, err)
	assert.False(t, stored)

	_, hit, err := c.Get(ctx, 3, "gopherai|7")
	require.NoError(t, err)
	assert.False(t, hit)

	current, err := c.Version(ctx, 3, "gopherai|7")
	require.NoError(t, err)
	stored, err = c.Set(ctx, 3, "gopherai|7", current, sampleRecords())
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestChatHistoryCache_UnreachableRedisReturnsError(t *testing.T) {
	client := redisv9.NewClient(&redisv9.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	c := NewChatHistoryCache(client, 0)
	assert.Equal(t, 60*time.Second, c.ttl)

	_, hit, err := c.Get(context.Background(), 1, "gopherai|1")
	require.Error(t, err)
	assert.False(t, hit)
	assert.Contains(t, err.Error(), "redis get chat history failed")
}
