package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"gopherai-docchat/internal/model"
)

const versionTTL = 24 * time.Hour

// ChatHistoryCache holds the chat records of one (document, owner) pair.
// Entries are written on read misses and dropped whenever the history changes.
// Every change bumps a version counter; a reader may only store the snapshot
// it loaded if the version is still the one it saw before hitting the DB.
type ChatHistoryCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewChatHistoryCache(client *redisv9.Client, ttl time.Duration) *ChatHistoryCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ChatHistoryCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *ChatHistoryCache) Get(ctx context.Context, documentID uint, tokenIdentifier string) ([]model.ChatRecord, bool, error) {
	raw, err := c.client.Get(ctx, historyKey(documentID, tokenIdentifier)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get chat history failed: %w", err)
	}

	var records []model.ChatRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached chat history failed: %w", err)
	}
	return records, true, nil
}

// Version returns the current history version, 0 when none was recorded.
func (c *ChatHistoryCache) Version(ctx context.Context, documentID uint, tokenIdentifier string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(documentID, tokenIdentifier)).Int64()
	if errors.Is(err, redisv9.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get chat history version failed: %w", err)
	}
	return v, nil
}

// Set stores records only while the history version still equals version.
// It reports false when a newer change won the race.
func (c *ChatHistoryCache) Set(ctx context.Context, documentID uint, tokenIdentifier string, version int64, records []model.ChatRecord) (bool, error) {
	payload, err := json.Marshal(records)
	if err != nil {
		return false, fmt.Errorf("marshal chat history cache failed: %w", err)
	}

	key := historyKey(documentID, tokenIdentifier)
	vKey := versionKey(documentID, tokenIdentifier)
	stored := false
	err = c.client.Watch(ctx, func(tx *redisv9.Tx) error {
		current, err := tx.Get(ctx, vKey).Int64()
		if err != nil && !errors.Is(err, redisv9.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		}); err != nil {
			return err
		}
		stored = true
		return nil
	}, vKey)
	if errors.Is(err, redisv9.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis set chat history failed: %w", err)
	}
	return stored, nil
}

// Invalidate bumps the version and drops the cached history in one MULTI.
func (c *ChatHistoryCache) Invalidate(ctx context.Context, documentID uint, tokenIdentifier string) error {
	vKey := versionKey(documentID, tokenIdentifier)
	if _, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Incr(ctx, vKey)
		pipe.Expire(ctx, vKey, versionTTL)
		pipe.Del(ctx, historyKey(documentID, tokenIdentifier))
		return nil
	}); err != nil {
		return fmt.Errorf("redis invalidate chat history failed: %w", err)
	}
	return nil
}

func historyKey(documentID uint, tokenIdentifier string) string {
	return fmt.Sprintf("docchat:chat:history:%d:%s", documentID, tokenIdentifier)
}

func versionKey(documentID uint, tokenIdentifier string) string {
	return fmt.Sprintf("docchat:chat:history:version:%d:%s", documentID, tokenIdentifier)
}
