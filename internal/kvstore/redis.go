package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each channel in two hashes: chat:{key}:messages (field =
// message ID) and chat:{key}:online (field = user key). Every write refreshes
// a rolling expiry on the hash, so channels nobody touches anymore are
// garbage-collected by Redis itself; live message expiry stays a client
// concern (the TTL janitor).
type RedisStore struct {
	client     *redis.Client
	channelTTL time.Duration
}

// NewRedisStore connects and verifies the connection.
func NewRedisStore(addr, password string, channelTTL time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: rdb, channelTTL: channelTTL}, nil
}

func messagesKey(channelKey string) string { return "chat:" + channelKey + ":messages" }
func onlineKey(channelKey string) string   { return "chat:" + channelKey + ":online" }

func (s *RedisStore) GetMessages(ctx context.Context, channelKey string) (map[string]json.RawMessage, error) {
	return s.getHash(ctx, messagesKey(channelKey))
}

func (s *RedisStore) GetMessage(ctx context.Context, channelKey, messageID string) (json.RawMessage, error) {
	val, err := s.client.HGet(ctx, messagesKey(channelKey), messageID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(val), nil
}

func (s *RedisStore) MergeMessages(ctx context.Context, channelKey string, docs map[string]json.RawMessage) error {
	if len(docs) == 0 {
		return nil
	}
	key := messagesKey(channelKey)
	fields := make(map[string]any, len(docs))
	for id, doc := range docs {
		fields[id] = string(doc)
	}
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, s.channelTTL).Err()
}

func (s *RedisStore) ReplaceMessages(ctx context.Context, channelKey string, docs map[string]json.RawMessage) error {
	key := messagesKey(channelKey)

	// DEL + HSET in a pipeline; the gap is harmless for this data.
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(docs) > 0 {
		fields := make(map[string]any, len(docs))
		for id, doc := range docs {
			fields[id] = string(doc)
		}
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, s.channelTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetOnline(ctx context.Context, channelKey string) (map[string]json.RawMessage, error) {
	return s.getHash(ctx, onlineKey(channelKey))
}

func (s *RedisStore) SetOnline(ctx context.Context, channelKey, userKey string, doc json.RawMessage) error {
	key := onlineKey(channelKey)
	if err := s.client.HSet(ctx, key, userKey, string(doc)).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, s.channelTTL).Err()
}

func (s *RedisStore) DeleteOnline(ctx context.Context, channelKey, userKey string) error {
	return s.client.HDel(ctx, onlineKey(channelKey), userKey).Err()
}

func (s *RedisStore) getHash(ctx context.Context, key string) (map[string]json.RawMessage, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(fields))
	for field, val := range fields {
		out[field] = json.RawMessage(val)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
