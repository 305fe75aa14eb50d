package kvstore

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is the in-process Store used in dev mode and by tests. No
// expiry: ephemerality comes from the client-side janitor, and dev processes
// are short-lived anyway.
type MemoryStore struct {
	mu       sync.RWMutex
	channels map[string]*memChannel
}

type memChannel struct {
	messages map[string]json.RawMessage
	online   map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{channels: make(map[string]*memChannel)}
}

func (s *MemoryStore) channel(key string) *memChannel {
	ch, ok := s.channels[key]
	if !ok {
		ch = &memChannel{
			messages: make(map[string]json.RawMessage),
			online:   make(map[string]json.RawMessage),
		}
		s.channels[key] = ch
	}
	return ch
}

func (s *MemoryStore) GetMessages(ctx context.Context, channelKey string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage)
	if ch, ok := s.channels[channelKey]; ok {
		for id, doc := range ch.messages {
			out[id] = doc
		}
	}
	return out, nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, channelKey, messageID string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ch, ok := s.channels[channelKey]; ok {
		if doc, ok := ch.messages[messageID]; ok {
			return doc, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) MergeMessages(ctx context.Context, channelKey string, docs map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.channel(channelKey)
	for id, doc := range docs {
		ch.messages[id] = doc
	}
	return nil
}

func (s *MemoryStore) ReplaceMessages(ctx context.Context, channelKey string, docs map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.channel(channelKey)
	ch.messages = make(map[string]json.RawMessage, len(docs))
	for id, doc := range docs {
		ch.messages[id] = doc
	}
	return nil
}

func (s *MemoryStore) GetOnline(ctx context.Context, channelKey string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage)
	if ch, ok := s.channels[channelKey]; ok {
		for userKey, doc := range ch.online {
			out[userKey] = doc
		}
	}
	return out, nil
}

func (s *MemoryStore) SetOnline(ctx context.Context, channelKey, userKey string, doc json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.channel(channelKey).online[userKey] = doc
	return nil
}

func (s *MemoryStore) DeleteOnline(ctx context.Context, channelKey, userKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.channels[channelKey]; ok {
		delete(ch.online, userKey)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
