// Package kvstore implements the document store behind chatd. It speaks a
// Firebase-RTDB-style REST dialect: plain HTTP verbs on hierarchical
// "*.json" paths, where a missing document reads as JSON null. Clients
// written against a hosted RTDB instance work against chatd unchanged.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned for reads of documents that do not exist.
var ErrNotFound = errors.New("document not found")

// Store holds per-channel state: the message collection and the online-user
// collection. Individual documents are opaque JSON; sub-document addressing
// (reactions inside a message) is the handler's concern.
type Store interface {
	// GetMessages returns the full message collection of a channel, or an
	// empty map when the channel has none.
	GetMessages(ctx context.Context, channelKey string) (map[string]json.RawMessage, error)

	// GetMessage returns one message document. ErrNotFound when absent.
	GetMessage(ctx context.Context, channelKey, messageID string) (json.RawMessage, error)

	// MergeMessages upserts the given documents, preserving siblings
	// (PATCH semantics).
	MergeMessages(ctx context.Context, channelKey string, docs map[string]json.RawMessage) error

	// ReplaceMessages swaps the whole collection (PUT semantics; the
	// janitor prunes with this).
	ReplaceMessages(ctx context.Context, channelKey string, docs map[string]json.RawMessage) error

	// GetOnline returns the online-user collection of a channel.
	GetOnline(ctx context.Context, channelKey string) (map[string]json.RawMessage, error)

	// SetOnline upserts one presence entry.
	SetOnline(ctx context.Context, channelKey, userKey string, doc json.RawMessage) error

	// DeleteOnline removes one presence entry. Absent entries are not an
	// error.
	DeleteOnline(ctx context.Context, channelKey, userKey string) error

	Close() error
}
