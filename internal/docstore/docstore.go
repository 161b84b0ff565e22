// Package docstore is a small document store with live subscriptions.
// Documents are JSON objects addressed by path; Update merges fields
// instead of replacing the document, and Subscribe delivers the
// current snapshot followed by every later change.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned by Get for a path with no document.
var ErrNotFound = errors.New("document not found")

// Change is one subscription event: the full document after a write.
type Change struct {
	Path string
	Doc  json.RawMessage
}

// Store is the document-store contract shared by the in-memory and
// relay-backed implementations.
type Store interface {
	Get(ctx context.Context, path string, out any) error
	Set(ctx context.Context, path string, doc any) error
	Update(ctx context.Context, path string, partial map[string]any) error
	Subscribe(ctx context.Context, path string) (<-chan Change, error)
}

// Wire operations understood by the relay.
const (
	OpGet       = "get"
	OpSet       = "set"
	OpUpdate    = "update"
	OpSubscribe = "subscribe"
	OpResult    = "result"
	OpChange    = "change"
)

// Message is the relay wire envelope for both directions. Requests
// carry ID+Op+Path (+Doc for writes); replies echo the ID with
// Op=result; subscription pushes carry Op=change with Path+Doc.
type Message struct {
	ID    string          `json:"id,omitempty"`
	Op    string          `json:"op,omitempty"`
	Path  string          `json:"path,omitempty"`
	Doc   json.RawMessage `json:"doc,omitempty"`
	Error string          `json:"error,omitempty"`
}
