package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

const subscriberBuffer = 16

// MemStore keeps documents in memory. It backs the relay server and
// the unit tests; a slow subscriber drops changes rather than blocking
// writers.
type MemStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
	subs map[string]map[chan Change]struct{}
}

// NewMemStore builds an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		docs: map[string]map[string]any{},
		subs: map[string]map[chan Change]struct{}{},
	}
}

// Get unmarshals the document at path into out.
func (s *MemStore) Get(_ context.Context, path string, out any) error {
	s.mu.RLock()
	doc, ok := s.docs[path]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document %q: %w", path, err)
	}
	return nil
}

// Set replaces the document at path.
func (s *MemStore) Set(_ context.Context, path string, doc any) error {
	fields, err := toFields(doc)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	s.mu.Lock()
	s.docs[path] = fields
	s.notifyLocked(path, fields)
	s.mu.Unlock()
	return nil
}

// Update merges partial into the document at path, creating it when
// absent. Only top-level fields are merged.
func (s *MemStore) Update(_ context.Context, path string, partial map[string]any) error {
	fields, err := toFields(partial)
	if err != nil {
		return fmt.Errorf("update %q: %w", path, err)
	}
	s.mu.Lock()
	doc, ok := s.docs[path]
	if !ok {
		doc = map[string]any{}
		s.docs[path] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	s.notifyLocked(path, doc)
	s.mu.Unlock()
	return nil
}

// Subscribe returns a channel that receives the current document (when
// one exists) and every subsequent change until ctx is cancelled.
func (s *MemStore) Subscribe(ctx context.Context, path string) (<-chan Change, error) {
	ch := make(chan Change, subscriberBuffer)
	s.mu.Lock()
	if s.subs[path] == nil {
		s.subs[path] = map[chan Change]struct{}{}
	}
	s.subs[path][ch] = struct{}{}
	if doc, ok := s.docs[path]; ok {
		if raw, err := json.Marshal(doc); err == nil {
			ch <- Change{Path: path, Doc: raw}
		}
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs[path], ch)
		s.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (s *MemStore) notifyLocked(path string, doc map[string]any) {
	subs := s.subs[path]
	if len(subs) == 0 {
		return
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return
	}
	for ch := range subs {
		select {
		case ch <- Change{Path: path, Doc: raw}:
		default:
		}
	}
}

// toFields round-trips doc through JSON so stored state never aliases
// caller memory.
func toFields(doc any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
