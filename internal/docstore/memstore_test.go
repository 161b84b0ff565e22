package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Ready bool   `json:"ready"`
}

func TestMemStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	var missing testDoc
	assert.ErrorIs(t, s.Get(ctx, "docs/a", &missing), ErrNotFound)

	require.NoError(t, s.Set(ctx, "docs/a", testDoc{Name: "ada", Score: 3}))
	var got testDoc
	require.NoError(t, s.Get(ctx, "docs/a", &got))
	assert.Equal(t, testDoc{Name: "ada", Score: 3}, got)
}

func TestMemStoreUpdateMerges(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.Set(ctx, "docs/a", testDoc{Name: "ada", Score: 3}))

	require.NoError(t, s.Update(ctx, "docs/a", map[string]any{"ready": true}))

	var got testDoc
	require.NoError(t, s.Get(ctx, "docs/a", &got))
	assert.Equal(t, "ada", got.Name, "untouched fields survive a partial update")
	assert.Equal(t, 3, got.Score)
	assert.True(t, got.Ready)
}

func TestMemStoreUpdateCreates(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.Update(ctx, "docs/a", map[string]any{"name": "ada"}))

	var got testDoc
	require.NoError(t, s.Get(ctx, "docs/a", &got))
	assert.Equal(t, "ada", got.Name)
}

func TestMemStoreSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewMemStore()
	require.NoError(t, s.Set(ctx, "docs/a", testDoc{Name: "ada"}))

	ch, err := s.Subscribe(ctx, "docs/a")
	require.NoError(t, err)

	snapshot := receiveChange(t, ch)
	assert.Contains(t, string(snapshot.Doc), "ada")

	require.NoError(t, s.Update(ctx, "docs/a", map[string]any{"ready": true}))
	change := receiveChange(t, ch)
	assert.Contains(t, string(change.Doc), "ready")
	assert.Contains(t, string(change.Doc), "true")
}

func TestMemStoreSubscribeCancelClosesChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemStore()
	ch, err := s.Subscribe(ctx, "docs/a")
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel closes after cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMemStoreSubscribersAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a, err := s.Subscribe(subCtx, "docs/a")
	require.NoError(t, err)
	b, err := s.Subscribe(subCtx, "docs/a")
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "docs/a", testDoc{Name: "ada"}))
	receiveChange(t, a)
	receiveChange(t, b)
}

func receiveChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return c
	case <-time.After(time.Second):
		t.Fatal("no change received")
		return Change{}
	}
}
