package identity

import (
	"context"
	"path/filepath"
	"testing"

	"keyduel/internal/store"
)

func newProvider(t *testing.T) *LocalProvider {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "keyduel.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if cerr := st.Close(); cerr != nil {
			t.Errorf("close store: %v", cerr)
		}
	})
	return NewLocalProvider(st)
}

func TestCurrentCreatesStableAnonymousUser(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	first, err := p.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated user id")
	}
	if !first.Anonymous {
		t.Fatal("expected anonymous user before naming")
	}

	second, err := p.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("id changed between calls: %q vs %q", first.ID, second.ID)
	}
}

func TestSetDisplayName(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	if err := p.SetDisplayName(ctx, "Ada"); err != nil {
		t.Fatalf("SetDisplayName: %v", err)
	}
	user, err := p.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if user.Anonymous || user.DisplayName != "Ada" {
		t.Fatalf("user = %+v, want named Ada", user)
	}

	if err := p.SetDisplayName(ctx, ""); err != nil {
		t.Fatalf("SetDisplayName: %v", err)
	}
	user, err = p.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if !user.Anonymous {
		t.Fatal("expected anonymous after clearing name")
	}
}
