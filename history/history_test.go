package history

import (
	"fmt"
	"testing"
	"time"

	"go.kwisper.app/kwisper/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AppendAndRecent(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		err := s.Append(Entry{
			ID:        fmt.Sprintf("id-%d", i),
			Text:      fmt.Sprintf("transcript %d", i),
			Duration:  time.Duration(i+1) * time.Second,
			Source:    types.SourceKeyboard,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append() = %v", err)
		}
	}

	got, err := s.Recent(3)
	if err != nil {
		t.Fatalf("Recent() = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent(3) returned %d entries", len(got))
	}
	// Newest first.
	for i, want := range []string{"id-4", "id-3", "id-2"} {
		if got[i].ID != want {
			t.Errorf("entry[%d].ID = %q, want %q", i, got[i].ID, want)
		}
	}
	if got[0].Text != "transcript 4" || got[0].Source != types.SourceKeyboard {
		t.Errorf("entry[0] = %+v", got[0])
	}
}

func TestStore_RecentMoreThanStored(t *testing.T) {
	s := openTestStore(t)

	if err := s.Append(Entry{ID: "only", Text: "one"}); err != nil {
		t.Fatalf("Append() = %v", err)
	}

	got, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent() = %v", err)
	}
	if len(got) != 1 || got[0].ID != "only" {
		t.Fatalf("Recent(10) = %+v, want the single entry", got)
	}
}

func TestStore_RecentEmpty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Recent(5)
	if err != nil {
		t.Fatalf("Recent() = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Recent() on empty store = %+v", got)
	}
}

func TestStore_Clear(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.Append(Entry{ID: fmt.Sprintf("id-%d", i), Text: "x"}); err != nil {
			t.Fatalf("Append() = %v", err)
		}
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() = %v", err)
	}

	got, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent() = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Recent() after Clear = %+v", got)
	}
}

func TestStore_AppendFillsCreatedAt(t *testing.T) {
	s := openTestStore(t)

	if err := s.Append(Entry{ID: "a", Text: "x"}); err != nil {
		t.Fatalf("Append() = %v", err)
	}
	got, err := s.Recent(1)
	if err != nil {
		t.Fatalf("Recent() = %v", err)
	}
	if len(got) != 1 || got[0].CreatedAt.IsZero() {
		t.Fatalf("CreatedAt not filled: %+v", got)
	}
}
