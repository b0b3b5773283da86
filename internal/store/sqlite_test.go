package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/companion/internal/analyze"
	"github.com/rcliao/companion/internal/model"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newClockedStore returns a store whose clock only moves when advanced.
func newClockedStore(t *testing.T, start time.Time) (*SQLiteStore, *testClock) {
	t.Helper()
	s := newTestStore(t)
	c := &testClock{t: start}
	s.now = c.now
	return s, c
}

func TestCreateAndGetMemory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem, err := s.CreateMemory(ctx, CreateMemoryParams{
		UserID: "u1", Category: model.CategoryFact, Content: "works as a nurse", Importance: 8,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if mem.ID == "" {
		t.Error("expected non-empty ID")
	}

	got, err := s.GetMemory(ctx, mem.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "works as a nurse" || got.Importance != 8 || got.UserID != "u1" {
		t.Errorf("unexpected memory: %+v", got)
	}
	if got.ReferenceCount != 0 || got.LastReferencedAt != nil {
		t.Errorf("expected no references, got %+v", got)
	}
	if !got.CreatedAt.Equal(mem.CreatedAt) {
		t.Errorf("created_at round trip: %v != %v", got.CreatedAt, mem.CreatedAt)
	}
}

func TestCreateMemoryClampsImportance(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for in, want := range map[int]int{-5: 1, 0: 1, 1: 1, 7: 7, 10: 10, 42: 10} {
		mem, err := s.CreateMemory(ctx, CreateMemoryParams{UserID: "u", Category: model.CategoryEvent, Content: "x", Importance: in})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		got, _ := s.GetMemory(ctx, mem.ID)
		if got.Importance != want {
			t.Errorf("importance %d stored as %d, want %d", in, got.Importance, want)
		}
	}
}

func TestCreateMemoryRejectsUnknownCategory(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateMemory(context.Background(), CreateMemoryParams{UserID: "u", Category: "gossip", Content: "x", Importance: 5})
	if !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestExtractFromMessage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	candidates := analyze.Memories("I love hiking and I'm so excited", "", time.Now())
	created, err := s.ExtractFromMessage(ctx, ExtractParams{UserID: "u1", MessageID: "msg-1", Candidates: candidates})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(created) != len(candidates) {
		t.Fatalf("expected %d memories, got %d", len(candidates), len(created))
	}
	for _, m := range created {
		if m.ExtractedFrom != "msg-1" {
			t.Errorf("expected extracted_from msg-1, got %q", m.ExtractedFrom)
		}
	}

	list, _ := s.ListMemories(ctx, ListMemoriesParams{UserID: "u1"})
	if len(list) != len(candidates) {
		t.Errorf("expected %d stored, got %d", len(candidates), len(list))
	}
}

func TestExtractFromMessageIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.ExtractFromMessage(ctx, ExtractParams{UserID: "u1", Candidates: []analyze.Candidate{
		{Category: model.CategoryFact, Content: "ok", Importance: 8},
		{Category: "bogus", Content: "bad", Importance: 8},
	}})
	if !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	list, _ := s.ListMemories(ctx, ListMemoriesParams{UserID: "u1"})
	if len(list) != 0 {
		t.Errorf("expected nothing stored, got %d", len(list))
	}
}

func TestListMemories(t *testing.T) {
	ctx := context.Background()
	s, clock := newClockedStore(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	s.CreateMemory(ctx, CreateMemoryParams{UserID: "u1", Category: model.CategoryFact, Content: "a", Importance: 5})
	clock.advance(time.Minute)
	s.CreateMemory(ctx, CreateMemoryParams{UserID: "u1", Category: model.CategoryPreference, Content: "b", Importance: 5})
	clock.advance(time.Minute)
	s.CreateMemory(ctx, CreateMemoryParams{UserID: "u1", Category: model.CategoryFact, Content: "c", Importance: 5})
	s.CreateMemory(ctx, CreateMemoryParams{UserID: "u2", Category: model.CategoryFact, Content: "other", Importance: 5})

	all, _ := s.ListMemories(ctx, ListMemoriesParams{UserID: "u1"})
	if len(all) != 3 {
		t.Fatalf("expected 3, got %d", len(all))
	}
	if all[0].Content != "c" || all[2].Content != "a" {
		t.Errorf("expected newest first, got %q..%q", all[0].Content, all[2].Content)
	}

	facts, _ := s.ListMemories(ctx, ListMemoriesParams{UserID: "u1", Category: model.CategoryFact})
	if len(facts) != 2 {
		t.Errorf("expected 2 facts, got %d", len(facts))
	}

	limited, _ := s.ListMemories(ctx, ListMemoriesParams{UserID: "u1", Limit: 1})
	if len(limited) != 1 || limited[0].Content != "c" {
		t.Errorf("unexpected limited list: %+v", limited)
	}
}

func TestImportantMemories(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, imp := range []int{2, 5, 9, 4, 7} {
		s.CreateMemory(ctx, CreateMemoryParams{UserID: "u1", Category: model.CategoryFact, Content: "x", Importance: imp})
	}

	got, err := s.ImportantMemories(ctx, ImportantParams{UserID: "u1"})
	if err != nil {
		t.Fatalf("important: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 at importance >= 5, got %d", len(got))
	}
	if got[0].Importance != 9 || got[1].Importance != 7 || got[2].Importance != 5 {
		t.Errorf("unexpected order: %d %d %d", got[0].Importance, got[1].Importance, got[2].Importance)
	}

	top, _ := s.ImportantMemories(ctx, ImportantParams{UserID: "u1", MinImportance: 3, Limit: 2})
	if len(top) != 2 || top[0].Importance != 9 {
		t.Errorf("unexpected limited result: %+v", top)
	}
}

func TestUpdateImportance(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem, _ := s.CreateMemory(ctx, CreateMemoryParams{UserID: "u1", Category: model.CategoryPromise, Content: "dinner friday", Importance: 5})
	got, err := s.UpdateImportance(ctx, mem.ID, 99)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Importance != 10 {
		t.Errorf("expected clamped 10, got %d", got.Importance)
	}

	if _, err := s.UpdateImportance(ctx, "missing", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordReference(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s, clock := newClockedStore(t, start)

	mem, _ := s.CreateMemory(ctx, CreateMemoryParams{UserID: "u1", Category: model.CategoryFact, Content: "x", Importance: 5})
	clock.advance(time.Hour)
	s.RecordReference(ctx, mem.ID)
	got, err := s.RecordReference(ctx, mem.ID)
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	if got.ReferenceCount != 2 {
		t.Errorf("expected 2 references, got %d", got.ReferenceCount)
	}
	if got.LastReferencedAt == nil || !got.LastReferencedAt.Equal(start.Add(time.Hour)) {
		t.Errorf("unexpected last referenced: %v", got.LastReferencedAt)
	}

	if _, err := s.RecordReference(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMemory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem, _ := s.CreateMemory(ctx, CreateMemoryParams{UserID: "u1", Category: model.CategoryFact, Content: "x", Importance: 5})
	if err := s.DeleteMemory(ctx, mem.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetMemory(ctx, mem.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteMemory(ctx, mem.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	mem, _ := s.CreateMemory(ctx, CreateMemoryParams{UserID: "u1", Category: model.CategoryFact, Content: "persisted", Importance: 6})
	s.Close()

	s, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s.Close()
	got, err := s.GetMemory(ctx, mem.ID)
	if err != nil || got.Content != "persisted" {
		t.Errorf("expected persisted memory, got %+v, %v", got, err)
	}
}
