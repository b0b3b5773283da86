package store

import (
	"context"
	"testing"
	"time"

	"github.com/rcliao/companion/internal/model"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, clock := newClockedStore(t, time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))

	m, _ := src.CreateMemory(ctx, CreateMemoryParams{UserID: "u1", Category: model.CategoryFact, Content: "I live in Denver", Importance: 8, ExtractedFrom: "msg-1"})
	clock.advance(time.Hour)
	src.RecordReference(ctx, m.ID)
	src.RecordMood(ctx, RecordMoodParams{UserID: "u1", Mood: "happy", Intensity: 8, DetectedFrom: "msg-1"})
	src.EnsurePersona(ctx, "u1")
	src.UpdatePersona(ctx, UpdatePersonaParams{UserID: "u1", Name: strPtr("Mei")})
	src.CreateMemory(ctx, CreateMemoryParams{UserID: "u2", Category: model.CategoryEvent, Content: "exam today", Importance: 7})

	all, err := src.ExportAll(ctx, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(all.Memories) != 2 || len(all.Moods) != 1 || len(all.Personas) != 2 {
		t.Fatalf("unexpected export sizes: %d memories, %d moods, %d personas",
			len(all.Memories), len(all.Moods), len(all.Personas))
	}

	one, _ := src.ExportAll(ctx, "u2")
	if len(one.Memories) != 1 || len(one.Personas) != 0 {
		t.Errorf("user filter not applied: %+v", one)
	}

	dst := newTestStore(t)
	n, err := dst.Import(ctx, all)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 rows imported, got %d", n)
	}

	got, err := dst.GetMemory(ctx, m.ID)
	if err != nil {
		t.Fatalf("get imported: %v", err)
	}
	if got.ReferenceCount != 1 || got.ExtractedFrom != "msg-1" || !got.CreatedAt.Equal(m.CreatedAt) {
		t.Errorf("imported memory lost fields: %+v", got)
	}
	p, _ := dst.GetPersona(ctx, "u1")
	if p.Name != "Mei" || p.Version != 2 {
		t.Errorf("expected latest persona version, got %+v", p)
	}

	// Importing again skips everything.
	n, err = dst.Import(ctx, all)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 on re-import, got %d", n)
	}
}

func TestImportRejectsUnknownCategory(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Import(context.Background(), &Export{Memories: []model.Memory{
		{ID: "x", UserID: "u1", Category: "nope", Content: "c", Importance: 5, CreatedAt: time.Now()},
	}})
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
}
