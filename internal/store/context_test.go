package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/companion/internal/model"
)

func TestContextBasic(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	s, clock := newClockedStore(t, start)

	s.CreateMemory(ctx, CreateMemoryParams{UserID: "u1", Category: model.CategoryFact, Content: "lives in Denver", Importance: 3})
	clock.advance(10 * day)
	s.CreateMemory(ctx, CreateMemoryParams{UserID: "u1", Category: model.CategoryPromise, Content: "movie night friday", Importance: 9})
	s.CreateMemory(ctx, CreateMemoryParams{UserID: "u2", Category: model.CategoryFact, Content: "someone else", Importance: 10})

	result, err := s.Context(ctx, "u1", 15)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if result.TotalMemories != 2 || result.UsedMemories != 2 {
		t.Errorf("unexpected counts: total=%d used=%d", result.TotalMemories, result.UsedMemories)
	}
	if result.Selected[0].Content != "movie night friday" {
		t.Errorf("expected importance-9 memory first, got %q", result.Selected[0].Content)
	}
	if !strings.HasPrefix(result.Text, "Important things you remember about the user:\n\nPromises Made:\n- movie night friday\n") {
		t.Errorf("unexpected context text:\n%s", result.Text)
	}
	if strings.Contains(result.Text, "someone else") {
		t.Error("context leaked another user's memory")
	}
}

func TestContextLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 20; i++ {
		s.CreateMemory(ctx, CreateMemoryParams{UserID: "u1", Category: model.CategoryEvent, Content: "e", Importance: 5})
	}

	result, err := s.Context(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if result.UsedMemories != 15 || result.TotalMemories != 20 {
		t.Errorf("expected 15 of 20, got %d of %d", result.UsedMemories, result.TotalMemories)
	}

	small, _ := s.Context(ctx, "u1", 3)
	if small.UsedMemories != 3 {
		t.Errorf("expected 3, got %d", small.UsedMemories)
	}
}

func TestContextEmpty(t *testing.T) {
	s := newTestStore(t)
	result, err := s.Context(context.Background(), "nobody", 15)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if result.Text != "Important things you remember about the user:\n\n" || result.UsedMemories != 0 {
		t.Errorf("unexpected empty context: %+v", result)
	}
}
