package model

import (
	"testing"
	"time"
)

func TestClampScale(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-50, 1},
		{-1, 1},
		{0, 1},
		{1, 1},
		{5, 5},
		{10, 10},
		{11, 10},
		{1000, 10},
	}
	for _, tt := range tests {
		if got := ClampScale(tt.in); got != tt.want {
			t.Errorf("ClampScale(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCategoryLabelsCoverValidCategories(t *testing.T) {
	for c := range ValidCategories {
		if CategoryLabels[c] == "" {
			t.Errorf("missing label for category %q", c)
		}
	}
}

func TestRelationshipDays(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := PersonaProfile{RelationshipStart: start}

	if got := p.RelationshipDays(start.Add(36 * time.Hour)); got != 1 {
		t.Errorf("expected 1 day, got %d", got)
	}
	if got := p.RelationshipDays(start.Add(-time.Hour)); got != 0 {
		t.Errorf("expected 0 days before start, got %d", got)
	}
	if got := (&PersonaProfile{}).RelationshipDays(start); got != 0 {
		t.Errorf("expected 0 days for zero start, got %d", got)
	}
}

func TestDefaultPersona(t *testing.T) {
	now := time.Now()
	p := DefaultPersona("u1", now)
	if p.Name != "Jia" || p.VoiceStyle != VoiceSweet {
		t.Errorf("unexpected defaults: %+v", p)
	}
	if p.Traits.Supportiveness != 90 {
		t.Errorf("expected supportiveness 90, got %d", p.Traits.Supportiveness)
	}
	if !p.RelationshipStart.Equal(now) {
		t.Error("relationship should start now")
	}
}
