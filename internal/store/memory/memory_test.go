package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("Get() = %q, %v", got, err)
	}

	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Remove, want 0", s.Len())
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Errorf("Remove() of absent key error = %v", err)
	}
}
