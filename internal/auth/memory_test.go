package auth

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Create(ctx, LoginToken{}); err == nil {
		t.Fatal("expected error for empty token")
	}
	if err := s.Create(ctx, LoginToken{Token: "a", UserID: 8}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, LoginToken{Token: "b", UserID: 8}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Validate(ctx, 8, "a"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := s.Validate(ctx, 9, "a"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn for other user, got %v", err)
	}
	if got := s.List(ctx, 8); len(got) != 2 || got[0].Published.IsZero() {
		t.Fatalf("unexpected tokens %+v", got)
	}

	s.Invalidate(ctx, "a")
	if err := s.Validate(ctx, 8, "a"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn after invalidate, got %v", err)
	}
}
