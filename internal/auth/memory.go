package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

var _ TokenStore = (*MemoryStore)(nil)
var _ TokenValidator = (*MemoryStore)(nil)

// MemoryStore keeps login tokens in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]LoginToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]LoginToken)}
}

func (s *MemoryStore) Create(ctx context.Context, tok LoginToken) error {
	if tok.Token == "" {
		return errors.New("auth: empty token")
	}
	if tok.Published.IsZero() {
		tok.Published = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.Token] = tok
	return nil
}

func (s *MemoryStore) Validate(ctx context.Context, userID int64, token string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[token]
	if !ok || tok.UserID != userID {
		return ErrNotLoggedIn
	}
	return nil
}

// List returns the tokens recorded for userID.
func (s *MemoryStore) List(ctx context.Context, userID int64) []LoginToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []LoginToken
	for _, tok := range s.tokens {
		if tok.UserID == userID {
			out = append(out, tok)
		}
	}
	return out
}

// Invalidate removes a single token.
func (s *MemoryStore) Invalidate(ctx context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}
