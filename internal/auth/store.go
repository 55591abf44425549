package auth

import (
	"context"
	"time"
)

// LoginToken is a row of the login_token table.
type LoginToken struct {
	Token     string
	UserID    int64
	IP        string
	UserAgent string
	Published time.Time
}

// TokenStore records issued tokens so the fastjob API accepts them.
type TokenStore interface {
	Create(ctx context.Context, tok LoginToken) error
}

// TokenValidator reports whether a token is recorded for a user.
type TokenValidator interface {
	Validate(ctx context.Context, userID int64, token string) error
}
