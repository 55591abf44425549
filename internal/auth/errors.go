package auth

import "errors"

var (
	// ErrInvalidToken indicates the token failed verification.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrNotLoggedIn indicates the token is not recorded for the user.
	ErrNotLoggedIn = errors.New("auth: not logged in")
)
