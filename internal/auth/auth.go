package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"fastjob.dev/devtools/internal/obs"
)

const (
	DefaultIssuer = "fastjob_dev"
	DefaultTTL    = 12 * time.Hour
	DefaultRole   = "User"
	DefaultLang   = "en"

	// Recorded alongside every issued token, mirroring a local curl login.
	SessionIP        = "127.0.0.1"
	SessionUserAgent = "curl/8.7.1"
)

var errMissingSecret = errors.New("auth: signing secret is required")

// Claims is the session claim set understood by the fastjob authentication
// middleware.
type Claims struct {
	Session string  `json:"session"`
	Role    string  `json:"role"`
	Email   *string `json:"email"`
	Lang    string  `json:"lang"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("auth: subject %q is not a user id: %w", c.Subject, err)
	}
	return id, nil
}

// IssueRequest names the identity a token is issued for. Empty Role and Lang
// take the defaults; empty Email is encoded as null.
type IssueRequest struct {
	UserID int64
	Role   string
	Email  string
	Lang   string
}

// Issuer signs session tokens with HS256 and records them in a TokenStore.
type Issuer struct {
	secret     []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
	newSession func() string
	store      TokenStore
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithIssuer overrides the iss claim.
func WithIssuer(iss string) Option {
	return func(i *Issuer) {
		if iss = strings.TrimSpace(iss); iss != "" {
			i.issuer = iss
		}
	}
}

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// WithSessionSource overrides how session identifiers are generated.
func WithSessionSource(fn func() string) Option {
	return func(i *Issuer) {
		if fn != nil {
			i.newSession = fn
		}
	}
}

// NewIssuer constructs an Issuer. A nil store disables persistence.
func NewIssuer(secret string, store TokenStore, opts ...Option) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errMissingSecret
	}
	i := &Issuer{
		secret:     []byte(secret),
		issuer:     DefaultIssuer,
		ttl:        DefaultTTL,
		now:        time.Now,
		newSession: NewSessionID,
		store:      store,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// NewSessionID returns a random UUID with the separators stripped.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Sign builds and signs the claim set without touching the store.
func (i *Issuer) Sign(req IssueRequest) (string, *Claims, error) {
	// Whole seconds so that exp - iat is exactly the TTL once encoded.
	now := i.now().UTC().Truncate(time.Second)

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = DefaultRole
	}
	lang := strings.TrimSpace(req.Lang)
	if lang == "" {
		lang = DefaultLang
	}
	var email *string
	if e := strings.TrimSpace(req.Email); e != "" {
		email = &e
	}

	claims := &Claims{
		Session: i.newSession(),
		Role:    role,
		Email:   email,
		Lang:    lang,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(req.UserID, 10),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, claims, nil
}

// Issue signs a token and records it in the store. Persistence is best
// effort: a store failure is logged and the signed token is still returned.
func (i *Issuer) Issue(ctx context.Context, req IssueRequest) (string, error) {
	token, _, err := i.Sign(req)
	if err != nil {
		return "", err
	}
	if i.store == nil {
		return token, nil
	}
	rec := LoginToken{
		Token:     token,
		UserID:    req.UserID,
		IP:        SessionIP,
		UserAgent: SessionUserAgent,
	}
	if err := i.store.Create(ctx, rec); err != nil {
		obs.Logger().Error().Err(err).Int64("user_id", req.UserID).Msg("insert login token")
	}
	return token, nil
}

// Parse verifies the signature, issuer and expiry of token.
func (i *Issuer) Parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
