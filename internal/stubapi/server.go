// Package stubapi is an in-memory stand-in for the slice of the fastjob API
// the developer tools talk to.
package stubapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fastjob.dev/devtools/internal/api"
	"fastjob.dev/devtools/internal/audit"
	"fastjob.dev/devtools/internal/auth"
	"fastjob.dev/devtools/internal/obs"
)

const (
	DefaultCountry = "TH"
	maxBodyBytes   = 1 << 20
)

// TokenRegistry records issued login tokens and answers whether a token is
// still live. auth.MemoryStore and pg.Store both satisfy it.
type TokenRegistry interface {
	auth.TokenStore
	auth.TokenValidator
}

// Options configure a Server.
type Options struct {
	Secret string
	// Country assigned to users registering without one.
	DefaultCountry string
	Banks          []api.Bank
	InitialBalance decimal.Decimal
	// RequireLogin makes registration omit the jwt so clients must log in.
	RequireLogin bool
	// Tokens defaults to an auth.MemoryStore.
	Tokens TokenRegistry
	// Ready reports backend readiness on /readyz.
	Ready func(ctx context.Context) error
}

// Server serves the stub endpoints.
type Server struct {
	mux    *http.ServeMux
	store  *Store
	issuer *auth.Issuer
	tokens TokenRegistry
	opts   Options
}

func New(opts Options) (*Server, error) {
	if opts.DefaultCountry == "" {
		opts.DefaultCountry = DefaultCountry
	}
	if opts.Banks == nil {
		opts.Banks = DefaultBanks
	}
	if opts.Tokens == nil {
		opts.Tokens = auth.NewMemoryStore()
	}
	issuer, err := auth.NewIssuer(opts.Secret, opts.Tokens)
	if err != nil {
		return nil, err
	}

	s := &Server{
		mux:    http.NewServeMux(),
		store:  NewStore(opts.Banks),
		issuer: issuer,
		tokens: opts.Tokens,
		opts:   opts,
	}

	s.mux.HandleFunc("GET /healthz", s.healthz)
	s.mux.HandleFunc("GET /readyz", s.readyz)
	s.mux.Handle("GET /metrics", obs.Handler())

	s.mux.HandleFunc("POST /api/v3/user/register", s.register)
	s.mux.HandleFunc("POST /api/v3/user/login", s.login)
	s.mux.Handle("GET /api/v3/user", s.requireAuth(s.myUser))
	s.mux.Handle("GET /api/v1/banks", s.requireAuth(s.listBanks))
	s.mux.Handle("POST /api/v1/user/bank_account/create", s.requireAuth(s.createBankAccount))
	s.mux.Handle("GET /api/v1/user/bank_accounts", s.requireAuth(s.listBankAccounts))
	s.mux.Handle("GET /api/v4/account/wallet", s.requireAuth(s.wallet))
	s.mux.Handle("POST /api/v4/account/wallet/withdraw", s.requireAuth(s.withdraw))

	return s, nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return RequestID(Logging(obs.InstrumentHandler(MaxBodyBytes(s.mux, maxBodyBytes))))
}

// Store exposes the backing store so tests and operators can adjust state.
func (s *Server) Store() *Store { return s.store }

// SeedUser creates a user directly and returns a live token for it.
func (s *Server) SeedUser(ctx context.Context, username, email, password string, balance decimal.Decimal) (User, string, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, "", err
	}
	u, err := s.store.CreateUser(User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Country:      s.opts.DefaultCountry,
	}, balance)
	if err != nil {
		return User{}, "", err
	}
	token, err := s.issue(ctx, u)
	if err != nil {
		return User{}, "", err
	}
	return u, token, nil
}

func (s *Server) issue(ctx context.Context, u User) (string, error) {
	return s.issuer.Issue(ctx, auth.IssueRequest{UserID: u.ID, Email: u.Email})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "fastjob-stubapi",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		if err := s.opts.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	username := strings.TrimSpace(req.Username)
	switch {
	case req.Honeypot != "":
		writeError(w, http.StatusBadRequest, "honeypot_failed")
		return
	case username == "":
		writeError(w, http.StatusBadRequest, "invalid_username")
		return
	case strings.TrimSpace(req.Email) == "":
		writeError(w, http.StatusBadRequest, "email_required")
		return
	case req.Password != req.PasswordVerify:
		writeError(w, http.StatusBadRequest, "passwords_dont_match")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordLength) {
			writeError(w, http.StatusBadRequest, "invalid_password")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	country := strings.ToUpper(strings.TrimSpace(req.Country))
	if country == "" {
		country = s.opts.DefaultCountry
	}
	u, err := s.store.CreateUser(User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Country:      country,
	}, s.opts.InitialBalance)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.register", map[string]any{
		"user_id": u.ID,
		"country": u.Country,
	})

	if s.opts.RequireLogin {
		writeJSON(w, http.StatusOK, api.LoginResponse{RegistrationCreated: true})
		return
	}
	token, err := s.issue(r.Context(), u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, api.LoginResponse{JWT: token})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.store.FindLogin(req.UsernameOrEmail)
	if err != nil || auth.VerifyPassword(u.PasswordHash, req.Password) != nil {
		writeError(w, http.StatusBadRequest, ErrIncorrectLogin.Error())
		return
	}
	token, err := s.issue(r.Context(), u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, api.LoginResponse{JWT: token})
}

func (s *Server) myUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, api.MyUserInfo{
		LocalUserView: api.LocalUserView{
			LocalUser: api.LocalUser{ID: u.ID, Email: u.Email, Country: u.Country},
		},
	})
}

func (s *Server) listBanks(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, api.ListBanksResponse{Banks: s.store.Banks(u.Country)})
}

func (s *Server) createBankAccount(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req api.CreateBankAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	req.AccountName = strings.TrimSpace(req.AccountName)
	switch {
	case !isDigits(req.AccountNumber):
		writeError(w, http.StatusBadRequest, "invalid_account_number")
		return
	case req.AccountName == "":
		writeError(w, http.StatusBadRequest, "invalid_account_name")
		return
	case !isImageDataURI(req.VerificationImage):
		writeError(w, http.StatusBadRequest, "invalid_verification_image")
		return
	}

	acc, err := s.store.CreateBankAccount(u.ID, req)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "bank_account.create", map[string]any{
		"bank_account_id": acc.ID,
		"bank_id":         acc.BankID,
	})
	writeJSON(w, http.StatusOK, api.BankAccountResponse{BankAccount: acc})
}

func (s *Server) listBankAccounts(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, api.ListBankAccountsResponse{BankAccounts: s.store.BankAccounts(u.ID)})
}

type walletResponse struct {
	UserID           int64           `json:"user_id"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

func (s *Server) wallet(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	bal, err := s.store.Balance(u.ID)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{UserID: u.ID, AvailableBalance: bal})
}

type withdrawResponse struct {
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	TransactionID   string          `json:"transaction_id"`
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	u, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req api.WithdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidAmount.Error())
		return
	}
	wd, err := s.store.Withdraw(u.ID, amount)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "wallet.withdraw", map[string]any{
		"transaction_id": wd.TransactionID,
		"amount":         wd.Amount.String(),
	})
	writeJSON(w, http.StatusOK, withdrawResponse{
		PreviousBalance: wd.PreviousBalance,
		NewBalance:      wd.NewBalance,
		TransactionID:   wd.TransactionID,
	})
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (User, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not_logged_in")
		return User{}, false
	}
	u, err := s.store.User(userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not_logged_in")
		return User{}, false
	}
	return u, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isImageDataURI(s string) bool {
	return strings.HasPrefix(s, "data:image/") && strings.Contains(s, ";base64,")
}

// --- helpers ---

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserExists), errors.Is(err, ErrBankRegion),
		errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAccountExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrBankNotFound), errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
