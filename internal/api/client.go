package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"fastjob.dev/devtools/internal/ids"
	"fastjob.dev/devtools/internal/obs"
)

const (
	DefaultUserAgent = "BankFlowTester/1.0"
	RequestIDHeader  = "X-Request-ID"

	maxBodyBytes = 1 << 20
)

// Exchange is the raw outcome of one request, handed to the response hook
// before the body is decoded.
type Exchange struct {
	Method     string
	Path       string
	RequestID  string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Client is a JSON client for the fastjob HTTP API. It is not safe for
// concurrent use: the held token changes as a scenario progresses.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	onResponse func(Exchange)
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithHTTPClient replaces the underlying HTTP client. Its transport is
// still wrapped with request metrics.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets an overall per-request timeout. Zero keeps the client
// default (no timeout).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit paces outgoing requests. Zero or negative disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithResponseHook registers fn to observe every response.
func WithResponseHook(fn func(Exchange)) Option {
	return func(c *Client) { c.onResponse = fn }
}

// New creates a client for baseURL (e.g. http://localhost:8536).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	hc := *c.httpClient
	hc.Transport = obs.InstrumentTransport(hc.Transport)
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	c.httpClient = &hc
	return c
}

// Token returns the bearer token currently held.
func (c *Client) Token() string { return c.token }

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) { c.token = strings.TrimSpace(token) }

// Register creates an account. The returned response may or may not carry a jwt.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.post(ctx, "/api/v3/user/register", req, &out); err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	return &out, nil
}

// Login exchanges credentials for a jwt. A 2xx response without a jwt is
// reported as ErrMissingToken.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.post(ctx, "/api/v3/user/login", req, &out); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if out.JWT == "" {
		return nil, fmt.Errorf("client.Login: %w", ErrMissingToken)
	}
	return &out, nil
}

// GetMyUser returns the authenticated user's profile.
func (c *Client) GetMyUser(ctx context.Context) (*MyUserInfo, error) {
	var out MyUserInfo
	if err := c.get(ctx, "/api/v3/user", &out); err != nil {
		return nil, fmt.Errorf("client.GetMyUser: %w", err)
	}
	return &out, nil
}

// ListBanks returns the banks of the caller's region.
func (c *Client) ListBanks(ctx context.Context) ([]Bank, error) {
	var out ListBanksResponse
	if err := c.get(ctx, "/api/v1/banks", &out); err != nil {
		return nil, fmt.Errorf("client.ListBanks: %w", err)
	}
	if out.Banks == nil {
		out.Banks = []Bank{}
	}
	return out.Banks, nil
}

// CreateBankAccount registers a bank account for the caller. The body of a
// 2xx response is decoded best effort; status alone decides success.
func (c *Client) CreateBankAccount(ctx context.Context, req CreateBankAccountRequest) (*BankAccountResponse, error) {
	var out BankAccountResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/user/bank_account/create", req, &out, false); err != nil {
		return nil, fmt.Errorf("client.CreateBankAccount: %w", err)
	}
	return &out, nil
}

// ListBankAccounts returns the caller's bank accounts.
func (c *Client) ListBankAccounts(ctx context.Context) ([]BankAccount, error) {
	var out ListBankAccountsResponse
	if err := c.get(ctx, "/api/v1/user/bank_accounts", &out); err != nil {
		return nil, fmt.Errorf("client.ListBankAccounts: %w", err)
	}
	if out.BankAccounts == nil {
		out.BankAccounts = []BankAccount{}
	}
	return out.BankAccounts, nil
}

// GetWallet returns the caller's wallet balance.
func (c *Client) GetWallet(ctx context.Context) (*Wallet, error) {
	var out Wallet
	if err := c.get(ctx, "/api/v4/account/wallet", &out); err != nil {
		return nil, fmt.Errorf("client.GetWallet: %w", err)
	}
	return &out, nil
}

// Withdraw requests a withdrawal of amount (a decimal string).
func (c *Client) Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResponse, error) {
	var out WithdrawResponse
	if err := c.post(ctx, "/api/v4/account/wallet/withdraw", req, &out); err != nil {
		return nil, fmt.Errorf("client.Withdraw: %w", err)
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out, true)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out, true)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, out any, strictDecode bool) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := ids.Prefixed("req")
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Method: method, Path: path, Err: err}
		}
	}

	log := obs.Logger().With().Str("request_id", requestID).Str("method", method).Str("path", path).Logger()
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("request failed")
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(respBody) > maxBodyBytes {
		return &TransportError{Method: method, Path: path, Err: ErrResponseTooLarge}
	}
	ex := Exchange{
		Method:     method,
		Path:       path,
		RequestID:  requestID,
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Duration:   time.Since(start),
	}
	log.Debug().Int("status", ex.StatusCode).Dur("duration", ex.Duration).Msg("request complete")
	if c.onResponse != nil {
		c.onResponse(ex)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil && strictDecode {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
