package scenario

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"fastjob.dev/devtools/internal/api"
	"fastjob.dev/devtools/internal/stubapi"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.paths = append(r.paths, req.Method+" "+req.URL.Path)
		r.mu.Unlock()
		next.ServeHTTP(w, req)
	})
}

func (r *recorder) count(method, path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.paths {
		if p == method+" "+path {
			n++
		}
	}
	return n
}

func newStub(t *testing.T, opts stubapi.Options) (*stubapi.Server, *httptest.Server, *recorder) {
	t.Helper()
	if opts.Secret == "" {
		opts.Secret = "scenario-secret"
	}
	stub, err := stubapi.New(opts)
	if err != nil {
		t.Fatalf("stubapi.New: %v", err)
	}
	rec := &recorder{}
	srv := httptest.NewServer(rec.wrap(stub.Handler()))
	t.Cleanup(srv.Close)
	return stub, srv, rec
}

func newFlow(baseURL string, out *bytes.Buffer) *BankFlow {
	report := NewReporter(out)
	client := api.New(baseURL, api.WithResponseHook(report.Exchange))
	return NewBankFlow(client, report)
}

func testCreds(username string) Credentials {
	return Credentials{
		Username: username,
		Password: "password123",
		Email:    username + "@example.com",
	}
}

func TestBankFlowSucceeds(t *testing.T) {
	_, srv, rec := newStub(t, stubapi.Options{})
	var out bytes.Buffer

	if err := newFlow(srv.URL, &out).Run(context.Background(), testCreds("testuser123")); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}
	if rec.count(http.MethodPost, "/api/v3/user/login") != 0 {
		t.Fatal("login should be skipped when register returns a token")
	}
	for _, want := range []string{
		"STEP 1: User Registration",
		"User country detected as: TH",
		"Found 3 banks available",
		"Bank account created successfully",
		"testuser123 Test Account - Bangkok Bank - ⏳ Pending Verification ⭐ Default",
		"All steps completed successfully",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestBankFlowLogsInWhenRegisterOmitsToken(t *testing.T) {
	_, srv, rec := newStub(t, stubapi.Options{RequireLogin: true})
	var out bytes.Buffer

	if err := newFlow(srv.URL, &out).Run(context.Background(), testCreds("needslogin")); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}
	if rec.count(http.MethodPost, "/api/v3/user/login") != 1 {
		t.Fatal("expected exactly one login request")
	}
	if !strings.Contains(out.String(), "manual login required") {
		t.Fatalf("expected manual login notice:\n%s", out.String())
	}
}

func TestBankFlowStopsWithoutBanks(t *testing.T) {
	_, srv, rec := newStub(t, stubapi.Options{Banks: []api.Bank{}})
	var out bytes.Buffer

	err := newFlow(srv.URL, &out).Run(context.Background(), testCreds("nobanks"))
	if !errors.Is(err, ErrNoBanks) {
		t.Fatalf("expected ErrNoBanks, got %v", err)
	}
	if step, ok := FailedStep(err); !ok || step != StepListBanks {
		t.Fatalf("expected failure at list banks, got %v", step)
	}
	if rec.count(http.MethodPost, "/api/v1/user/bank_account/create") != 0 {
		t.Fatal("no bank account should be created")
	}
	if !strings.Contains(out.String(), "Test failed at list banks step") {
		t.Fatalf("expected failure line:\n%s", out.String())
	}
}

func TestBankFlowRegisterFailure(t *testing.T) {
	stub, srv, rec := newStub(t, stubapi.Options{})
	if _, _, err := stub.SeedUser(context.Background(), "taken", "taken@example.com", "password123", zero()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var out bytes.Buffer

	err := newFlow(srv.URL, &out).Run(context.Background(), testCreds("taken"))
	if step, ok := FailedStep(err); !ok || step != StepRegister {
		t.Fatalf("expected failure at register, got %v", err)
	}
	if !api.IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("expected wrapped 400, got %v", err)
	}
	if rec.count(http.MethodGet, "/api/v3/user") != 0 {
		t.Fatal("profile must not be fetched after a failed registration")
	}
	if !strings.Contains(out.String(), "Status: 400") {
		t.Fatalf("expected raw status in output:\n%s", out.String())
	}
}

func TestBankFlowCreateFailureLeavesAccountsUnchanged(t *testing.T) {
	stub, srv, rec := newStub(t, stubapi.Options{})
	var out bytes.Buffer

	flow := newFlow(srv.URL, &out)
	flow.VerificationImage = "not-an-image"
	err := flow.Run(context.Background(), testCreds("badimage"))
	if step, ok := FailedStep(err); !ok || step != StepCreateBankAccount {
		t.Fatalf("expected failure at create bank account, got %v", err)
	}
	if rec.count(http.MethodGet, "/api/v1/user/bank_accounts") != 0 {
		t.Fatal("accounts must not be listed after a failed create")
	}
	u, err := stub.Store().FindLogin("badimage")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if n := len(stub.Store().BankAccounts(u.ID)); n != 0 {
		t.Fatalf("expected no accounts, got %d", n)
	}
}

func TestBankFlowTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var out bytes.Buffer
	err := newFlow(url, &out).Run(context.Background(), testCreds("offline"))
	if !api.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if step, _ := FailedStep(err); step != StepRegister {
		t.Fatalf("expected failure at register, got %v", step)
	}
}

// scriptedAPI answers the bank flow endpoints with fixed bodies for the
// bank and account listings.
func scriptedAPI(banks, accounts string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v3/user/register", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jwt":"t"}`))
	})
	mux.HandleFunc("GET /api/v3/user", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"local_user_view":{"local_user":{"country":"TH"}}}`))
	})
	mux.HandleFunc("GET /api/v1/banks", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(banks))
	})
	mux.HandleFunc("POST /api/v1/user/bank_account/create", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /api/v1/user/bank_accounts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(accounts))
	})
	return mux
}

func TestBankFlowRejectsBankWithoutID(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.wrap(scriptedAPI(`{"banks":[{"name":"x"}]}`, `{"bank_accounts":[]}`)))
	defer srv.Close()
	var out bytes.Buffer

	err := newFlow(srv.URL, &out).Run(context.Background(), testCreds("badbank"))
	if !errors.Is(err, ErrInvalidBank) {
		t.Fatalf("expected ErrInvalidBank, got %v", err)
	}
	if step, ok := FailedStep(err); !ok || step != StepCreateBankAccount {
		t.Fatalf("expected failure at create bank account, got %v", step)
	}
	if rec.count(http.MethodPost, "/api/v1/user/bank_account/create") != 0 {
		t.Fatal("no create request expected without a bank id")
	}
	if !strings.Contains(out.String(), "No valid bank ID found") {
		t.Fatalf("expected invalid bank line:\n%s", out.String())
	}
}

func TestBankFlowFailsWhenNoAccountsListed(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.wrap(scriptedAPI(`{"banks":[{"id":4,"name":"Bangkok Bank","country":"TH"}]}`, `{"bank_accounts":[]}`)))
	defer srv.Close()
	var out bytes.Buffer

	err := newFlow(srv.URL, &out).Run(context.Background(), testCreds("noaccounts"))
	if !errors.Is(err, ErrNoBankAccounts) {
		t.Fatalf("expected ErrNoBankAccounts, got %v", err)
	}
	if step, ok := FailedStep(err); !ok || step != StepListBankAccounts {
		t.Fatalf("expected failure at list bank accounts, got %v", step)
	}
	if rec.count(http.MethodPost, "/api/v1/user/bank_account/create") != 1 {
		t.Fatal("expected one create request")
	}
	if !strings.Contains(out.String(), "Found 0 bank accounts") {
		t.Fatalf("expected empty listing line:\n%s", out.String())
	}
}
