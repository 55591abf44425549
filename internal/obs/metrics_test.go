package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func scrape(t *testing.T) string {
	t.Helper()
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rr.Body.String()
}

func TestInstrumentTransportCountsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := &http.Client{Transport: InstrumentTransport(nil)}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if out := scrape(t); !strings.Contains(out, `fastjob_client_requests_total{code="202",method="get"} 1`) {
		t.Fatalf("expected one counted request:\n%s", out)
	}
}

func TestWriteMetrics(t *testing.T) {
	InitBuildInfo("test", "0.0.1")
	path := filepath.Join(t.TempDir(), "devtools.prom")
	if err := WriteMetrics(path); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), `fastjob_devtools_build_info{tool="test",version="0.0.1"} 1`) {
		t.Fatalf("build info missing from output:\n%s", data)
	}
	if err := WriteMetrics(""); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
}

func TestSetOutputEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Logger().Info().Str("step", "register").Msg("step_complete")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["message"] != "step_complete" || entry["step"] != "register" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Fatalf("expected timestamp field")
	}
}

func TestInstrumentHandlerAndScrape(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))
	if out := scrape(t); !strings.Contains(out, `fastjob_stub_requests_total{code="201",method="post"} 1`) {
		t.Fatalf("expected one served request:\n%s", out)
	}
}
