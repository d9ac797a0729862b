package probe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vigilhq/vigil/internal/domain"
)

func testMonitor(url string) domain.Monitor {
	return domain.Monitor{
		ID:             "M1",
		Name:           "example",
		URL:            url,
		Method:         http.MethodGet,
		ExpectedStatus: 200,
		Timeout:        2 * time.Second,
	}
}

func TestHTTPChecker_ExpectedStatusIsSuccess(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer s.Close()

	out := NewHTTPChecker().Check(context.Background(), testMonitor(s.URL))
	if out.Kind != domain.OutcomeSuccess {
		t.Fatalf("want success, got %+v", out)
	}
	if out.HTTPStatus == nil || *out.HTTPStatus != 200 {
		t.Fatalf("want status 200, got %v", out.HTTPStatus)
	}
	if out.LatencyMS == nil || *out.LatencyMS < 0 {
		t.Fatalf("latency should be recorded, got %v", out.LatencyMS)
	}
	if out.MonitorID != "M1" {
		t.Fatalf("want monitor id M1, got %q", out.MonitorID)
	}
}

func TestHTTPChecker_StatusMismatchIsFailure(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer s.Close()

	out := NewHTTPChecker().Check(context.Background(), testMonitor(s.URL))
	if out.Kind != domain.OutcomeFailure {
		t.Fatalf("want failure, got %+v", out)
	}
	if out.HTTPStatus == nil || *out.HTTPStatus != 500 {
		t.Fatalf("want status 500, got %v", out.HTTPStatus)
	}
	if out.Message != "expected 200, got 500" {
		t.Fatalf("unexpected message %q", out.Message)
	}
}

func TestHTTPChecker_CustomExpectedStatus(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(204)
	}))
	defer s.Close()

	m := testMonitor(s.URL)
	m.ExpectedStatus = 204
	out := NewHTTPChecker().Check(context.Background(), m)
	if out.Kind != domain.OutcomeSuccess {
		t.Fatalf("expected 204 should be success, got %+v", out)
	}
}

func TestHTTPChecker_TimeoutClassification(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	m := testMonitor(s.URL)
	m.Timeout = 50 * time.Millisecond
	out := NewHTTPChecker().Check(context.Background(), m)
	if out.Kind != domain.OutcomeTimeout {
		t.Fatalf("want timeout, got %+v", out)
	}
	if out.HTTPStatus != nil {
		t.Fatalf("timeout must not carry a status code, got %v", *out.HTTPStatus)
	}
	if !strings.Contains(out.Message, "50ms") {
		t.Fatalf("message should mention the timeout duration, got %q", out.Message)
	}
	if out.LatencyMS == nil {
		t.Fatal("latency should still be recorded on timeout")
	}
}

func TestHTTPChecker_ConnectionRefusedIsError(t *testing.T) {
	// Grab a port nothing listens on.
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := s.URL
	s.Close()

	out := NewHTTPChecker().Check(context.Background(), testMonitor(url))
	if out.Kind != domain.OutcomeError {
		t.Fatalf("want error, got %+v", out)
	}
	if out.HTTPStatus != nil {
		t.Fatalf("error must not carry a status code, got %v", *out.HTTPStatus)
	}
	if out.Message == "" {
		t.Fatal("want non-empty error message")
	}
}

func TestHTTPChecker_HeadersOverrideUserAgent(t *testing.T) {
	var gotUA, gotCustom string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Check")
		w.WriteHeader(200)
	}))
	defer s.Close()

	m := testMonitor(s.URL)
	m.Headers = map[string]string{
		"User-Agent": "custom-agent",
		"X-Check":    "yes",
	}
	out := NewHTTPChecker().Check(context.Background(), m)
	if out.Kind != domain.OutcomeSuccess {
		t.Fatalf("want success, got %+v", out)
	}
	if gotUA != "custom-agent" {
		t.Fatalf("configured header should win over default UA, got %q", gotUA)
	}
	if gotCustom != "yes" {
		t.Fatalf("custom header not sent, got %q", gotCustom)
	}
}

func TestHTTPChecker_DefaultUserAgent(t *testing.T) {
	var gotUA string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(200)
	}))
	defer s.Close()

	NewHTTPChecker().Check(context.Background(), testMonitor(s.URL))
	if gotUA != "Vigil/1.0 (Cron Monitor)" {
		t.Fatalf("want identifying UA, got %q", gotUA)
	}
}

func TestHTTPChecker_BodyOnlyForWriteMethods(t *testing.T) {
	var gotBody string
	var gotMethod string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotMethod = r.Method
		w.WriteHeader(200)
	}))
	defer s.Close()

	m := testMonitor(s.URL)
	m.Method = http.MethodPost
	m.Body = `{"ping":true}`
	NewHTTPChecker().Check(context.Background(), m)
	if gotMethod != http.MethodPost || gotBody != `{"ping":true}` {
		t.Fatalf("POST body not sent: method=%q body=%q", gotMethod, gotBody)
	}

	m.Method = http.MethodGet
	NewHTTPChecker().Check(context.Background(), m)
	if gotBody != "" {
		t.Fatalf("GET must not carry a body, got %q", gotBody)
	}
}
