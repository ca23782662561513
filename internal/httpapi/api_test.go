package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"stridelog/internal/account"
	"stridelog/internal/audit"
	"stridelog/internal/crypto"
	"stridelog/internal/obs"
	"stridelog/internal/token"
)

type testEnv struct {
	api     *API
	handler http.Handler
	metrics *obs.Collector
	events  *audit.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokens, err := token.New([]byte("0123456789abcdef0123456789abcdef"), token.NewMemoryRevocationStore())
	if err != nil {
		t.Fatalf("token.New: %v", err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	engine, err := crypto.NewEngine(key)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	metrics := obs.NewCollector(prometheus.NewRegistry())
	events := audit.NewMemoryStore(0)
	api := New(Options{
		Tokens:   tokens,
		Accounts: account.NewService(account.NewMemoryStore(), engine),
		Audit:    audit.NewLogger(events, audit.WithCollector(metrics)),
		Metrics:  metrics,
		Version:  "test",
	})
	return &testEnv{api: api, handler: api.Handler(), metrics: metrics, events: events}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email, password string) tokenResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return resp
}

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	reg := env.register(t, "runner@example.com", "tempo-pass-1")
	if reg.AccessToken == "" || reg.RefreshToken == "" {
		t.Fatal("register must return a token pair")
	}

	rec := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "runner@example.com",
		"password": "tempo-pass-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "runner@example.com",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d, want 401", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":    "runner@example.com",
		"password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("short password: status %d, want 400", rec.Code)
	}

	env.register(t, "runner@example.com", "tempo-pass-1")
	rec = env.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":    "runner@example.com",
		"password": "tempo-pass-2",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate email: status %d, want 409", rec.Code)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "runner@example.com", "tempo-pass-1")

	rec := env.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{
		"refresh_token": reg.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status %d, body %s", rec.Code, rec.Body.String())
	}
	var fresh tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &fresh); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if fresh.RefreshToken == reg.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The presented refresh token is now dead.
	rec = env.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{
		"refresh_token": reg.RefreshToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: status %d, want 401", rec.Code)
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "runner@example.com", "tempo-pass-1")

	rec := env.do(t, http.MethodPost, "/v1/auth/logout", reg.AccessToken, map[string]any{
		"refresh_token": reg.RefreshToken,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/v1/audit/events", reg.AccessToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked access token accepted: status %d", rec.Code)
	}
}

func TestAuthRejectionsAreUniform(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "runner@example.com", "tempo-pass-1")

	cases := map[string]string{
		"missing":       "",
		"garbage":       "not-a-token",
		"refresh token": reg.RefreshToken,
	}
	var bodies []string
	for name, bearer := range cases {
		rec := env.do(t, http.MethodGet, "/v1/audit/events", bearer, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status %d, want 401", name, rec.Code)
		}
		bodies = append(bodies, rec.Body.String())
	}
	for _, b := range bodies[1:] {
		if b != bodies[0] {
			t.Fatalf("rejection bodies differ: %q vs %q", bodies[0], b)
		}
	}
}

func TestAuditEventsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "runner@example.com", "tempo-pass-1")

	// The register call itself produced audit events.
	rec := env.do(t, http.MethodGet, "/v1/audit/events?action=auth.register", reg.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("events: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp auditEventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode events response: %v", err)
	}
	if resp.Count == 0 {
		t.Fatal("expected at least one auth.register event")
	}
	for _, e := range resp.Events {
		if e.Action != "auth.register" {
			t.Fatalf("filter leaked action %q", e.Action)
		}
	}

	rec = env.do(t, http.MethodGet, "/v1/audit/events?outcome=sideways", reg.AccessToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid outcome filter: status %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/v1/audit/events?start=yesterday", reg.AccessToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid start filter: status %d, want 400", rec.Code)
	}
}

func TestAuditStatisticsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "runner@example.com", "tempo-pass-1")

	rec := env.do(t, http.MethodGet, "/v1/audit/statistics", reg.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("statistics: status %d, body %s", rec.Code, rec.Body.String())
	}
	var stats audit.Statistics
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode statistics: %v", err)
	}
	if stats.Window != audit.WindowDay {
		t.Fatalf("default window = %q, want %q", stats.Window, audit.WindowDay)
	}
	if stats.Total == 0 {
		t.Fatal("expected events within the window")
	}

	rec = env.do(t, http.MethodGet, "/v1/audit/statistics?timeframe=fortnight", reg.AccessToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid timeframe: status %d, want 400", rec.Code)
	}
}

func TestSecurityMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "runner@example.com", "tempo-pass-1")

	// Provoke a counted failure.
	env.do(t, http.MethodGet, "/v1/audit/events", "not-a-token", nil)

	rec := env.do(t, http.MethodGet, "/v1/security/metrics", reg.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status %d, body %s", rec.Code, rec.Body.String())
	}
	var counts map[string]uint64
	if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if counts["auth_malformed_token"] == 0 {
		t.Fatalf("auth_malformed_token not counted: %v", counts)
	}
	if counts["register_success"] == 0 {
		t.Fatalf("register_success not counted: %v", counts)
	}

	rec = env.do(t, http.MethodPost, "/v1/security/metrics/reset", reg.AccessToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset: status %d", rec.Code)
	}
	if len(env.metrics.Metrics()) != 0 {
		t.Fatalf("counters survived reset: %v", env.metrics.Metrics())
	}
}

func TestHealthAndHeaders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: status %d", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing generated X-Request-ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "corr-123")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "corr-123" {
		t.Fatalf("X-Request-ID = %q, want echo of caller value", got)
	}
}

func TestAuditEventsCarryCorrelationID(t *testing.T) {
	env := newTestEnv(t)

	var body bytes.Buffer
	_ = json.NewEncoder(&body).Encode(map[string]any{
		"email":    "runner@example.com",
		"password": "tempo-pass-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", &body)
	req.Header.Set("X-Request-ID", "corr-xyz")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d", rec.Code)
	}

	events, err := env.events.Query(req.Context(), audit.Filter{Action: audit.ActionRegister})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("no register events recorded")
	}
	if events[0].CorrelationID != "corr-xyz" {
		t.Fatalf("correlation id = %q, want corr-xyz", events[0].CorrelationID)
	}
}
