package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tick-core/internal/engine"
	"tick-core/internal/monitor"
	"tick-core/internal/order"
	"tick-core/internal/position"
	"tick-core/internal/quote"
	"tick-core/internal/reconcile"
	"tick-core/internal/strategy"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	tracker := quote.NewTracker(0.01, nil)
	ledger := position.NewLedger()
	sig := &strategy.Engine{
		Symbol:    "SNAP",
		Quantity:  100,
		MaxShares: 100,
		DeltaTick: 0.01,
		Tracker:   tracker,
		Ledger:    ledger,
		Exec:      order.NewExecutor(nil, nil, nil, nil, 0),
	}
	core := &engine.Core{
		Symbol:     "SNAP",
		Signal:     sig,
		Reconciler: &reconcile.Reconciler{Symbol: "SNAP", Ledger: ledger},
		Metrics:    monitor.New(),
		Meta:       engine.Meta{DryRun: true, Venue: "paper", Version: "test"},
	}
	return NewServer(core, nil, "operator-key", "test-secret")
}

func do(s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func issueTestToken(t *testing.T, s *Server) string {
	t.Helper()
	w := do(s, http.MethodPost, "/api/auth/token", `{"api_key":"operator-key"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("token issue status=%d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("token response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	return resp.Token
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
}

func TestMetricsIsPublic(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "tick_total_shares") {
		t.Fatal("metrics output missing engine gauges")
	}
}

func TestTokenExchange(t *testing.T) {
	s := newTestServer(t)

	w := do(s, http.MethodPost, "/api/auth/token", `{"api_key":"wrong"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key status=%d", w.Code)
	}

	w = do(s, http.MethodPost, "/api/auth/token", `{}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing key status=%d", w.Code)
	}

	issueTestToken(t, s)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w := do(s, http.MethodGet, "/api/v1/status", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status=%d", w.Code)
	}
	w = do(s, http.MethodGet, "/api/v1/status", "", "garbage")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status=%d", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := issueTestToken(t, s)

	w := do(s, http.MethodGet, "/api/v1/status", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var st engine.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("status body: %v", err)
	}
	if st.Symbol != "SNAP" || !st.DryRun || st.Venue != "paper" {
		t.Fatalf("status: %+v", st)
	}
}

func TestPauseResume(t *testing.T) {
	s := newTestServer(t)
	token := issueTestToken(t, s)

	if w := do(s, http.MethodPost, "/api/v1/pause", "", token); w.Code != http.StatusOK {
		t.Fatalf("pause status=%d", w.Code)
	}
	if !s.Core.Signal.Paused() {
		t.Fatal("engine not paused")
	}

	w := do(s, http.MethodGet, "/api/v1/status", "", token)
	var st engine.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("status body: %v", err)
	}
	if !st.Paused {
		t.Fatal("status does not report paused")
	}

	if w := do(s, http.MethodPost, "/api/v1/resume", "", token); w.Code != http.StatusOK {
		t.Fatalf("resume status=%d", w.Code)
	}
	if s.Core.Signal.Paused() {
		t.Fatal("engine still paused after resume")
	}
}

func TestOrdersWithoutJournal(t *testing.T) {
	s := newTestServer(t)
	token := issueTestToken(t, s)

	w := do(s, http.MethodGet, "/api/v1/orders", "", token)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("orders without journal status=%d", w.Code)
	}
}

func TestTokenEndpointDisabledWithoutKey(t *testing.T) {
	s := newTestServer(t)
	s.APIKey = ""

	w := do(s, http.MethodPost, "/api/auth/token", `{"api_key":"anything"}`, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled token endpoint status=%d", w.Code)
	}
}
