package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mem "receiptkit/adapters/memory"
	"receiptkit/engine"
	"receiptkit/rulesdoc"
)

const targetReceiptJSON = `{
  "retailer": "Target",
  "purchaseDate": "2022-01-01",
  "purchaseTime": "13:01",
  "items": [
    {"shortDescription": "Mountain Dew 12PK", "price": "6.49"},
    {"shortDescription": "Emils Cheese Pizza", "price": "12.25"}
  ],
  "total": "18.74"
}`

func newTestService(t *testing.T) *engine.Service {
	t.Helper()
	eng, err := engine.NewRuleEngine(rulesdoc.Default())
	if err != nil {
		t.Fatalf("NewRuleEngine: %v", err)
	}
	svc := engine.NewService(mem.New(), engine.NewEventBus(engine.DispatchSync), eng)
	t.Cleanup(svc.Close)
	return svc
}

func processSample(t *testing.T, handler http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/receipts/process", strings.NewReader(targetReceiptJSON))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("process: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["id"] == "" {
		t.Fatalf("process: no id in %s", rec.Body)
	}
	return resp["id"]
}

func TestProcessAndPoints(t *testing.T) {
	handler := NewMux(newTestService(t), nil, Options{PathPrefix: "/api"})

	id := processSample(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/api/receipts/"+id+"/points", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("points: expected 200, got %d", rec.Code)
	}
	var resp map[string]float64
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["points"] != 20 {
		t.Fatalf("points = %v, want 20", resp["points"])
	}
}

func TestProcessInvalidReceipt(t *testing.T) {
	handler := NewMux(newTestService(t), nil, Options{PathPrefix: "/api"})

	bad := strings.Replace(targetReceiptJSON, `"18.74"`, `"18.7"`, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/receipts/process", strings.NewReader(bad))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/receipts/process", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad JSON, got %d", rec.Code)
	}
}

func TestPointsUnknownReceipt(t *testing.T) {
	handler := NewMux(newTestService(t), nil, Options{PathPrefix: "/api"})

	req := httptest.NewRequest(http.MethodGet, "/api/receipts/no-such-id/points", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetRulesReturnsYAML(t *testing.T) {
	handler := NewMux(newTestService(t), nil, Options{PathPrefix: "/api"})

	req := httptest.NewRequest(http.MethodGet, "/api/config/rules", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-yaml" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "item_description_length") {
		t.Fatalf("rules document missing default rule:\n%s", rec.Body)
	}
}

func TestPutRulesReplacesActiveSet(t *testing.T) {
	svc := newTestService(t)
	handler := NewMux(svc, nil, Options{PathPrefix: "/api"})

	doc := `rules:
  - name: odd_day_only
    input_check:
      type: date_check
      target_field: purchaseDate
      condition: parity
      parity: odd
    points_calculation:
      extra_points: 6
`
	req := httptest.NewRequest(http.MethodPut, "/api/config/rules", strings.NewReader(doc))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if svc.RuleCount() != 1 {
		t.Fatalf("active rules = %d, want 1", svc.RuleCount())
	}

	// the replaced document persists to the backing store
	store, ok := svc.RulesStore()
	if !ok {
		t.Fatal("memory store should persist rule documents")
	}
	saved, err := store.LoadRules(req.Context())
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if string(saved) != doc {
		t.Fatalf("persisted document differs:\n%s", saved)
	}

	// new receipts score under the replaced set
	id := processSample(t, handler)
	pReq := httptest.NewRequest(http.MethodGet, "/api/receipts/"+id+"/points", nil)
	pRec := httptest.NewRecorder()
	handler.ServeHTTP(pRec, pReq)
	var resp map[string]float64
	_ = json.Unmarshal(pRec.Body.Bytes(), &resp)
	if resp["points"] != 6 {
		t.Fatalf("points = %v under replaced set, want 6", resp["points"])
	}
}

func TestPutRulesRejectsBadDocument(t *testing.T) {
	svc := newTestService(t)
	handler := NewMux(svc, nil, Options{PathPrefix: "/api"})

	doc := `rules:
  - name: mystery
    input_check:
      type: bogus_check
      target_field: total
      condition: matches
    points_calculation:
      extra_points: 5
`
	req := httptest.NewRequest(http.MethodPut, "/api/config/rules", strings.NewReader(doc))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp struct {
		Code    string   `json:"code"`
		Details []string `json:"details"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Code != "invalid_rules" || len(resp.Details) == 0 {
		t.Fatalf("error payload = %s", rec.Body)
	}
	if svc.RuleCount() != 7 {
		t.Fatalf("active rules = %d after rejected replace, want 7", svc.RuleCount())
	}
}

func TestHealthz(t *testing.T) {
	handler := NewMux(newTestService(t), nil, Options{PathPrefix: "/api"})

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "healthy" {
		t.Fatalf("status = %v", resp["status"])
	}
}

func TestAPIKeyAuth(t *testing.T) {
	handler := NewMux(newTestService(t), nil, Options{
		PathPrefix:      "/api",
		APIKeys:         []string{"secret"},
		AllowCORSOrigin: "*",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/config/rules", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/config/rules", nil)
	req2.Header.Set("Authorization", "Bearer secret")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}
}

func TestRateLimit(t *testing.T) {
	handler := NewMux(newTestService(t), nil, Options{
		PathPrefix:       "/api",
		APIKeys:          []string{"k"},
		RateLimitEnabled: true,
		RateLimitRPM:     1,
		RateLimitBurst:   1,
	})

	req1 := httptest.NewRequest(http.MethodGet, "/api/config/rules", nil)
	req1.Header.Set("X-API-Key", "k")
	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected 200 first request, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/config/rules", nil)
	req2.Header.Set("X-API-Key", "k")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec2.Code)
	}
}
