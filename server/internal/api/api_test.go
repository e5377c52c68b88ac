package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/processdash/processdash/server/internal/alerts"
	"github.com/processdash/processdash/server/internal/api"
	"github.com/processdash/processdash/server/internal/config"
	"github.com/processdash/processdash/server/internal/metrics"
	"github.com/processdash/processdash/server/internal/records"
)

// --- test helpers -----------------------------------------------------------

type stubSource struct {
	set   records.Set
	err   error
	calls int
}

func (s *stubSource) Load(context.Context) (records.Set, error) {
	s.calls++
	return s.set, s.err
}

func rec(ts string, temp float64) records.Record {
	return records.NewRecord(
		[]string{"timestamp", "Temperature", "Status"},
		[]records.Value{records.Text(ts), records.Number(temp), records.Text("ok")},
	)
}

// sample is the file-order set used by most tests: the newest row is not last.
func sample() *stubSource {
	return &stubSource{set: records.Set{
		rec("2024-01-01T00:00:00Z", 150),
		rec("2024-01-03T00:00:00Z", 170),
		rec("2024-01-02T00:00:00Z", 160),
	}}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodGet, path)
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

func message(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rr, &body)
	return body["message"]
}

func temperatures(t *testing.T, rr *httptest.ResponseRecorder) []float64 {
	t.Helper()
	var rows []map[string]interface{}
	decode(t, rr, &rows)
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["Temperature"].(float64))
	}
	return out
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- / ----------------------------------------------------------------------

func TestRoot_Liveness(t *testing.T) {
	rr := get(t, api.New(sample(), api.Options{}), "/")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q, want text/plain", ct)
	}
	if got := rr.Body.String(); got != "Chemical Process Dashboard API is running!" {
		t.Errorf("body: got %q", got)
	}
}

func TestRoot_DoesNotLoad(t *testing.T) {
	src := sample()
	get(t, api.New(src, api.Options{}), "/")
	if src.calls != 0 {
		t.Errorf("loads: got %d, want 0", src.calls)
	}
}

func TestUnknownPath_NotFound(t *testing.T) {
	rr := get(t, api.New(sample(), api.Options{}), "/api/nope")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rr.Code)
	}
	if msg := message(t, rr); msg != "not found" {
		t.Errorf("message: got %q", msg)
	}
}

// --- /api/data --------------------------------------------------------------

func TestAllData_FileOrder(t *testing.T) {
	rr := get(t, api.New(sample(), api.Options{}), "/api/data")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	if got := temperatures(t, rr); !equal(got, []float64{150, 170, 160}) {
		t.Errorf("temperatures: got %v, want [150 170 160]", got)
	}
}

func TestAllData_KeepsColumnsAndTypes(t *testing.T) {
	rr := get(t, api.New(sample(), api.Options{}), "/api/data")

	body := strings.TrimSpace(rr.Body.String())
	want := `{"timestamp":"2024-01-01T00:00:00Z","Temperature":150,"Status":"ok"}`
	if !strings.HasPrefix(body, "["+want) {
		t.Errorf("body: got %s, want prefix [%s", body, want)
	}
}

func TestAllData_EmptySet(t *testing.T) {
	rr := get(t, api.New(&stubSource{}, api.Options{}), "/api/data")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("body: got %s, want []", got)
	}
}

func TestAllData_LoadError(t *testing.T) {
	src := &stubSource{err: &records.SourceReadError{Path: "/secret/process.csv", Err: errors.New("boom")}}
	rr := get(t, api.New(src, api.Options{}), "/api/data")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "secret") || strings.Contains(body, "boom") {
		t.Errorf("body leaks the cause: %s", body)
	}
	if msg := message(t, rr); msg != "Error retrieving process data" {
		t.Errorf("message: got %q", msg)
	}
}

func TestAllData_MethodNotAllowed(t *testing.T) {
	rr := do(t, api.New(sample(), api.Options{}), http.MethodPost, "/api/data")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status: got %d, want 405", rr.Code)
	}
	if msg := message(t, rr); msg != "method not allowed" {
		t.Errorf("message: got %q", msg)
	}
}

// --- /api/data/latest/{count} -----------------------------------------------

func TestLatest_OldestToNewest(t *testing.T) {
	h := api.New(sample(), api.Options{})

	cases := []struct {
		path string
		want []float64
	}{
		{"/api/data/latest/1", []float64{170}},
		{"/api/data/latest/2", []float64{160, 170}},
		{"/api/data/latest/3", []float64{150, 160, 170}},
		{"/api/data/latest/103", []float64{150, 160, 170}},
	}
	for _, tc := range cases {
		rr := get(t, h, tc.path)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status %d, want 200", tc.path, rr.Code)
		}
		if got := temperatures(t, rr); !equal(got, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestLatest_InvalidCount(t *testing.T) {
	src := sample()
	h := api.New(src, api.Options{})

	for _, count := range []string{"0", "-1", "abc", "2.5", "+3", "1e2", "%203", "99999999999999999999999", ""} {
		rr := get(t, h, "/api/data/latest/"+count)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("count %q: status %d, want 400", count, rr.Code)
			continue
		}
		if msg := message(t, rr); msg != "Invalid count parameter. Must be a positive integer." {
			t.Errorf("count %q: message %q", count, msg)
		}
	}
	if src.calls != 0 {
		t.Errorf("loads on invalid counts: got %d, want 0", src.calls)
	}
}

func TestLatest_LoadError(t *testing.T) {
	src := &stubSource{err: errors.New("disk gone")}
	rr := get(t, api.New(src, api.Options{}), "/api/data/latest/5")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	if msg := message(t, rr); msg != "Error retrieving latest process data" {
		t.Errorf("message: got %q", msg)
	}
}

func TestLatest_MethodNotAllowed(t *testing.T) {
	rr := do(t, api.New(sample(), api.Options{}), http.MethodDelete, "/api/data/latest/2")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/alerts ------------------------------------------------------------

func TestAlerts_NilEngineReturnsEmptyArray(t *testing.T) {
	rr := get(t, api.New(sample(), api.Options{}), "/api/alerts")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("body: got %s, want []", got)
	}
}

func TestAlerts_ListsFiring(t *testing.T) {
	eng := alerts.New(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "hot", Condition: "Temperature > 165", Severity: "critical"},
	}})
	eng.Evaluate(rec("2024-01-03T00:00:00Z", 170))

	rr := get(t, api.New(sample(), api.Options{Alerts: eng}), "/api/alerts")

	var got []map[string]interface{}
	decode(t, rr, &got)
	if len(got) != 1 {
		t.Fatalf("alerts: got %d, want 1", len(got))
	}
	if got[0]["rule_name"] != "hot" || got[0]["state"] != "firing" {
		t.Errorf("alert: got %v", got[0])
	}
}

// --- cross-cutting ----------------------------------------------------------

func TestCORSHeaders(t *testing.T) {
	h := api.New(sample(), api.Options{AllowOrigin: "https://dash.example.com"})

	rr := get(t, h, "/api/data")
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example.com" {
		t.Errorf("Allow-Origin: got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Errorf("Allow-Methods: got %q", got)
	}
}

func TestCORSDefaultOrigin(t *testing.T) {
	rr := get(t, api.New(sample(), api.Options{}), "/")
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin: got %q, want *", got)
	}
}

func TestPreflight_NoContent(t *testing.T) {
	src := sample()
	rr := do(t, api.New(src, api.Options{}), http.MethodOptions, "/api/data/latest/3")

	if rr.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type" {
		t.Errorf("Allow-Headers: got %q", got)
	}
	if src.calls != 0 {
		t.Errorf("loads: got %d, want 0", src.calls)
	}
}

func TestMetrics_CountsRequestsByRoute(t *testing.T) {
	reg := metrics.New()
	h := api.New(sample(), api.Options{Metrics: reg})

	get(t, h, "/api/data/latest/1")
	get(t, h, "/api/data/latest/2")
	get(t, h, "/api/data/latest/x")
	get(t, h, "/nowhere")

	counts := map[string]float64{}
	for _, mf := range reg.Gather() {
		if mf.GetName() != "processdash_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var route, code string
			for _, lp := range m.GetLabel() {
				switch lp.GetName() {
				case "route":
					route = lp.GetValue()
				case "code":
					code = lp.GetValue()
				}
			}
			counts[route+" "+code] = m.GetCounter().GetValue()
		}
	}

	want := map[string]float64{
		"/api/data/latest/:count 200": 2,
		"/api/data/latest/:count 400": 1,
		"other 404":                   1,
	}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("%s: got %v, want %v (all: %v)", k, counts[k], v, counts)
		}
	}
}

// blockingSource waits for the request context to end.
type blockingSource struct{}

func (blockingSource) Load(ctx context.Context) (records.Set, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRequestTimeout_JSONWithCORS(t *testing.T) {
	reg := metrics.New()
	h := api.New(blockingSource{}, api.Options{
		Metrics:        reg,
		AllowOrigin:    "https://dash.example.com",
		RequestTimeout: 20 * time.Millisecond,
	})

	rr := get(t, h, "/api/data")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example.com" {
		t.Errorf("Allow-Origin: got %q", got)
	}
	if msg := message(t, rr); msg != "request timed out" {
		t.Errorf("message: got %q", msg)
	}

	var counted bool
	for _, mf := range reg.Gather() {
		if mf.GetName() != "processdash_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "code" && lp.GetValue() == "503" {
					counted = true
				}
			}
		}
	}
	if !counted {
		t.Error("timed-out request not counted with code 503")
	}
}

func TestRequestTimeout_FastRequestsKeepTheirHeaders(t *testing.T) {
	h := api.New(sample(), api.Options{RequestTimeout: time.Second})

	rr := get(t, h, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q, want text/plain", ct)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin: got %q, want *", got)
	}

	rr = get(t, h, "/api/data/latest/2")
	if got := temperatures(t, rr); !equal(got, []float64{160, 170}) {
		t.Errorf("temperatures: got %v, want [160 170]", got)
	}
}
