package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/processdash/processdash/server/internal/alerts"
	"github.com/processdash/processdash/server/internal/metrics"
	"github.com/processdash/processdash/server/internal/records"
)

const latestPrefix = "/api/data/latest/"

// Source loads the current record set.
type Source interface {
	Load(ctx context.Context) (records.Set, error)
}

// Options carries the optional collaborators of a Handler.
type Options struct {
	// Alerts backs GET /api/alerts. Nil serves an empty list.
	Alerts *alerts.Engine
	// Metrics receives one observation per request. Nil disables counting.
	Metrics *metrics.Registry
	// AllowOrigin is sent as Access-Control-Allow-Origin. Empty means "*".
	AllowOrigin string
	// RequestTimeout bounds each request, including the source load. Zero
	// disables it.
	RequestTimeout time.Duration
}

// Handler is the HTTP handler for the liveness route and all /api/* endpoints.
type Handler struct {
	src   Source
	opts  Options
	mux   *http.ServeMux
	inner http.Handler // mux, behind the request timeout when one is set
}

// New creates a Handler reading records from src and registers all routes.
func New(src Source, opts Options) http.Handler {
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = "*"
	}
	h := &Handler{src: src, opts: opts, mux: http.NewServeMux()}

	h.mux.HandleFunc("/", h.root)
	h.mux.HandleFunc("/api/data", h.allData)
	h.mux.HandleFunc(latestPrefix, h.latestData) // subtree, extracts {count}
	h.mux.HandleFunc("/api/alerts", h.listAlerts)

	h.inner = h.mux
	if opts.RequestTimeout > 0 {
		body, _ := json.Marshal(errorResponse{Message: msgTimedOut})
		h.inner = http.TimeoutHandler(h.mux, opts.RequestTimeout, string(body))
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w, h.opts.AllowOrigin)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// The timeout handler buffers route headers and copies them over on
	// success, so this Content-Type only reaches the client with its 503 body.
	if h.opts.RequestTimeout > 0 {
		w.Header().Set("Content-Type", "application/json")
	}

	rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
	h.inner.ServeHTTP(rec, r)

	slog.Debug("api: request", "method", r.Method, "path", r.URL.Path, "status", rec.code)
	if h.opts.Metrics != nil {
		h.opts.Metrics.ObserveRequest(routeLabel(r.URL.Path), rec.code)
	}
}

// --- route handlers ---------------------------------------------------------

// root returns GET /, a plain-text liveness message. Unknown paths are 404.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		jsonErr(w, http.StatusNotFound, msgNotFound)
		return
	}
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, msgNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(livenessText)) //nolint:errcheck
}

// allData returns GET /api/data: every record in file order.
func (h *Handler) allData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, msgNotAllowed)
		return
	}

	set, err := h.src.Load(r.Context())
	if err != nil {
		slog.Error("api: load records failed", "path", r.URL.Path, "err", err)
		jsonErr(w, http.StatusInternalServerError, msgDataFailed)
		return
	}
	jsonResp(w, http.StatusOK, records.All(set))
}

// latestData returns GET /api/data/latest/{count}: the newest count records
// ordered oldest to newest.
func (h *Handler) latestData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, msgNotAllowed)
		return
	}

	n, ok := parseCount(strings.TrimPrefix(r.URL.Path, latestPrefix))
	if !ok {
		jsonErr(w, http.StatusBadRequest, msgInvalidCount)
		return
	}

	set, err := h.src.Load(r.Context())
	if err != nil {
		slog.Error("api: load records failed", "path", r.URL.Path, "err", err)
		jsonErr(w, http.StatusInternalServerError, msgLatestFailed)
		return
	}

	latest, err := records.Latest(set, n)
	if errors.Is(err, records.ErrInvalidArgument) {
		jsonErr(w, http.StatusBadRequest, msgInvalidCount)
		return
	}
	if err != nil {
		slog.Error("api: latest query failed", "count", n, "err", err)
		jsonErr(w, http.StatusInternalServerError, msgLatestFailed)
		return
	}
	jsonResp(w, http.StatusOK, latest)
}

// listAlerts returns GET /api/alerts: firing alerts and those resolved in the
// last hour, newest first.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, msgNotAllowed)
		return
	}
	if h.opts.Alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.opts.Alerts.Active())
}

// --- helpers ----------------------------------------------------------------

// parseCount accepts a plain decimal integer greater than zero.
// Signs, spaces, fractions and values that overflow int are rejected.
func parseCount(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Message: msg})
}
