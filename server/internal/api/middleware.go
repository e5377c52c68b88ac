package api

import (
	"net/http"
	"strings"
)

func setCORS(w http.ResponseWriter, origin string) {
	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Origin", origin)
	hdr.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	hdr.Set("Access-Control-Allow-Headers", "Content-Type")
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// routeLabel maps a request path onto a fixed set of metric labels so that
// arbitrary counts and unknown paths do not create new series.
func routeLabel(path string) string {
	switch {
	case path == "/":
		return "/"
	case path == "/api/data":
		return "/api/data"
	case strings.HasPrefix(path, latestPrefix):
		return "/api/data/latest/:count"
	case path == "/api/alerts":
		return "/api/alerts"
	default:
		return "other"
	}
}
