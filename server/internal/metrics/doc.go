// Package metrics keeps request and source-load counters and exposes them in
// the Prometheus text format on GET /metrics.
//
// Families:
//
//	processdash_http_requests_total{route,code}       counter
//	processdash_source_loads_total                    counter
//	processdash_source_load_errors_total              counter
//	processdash_source_load_duration_seconds_total    counter
//	processdash_source_records                        gauge
//
// Families are built as client_model DTOs and written with expfmt, the same
// types the text parser produces.
package metrics
