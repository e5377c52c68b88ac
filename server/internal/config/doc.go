// Package config loads the processdash server configuration.
//
// Config fields:
//   - Server.HTTPPort       — port for the REST API, /metrics and /ws/stream (default 3001)
//   - Server.GRPCPort       — port for the gRPC health service (default 0, disabled)
//   - Server.RequestTimeout — per-request deadline including the file load (default 15s)
//   - Server.CORS           — Access-Control-Allow-Origin value (default "*")
//   - Data.Path             — process data CSV file (default data/process_data.csv)
//   - Data.Cache            — optional record cache, invalidated when the file changes
//   - Stream                — WebSocket live feed of the latest records
//   - Alerts                — threshold rules evaluated against the newest record
//   - Log                   — slog level and handler format
//
// Load(path) applies defaults, then the YAML file when path is non-empty,
// then the PORT, DATA_FILE_PATH and LOG_LEVEL environment variables, then
// validates.
package config
