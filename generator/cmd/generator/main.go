package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/processdash/processdash/generator/internal/simulate"
)

func main() {
	out := flag.String("out", "data/process_data.csv", "output CSV path; the directory is created when missing")
	points := flag.Int("points", simulate.DefaultPoints, "number of rows to generate")
	interval := flag.Duration("interval", simulate.DefaultInterval, "spacing between rows")
	anomalies := flag.Float64("anomaly-frequency", simulate.DefaultAnomalyFrequency, "per-value probability of an anomaly")
	seed := flag.Uint64("seed", 0, "random seed; 0 picks one")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("processdash-generator starting",
		"out", *out,
		"points", *points,
		"interval", *interval,
		"anomaly_frequency", *anomalies,
	)

	start := time.Now()
	n, err := simulate.WriteFile(afero.NewOsFs(), *out, simulate.Options{
		Points:           *points,
		Interval:         *interval,
		AnomalyFrequency: *anomalies,
		Seed:             *seed,
	})
	if err != nil {
		slog.Error("generation failed", "err", err)
		os.Exit(1)
	}
	slog.Info("generation complete", "rows", n, "out", *out, "took", time.Since(start))
}
