package simulate

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"
)

// TimestampLayout is the format of the timestamp column.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Defaults for Options.
const (
	DefaultPoints           = 5000
	DefaultInterval         = 5 * time.Second
	DefaultAnomalyFrequency = 0.02
)

// Param describes one simulated process variable.
type Param struct {
	Name       string
	Mean       float64
	StdDev     float64
	AnomalyMin float64
	AnomalyMax float64
}

// DefaultParams are the variables of the reference reactor.
var DefaultParams = []Param{
	{Name: "Temperature", Mean: 150, StdDev: 5, AnomalyMin: 165, AnomalyMax: 175},
	{Name: "Pressure", Mean: 5, StdDev: 0.5, AnomalyMin: 6.5, AnomalyMax: 7.5},
	{Name: "Flow_Rate", Mean: 100, StdDev: 10, AnomalyMin: 125, AnomalyMax: 135},
	{Name: "pH_Value", Mean: 7.0, StdDev: 0.2, AnomalyMin: 5.0, AnomalyMax: 6.0},
	{Name: "Concentration", Mean: 0.15, StdDev: 0.01, AnomalyMin: 0.20, AnomalyMax: 0.22},
}

// Options controls a generation run. Zero Points, Interval, End, Params and
// Seed take their defaults.
type Options struct {
	Points   int
	Interval time.Duration

	// AnomalyFrequency is the per-value probability of an anomaly. Zero
	// disables anomalies; DefaultAnomalyFrequency is what the CLI uses.
	AnomalyFrequency float64

	// End is the reference instant. The first row is Points*Interval before
	// End and the last row one Interval before it. Zero means time.Now().
	End time.Time

	// Params defaults to DefaultParams.
	Params []Param

	// Seed makes the run reproducible. Zero draws a random seed.
	Seed uint64
}

func (o Options) withDefaults() Options {
	if o.Points <= 0 {
		o.Points = DefaultPoints
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.AnomalyFrequency < 0 {
		o.AnomalyFrequency = 0
	}
	if o.End.IsZero() {
		o.End = time.Now()
	}
	if len(o.Params) == 0 {
		o.Params = DefaultParams
	}
	if o.Seed == 0 {
		o.Seed = rand.Uint64()
	}
	return o
}

// Row is one generated reading.
type Row struct {
	Time   time.Time
	Values []float64 // same order as Options.Params
}

// Generate returns the rows of a run, oldest first.
func Generate(opts Options) []Row {
	opts = opts.withDefaults()
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	start := opts.End.Add(-time.Duration(opts.Points) * opts.Interval)
	rows := make([]Row, opts.Points)
	for i := range rows {
		vals := make([]float64, len(opts.Params))
		for j, p := range opts.Params {
			vals[j] = round3(sample(rng, p, opts.AnomalyFrequency))
		}
		rows[i] = Row{
			Time:   start.Add(time.Duration(i) * opts.Interval).UTC(),
			Values: vals,
		}
	}
	return rows
}

// sample draws one value for p. An anomaly is kept only when it falls outside
// mean ± 3σ; otherwise a fresh normal value replaces it.
func sample(rng *rand.Rand, p Param, anomalyFreq float64) float64 {
	v := p.Mean + rng.NormFloat64()*p.StdDev
	if rng.Float64() >= anomalyFreq {
		return v
	}
	a := p.AnomalyMin + rng.Float64()*(p.AnomalyMax-p.AnomalyMin)
	if a < p.Mean-3*p.StdDev || a > p.Mean+3*p.StdDev {
		return a
	}
	return p.Mean + rng.NormFloat64()*p.StdDev
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

// WriteCSV writes a header and rows to w.
func WriteCSV(w io.Writer, params []Param, rows []Row) error {
	if len(params) == 0 {
		params = DefaultParams
	}
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(params)+1)
	header = append(header, "timestamp")
	for _, p := range params {
		header = append(header, p.Name)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("simulate: write header: %w", err)
	}

	rec := make([]string, len(header))
	for _, r := range rows {
		rec[0] = r.Time.UTC().Format(TimestampLayout)
		for j, v := range r.Values {
			rec[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("simulate: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("simulate: flush: %w", err)
	}
	return nil
}

// WriteFile generates a run and writes it to path on fs, creating the parent
// directory when missing. It returns the number of rows written.
func WriteFile(fs afero.Fs, path string, opts Options) (int, error) {
	opts = opts.withDefaults()

	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("simulate: create %q: %w", dir, err)
		}
	}

	f, err := fs.Create(path)
	if err != nil {
		return 0, fmt.Errorf("simulate: create %q: %w", path, err)
	}

	rows := Generate(opts)
	if err := WriteCSV(f, opts.Params, rows); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("simulate: close %q: %w", path, err)
	}
	return len(rows), nil
}
