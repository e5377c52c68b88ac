package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/processdash/processdash/server/internal/records"
)

const namespace = "processdash_"

type requestKey struct {
	route string
	code  int
}

// Registry accumulates counters. It is safe for concurrent use.
type Registry struct {
	mu          sync.Mutex
	requests    map[requestKey]uint64
	loads       uint64
	loadErrors  uint64
	loadSeconds float64
	lastRecords int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{requests: make(map[requestKey]uint64)}
}

// ObserveRequest counts one completed HTTP request.
func (r *Registry) ObserveRequest(route string, code int) {
	r.mu.Lock()
	r.requests[requestKey{route, code}]++
	r.mu.Unlock()
}

// ObserveLoad records one source load. n is the number of records read and
// is ignored when err is non-nil.
func (r *Registry) ObserveLoad(d time.Duration, n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	r.loadSeconds += d.Seconds()
	if err != nil {
		r.loadErrors++
		return
	}
	r.lastRecords = n
}

// Gather returns the current metric families sorted by name.
func (r *Registry) Gather() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]requestKey, 0, len(r.requests))
	for k := range r.requests {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].route != keys[j].route {
			return keys[i].route < keys[j].route
		}
		return keys[i].code < keys[j].code
	})
	reqs := make([]*dto.Metric, 0, len(keys))
	for _, k := range keys {
		reqs = append(reqs, &dto.Metric{
			Label: []*dto.LabelPair{
				{Name: proto.String("code"), Value: proto.String(strconv.Itoa(k.code))},
				{Name: proto.String("route"), Value: proto.String(k.route)},
			},
			Counter: &dto.Counter{Value: proto.Float64(float64(r.requests[k]))},
		})
	}

	var out []*dto.MetricFamily
	// The text format rejects families without samples.
	if len(reqs) > 0 {
		out = append(out, &dto.MetricFamily{
			Name:   proto.String(namespace + "http_requests_total"),
			Help:   proto.String("HTTP requests served, by route and status code."),
			Type:   dto.MetricType_COUNTER.Enum(),
			Metric: reqs,
		})
	}
	return append(out,
		counter("source_load_duration_seconds_total", "Total time spent loading the source file.", r.loadSeconds),
		counter("source_load_errors_total", "Source file loads that failed.", float64(r.loadErrors)),
		counter("source_loads_total", "Source file loads attempted.", float64(r.loads)),
		&dto.MetricFamily{
			Name: proto.String(namespace + "source_records"),
			Help: proto.String("Records in the most recent successful load."),
			Type: dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{
				{Gauge: &dto.Gauge{Value: proto.Float64(float64(r.lastRecords))}},
			},
		},
	)
}

// ServeHTTP writes the registry in the Prometheus text exposition format.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range r.Gather() {
		if err := enc.Encode(mf); err != nil {
			slog.Error("metrics: encode failed", "family", mf.GetName(), "err", err)
			return
		}
	}
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(namespace + name),
		Help: proto.String(help),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{
			{Counter: &dto.Counter{Value: proto.Float64(v)}},
		},
	}
}

// Source loads a record set.
type Source interface {
	Load(ctx context.Context) (records.Set, error)
}

// InstrumentSource wraps src so every Load is recorded in reg.
func InstrumentSource(src Source, reg *Registry) Source {
	return &instrumented{src: src, reg: reg, now: time.Now}
}

type instrumented struct {
	src Source
	reg *Registry
	now func() time.Time
}

func (i *instrumented) Load(ctx context.Context) (records.Set, error) {
	start := i.now()
	set, err := i.src.Load(ctx)
	i.reg.ObserveLoad(i.now().Sub(start), len(set), err)
	return set, err
}
