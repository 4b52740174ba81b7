package metrics

import (
	"fmt"
	"math"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"time"
)

// PrometheusConfig configures the text exposition endpoint.
type PrometheusConfig struct {
	// Namespace is prepended to every metric name ("wesoforge" turns
	// prover.squarings into wesoforge_prover_squarings).
	Namespace string
	// EnableRuntime adds goroutine, heap and GC gauges to each scrape.
	EnableRuntime bool
	// Path is the HTTP path to serve on (default "/metrics").
	Path string
}

// DefaultPrometheusConfig returns the configuration used by the wesoforge
// command.
func DefaultPrometheusConfig() PrometheusConfig {
	return PrometheusConfig{
		Namespace:     "wesoforge",
		EnableRuntime: true,
		Path:          "/metrics",
	}
}

// PrometheusExporter renders a Registry in Prometheus text format.
type PrometheusExporter struct {
	config   PrometheusConfig
	registry *Registry
}

// NewPrometheusExporter creates an exporter that reads from registry.
func NewPrometheusExporter(registry *Registry, config PrometheusConfig) *PrometheusExporter {
	if config.Path == "" {
		config.Path = "/metrics"
	}
	return &PrometheusExporter{config: config, registry: registry}
}

// Handler returns an http.Handler serving the configured path.
func (pe *PrometheusExporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(pe.config.Path, pe.handleMetrics)
	return mux
}

func (pe *PrometheusExporter) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.Write([]byte(pe.Render()))
}

// Render returns the current exposition text.
func (pe *PrometheusExporter) Render() string {
	var b strings.Builder
	pe.writeRegistry(&b)
	if pe.config.EnableRuntime {
		pe.writeRuntime(&b)
	}
	return b.String()
}

func (pe *PrometheusExporter) writeRegistry(b *strings.Builder) {
	r := pe.registry
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.counters) {
		pn := pe.promName(name)
		writeHeader(b, pn, "counter", name)
		fmt.Fprintf(b, "%s %d\n", pn, r.counters[name].Value())
	}
	for _, name := range sortedKeys(r.gauges) {
		pn := pe.promName(name)
		writeHeader(b, pn, "gauge", name)
		fmt.Fprintf(b, "%s %d\n", pn, r.gauges[name].Value())
	}
	for _, name := range sortedKeys(r.histograms) {
		s := r.histograms[name].Snapshot()
		pn := pe.promName(name)
		writeHeader(b, pn, "summary", name)
		fmt.Fprintf(b, "%s_count %d\n", pn, s.Count)
		fmt.Fprintf(b, "%s_sum %s\n", pn, formatFloat(s.Sum))
		if s.Count > 0 {
			fmt.Fprintf(b, "%s_min %s\n", pn, formatFloat(s.Min))
			fmt.Fprintf(b, "%s_max %s\n", pn, formatFloat(s.Max))
		}
	}
	for _, name := range sortedKeys(r.meters) {
		m := r.meters[name]
		pn := pe.promName(name)
		writeHeader(b, pn+"_total", "counter", name)
		fmt.Fprintf(b, "%s_total %d\n", pn, m.Count())
		writeHeader(b, pn+"_rate1m", "gauge", name+" (1m average per second)")
		fmt.Fprintf(b, "%s_rate1m %s\n", pn, formatFloat(m.Rate1()))
		writeHeader(b, pn+"_rate5m", "gauge", name+" (5m average per second)")
		fmt.Fprintf(b, "%s_rate5m %s\n", pn, formatFloat(m.Rate5()))
	}
}

func (pe *PrometheusExporter) writeRuntime(b *strings.Builder) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	prefix := pe.config.Namespace
	if prefix != "" {
		prefix += "_"
	}
	gauge := func(name, help string, v uint64) {
		writeHeader(b, prefix+name, "gauge", help)
		fmt.Fprintf(b, "%s%s %d\n", prefix, name, v)
	}
	gauge("go_goroutines", "Number of active goroutines", uint64(runtime.NumGoroutine()))
	gauge("go_memstats_heap_alloc_bytes", "Bytes of allocated heap objects", m.HeapAlloc)
	gauge("go_memstats_heap_inuse_bytes", "Bytes in in-use heap spans", m.HeapInuse)
	gauge("go_memstats_sys_bytes", "Bytes of memory obtained from the OS", m.Sys)

	writeHeader(b, prefix+"go_gc_cycles_total", "counter", "Completed GC cycles")
	fmt.Fprintf(b, "%sgo_gc_cycles_total %d\n", prefix, m.NumGC)

	writeHeader(b, prefix+"process_start_time_seconds", "gauge", "Process start time in seconds since epoch")
	fmt.Fprintf(b, "%sprocess_start_time_seconds %d\n", prefix, processStartTime.Unix())
}

// promName maps a dotted metric name to a Prometheus identifier.
func (pe *PrometheusExporter) promName(name string) string {
	s := strings.NewReplacer(".", "_", "-", "_").Replace(name)
	if pe.config.Namespace != "" {
		return pe.config.Namespace + "_" + s
	}
	return s
}

func writeHeader(b *strings.Builder, name, kind, help string) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return fmt.Sprintf("%g", v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var processStartTime = time.Now()
