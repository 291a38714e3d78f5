package observability

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Monitor aggregates per-handler request metrics. Safe for concurrent use.
type Monitor struct {
	enabled  atomic.Bool
	handlers sync.Map
	global   struct {
		totalRequests atomic.Uint64
		totalDuration atomic.Uint64
		timeouts      atomic.Uint64
		connections   atomic.Uint64
	}
}

// HandlerMetrics stores per-handler metrics
type HandlerMetrics struct {
	Name           string
	Count          atomic.Uint64
	Errors         atomic.Uint64
	TotalDuration  atomic.Uint64
	MinDuration    atomic.Uint64
	MaxDuration    atomic.Uint64
	latencyBuckets [len(bucketBounds) + 1]atomic.Uint64
}

// Upper bounds of the latency histogram buckets; the last bucket is open
var bucketBounds = [...]time.Duration{
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	5 * time.Second,
	10 * time.Second,
}

// HandlerSnapshot is a point-in-time copy of one handler's metrics
type HandlerSnapshot struct {
	Name    string
	Count   uint64
	Errors  uint64
	Mean    time.Duration
	Min     time.Duration
	Max     time.Duration
	Buckets []uint64
}

// Snapshot is a point-in-time copy of all metrics
type Snapshot struct {
	Connections uint64
	Requests    uint64
	Timeouts    uint64
	Handlers    []HandlerSnapshot
}

// Finding flags a handler whose metrics look unhealthy
type Finding struct {
	Type     string
	Location string
	Severity int
	Details  string
}

// NewMonitor creates an enabled monitor
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.enabled.Store(true)
	return m
}

var defaultMonitor = NewMonitor()

// Default returns the process-wide monitor
func Default() *Monitor {
	return defaultMonitor
}

// Enable turns recording on
func (m *Monitor) Enable() { m.enabled.Store(true) }

// Disable turns recording off; existing metrics are kept
func (m *Monitor) Disable() { m.enabled.Store(false) }

// RecordConnection counts an accepted connection
func (m *Monitor) RecordConnection() {
	if m.enabled.Load() {
		m.global.connections.Add(1)
	}
}

// RecordTimeout counts a connection closed by its inactivity timer
func (m *Monitor) RecordTimeout() {
	if m.enabled.Load() {
		m.global.timeouts.Add(1)
	}
}

// RecordRequest records one completed request under the producing handler's label
func (m *Monitor) RecordRequest(handler string, duration time.Duration, isError bool) {
	if !m.enabled.Load() {
		return
	}
	if handler == "" {
		handler = "-"
	}

	val, _ := m.handlers.LoadOrStore(handler, &HandlerMetrics{Name: handler})
	metrics := val.(*HandlerMetrics)

	metrics.Count.Add(1)
	if isError {
		metrics.Errors.Add(1)
	}

	d := uint64(duration.Nanoseconds())
	metrics.TotalDuration.Add(d)
	updateMinMax(metrics, d)
	metrics.latencyBuckets[bucketIndex(duration)].Add(1)

	m.global.totalRequests.Add(1)
	m.global.totalDuration.Add(d)
}

func updateMinMax(m *HandlerMetrics, d uint64) {
	for {
		min := m.MinDuration.Load()
		if min != 0 && d >= min {
			break
		}
		if m.MinDuration.CompareAndSwap(min, d) {
			break
		}
	}
	for {
		max := m.MaxDuration.Load()
		if d <= max {
			break
		}
		if m.MaxDuration.CompareAndSwap(max, d) {
			break
		}
	}
}

func bucketIndex(d time.Duration) int {
	for i, bound := range bucketBounds {
		if d < bound {
			return i
		}
	}
	return len(bucketBounds)
}

// Snapshot copies the current metrics, handlers sorted by name
func (m *Monitor) Snapshot() Snapshot {
	s := Snapshot{
		Connections: m.global.connections.Load(),
		Requests:    m.global.totalRequests.Load(),
		Timeouts:    m.global.timeouts.Load(),
	}

	m.handlers.Range(func(_, value any) bool {
		hm := value.(*HandlerMetrics)
		hs := HandlerSnapshot{
			Name:    hm.Name,
			Count:   hm.Count.Load(),
			Errors:  hm.Errors.Load(),
			Min:     time.Duration(hm.MinDuration.Load()),
			Max:     time.Duration(hm.MaxDuration.Load()),
			Buckets: make([]uint64, len(hm.latencyBuckets)),
		}
		if hs.Count > 0 {
			hs.Mean = time.Duration(hm.TotalDuration.Load() / hs.Count)
		}
		for i := range hm.latencyBuckets {
			hs.Buckets[i] = hm.latencyBuckets[i].Load()
		}
		s.Handlers = append(s.Handlers, hs)
		return true
	})

	sort.Slice(s.Handlers, func(i, j int) bool { return s.Handlers[i].Name < s.Handlers[j].Name })
	return s
}

// Findings reports handlers with high mean latency or error rate
func (m *Monitor) Findings() []Finding {
	var findings []Finding

	for _, h := range m.Snapshot().Handlers {
		if h.Count == 0 {
			continue
		}

		if h.Mean > 100*time.Millisecond {
			findings = append(findings, Finding{
				Type:     "latency",
				Location: h.Name,
				Severity: 8,
				Details:  fmt.Sprintf("High latency (%v avg)", h.Mean),
			})
		}

		if rate := float64(h.Errors) / float64(h.Count); h.Errors > 0 && rate > 0.05 {
			findings = append(findings, Finding{
				Type:     "errors",
				Location: h.Name,
				Severity: 10,
				Details:  fmt.Sprintf("%.1f%% error rate", rate*100),
			})
		}
	}

	return findings
}
