package observability

import (
	"testing"
	"time"
)

func TestMonitorRecordRequest(t *testing.T) {
	m := NewMonitor()

	m.RecordRequest("EchoHandler", 10*time.Millisecond, false)
	m.RecordRequest("EchoHandler", 20*time.Millisecond, false)
	m.RecordRequest("EchoHandler", 30*time.Millisecond, true)

	snap := m.Snapshot()
	if len(snap.Handlers) != 1 {
		t.Fatalf("Expected 1 handler, got %d", len(snap.Handlers))
	}

	h := snap.Handlers[0]
	if h.Count != 3 {
		t.Errorf("Expected 3 requests, got %d", h.Count)
	}
	if h.Errors != 1 {
		t.Errorf("Expected 1 error, got %d", h.Errors)
	}
	if h.Mean != 20*time.Millisecond {
		t.Errorf("Expected 20ms avg, got %v", h.Mean)
	}
	if h.Min != 10*time.Millisecond || h.Max != 30*time.Millisecond {
		t.Errorf("Expected min 10ms max 30ms, got %v %v", h.Min, h.Max)
	}
	if snap.Requests != 3 {
		t.Errorf("Expected 3 total requests, got %d", snap.Requests)
	}
}

func TestMonitorBuckets(t *testing.T) {
	m := NewMonitor()
	m.RecordRequest("h", 500*time.Microsecond, false)
	m.RecordRequest("h", 7*time.Millisecond, false)
	m.RecordRequest("h", time.Minute, false)

	b := m.Snapshot().Handlers[0].Buckets
	if b[0] != 1 || b[2] != 1 || b[len(b)-1] != 1 {
		t.Errorf("Unexpected bucket distribution %v", b)
	}
}

func TestMonitorUnlabeled(t *testing.T) {
	m := NewMonitor()
	m.RecordRequest("", time.Millisecond, false)

	if got := m.Snapshot().Handlers[0].Name; got != "-" {
		t.Errorf("Expected placeholder label, got %q", got)
	}
}

func TestMonitorDisabled(t *testing.T) {
	m := NewMonitor()
	m.Disable()
	m.RecordRequest("h", time.Millisecond, false)
	m.RecordConnection()
	m.RecordTimeout()

	snap := m.Snapshot()
	if snap.Requests != 0 || snap.Connections != 0 || snap.Timeouts != 0 || len(snap.Handlers) != 0 {
		t.Errorf("Expected nothing recorded while disabled, got %+v", snap)
	}

	m.Enable()
	m.RecordConnection()
	if m.Snapshot().Connections != 1 {
		t.Error("Expected recording after Enable")
	}
}

func TestMonitorFindings(t *testing.T) {
	m := NewMonitor()

	for i := 0; i < 100; i++ {
		m.RecordRequest("SleepHandler", 150*time.Millisecond, false)
		m.RecordRequest("Broken", time.Millisecond, i%2 == 0)
	}

	findings := m.Findings()
	var latency, errs bool
	for _, f := range findings {
		switch {
		case f.Type == "latency" && f.Location == "SleepHandler":
			latency = true
		case f.Type == "errors" && f.Location == "Broken":
			errs = true
		}
	}
	if !latency {
		t.Error("Expected latency finding for slow handler")
	}
	if !errs {
		t.Error("Expected error-rate finding for failing handler")
	}
}

func BenchmarkRecordRequest(b *testing.B) {
	m := NewMonitor()
	duration := 10 * time.Millisecond

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordRequest("EchoHandler", duration, false)
	}
}
