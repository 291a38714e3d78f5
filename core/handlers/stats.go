package handlers

import (
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/searchktools/prefix-server/core/handler"
	"github.com/searchktools/prefix-server/core/http"
	"github.com/searchktools/prefix-server/core/pools"
)

// ContentTypeProtobuf selects the binary encoding of the stats document
const ContentTypeProtobuf = "application/x-protobuf"

// Stats reports request metrics and runtime figures. The document is a
// google.protobuf.Struct, sent as JSON unless the client accepts protobuf.
type Stats struct {
	b Builtins
}

func (b Builtins) newStats(string, map[string]string) (handler.Handler, error) {
	return &Stats{b: b}, nil
}

func (h *Stats) Handle(req *http.Request) (*http.Response, error) {
	if req.Method() != "GET" && req.Method() != "HEAD" {
		return textResponse(req, 400, "Bad Request", StatsName), nil
	}

	doc, err := structpb.NewStruct(h.document())
	if err != nil {
		return nil, err
	}

	if accepts(req, ContentTypeProtobuf) {
		data, err := proto.Marshal(doc)
		if err != nil {
			return nil, err
		}
		return http.NewResponse(req.Version(), 200, ContentTypeProtobuf, data, StatsName), nil
	}

	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return http.NewResponse(req.Version(), 200, http.ContentTypeJSON, data, StatsName), nil
}

func (h *Stats) document() map[string]any {
	snap := h.b.Monitor.Snapshot()

	handlers := make([]any, 0, len(snap.Handlers))
	for _, hs := range snap.Handlers {
		handlers = append(handlers, map[string]any{
			"name":    hs.Name,
			"count":   hs.Count,
			"errors":  hs.Errors,
			"mean_ms": millis(hs.Mean),
			"min_ms":  millis(hs.Min),
			"max_ms":  millis(hs.Max),
		})
	}

	findings := make([]any, 0)
	for _, f := range h.b.Monitor.Findings() {
		findings = append(findings, map[string]any{
			"type":     f.Type,
			"handler":  f.Location,
			"severity": f.Severity,
			"details":  f.Details,
		})
	}

	rt := pools.ReadRuntimeStats()
	out := pools.GlobalOutStats()
	return map[string]any{
		"connections": snap.Connections,
		"requests":    snap.Requests,
		"timeouts":    snap.Timeouts,
		"handlers":    handlers,
		"findings":    findings,
		"runtime": map[string]any{
			"goroutines":   rt.Goroutines,
			"max_procs":    rt.MaxProcs,
			"num_gc":       rt.NumGC,
			"heap_alloc":   rt.HeapAlloc,
			"avg_pause_ms": millis(rt.AvgPause),
		},
		"out_buffers": map[string]any{
			"gets":      out.Gets,
			"oversized": out.Oversized,
		},
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
