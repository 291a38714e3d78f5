package handlers

import (
	"strconv"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/searchktools/prefix-server/core/handler"
	"github.com/searchktools/prefix-server/core/http"
)

// Echo answers GET and HEAD with the raw request
type Echo struct{}

func newEcho(string, map[string]string) (handler.Handler, error) {
	return Echo{}, nil
}

func (Echo) Handle(req *http.Request) (*http.Response, error) {
	if req.Method() != "GET" && req.Method() != "HEAD" {
		return textResponse(req, 400, "Bad Request", EchoName), nil
	}
	return http.NewResponse(req.Version(), 200, http.ContentTypeText, req.Raw(), EchoName), nil
}

// Health always reports OK
type Health struct{}

func newHealth(string, map[string]string) (handler.Handler, error) {
	return Health{}, nil
}

func (Health) Handle(req *http.Request) (*http.Response, error) {
	if !accepts(req, http.ContentTypeJSON) {
		return textResponse(req, 200, "OK", HealthName), nil
	}

	body, err := structpb.NewStruct(map[string]any{"status": "OK"})
	if err != nil {
		return nil, err
	}
	data, err := protojson.Marshal(body)
	if err != nil {
		return nil, err
	}
	return http.NewResponse(req.Version(), 200, http.ContentTypeJSON, data, HealthName), nil
}

// NotFound answers every request with 404
type NotFound struct{}

func newNotFound(string, map[string]string) (handler.Handler, error) {
	return NotFound{}, nil
}

func (NotFound) Handle(req *http.Request) (*http.Response, error) {
	return textResponse(req, 404, "404 Not Found: The requested resource could not be found on this server.", NotFoundName), nil
}

// DefaultSleepSeconds applies when sleep_duration is absent or unparsable
const DefaultSleepSeconds = 5

// Sleep blocks for a configured number of seconds before answering. Used to
// check that a slow handler does not hold up other connections.
type Sleep struct {
	seconds int
	b       Builtins
}

func (b Builtins) newSleep(_ string, params map[string]string) (handler.Handler, error) {
	return &Sleep{seconds: SleepSeconds(params), b: b}, nil
}

// SleepSeconds reads sleep_duration from params. Negative values become 0.
func SleepSeconds(params map[string]string) int {
	seconds := DefaultSleepSeconds
	if v, ok := params["sleep_duration"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			seconds = n
		}
	}
	return max(seconds, 0)
}

func (h *Sleep) Handle(req *http.Request) (*http.Response, error) {
	h.b.Logger.Debug("sleeping", "seconds", h.seconds, "url", req.URL())
	time.Sleep(time.Duration(h.seconds) * time.Second)
	return textResponse(req, 200, "Slept for "+strconv.Itoa(h.seconds)+" seconds", SleepName), nil
}
