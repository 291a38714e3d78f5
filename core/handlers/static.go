package handlers

import (
	"errors"
	"io/fs"

	"github.com/searchktools/prefix-server/core/handler"
	"github.com/searchktools/prefix-server/core/http"
)

// Static serves files below the route's root parameter
type Static struct {
	prefix string
	root   string
	b      Builtins
}

func (b Builtins) newStatic(location string, params map[string]string) (handler.Handler, error) {
	root, err := requireParam(StaticName, location, params, "root")
	if err != nil {
		return nil, err
	}
	return &Static{
		prefix: location,
		root:   root,
		b:      b,
	}, nil
}

func (h *Static) Handle(req *http.Request) (*http.Response, error) {
	if req.Method() != "GET" && req.Method() != "HEAD" {
		return textResponse(req, 400, "Bad Request", StaticName), nil
	}

	name := relativePath(h.prefix, req)
	data, err := staticCache.read(h.b.FS, h.root, name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.b.Logger.Warn("static read failed", "path", name, "error", err)
		}
		return textResponse(req, 404, "404 Not Found", StaticName), nil
	}

	return http.NewResponse(req.Version(), 200, contentType(name), data, StaticName), nil
}
