package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/searchktools/prefix-server/core/handler"
	"github.com/searchktools/prefix-server/core/http"
	"github.com/searchktools/prefix-server/core/storage"
)

// CRUD storage backends
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
)

// Crud stores JSON documents addressed as <prefix>/<entity>[/<id>]
type Crud struct {
	prefix string
	store  storage.Store
	b      Builtins
}

func (b Builtins) newCrud(location string, params map[string]string) (handler.Handler, error) {
	root, err := requireParam(CrudName, location, params, "root")
	if err != nil {
		return nil, err
	}

	var store storage.Store
	switch backend := params["backend"]; backend {
	case "", BackendFS:
		store = storage.NewFileStore(b.FS, root)
	case BackendSQLite:
		db := params["db"]
		if db == "" {
			db = filepath.Join(root, "crud.db")
		}
		store, err = storage.OpenSQLite(db)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%s: unknown backend %q for location %s", CrudName, backend, location)
	}

	return &Crud{prefix: location, store: store, b: b}, nil
}

// NewCrud builds a CRUD handler over an existing store
func NewCrud(prefix string, store storage.Store) *Crud {
	return &Crud{prefix: prefix, store: store, b: Builtins{}.withDefaults()}
}

func (h *Crud) Handle(req *http.Request) (*http.Response, error) {
	entity, idText := h.split(req)
	if entity == "" || !storage.ValidEntity(entity) {
		return h.text(req, 400, "400 Bad Request: Missing entity type in URL"), nil
	}

	id := 0
	if idText != "" {
		n, err := storage.ParseID(idText)
		if err != nil {
			return h.text(req, 400, "400 Bad Request: Invalid ID"), nil
		}
		id = n
	}

	switch req.Method() {
	case "GET":
		if id == 0 {
			return h.list(req, entity)
		}
		return h.get(req, entity, id)
	case "POST":
		return h.create(req, entity)
	case "PUT":
		if id == 0 {
			return h.text(req, 400, "400 Bad Request: Missing ID in URL"), nil
		}
		return h.put(req, entity, id)
	case "DELETE":
		if id == 0 {
			return h.text(req, 400, "400 Bad Request: Missing ID in URL"), nil
		}
		return h.remove(req, entity, id)
	default:
		return h.text(req, 400, "400 Bad Request: Unsupported method"), nil
	}
}

// split returns the entity and id segments below the prefix
func (h *Crud) split(req *http.Request) (string, string) {
	rest := strings.TrimPrefix(req.Path(), h.prefix)
	rest = strings.Trim(rest, "/")
	entity, id, _ := strings.Cut(rest, "/")
	return entity, id
}

func (h *Crud) list(req *http.Request, entity string) (*http.Response, error) {
	ids, err := h.store.List(entity)
	if err != nil {
		return h.storeError(req, err), nil
	}
	return h.json(req, 200, ids)
}

func (h *Crud) get(req *http.Request, entity string, id int) (*http.Response, error) {
	doc, err := h.store.Get(entity, id)
	if err != nil {
		return h.storeError(req, err), nil
	}
	return http.NewResponse(req.Version(), 200, http.ContentTypeJSON, doc, CrudName), nil
}

func (h *Crud) create(req *http.Request, entity string) (*http.Response, error) {
	if !json.Valid(req.Body()) {
		return h.text(req, 400, "400 Bad Request: Invalid JSON in request body"), nil
	}
	id, err := h.store.Create(entity, req.Body())
	if err != nil {
		return h.storeError(req, err), nil
	}
	return h.json(req, 200, idBody{ID: id})
}

func (h *Crud) put(req *http.Request, entity string, id int) (*http.Response, error) {
	if !json.Valid(req.Body()) {
		return h.text(req, 400, "400 Bad Request: Invalid JSON in request body"), nil
	}
	if err := h.store.Put(entity, id, req.Body()); err != nil {
		return h.storeError(req, err), nil
	}
	return h.json(req, 200, idBody{ID: id})
}

func (h *Crud) remove(req *http.Request, entity string, id int) (*http.Response, error) {
	if err := h.store.Delete(entity, id); err != nil {
		return h.storeError(req, err), nil
	}
	return h.json(req, 200, idBody{ID: id})
}

type idBody struct {
	ID int `json:"id"`
}

func (h *Crud) json(req *http.Request, code int, v any) (*http.Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return http.NewResponse(req.Version(), code, http.ContentTypeJSON, data, CrudName), nil
}

func (h *Crud) text(req *http.Request, code int, body string) *http.Response {
	return textResponse(req, code, body, CrudName)
}

func (h *Crud) storeError(req *http.Request, err error) *http.Response {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return h.text(req, 404, "404 Not Found: Entity not found")
	case errors.Is(err, storage.ErrInvalidID):
		return h.text(req, 400, "400 Bad Request: Invalid ID")
	case errors.Is(err, storage.ErrInvalidEntity):
		return h.text(req, 400, "400 Bad Request: Missing entity type in URL")
	}
	h.b.Logger.Error("crud storage failed", "url", req.URL(), "error", err)
	return h.text(req, 500, "500 Internal Server Error: Storage failure")
}
