package handlers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/searchktools/prefix-server/core/http"
	"github.com/searchktools/prefix-server/core/storage"
)

func crudParams(t *testing.T) map[string]map[string]string {
	return map[string]map[string]string{
		"fs":     {"root": "/data"},
		"sqlite": {"root": t.TempDir(), "backend": BackendSQLite},
	}
}

func TestCrudLifecycle(t *testing.T) {
	for name, params := range crudParams(t) {
		t.Run(name, func(t *testing.T) {
			reg := testRegistry(t, testBuiltins(afero.NewMemMapFs()))
			call := func(raw string) *http.Response {
				return serve(t, reg, CrudName, "/api", params, raw)
			}

			resp := call("POST /api/shoes HTTP/1.1\r\nContent-Length: 10\r\n\r\n{\"size\":9}")
			if resp.StatusCode() != 200 || string(resp.Body()) != `{"id":1}` {
				t.Fatalf("Expected id 1, got %d %q", resp.StatusCode(), resp.Body())
			}
			resp = call("POST /api/shoes HTTP/1.1\r\nContent-Length: 2\r\n\r\n{}")
			if string(resp.Body()) != `{"id":2}` {
				t.Errorf("Expected id 2, got %q", resp.Body())
			}

			resp = call("GET /api/shoes/1 HTTP/1.1\r\n\r\n")
			if resp.StatusCode() != 200 || string(resp.Body()) != `{"size":9}` || resp.ContentType() != http.ContentTypeJSON {
				t.Errorf("Expected stored document, got %d %q", resp.StatusCode(), resp.Body())
			}

			resp = call("PUT /api/shoes/1 HTTP/1.1\r\nContent-Length: 11\r\n\r\n{\"size\":10}")
			if string(resp.Body()) != `{"id":1}` {
				t.Errorf("Expected PUT to echo id, got %q", resp.Body())
			}
			resp = call("GET /api/shoes/1 HTTP/1.1\r\n\r\n")
			if string(resp.Body()) != `{"size":10}` {
				t.Errorf("Expected replaced document, got %q", resp.Body())
			}

			resp = call("GET /api/shoes HTTP/1.1\r\n\r\n")
			var ids []int
			if err := json.Unmarshal(resp.Body(), &ids); err != nil || len(ids) != 2 {
				t.Errorf("Expected two ids, got %q", resp.Body())
			}

			resp = call("DELETE /api/shoes/2 HTTP/1.1\r\n\r\n")
			if resp.StatusCode() != 200 || string(resp.Body()) != `{"id":2}` {
				t.Errorf("Expected delete to succeed, got %d %q", resp.StatusCode(), resp.Body())
			}
			if resp = call("GET /api/shoes/2 HTTP/1.1\r\n\r\n"); resp.StatusCode() != 404 {
				t.Errorf("Expected 404 after delete, got %d", resp.StatusCode())
			}
		})
	}
}

func TestCrudErrors(t *testing.T) {
	reg := testRegistry(t, testBuiltins(afero.NewMemMapFs()))
	params := map[string]string{"root": "/data"}

	tests := []struct {
		raw        string
		wantStatus int
		wantBody   string
	}{
		{"GET /api HTTP/1.1\r\n\r\n", 400, "400 Bad Request: Missing entity type in URL"},
		{"GET /api/shoes/abc HTTP/1.1\r\n\r\n", 400, "400 Bad Request: Invalid ID"},
		{"GET /api/shoes/0 HTTP/1.1\r\n\r\n", 400, "400 Bad Request: Invalid ID"},
		{"GET /api/shoes/5 HTTP/1.1\r\n\r\n", 404, "404 Not Found: Entity not found"},
		{"DELETE /api/shoes/5 HTTP/1.1\r\n\r\n", 404, "404 Not Found: Entity not found"},
		{"POST /api/shoes HTTP/1.1\r\nContent-Length: 5\r\n\r\n{bad}", 400, "400 Bad Request: Invalid JSON in request body"},
		{"POST /api/shoes HTTP/1.1\r\n\r\n", 400, "400 Bad Request: Invalid JSON in request body"},
		{"PUT /api/shoes HTTP/1.1\r\nContent-Length: 2\r\n\r\n{}", 400, "400 Bad Request: Missing ID in URL"},
		{"DELETE /api/shoes HTTP/1.1\r\n\r\n", 400, "400 Bad Request: Missing ID in URL"},
		{"PATCH /api/shoes/1 HTTP/1.1\r\n\r\n", 400, "400 Bad Request: Unsupported method"},
	}
	for _, tt := range tests {
		resp := serve(t, reg, CrudName, "/api", params, tt.raw)
		if resp.StatusCode() != tt.wantStatus || string(resp.Body()) != tt.wantBody {
			t.Errorf("%q: expected %d %q, got %d %q", tt.raw, tt.wantStatus, tt.wantBody, resp.StatusCode(), resp.Body())
		}
	}
}

func TestCrudWritesUnderRoot(t *testing.T) {
	fsys := afero.NewMemMapFs()
	reg := testRegistry(t, testBuiltins(fsys))

	serve(t, reg, CrudName, "/api", map[string]string{"root": "/data"},
		"POST /api/books HTTP/1.1\r\nContent-Length: 2\r\n\r\n{}")

	data, err := afero.ReadFile(fsys, "/data/books/1")
	if err != nil || string(data) != "{}" {
		t.Errorf("Expected document at /data/books/1, got %q %v", data, err)
	}
}

func TestCrudRelativeRoot(t *testing.T) {
	fsys := afero.NewMemMapFs()
	reg := testRegistry(t, testBuiltins(fsys))

	serve(t, reg, CrudName, "/api", map[string]string{"root": "./data"},
		"POST /api/books HTTP/1.1\r\nContent-Length: 2\r\n\r\n{}")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	data, err := afero.ReadFile(fsys, filepath.Join(wd, "data", "books", "1"))
	if err != nil || string(data) != "{}" {
		t.Errorf("Expected document under the working directory, got %q %v", data, err)
	}
	if ok, _ := afero.Exists(fsys, "/data/books/1"); ok {
		t.Error("Expected nothing written at /data")
	}
}

func TestNewCrudWithStore(t *testing.T) {
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "direct.db"))
	if err != nil {
		t.Fatal(err)
	}
	h := NewCrud("/", store)

	resp, err := h.Handle(http.ParseRequest([]byte("POST /notes HTTP/1.1\r\nContent-Length: 2\r\n\r\n[]")))
	if err != nil || string(resp.Body()) != `{"id":1}` {
		t.Errorf("Expected id 1, got %v %v", resp, err)
	}
}
