package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/searchktools/prefix-server/core/handler"
	"github.com/searchktools/prefix-server/core/http"
)

// DefaultPageTitle is used when a document has no title in its front matter
const DefaultPageTitle = "Markdown Render"

// ContentTypeMarkdown is the only body type accepted by POST
const ContentTypeMarkdown = "text/markdown"

// goldmark's default renderer drops raw HTML from the source
var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <style>
    body { font-family: Arial, sans-serif; padding: 2rem; line-height: 1.6; }
    h1, h2, h3 { color: #333; }
    code { background: #f4f4f4; padding: 0.2rem 0.4rem; border-radius: 4px; }
    pre { background: #f4f4f4; padding: 1rem; border-radius: 4px; overflow-x: auto; }
  </style>
  <title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Markdown renders .md files below root, or a POSTed markdown body, as HTML
type Markdown struct {
	prefix string
	root   string
	b      Builtins
}

func (b Builtins) newMarkdown(location string, params map[string]string) (handler.Handler, error) {
	root, err := requireParam(MarkdownName, location, params, "root")
	if err != nil {
		return nil, err
	}
	return &Markdown{prefix: location, root: root, b: b}, nil
}

func (h *Markdown) Handle(req *http.Request) (*http.Response, error) {
	switch req.Method() {
	case "GET":
		return h.get(req)
	case "POST":
		return h.post(req)
	default:
		return h.text(req, 400, "400 Bad Request: Unsupported method"), nil
	}
}

func (h *Markdown) get(req *http.Request) (*http.Response, error) {
	name := relativePath(h.prefix, req)
	fsys := afero.NewBasePathFs(h.b.FS, h.root)

	src, err := readRegular(fsys, name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.b.Logger.Warn("markdown read failed", "path", name, "error", err)
		}
		return h.text(req, 404, "404: File not found"), nil
	}
	if path.Ext(name) != ".md" {
		return h.text(req, 400, "400 Bad Request: Non-Markdown file requested"), nil
	}
	return h.render(req, src)
}

func (h *Markdown) post(req *http.Request) (*http.Response, error) {
	media, _, _ := strings.Cut(req.Header(http.HeaderContentType), ";")
	if strings.TrimSpace(media) != ContentTypeMarkdown {
		return h.text(req, 400, "400 Bad Request: Post received non-Markdown content"), nil
	}
	return h.render(req, req.Body())
}

func (h *Markdown) render(req *http.Request, src []byte) (*http.Response, error) {
	page, err := RenderPage(src)
	if err != nil {
		return nil, err
	}
	return http.NewResponse(req.Version(), 200, http.ContentTypeHTML, page, MarkdownName), nil
}

func (h *Markdown) text(req *http.Request, code int, body string) *http.Response {
	if code >= 400 {
		h.b.Logger.Debug("markdown request rejected", "url", req.URL(), "status", code)
	}
	return textResponse(req, code, body, MarkdownName)
}

// RenderPage converts a markdown document, optionally led by YAML ("---")
// or TOML ("+++") front matter, into a complete HTML page
func RenderPage(src []byte) ([]byte, error) {
	meta, body := splitFrontMatter(src)

	var html bytes.Buffer
	if err := markdownRenderer.Convert(body, &html); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	title := DefaultPageTitle
	if t, ok := meta["title"].(string); ok && t != "" {
		title = t
	}

	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(html.String())})
	if err != nil {
		return nil, err
	}
	return page.Bytes(), nil
}

// splitFrontMatter separates a leading metadata block from the document.
// A block that does not parse is left in place as ordinary markdown.
func splitFrontMatter(src []byte) (map[string]any, []byte) {
	for _, delim := range []string{"---", "+++"} {
		open := delim + "\n"
		if !bytes.HasPrefix(src, []byte(open)) {
			continue
		}
		rest := src[len(open):]
		end := bytes.Index(rest, []byte("\n"+delim+"\n"))
		if end == -1 {
			return nil, src
		}
		block := rest[:end]
		body := rest[end+len(delim)+2:]

		meta := map[string]any{}
		var err error
		if delim == "---" {
			err = yaml.Unmarshal(block, &meta)
		} else {
			err = toml.Unmarshal(block, &meta)
		}
		if err != nil {
			return nil, src
		}
		return meta, body
	}
	return nil, src
}

func readRegular(fsys afero.Fs, name string) ([]byte, error) {
	info, err := fsys.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fs.ErrNotExist
	}
	return afero.ReadFile(fsys, name)
}
