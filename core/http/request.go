package http

// HeaderField is a single header line as received
type HeaderField struct {
	Name  string
	Value string
}

// Request is a parsed HTTP request. It is never mutated after ParseRequest returns it.
type Request struct {
	method  string
	url     string
	version string

	// Header names keep the case they arrived with, in arrival order
	headers []HeaderField

	body  []byte
	raw   []byte
	valid bool
}

// NewRequest builds a valid request directly. Used by handlers and tests that
// do not start from wire bytes.
func NewRequest(method, url, version string, headers []HeaderField, body []byte) *Request {
	req := &Request{
		method:  method,
		url:     url,
		version: version,
		headers: append([]HeaderField(nil), headers...),
		body:    append([]byte(nil), body...),
		valid:   true,
	}
	req.raw = req.render()
	return req
}

// Method returns the request method token
func (r *Request) Method() string {
	return r.method
}

// URL returns the raw request target (path plus query, not decoded)
func (r *Request) URL() string {
	return r.url
}

// Version returns the protocol version token
func (r *Request) Version() string {
	return r.version
}

// Path returns the URL without its query component
func (r *Request) Path() string {
	for i := 0; i < len(r.url); i++ {
		if r.url[i] == '?' {
			return r.url[:i]
		}
	}
	return r.url
}

// Header returns the value of the named header, matching the name exactly.
// Missing headers yield "".
func (r *Request) Header(name string) string {
	for _, h := range r.headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// HasHeader reports whether the named header was present
func (r *Request) HasHeader(name string) bool {
	for _, h := range r.headers {
		if h.Name == name {
			return true
		}
	}
	return false
}

// Headers returns a copy of the header list in arrival order
func (r *Request) Headers() []HeaderField {
	return append([]HeaderField(nil), r.headers...)
}

// Body returns the request body. Callers must not modify it.
func (r *Request) Body() []byte {
	return r.body
}

// Raw returns the original framed bytes. Callers must not modify it.
func (r *Request) Raw() []byte {
	return r.raw
}

// Len returns the byte length of the original framed request
func (r *Request) Len() int {
	return len(r.raw)
}

// Valid reports whether the request parsed cleanly
func (r *Request) Valid() bool {
	return r.valid
}

// String returns the original request text
func (r *Request) String() string {
	return string(r.raw)
}

func (r *Request) render() []byte {
	b := make([]byte, 0, 64+len(r.body))
	b = append(b, r.method...)
	b = append(b, ' ')
	b = append(b, r.url...)
	b = append(b, ' ')
	b = append(b, r.version...)
	b = append(b, "\r\n"...)
	for _, h := range r.headers {
		b = append(b, h.Name...)
		b = append(b, ": "...)
		b = append(b, h.Value...)
		b = append(b, "\r\n"...)
	}
	b = append(b, "\r\n"...)
	return append(b, r.body...)
}
