package http

// HTTP header and protocol constants
const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderConnection    = "Connection"
	HeaderAccept        = "Accept"

	DefaultVersion    = "HTTP/1.1"
	ConnectionClose   = "close"
	ContentTypeText   = "text/plain"
	ContentTypeJSON   = "application/json"
	ContentTypeHTML   = "text/html; charset=utf-8"
	ContentTypeBinary = "application/octet-stream"
)

// Response is a to-be-serialized HTTP response. Build it with NewResponse;
// ContentLength always equals len(Body).
type Response struct {
	version     string
	statusCode  int
	contentType string
	connection  string
	body        []byte
	handler     string
}

// NewResponse creates a response. An empty version falls back to HTTP/1.1 and
// an empty content type to text/plain. handler labels the producer for logs.
func NewResponse(version string, code int, contentType string, body []byte, handler string) *Response {
	if _, ok := knownVersions[version]; !ok {
		version = DefaultVersion
	}
	if contentType == "" {
		contentType = ContentTypeText
	}
	return &Response{
		version:     version,
		statusCode:  code,
		contentType: contentType,
		connection:  ConnectionClose,
		body:        body,
		handler:     handler,
	}
}

// Text is shorthand for a text/plain response answering req
func Text(req *Request, code int, body, handler string) *Response {
	return NewResponse(req.Version(), code, ContentTypeText, []byte(body), handler)
}

// BadRequest is the fixed response for requests that fail to parse
func BadRequest(req *Request) *Response {
	return Text(req, 400, "Bad Request", "")
}

// StatusCode returns the numeric status
func (r *Response) StatusCode() int {
	return r.statusCode
}

// Version returns the protocol version of the status line
func (r *Response) Version() string {
	return r.version
}

// ContentType returns the Content-Type header value
func (r *Response) ContentType() string {
	return r.contentType
}

// ContentLength returns the body length in bytes
func (r *Response) ContentLength() int {
	return len(r.body)
}

// Connection returns the connection disposition; always "close"
func (r *Response) Connection() string {
	return r.connection
}

// Body returns the body bytes. Callers must not modify it.
func (r *Response) Body() []byte {
	return r.body
}

// Handler returns the label of the handler that produced the response
func (r *Response) Handler() string {
	return r.handler
}

// AppendTo serializes the response onto b and returns the extended slice
func (r *Response) AppendTo(b []byte) []byte {
	b = append(b, r.version...)
	b = append(b, ' ')
	b = appendInt(b, r.statusCode)
	b = append(b, ' ')
	b = append(b, StatusText(r.statusCode)...)
	b = append(b, "\r\n"...)
	b = append(b, HeaderContentType+": "...)
	b = append(b, r.contentType...)
	b = append(b, "\r\n"...)
	b = append(b, HeaderContentLength+": "...)
	b = appendInt(b, len(r.body))
	b = append(b, "\r\n"...)
	b = append(b, HeaderConnection+": "...)
	b = append(b, r.connection...)
	b = append(b, "\r\n\r\n"...)
	return append(b, r.body...)
}

// Bytes serializes the response into a new buffer
func (r *Response) Bytes() []byte {
	return r.AppendTo(make([]byte, 0, 128+len(r.body)))
}

// appendInt appends an integer to a byte slice
func appendInt(b []byte, i int) []byte {
	if i == 0 {
		return append(b, '0')
	}

	if i < 0 {
		b = append(b, '-')
		i = -i
	}

	var digits [20]byte
	n := 0
	for i > 0 {
		digits[n] = byte('0' + i%10)
		i /= 10
		n++
	}

	for n > 0 {
		n--
		b = append(b, digits[n])
	}

	return b
}

// StatusText returns the reason phrase for the given code
func StatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 408:
		return "Request Timeout"
	case 413:
		return "Payload Too Large"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	case 503:
		return "Service Unavailable"
	default:
		return "Unknown"
	}
}
