package http

import (
	"bytes"
	"strconv"
	"strings"
)

// Recognized start-line tokens
var (
	knownMethods = map[string]struct{}{
		"GET": {}, "HEAD": {}, "POST": {}, "PUT": {}, "DELETE": {},
		"CONNECT": {}, "OPTIONS": {}, "TRACE": {}, "PATCH": {},
	}
	knownVersions = map[string]struct{}{
		"HTTP/1.0": {}, "HTTP/1.1": {},
	}
)

var (
	crlfTerminator = []byte("\r\n\r\n")
	lfTerminator   = []byte("\n\n")
)

// headerEnd returns the offset just past the header terminator, or -1.
// Both CRLF CRLF and a bare LF LF are accepted; whichever ends first wins.
func headerEnd(buf []byte) int {
	end := -1
	if i := bytes.Index(buf, crlfTerminator); i != -1 {
		end = i + len(crlfTerminator)
	}
	if i := bytes.Index(buf, lfTerminator); i != -1 {
		if e := i + len(lfTerminator); end == -1 || e < end {
			end = e
		}
	}
	return end
}

// declaredLength scans a header block for Content-Length. It returns -1 when the
// header is absent or its value is not a non-negative integer.
func declaredLength(block []byte) int {
	for len(block) > 0 {
		lineEnd := bytes.IndexByte(block, '\n')
		var line []byte
		if lineEnd == -1 {
			line, block = block, nil
		} else {
			line, block = block[:lineEnd], block[lineEnd+1:]
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		if !strings.EqualFold(string(line[:colon]), HeaderContentLength) {
			continue
		}
		n, err := strconv.Atoi(string(bytes.TrimSpace(line[colon+1:])))
		if err != nil || n < 0 {
			return -1
		}
		return n
	}
	return -1
}

// FrameRequest decides whether buf holds a complete request. When it does, it
// returns the slice of buf that makes up that request: headers plus exactly the
// declared body. Bytes past the frame belong to nobody and are dropped.
func FrameRequest(buf []byte) ([]byte, bool) {
	end := headerEnd(buf)
	if end == -1 {
		return nil, false
	}

	length := declaredLength(buf[:end])
	if length == -1 {
		return buf[:end], true
	}

	if len(buf)-end < length {
		return nil, false
	}
	return buf[:end+length], true
}

// ParseRequest parses one framed request. It never fails: malformed input yields
// a Request whose Valid reports false, carrying whatever start-line tokens were read.
func ParseRequest(data []byte) *Request {
	req := &Request{raw: append([]byte(nil), data...)}
	rest := req.raw

	line, rest := nextLine(rest)
	tokens := strings.Split(line, " ")
	if len(tokens) != 3 {
		if len(tokens) > 0 {
			req.method = tokens[0]
		}
		return req
	}
	req.method, req.url, req.version = tokens[0], tokens[1], tokens[2]
	if _, ok := knownMethods[req.method]; !ok {
		return req
	}
	if _, ok := knownVersions[req.version]; !ok {
		return req
	}
	if req.url == "" {
		return req
	}

	for {
		if len(rest) == 0 {
			break
		}
		line, rest = nextLine(rest)
		if line == "" {
			break
		}

		colon := strings.IndexByte(line, ':')
		if colon == -1 {
			return req
		}
		name := line[:colon]
		if name == "" || strings.ContainsAny(name, " \t") {
			return req
		}
		if req.HasHeader(name) {
			return req
		}
		value := strings.TrimSpace(line[colon+1:])
		req.headers = append(req.headers, HeaderField{Name: name, Value: value})
	}

	req.body = rest
	req.valid = true
	return req
}

// nextLine splits off one line, accepting CRLF or bare LF endings
func nextLine(data []byte) (string, []byte) {
	i := bytes.IndexByte(data, '\n')
	if i == -1 {
		return strings.TrimSuffix(string(data), "\r"), nil
	}
	return strings.TrimSuffix(string(data[:i]), "\r"), data[i+1:]
}
