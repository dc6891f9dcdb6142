/*
 * Copyright 2024 caiflower Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package protocol

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Response is built by value: every With* call returns an updated copy. The zero
// content type and Identity encoding mean the header is absent.
type Response struct {
	version       string
	statusCode    int
	reason        string
	contentType   string
	contentLength int
	encoding      Encoding
	date          time.Time
	server        string
	allow         []Method
	body          []byte
	hasBody       bool
}

// NewResponse fails with ErrUnknownStatus when code has no reason phrase.
func NewResponse(code int) (Response, error) {
	return Response{version: Version}.WithStatus(code)
}

func (r Response) WithStatus(code int) (Response, error) {
	reason, err := statusText(code)
	if err != nil {
		return r, err
	}
	r.statusCode = code
	r.reason = reason
	return r, nil
}

// WithBody sets the payload, which must already be encoded with encoding.
func (r Response) WithBody(body []byte, contentType string, encoding Encoding) Response {
	if body == nil {
		body = []byte{}
	}
	r.body = body
	r.hasBody = true
	r.contentType = contentType
	r.encoding = encoding
	r.contentLength = len(body)
	return r
}

// WithoutBody drops the payload together with its type and encoding. The content length
// of the dropped payload is kept, which is what a HEAD response reports.
func (r Response) WithoutBody() Response {
	r.body = nil
	r.hasBody = false
	r.contentType = ""
	r.encoding = Identity
	return r
}

// WithContentLength sets the length reported for a response without body.
func (r Response) WithContentLength(n int) Response {
	if !r.hasBody {
		r.contentLength = n
	}
	return r
}

func (r Response) WithServer(server string) Response {
	r.server = server
	return r
}

func (r Response) WithAllow(methods ...Method) Response {
	r.allow = append([]Method(nil), methods...)
	return r
}

func (r Response) WithDate(date time.Time) Response {
	r.date = date
	return r
}

func (r Response) StatusCode() int           { return r.statusCode }
func (r Response) Reason() string            { return r.reason }
func (r Response) ContentType() string       { return r.contentType }
func (r Response) ContentLength() int        { return r.contentLength }
func (r Response) ContentEncoding() Encoding { return r.encoding }
func (r Response) Date() time.Time           { return r.date }
func (r Response) Server() string            { return r.server }
func (r Response) Allow() []Method           { return r.allow }
func (r Response) Body() []byte              { return r.body }
func (r Response) HasBody() bool             { return r.hasBody }

// Header renders the status line and the present headers, terminated by the blank line.
func (r Response) Header() []byte {
	var buf bytes.Buffer
	buf.Grow(128)

	buf.WriteString("HTTP/")
	buf.WriteString(r.version)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(r.statusCode))
	buf.WriteByte(' ')
	buf.WriteString(r.reason)
	buf.WriteString(CRLF)

	if r.hasBody && r.contentType != "" {
		writeHeader(&buf, "Content-Type", r.contentType)
	}
	if r.hasBody && r.encoding != Identity {
		writeHeader(&buf, "Content-Encoding", r.encoding.Token())
	}
	writeHeader(&buf, "Content-Length", strconv.Itoa(r.contentLength))
	if !r.date.IsZero() {
		writeHeader(&buf, "Date", r.date.UTC().Format(http.TimeFormat))
	}
	if r.server != "" {
		writeHeader(&buf, "Server", r.server)
	}
	if len(r.allow) > 0 {
		methods := make([]string, len(r.allow))
		for i, m := range r.allow {
			methods[i] = string(m)
		}
		writeHeader(&buf, "Allow", strings.Join(methods, ", "))
	}

	buf.WriteString(CRLF)
	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString(CRLF)
}

// Bytes serializes the whole response.
func (r Response) Bytes() []byte {
	header := r.Header()
	if !r.hasBody {
		return header
	}
	out := make([]byte, 0, len(header)+len(r.body))
	out = append(out, header...)
	return append(out, r.body...)
}

// WriteTo writes the header and body without joining them.
func (r Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Header())
	total := int64(n)
	if err != nil || !r.hasBody || len(r.body) == 0 {
		return total, err
	}
	n, err = w.Write(r.body)
	return total + int64(n), err
}
