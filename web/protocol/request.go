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
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	CRLF    = "\r\n"
	Version = "1.1"

	versionToken    = "HTTP/" + Version
	headerDelimiter = ": "
)

type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodPost    Method = "POST"
)

var supportedMethods = map[string]Method{
	string(MethodGet):     MethodGet,
	string(MethodHead):    MethodHead,
	string(MethodOptions): MethodOptions,
	string(MethodPost):    MethodPost,
}

var (
	ErrNotUtf8            = errors.New("request is not valid utf-8")
	ErrUnsupportedMethod  = errors.New("unsupported method")
	ErrUnsupportedVersion = errors.New("unsupported http version")
	ErrMalformed          = errors.New("malformed request")
)

// ParseError wraps one of ErrNotUtf8, ErrUnsupportedMethod, ErrUnsupportedVersion or
// ErrMalformed.
type ParseError struct {
	Kind   error
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

func parseError(kind error, format string, v ...interface{}) *ParseError {
	return &ParseError{Kind: kind, Detail: fmt.Sprintf(format, v...)}
}

// Request is a parsed request. It is read-only after ParseRequest returns.
type Request struct {
	method         Method
	path           string
	version        string
	userAgent      string
	acceptEncoding EncodingSet
}

func (r *Request) Method() Method {
	return r.method
}

func (r *Request) Path() string {
	return r.path
}

func (r *Request) Version() string {
	return r.version
}

func (r *Request) UserAgent() string {
	return r.userAgent
}

func (r *Request) AcceptEncoding() EncodingSet {
	return r.acceptEncoding
}

// ParseRequest parses the request line and the User-Agent and Accept-Encoding headers
// out of a single read buffer. Other headers and any body are ignored.
func ParseRequest(buf []byte) (*Request, error) {
	if !utf8.Valid(buf) {
		return nil, &ParseError{Kind: ErrNotUtf8}
	}

	// a buffer without CRLF is a bare request line with no headers
	text := string(buf)
	requestLine, headers := text, ""
	if lineEnd := strings.Index(text, CRLF); lineEnd != -1 {
		requestLine, headers = text[:lineEnd], text[lineEnd+len(CRLF):]
	}

	req := &Request{}
	var err error
	if req.method, req.path, req.version, err = parseRequestLine(requestLine); err != nil {
		return nil, err
	}

	userAgentFound, acceptEncodingFound := false, false
	for _, line := range strings.Split(headers, CRLF) {
		if line == "" {
			break
		}
		delim := strings.Index(line, headerDelimiter)
		if delim == -1 {
			continue
		}
		name := line[:delim]
		value := line[delim+len(headerDelimiter):]

		switch {
		case !userAgentFound && strings.EqualFold(name, "User-Agent"):
			req.userAgent = value
			userAgentFound = true
		case !acceptEncodingFound && strings.EqualFold(name, "Accept-Encoding"):
			req.acceptEncoding = parseAcceptEncoding(value)
			acceptEncodingFound = true
		}
		if userAgentFound && acceptEncodingFound {
			break
		}
	}

	return req, nil
}

func parseRequestLine(line string) (method Method, path, version string, err error) {
	tokens := strings.Split(line, " ")
	if len(tokens) != 3 {
		return "", "", "", parseError(ErrMalformed, "request line %q has %d tokens", line, len(tokens))
	}
	if tokens[1] == "" {
		return "", "", "", parseError(ErrMalformed, "empty request target")
	}

	var ok bool
	if method, ok = supportedMethods[strings.ToUpper(tokens[0])]; !ok {
		return "", "", "", parseError(ErrUnsupportedMethod, "%q", tokens[0])
	}
	if !strings.EqualFold(tokens[2], versionToken) {
		return "", "", "", parseError(ErrUnsupportedVersion, "%q", tokens[2])
	}

	return method, tokens[1], Version, nil
}
