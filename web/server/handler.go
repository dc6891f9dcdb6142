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

package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caiflower/webserver/pkg/cache"
	"github.com/caiflower/webserver/pkg/logger"
	"github.com/caiflower/webserver/web/compress"
	"github.com/caiflower/webserver/web/html"
	"github.com/caiflower/webserver/web/protocol"
	"github.com/caiflower/webserver/web/router"
)

var allowedMethods = []protocol.Method{protocol.MethodGet, protocol.MethodHead, protocol.MethodOptions}

// CachedBody is an encoded payload together with the encoding and source modification
// time it was produced under.
type CachedBody struct {
	Encoding protocol.Encoding
	ModTime  time.Time
	Body     []byte
}

type FileCache = cache.FIFOCache[string, *CachedBody]

func NewFileCache(capacity int) (*FileCache, error) {
	return cache.NewFIFOCache[string, *CachedBody](capacity)
}

// Interpreter produces the html of a dynamic page.
type Interpreter interface {
	Run(ctx context.Context, script string) ([]byte, error)
}

type HandlerConfig struct {
	ServerName  string
	DynamicExt  string
	Router      *router.Router
	Cache       *FileCache
	Compressor  compress.Compressor
	Interpreter Interpreter
	Logger      logger.ILog
	Metric      *Metric
}

// Handler turns one parsed request into one response. The cache is the only state
// shared between concurrent calls.
type Handler struct {
	cfg    HandlerConfig
	logger logger.ILog
	now    func() time.Time
}

func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Router == nil {
		return nil, errors.New("handler: router is required")
	}
	if cfg.Cache == nil {
		return nil, errors.New("handler: cache is required")
	}
	if cfg.Compressor == nil {
		cfg.Compressor = compress.Default
	}
	log := cfg.Logger
	if log == nil {
		log = logger.DefaultLogger()
	}
	return &Handler{cfg: cfg, logger: log, now: time.Now}, nil
}

func (h *Handler) Handle(ctx context.Context, req *protocol.Request) protocol.Response {
	method := req.Method()
	encoding := protocol.Negotiate(req.AcceptEncoding())
	switch method {
	case protocol.MethodGet, protocol.MethodHead:
	case protocol.MethodOptions:
		return h.finalize(newResponse(204).WithAllow(allowedMethods...))
	default:
		return h.finalize(h.statusPage(405, "", encoding).WithAllow(allowedMethods...))
	}

	outcome := h.cfg.Router.Resolve(req.Path())

	var resp protocol.Response
	switch {
	case outcome.Kind == router.NotFound:
		resp = h.statusPage(404, "", encoding)
	case outcome.Kind == router.Directory:
		resp = h.serveDirectory(outcome, encoding)
	case h.isDynamic(outcome.Path):
		resp = h.serveDynamic(ctx, outcome, encoding)
	case method == protocol.MethodHead:
		resp = newResponse(200).WithContentLength(int(outcome.Size))
	default:
		resp = h.serveFile(outcome, encoding)
	}

	if method == protocol.MethodHead {
		resp = resp.WithoutBody()
	}
	return h.finalize(resp)
}

// HandleParseError answers a request that could not be parsed. The accepted encodings
// are unknown, so the page is sent as is.
func (h *Handler) HandleParseError(err error) protocol.Response {
	code := 400
	if errors.Is(err, protocol.ErrUnsupportedVersion) {
		code = 505
	}
	return h.StatusResponse(code)
}

// StatusResponse is the finalized, unencoded status page of code.
func (h *Handler) StatusResponse(code int) protocol.Response {
	return h.finalize(h.statusPage(code, "", protocol.Identity))
}

func (h *Handler) isDynamic(path string) bool {
	return h.cfg.DynamicExt != "" && strings.EqualFold(filepath.Ext(path), h.cfg.DynamicExt)
}

func (h *Handler) serveDirectory(outcome router.Outcome, encoding protocol.Encoding) protocol.Response {
	if body, ok := h.findCached(outcome, encoding); ok {
		return newResponse(200).WithBody(body, protocol.ContentTypeHTML, encoding)
	}

	builder, err := html.FromDir(outcome.Path, outcome.URLPath)
	if err != nil {
		h.logger.Error("[handler] list directory %s failed. Error: %s", outcome.Path, err.Error())
		return h.statusPage(500, "", encoding)
	}
	body, err := h.cfg.Compressor.Compress(builder.Bytes(), encoding)
	if err != nil {
		h.logger.Error("[handler] compress listing of %s failed. Error: %s", outcome.Path, err.Error())
		return h.statusPage(500, "", encoding)
	}
	h.insertCached(outcome, encoding, body)
	return newResponse(200).WithBody(body, protocol.ContentTypeHTML, encoding)
}

func (h *Handler) serveFile(outcome router.Outcome, encoding protocol.Encoding) protocol.Response {
	contentType := protocol.MimeType(outcome.Path)
	if body, ok := h.findCached(outcome, encoding); ok {
		return newResponse(200).WithBody(body, contentType, encoding)
	}

	data, err := os.ReadFile(outcome.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return h.statusPage(404, "", encoding)
		}
		h.logger.Error("[handler] read %s failed. Error: %s", outcome.Path, err.Error())
		return h.statusPage(500, "", encoding)
	}
	body, err := h.cfg.Compressor.Compress(data, encoding)
	if err != nil {
		h.logger.Error("[handler] compress %s failed. Error: %s", outcome.Path, err.Error())
		return h.statusPage(500, "", encoding)
	}
	h.insertCached(outcome, encoding, body)
	return newResponse(200).WithBody(body, contentType, encoding)
}

func (h *Handler) serveDynamic(ctx context.Context, outcome router.Outcome, encoding protocol.Encoding) protocol.Response {
	if h.cfg.Interpreter == nil {
		h.logger.Error("[handler] no interpreter configured for %s", outcome.Path)
		return h.statusPage(500, "", encoding)
	}

	out, err := h.cfg.Interpreter.Run(ctx, outcome.Path)
	if err != nil {
		h.logger.Error("[handler] interpret %s failed. Error: %s", outcome.Path, err.Error())
		return h.statusPage(500, "", encoding)
	}
	body, err := h.cfg.Compressor.Compress(out, encoding)
	if err != nil {
		h.logger.Error("[handler] compress output of %s failed. Error: %s", outcome.Path, err.Error())
		return h.statusPage(500, "", encoding)
	}
	return newResponse(200).WithBody(body, protocol.ContentTypeHTML, encoding)
}

// findCached only reports a hit for an entry encoded the same way and built from the
// same modification time as the current resource.
func (h *Handler) findCached(outcome router.Outcome, encoding protocol.Encoding) ([]byte, bool) {
	entry, ok := h.cfg.Cache.Find(outcome.Path)
	switch {
	case !ok:
		h.cfg.Metric.saveCacheLookup(cacheMiss)
		return nil, false
	case entry.Encoding != encoding || !entry.ModTime.Equal(outcome.ModTime):
		h.cfg.Metric.saveCacheLookup(cacheStale)
		return nil, false
	default:
		h.cfg.Metric.saveCacheLookup(cacheHit)
		return entry.Body, true
	}
}

func (h *Handler) insertCached(outcome router.Outcome, encoding protocol.Encoding, body []byte) {
	h.cfg.Cache.Insert(outcome.Path, &CachedBody{Encoding: encoding, ModTime: outcome.ModTime, Body: body})
}

// statusPage renders the html page of code. A page that fails to compress is sent
// unencoded.
func (h *Handler) statusPage(code int, note string, encoding protocol.Encoding) protocol.Response {
	page := html.FromStatusCode(code, note).Bytes()
	body, err := h.cfg.Compressor.Compress(page, encoding)
	if err != nil {
		h.logger.Warn("[handler] compress %d page failed. Error: %s", code, err.Error())
		body, encoding = page, protocol.Identity
	}
	return newResponse(code).WithBody(body, protocol.ContentTypeHTML, encoding)
}

func (h *Handler) finalize(resp protocol.Response) protocol.Response {
	return resp.WithDate(h.now()).WithServer(h.cfg.ServerName)
}

// newResponse is only called with codes from the status table.
func newResponse(code int) protocol.Response {
	resp, err := protocol.NewResponse(code)
	if err != nil {
		panic(fmt.Sprintf("handler: %s", err.Error()))
	}
	return resp
}
