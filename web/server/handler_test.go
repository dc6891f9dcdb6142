package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caiflower/webserver/pkg/shell"
	"github.com/caiflower/webserver/web/compress"
	"github.com/caiflower/webserver/web/protocol"
	"github.com/caiflower/webserver/web/router"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.May, 1, 8, 30, 0, 0, time.UTC)

type nopLogger struct{}

func (nopLogger) Trace(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fakeInterpreter struct {
	out   []byte
	err   error
	calls []string
}

func (f *fakeInterpreter) Run(_ context.Context, script string) ([]byte, error) {
	f.calls = append(f.calls, script)
	return f.out, f.err
}

type failingCompressor struct{}

func (failingCompressor) Compress(data []byte, encoding protocol.Encoding) ([]byte, error) {
	if encoding == protocol.Identity {
		return data, nil
	}
	return nil, compress.ErrEncoderFailure
}

func newTestRoot(t *testing.T) string {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>home</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), bytes.Repeat([]byte{'x'}, 1024), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "time.php"), []byte("<?php echo time(); ?>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "b.txt"), []byte("0123456789"), 0o644))
	return root
}

func newTestHandler(t *testing.T, root string, modify func(*HandlerConfig)) *Handler {
	r, err := router.NewRouter(root, "index.html", true)
	require.NoError(t, err)
	fileCache, err := NewFileCache(8)
	require.NoError(t, err)

	cfg := HandlerConfig{
		ServerName: "webserver",
		DynamicExt: ".php",
		Router:     r,
		Cache:      fileCache,
		Logger:     nopLogger{},
		Metric:     NewMetric("test"),
	}
	if modify != nil {
		modify(&cfg)
	}
	h, err := NewHandler(cfg)
	require.NoError(t, err)
	h.now = func() time.Time { return testNow }
	return h
}

func handle(t *testing.T, h *Handler, raw string) protocol.Response {
	req, err := protocol.ParseRequest([]byte(raw))
	require.NoError(t, err)
	return h.Handle(context.Background(), req)
}

func gunzip(t *testing.T, data []byte) string {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	out, err := io.ReadAll(reader)
	require.NoError(t, err)
	return string(out)
}

func TestNewHandlerRequiresCollaborators(t *testing.T) {
	_, err := NewHandler(HandlerConfig{})
	assert.Error(t, err)

	r, err := router.NewRouter(t.TempDir(), "index.html", true)
	require.NoError(t, err)
	_, err = NewHandler(HandlerConfig{Router: r})
	assert.Error(t, err)
}

func TestHandleNotFound(t *testing.T) {
	h := newTestHandler(t, newTestRoot(t), nil)
	resp := handle(t, h, "GET /missing.html HTTP/1.1\r\n\r\n")

	assert.Equal(t, 404, resp.StatusCode())
	assert.Equal(t, protocol.ContentTypeHTML, resp.ContentType())
	assert.Contains(t, string(resp.Body()), "could not be found")
	assert.Equal(t, len(resp.Body()), resp.ContentLength())
	assert.Equal(t, testNow, resp.Date())
	assert.Equal(t, "webserver", resp.Server())
}

func TestHandleHeadFile(t *testing.T) {
	h := newTestHandler(t, newTestRoot(t), nil)
	resp := handle(t, h, "HEAD /blob.bin HTTP/1.1\r\nAccept-Encoding: gzip\r\n\r\n")

	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, 1024, resp.ContentLength())
	assert.False(t, resp.HasBody())

	wire := string(resp.Bytes())
	assert.NotContains(t, wire, "Content-Type")
	assert.NotContains(t, wire, "Content-Encoding")
	assert.Contains(t, wire, "Content-Length: 1024\r\n")
	assert.True(t, strings.HasSuffix(wire, "\r\n\r\n"))
	assert.Equal(t, 0, h.cfg.Cache.Size())
}

func TestHandleOptions(t *testing.T) {
	h := newTestHandler(t, newTestRoot(t), nil)
	resp := handle(t, h, "OPTIONS /index.html HTTP/1.1\r\nAccept-Encoding: gzip\r\n\r\n")

	assert.Equal(t, 204, resp.StatusCode())
	assert.Equal(t, 0, resp.ContentLength())
	assert.Equal(t, []protocol.Method{protocol.MethodGet, protocol.MethodHead, protocol.MethodOptions}, resp.Allow())

	wire := string(resp.Bytes())
	assert.NotContains(t, wire, "Content-Type")
	assert.NotContains(t, wire, "Content-Encoding")
	assert.True(t, strings.HasSuffix(wire, "Allow: GET, HEAD, OPTIONS\r\n\r\n"))
}

func TestHandleMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, newTestRoot(t), nil)
	resp := handle(t, h, "POST /index.html HTTP/1.1\r\n\r\n")

	assert.Equal(t, 405, resp.StatusCode())
	assert.Equal(t, protocol.ContentTypeHTML, resp.ContentType())
	assert.Contains(t, string(resp.Body()), "Method Not Allowed")
}

func TestHandleFileCached(t *testing.T) {
	root := newTestRoot(t)
	h := newTestHandler(t, root, nil)
	raw := "GET / HTTP/1.1\r\nAccept-Encoding: gzip, deflate, br\r\n\r\n"

	first := handle(t, h, raw)
	require.Equal(t, 200, first.StatusCode())
	assert.Equal(t, protocol.Gzip, first.ContentEncoding())
	assert.Equal(t, protocol.ContentTypeHTML, first.ContentType())
	assert.Equal(t, "<h1>home</h1>", gunzip(t, first.Body()))

	second := handle(t, h, raw)
	assert.Equal(t, first.Body(), second.Body())
	assert.Equal(t, []string{filepath.Join(root, "index.html")}, h.cfg.Cache.Keys())

	lookups := h.cfg.Metric.cacheLookupTotal
	assert.Equal(t, 1.0, testutil.ToFloat64(lookups.WithLabelValues(cacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(lookups.WithLabelValues(cacheHit)))
}

func TestHandleCacheEncodingMismatch(t *testing.T) {
	h := newTestHandler(t, newTestRoot(t), nil)

	gz := handle(t, h, "GET /docs/b.txt HTTP/1.1\r\nAccept-Encoding: gzip\r\n\r\n")
	require.Equal(t, protocol.Gzip, gz.ContentEncoding())

	plain := handle(t, h, "GET /docs/b.txt HTTP/1.1\r\n\r\n")
	assert.Equal(t, protocol.Identity, plain.ContentEncoding())
	assert.Equal(t, "0123456789", string(plain.Body()))
	assert.Equal(t, "text/plain;charset=utf-8", plain.ContentType())
	assert.Equal(t, 1, h.cfg.Cache.Size())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.cfg.Metric.cacheLookupTotal.WithLabelValues(cacheStale)))
}

func TestHandleCacheModifiedFile(t *testing.T) {
	root := newTestRoot(t)
	h := newTestHandler(t, root, nil)
	target := filepath.Join(root, "docs", "b.txt")

	resp := handle(t, h, "GET /docs/b.txt HTTP/1.1\r\n\r\n")
	require.Equal(t, "0123456789", string(resp.Body()))

	require.NoError(t, os.WriteFile(target, []byte("changed"), 0o644))
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(target, later, later))

	resp = handle(t, h, "GET /docs/b.txt HTTP/1.1\r\n\r\n")
	assert.Equal(t, "changed", string(resp.Body()))
	assert.Equal(t, 7, resp.ContentLength())
}

func TestHandleDirectoryListing(t *testing.T) {
	root := newTestRoot(t)
	h := newTestHandler(t, root, nil)

	resp := handle(t, h, "GET /docs/ HTTP/1.1\r\n\r\n")
	require.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, protocol.ContentTypeHTML, resp.ContentType())

	page := string(resp.Body())
	assert.Contains(t, page, `<a href="/docs/a/">a/</a>`)
	assert.Contains(t, page, "10.0 B")
	assert.Less(t, strings.Index(page, ">a/<"), strings.Index(page, ">b.txt<"))
	assert.Equal(t, []string{filepath.Join(root, "docs")}, h.cfg.Cache.Keys())

	head := handle(t, h, "HEAD /docs HTTP/1.1\r\n\r\n")
	assert.Equal(t, 200, head.StatusCode())
	assert.Equal(t, len(page), head.ContentLength())
	assert.False(t, head.HasBody())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.cfg.Metric.cacheLookupTotal.WithLabelValues(cacheHit)))
}

func TestHandleDynamic(t *testing.T) {
	root := newTestRoot(t)
	interpreter := &fakeInterpreter{out: []byte("<p>1700000000</p>")}
	h := newTestHandler(t, root, func(cfg *HandlerConfig) { cfg.Interpreter = interpreter })

	resp := handle(t, h, "GET /time.php HTTP/1.1\r\nAccept-Encoding: gzip\r\n\r\n")
	require.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, protocol.ContentTypeHTML, resp.ContentType())
	assert.Equal(t, "<p>1700000000</p>", gunzip(t, resp.Body()))
	assert.Equal(t, []string{filepath.Join(root, "time.php")}, interpreter.calls)
	assert.Equal(t, 0, h.cfg.Cache.Size())
}

func TestHandleDynamicFailure(t *testing.T) {
	tests := []struct {
		name        string
		interpreter Interpreter
	}{
		{name: "non-zero exit", interpreter: &fakeInterpreter{err: &shell.ExitError{Name: "php", Code: 255, Err: errors.New("exit status 255")}}},
		{name: "launch failed", interpreter: &fakeInterpreter{err: shell.ErrLaunchFailed}},
		{name: "no interpreter", interpreter: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, newTestRoot(t), func(cfg *HandlerConfig) { cfg.Interpreter = tt.interpreter })
			resp := handle(t, h, "GET /time.php HTTP/1.1\r\n\r\n")
			assert.Equal(t, 500, resp.StatusCode())
			assert.Contains(t, string(resp.Body()), "Internal Server Error")
		})
	}
}

func TestHandleCompressionFailure(t *testing.T) {
	h := newTestHandler(t, newTestRoot(t), func(cfg *HandlerConfig) { cfg.Compressor = failingCompressor{} })

	resp := handle(t, h, "GET /docs/b.txt HTTP/1.1\r\nAccept-Encoding: gzip\r\n\r\n")
	assert.Equal(t, 500, resp.StatusCode())
	assert.Equal(t, protocol.Identity, resp.ContentEncoding())
	assert.Contains(t, string(resp.Body()), "<h2>500</h2>")
	assert.Equal(t, 0, h.cfg.Cache.Size())

	plain := handle(t, h, "GET /docs/b.txt HTTP/1.1\r\n\r\n")
	assert.Equal(t, 200, plain.StatusCode())
}

func TestHandleParseError(t *testing.T) {
	h := newTestHandler(t, newTestRoot(t), nil)

	_, err := protocol.ParseRequest([]byte("GET / HTTP/1.0\r\n\r\n"))
	require.Error(t, err)
	resp := h.HandleParseError(err)
	assert.Equal(t, 505, resp.StatusCode())
	assert.Equal(t, "HTTP Version Not Supported", resp.Reason())

	_, err = protocol.ParseRequest([]byte("GET /\r\n\r\n"))
	require.Error(t, err)
	resp = h.HandleParseError(err)
	assert.Equal(t, 400, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "Bad Request")
}

func TestHandleConcurrent(t *testing.T) {
	h := newTestHandler(t, newTestRoot(t), nil)
	paths := []string{"/", "/docs/", "/docs/b.txt", "/blob.bin", "/missing"}

	done := make(chan protocol.Response)
	for i := 0; i < 50; i++ {
		go func(i int) {
			req, _ := protocol.ParseRequest([]byte("GET " + paths[i%len(paths)] + " HTTP/1.1\r\nAccept-Encoding: gzip\r\n\r\n"))
			done <- h.Handle(context.Background(), req)
		}(i)
	}
	for i := 0; i < 50; i++ {
		resp := <-done
		assert.Contains(t, []int{200, 404}, resp.StatusCode())
		assert.Equal(t, len(resp.Body()), resp.ContentLength())
	}
	assert.LessOrEqual(t, h.cfg.Cache.Size(), 4)
}

func TestStatusResponse(t *testing.T) {
	h := newTestHandler(t, newTestRoot(t), nil)
	resp := h.StatusResponse(503)

	assert.Equal(t, 503, resp.StatusCode())
	assert.Equal(t, protocol.Identity, resp.ContentEncoding())
	assert.Contains(t, string(resp.Body()), "Service Unavailable")
	assert.Equal(t, "webserver", resp.Server())
}
