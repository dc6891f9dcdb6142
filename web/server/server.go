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
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	golocalv1 "github.com/caiflower/webserver/pkg/golocal/v1"
	"github.com/caiflower/webserver/pkg/limiter"
	"github.com/caiflower/webserver/pkg/logger"
	"github.com/caiflower/webserver/pkg/pool"
	"github.com/caiflower/webserver/pkg/safego"
	"github.com/caiflower/webserver/pkg/shell"
	"github.com/caiflower/webserver/pkg/tools"
	"github.com/caiflower/webserver/web/protocol"
	"github.com/caiflower/webserver/web/router"
)

// Server accepts connections and answers exactly one request on each of them.
type Server struct {
	opts    Options
	logger  logger.ILog
	handler *Handler
	cache   *FileCache
	metric  *Metric
	pool    *pool.WorkerPool

	lock          sync.Mutex
	listener      net.Listener
	limiter       *limiter.TokenBucket
	metricsServer *http.Server
	ctx           context.Context
	cancel        context.CancelFunc
	acceptWg      sync.WaitGroup
	running       bool
	conns         map[net.Conn]struct{}
}

func NewServer(opts Options, log logger.ILog) (*Server, error) {
	if err := tools.SetDefaults(&opts); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.DefaultLogger()
	}

	r, err := router.NewRouter(opts.WwwRoot, opts.Index, opts.Confined())
	if err != nil {
		return nil, err
	}
	fileCache, err := NewFileCache(opts.CacheSize())
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:   opts,
		logger: log,
		cache:  fileCache,
		metric: NewMetric(opts.Name),
		conns:  make(map[net.Conn]struct{}),
	}

	handlerConfig := HandlerConfig{
		ServerName: opts.ServerName,
		DynamicExt: opts.DynamicExt,
		Router:     r,
		Cache:      fileCache,
		Logger:     log,
		Metric:     s.metric,
	}
	if opts.Interpreter != "" {
		handlerConfig.Interpreter = shell.NewInterpreter(opts.Interpreter, opts.InterpreterTimeout)
	}
	if s.handler, err = NewHandler(handlerConfig); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Server) Name() string {
	return fmt.Sprintf("WEB_SERVER:%s", s.opts.Name)
}

func (s *Server) Handler() *Handler {
	return s.handler
}

func (s *Server) Cache() *FileCache {
	return s.cache
}

func (s *Server) Metric() *Metric {
	return s.metric
}

// Addr is the bound listen address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.running {
		return nil
	}

	workers, err := pool.NewWorkerPool(s.opts.WorkerNum(), s.opts.QueueSize)
	if err != nil {
		return err
	}
	workers.OnPanic = func(r interface{}, stack string) {
		s.logger.Error("[server] connection task panic: %v\n%s", r, stack)
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	if s.opts.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metric.Handler())
		s.metricsServer = &http.Server{Addr: s.opts.MetricsAddr, Handler: mux}
		srv := s.metricsServer
		safego.Go(func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("[server] metrics endpoint %s stopped. Error: %s", srv.Addr, err.Error())
			}
		})
	}
	if s.opts.Qps > 0 {
		s.limiter = limiter.NewTokenBucket(s.opts.Qps)
		s.limiter.Startup()
	}

	s.pool = workers
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true
	s.pool.Start()

	s.acceptWg.Add(1)
	safego.Go(func() { s.acceptLoop(listener) })

	s.logger.Info(
		"\n***************************** web server startup ************************************************\n"+
			"************* web service [name:%s] [root:%s] listening on %s *********\n"+
			"*************************************************************************************************", s.opts.Name, s.opts.WwwRoot, listener.Addr())
	return nil
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.acceptWg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("[server] accept failed. Error: %s", err.Error())
			time.Sleep(5 * time.Millisecond)
			continue
		}

		if !s.trackConn(conn) {
			_ = conn.Close()
			continue
		}
		if err = s.pool.Submit(func() { s.serveConn(conn) }); err != nil {
			s.logger.Warn("[server] drop connection from %s. Error: %s", conn.RemoteAddr(), err.Error())
			s.untrackConn(conn)
			_ = conn.Close()
		}
	}
}

// serveConn reads a single buffer, answers it and closes the connection.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)

	golocalv1.PutTraceID(tools.UUID())
	defer golocalv1.Clean()

	start := time.Now()
	s.lock.Lock()
	// once closing, the deadline set by Close must not be pushed back
	if s.running && s.opts.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(start.Add(s.opts.ReadTimeout))
	}
	s.lock.Unlock()

	buf := make([]byte, s.opts.ReadBufferSize)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		if !errors.Is(err, io.EOF) {
			s.logger.Debug("[server] read from %s failed. Error: %s", conn.RemoteAddr(), err.Error())
		}
		return
	}

	var (
		resp   protocol.Response
		method = "-"
		path   = "-"
	)
	req, err := protocol.ParseRequest(buf[:n])
	switch {
	case err != nil:
		s.logger.Warn("[server] bad request from %s. Error: %s", conn.RemoteAddr(), err.Error())
		resp = s.handler.HandleParseError(err)
	case s.limiter != nil && !s.limiter.TakeTokenNonBlocking():
		method, path = string(req.Method()), req.Path()
		resp = s.handler.StatusResponse(503)
	default:
		method, path = string(req.Method()), req.Path()
		resp = s.handler.Handle(s.ctx, req)
	}

	if s.opts.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	if _, err = resp.WriteTo(conn); err != nil {
		s.logger.Warn("[server] write to %s failed. Error: %s", conn.RemoteAddr(), err.Error())
	}

	cost := time.Since(start)
	s.metric.saveRequest(resp.StatusCode(), method, cost)
	s.logger.Info("[server] %s %s %s %d %d %dms", conn.RemoteAddr(), method, path, resp.StatusCode(), resp.ContentLength(), cost.Milliseconds())
}

// ReportCache logs the cache statistics and publishes them as gauges.
func (s *Server) ReportCache() {
	stats := s.cache.Stats()
	s.metric.saveCacheStats(stats)
	s.logger.Info("[server] file cache %s", tools.ToJson(stats))
}

func (s *Server) trackConn(conn net.Conn) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.running {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrackConn(conn net.Conn) {
	s.lock.Lock()
	delete(s.conns, conn)
	s.lock.Unlock()
}

// interruptReads expires the read deadline of every live connection so that peers
// which never send a request cannot hold the worker pool open.
func (s *Server) interruptReads() {
	s.lock.Lock()
	defer s.lock.Unlock()
	now := time.Now()
	for conn := range s.conns {
		_ = conn.SetReadDeadline(now)
	}
}

func (s *Server) Close() {
	s.lock.Lock()
	if !s.running {
		s.lock.Unlock()
		return
	}
	s.running = false
	listener, workers, metricsServer, bucket := s.listener, s.pool, s.metricsServer, s.limiter
	s.lock.Unlock()

	s.logger.Info("      **** web server shutdown ****")
	_ = listener.Close()
	s.acceptWg.Wait()
	s.interruptReads()
	workers.Close()
	s.cancel()
	if bucket != nil {
		bucket.Close()
	}

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			s.logger.Warn(" **** metrics endpoint shutdown error **** \n"+
				"**** error:%s ****", err.Error())
		}
	}
	s.logger.Info(" **** web server gracefully shutdown ****")
}
