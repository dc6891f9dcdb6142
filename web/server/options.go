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
	"runtime"
	"time"

	"github.com/caiflower/webserver/pkg/tools"
)

const autoCacheCapacity = 64

type Option func(*Options) *Options

type Options struct {
	Name               string        `yaml:"name" default:"default"`
	Addr               string        `yaml:"addr" default:"127.0.0.1:7878"`
	WwwRoot            string        `yaml:"wwwRoot" default:"files/html"`
	Index              string        `yaml:"index" default:"index.html"` // relative to WwwRoot unless absolute
	ServerName         string        `yaml:"serverName" default:"webserver"`
	Workers            int           `yaml:"workers"` // 0 means runtime.NumCPU()*4
	QueueSize          int           `yaml:"queueSize" default:"1024"`
	ReadBufferSize     int           `yaml:"readBufferSize" default:"1024"`
	ReadTimeout        time.Duration `yaml:"readTimeout"`
	WriteTimeout       time.Duration `yaml:"writeTimeout"`
	CacheCapacity      int           `yaml:"cacheCapacity"` // 0 means auto
	Interpreter        string        `yaml:"interpreter" default:"php"`
	InterpreterTimeout time.Duration `yaml:"interpreterTimeout" default:"10s"`
	DynamicExt         string        `yaml:"dynamicExt" default:".php"`
	ConfineToRoot      *bool         `yaml:"confineToRoot" default:"true"`
	Qps                int           `yaml:"qps"` // 0 means unlimited
	MetricsAddr        string        `yaml:"metricsAddr"`
	CacheReportCron    string        `yaml:"cacheReportCron" default:"0 */1 * * * *"`
}

func NewOptions(opts []Option) *Options {
	options := &Options{}
	_ = tools.SetDefaults(options)

	for _, opt := range opts {
		options = opt(options)
	}
	return options
}

func (o *Options) WorkerNum() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU() * 4
}

func (o *Options) CacheSize() int {
	if o.CacheCapacity > 0 {
		return o.CacheCapacity
	}
	return autoCacheCapacity
}

func (o *Options) Confined() bool {
	return o.ConfineToRoot == nil || *o.ConfineToRoot
}

func WithName(name string) Option {
	return func(opts *Options) *Options {
		opts.Name = name
		return opts
	}
}

func WithAddr(addr string) Option {
	return func(opts *Options) *Options {
		opts.Addr = addr
		return opts
	}
}

func WithWwwRoot(root string) Option {
	return func(opts *Options) *Options {
		opts.WwwRoot = root
		return opts
	}
}

func WithIndex(index string) Option {
	return func(opts *Options) *Options {
		opts.Index = index
		return opts
	}
}

func WithServerName(serverName string) Option {
	return func(opts *Options) *Options {
		opts.ServerName = serverName
		return opts
	}
}

func WithWorkers(workers, queueSize int) Option {
	return func(opts *Options) *Options {
		opts.Workers = workers
		opts.QueueSize = queueSize
		return opts
	}
}

func WithReadBufferSize(size int) Option {
	return func(opts *Options) *Options {
		opts.ReadBufferSize = size
		return opts
	}
}

func WithReadTimeout(readTimeout time.Duration) Option {
	return func(opts *Options) *Options {
		opts.ReadTimeout = readTimeout
		return opts
	}
}

func WithWriteTimeout(writeTimeout time.Duration) Option {
	return func(opts *Options) *Options {
		opts.WriteTimeout = writeTimeout
		return opts
	}
}

func WithCacheCapacity(capacity int) Option {
	return func(opts *Options) *Options {
		opts.CacheCapacity = capacity
		return opts
	}
}

func WithInterpreter(command string, timeout time.Duration) Option {
	return func(opts *Options) *Options {
		opts.Interpreter = command
		opts.InterpreterTimeout = timeout
		return opts
	}
}

func WithDynamicExt(ext string) Option {
	return func(opts *Options) *Options {
		opts.DynamicExt = ext
		return opts
	}
}

func WithConfineToRoot(confine bool) Option {
	return func(opts *Options) *Options {
		opts.ConfineToRoot = &confine
		return opts
	}
}

func WithQps(qps int) Option {
	return func(opts *Options) *Options {
		opts.Qps = qps
		return opts
	}
}

func WithMetricsAddr(addr string) Option {
	return func(opts *Options) *Options {
		opts.MetricsAddr = addr
		return opts
	}
}
