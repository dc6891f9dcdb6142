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

package pool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caiflower/webserver/pkg/e"
)

var ErrPoolClosed = errors.New("pool closed")

// WorkerPool runs submitted tasks on a fixed number of goroutines. A panicking task is
// recovered and reported to OnPanic, the worker keeps running.
type WorkerPool struct {
	size    int
	tasks   chan func()
	lock    sync.RWMutex
	wg      sync.WaitGroup
	closed  bool
	started bool
	OnPanic func(r interface{}, stack string)
}

func NewWorkerPool(size, queueSize int) (*WorkerPool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid worker pool size %d", size)
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &WorkerPool{
		size:  size,
		tasks: make(chan func(), queueSize),
	}, nil
}

func (p *WorkerPool) Start() {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for fn := range p.tasks {
				p.run(fn)
			}
		}()
	}
}

func (p *WorkerPool) run(fn func()) {
	if p.OnPanic != nil {
		defer e.OnErrorFunc(p.OnPanic)
	} else {
		defer e.OnError("[pool] task")
	}
	fn()
}

// Submit queues fn, blocking while the queue is full.
func (p *WorkerPool) Submit(fn func()) error {
	if fn == nil {
		return fmt.Errorf("nil func error")
	}
	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- fn
	return nil
}

func (p *WorkerPool) Size() int {
	return p.size
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *WorkerPool) Close() {
	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	started := p.started
	p.lock.Unlock()

	if started {
		p.wg.Wait()
	}
}
