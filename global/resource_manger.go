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

package global

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/caiflower/webserver/pkg/logger"
	"github.com/caiflower/webserver/pkg/syncx"
)

// DefaultResourceManger
// starts daemons such as the web server and the cron manager, and closes every resource
// in order once the process is asked to stop.

type Resource interface {
	Close()
}

type DaemonResource interface {
	Resource
	Name() string
	Start() error
}

type packageResource struct {
	Resource
	DaemonResource
	order int
}

func (p *packageResource) Name() string {
	if p.DaemonResource != nil {
		return p.DaemonResource.Name()
	}
	return "packageResource"
}

func (p *packageResource) Close() {
	if p.DaemonResource != nil {
		p.DaemonResource.Close()
	} else {
		p.Resource.Close()
	}
}

func (p *packageResource) Start() error {
	if p.DaemonResource != nil {
		return p.DaemonResource.Start()
	}
	return nil
}

type resourceManger struct {
	lock                sync.Locker
	resources           []Resource
	daemons             []DaemonResource
	pagePackageResource []packageResource
	running             bool
}

var DefaultResourceManger = NewResourceManger()

func NewResourceManger() *resourceManger {
	return &resourceManger{lock: syncx.NewSpinLock()}
}

func (rm *resourceManger) Add(resource Resource) {
	rm.lock.Lock()
	defer rm.lock.Unlock()

	for _, v := range rm.resources {
		if v == resource {
			return
		}
	}

	rm.resources = append(rm.resources, resource)
	rm.pagePackageResource = append(rm.pagePackageResource, packageResource{Resource: resource, order: 1000000000})
}

// AddDaemonWithOrder registers a daemon. Higher orders start first and close first.
func (rm *resourceManger) AddDaemonWithOrder(daemon DaemonResource, order int) {
	rm.lock.Lock()
	defer rm.lock.Unlock()

	for _, v := range rm.daemons {
		if v == daemon {
			return
		}
	}

	rm.daemons = append(rm.daemons, daemon)
	rm.pagePackageResource = append(rm.pagePackageResource, packageResource{DaemonResource: daemon, order: order})
}

func (rm *resourceManger) AddDaemon(daemon DaemonResource) {
	rm.AddDaemonWithOrder(daemon, 100000)
}

// Signal runs the registered resources until SIGHUP, SIGINT, SIGTERM or SIGQUIT arrives.
func (rm *resourceManger) Signal() error {
	sign := make(chan os.Signal, 1)
	signal.Notify(sign, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sign)

	return rm.Run(sign)
}

// Run starts every daemon, blocks until stop delivers a signal and then closes all
// resources. When a daemon fails to start, the ones already started are closed and the
// error is returned.
func (rm *resourceManger) Run(stop <-chan os.Signal) error {
	rm.lock.Lock()
	if rm.running {
		rm.lock.Unlock()
		return fmt.Errorf("resource manager is already running")
	}
	rm.running = true

	sort.SliceStable(rm.pagePackageResource, func(i, j int) bool {
		return rm.pagePackageResource[i].order > rm.pagePackageResource[j].order
	})
	resources := append([]packageResource(nil), rm.pagePackageResource...)
	rm.lock.Unlock()

	defer func() {
		rm.lock.Lock()
		rm.running = false
		rm.lock.Unlock()
	}()

	for i := range resources {
		if err := resources[i].Start(); err != nil {
			logger.Error("Start '%s' resource failed. Error: %s", resources[i].Name(), err.Error())
			destroy(resources[:i])
			return fmt.Errorf("start %s: %w", resources[i].Name(), err)
		}
	}

	s := <-stop
	logger.Info("Accept signal %s. The application is shutting down...", s)
	destroy(resources)
	return nil
}

func destroy(resources []packageResource) {
	for i := range resources {
		resources[i].Close()
	}
}
