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

package limiter

import (
	"context"
	"sync"
	"time"
)

// TokenBucket holds up to qps tokens and adds one every 1s/qps.
type TokenBucket struct {
	qps    int
	clock  time.Duration
	bucket chan struct{}
	lock   sync.Mutex
	cancel context.CancelFunc
}

func NewTokenBucket(qps int) *TokenBucket {
	if qps <= 0 {
		qps = 1
	}
	return &TokenBucket{
		qps:    qps,
		clock:  time.Second / time.Duration(qps),
		bucket: make(chan struct{}, qps),
	}
}

// Startup fills the bucket and starts refilling it.
func (l *TokenBucket) Startup() {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.cancel != nil {
		return
	}

	for len(l.bucket) < l.qps {
		l.bucket <- struct{}{}
	}

	var ctx context.Context
	ctx, l.cancel = context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(l.clock)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case l.bucket <- struct{}{}:
				default:
					// bucket is full
				}
			}
		}
	}()
}

// Close stops refilling. Tokens left in the bucket can still be taken.
func (l *TokenBucket) Close() {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *TokenBucket) TakeToken() {
	<-l.bucket
}

func (l *TokenBucket) TakeTokenNonBlocking() bool {
	select {
	case <-l.bucket:
		return true
	default:
		return false
	}
}

func (l *TokenBucket) TakeTokenWithTimeout(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.bucket:
		return true
	case <-timer.C:
		return false
	}
}
