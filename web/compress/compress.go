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

package compress

import (
	"errors"
	"fmt"

	"github.com/caiflower/webserver/pkg/tools"
	"github.com/caiflower/webserver/web/protocol"
)

var ErrEncoderFailure = errors.New("encoder failure")

// Compressor encodes a payload with one content-coding.
type Compressor interface {
	Compress(data []byte, encoding protocol.Encoding) ([]byte, error)
}

type codec func([]byte) ([]byte, error)

var codecs = map[protocol.Encoding]codec{
	protocol.Gzip:    tools.Gzip,
	protocol.Deflate: tools.Deflate,
	protocol.Brotli:  tools.Brotli,
}

// Compress returns data unchanged for Identity. Encoder errors are wrapped with
// ErrEncoderFailure.
func Compress(data []byte, encoding protocol.Encoding) ([]byte, error) {
	if encoding == protocol.Identity {
		return data, nil
	}
	fn, ok := codecs[encoding]
	if !ok {
		return nil, fmt.Errorf("%w: unknown encoding %d", ErrEncoderFailure, encoding)
	}
	out, err := fn(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncoderFailure, encoding, err)
	}
	return out, nil
}

type defaultCompressor struct{}

func (defaultCompressor) Compress(data []byte, encoding protocol.Encoding) ([]byte, error) {
	return Compress(data, encoding)
}

// Default compresses with the package codecs.
var Default Compressor = defaultCompressor{}
