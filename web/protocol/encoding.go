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

import "strings"

type Encoding uint8

const (
	Identity Encoding = iota
	Gzip
	Deflate
	Brotli
)

// negotiationOrder never contains Brotli.
var negotiationOrder = []Encoding{Gzip, Deflate}

// Token is the content-coding name used in Accept-Encoding and Content-Encoding.
func (e Encoding) Token() string {
	switch e {
	case Gzip:
		return "gzip"
	case Deflate:
		return "deflate"
	case Brotli:
		return "br"
	default:
		return "identity"
	}
}

func (e Encoding) String() string {
	return e.Token()
}

// EncodingSet is the set of codings a client accepts. The empty set means identity only.
type EncodingSet uint8

func NewEncodingSet(encodings ...Encoding) EncodingSet {
	var s EncodingSet
	for _, e := range encodings {
		s = s.Add(e)
	}
	return s
}

func (s EncodingSet) Add(e Encoding) EncodingSet {
	if e == Identity {
		return s
	}
	return s | 1<<e
}

func (s EncodingSet) Has(e Encoding) bool {
	return e != Identity && s&(1<<e) != 0
}

func (s EncodingSet) IsEmpty() bool {
	return s == 0
}

// List returns the members in Gzip, Deflate, Brotli order.
func (s EncodingSet) List() []Encoding {
	var res []Encoding
	for _, e := range []Encoding{Gzip, Deflate, Brotli} {
		if s.Has(e) {
			res = append(res, e)
		}
	}
	return res
}

func (s EncodingSet) String() string {
	tokens := make([]string, 0, 3)
	for _, e := range s.List() {
		tokens = append(tokens, e.Token())
	}
	return strings.Join(tokens, ", ")
}

// parseAcceptEncoding only checks whether each known token occurs in the value. Quality
// values and ordering are ignored.
func parseAcceptEncoding(value string) EncodingSet {
	value = strings.ToLower(value)
	var s EncodingSet
	for _, e := range []Encoding{Gzip, Deflate, Brotli} {
		if strings.Contains(value, e.Token()) {
			s = s.Add(e)
		}
	}
	return s
}

// Negotiate picks the first of gzip, deflate the client accepts, otherwise identity.
func Negotiate(accepted EncodingSet) Encoding {
	for _, e := range negotiationOrder {
		if accepted.Has(e) {
			return e
		}
	}
	return Identity
}
