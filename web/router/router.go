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

package router

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

type Kind uint8

const (
	NotFound Kind = iota
	File
	Directory
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "not found"
	}
}

// Outcome is the classification of a request path. Path is the absolute filesystem path
// and URLPath the decoded, cleaned request path. Both are empty for NotFound.
type Outcome struct {
	Kind    Kind
	Path    string
	URLPath string
	Size    int64
	ModTime time.Time
}

func notFound() Outcome {
	return Outcome{Kind: NotFound}
}

type Router struct {
	root     string
	realRoot string
	index    string
	confine  bool
}

// NewRouter resolves root to an absolute path. A relative index is taken relative to root.
// With confine set, paths that escape root resolve to NotFound, including paths that
// only escape through a symbolic link.
func NewRouter(root, index string, confine bool) (*Router, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		realRoot = absRoot
	}
	if !filepath.IsAbs(index) {
		index = filepath.Join(absRoot, index)
	}
	return &Router{root: absRoot, realRoot: realRoot, index: index, confine: confine}, nil
}

func (r *Router) Root() string {
	return r.root
}

func (r *Router) Index() string {
	return r.index
}

// Resolve maps a request target to a filesystem resource with a single stat call. The
// query string and fragment are ignored and the path is percent-decoded first. "/" maps
// to the index resource.
func (r *Router) Resolve(target string) Outcome {
	urlPath, ok := decodePath(target)
	if !ok {
		return notFound()
	}

	var fsPath string
	if urlPath == "/" {
		fsPath = r.index
	} else {
		fsPath = filepath.Join(r.root, filepath.FromSlash(strings.TrimPrefix(urlPath, "/")))
		if r.confine && !within(r.root, fsPath) {
			return notFound()
		}
	}

	info, err := os.Stat(fsPath)
	if err != nil {
		return notFound()
	}
	if r.confine && urlPath != "/" {
		realPath, err := filepath.EvalSymlinks(fsPath)
		if err != nil || !within(r.realRoot, realPath) {
			return notFound()
		}
	}

	outcome := Outcome{
		Kind:    File,
		Path:    fsPath,
		URLPath: path.Clean(urlPath),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if info.IsDir() {
		outcome.Kind = Directory
	} else if !info.Mode().IsRegular() {
		return notFound()
	}
	return outcome
}

func within(base, fsPath string) bool {
	rel, err := filepath.Rel(base, fsPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func decodePath(target string) (string, bool) {
	if i := strings.IndexAny(target, "?#"); i != -1 {
		target = target[:i]
	}
	if !strings.HasPrefix(target, "/") {
		return "", false
	}
	decoded, err := url.PathUnescape(target)
	if err != nil || strings.IndexByte(decoded, 0) != -1 {
		return "", false
	}
	return decoded, true
}
