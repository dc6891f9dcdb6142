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

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	ContentTypeHTML    = "text/html;charset=utf-8"
	ContentTypeDefault = "application/octet-stream"
)

var ErrUnknownStatus = errors.New("unknown status code")

// StatusText returns the reason phrase registered for code.
func StatusText(code int) (string, bool) {
	text := http.StatusText(code)
	return text, text != ""
}

func statusText(code int) (string, error) {
	text, ok := StatusText(code)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownStatus, code)
	}
	return text, nil
}

var mimeTypes = map[string]string{
	".html":  ContentTypeHTML,
	".htm":   ContentTypeHTML,
	".css":   "text/css;charset=utf-8",
	".js":    "text/javascript;charset=utf-8",
	".mjs":   "text/javascript;charset=utf-8",
	".json":  "application/json",
	".xml":   "application/xml",
	".txt":   "text/plain;charset=utf-8",
	".md":    "text/markdown;charset=utf-8",
	".csv":   "text/csv;charset=utf-8",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".bmp":   "image/bmp",
	".avif":  "image/avif",
	".mp3":   "audio/mpeg",
	".wav":   "audio/wav",
	".ogg":   "audio/ogg",
	".mp4":   "video/mp4",
	".webm":  "video/webm",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".pdf":   "application/pdf",
	".zip":   "application/zip",
	".gz":    "application/gzip",
	".tar":   "application/x-tar",
	".wasm":  "application/wasm",
}

// MimeType maps the extension of name to a content type, unknown extensions are served
// as application/octet-stream.
func MimeType(name string) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return ContentTypeDefault
}
