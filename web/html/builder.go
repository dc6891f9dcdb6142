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

package html

import (
	"fmt"
	stdhtml "html"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/caiflower/webserver/web/protocol"
	"golang.org/x/exp/slices"
)

const (
	TimeFormat = "2006-01-02 15:04:05 MST"

	pageCSS = `body {
  width: 35em;
  margin: 0 auto;
  font-family: Tahoma, Verdana, Arial, sans-serif;
}`
	listingCSS = `body {
  margin: 0 2em;
  font-family: Tahoma, Verdana, Arial, sans-serif;
}
table { border-collapse: collapse; }
th, td { padding: 0.2em 1.5em 0.2em 0; text-align: left; }`

	notFoundNote = "The requested resource could not be found on this server."
	unknownNote  = "Unknown Status"
	dirMarker    = "directory"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// Builder renders a complete html document. The zero value renders an empty page.
type Builder struct {
	title string
	css   string
	body  string
}

// FromStatusCode builds the page sent with an error status. An empty note falls back to
// the reason phrase of code.
func FromStatusCode(code int, note string) *Builder {
	if note == "" {
		if code == 404 {
			note = notFoundNote
		} else if text, ok := protocol.StatusText(code); ok {
			note = text
		} else {
			note = unknownNote
		}
	}

	return &Builder{
		title: fmt.Sprintf("%d", code),
		css:   pageCSS,
		body:  fmt.Sprintf("<h2>%d</h2>\n<p>%s</p>", code, stdhtml.EscapeString(note)),
	}
}

// Entry is one row of a directory listing.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// ReadEntries lists the immediate children of dir.
func ReadEntries(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			// removed between ReadDir and Info
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			IsDir:   info.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// FromDir reads dir and renders its listing. urlPath is the request path the listing is
// served under, links are built relative to it.
func FromDir(dir, urlPath string) (*Builder, error) {
	entries, err := ReadEntries(dir)
	if err != nil {
		return nil, err
	}
	return FromEntries(urlPath, entries), nil
}

// FromEntries renders a listing of entries, directories first and each group ordered by
// name. entries is sorted in place.
func FromEntries(urlPath string, entries []Entry) *Builder {
	SortEntries(entries)

	base := path.Clean("/" + urlPath)
	parent := path.Dir(base)
	if base != "/" {
		base += "/"
	}
	if parent != "/" {
		parent += "/"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<h1>Index of %s</h1>\n", stdhtml.EscapeString(base))
	sb.WriteString("<table>\n<tr><th>Name</th><th>Size</th><th>Modified</th></tr>\n")
	writeRow(&sb, parent, "../", dirMarker, "-")
	for _, e := range entries {
		href := base + url.PathEscape(e.Name)
		label := stdhtml.EscapeString(e.Name)
		size := FormatSize(e.Size)
		if e.IsDir {
			href += "/"
			label += "/"
			size = dirMarker
		}
		writeRow(&sb, href, label, size, e.ModTime.Local().Format(TimeFormat))
	}
	sb.WriteString("</table>")

	return &Builder{
		title: "Index of " + base,
		css:   listingCSS,
		body:  sb.String(),
	}
}

func writeRow(sb *strings.Builder, href, label, size, modified string) {
	fmt.Fprintf(sb, "<tr><td><a href=\"%s\">%s</a></td><td>%s</td><td>%s</td></tr>\n",
		stdhtml.EscapeString(href), label, size, stdhtml.EscapeString(modified))
}

// SortEntries orders directories before files, each group by byte-wise name.
func SortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) bool {
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return a.Name < b.Name
	})
}

// FormatSize renders n with 1024-based units at one decimal place, e.g. "10.0 B" or
// "1.5 KB".
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	size := float64(n)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, sizeUnits[unit])
}

func (b *Builder) Title() string {
	return b.title
}

// Build renders the document.
func (b *Builder) Build() string {
	var sb strings.Builder
	sb.Grow(len(b.body) + len(b.css) + 160)
	sb.WriteString("<!DOCTYPE html>\n<html><head>\n<meta charset=\"utf-8\">\n")
	sb.WriteString("<title>")
	sb.WriteString(stdhtml.EscapeString(b.title))
	sb.WriteString("</title>\n<style>")
	sb.WriteString(b.css)
	sb.WriteString("</style>\n</head>\n<body>")
	sb.WriteString(b.body)
	sb.WriteString("</body></html>\n")
	return sb.String()
}

func (b *Builder) Bytes() []byte {
	return []byte(b.Build())
}
