// Package extract pulls generated source files out of model responses.
//
// Grammar of a tagged block:
//
//	fence-open = "```" kind ":" filename NEWLINE
//	kind       = "jsx" | "css" | "javascript"
//	body       = any text up to the next "```"
//	filename   = rest of the opening line, trimmed
//
// When no tagged block is present the extractor falls back to the
// first untagged html, css and javascript/jsx fences and maps them onto
// App.jsx and App.css.
package extract

import (
	"strings"

	"github.com/neilberkman/appforge/internal/core/models"
)

const fence = "```"

// Format identifies which response layout produced a FileMap
type Format int

const (
	FormatNone Format = iota
	FormatTagged
	FormatFallback
)

func (f Format) String() string {
	switch f {
	case FormatTagged:
		return "tagged"
	case FormatFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Result is the outcome of extracting one response
type Result struct {
	Files  models.FileMap
	Format Format
	Blocks []models.ParsedBlock // tagged blocks in source order, duplicates included
}

// Extract returns the FileMap for a response. An empty map is not an error.
func Extract(text string) models.FileMap {
	return Parse(text).Files
}

// Parse runs the tagged scan and, when that finds nothing, the fallback scan
func Parse(text string) Result {
	blocks := ParseBlocks(text)
	if len(blocks) > 0 {
		files := models.NewFileMap()
		for _, b := range blocks {
			files.Set(b.Filename, b.Body)
		}
		return Result{Files: files, Format: FormatTagged, Blocks: blocks}
	}

	if files, ok := fallback(text); ok {
		return Result{Files: files, Format: FormatFallback}
	}
	return Result{Files: models.NewFileMap(), Format: FormatNone}
}

// ParseBlocks returns every tagged block in the order it appears
func ParseBlocks(text string) []models.ParsedBlock {
	var blocks []models.ParsedBlock
	for pos := 0; ; {
		f, next, ok := nextFence(text, pos, isTag)
		if !ok {
			return blocks
		}
		kind, filename, _ := splitTag(f.info)
		blocks = append(blocks, models.ParsedBlock{
			Kind:     kind,
			Filename: filename,
			Body:     strings.TrimSpace(f.body),
		})
		pos = next
	}
}

func isTag(info string) bool {
	_, _, ok := splitTag(info)
	return ok
}

// splitTag parses "kind:filename". No whitespace is allowed before the colon.
func splitTag(info string) (models.BlockKind, string, bool) {
	colon := strings.IndexByte(info, ':')
	if colon < 0 {
		return "", "", false
	}
	kind := models.BlockKind(info[:colon])
	switch kind {
	case models.KindJSX, models.KindCSS, models.KindJavaScript:
	default:
		return "", "", false
	}
	filename := strings.TrimSpace(info[colon+1:])
	if filename == "" {
		return "", "", false
	}
	return kind, filename, true
}

func fallback(text string) (models.FileMap, bool) {
	// the html fence only signals this layout; its markup is not carried over
	_, _, haveHTML := nextFence(text, 0, infoIs("html"))
	css, _, haveCSS := nextFence(text, 0, infoIs("css"))
	js, _, haveJS := nextFence(text, 0, infoIs("javascript", "jsx"))
	if !haveHTML && !haveCSS && !haveJS {
		return models.FileMap{}, false
	}
	files := models.NewFileMap()
	files.Set("App.jsx", strings.TrimSpace(js.body))
	files.Set("App.css", strings.TrimSpace(css.body))
	return files, true
}

func infoIs(names ...string) func(string) bool {
	return func(info string) bool {
		for _, n := range names {
			if info == n {
				return true
			}
		}
		return false
	}
}

type rawFence struct {
	info string
	body string
}

// nextFence returns the first fence at or after pos whose info string is
// accepted and which is closed, along with the offset just past its closing
// marker. The info string is the rest of the opening line. A marker that does
// not open an accepted fence is skipped one byte at a time, so stray inline
// markers in prose never pair with a real fence.
func nextFence(text string, pos int, accept func(info string) bool) (rawFence, int, bool) {
	for pos < len(text) {
		open := strings.Index(text[pos:], fence)
		if open < 0 {
			return rawFence{}, 0, false
		}
		start := pos + open
		pos = start + 1

		head := start + len(fence)
		nl := strings.IndexByte(text[head:], '\n')
		if nl < 0 {
			return rawFence{}, 0, false
		}
		info := strings.TrimRight(text[head:head+nl], "\r")
		if !accept(info) {
			continue
		}

		bodyStart := head + nl + 1
		end := strings.Index(text[bodyStart:], fence)
		if end < 0 {
			return rawFence{}, 0, false
		}
		return rawFence{info: info, body: text[bodyStart : bodyStart+end]}, bodyStart + end + len(fence), true
	}
	return rawFence{}, 0, false
}
