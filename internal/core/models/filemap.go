package models

import (
	"encoding/json"
	"regexp"
	"strings"
)

// validFilename matches the names generated apps are expected to use (Name.jsx / Name.css)
var validFilename = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*\.(jsx|css)$`)

// ValidFilename reports whether name follows the Name.jsx / Name.css convention
func ValidFilename(name string) bool {
	return validFilename.MatchString(name)
}

// FileMap maps generated filenames to their source text.
// Keys are unique and iteration follows insertion order, which is also display order.
// Setting an existing key replaces its content but keeps its position.
type FileMap struct {
	names   []string
	content map[string]string
}

// NewFileMap creates an empty FileMap
func NewFileMap() FileMap {
	return FileMap{content: make(map[string]string)}
}

// Set stores content under name, overwriting any previous content wholesale
func (f *FileMap) Set(name, content string) {
	if f.content == nil {
		f.content = make(map[string]string)
	}
	if _, exists := f.content[name]; !exists {
		f.names = append(f.names, name)
	}
	f.content[name] = content
}

// Get returns the content for name and whether it exists
func (f FileMap) Get(name string) (string, bool) {
	c, ok := f.content[name]
	return c, ok
}

// Has reports whether name is present
func (f FileMap) Has(name string) bool {
	_, ok := f.content[name]
	return ok
}

// Len returns the number of files
func (f FileMap) Len() int {
	return len(f.names)
}

// Names returns filenames in insertion order
func (f FileMap) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Each calls fn for every file in insertion order
func (f FileMap) Each(fn func(name, content string)) {
	for _, name := range f.names {
		fn(name, f.content[name])
	}
}

// Clone returns an independent copy
func (f FileMap) Clone() FileMap {
	out := NewFileMap()
	f.Each(out.Set)
	return out
}

// WithSuffix returns the names ending in suffix (e.g. ".jsx"), in order
func (f FileMap) WithSuffix(suffix string) []string {
	var out []string
	for _, name := range f.names {
		if strings.HasSuffix(name, suffix) {
			out = append(out, name)
		}
	}
	return out
}

// JSX returns the component filenames in order
func (f FileMap) JSX() []string { return f.WithSuffix(".jsx") }

// CSS returns the stylesheet filenames in order
func (f FileMap) CSS() []string { return f.WithSuffix(".css") }

// TotalBytes is the combined size of every file's content
func (f FileMap) TotalBytes() int {
	n := 0
	for _, c := range f.content {
		n += len(c)
	}
	return n
}

// Equal reports whether two maps hold the same files in the same order
func (f FileMap) Equal(other FileMap) bool {
	if f.Len() != other.Len() {
		return false
	}
	for i, name := range f.names {
		if other.names[i] != name || other.content[name] != f.content[name] {
			return false
		}
	}
	return true
}

type fileEntry struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// MarshalJSON encodes the map as an ordered list so order survives a round trip
func (f FileMap) MarshalJSON() ([]byte, error) {
	entries := make([]fileEntry, 0, len(f.names))
	f.Each(func(name, content string) {
		entries = append(entries, fileEntry{Name: name, Content: content})
	})
	return json.Marshal(entries)
}

// UnmarshalJSON decodes the ordered list written by MarshalJSON
func (f *FileMap) UnmarshalJSON(data []byte) error {
	var entries []fileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*f = NewFileMap()
	for _, e := range entries {
		f.Set(e.Name, e.Content)
	}
	return nil
}
