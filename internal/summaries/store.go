// Package summaries owns the on-disk layout of generated summaries: one
// Markdown file per work item, named after the item ID.
package summaries

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"papersum/internal/fileutil"
	"papersum/internal/services"
	"papersum/internal/textutil"
)

// Extension is the summary file extension.
const Extension = ".md"

// ErrNoSummaries is returned by Concatenate when the directory holds no summaries.
var ErrNoSummaries = fmt.Errorf("%w: no summaries", services.ErrNotFound)

// Store reads and writes summaries under a single directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the summary directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the deterministic artifact location for id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+Extension)
}

// Exists reports whether a summary for id has already been written.
func (s *Store) Exists(id string) bool {
	return fileutil.FileExists(s.Path(id))
}

// Write persists text as the summary for id and returns its path. Partial
// files are never visible: the content is renamed into place.
func (s *Store) Write(id, text string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.New("summary id required")
	}
	path := s.Path(id)
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write summary %s: %w", id, err)
	}
	return path, nil
}

// List returns every summary file in name order. A missing directory yields
// an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), Extension) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ConcatOptions controls Concatenate output.
type ConcatOptions struct {
	// Headings prefixes each summary with a "# Title" line derived from its
	// file name.
	Headings bool
}

// Concatenate joins every summary, in name order, into out. Each summary is
// followed by a blank line. It returns the number of summaries written.
func (s *Store) Concatenate(out string, opts ConcatOptions) (int, error) {
	paths, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("%w in %s", ErrNoSummaries, s.dir)
	}
	var buf bytes.Buffer
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("read summary: %w", err)
		}
		if opts.Headings {
			buf.WriteString("# ")
			buf.WriteString(textutil.TitleFromFileName(path))
			buf.WriteString("\n\n")
		}
		buf.Write(content)
		buf.WriteString("\n\n")
	}
	if err := fileutil.WriteFileAtomic(out, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("write concatenation: %w", err)
	}
	return len(paths), nil
}
