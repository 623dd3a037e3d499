// Package source enumerates PDF work items from a directory.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"papersum/internal/dispatch"
	"papersum/internal/services"
)

// AllPDFs is the --pdf value that selects every PDF in the directory.
const AllPDFs = "all"

// SkipFunc reports whether an item ID already has an artifact and should not
// be dispatched again.
type SkipFunc func(id string) bool

// Scan returns one WorkItem per *.pdf file in dir, sorted by file name.
// Items for which skip returns true are left out. A missing directory is a
// configuration error.
func Scan(dir string, skip SkipFunc) ([]dispatch.WorkItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Configuration("pdf directory %s does not exist", dir)
		}
		return nil, fmt.Errorf("scan pdf directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isPDF(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	items := make([]dispatch.WorkItem, 0, len(names))
	for _, name := range names {
		item := newItem(dir, name)
		if skip != nil && skip(item.ID) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Single resolves one named PDF in dir. The ".pdf" suffix is optional. An empty
// name or a missing file is a configuration error. Single never consults a
// skip function: naming a PDF explicitly regenerates its summary.
func Single(dir, name string) (dispatch.WorkItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return dispatch.WorkItem{}, services.Configuration("pdf name is empty")
	}
	if filepath.Base(name) != name {
		return dispatch.WorkItem{}, services.Configuration("pdf name %q must not contain a path", name)
	}
	if !isPDF(name) {
		name += ".pdf"
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return dispatch.WorkItem{}, services.Configuration("pdf %s not found in %s", name, dir)
	}
	return newItem(dir, name), nil
}

// Select dispatches between Scan and Single based on the --pdf flag value.
func Select(dir, target string, skip SkipFunc) ([]dispatch.WorkItem, error) {
	if strings.EqualFold(strings.TrimSpace(target), AllPDFs) {
		return Scan(dir, skip)
	}
	item, err := Single(dir, target)
	if err != nil {
		return nil, err
	}
	return []dispatch.WorkItem{item}, nil
}

func newItem(dir, name string) dispatch.WorkItem {
	return dispatch.WorkItem{
		ID:      strings.TrimSuffix(name, filepath.Ext(name)),
		Locator: filepath.Join(dir, name),
	}
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
