package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"papersum/internal/services"
)

func seed(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestScanSortsAndFilters(t *testing.T) {
	dir := seed(t, "b.pdf", "a.pdf", "notes.txt", "C.PDF")
	if err := os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}
	items, err := Scan(dir, nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	wantIDs := []string{"C", "a", "b"}
	if len(items) != len(wantIDs) {
		t.Fatalf("unexpected items %+v", items)
	}
	for i, id := range wantIDs {
		if items[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, items[i].ID, id)
		}
	}
	if items[1].Locator != filepath.Join(dir, "a.pdf") {
		t.Fatalf("unexpected locator %q", items[1].Locator)
	}
}

func TestScanSkipsExisting(t *testing.T) {
	dir := seed(t, "a.pdf", "b.pdf")
	items, err := Scan(dir, func(id string) bool { return id == "a" })
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(items) != 1 || items[0].ID != "b" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestScanEmptyAndMissing(t *testing.T) {
	items, err := Scan(t.TempDir(), nil)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty list, got %v %v", items, err)
	}
	_, err = Scan(filepath.Join(t.TempDir(), "absent"), nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSingle(t *testing.T) {
	dir := seed(t, "paper.pdf")
	for _, name := range []string{"paper.pdf", "paper", "  paper.pdf "} {
		item, err := Single(dir, name)
		if err != nil {
			t.Fatalf("Single(%q): %v", name, err)
		}
		if item.ID != "paper" || item.Locator != filepath.Join(dir, "paper.pdf") {
			t.Fatalf("unexpected item %+v", item)
		}
	}
	for _, name := range []string{"", "   ", "missing.pdf", "../paper.pdf"} {
		if _, err := Single(dir, name); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("Single(%q): expected configuration error, got %v", name, err)
		}
	}
}

func TestSelect(t *testing.T) {
	dir := seed(t, "a.pdf", "b.pdf")
	all, err := Select(dir, "ALL", nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected both items, got %v %v", all, err)
	}
	one, err := Select(dir, "b", func(string) bool { return true })
	if err != nil || len(one) != 1 || one[0].ID != "b" {
		t.Fatalf("expected explicit item regardless of skip, got %v %v", one, err)
	}
}
