package summaries

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"papersum/internal/services"
)

func TestWriteAndExists(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "summaries"))
	if store.Exists("paper") {
		t.Fatal("expected no summary before write")
	}
	path, err := store.Write("paper", "# Findings\n")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if path != store.Path("paper") || filepath.Base(path) != "paper.md" {
		t.Fatalf("unexpected artifact path %q", path)
	}
	if !store.Exists("paper") {
		t.Fatal("expected summary after write")
	}
	got, _ := os.ReadFile(path)
	if string(got) != "# Findings\n" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestWriteEmptyText(t *testing.T) {
	store := NewStore(t.TempDir())
	path, err := store.Write("blank", "")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() != 0 {
		t.Fatalf("expected empty file, got %v %v", info, err)
	}
	if _, err := store.Write("  ", "x"); err == nil {
		t.Fatal("expected error for blank id")
	}
}

func TestListSortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.md", "a.md", "notes.txt", "C.MD"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "d.md"), 0o755); err != nil {
		t.Fatal(err)
	}
	paths, err := NewStore(dir).List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"C.MD", "a.md", "b.md"}
	if len(paths) != len(want) {
		t.Fatalf("unexpected paths %v", paths)
	}
	for i, name := range want {
		if filepath.Base(paths[i]) != name {
			t.Fatalf("position %d: got %s want %s", i, filepath.Base(paths[i]), name)
		}
	}

	missing, err := NewStore(filepath.Join(dir, "absent")).List()
	if err != nil || len(missing) != 0 {
		t.Fatalf("expected empty list for missing dir, got %v %v", missing, err)
	}
}

func TestConcatenate(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "summaries"))
	if _, err := store.Write("beta_paper", "Beta."); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Write("alpha_paper", "Alpha."); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "all.txt")
	n, err := store.Concatenate(out, ConcatOptions{})
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 summaries, got %d", n)
	}
	got, _ := os.ReadFile(out)
	if string(got) != "Alpha.\n\nBeta.\n\n" {
		t.Fatalf("unexpected concatenation %q", got)
	}

	if _, err := store.Concatenate(out, ConcatOptions{Headings: true}); err != nil {
		t.Fatalf("Concatenate with headings: %v", err)
	}
	got, _ = os.ReadFile(out)
	want := "# Alpha Paper\n\nAlpha.\n\n# Beta Paper\n\nBeta.\n\n"
	if string(got) != want {
		t.Fatalf("unexpected headed concatenation %q", got)
	}
}

func TestConcatenateEmpty(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "all.txt")
	_, err := NewStore(dir).Concatenate(out, ConcatOptions{})
	if !errors.Is(err, ErrNoSummaries) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNoSummaries, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("output must not be written when there is nothing to join")
	}
}
