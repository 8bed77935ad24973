package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadPaths_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b_invoice.pdf"), "%PDF-1 invoice")
	writeFile(t, filepath.Join(dir, "a_packing.xlsx"), "xlsx bytes")
	writeFile(t, filepath.Join(dir, "copy.pdf"), "%PDF-1 invoice")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, ".hidden", "x.pdf"), "hidden")

	b, err := NewLoader(true, nil).LoadPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(b.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(b.Documents))
	}
	if b.Documents[0].Name != "a_packing.xlsx" || b.Documents[0].Kind != constants.SPREADSHEET {
		t.Fatalf("first document: %+v", b.Documents[0])
	}
	if b.Documents[1].Name != "b_invoice.pdf" || b.Documents[1].Kind != constants.PDF {
		t.Fatalf("second document: %+v", b.Documents[1])
	}
	if b.Stats.Matched != 3 || b.Stats.Deduplicated != 1 || b.Stats.Failed != 0 {
		t.Fatalf("stats: %+v", b.Stats)
	}
	for _, r := range b.Results {
		if filepath.Base(r.Path) == "copy.pdf" && (!r.Deduplicated || r.DocumentID != b.Documents[1].ID) {
			t.Fatalf("copy.pdf should dedupe onto b_invoice.pdf: %+v", r)
		}
	}
}

func TestLoadPaths_ExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "bl.pdf")
	txt := filepath.Join(dir, "readme.txt")
	writeFile(t, pdf, "%PDF-1")
	writeFile(t, txt, "plain")

	b, err := NewLoader(false, nil).LoadPaths(context.Background(), []string{txt, pdf, filepath.Join(dir, "missing.pdf")})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(b.Documents) != 2 || b.Documents[0].Kind != constants.UNSUPPORTED || b.Documents[1].Name != "bl.pdf" {
		t.Fatalf("documents: %+v", b.Documents)
	}
	if b.Stats.Failed != 1 {
		t.Fatalf("missing file should be recorded as failed: %+v", b.Stats)
	}
}

func TestLoadPaths_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLoader(false, nil).LoadPaths(ctx, []string{t.TempDir()}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestIsHidden(t *testing.T) {
	if !IsHidden("/a/.git") || IsHidden("/a/b.pdf") || IsHidden(".") {
		t.Fatal("IsHidden mismatch")
	}
}
