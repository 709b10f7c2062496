package autopost

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeEntriesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entries.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEntries(t *testing.T) {
	path := writeEntriesFile(t, `# jadwal autopost
Selamat pagi {{DAY}}!

rag: buat pengumuman singkat untuk hari {{DAY}}
RAG: huruf besar juga prompt
rag:
  Selamat siang semua
`)

	entries, err := LoadEntries(path, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadEntries error = %v", err)
	}

	want := []Entry{
		{Kind: Static, Text: "Selamat pagi {{DAY}}!", Source: "Selamat pagi {{DAY}}!"},
		{Kind: Rag, Text: "buat pengumuman singkat untuk hari {{DAY}}", Source: "rag: buat pengumuman singkat untuk hari {{DAY}}"},
		{Kind: Rag, Text: "huruf besar juga prompt", Source: "RAG: huruf besar juga prompt"},
		{Kind: Static, Text: "Selamat siang semua", Source: "Selamat siang semua"},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i, e := range entries {
		if e != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, e, want[i])
		}
	}
}

func TestLoadEntriesMissingFile(t *testing.T) {
	if _, err := LoadEntries(filepath.Join(t.TempDir(), "absent.txt"), zap.NewNop()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadEntriesEmptyFile(t *testing.T) {
	path := writeEntriesFile(t, "# only comments\n\n")
	entries, err := LoadEntries(path, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadEntries error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %+v", entries)
	}
}
