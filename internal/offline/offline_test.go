package offline

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager() *Manager {
	return NewManager(nil)
}

// writeIndexDir creates a directory populated with the given artifacts.
func writeIndexDir(t *testing.T, artifacts map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range artifacts {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func readDir(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	files := make(map[string][]byte)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		files[e.Name()] = content
	}
	return files
}

func TestCacheIndexLocally(t *testing.T) {
	indexDir := writeIndexDir(t, map[string][]byte{
		IndexFile:      []byte(`{"a":1}`),
		EmbeddingsFile: []byte(`[[0.1,0.2]]`),
		ClustersFile:   []byte(`[1,2,3]`),
	})
	cacheDir := filepath.Join(t.TempDir(), "nested", "cache")

	if !newTestManager().CacheIndexLocally(indexDir, cacheDir) {
		t.Fatal("CacheIndexLocally returned false")
	}
	got := readDir(t, cacheDir)
	if len(got) != 3 {
		t.Fatalf("cache has %d files, want 3", len(got))
	}
	if string(got[IndexFile]) != `{"a":1}` {
		t.Errorf("index.json = %q", got[IndexFile])
	}
}

func TestCacheIndexLocally_preservesModTime(t *testing.T) {
	indexDir := writeIndexDir(t, map[string][]byte{IndexFile: []byte("{}")})
	src := filepath.Join(indexDir, IndexFile)
	stamp := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	if err := os.Chtimes(src, stamp, stamp); err != nil {
		t.Fatal(err)
	}
	cacheDir := t.TempDir()

	if !newTestManager().CacheIndexLocally(indexDir, cacheDir) {
		t.Fatal("CacheIndexLocally returned false")
	}
	info, err := os.Stat(filepath.Join(cacheDir, IndexFile))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(stamp) {
		t.Errorf("mod time = %v, want %v", info.ModTime(), stamp)
	}
}

func TestCacheIndexLocally_missingArtifactsSkipped(t *testing.T) {
	indexDir := writeIndexDir(t, map[string][]byte{
		IndexFile:    []byte(`{"a":1}`),
		ClustersFile: []byte(`[1,2,3]`),
	})
	cacheDir := t.TempDir()

	if !newTestManager().CacheIndexLocally(indexDir, cacheDir) {
		t.Fatal("CacheIndexLocally returned false")
	}
	got := readDir(t, cacheDir)
	if len(got) != 2 {
		t.Fatalf("cache has %d files, want 2", len(got))
	}
	if _, ok := got[EmbeddingsFile]; ok {
		t.Error("embeddings.json should not appear in cache")
	}
}

func TestCacheIndexLocally_idempotent(t *testing.T) {
	indexDir := writeIndexDir(t, map[string][]byte{
		IndexFile:      []byte(`{"a":1}`),
		EmbeddingsFile: []byte(`[]`),
	})
	cacheDir := t.TempDir()
	m := newTestManager()

	if !m.CacheIndexLocally(indexDir, cacheDir) {
		t.Fatal("first run returned false")
	}
	first := readDir(t, cacheDir)
	if !m.CacheIndexLocally(indexDir, cacheDir) {
		t.Fatal("second run returned false")
	}
	second := readDir(t, cacheDir)
	if len(first) != len(second) {
		t.Fatalf("file count changed: %d -> %d", len(first), len(second))
	}
	for name, content := range first {
		if !bytes.Equal(content, second[name]) {
			t.Errorf("%s changed between runs", name)
		}
	}
}

func TestCacheIndexLocally_neverDeletes(t *testing.T) {
	indexDir := writeIndexDir(t, map[string][]byte{IndexFile: []byte("{}")})
	cacheDir := t.TempDir()
	// Stale embeddings and an unrelated file already in the cache.
	if err := os.WriteFile(filepath.Join(cacheDir, EmbeddingsFile), []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cacheDir, "notes.txt"), []byte("keep me"), 0644); err != nil {
		t.Fatal(err)
	}

	if !newTestManager().CacheIndexLocally(indexDir, cacheDir) {
		t.Fatal("CacheIndexLocally returned false")
	}
	got := readDir(t, cacheDir)
	if string(got[EmbeddingsFile]) != "stale" {
		t.Error("pre-existing embeddings.json was touched")
	}
	if string(got["notes.txt"]) != "keep me" {
		t.Error("unrelated file was touched")
	}
}

func TestCacheIndexLocally_missingSourceDir(t *testing.T) {
	cacheDir := t.TempDir()
	// A missing source simply has no artifacts to copy; the operation
	// still succeeds (matching stat-and-skip semantics per artifact).
	if !newTestManager().CacheIndexLocally(filepath.Join(t.TempDir(), "gone"), cacheDir) {
		t.Fatal("CacheIndexLocally returned false")
	}
	if got := readDir(t, cacheDir); len(got) != 0 {
		t.Errorf("cache should be empty, has %v", got)
	}
}

func TestExportImport_roundTrip(t *testing.T) {
	artifacts := map[string][]byte{
		IndexFile:      []byte(`{"files":[{"path":"/tmp/a.docx"}]}`),
		EmbeddingsFile: {0x00, 0xff, 0x10, 0x80}, // arbitrary bytes, not JSON
		ClustersFile:   []byte(`[{"id":0}]`),
	}
	indexDir := writeIndexDir(t, artifacts)
	exportPath := filepath.Join(t.TempDir(), "out.zip")
	m := newTestManager()

	if !m.ExportIndex(indexDir, exportPath) {
		t.Fatal("ExportIndex returned false")
	}
	targetDir := filepath.Join(t.TempDir(), "restored")
	if !m.ImportIndex(exportPath, targetDir) {
		t.Fatal("ImportIndex returned false")
	}
	got := readDir(t, targetDir)
	if len(got) != len(artifacts) {
		t.Fatalf("restored %d files, want %d", len(got), len(artifacts))
	}
	for name, want := range artifacts {
		if !bytes.Equal(got[name], want) {
			t.Errorf("%s: got %v, want %v", name, got[name], want)
		}
	}
}

func TestExportIndex_flatEntries(t *testing.T) {
	indexDir := writeIndexDir(t, map[string][]byte{
		IndexFile:    []byte(`{"a":1}`),
		ClustersFile: []byte(`[1,2,3]`),
	})
	exportPath := filepath.Join(t.TempDir(), "out.zip")
	if !newTestManager().ExportIndex(indexDir, exportPath) {
		t.Fatal("ExportIndex returned false")
	}

	zr, err := zip.OpenReader(exportPath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if len(names) != 2 {
		t.Fatalf("archive has entries %v, want 2", names)
	}
	for _, name := range names {
		if name != IndexFile && name != ClustersFile {
			t.Errorf("unexpected entry %q", name)
		}
	}
}

// Concrete scenario from the contract: index.json={"a":1} and
// clusters.json=[1,2,3], no embeddings.json.
func TestExportImportCache_subset(t *testing.T) {
	indexDir := writeIndexDir(t, map[string][]byte{
		IndexFile:    []byte(`{"a":1}`),
		ClustersFile: []byte(`[1,2,3]`),
	})
	m := newTestManager()

	exportPath := filepath.Join(t.TempDir(), "out.zip")
	if !m.ExportIndex(indexDir, exportPath) {
		t.Fatal("ExportIndex returned false")
	}
	targetDir := filepath.Join(t.TempDir(), "fresh")
	if !m.ImportIndex(exportPath, targetDir) {
		t.Fatal("ImportIndex returned false")
	}
	restored := readDir(t, targetDir)
	if len(restored) != 2 {
		t.Fatalf("restored %d files, want 2", len(restored))
	}
	if string(restored[IndexFile]) != `{"a":1}` || string(restored[ClustersFile]) != `[1,2,3]` {
		t.Errorf("restored content mismatch: %v", restored)
	}

	cacheDir := t.TempDir()
	if !m.CacheIndexLocally(indexDir, cacheDir) {
		t.Fatal("CacheIndexLocally returned false")
	}
	cached := readDir(t, cacheDir)
	if len(cached) != 2 {
		t.Fatalf("cached %d files, want 2", len(cached))
	}
	if _, ok := cached[EmbeddingsFile]; ok {
		t.Error("embeddings.json should not exist in cache")
	}
}

func TestExportIndex_overwritesExistingArchive(t *testing.T) {
	indexDir := writeIndexDir(t, map[string][]byte{IndexFile: []byte(`{"v":2}`)})
	exportPath := filepath.Join(t.TempDir(), "out.zip")
	if err := os.WriteFile(exportPath, []byte("old archive"), 0644); err != nil {
		t.Fatal(err)
	}
	m := newTestManager()
	if !m.ExportIndex(indexDir, exportPath) {
		t.Fatal("ExportIndex returned false")
	}
	targetDir := t.TempDir()
	if !m.ImportIndex(exportPath, targetDir) {
		t.Fatal("ImportIndex returned false")
	}
	if got := readDir(t, targetDir)[IndexFile]; string(got) != `{"v":2}` {
		t.Errorf("got %q", got)
	}
}

func TestImportIndex_unexpectedEntriesKept(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "mixed.zip")
	out, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(out)
	for name, content := range map[string]string{
		IndexFile:    `{"a":1}`,
		"extra.json": `"surprise"`,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	targetDir := t.TempDir()
	if !newTestManager().ImportIndex(archivePath, targetDir) {
		t.Fatal("ImportIndex rejected archive with unexpected entry")
	}
	got := readDir(t, targetDir)
	if string(got["extra.json"]) != `"surprise"` {
		t.Error("unexpected entry was not extracted verbatim")
	}
}

func TestImportIndex_corruptArchive(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(archivePath, []byte("this is not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	if newTestManager().ImportIndex(archivePath, t.TempDir()) {
		t.Error("ImportIndex should return false for a corrupt archive")
	}
}

func TestImportIndex_missingArchive(t *testing.T) {
	if newTestManager().ImportIndex(filepath.Join(t.TempDir(), "gone.zip"), t.TempDir()) {
		t.Error("ImportIndex should return false for a missing archive")
	}
}

func TestImportIndex_pathTraversalRejected(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "evil.zip")
	out, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(out)
	w, err := zw.Create("../escape.json")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("{}")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	parent := t.TempDir()
	targetDir := filepath.Join(parent, "target")
	if newTestManager().ImportIndex(archivePath, targetDir) {
		t.Error("ImportIndex should return false for a traversal entry")
	}
	if _, err := os.Stat(filepath.Join(parent, "escape.json")); err == nil {
		t.Error("traversal entry was written outside target dir")
	}
}

func TestIsCanonical(t *testing.T) {
	for _, name := range CanonicalArtifacts() {
		if !IsCanonical(name) {
			t.Errorf("%s should be canonical", name)
		}
	}
	if IsCanonical("extra.json") {
		t.Error("extra.json should not be canonical")
	}
}
