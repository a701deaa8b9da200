package offline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStatus(t *testing.T) {
	indexDir := writeIndexDir(t, map[string][]byte{
		IndexFile:    []byte(`{"a":1}`),
		ClustersFile: []byte(`[1,2,3]`),
	})
	status, err := newTestManager().Status(indexDir)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Complete {
		t.Error("status should not be complete without embeddings.json")
	}
	if len(status.Artifacts) != 3 {
		t.Fatalf("got %d artifacts, want 3", len(status.Artifacts))
	}
	byName := make(map[string]ArtifactInfo)
	for _, a := range status.Artifacts {
		byName[a.Name] = a
	}
	if !byName[IndexFile].Present || byName[IndexFile].SizeBytes != 7 {
		t.Errorf("index.json info: %+v", byName[IndexFile])
	}
	if byName[EmbeddingsFile].Present {
		t.Error("embeddings.json should be absent")
	}
	if status.TotalSizeBytes != 7+7 {
		t.Errorf("total size = %d, want 14", status.TotalSizeBytes)
	}
}

func TestStatus_complete(t *testing.T) {
	indexDir := writeIndexDir(t, map[string][]byte{
		IndexFile:      []byte("{}"),
		EmbeddingsFile: []byte("[]"),
		ClustersFile:   []byte("[]"),
	})
	status, err := newTestManager().Status(indexDir)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Complete {
		t.Error("status should be complete with all three artifacts")
	}
}

func TestStatus_ignoresOtherFiles(t *testing.T) {
	indexDir := writeIndexDir(t, map[string][]byte{
		IndexFile:   []byte("{}"),
		"notes.txt": []byte("unrelated"),
	})
	status, err := newTestManager().Status(indexDir)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, a := range status.Artifacts {
		if a.Name == "notes.txt" {
			t.Error("non-canonical file reported in status")
		}
	}
	if status.TotalSizeBytes != 2 {
		t.Errorf("total size = %d, want 2", status.TotalSizeBytes)
	}
}

func TestStatus_missingDir(t *testing.T) {
	if _, err := newTestManager().Status(filepath.Join(t.TempDir(), "gone")); err == nil {
		t.Error("expected error for missing index dir")
	}
}

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "f1.json")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := DiskUsageBytes(f1, sub, filepath.Join(dir, "missing"), "")
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("got %d bytes, want 8", got)
	}
}
