package offline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArtifactInfo describes one canonical artifact on disk. Artifacts are
// opaque; only presence, size, and modification time are reported.
type ArtifactInfo struct {
	Name      string    `json:"name"`
	Present   bool      `json:"present"`
	SizeBytes int64     `json:"size_bytes"`
	Modified  time.Time `json:"modified,omitempty"`
}

// IndexStatus summarizes an index directory.
type IndexStatus struct {
	Dir            string         `json:"dir"`
	Artifacts      []ArtifactInfo `json:"artifacts"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	Complete       bool           `json:"complete"`
}

// Status reports which canonical artifacts exist in indexDir along with
// their sizes and modification times. A missing directory is an error;
// missing artifacts are not.
func (m *Manager) Status(indexDir string) (*IndexStatus, error) {
	if info, err := os.Stat(indexDir); err != nil {
		return nil, fmt.Errorf("stat index dir: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("index dir %s is not a directory", indexDir)
	}
	status := &IndexStatus{Dir: indexDir, Complete: true}
	for _, name := range CanonicalArtifacts() {
		ai := ArtifactInfo{Name: name}
		info, err := os.Stat(filepath.Join(indexDir, name))
		switch {
		case err == nil:
			ai.Present = true
			ai.SizeBytes = info.Size()
			ai.Modified = info.ModTime()
			status.TotalSizeBytes += info.Size()
		case os.IsNotExist(err):
			status.Complete = false
		default:
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		status.Artifacts = append(status.Artifacts, ai)
	}
	return status, nil
}
