// Package offline manages local caching and portable packaging of the
// content index. The index is a directory holding up to three canonical
// artifacts (index.json, embeddings.json, clusters.json), each opaque
// bytes produced by the scanning/embedding pipeline. This package only
// ever reads or writes those three names; anything else in an index
// directory is invisible to it, and nothing is ever deleted.
package offline

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Canonical artifact filenames. These names are fixed by the pipeline
// that produces them and must match exactly.
const (
	IndexFile      = "index.json"
	EmbeddingsFile = "embeddings.json"
	ClustersFile   = "clusters.json"
)

// CanonicalArtifacts returns the canonical artifact names in their fixed
// order.
func CanonicalArtifacts() []string {
	return []string{IndexFile, EmbeddingsFile, ClustersFile}
}

// IsCanonical reports whether name is one of the canonical artifact names.
func IsCanonical(name string) bool {
	return name == IndexFile || name == EmbeddingsFile || name == ClustersFile
}

// Manager performs cache, export, and import operations on an index
// directory. Operations report failure through their boolean result and
// log the cause; no error crosses the operation boundary. Each operation
// is idempotent and touches only its explicit arguments.
type Manager struct {
	logger *zap.Logger
}

// NewManager returns a Manager that logs diagnostics to logger.
// A nil logger is replaced with a no-op one.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger}
}

// CacheIndexLocally mirrors the canonical artifacts present in indexDir
// into cacheDir, creating cacheDir as needed. Modification times are
// preserved so consumers can detect staleness. Artifacts absent from
// indexDir are skipped; artifacts already in cacheDir are overwritten but
// never removed.
func (m *Manager) CacheIndexLocally(indexDir, cacheDir string) bool {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		m.logger.Error("cache: create cache dir failed", zap.String("cache_dir", cacheDir), zap.Error(err))
		return false
	}
	for _, name := range CanonicalArtifacts() {
		src := filepath.Join(indexDir, name)
		if _, err := os.Stat(src); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			m.logger.Error("cache: stat artifact failed", zap.String("artifact", name), zap.Error(err))
			return false
		}
		if err := copyFile(src, filepath.Join(cacheDir, name)); err != nil {
			m.logger.Error("cache: copy artifact failed", zap.String("artifact", name), zap.Error(err))
			return false
		}
	}
	m.logger.Debug("index cached", zap.String("index_dir", indexDir), zap.String("cache_dir", cacheDir))
	return true
}

// ExportIndex packages the canonical artifacts present in indexDir into a
// single zip archive at exportPath. Entries are flat, named exactly by
// their canonical filenames, and byte-lossless. Absent artifacts produce
// no entry.
func (m *Manager) ExportIndex(indexDir, exportPath string) bool {
	out, err := os.Create(exportPath)
	if err != nil {
		m.logger.Error("export: create archive failed", zap.String("path", exportPath), zap.Error(err))
		return false
	}
	zw := zip.NewWriter(out)
	for _, name := range CanonicalArtifacts() {
		src := filepath.Join(indexDir, name)
		info, err := os.Stat(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			m.logger.Error("export: stat artifact failed", zap.String("artifact", name), zap.Error(err))
			m.closeExport(zw, out)
			return false
		}
		if err := addArchiveEntry(zw, src, name, info); err != nil {
			m.logger.Error("export: write entry failed", zap.String("artifact", name), zap.Error(err))
			m.closeExport(zw, out)
			return false
		}
	}
	if err := zw.Close(); err != nil {
		m.logger.Error("export: finalize archive failed", zap.String("path", exportPath), zap.Error(err))
		_ = out.Close()
		return false
	}
	if err := out.Close(); err != nil {
		m.logger.Error("export: close archive failed", zap.String("path", exportPath), zap.Error(err))
		return false
	}
	m.logger.Debug("index exported", zap.String("index_dir", indexDir), zap.String("path", exportPath))
	return true
}

func (m *Manager) closeExport(zw *zip.Writer, out *os.File) {
	_ = zw.Close()
	_ = out.Close()
}

// ImportIndex extracts every entry of the archive at archivePath into
// targetDir, creating it as needed and overwriting files of the same
// name. Entries outside the canonical set are extracted verbatim with a
// warning; entries escaping targetDir fail the import.
func (m *Manager) ImportIndex(archivePath, targetDir string) bool {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		m.logger.Error("import: open archive failed", zap.String("path", archivePath), zap.Error(err))
		return false
	}
	defer zr.Close()

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		m.logger.Error("import: create target dir failed", zap.String("target_dir", targetDir), zap.Error(err))
		return false
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !IsCanonical(f.Name) {
			m.logger.Warn("import: unexpected archive entry", zap.String("entry", f.Name))
		}
		dest := filepath.Join(targetDir, filepath.FromSlash(f.Name))
		if !inDir(targetDir, dest) {
			m.logger.Error("import: entry escapes target dir", zap.String("entry", f.Name))
			return false
		}
		if err := extractArchiveEntry(f, dest); err != nil {
			m.logger.Error("import: extract entry failed", zap.String("entry", f.Name), zap.Error(err))
			return false
		}
	}
	m.logger.Debug("index imported", zap.String("path", archivePath), zap.String("target_dir", targetDir))
	return true
}

// copyFile copies src to dst, preserving mode and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// addArchiveEntry writes one deflated entry carrying the source mtime.
func addArchiveEntry(zw *zip.Writer, src, name string, info os.FileInfo) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(w, in)
	return err
}

// extractArchiveEntry writes one archive entry to dest, restoring the
// entry's modification time.
func extractArchiveEntry(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if !f.Modified.IsZero() {
		_ = os.Chtimes(dest, f.Modified, f.Modified)
	}
	return nil
}

// inDir reports whether path is dir itself or inside it.
func inDir(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
