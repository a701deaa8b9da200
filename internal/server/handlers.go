package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mizushima/kiroku/internal/extract"
	"github.com/mizushima/kiroku/internal/offline"
)

// syncRequest carries directory overrides for the archive operations.
// Empty fields fall back to the configured index/cache locations.
type syncRequest struct {
	IndexDir    string `json:"index_dir,omitempty"`
	CacheDir    string `json:"cache_dir,omitempty"`
	ExportPath  string `json:"export_path,omitempty"`
	ArchivePath string `json:"archive_path,omitempty"`
	TargetDir   string `json:"target_dir,omitempty"`
}

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.manager.Status(s.config.Index.Dir)
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"index":     status,
		"cache_dir": s.config.Index.CacheDir,
	}
	if diskBytes, err := offline.DiskUsageBytes(s.config.Index.Dir, s.config.Index.CacheDir); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCacheIndex(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	indexDir := orDefault(req.IndexDir, s.config.Index.Dir)
	cacheDir := orDefault(req.CacheDir, s.config.Index.CacheDir)
	s.logger.Debug("cache request", zap.String("index_dir", indexDir), zap.String("cache_dir", cacheDir))
	if !s.manager.CacheIndexLocally(indexDir, cacheDir) {
		s.respondError(w, http.StatusInternalServerError, "cache sync failed, see server log")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cached", "cache_dir": cacheDir})
}

func (s *Server) handleExportIndex(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ExportPath == "" {
		s.respondError(w, http.StatusBadRequest, "export_path is required")
		return
	}
	indexDir := orDefault(req.IndexDir, s.config.Index.Dir)
	s.logger.Debug("export request", zap.String("index_dir", indexDir), zap.String("export_path", req.ExportPath))
	if !s.manager.ExportIndex(indexDir, req.ExportPath) {
		s.respondError(w, http.StatusInternalServerError, "export failed, see server log")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "exported", "path": req.ExportPath})
}

func (s *Server) handleImportIndex(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ArchivePath == "" {
		s.respondError(w, http.StatusBadRequest, "archive_path is required")
		return
	}
	targetDir := orDefault(req.TargetDir, s.config.Index.Dir)
	s.logger.Debug("import request", zap.String("archive_path", req.ArchivePath), zap.String("target_dir", targetDir))
	if !s.manager.ImportIndex(req.ArchivePath, targetDir) {
		s.respondError(w, http.StatusInternalServerError, "import failed, see server log")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "imported", "target_dir": targetDir})
}

// extractRequest asks for text extraction of one document on the server's
// filesystem. Format is optional; when empty it is derived from the path
// extension.
type extractRequest struct {
	Path   string `json:"path"`
	Format string `json:"format,omitempty"`
}

type extractResponse struct {
	Path       string `json:"path"`
	Format     string `json:"format"`
	Text       string `json:"text"`
	Diagnostic bool   `json:"diagnostic"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	format := extract.Format(req.Format)
	if req.Format == "" {
		f, ok := extract.FormatForExtension(filepath.Ext(req.Path))
		if !ok {
			s.respondError(w, http.StatusBadRequest, "cannot derive format from path, pass format explicitly")
			return
		}
		format = f
	}
	text, err := s.dispatcher.Extract(req.Path, format)
	if err != nil {
		var depErr *extract.DependencyMissingError
		if errors.As(err, &depErr) {
			// Deployment problem, not a document problem.
			s.respondError(w, http.StatusFailedDependency, depErr.Error())
			return
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, extractResponse{
		Path:       req.Path,
		Format:     string(format),
		Text:       text,
		Diagnostic: extract.IsDiagnostic(text),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// decodeOptionalBody decodes a JSON body, tolerating an empty one.
func decodeOptionalBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
