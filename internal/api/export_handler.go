package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tbstudio/storyboard-agent/internal/export"
)

// downloadExportHandler streams the current project in the requested format
// as an attachment named after the project.
func downloadExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := export.ParseFormat(chi.URLParam(r, "format"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		p := cfg.Store.Project()
		var buf bytes.Buffer
		if err := export.Render(&buf, f, p, cfg.Exporter.PDFOptions()); err != nil {
			cfg.Logger.Error("export failed", "format", f, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to render export", "EXPORT_FAILED")
			return
		}

		name := export.FileName(p, f)
		w.Header().Set("Content-Type", f.ContentType())
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", asciiName(name), url.PathEscape(name)))
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

// writeExportHandler renders the current project into a directory on this
// machine and records it in the export history.
func writeExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		f, err := export.ParseFormat(req.Format)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		resp, err := cfg.Exporter.WriteFile(r.Context(), req.OutputDir, f, cfg.Store.Project())
		if err != nil {
			cfg.Logger.Error("export failed", "format", f, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := cfg.History.List(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list exports", "INTERNAL_ERROR")
			return
		}

		resp := ExportsResponse{Exports: make([]ExportEntryResponse, len(entries))}
		for i, e := range entries {
			resp.Exports[i] = ExportEntryToResponse(e)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// exportFileHandler serves a previously written export from disk. Range
// requests are honoured so PDF viewers can stream large boards.
func exportFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := cfg.History.Get(r.Context(), chi.URLParam(r, "exportID"))
		if errors.Is(err, export.ErrExportNotFound) {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load export", "INTERNAL_ERROR")
			return
		}

		file, err := os.Open(entry.Path)
		if errors.Is(err, fs.ErrNotExist) {
			WriteError(w, http.StatusGone, "export file no longer exists", "EXPORT_GONE")
			return
		}
		if err != nil {
			cfg.Logger.Error("failed to open export", "path", entry.Path, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to open export", "INTERNAL_ERROR")
			return
		}
		defer file.Close()

		stat, err := file.Stat()
		if err != nil || stat.IsDir() {
			WriteError(w, http.StatusInternalServerError, "failed to stat export", "INTERNAL_ERROR")
			return
		}

		name := filepath.Base(entry.Path)
		if f, err := export.ParseFormat(entry.Format); err == nil {
			w.Header().Set("Content-Type", f.ContentType())
		}
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", asciiName(name), url.PathEscape(name)))
		http.ServeContent(w, r, name, stat.ModTime(), file)
	}
}

func ExportEntryToResponse(e *export.HistoryEntry) ExportEntryResponse {
	return ExportEntryResponse{
		ID:          e.ID,
		Format:      e.Format,
		Path:        e.Path,
		ProjectName: e.ProjectName,
		ShotCount:   e.ShotCount,
		SizeBytes:   e.SizeBytes,
		CreatedAt:   formatTime(e.CreatedAt),
	}
}

// asciiName is the filename fallback for clients that ignore filename*.
func asciiName(name string) string {
	out := []rune(name)
	for i, r := range out {
		if r > 0x7e || r < 0x20 || r == '"' || r == '\\' {
			out[i] = '_'
		}
	}
	return string(out)
}
