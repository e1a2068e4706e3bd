package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tbstudio/storyboard-agent/internal/logging"
	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

// Render writes p to w in the given format.
func Render(w io.Writer, f Format, p storyboard.Project, opts PDFOptions) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, p)
	case FormatPDF:
		return writePDF(w, p, opts)
	case FormatEDL:
		return writeEDL(w, p)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// Exporter writes export files to disk and records them in the history.
type Exporter struct {
	history *History
	pdfOpts PDFOptions
	logger  *slog.Logger
}

func NewExporter(history *History, fontPath string, logger *slog.Logger) *Exporter {
	return &Exporter{
		history: history,
		pdfOpts: PDFOptions{FontPath: fontPath},
		logger:  logging.WithComponent(logging.OrDiscard(logger), "export"),
	}
}

// PDFOptions returns the options used for PDF rendering.
func (e *Exporter) PDFOptions() PDFOptions {
	opts := e.pdfOpts
	opts.GeneratedAt = time.Now()
	return opts
}

// WriteFile renders p into dir, named after the project. The file is
// written under a temporary name and renamed once complete.
func (e *Exporter) WriteFile(ctx context.Context, dir string, f Format, p storyboard.Project) (*ExportResponse, error) {
	if err := ValidateOutputDir(dir); err != nil {
		return nil, err
	}

	outPath := filepath.Join(dir, FileName(p, f))
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := Render(tmp, f, p, e.PDFOptions()); err != nil {
		tmp.Close()
		return nil, err
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to stat export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close export file: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}

	resp := &ExportResponse{
		Status:     "completed",
		Format:     string(f),
		OutputPath: outPath,
		ShotCount:  p.ShotCount(),
		SizeBytes:  info.Size(),
	}

	logger := logging.WithProjectName(e.logger, p.Meta.Name)
	if e.history != nil {
		if err := e.history.Record(ctx, p.Meta.Name, resp); err != nil {
			logger.Warn("failed to record export", "path", outPath, "error", err)
		}
	}
	logger.Info("export written", "format", f, "path", logging.SanitizePath(outPath), "bytes", resp.SizeBytes)
	return resp, nil
}
