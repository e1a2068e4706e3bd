package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// fixed-width so created_at sorts as text
const historyTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// HistoryEntry is one export written to disk.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Format      string    `json:"format"`
	Path        string    `json:"path"`
	ProjectName string    `json:"project_name"`
	ShotCount   int       `json:"shot_count"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrExportNotFound is returned by Get for an unknown id.
var ErrExportNotFound = errors.New("export not found")

// History lists past exports from the exports table.
type History struct {
	db *sql.DB
}

func NewHistory(db *sql.DB) *History {
	return &History{db: db}
}

func (h *History) Record(ctx context.Context, projectName string, resp *ExportResponse) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO exports (id, format, path, project_name, shot_count, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), resp.Format, resp.OutputPath, projectName, resp.ShotCount, resp.SizeBytes,
		time.Now().UTC().Format(historyTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to record export: %w", err)
	}
	return nil
}

// List returns the most recent exports first.
func (h *History) List(ctx context.Context, limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, format, path, project_name, shot_count, size_bytes, created_at
		FROM exports ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Format, &e.Path, &e.ProjectName, &e.ShotCount, &e.SizeBytes, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(historyTimeLayout, createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Get returns one recorded export by id.
func (h *History) Get(ctx context.Context, id string) (*HistoryEntry, error) {
	var e HistoryEntry
	var createdAt string
	err := h.db.QueryRowContext(ctx, `
		SELECT id, format, path, project_name, shot_count, size_bytes, created_at
		FROM exports WHERE id = ?
	`, id).Scan(&e.ID, &e.Format, &e.Path, &e.ProjectName, &e.ShotCount, &e.SizeBytes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export: %w", err)
	}
	e.CreatedAt, _ = time.Parse(historyTimeLayout, createdAt)
	return &e, nil
}
