package api

import (
	"time"

	"github.com/tbstudio/storyboard-agent/internal/studio"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
	Project string `json:"project"`
	Shots   int    `json:"shots"`
}

type MetaRequest struct {
	Name        *string `json:"name,omitempty"`
	AspectRatio *string `json:"aspect_ratio,omitempty"`
}

type SelectionRequest struct {
	SequenceID string `json:"sequence_id"`
	SceneID    string `json:"scene_id,omitempty"`
}

type SelectionResponse struct {
	SequenceID string `json:"sequence_id"`
	SceneID    string `json:"scene_id"`
}

type NameRequest struct {
	Name *string `json:"name,omitempty"`
}

type OrderRequest struct {
	IDs []string `json:"ids"`
}

// ShotRequest edits shot text. Time uses the "S+F" notation and is clamped
// against the project frame rate.
type ShotRequest struct {
	Time     *string `json:"time,omitempty"`
	Action   *string `json:"action,omitempty"`
	Dialogue *string `json:"dialogue,omitempty"`
}

type SlotRequest struct {
	Description *string `json:"description,omitempty"`
}

type StorageResponse struct {
	Key           string `json:"key"`
	Backend       string `json:"backend,omitempty"`
	SizeBytes     int    `json:"size_bytes"`
	WarnBytes     int    `json:"warn_bytes"`
	QuotaBytes    int    `json:"quota_bytes"`
	Warning       bool   `json:"warning"`
	QuotaExceeded bool   `json:"quota_exceeded"`
	SavePending   bool   `json:"save_pending"`
	LastSavedAt   string `json:"last_saved_at,omitempty"`
}

type ExportsResponse struct {
	Exports []ExportEntryResponse `json:"exports"`
}

type ExportEntryResponse struct {
	ID          string `json:"id"`
	Format      string `json:"format"`
	Path        string `json:"path"`
	ProjectName string `json:"project_name"`
	ShotCount   int    `json:"shot_count"`
	SizeBytes   int64  `json:"size_bytes"`
	CreatedAt   string `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func SelectionToResponse(s studio.Selection) SelectionResponse {
	return SelectionResponse{SequenceID: s.SequenceID, SceneID: s.SceneID}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
