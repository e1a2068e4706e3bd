package api

import (
	"net/http"

	"github.com/tbstudio/storyboard-agent/internal/persist"
)

func storageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size, err := cfg.Slot.Size(r.Context())
		if err != nil {
			cfg.Logger.Error("failed to read storage size", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to read storage", "INTERNAL_ERROR")
			return
		}

		warn := cfg.WarnBytes
		if warn <= 0 {
			warn = persist.DefaultWarnBytes
		}
		resp := StorageResponse{
			Key:        cfg.Slot.Key(),
			Backend:    cfg.Backend,
			SizeBytes:  size,
			WarnBytes:  warn,
			QuotaBytes: cfg.Slot.Quota(),
			Warning:    size >= warn,
		}
		if cfg.AutoSaver != nil {
			resp.QuotaExceeded = cfg.AutoSaver.QuotaExceeded()
			resp.SavePending = cfg.AutoSaver.Pending()
			resp.LastSavedAt = formatTime(cfg.AutoSaver.LastSaved())
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// resetStorageHandler replaces the project with the default one and clears
// the slot. The reset project is then saved by the autosaver like any
// other edit.
func resetStorageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := cfg.Store.Reset()
		if err := cfg.Slot.Clear(r.Context()); err != nil {
			cfg.Logger.Error("failed to clear storage", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to clear storage", "INTERNAL_ERROR")
			return
		}
		cfg.Logger.Info("storage cleared", "key", cfg.Slot.Key())
		WriteJSON(w, http.StatusOK, p)
	}
}
