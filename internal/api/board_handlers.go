package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

func addSequenceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seq, err := cfg.Store.AddSequence()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, seq)
	}
}

func updateSequenceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		seqID := chi.URLParam(r, "seqID")
		p, err := cfg.Store.UpdateSequence(seqID, storyboard.SequenceUpdate{Name: req.Name})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		seq, _ := p.FindSequence(seqID)
		WriteJSON(w, http.StatusOK, seq)
	}
}

func deleteSequenceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := cfg.Store.DeleteSequence(chi.URLParam(r, "seqID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reorderSequencesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		p, err := cfg.Store.ReorderSequences(req.IDs)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, p.Storyboard)
	}
}

func addSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := cfg.Store.AddScene(chi.URLParam(r, "seqID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, sc)
	}
}

func updateSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		seqID, sceneID := chi.URLParam(r, "seqID"), chi.URLParam(r, "sceneID")
		p, err := cfg.Store.UpdateScene(seqID, sceneID, storyboard.SceneUpdate{Name: req.Name})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeScene(w, p, seqID, sceneID)
	}
}

func deleteSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := cfg.Store.DeleteScene(chi.URLParam(r, "seqID"), chi.URLParam(r, "sceneID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reorderScenesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		seqID := chi.URLParam(r, "seqID")
		p, err := cfg.Store.ReorderScenes(seqID, req.IDs)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		seq, _ := p.FindSequence(seqID)
		WriteJSON(w, http.StatusOK, seq)
	}
}

func addShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shot, err := cfg.Store.AddShot(chi.URLParam(r, "seqID"), chi.URLParam(r, "sceneID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, shot)
	}
}

func updateShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ShotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		upd := storyboard.ShotUpdate{Action: req.Action, Dialogue: req.Dialogue}
		if req.Time != nil {
			tc := storyboard.ParseTimeCode(*req.Time, cfg.Store.Project().Meta.FrameRate)
			upd.Time = &tc
		}
		applyShotUpdate(w, r, cfg, upd)
	}
}

func deleteShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := cfg.Store.DeleteShot(chi.URLParam(r, "seqID"), chi.URLParam(r, "sceneID"), chi.URLParam(r, "shotID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reorderShotsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		seqID, sceneID := chi.URLParam(r, "seqID"), chi.URLParam(r, "sceneID")
		p, err := cfg.Store.ReorderShots(seqID, sceneID, req.IDs)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeScene(w, p, seqID, sceneID)
	}
}

func uploadShotImageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := readUpload(w, r, cfg.uploadLimit())
		if err != nil {
			writeUploadError(w, err)
			return
		}
		img, err := cfg.Images.Process(bytes.NewReader(data))
		if err != nil {
			cfg.Logger.Warn("shot image rejected", "error", err)
			writeDomainError(w, err)
			return
		}
		applyShotUpdate(w, r, cfg, storyboard.ShotUpdate{Image: &img})
	}
}

func clearShotImageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applyShotUpdate(w, r, cfg, storyboard.ShotUpdate{ClearImage: true})
	}
}

func applyShotUpdate(w http.ResponseWriter, r *http.Request, cfg ServerConfig, upd storyboard.ShotUpdate) {
	seqID, sceneID, shotID := chi.URLParam(r, "seqID"), chi.URLParam(r, "sceneID"), chi.URLParam(r, "shotID")
	p, err := cfg.Store.UpdateShot(seqID, sceneID, shotID, upd)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	seq, _ := p.FindSequence(seqID)
	sc, _, _ := seq.FindScene(sceneID)
	shot, _ := sc.FindShot(shotID)
	WriteJSON(w, http.StatusOK, shot)
}

func writeScene(w http.ResponseWriter, p storyboard.Project, seqID, sceneID string) {
	seq, _ := p.FindSequence(seqID)
	sc, _, _ := seq.FindScene(sceneID)
	WriteJSON(w, http.StatusOK, sc)
}
