package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

const defaultUploadLimit = 20 << 20

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Logger))

		r.Get("/project", projectHandler(cfg))
		r.Patch("/project/meta", updateMetaHandler(cfg))
		r.Post("/project/import", importHandler(cfg))
		r.Get("/project/export/{format}", downloadExportHandler(cfg))

		r.Post("/exports", writeExportHandler(cfg))
		r.Get("/exports", listExportsHandler(cfg))
		r.Get("/exports/{exportID}/file", exportFileHandler(cfg))

		r.Get("/selection", getSelectionHandler(cfg))
		r.Put("/selection", selectHandler(cfg))

		r.Route("/sequences", func(r chi.Router) {
			r.Post("/", addSequenceHandler(cfg))
			r.Put("/order", reorderSequencesHandler(cfg))
			r.Patch("/{seqID}", updateSequenceHandler(cfg))
			r.Delete("/{seqID}", deleteSequenceHandler(cfg))

			r.Route("/{seqID}/scenes", func(r chi.Router) {
				r.Post("/", addSceneHandler(cfg))
				r.Put("/order", reorderScenesHandler(cfg))
				r.Patch("/{sceneID}", updateSceneHandler(cfg))
				r.Delete("/{sceneID}", deleteSceneHandler(cfg))

				r.Route("/{sceneID}/shots", func(r chi.Router) {
					r.Post("/", addShotHandler(cfg))
					r.Put("/order", reorderShotsHandler(cfg))
					r.Patch("/{shotID}", updateShotHandler(cfg))
					r.Delete("/{shotID}", deleteShotHandler(cfg))
					r.Put("/{shotID}/image", uploadShotImageHandler(cfg))
					r.Delete("/{shotID}/image", clearShotImageHandler(cfg))
				})
			})
		})

		r.Route("/concepts/{category}", func(r chi.Router) {
			r.Post("/", addConceptCardHandler(cfg))
			r.Patch("/{cardID}", updateConceptCardHandler(cfg))
			r.Delete("/{cardID}", deleteConceptCardHandler(cfg))
			r.Patch("/{cardID}/slots/{slot}", updateSlotHandler(cfg))
			r.Put("/{cardID}/slots/{slot}/image", uploadSlotImageHandler(cfg))
			r.Delete("/{cardID}/slots/{slot}/image", clearSlotImageHandler(cfg))
		})

		r.Post("/images", processImageHandler(cfg))

		r.Get("/storage", storageHandler(cfg))
		r.Delete("/storage", resetStorageHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		p := cfg.Store.Project()
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
			Project: p.Meta.Name,
			Shots:   p.ShotCount(),
		})
	}
}

func projectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Store.Project())
	}
}

func updateMetaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MetaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		p, err := cfg.Store.UpdateMeta(storyboard.MetaUpdate{Name: req.Name, AspectRatio: req.AspectRatio})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, p.Meta)
	}
}

// importHandler accepts an exported project either as the raw request body
// or as a multipart upload in the "file" field.
func importHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := readUpload(w, r, cfg.uploadLimit())
		if err != nil {
			writeUploadError(w, err)
			return
		}

		p, err := cfg.Store.Import(data)
		if err != nil {
			cfg.Logger.Warn("project import rejected", "error", err)
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func getSelectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, SelectionToResponse(cfg.Store.Selection()))
	}
}

func selectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.SequenceID == "" {
			WriteError(w, http.StatusBadRequest, "sequence_id is required", "BAD_REQUEST")
			return
		}

		sel, err := cfg.Store.Select(req.SequenceID, req.SceneID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SelectionToResponse(sel))
	}
}

func (cfg ServerConfig) uploadLimit() int64 {
	if cfg.UploadLimit > 0 {
		return cfg.UploadLimit
	}
	return defaultUploadLimit
}

var errMissingFile = errors.New("multipart upload has no file field")

// readUpload returns the uploaded bytes from a multipart "file" field, or
// the raw body for any other content type.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}

	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, err
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, errMissingFile
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		WriteError(w, http.StatusRequestEntityTooLarge, "upload too large", "TOO_LARGE")
	case errors.Is(err, errMissingFile):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	default:
		WriteError(w, http.StatusBadRequest, "invalid upload", "BAD_REQUEST")
	}
}
