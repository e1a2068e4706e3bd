package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

func categoryParam(r *http.Request) storyboard.ConceptCategory {
	return storyboard.ConceptCategory(chi.URLParam(r, "category"))
}

func slotParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "slot must be an integer", "BAD_REQUEST")
		return 0, false
	}
	return slot, true
}

func addConceptCardHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := cfg.Store.AddConceptCard(categoryParam(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, card)
	}
}

func updateConceptCardHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		cat, cardID := categoryParam(r), chi.URLParam(r, "cardID")
		p, err := cfg.Store.UpdateConceptCard(cat, cardID, storyboard.ConceptCardUpdate{Name: req.Name})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeCard(w, p, cat, cardID)
	}
}

func deleteConceptCardHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := cfg.Store.DeleteConceptCard(categoryParam(r), chi.URLParam(r, "cardID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func updateSlotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		var req SlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Description == nil {
			WriteError(w, http.StatusBadRequest, "description is required", "BAD_REQUEST")
			return
		}

		cat, cardID := categoryParam(r), chi.URLParam(r, "cardID")
		p, err := cfg.Store.SetConceptSlotDescription(cat, cardID, slot, *req.Description)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeCard(w, p, cat, cardID)
	}
}

func uploadSlotImageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		data, err := readUpload(w, r, cfg.uploadLimit())
		if err != nil {
			writeUploadError(w, err)
			return
		}
		img, err := cfg.Images.Process(bytes.NewReader(data))
		if err != nil {
			cfg.Logger.Warn("concept image rejected", "error", err)
			writeDomainError(w, err)
			return
		}

		cat, cardID := categoryParam(r), chi.URLParam(r, "cardID")
		p, err := cfg.Store.SetConceptSlotImage(cat, cardID, slot, &img)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeCard(w, p, cat, cardID)
	}
}

func clearSlotImageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := slotParam(w, r)
		if !ok {
			return
		}
		cat, cardID := categoryParam(r), chi.URLParam(r, "cardID")
		p, err := cfg.Store.SetConceptSlotImage(cat, cardID, slot, nil)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeCard(w, p, cat, cardID)
	}
}

func processImageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := readUpload(w, r, cfg.uploadLimit())
		if err != nil {
			writeUploadError(w, err)
			return
		}
		img, err := cfg.Images.Process(bytes.NewReader(data))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, img)
	}
}

func writeCard(w http.ResponseWriter, p storyboard.Project, cat storyboard.ConceptCategory, cardID string) {
	for _, c := range p.ConceptArt.Cards(cat) {
		if c.ID == cardID {
			WriteJSON(w, http.StatusOK, c)
			return
		}
	}
	WriteError(w, http.StatusNotFound, "concept card not found", "NOT_FOUND")
}
