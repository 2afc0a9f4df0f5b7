package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/amara/cobagage/internal/model"
	"github.com/amara/cobagage/internal/repository"
)

// ─── Request DTOs ───────────────────────────────────────────

// CreateColisBody is the JSON body for POST /api/v1/colis.
type CreateColisBody struct {
	UserID         string  `json:"userId"`
	VilleEnvoi     string  `json:"villeEnvoi"`
	VilleReception string  `json:"villeReception"`
	Poids          float64 `json:"poids"`
	DateEnvoi      *string `json:"dateEnvoi,omitempty"` // YYYY-MM-DD; absent = flexible
	Flexibilite    int     `json:"flexibilite,omitempty"`
	Urgence        string  `json:"urgence,omitempty"`
}

// ─── ColisHandler ───────────────────────────────────────────

// ColisHandler handles package record creation and lookup.
type ColisHandler struct {
	repo *repository.ColisRepository
}

// NewColisHandler creates a new colis handler.
func NewColisHandler(repo *repository.ColisRepository) *ColisHandler {
	return &ColisHandler{repo: repo}
}

// CreateColis handles POST /api/v1/colis
func (h *ColisHandler) CreateColis(w http.ResponseWriter, r *http.Request) {
	var body CreateColisBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return
	}

	if body.UserID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "userId is required")
		return
	}
	if body.VilleEnvoi == "" || body.VilleReception == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "villeEnvoi and villeReception are required")
		return
	}
	if body.Poids <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "poids must be positive")
		return
	}
	urgence := model.UrgencyLevel(body.Urgence)
	if body.Urgence != "" && !urgence.Valid() {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "urgence must be low, medium, high or critical")
		return
	}
	if body.Flexibilite < 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "flexibilite must not be negative")
		return
	}

	var dateEnvoi *time.Time
	if body.DateEnvoi != nil {
		parsed, err := time.Parse("2006-01-02", *body.DateEnvoi)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "dateEnvoi must be YYYY-MM-DD")
			return
		}
		dateEnvoi = &parsed
	}

	colis := &model.Colis{
		UserID:         body.UserID,
		VilleEnvoi:     body.VilleEnvoi,
		VilleReception: body.VilleReception,
		Poids:          body.Poids,
		DateEnvoi:      dateEnvoi,
		Flexibilite:    body.Flexibilite,
		Urgence:        urgence,
	}

	created, err := h.repo.CreateColis(r.Context(), colis)
	if err != nil {
		log.Printf("[handler] create colis: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create colis")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// GetColis handles GET /api/v1/colis/{id}
func (h *ColisHandler) GetColis(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	colis, err := h.repo.GetColisByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "colis not found")
			return
		}
		log.Printf("[handler] get colis: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to fetch colis")
		return
	}

	writeJSON(w, http.StatusOK, colis)
}
