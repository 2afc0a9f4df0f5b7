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

// CreateTrajetBody is the JSON body for POST /api/v1/trajets.
type CreateTrajetBody struct {
	UserID           string  `json:"userId"`
	VilleDepart      string  `json:"villeDepart"`
	VilleArrivee     string  `json:"villeArrivee"`
	DateVoyage       string  `json:"dateVoyage"` // YYYY-MM-DD, required
	KilosDisponibles float64 `json:"kilosDisponibles"`
	PrixParKilo      float64 `json:"prixParKilo"`
}

// ─── TrajetHandler ──────────────────────────────────────────

// TrajetHandler handles trip record creation and lookup.
type TrajetHandler struct {
	repo *repository.TrajetRepository
}

// NewTrajetHandler creates a new trajet handler.
func NewTrajetHandler(repo *repository.TrajetRepository) *TrajetHandler {
	return &TrajetHandler{repo: repo}
}

// CreateTrajet handles POST /api/v1/trajets
func (h *TrajetHandler) CreateTrajet(w http.ResponseWriter, r *http.Request) {
	var body CreateTrajetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return
	}

	if body.UserID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "userId is required")
		return
	}
	if body.VilleDepart == "" || body.VilleArrivee == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "villeDepart and villeArrivee are required")
		return
	}
	if body.KilosDisponibles <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "kilosDisponibles must be positive")
		return
	}
	if body.PrixParKilo < 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "prixParKilo must not be negative")
		return
	}

	dateVoyage, err := time.Parse("2006-01-02", body.DateVoyage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "dateVoyage must be YYYY-MM-DD")
		return
	}

	trajet := &model.Trajet{
		UserID:           body.UserID,
		VilleDepart:      body.VilleDepart,
		VilleArrivee:     body.VilleArrivee,
		DateVoyage:       dateVoyage,
		KilosDisponibles: body.KilosDisponibles,
		PrixParKilo:      body.PrixParKilo,
	}

	created, err := h.repo.CreateTrajet(r.Context(), trajet)
	if err != nil {
		log.Printf("[handler] create trajet: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create trajet")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// GetTrajet handles GET /api/v1/trajets/{id}
func (h *TrajetHandler) GetTrajet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	trajet, err := h.repo.GetTrajetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "trajet not found")
			return
		}
		log.Printf("[handler] get trajet: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to fetch trajet")
		return
	}

	writeJSON(w, http.StatusOK, trajet)
}
