package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tandemapp/tandem/internal/auth"
	"github.com/tandemapp/tandem/internal/store"
)

type SurveyHandler struct {
	surveyStore *store.SurveyStore
	logger      *slog.Logger
}

func NewSurveyHandler(ss *store.SurveyStore, logger *slog.Logger) *SurveyHandler {
	return &SurveyHandler{surveyStore: ss, logger: logger}
}

type surveyRequest struct {
	CareNeeds    string `json:"care_needs"`
	Children     int    `json:"children"`
	ZipCode      string `json:"zip_code"`
	Availability string `json:"availability"`
	Notes        string `json:"notes"`
}

func (h *SurveyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req surveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if req.Children < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "children must not be negative"})
		return
	}

	survey, err := h.surveyStore.Create(userID, req.CareNeeds, req.Children, req.ZipCode, req.Availability, req.Notes)
	if err != nil {
		h.logger.Error("create survey", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create survey"})
		return
	}

	writeJSON(w, http.StatusCreated, survey)
}

// Mine returns the caller's most recent survey.
func (h *SurveyHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	survey, err := h.surveyStore.GetLatestByUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get survey"})
		return
	}
	if survey == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no survey"})
		return
	}
	writeJSON(w, http.StatusOK, survey)
}

func (h *SurveyHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.surveyStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get survey"})
		return
	}
	if existing == nil || existing.UserID != userID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "survey not found"})
		return
	}

	var req surveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if req.Children < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "children must not be negative"})
		return
	}

	survey, err := h.surveyStore.Update(id, req.CareNeeds, req.Children, req.ZipCode, req.Availability, req.Notes)
	if err != nil {
		h.logger.Error("update survey", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update survey"})
		return
	}

	writeJSON(w, http.StatusOK, survey)
}
