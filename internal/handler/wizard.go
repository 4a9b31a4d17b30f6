package handler

import (
	"net/http"
	"time"

	"github.com/goalpal/goalpal/internal/model"
	"github.com/goalpal/goalpal/internal/service"
)

type WizardHandler struct {
	wizardService *service.WizardService
}

func NewWizardHandler(wizardService *service.WizardService) *WizardHandler {
	return &WizardHandler{
		wizardService: wizardService,
	}
}

func (h *WizardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GoGetterID string `json:"go_getter_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.GoGetterID == "" {
		respondError(w, http.StatusUnprocessableEntity, "go_getter_id is required")
		return
	}

	wizard, err := h.wizardService.Create(req.GoGetterID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, wizard)
}

func (h *WizardHandler) Get(w http.ResponseWriter, r *http.Request) {
	wizard, err := h.wizardService.ByID(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, wizard)
}

func (h *WizardHandler) SetScope(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		StartDate   time.Time `json:"start_date"`
		EndDate     time.Time `json:"end_date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	wizard, err := h.wizardService.SetScope(r.PathValue("id"), req.Title, req.Description, req.StartDate, req.EndDate)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, wizard)
}

func (h *WizardHandler) SetTargets(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Targets []service.TargetSpecInput `json:"targets"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	wizard, err := h.wizardService.SetTargets(r.PathValue("id"), req.Targets)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, wizard)
}

// SetConstraints is the slow step: it runs draft generation and the
// feasibility check before responding with the full wizard snapshot.
func (h *WizardHandler) SetConstraints(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Constraints map[string]model.Constraint `json:"constraints"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	wizard, err := h.wizardService.SetConstraints(r.Context(), r.PathValue("id"), req.Constraints)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, wizard)
}

func (h *WizardHandler) Feasibility(w http.ResponseWriter, r *http.Request) {
	wizard, err := h.wizardService.ByID(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"feasibility_passed": wizard.FeasibilityPassed,
		"risks":              wizard.FeasibilityRisks,
		"generation_errors":  wizard.GenerationErrors,
	})
}

func (h *WizardHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req service.AdjustRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wizard, err := h.wizardService.Adjust(r.Context(), r.PathValue("id"), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, wizard)
}

func (h *WizardHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	wizard, err := h.wizardService.Confirm(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, wizard)
}

func (h *WizardHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	wizard, err := h.wizardService.Cancel(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, wizard)
}

// Expire is the janitor sweep endpoint cancelling every wizard past its TTL.
func (h *WizardHandler) Expire(w http.ResponseWriter, r *http.Request) {
	swept, err := h.wizardService.Sweep()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"expired": swept})
}
