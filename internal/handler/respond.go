package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/goalpal/goalpal/internal/repository"
	"github.com/goalpal/goalpal/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondServiceError maps service and repository errors onto the API status
// taxonomy: conflicts 409, validation failures 422, missing records 404,
// everything else 500.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrWizardActiveExists),
		errors.Is(err, service.ErrActiveGroupExists),
		errors.Is(err, service.ErrBlockingRisks),
		errors.Is(err, service.ErrGenerationErrors),
		errors.Is(err, service.ErrChangeCooldown),
		errors.Is(err, service.ErrActivePlanInSubcategory),
		errors.Is(err, service.ErrTargetAlreadyGrouped),
		errors.Is(err, service.ErrReplanNotFailed):
		respondError(w, http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrWizardTerminal),
		errors.Is(err, service.ErrWizardWrongState),
		errors.Is(err, service.ErrInvalidDates),
		errors.Is(err, service.ErrSpanTooShort),
		errors.Is(err, service.ErrNoTargets),
		errors.Is(err, service.ErrTargetNotOwned),
		errors.Is(err, service.ErrInvalidConstraint),
		errors.Is(err, service.ErrNoDraftPlans),
		errors.Is(err, service.ErrFeasibilityNotRun),
		errors.Is(err, service.ErrGroupNotActive),
		errors.Is(err, service.ErrTargetNotInGroup),
		errors.Is(err, service.ErrNameRequired),
		errors.Is(err, service.ErrTitleRequired):
		respondError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, repository.ErrWizardNotFound),
		errors.Is(err, repository.ErrGoalGroupNotFound),
		errors.Is(err, repository.ErrTargetNotFound),
		errors.Is(err, repository.ErrPlanNotFound),
		errors.Is(err, repository.ErrGoGetterNotFound),
		errors.Is(err, repository.ErrChangeNotFound):
		respondError(w, http.StatusNotFound, err.Error())

	default:
		slog.Error("unhandled service error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
