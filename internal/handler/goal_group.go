package handler

import (
	"net/http"

	"github.com/goalpal/goalpal/internal/service"
)

type GoalGroupHandler struct {
	groupService *service.GoalGroupService
}

func NewGoalGroupHandler(groupService *service.GoalGroupService) *GoalGroupHandler {
	return &GoalGroupHandler{
		groupService: groupService,
	}
}

func (h *GoalGroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.groupService.Group(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

func (h *GoalGroupHandler) AddTarget(w http.ResponseWriter, r *http.Request) {
	change, err := h.groupService.AddTarget(r.Context(), r.PathValue("id"), r.PathValue("targetID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, change)
}

func (h *GoalGroupHandler) RemoveTarget(w http.ResponseWriter, r *http.Request) {
	change, err := h.groupService.RemoveTarget(r.Context(), r.PathValue("id"), r.PathValue("targetID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, change)
}

// ReplanReset clears a stuck failed replan lock. Operator action.
func (h *GoalGroupHandler) ReplanReset(w http.ResponseWriter, r *http.Request) {
	err := h.groupService.ResetReplan(r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"replan_status": "idle"})
}
