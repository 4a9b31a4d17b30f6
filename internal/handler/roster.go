package handler

import (
	"net/http"

	"github.com/goalpal/goalpal/internal/service"
)

type RosterHandler struct {
	rosterService *service.RosterService
}

func NewRosterHandler(rosterService *service.RosterService) *RosterHandler {
	return &RosterHandler{
		rosterService: rosterService,
	}
}

func (h *RosterHandler) CreateGoGetter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Grade string `json:"grade"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	gg, err := h.rosterService.CreateGoGetter(req.Name, req.Grade)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, gg)
}

func (h *RosterHandler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GoGetterID    string  `json:"go_getter_id"`
		Title         string  `json:"title"`
		Subject       string  `json:"subject"`
		Description   string  `json:"description"`
		SubcategoryID *string `json:"subcategory_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	target, err := h.rosterService.CreateTarget(req.GoGetterID, req.Title, req.Subject, req.Description, req.SubcategoryID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, target)
}
