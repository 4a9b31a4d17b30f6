package routes

import (
	"net/http"

	"github.com/goalpal/goalpal/internal/app"
	"github.com/goalpal/goalpal/internal/handler"
	"github.com/goalpal/goalpal/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	roster := handler.NewRosterHandler(app.RosterService)
	wizard := handler.NewWizardHandler(app.WizardService)
	group := handler.NewGoalGroupHandler(app.GoalGroupService)

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /health", health.Health)

	// Roster
	mux.HandleFunc("POST /v1/go-getters", roster.CreateGoGetter)
	mux.HandleFunc("POST /v1/targets", roster.CreateTarget)

	// Wizard flow
	mux.HandleFunc("POST /v1/wizards", wizard.Create)
	mux.HandleFunc("GET /v1/wizards/{id}", wizard.Get)
	mux.HandleFunc("POST /v1/wizards/{id}/scope", wizard.SetScope)
	mux.HandleFunc("POST /v1/wizards/{id}/targets", wizard.SetTargets)
	mux.HandleFunc("POST /v1/wizards/{id}/constraints", wizard.SetConstraints)
	mux.HandleFunc("GET /v1/wizards/{id}/feasibility", wizard.Feasibility)
	mux.HandleFunc("POST /v1/wizards/{id}/adjust", wizard.Adjust)
	mux.HandleFunc("POST /v1/wizards/{id}/confirm", wizard.Confirm)
	mux.HandleFunc("DELETE /v1/wizards/{id}", wizard.Cancel)

	// Janitor sweep for expired wizards
	mux.HandleFunc("POST /v1/wizards/expire", wizard.Expire)

	// Goal groups
	mux.HandleFunc("GET /v1/groups/{id}", group.Get)
	mux.HandleFunc("POST /v1/groups/{id}/targets/{targetID}", group.AddTarget)
	mux.HandleFunc("DELETE /v1/groups/{id}/targets/{targetID}", group.RemoveTarget)
	mux.HandleFunc("POST /v1/groups/{id}/replan-reset", group.ReplanReset)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.Recover,
	)
}
