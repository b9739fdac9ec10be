package routes

import (
	"github.com/gorilla/mux"

	"github.com/chainsub/orchestrator/internal/api/controllers"
	"github.com/chainsub/orchestrator/internal/api/middleware"
	"github.com/chainsub/orchestrator/internal/app"
)

// Register mounts every handler in the orchestrator's HTTP API surface
// onto r.
func Register(r *mux.Router, a *app.App) {
	r.Use(middleware.Logger)

	subs := controllers.NewSubscriptionController(a)
	admin := controllers.NewAdminController(a)
	auth := controllers.NewAuthController(a)
	health := controllers.NewHealthController(a)
	meta := controllers.NewMetadataController(a)
	system := controllers.NewSystemController(a)

	r.HandleFunc("/api/subscriptions", subs.Create).Methods("POST")
	r.HandleFunc("/api/subscriptions", subs.List).Methods("GET")
	r.HandleFunc("/api/subscriptions/overdue", subs.Overdue).Methods("GET")
	r.HandleFunc("/api/subscriptions/cleanup", subs.Cleanup).Methods("POST")
	r.HandleFunc("/api/subscriptions/{id}", subs.Get).Methods("GET")
	r.HandleFunc("/api/subscriptions/{id}/pause", subs.Pause).Methods("POST")
	r.HandleFunc("/api/subscriptions/{id}/resume", subs.Resume).Methods("POST")
	r.HandleFunc("/api/subscriptions/{id}/cancel", subs.Cancel).Methods("POST")

	r.HandleFunc("/api/admin/initialize_first_admin", admin.InitializeFirstAdmin).Methods("POST")
	r.HandleFunc("/api/admin/admins", admin.GetAdmins).Methods("GET")
	r.HandleFunc("/api/admin/admins", admin.AddAdmin).Methods("POST")
	r.HandleFunc("/api/admin/admins", admin.RemoveAdmin).Methods("DELETE")
	r.HandleFunc("/api/admin/read_only_users", admin.GetReadOnlyUsers).Methods("GET")
	r.HandleFunc("/api/admin/read_only_users", admin.AddReadOnlyUser).Methods("POST")
	r.HandleFunc("/api/admin/read_only_users", admin.RemoveReadOnlyUser).Methods("DELETE")

	r.HandleFunc("/api/auth/challenge", auth.Challenge).Methods("POST")
	r.HandleFunc("/api/auth/authenticate", auth.Authenticate).Methods("POST")

	r.HandleFunc("/api/ping", health.Ping).Methods("GET")
	r.HandleFunc("/api/health", health.GetCanisterHealth).Methods("GET")
	r.HandleFunc("/api/metrics", health.GetSystemMetrics).Methods("GET")
	r.HandleFunc("/api/emergency_pause_all", health.EmergencyPauseAll).Methods("POST")
	r.HandleFunc("/api/resume_operations", health.ResumeOperations).Methods("POST")

	r.HandleFunc("/api/metadata", meta.List).Methods("GET")
	r.HandleFunc("/api/metadata/{id}", meta.Get).Methods("GET")
	r.HandleFunc("/api/metadata", meta.Store).Methods("POST")
	r.HandleFunc("/api/metadata/{id}", meta.Delete).Methods("DELETE")

	r.HandleFunc("/api/system/network", system.SetNetwork).Methods("POST")
	r.HandleFunc("/api/system/initialize", system.InitializeCanister).Methods("POST")
}
