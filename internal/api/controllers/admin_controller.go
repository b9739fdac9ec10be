package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/chainsub/orchestrator/internal/app"
	"github.com/chainsub/orchestrator/internal/models"
	"github.com/chainsub/orchestrator/internal/services/audit"
)

// AdminController exposes the role-management surface of:
// initialize_first_admin, add/remove admins and read-only users.
type AdminController struct {
	app *app.App
}

func NewAdminController(a *app.App) *AdminController {
	return &AdminController{app: a}
}

type identityRequest struct {
	Identity string `json:"identity"`
}

// InitializeFirstAdmin bootstraps the admin set. No permission check
// runs here: the whole point is that it only succeeds once, before any
// admin exists.
func (c *AdminController) InitializeFirstAdmin(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if coreErr := c.app.Auth.InitializeFirstAdmin(req.Identity); coreErr != nil {
		writeCoreError(w, coreErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *AdminController) AddAdmin(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermManageAdmins) {
		return
	}
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.app.Auth.AddAdmin(req.Identity)
	identity, _, origin := requestIdentity(r)
	_ = c.app.Audit.Log(auditEntry(identity, "", origin, audit.OpAdminChanged, true, "add_admin:"+req.Identity))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *AdminController) RemoveAdmin(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermManageAdmins) {
		return
	}
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	caller, _, origin := requestIdentity(r)
	if coreErr := c.app.Auth.RemoveAdmin(caller, req.Identity); coreErr != nil {
		writeCoreError(w, coreErr)
		return
	}
	_ = c.app.Audit.Log(auditEntry(caller, "", origin, audit.OpAdminChanged, true, "remove_admin:"+req.Identity))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *AdminController) AddReadOnlyUser(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermManageAdmins) {
		return
	}
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.app.Auth.AddReadOnlyUser(req.Identity)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *AdminController) RemoveReadOnlyUser(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermManageAdmins) {
		return
	}
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if coreErr := c.app.Auth.RemoveReadOnlyUser(req.Identity); coreErr != nil {
		writeCoreError(w, coreErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *AdminController) GetAdmins(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermManageAdmins) {
		return
	}
	writeJSON(w, http.StatusOK, c.app.Auth.GetAdmins())
}

func (c *AdminController) GetReadOnlyUsers(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermManageAdmins) {
		return
	}
	writeJSON(w, http.StatusOK, c.app.Auth.GetReadOnlyUsers())
}
