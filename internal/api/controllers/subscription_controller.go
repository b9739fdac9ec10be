package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/chainsub/orchestrator/internal/app"
	"github.com/chainsub/orchestrator/internal/models"
	"github.com/chainsub/orchestrator/internal/services/audit"
)

// SubscriptionController exposes the subscription lifecycle operations
// of: create, pause, resume, cancel, list, get, cleanup.
type SubscriptionController struct {
	app *app.App
}

func NewSubscriptionController(a *app.App) *SubscriptionController {
	return &SubscriptionController{app: a}
}

func (c *SubscriptionController) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermCreateSubscription) {
		return
	}
	var req models.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sub, coreErr := c.app.Subs.Create(req, time.Now())
	if coreErr != nil {
		writeCoreError(w, coreErr)
		return
	}
	c.app.Orch.RescheduleReminder(sub.ID)
	identity, _, origin := requestIdentity(r)
	_ = c.app.Audit.Log(auditEntry(identity, sub.ID, origin, audit.OpSubscriptionCreated, true, ""))
	writeJSON(w, http.StatusCreated, sub)
}

func (c *SubscriptionController) Pause(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermMutateSubscription) {
		return
	}
	id := mux.Vars(r)["id"]
	if coreErr := c.app.Subs.Pause(id); coreErr != nil {
		writeCoreError(w, coreErr)
		return
	}
	c.app.Orch.RescheduleReminder(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "Paused"})
}

func (c *SubscriptionController) Resume(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermMutateSubscription) {
		return
	}
	id := mux.Vars(r)["id"]
	if coreErr := c.app.Subs.Resume(id, time.Now()); coreErr != nil {
		writeCoreError(w, coreErr)
		return
	}
	c.app.Orch.RescheduleReminder(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "Active"})
}

func (c *SubscriptionController) Cancel(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermMutateSubscription) {
		return
	}
	id := mux.Vars(r)["id"]
	if coreErr := c.app.Subs.Cancel(id); coreErr != nil {
		writeCoreError(w, coreErr)
		return
	}
	c.app.Orch.RescheduleReminder(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "Cancelled"})
}

func (c *SubscriptionController) Get(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermReadSubscription) {
		return
	}
	id := mux.Vars(r)["id"]
	sub, ok := c.app.Subs.Get(id)
	if !ok {
		writeCoreError(w, models.NewError(models.KindNotFound, "NotFound", "subscription not found: "+id, nil))
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (c *SubscriptionController) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermReadSubscription) {
		return
	}
	writeJSON(w, http.StatusOK, c.app.Subs.List())
}

func (c *SubscriptionController) Overdue(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermReadSubscription) {
		return
	}
	writeJSON(w, http.StatusOK, c.app.Subs.Overdue(time.Now()))
}

type cleanupRequest struct {
	OlderThanSeconds int64 `json:"older_than_seconds"`
}

func (c *SubscriptionController) Cleanup(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermMutateSubscription) {
		return
	}
	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	removed := c.app.Subs.Cleanup(time.Duration(req.OlderThanSeconds)*time.Second, time.Now())
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
