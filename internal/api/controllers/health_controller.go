package controllers

import (
	"net/http"
	"time"

	"github.com/chainsub/orchestrator/internal/app"
	"github.com/chainsub/orchestrator/internal/models"
	"github.com/chainsub/orchestrator/internal/services/audit"
)

// HealthController exposes the diagnostic and emergency-control
// surface of: ping, get_canister_health, get_system_metrics,
// emergency_pause_all, resume_operations.
type HealthController struct {
	app *app.App
}

func NewHealthController(a *app.App) *HealthController {
	return &HealthController{app: a}
}

func (c *HealthController) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (c *HealthController) GetCanisterHealth(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermReadSubscription) {
		return
	}
	subs := c.app.Subs.List()
	var failed int64
	for _, s := range subs {
		failed += s.FailedPaymentCount
	}
	c.app.Metrics.SetLoad(len(subs), failed)
	writeJSON(w, http.StatusOK, c.app.Metrics.GetHealth())
}

func (c *HealthController) GetSystemMetrics(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermReadSubscription) {
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write([]byte(c.app.Metrics.Export()))
}

func (c *HealthController) EmergencyPauseAll(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermEmergencyControl) {
		return
	}
	paused := 0
	for _, s := range c.app.Subs.List() {
		if s.Status == models.StatusActive {
			if coreErr := c.app.Subs.Pause(s.ID); coreErr == nil {
				c.app.Orch.RescheduleReminder(s.ID)
				paused++
			}
		}
	}
	identity, _, origin := requestIdentity(r)
	_ = c.app.Audit.Log(auditEntry(identity, "", origin, audit.OpEmergencyPause, true, ""))
	writeJSON(w, http.StatusOK, map[string]int{"paused": paused})
}

func (c *HealthController) ResumeOperations(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermEmergencyControl) {
		return
	}
	resumed := 0
	now := time.Now()
	for _, s := range c.app.Subs.List() {
		if s.Status == models.StatusPaused {
			if coreErr := c.app.Subs.Resume(s.ID, now); coreErr == nil {
				c.app.Orch.RescheduleReminder(s.ID)
				resumed++
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"resumed": resumed})
}
