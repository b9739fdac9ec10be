package controllers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/chainsub/orchestrator/internal/app"
	"github.com/chainsub/orchestrator/internal/models"
	"github.com/chainsub/orchestrator/internal/services/audit"
)

// AuthController implements the challenge/response authentication flow
// of: a client requests a challenge, signs it with its
// threshold-derived or local key, and exchanges the signature for a
// session token.
type AuthController struct {
	app *app.App
}

func NewAuthController(a *app.App) *AuthController {
	return &AuthController{app: a}
}

func (c *AuthController) Challenge(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	challenge, err := c.app.Auth.GenerateChallenge(req.Identity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, challenge)
}

type authenticateRequest struct {
	Identity string `json:"identity"`
	Permissions []models.Permission `json:"permissions"`
	Nonce string `json:"nonce"`
	SignatureB64 string `json:"signature"`
}

func (c *AuthController) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sig, err := base64.StdEncoding.DecodeString(req.SignatureB64)
	if err != nil {
		http.Error(w, "invalid signature encoding", http.StatusBadRequest)
		return
	}
	_, _, origin := requestIdentity(r)
	session, coreErr := c.app.Auth.Authenticate(req.Identity, req.Permissions, req.Nonce, sig, origin)
	if coreErr != nil {
		_ = c.app.Audit.Log(auditEntry(req.Identity, "", origin, audit.OpAuthFailed, false, coreErr.Error()))
		writeCoreError(w, coreErr)
		return
	}
	_ = c.app.Audit.Log(auditEntry(req.Identity, "", origin, audit.OpAuthSucceeded, true, ""))
	writeJSON(w, http.StatusOK, session)
}
