package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/chainsub/orchestrator/internal/app"
	"github.com/chainsub/orchestrator/internal/config"
	"github.com/chainsub/orchestrator/internal/models"
	"github.com/chainsub/orchestrator/internal/services/signer"
)

// SystemController exposes set_network and initialize_canister: the
// two operations that gate everything else on first boot and on
// chain-environment switch.
type SystemController struct {
	app *app.App
}

func NewSystemController(a *app.App) *SystemController {
	return &SystemController{app: a}
}

type setNetworkRequest struct {
	Network config.NetworkEnv `json:"network"`
}

func (c *SystemController) SetNetwork(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermManageAdmins) {
		return
	}
	if c.app.Subs.Initialized() {
		writeCoreError(w, models.NewError(models.KindUnauthorized, "AlreadyInitialized", "network cannot change after initialize_canister", nil))
		return
	}
	var req setNetworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch req.Network {
		case config.NetworkMainnet, config.NetworkDevnet, config.NetworkTestnet:
		default:
		writeCoreError(w, models.NewValidationError("InvalidNetwork", "unknown network: "+string(req.Network)))
		return
	}
	c.app.Config.Network = req.Network
	writeJSON(w, http.StatusOK, map[string]string{"network": string(req.Network)})
}

// InitializeCanister derives the orchestrator's main and fee-collection
// addresses and marks it ready to accept subscriptions.
func (c *SystemController) InitializeCanister(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermManageAdmins) {
		return
	}
	mainAddr, err := c.app.Signer.Derive(r.Context(), signer.MainPath)
	if err != nil {
		writeCoreError(w, models.NewError(models.KindInternal, "SignerUnavailable", err.Error(), err))
		return
	}
	feeAddr, err := c.app.Signer.Derive(r.Context(), signer.FeeCollectionPath)
	if err != nil {
		writeCoreError(w, models.NewError(models.KindInternal, "SignerUnavailable", err.Error(), err))
		return
	}
	c.app.Subs.MarkInitialized()
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "initialized",
		"main_address": mainAddr.String(),
		"fee_address": feeAddr.String(),
	})
}
