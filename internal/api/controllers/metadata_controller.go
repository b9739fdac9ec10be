package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chainsub/orchestrator/internal/app"
	"github.com/chainsub/orchestrator/internal/models"
)

// MetadataController exposes the admin-gated encrypted-metadata map:
// store/get/delete/list. The orchestrator never inspects the payload;
// it only guarantees storage, retrieval and erasure.
type MetadataController struct {
	app *app.App
}

func NewMetadataController(a *app.App) *MetadataController {
	return &MetadataController{app: a}
}

func (c *MetadataController) Store(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermEraseMetadata) {
		return
	}
	var meta models.EncryptedMetadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.app.Metadata.Store(meta)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *MetadataController) Get(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermReadMetadata) {
		return
	}
	id := mux.Vars(r)["id"]
	meta, ok := c.app.Metadata.Get(id)
	if !ok {
		writeCoreError(w, models.NewError(models.KindNotFound, "NotFound", "no metadata for subscription: "+id, nil))
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (c *MetadataController) Delete(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermEraseMetadata) {
		return
	}
	id := mux.Vars(r)["id"]
	if !c.app.Metadata.Delete(id) {
		writeCoreError(w, models.NewError(models.KindNotFound, "NotFound", "no metadata for subscription: "+id, nil))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (c *MetadataController) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, c.app, r, models.PermReadMetadata) {
		return
	}
	writeJSON(w, http.StatusOK, c.app.Metadata.List())
}
