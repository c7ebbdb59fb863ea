// Copyright 2026 The Intellitrader Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/intellitrader/portal/internal/apperr"
	"github.com/intellitrader/portal/internal/events"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/store"
)

// ListCameras returns the active tenant's cameras.
func (h *Handler) ListCameras(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	db, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cameras": db.CamerasFor(tenantID)})
}

// CreateCamera registers a camera, online and not recording.
func (h *Handler) CreateCamera(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	var req CreateCameraRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}

	var cameras []model.Camera
	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		db.Cameras = append(db.Cameras, model.Camera{
			ID:        store.NewID("cam"),
			TenantID:  tenantID,
			Name:      req.Name,
			Location:  req.Location,
			Online:    true,
			Recording: false,
			LastSeen:  h.now().UTC(),
		})
		cameras = db.CamerasFor(tenantID)
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cameras": cameras})
}

// ToggleCamera flips the camera's online or recording flag.
func (h *Handler) ToggleCamera(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	var req ToggleCameraRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")

	var updated model.Camera
	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		c, found := db.Camera(tenantID, id)
		if !found {
			return apperr.NotFound("Camera not found")
		}
		if req.Field == CameraFieldOnline {
			c.Online = !c.Online
		} else {
			c.Recording = !c.Recording
		}
		c.LastSeen = h.now().UTC()
		updated = *c
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	payload := events.CameraUpdated{TenantID: tenantID, CameraID: id}
	if req.Field == CameraFieldOnline {
		payload.Online = &updated.Online
	} else {
		payload.Recording = &updated.Recording
	}
	h.bus.Publish(events.CameraUpdate, payload)

	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "camera": updated})
}
