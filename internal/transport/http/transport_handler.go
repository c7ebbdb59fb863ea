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

// ListTransports returns the active tenant's vehicles.
func (h *Handler) ListTransports(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	db, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transports": db.TransportsFor(tenantID)})
}

// CreateTransport registers a vehicle pending approval.
func (h *Handler) CreateTransport(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	var req CreateTransportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}

	t := model.Transport{
		ID:        store.NewID("trans"),
		TenantID:  tenantID,
		VehicleID: req.VehicleID,
		Kind:      req.Kind,
		Status:    model.TransportPending,
		Location:  req.Location,
		UpdatedAt: h.now().UTC(),
	}
	var transports []model.Transport
	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		db.Transports = append(db.Transports, t)
		transports = db.TransportsFor(tenantID)
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transports": transports, "transport": t})
}

// SetTransportStatus moves a vehicle through its approval states.
func (h *Handler) SetTransportStatus(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	var req TransportStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")

	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		t, found := db.Transport(tenantID, id)
		if !found {
			return apperr.NotFound("Transport not found")
		}
		t.Status = req.Status
		t.UpdatedAt = h.now().UTC()
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.bus.Publish(events.TransportUpdate, events.TransportUpdated{TenantID: tenantID, TransportID: id, Status: req.Status})
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "status": req.Status})
}
