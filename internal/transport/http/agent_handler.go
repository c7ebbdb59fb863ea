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

// ListAgents returns the active tenant's agents.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	db, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"agents": db.AgentsFor(tenantID)})
}

// CreateAgent adds an agent and returns the tenant's updated list.
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	var req CreateAgentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}

	var agents []model.Agent
	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		db.Agents = append(db.Agents, model.Agent{
			ID:       store.NewID("agent"),
			TenantID: tenantID,
			Name:     req.Name,
			Status:   req.Status,
		})
		agents = db.AgentsFor(tenantID)
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

// ToggleAgent flips an agent between running and stopped. The new status is
// computed inside the mutation so concurrent toggles never lose an update.
func (h *Handler) ToggleAgent(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var status model.AgentStatus
	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		a, found := db.Agent(tenantID, id)
		if !found {
			return apperr.NotFound("Agent not found")
		}
		a.Status = a.Status.Toggled()
		status = a.Status
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.bus.Publish(events.AgentUpdate, events.AgentUpdated{TenantID: tenantID, AgentID: id, Status: status})
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "status": status})
}
