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

// ListAlerts returns the active tenant's alerts, newest first.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	db, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"alerts": db.SecurityAlertsFor(tenantID)})
}

// CreateAlert raises an open alert.
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	var req CreateAlertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}

	alert := model.SecurityAlert{
		ID:          store.NewID("sec"),
		TenantID:    tenantID,
		Severity:    req.Severity,
		Source:      req.Source,
		Title:       req.Title,
		Description: req.Description,
		Time:        h.now().UTC(),
		Status:      model.AlertOpen,
	}
	if err := h.raiseAlert(r, alert); err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"alert": alert})
}

func (h *Handler) raiseAlert(r *http.Request, alert model.SecurityAlert) error {
	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		db.SecurityAlerts = append(db.SecurityAlerts, alert)
		return nil
	})
	if err != nil {
		return err
	}
	h.bus.Publish(events.SecurityAlert, events.AlertChanged{
		TenantID: alert.TenantID,
		AlertID:  alert.ID,
		Severity: alert.Severity,
		Status:   alert.Status,
	})
	return nil
}

// SetAlertStatus triages an alert.
func (h *Handler) SetAlertStatus(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	var req AlertStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")

	var severity model.Severity
	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		a, found := db.SecurityAlert(tenantID, id)
		if !found {
			return apperr.NotFound("Alert not found")
		}
		a.Status = req.Status
		severity = a.Severity
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.bus.Publish(events.SecurityAlert, events.AlertChanged{TenantID: tenantID, AlertID: id, Severity: severity, Status: req.Status})
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "status": req.Status})
}

// Scan runs a simulated scan that finds an issue about half the time.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}
	var req ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}

	if h.random() <= 0.5 {
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "found": false, "alert": nil})
		return
	}

	alert := scanFinding(req.Scope)
	alert.ID = store.NewID("sec")
	alert.TenantID = tenantID
	alert.Time = h.now().UTC()
	alert.Status = model.AlertOpen
	if err := h.raiseAlert(r, alert); err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "found": true, "alert": alert})
}

func scanFinding(scope model.AlertSource) model.SecurityAlert {
	if scope == model.SourceCamera {
		return model.SecurityAlert{
			Severity:    model.SeverityHigh,
			Source:      scope,
			Title:       "Camera motion anomaly",
			Description: "Unexpected motion pattern detected during quiet hours.",
		}
	}
	return model.SecurityAlert{
		Severity:    model.SeverityMedium,
		Source:      scope,
		Title:       "Vulnerability detected",
		Description: "Open port with default credentials",
	}
}
