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

	"github.com/intellitrader/portal/internal/apperr"
	"github.com/intellitrader/portal/internal/audit"
	"github.com/intellitrader/portal/internal/authz"
	"github.com/intellitrader/portal/internal/identity"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/session"
)

// userView is the user shape returned by the auth endpoints.
type userView struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
}

func viewOf(u *model.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// loginTenant picks the tenant a fresh session starts in: the user's own
// tenant, else the hinted managed tenant, else the first managed one.
func loginTenant(u *model.User, hint string) string {
	if u.TenantID != "" {
		return u.TenantID
	}
	if len(u.ManagedTenantIDs) == 0 {
		return ""
	}
	if hint != "" && u.Manages(hint) {
		return hint
	}
	return u.ManagedTenantIDs[0]
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}

	u, err := h.identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	tenantID := loginTenant(u, req.TenantID)
	if err := h.setSessionCookie(w, session.New(u.ID, u.Role, tenantID)); err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"user":     viewOf(u),
		"tenantId": tenantID,
	})
}

// Signup registers an account with its own tenant and signs it in.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req identity.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}

	u, t, err := h.identity.Signup(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	if err := h.setSessionCookie(w, session.New(u.ID, u.Role, u.TenantID)); err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"user":   u.Public(),
		"tenant": t,
	})
}

// Logout clears the session cookie. It succeeds without a session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if s := h.codec.Decode(h.getSessionFromCookie(r)); s != nil {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypeLogout,
			TenantID:  s.ActiveTenantID,
			ActorID:   s.UserID,
			Resource:  "session",
			IPAddress: getIPAddress(r),
		})
	}

	h.clearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GetCurrentUser returns the caller, their active tenant and session.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	var active *model.Tenant
	if p.Session.ActiveTenantID != "" {
		db, err := h.store.Snapshot(r.Context())
		if err != nil {
			h.respondErr(w, r, apperr.Internal(err))
			return
		}
		if t, ok := db.Tenant(p.Session.ActiveTenantID); ok {
			active = t
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user":    viewOf(p.User),
		"tenant":  active,
		"session": p.Session,
	})
}

// SelectTenant re-issues the session with a different active tenant.
func (h *Handler) SelectTenant(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	var req SelectTenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}

	db, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}
	t, ok := db.Tenant(req.TenantID)
	if !ok {
		h.respondErr(w, r, apperr.NotFound("Tenant not found"))
		return
	}
	if !authz.CanSwitchTenant(p.User, t.ID) {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypeAccessDenied,
			TenantID:  t.ID,
			ActorID:   p.User.ID,
			Resource:  "tenant_select",
			IPAddress: getIPAddress(r),
		})
		h.respondErr(w, r, apperr.Authorization(authz.MsgForbidden))
		return
	}

	if err := h.setSessionCookie(w, session.New(p.User.ID, p.User.Role, t.ID)); err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeTenantSwitched,
		TenantID:  t.ID,
		ActorID:   p.User.ID,
		Resource:  "session",
		IPAddress: getIPAddress(r),
		Metadata:  map[string]any{audit.AttrFromTenant: p.Session.ActiveTenantID},
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"tenant": t,
	})
}
