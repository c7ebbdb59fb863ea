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

	"github.com/intellitrader/portal/internal/identity"
	"github.com/intellitrader/portal/internal/tenant"
)

// ListUsers returns the users visible to the caller.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	users, err := h.identity.ListUsers(r.Context(), p.User)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

// CreateUser provisions an account within the caller's reach.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	var req identity.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}

	u, err := h.identity.CreateUser(r.Context(), p.User, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": u})
}

// ListTenants returns the tenants visible to the caller.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	tenants, err := h.tenants.ListTenants(r.Context(), p.User)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

// CreateTenant creates a tenant owned by the caller.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	var req tenant.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}

	t, err := h.tenants.CreateTenant(r.Context(), p.User, req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tenant": t})
}
