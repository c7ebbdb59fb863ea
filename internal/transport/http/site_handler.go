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
	"github.com/intellitrader/portal/internal/model"
)

// GetSite returns the public menu and settings.
func (h *Handler) GetSite(w http.ResponseWriter, r *http.Request) {
	db, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"menu":     db.CMS.Menu,
		"settings": db.CMS.Settings,
	})
}

// GetPublishedPage returns a published page by slug. Drafts are not found.
func (h *Handler) GetPublishedPage(w http.ResponseWriter, r *http.Request) {
	db, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}
	p, ok := db.PageBySlug(chi.URLParam(r, "slug"))
	if !ok || p.Status != model.PagePublished {
		h.respondErr(w, r, apperr.NotFound(msgNotFound))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"page": p})
}
