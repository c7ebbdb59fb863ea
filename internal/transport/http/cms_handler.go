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
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/intellitrader/portal/internal/apperr"
	"github.com/intellitrader/portal/internal/audit"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/store"
	"github.com/intellitrader/portal/internal/tenant"
)

const (
	msgNotFound    = "Not found"
	msgSlugTaken   = "Slug already exists"
	msgInvalidSlug = "invalid slug"
)

func (h *Handler) auditCMS(r *http.Request, resource, action string) {
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeCMSContentChanged,
		ActorID:   GetUserID(r.Context()),
		Resource:  resource,
		IPAddress: getIPAddress(r),
		Metadata:  map[string]any{"action": action},
	})
}

// ListPages returns CMS pages, most recently updated first, optionally
// filtered by ?status=draft|published.
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	db, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}

	status := model.PageStatus(r.URL.Query().Get("status"))
	pages := []model.Page{}
	for _, p := range db.CMS.Pages {
		if (status == model.PageDraft || status == model.PagePublished) && p.Status != status {
			continue
		}
		pages = append(pages, p)
	}
	slices.SortStableFunc(pages, func(a, b model.Page) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	respondJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

// CreatePage adds a page. The slug comes from the request or the title.
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req CreatePageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}

	source := req.Slug
	if source == "" {
		source = req.Title
	}
	slug := tenant.Slugify(source)
	if slug == "" {
		h.respondErr(w, r, apperr.Validation(msgInvalidSlug))
		return
	}

	now := h.now().UTC()
	page := model.Page{
		ID:           store.NewID("page"),
		Slug:         slug,
		Title:        req.Title,
		Content:      req.Content,
		Status:       req.Status,
		AuthorUserID: GetUserID(r.Context()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		if _, taken := db.PageBySlug(slug); taken {
			return apperr.Conflict(msgSlugTaken)
		}
		db.CMS.Pages = append(db.CMS.Pages, page)
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.auditCMS(r, "page:"+page.ID, "create")
	respondJSON(w, http.StatusOK, map[string]any{"page": page})
}

// UpdatePage changes the fields present in the request.
func (h *Handler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	var req UpdatePageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")

	newSlug := ""
	if req.Slug != nil {
		newSlug = tenant.Slugify(*req.Slug)
	}

	var updated model.Page
	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		p, found := db.Page(id)
		if !found {
			return apperr.NotFound(msgNotFound)
		}
		if newSlug != "" {
			if other, taken := db.PageBySlug(newSlug); taken && other.ID != id {
				return apperr.Conflict(msgSlugTaken)
			}
			p.Slug = newSlug
		}
		if req.Title != nil {
			p.Title = *req.Title
		}
		if req.Content != nil {
			p.Content = *req.Content
		}
		if req.Status != nil {
			p.Status = *req.Status
		}
		p.UpdatedAt = h.now().UTC()
		updated = *p
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.auditCMS(r, "page:"+id, "update")
	respondJSON(w, http.StatusOK, map[string]any{"page": updated})
}

// DeletePage removes a page. Deleting a missing page succeeds.
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		db.CMS.Pages = slices.DeleteFunc(db.CMS.Pages, func(p model.Page) bool { return p.ID == id })
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.auditCMS(r, "page:"+id, "delete")
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GetMenu returns the site menu.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	db, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"menu": db.CMS.Menu})
}

// ReplaceMenu swaps in a sanitized menu.
func (h *Handler) ReplaceMenu(w http.ResponseWriter, r *http.Request) {
	var req MenuRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}

	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		db.CMS.Menu = req.Menu
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.auditCMS(r, "menu", "replace")
	respondJSON(w, http.StatusOK, map[string]any{"menu": req.Menu})
}

// GetSettings returns the site settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	db, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.respondErr(w, r, apperr.Internal(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"settings": db.CMS.Settings})
}

// UpdateSettings changes the settings present in the request.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondErr(w, r, err)
		return
	}

	var settings model.SiteSettings
	err := h.store.Mutate(r.Context(), func(db *model.Database) error {
		s := db.CMS.Settings
		if req.SiteTitle != nil {
			s.SiteTitle = *req.SiteTitle
		}
		if s.SiteTitle == "" {
			s.SiteTitle = model.DefaultSiteTitle
		}
		if req.HomePageSlug != nil {
			s.HomePageSlug = *req.HomePageSlug
		}
		settings = *s
		return nil
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.auditCMS(r, "settings", "update")
	respondJSON(w, http.StatusOK, map[string]any{"settings": settings})
}
