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
// Package http exposes the portal over HTTP: the JSON API under /api, the
// event stream and the guarded UI pages.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/intellitrader/portal/internal/apperr"
	"github.com/intellitrader/portal/internal/audit"
	"github.com/intellitrader/portal/internal/authz"
	"github.com/intellitrader/portal/internal/events"
	"github.com/intellitrader/portal/internal/identity"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/notify"
	"github.com/intellitrader/portal/internal/observability/logger"
	"github.com/intellitrader/portal/internal/session"
	"github.com/intellitrader/portal/internal/store"
	"github.com/intellitrader/portal/internal/tenant"
)

const maxBodyBytes = 1 << 20

// Store is the document store as seen by handlers.
type Store interface {
	Snapshot(ctx context.Context) (*model.Database, error)
	Mutate(ctx context.Context, fn store.MutateFunc) error
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName   string
	CookieDomain string
	CookieSecure bool
	MaxAge       time.Duration
}

// Deps are the collaborators a Handler needs.
type Deps struct {
	Store       Store
	Identity    *identity.Service
	Tenants     *tenant.Service
	Resolver    *authz.Resolver
	Codec       *session.Codec
	Bus         events.Publisher
	Notifier    *notify.Notifier
	AuditLogger audit.Logger
	Session     SessionConfig

	// StaticFS holds the UI bundle. Page routes are not mounted when nil.
	StaticFS fs.FS
	// Random returns a value in [0, 1). Defaults to math/rand.
	Random func() float64
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	store         Store
	identity      *identity.Service
	tenants       *tenant.Service
	resolver      *authz.Resolver
	codec         *session.Codec
	bus           events.Publisher
	notifier      *notify.Notifier
	auditLogger   audit.Logger
	sessionConfig SessionConfig
	staticFS      fs.FS
	random        func() float64
	now           func() time.Time
}

// NewHandler creates a new HTTP handler
func NewHandler(d Deps) *Handler {
	if d.AuditLogger == nil {
		d.AuditLogger = audit.Nop{}
	}
	if d.Random == nil {
		d.Random = rand.Float64
	}
	if d.Session.CookieName == "" {
		d.Session.CookieName = "session"
	}
	return &Handler{
		store:         d.Store,
		identity:      d.Identity,
		tenants:       d.Tenants,
		resolver:      d.Resolver,
		codec:         d.Codec,
		bus:           d.Bus,
		notifier:      d.Notifier,
		auditLogger:   d.AuditLogger,
		sessionConfig: d.Session,
		staticFS:      d.StaticFS,
		random:        d.Random,
		now:           time.Now,
	}
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "intellitrader-portal",
	})
}

// tenantScope returns the authenticated principal and the tenant it
// operates on, or writes the failure and returns ok=false.
func (h *Handler) tenantScope(w http.ResponseWriter, r *http.Request) (*authz.Principal, string, bool) {
	p := GetPrincipal(r.Context())
	if p == nil {
		respondError(w, http.StatusUnauthorized, authz.MsgUnauthorized)
		return nil, "", false
	}
	tenantID, err := p.TenantScope()
	if err != nil {
		h.respondErr(w, r, err)
		return nil, "", false
	}
	return p, tenantID, true
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst at its
// zero value so request validation reports the missing fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("invalid request body")
	}
	return nil
}

// respondErr maps err onto the error taxonomy. Internal failures are logged
// and answered with a generic message.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			logger.RequestID(middleware.GetReqID(r.Context())),
			logger.Path(r.URL.Path),
			logger.Error(err),
		)
	}
	respondError(w, status, apperr.Message(err))
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, s session.Session) error {
	token, err := h.codec.Encode(s)
	if err != nil {
		return err
	}
	cookie := &http.Cookie{
		Name:     h.sessionConfig.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.sessionConfig.CookieDomain,
		Secure:   h.sessionConfig.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.sessionConfig.MaxAge > 0 {
		cookie.MaxAge = int(h.sessionConfig.MaxAge.Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionConfig.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.sessionConfig.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) getSessionFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(h.sessionConfig.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return getClientIP(r)
}
