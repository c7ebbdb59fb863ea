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
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/intellitrader/portal/internal/audit"
	"github.com/intellitrader/portal/internal/authz"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/observability/logger"
	"github.com/intellitrader/portal/internal/observability/metrics"
)

// LoggingMiddleware logs HTTP requests and records them on inst when set.
func LoggingMiddleware(inst *metrics.HTTPInstruments) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				elapsed := time.Since(start)
				slog.InfoContext(r.Context(), "http_request",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.StatusCode(ww.Status()),
					logger.Duration(elapsed.Milliseconds()),
				)
				if inst != nil {
					route := r.URL.Path
					if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
						route = rctx.RoutePattern()
					}
					inst.Record(r.Context(), r.Method, route, ww.Status(), float64(elapsed.Microseconds())/1000)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware authenticates the session cookie and stores the principal
// in the request context. API callers without a valid session get 401.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.resolver.Authenticate(r.Context(), h.getSessionFromCookie(r))
		if err != nil {
			h.respondErr(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireRole rejects principals ranked below min with 403.
func (h *Handler) RequireRole(min model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if p == nil {
				respondError(w, http.StatusUnauthorized, authz.MsgUnauthorized)
				return
			}
			if err := p.Require(min); err != nil {
				h.auditLogger.Log(r.Context(), audit.Event{
					Type:      audit.TypeAccessDenied,
					TenantID:  p.Session.ActiveTenantID,
					ActorID:   p.User.ID,
					Resource:  r.URL.Path,
					IPAddress: getIPAddress(r),
					Metadata:  map[string]any{audit.AttrRole: string(p.User.Role)},
				})
				h.respondErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PageGuard redirects page requests without a valid session to the login
// page, keeping the requested path for the post-login redirect.
func (h *Handler) PageGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.resolver.Authenticate(r.Context(), h.getSessionFromCookie(r))
		if err != nil {
			target := "/login?next=" + url.QueryEscape(r.URL.Path)
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
