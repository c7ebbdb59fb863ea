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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/observability/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RequestTimeout bounds every route except the event stream.
const RequestTimeout = 60 * time.Second

// NewRouter creates the HTTP router. inst may be nil.
func NewRouter(h *Handler, rateLimiter *RateLimiter, inst *metrics.HTTPInstruments) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))

	r.Get("/health", h.HealthCheck)

	// The stream stays open indefinitely, so it gets neither the timeout
	// nor a request span.
	r.Group(func(r chi.Router) {
		r.Use(LoggingMiddleware(inst))
		r.Use(middleware.Recoverer)
		r.Use(h.AuthMiddleware)
		r.Get("/api/events", h.StreamEvents)
	})

	r.Group(func(r chi.Router) {
		r.Use(func(handler http.Handler) http.Handler {
			return otelhttp.NewHandler(handler, "http_request",
				otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
					return r.Method + " " + r.URL.Path
				}),
			)
		})
		r.Use(LoggingMiddleware(inst))
		r.Use(middleware.Recoverer)
		r.Use(middleware.Timeout(RequestTimeout))

		r.Route("/api", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/signup", h.Signup)
			r.Post("/logout", h.Logout)
			r.Get("/site", h.GetSite)
			r.Get("/pages/{slug}", h.GetPublishedPage)

			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)

				r.Get("/me", h.GetCurrentUser)
				r.Post("/tenant/select", h.SelectTenant)

				r.Get("/agents", h.ListAgents)
				r.Post("/agents", h.CreateAgent)
				r.Post("/agents/{id}/toggle", h.ToggleAgent)

				r.Get("/cameras", h.ListCameras)
				r.Post("/cameras", h.CreateCamera)
				r.Post("/cameras/{id}/toggle", h.ToggleCamera)

				r.Get("/transports", h.ListTransports)
				r.Post("/transports", h.CreateTransport)
				r.Post("/transports/{id}/status", h.SetTransportStatus)

				r.Route("/security", func(r chi.Router) {
					r.Get("/alerts", h.ListAlerts)
					r.Post("/alerts", h.CreateAlert)
					r.Post("/alerts/{id}/status", h.SetAlertStatus)
					r.Post("/scan", h.Scan)
				})

				r.Get("/users", h.ListUsers)
				r.Post("/users", h.CreateUser)
				r.Get("/tenants", h.ListTenants)
				r.Post("/tenants", h.CreateTenant)

				r.Route("/cms", func(r chi.Router) {
					r.Use(h.RequireRole(model.RoleAdmin))

					r.Get("/pages", h.ListPages)
					r.Post("/pages", h.CreatePage)
					r.Put("/pages/{id}", h.UpdatePage)
					r.Delete("/pages/{id}", h.DeletePage)
					r.Get("/menu", h.GetMenu)
					r.Post("/menu", h.ReplaceMenu)
					r.Get("/settings", h.GetSettings)
					r.Post("/settings", h.UpdateSettings)
				})
			})
		})

		if h.staticFS != nil {
			spa := SPAHandler{StaticFS: h.staticFS}
			r.With(h.PageGuard).Handle("/portal", spa)
			r.With(h.PageGuard).Handle("/portal/*", spa)
			r.With(h.PageGuard).Handle("/admin", spa)
			r.With(h.PageGuard).Handle("/admin/*", spa)
			r.Handle("/*", spa)
		}
	})

	return r
}
