package http_test

import (
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	transportHTTP "github.com/intellitrader/portal/internal/transport/http"
)

// TestPurpose: Validates the route table of the portal API.
// Scope: Unit Test
// Security: Attack surface
// Expected: Every documented endpoint is mounted for its method only; unknown paths and wrong methods do not match.
// Test Case ID: RTR-01
func TestRouter_RouteTable(t *testing.T) {
	// Only route matching is checked, so the handler dependencies stay nil.
	h := transportHTTP.NewHandler(transportHTTP.Deps{})

	tests := []struct {
		method      string
		path        string
		expectFound bool
	}{
		{"GET", "/health", true},
		{"POST", "/api/login", true},
		{"GET", "/api/login", false},
		{"POST", "/api/signup", true},
		{"POST", "/api/logout", true},
		{"GET", "/api/me", true},
		{"POST", "/api/tenant/select", true},
		{"GET", "/api/events", true},
		{"POST", "/api/events", false},

		{"GET", "/api/agents", true},
		{"POST", "/api/agents", true},
		{"POST", "/api/agents/a1/toggle", true},
		{"GET", "/api/agents/a1/toggle", false},
		{"GET", "/api/cameras", true},
		{"POST", "/api/cameras/cam1/toggle", true},
		{"GET", "/api/transports", true},
		{"POST", "/api/transports/t1/status", true},
		{"GET", "/api/security/alerts", true},
		{"POST", "/api/security/alerts", true},
		{"POST", "/api/security/alerts/sec1/status", true},
		{"POST", "/api/security/scan", true},
		{"GET", "/api/users", true},
		{"POST", "/api/tenants", true},

		{"GET", "/api/cms/pages", true},
		{"POST", "/api/cms/pages", true},
		{"PUT", "/api/cms/pages/p1", true},
		{"DELETE", "/api/cms/pages/p1", true},
		{"GET", "/api/cms/menu", true},
		{"POST", "/api/cms/settings", true},
		{"GET", "/api/site", true},
		{"GET", "/api/pages/about", true},

		{"GET", "/api/unknown", false},
		// No UI bundle configured, so no page routes.
		{"GET", "/portal", false},
	}

	rl := transportHTTP.NewRateLimiter(100, 100)
	defer rl.Stop()
	r := transportHTTP.NewRouter(h, rl, nil)

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)

			rctx := chi.NewRouteContext()
			if r.Match(rctx, req.Method, req.URL.Path) {
				if !tt.expectFound {
					t.Errorf("Route %s %s SHOULD NOT exist", tt.method, tt.path)
				}
			} else {
				if tt.expectFound {
					t.Errorf("Route %s %s SHOULD exist", tt.method, tt.path)
				}
			}
		})
	}
}
