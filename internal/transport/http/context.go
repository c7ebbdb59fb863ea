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
	"context"

	"github.com/intellitrader/portal/internal/authz"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal stores the authenticated principal in ctx.
func WithPrincipal(ctx context.Context, p *authz.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves the authenticated principal from context.
func GetPrincipal(ctx context.Context) *authz.Principal {
	if val, ok := ctx.Value(principalKey).(*authz.Principal); ok {
		return val
	}
	return nil
}

// GetUserID retrieves the authenticated User ID from context.
func GetUserID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.User.ID
	}
	return ""
}
