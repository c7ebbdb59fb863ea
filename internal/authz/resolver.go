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

// Package authz decides who a request belongs to, what it may do and which
// tenant's data it sees.
package authz

import (
	"context"
	"time"

	"github.com/intellitrader/portal/internal/apperr"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/session"
)

// Messages returned to clients.
const (
	MsgUnauthorized     = "Unauthorized"
	MsgForbidden        = "Forbidden"
	MsgNoTenantSelected = "No tenant selected"
)

// Snapshotter reads the current document.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*model.Database, error)
}

// Principal is an authenticated request subject.
type Principal struct {
	Session session.Session
	User    *model.User
}

// Resolver authenticates session tokens against the user store.
type Resolver struct {
	codec  *session.Codec
	store  Snapshotter
	maxAge time.Duration
	now    func() time.Time
}

// NewResolver creates a resolver. A positive maxAge rejects sessions issued
// longer ago than that; zero disables expiry.
func NewResolver(codec *session.Codec, st Snapshotter, maxAge time.Duration) *Resolver {
	return &Resolver{codec: codec, store: st, maxAge: maxAge, now: time.Now}
}

// Authenticate decodes token and loads the user it names. A token that does
// not decode, has expired or names a user that no longer exists fails with
// an authentication error.
func (r *Resolver) Authenticate(ctx context.Context, token string) (*Principal, error) {
	s := r.codec.Decode(token)
	if s == nil {
		return nil, apperr.Authentication(MsgUnauthorized)
	}
	if r.maxAge > 0 && r.now().Sub(s.IssuedTime()) > r.maxAge {
		return nil, apperr.Authentication(MsgUnauthorized)
	}

	db, err := r.store.Snapshot(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u, ok := db.User(s.UserID)
	if !ok {
		return nil, apperr.Authentication(MsgUnauthorized)
	}
	return &Principal{Session: *s, User: u}, nil
}

// Authorize reports whether user's role ranks at or above min.
func Authorize(user *model.User, min model.Role) bool {
	return user != nil && user.Role.AtLeast(min)
}

// ResolveTenantScope returns the session's active tenant, falling back to
// the user's own tenant. The empty string means no scope.
func ResolveTenantScope(s session.Session, user *model.User) string {
	if s.ActiveTenantID != "" {
		return s.ActiveTenantID
	}
	if user != nil {
		return user.TenantID
	}
	return ""
}

// CanSwitchTenant reports whether user may make tenantID their active
// tenant: admins always, resellers for managed tenants, everyone else only
// for their own tenant.
func CanSwitchTenant(user *model.User, tenantID string) bool {
	if user == nil || tenantID == "" {
		return false
	}
	switch user.Role {
	case model.RoleAdmin:
		return true
	case model.RoleReseller:
		return user.Manages(tenantID)
	case model.RoleBusiness, model.RoleConsumer:
		return user.TenantID == tenantID
	}
	return false
}

// CanAccessTenant reports whether user may read or write data scoped to
// tenantID. The rules match tenant switching, plus a reseller's own tenant.
func CanAccessTenant(user *model.User, tenantID string) bool {
	if CanSwitchTenant(user, tenantID) {
		return true
	}
	return user != nil && user.Role == model.RoleReseller && tenantID != "" && user.TenantID == tenantID
}

// TenantScope resolves and checks the tenant a request operates on. It fails
// with a scope error when nothing resolves and an authorization error when
// the user may not access the resolved tenant.
func (p *Principal) TenantScope() (string, error) {
	tenantID := ResolveTenantScope(p.Session, p.User)
	if tenantID == "" {
		return "", apperr.Scope(MsgNoTenantSelected)
	}
	if !CanAccessTenant(p.User, tenantID) {
		return "", apperr.Authorization(MsgForbidden)
	}
	return tenantID, nil
}

// Require fails with an authorization error unless the principal's role
// ranks at or above min.
func (p *Principal) Require(min model.Role) error {
	if !Authorize(p.User, min) {
		return apperr.Authorization(MsgForbidden)
	}
	return nil
}
