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

// Package identity manages portal accounts: credential checks, signup and
// user administration.
package identity

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/intellitrader/portal/internal/apperr"
	"github.com/intellitrader/portal/internal/audit"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/observability/logger"
	"github.com/intellitrader/portal/internal/store"
	"github.com/intellitrader/portal/internal/tenant"
)

// Domain errors
var (
	ErrInvalidCredentials = apperr.Authentication("Invalid credentials")
	ErrEmailTaken         = apperr.Conflict("Account already exists")
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Service provides identity-related business logic
type Service struct {
	store       tenant.Store
	hasher      Hasher
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new identity service
func NewService(st tenant.Store, hasher Hasher, auditLogger audit.Logger) *Service {
	return &Service{
		store:       st,
		hasher:      hasher,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Authenticate checks an email/password pair. A legacy plaintext credential
// that matches is replaced by a hash before returning.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	db, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	u, ok := db.UserByEmail(strings.TrimSpace(email))
	if !ok {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: email,
			Metadata: map[string]any{audit.AttrReason: "user_not_found"},
		})
		return nil, ErrInvalidCredentials
	}

	valid, legacy := s.verify(u, password)
	if !valid {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			TenantID: u.TenantID,
			ActorID:  u.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "invalid_password"},
		})
		return nil, ErrInvalidCredentials
	}

	if legacy {
		if err := s.upgradeLegacy(ctx, u.ID, password); err != nil {
			// The login itself succeeded; the upgrade is retried next time.
			slog.WarnContext(ctx, "failed to upgrade legacy credential", logger.UserID(u.ID), logger.Error(err))
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		TenantID: u.TenantID,
		ActorID:  u.ID,
		Resource: "login",
	})
	return u, nil
}

func (s *Service) verify(u *model.User, password string) (valid, legacy bool) {
	if u.PasswordHash != "" {
		ok, err := s.hasher.Verify(password, u.PasswordHash)
		return err == nil && ok, false
	}
	if u.LegacyPassword != "" {
		return subtle.ConstantTimeCompare([]byte(u.LegacyPassword), []byte(password)) == 1, true
	}
	return false, false
}

func (s *Service) upgradeLegacy(ctx context.Context, userID, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	upgraded := false
	err = s.store.Mutate(ctx, func(db *model.Database) error {
		u, ok := db.User(userID)
		if !ok || u.PasswordHash != "" || u.LegacyPassword != password {
			return nil
		}
		u.PasswordHash = hash
		u.LegacyPassword = ""
		upgraded = true
		return nil
	})
	if err != nil {
		return err
	}
	if upgraded {
		s.auditLogger.Log(ctx, audit.Event{Type: audit.TypePasswordUpgraded, ActorID: userID, Resource: "credential"})
	}
	return nil
}

// Signup creates a user together with the tenant it belongs to. Business
// accounts get a tenant named after the company; consumer accounts get a
// personal one.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*model.User, *model.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.User{
		ID:           store.NewID("user"),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
	}
	var t model.Tenant

	err = s.store.Mutate(ctx, func(db *model.Database) error {
		if _, exists := db.UserByEmail(req.Email); exists {
			return ErrEmailTaken
		}

		if req.AccountType == model.RoleBusiness {
			user.Role = model.RoleBusiness
			t = model.Tenant{ID: tenant.NextID(db, req.Company, "org"), Name: req.Company}
		} else {
			user.Role = model.RoleConsumer
			base := req.Name
			if tenant.Slugify(base) == "" {
				base, _, _ = strings.Cut(req.Email, "@")
			}
			t = model.Tenant{ID: tenant.NextID(db, base, "user"), Name: req.Name + "'s Home"}
		}
		t.CreatedAt = s.now().UTC()
		t.OwnerUserID = user.ID
		user.TenantID = t.ID

		db.Tenants = append(db.Tenants, t)
		db.Users = append(db.Users, user)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSignup,
		TenantID: t.ID,
		ActorID:  user.ID,
		Resource: "signup",
		Metadata: map[string]any{audit.AttrEmail: user.Email, audit.AttrRole: string(user.Role)},
	})
	return &user, &t, nil
}

// VisibleUsers returns the users an actor may list: everyone for admins,
// users of managed tenants plus all resellers for resellers, otherwise the
// actor's own tenant.
func VisibleUsers(db *model.Database, actor *model.User) []model.Public {
	out := []model.Public{}
	for i := range db.Users {
		u := &db.Users[i]
		switch actor.Role {
		case model.RoleAdmin:
		case model.RoleReseller:
			if u.Role != model.RoleReseller && (u.TenantID == "" || !actor.Manages(u.TenantID)) {
				continue
			}
		default:
			if actor.TenantID == "" || u.TenantID != actor.TenantID {
				continue
			}
		}
		out = append(out, u.Public())
	}
	return out
}

// ListUsers returns the users visible to actor, without credentials.
func (s *Service) ListUsers(ctx context.Context, actor *model.User) ([]model.Public, error) {
	db, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return VisibleUsers(db, actor), nil
}

// CreateUser provisions an account on behalf of actor. Nobody can create an
// account ranked above their own; resellers only inside managed tenants and
// other non-admins only inside their own tenant.
func (s *Service) CreateUser(ctx context.Context, actor *model.User, req CreateUserRequest) (*model.Public, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !actor.Role.AtLeast(model.RoleBusiness) || req.Role.Rank() > actor.Role.Rank() {
		return nil, apperr.Authorization("Forbidden")
	}

	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleReseller:
		if req.TenantID == "" || !actor.Manages(req.TenantID) {
			return nil, apperr.Authorization("Forbidden")
		}
	default:
		if req.TenantID == "" {
			req.TenantID = actor.TenantID
		}
		if req.TenantID != actor.TenantID {
			return nil, apperr.Authorization("Forbidden")
		}
	}
	if req.Role.TenantBound() && req.TenantID == "" {
		return nil, apperr.Validation("tenantId required")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.User{
		ID:           store.NewID("user"),
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.Role,
		PasswordHash: hash,
	}
	switch {
	case req.Role.TenantBound():
		user.TenantID = req.TenantID
	case req.Role == model.RoleReseller && req.TenantID != "":
		user.ManagedTenantIDs = []string{req.TenantID}
	}

	err = s.store.Mutate(ctx, func(db *model.Database) error {
		if req.TenantID != "" && !db.HasTenant(req.TenantID) {
			return apperr.NotFound("Tenant not found")
		}
		if _, exists := db.UserByEmail(req.Email); exists {
			return apperr.Conflict("Email already registered")
		}
		db.Users = append(db.Users, user)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		TenantID: req.TenantID,
		ActorID:  actor.ID,
		Resource: user.ID,
		Metadata: map[string]any{audit.AttrEmail: user.Email, audit.AttrRole: string(user.Role)},
	})

	pub := user.Public()
	return &pub, nil
}
