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

package tenant

import (
	"context"
	"strings"
	"time"

	"github.com/intellitrader/portal/internal/apperr"
	"github.com/intellitrader/portal/internal/audit"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/store"
)

// Store is the subset of the document store the service needs.
type Store interface {
	Snapshot(ctx context.Context) (*model.Database, error)
	Mutate(ctx context.Context, fn store.MutateFunc) error
}

// Service provides tenant management business logic
type Service struct {
	store       Store
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new tenant service
func NewService(st Store, auditLogger audit.Logger) *Service {
	return &Service{
		store:       st,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Visible returns the tenants a user may see: all for admins, the managed set
// for resellers, otherwise the user's own tenant.
func Visible(db *model.Database, u *model.User) []model.Tenant {
	out := []model.Tenant{}
	for _, t := range db.Tenants {
		switch {
		case u.Role == model.RoleAdmin:
		case u.Role == model.RoleReseller:
			if !u.Manages(t.ID) {
				continue
			}
		case u.TenantID == "" || t.ID != u.TenantID:
			continue
		}
		out = append(out, t)
	}
	return out
}

// ListTenants returns the tenants visible to u.
func (s *Service) ListTenants(ctx context.Context, u *model.User) ([]model.Tenant, error) {
	db, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Visible(db, u), nil
}

// CreateRequest is the input of CreateTenant.
type CreateRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Validate checks required fields.
func (r *CreateRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.ID = strings.TrimSpace(r.ID)
	if r.Name == "" {
		return apperr.Validation("name required")
	}
	if r.ID != "" && Slugify(r.ID) == "" {
		return apperr.Validation("invalid tenant id")
	}
	return nil
}

// CreateTenant creates a tenant owned by actor. An explicit id must be free;
// an id derived from the name is disambiguated. Resellers start managing the
// tenants they create.
func (s *Service) CreateTenant(ctx context.Context, actor *model.User, req CreateRequest) (*model.Tenant, error) {
	if actor.Role != model.RoleAdmin && actor.Role != model.RoleReseller {
		return nil, apperr.Authorization("Forbidden")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created model.Tenant
	err := s.store.Mutate(ctx, func(db *model.Database) error {
		id := Slugify(req.ID)
		if req.ID != "" {
			if db.HasTenant(id) {
				return apperr.Conflict("Tenant exists")
			}
		} else {
			id = NextID(db, req.Name, "org")
		}

		created = model.Tenant{
			ID:          id,
			Name:        req.Name,
			CreatedAt:   s.now().UTC(),
			OwnerUserID: actor.ID,
		}
		db.Tenants = append(db.Tenants, created)

		if actor.Role == model.RoleReseller {
			if u, ok := db.User(actor.ID); ok && !u.Manages(id) {
				u.ManagedTenantIDs = append(u.ManagedTenantIDs, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: created.ID,
		ActorID:  actor.ID,
		Resource: created.Name,
	})

	return &created, nil
}
