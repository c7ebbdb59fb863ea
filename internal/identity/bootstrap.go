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

package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/intellitrader/portal/internal/audit"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/observability/logger"
	"github.com/intellitrader/portal/internal/store"
)

// BootstrapAdmin describes an administrator provisioned at startup.
type BootstrapAdmin struct {
	Email    string
	Password string
	Name     string
}

// Bootstrap ensures the configured administrator exists. It does nothing when
// no email is configured or an account with that email is already present.
func (s *Service) Bootstrap(ctx context.Context, admin BootstrapAdmin) error {
	email := strings.TrimSpace(admin.Email)
	if email == "" {
		return nil
	}
	if admin.Password == "" {
		return fmt.Errorf("bootstrap admin %s has no password configured", email)
	}
	if admin.Name == "" {
		admin.Name = "Administrator"
	}

	hash, err := s.hasher.Hash(admin.Password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	var created *model.User
	err = s.store.Mutate(ctx, func(db *model.Database) error {
		if _, exists := db.UserByEmail(email); exists {
			return nil
		}
		u := model.User{
			ID:           store.NewID("user"),
			Email:        email,
			Name:         admin.Name,
			Role:         model.RoleAdmin,
			PasswordHash: hash,
		}
		db.Users = append(db.Users, u)
		created = &u
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if created == nil {
		return nil
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		ActorID:  audit.ActorSystemBootstrap,
		Resource: created.ID,
		Metadata: map[string]any{audit.AttrEmail: email, audit.AttrRole: string(model.RoleAdmin)},
	})
	slog.InfoContext(ctx, "bootstrapped administrator", logger.UserID(created.ID), logger.Email(email))
	return nil
}
