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

package store

import (
	"fmt"
	"time"

	"github.com/intellitrader/portal/internal/model"
)

// Hasher turns a plaintext password into a stored credential.
type Hasher interface {
	Hash(password string) (string, error)
}

type seedUser struct {
	user     model.User
	password string
}

// Seed builds the deterministic demo document. With a nil hasher the
// passwords are stored as legacy plaintext and upgraded on first login.
func Seed(hasher Hasher, now time.Time) (*model.Database, error) {
	now = now.UTC()

	users := []seedUser{
		{model.User{ID: "u-admin", Email: "admin@acme.co", Name: "Admin", Role: model.RoleAdmin, TenantID: "acme"}, "admin"},
		{model.User{ID: "u-biz", Email: "ops@acme.co", Name: "Ops Manager", Role: model.RoleBusiness, TenantID: "acme"}, "demo"},
		{model.User{ID: "u-consumer", Email: "consumer@example.com", Name: "Alex Johnson", Role: model.RoleConsumer, TenantID: "home-123"}, "demo"},
		{model.User{ID: "u-reseller", Email: "reseller@example.com", Name: "Reseller Rep", Role: model.RoleReseller, ManagedTenantIDs: []string{"client-1", "acme"}}, "demo"},
	}

	db := &model.Database{
		Tenants: []model.Tenant{
			{ID: "acme", Name: "Acme Corporation", CreatedAt: now},
			{ID: "home-123", Name: "Home 123", CreatedAt: now},
			{ID: "client-1", Name: "Client One", CreatedAt: now},
		},
		Agents: []model.Agent{
			{ID: "a1", TenantID: "acme", Name: "Support Agent", Status: model.AgentRunning},
			{ID: "a2", TenantID: "acme", Name: "Sales SDR", Status: model.AgentStopped},
			{ID: "a3", TenantID: "acme", Name: "Ops Automation", Status: model.AgentRunning},
			{ID: "a4", TenantID: "home-123", Name: "Home Helper", Status: model.AgentRunning},
			{ID: "a5", TenantID: "client-1", Name: "Retail Assistant", Status: model.AgentStopped},
		},
		SecurityAlerts: []model.SecurityAlert{
			{ID: "sec1", TenantID: "acme", Severity: model.SeverityMedium, Source: model.SourceNetwork, Title: "Unusual outbound traffic", Description: "Spike detected to unknown ASN.", Time: now.Add(-2 * time.Hour), Status: model.AlertOpen},
			{ID: "sec2", TenantID: "acme", Severity: model.SeverityHigh, Source: model.SourceCamera, Title: "Motion after hours", Description: "Movement detected in restricted zone.", Time: now.Add(-time.Hour), Status: model.AlertAck},
			{ID: "sec3", TenantID: "home-123", Severity: model.SeverityLow, Source: model.SourceEndpoint, Title: "Outdated firmware", Description: "Robot vacuum needs update.", Time: now.Add(-30 * time.Minute), Status: model.AlertOpen},
		},
		Cameras: []model.Camera{
			{ID: "cam1", TenantID: "acme", Name: "Front Entrance", Location: "HQ - Lobby", Online: true, Recording: true, LastSeen: now},
			{ID: "cam2", TenantID: "acme", Name: "Warehouse Aisle 3", Location: "DC-1", Online: true, Recording: false, LastSeen: now},
			{ID: "cam3", TenantID: "home-123", Name: "Doorbell", Location: "Front Door", Online: true, Recording: true, LastSeen: now},
		},
		Transports: []model.Transport{},
	}

	for _, su := range users {
		u := su.user
		if hasher == nil {
			u.LegacyPassword = su.password
		} else {
			hash, err := hasher.Hash(su.password)
			if err != nil {
				return nil, fmt.Errorf("failed to hash seed password for %s: %w", u.ID, err)
			}
			u.PasswordHash = hash
		}
		db.Users = append(db.Users, u)
	}

	db.Normalize()
	return db, nil
}
