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

// Package model defines the records kept in the portal document store.
//
// JSON field names match the persisted document layout, so older documents
// written by earlier deployments load without conversion.
package model

import (
	"slices"
	"strings"
	"time"
)

// Tenant is an isolated customer workspace. Its ID is a globally unique slug.
type Tenant struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	OwnerUserID string    `json:"ownerUserId,omitempty"`
}

// User is an account that can sign in.
//
// Business and consumer users carry exactly one TenantID. Resellers carry zero
// or more ManagedTenantIDs. Admins have no tenant restriction.
type User struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	Name             string   `json:"name"`
	Role             Role     `json:"role"`
	TenantID         string   `json:"tenantId,omitempty"`
	ManagedTenantIDs []string `json:"managedTenantIds,omitempty"`
	PasswordHash     string   `json:"passwordHash,omitempty"`

	// LegacyPassword is a plaintext credential found in documents written
	// before hashing was introduced. It is cleared on the first successful login.
	LegacyPassword string `json:"password,omitempty"`
}

// Manages reports whether the user manages the given tenant.
func (u *User) Manages(tenantID string) bool {
	return slices.Contains(u.ManagedTenantIDs, tenantID)
}

// Public is the user representation returned to API clients.
type Public struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	TenantID string `json:"tenantId,omitempty"`
}

// Public strips credentials from the user.
func (u *User) Public() Public {
	return Public{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, TenantID: u.TenantID}
}

// AgentStatus is the run state of an AI agent.
type AgentStatus string

const (
	AgentRunning AgentStatus = "running"
	AgentStopped AgentStatus = "stopped"
)

// Toggled returns the opposite status.
func (s AgentStatus) Toggled() AgentStatus {
	if s == AgentRunning {
		return AgentStopped
	}
	return AgentRunning
}

// Agent is an automation agent deployed for a tenant.
type Agent struct {
	ID       string      `json:"id"`
	TenantID string      `json:"tenantId"`
	Name     string      `json:"name"`
	Status   AgentStatus `json:"status"`
}

// Camera is a monitored video device.
type Camera struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	Online    bool      `json:"online"`
	Recording bool      `json:"recording"`
	LastSeen  time.Time `json:"lastSeen"`
}

// Severity ranks a security alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AlertStatus is the triage state of a security alert.
type AlertStatus string

const (
	AlertOpen     AlertStatus = "open"
	AlertAck      AlertStatus = "ack"
	AlertResolved AlertStatus = "resolved"
)

// Valid reports whether s is a known alert status.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertOpen, AlertAck, AlertResolved:
		return true
	}
	return false
}

// AlertSource names the subsystem that raised an alert.
type AlertSource string

const (
	SourceNetwork  AlertSource = "network"
	SourceCamera   AlertSource = "camera"
	SourceEndpoint AlertSource = "endpoint"
)

// Valid reports whether s is a known alert source.
func (s AlertSource) Valid() bool {
	switch s {
	case SourceNetwork, SourceCamera, SourceEndpoint:
		return true
	}
	return false
}

// SecurityAlert is a finding raised against a tenant.
type SecurityAlert struct {
	ID          string      `json:"id"`
	TenantID    string      `json:"tenantId"`
	Severity    Severity    `json:"severity"`
	Source      AlertSource `json:"source"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Time        time.Time   `json:"time"`
	Status      AlertStatus `json:"status"`
}

// TransportKind is the vehicle class of a transport.
type TransportKind string

const (
	KindShuttle  TransportKind = "shuttle"
	KindRover    TransportKind = "rover"
	KindRobotaxi TransportKind = "robotaxi"
	KindDelivery TransportKind = "delivery"
)

// Valid reports whether k is a known vehicle class.
func (k TransportKind) Valid() bool {
	switch k {
	case KindShuttle, KindRover, KindRobotaxi, KindDelivery:
		return true
	}
	return false
}

// TransportStatus is the approval state of a transport.
type TransportStatus string

const (
	TransportPending  TransportStatus = "pending"
	TransportApproved TransportStatus = "approved"
	TransportActive   TransportStatus = "active"
	TransportInactive TransportStatus = "inactive"
)

// Valid reports whether s is a known transport status.
func (s TransportStatus) Valid() bool {
	switch s {
	case TransportPending, TransportApproved, TransportActive, TransportInactive:
		return true
	}
	return false
}

// Transport is an autonomous vehicle registered by a tenant.
type Transport struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenantId"`
	VehicleID string          `json:"vehicleId"`
	Kind      TransportKind   `json:"kind"`
	Status    TransportStatus `json:"status"`
	Location  string          `json:"location,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// PageStatus is the publication state of a CMS page.
type PageStatus string

const (
	PageDraft     PageStatus = "draft"
	PagePublished PageStatus = "published"
)

// Page is a site-global CMS page.
type Page struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Status       PageStatus `json:"status"`
	AuthorUserID string     `json:"authorUserId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// MenuItem is one navigation link.
type MenuItem struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// SiteSettings holds global site configuration.
type SiteSettings struct {
	SiteTitle    string `json:"siteTitle"`
	HomePageSlug string `json:"homePageSlug,omitempty"`
}

// DefaultSiteTitle is used when no title has been configured.
const DefaultSiteTitle = "Site"

// CMS groups the site-global content collections.
type CMS struct {
	Pages    []Page        `json:"pages"`
	Menu     []MenuItem    `json:"menu"`
	Settings *SiteSettings `json:"settings"`
}

// Database is the whole persisted document.
type Database struct {
	Tenants        []Tenant        `json:"tenants"`
	Users          []User          `json:"users"`
	Agents         []Agent         `json:"agents"`
	SecurityAlerts []SecurityAlert `json:"securityAlerts"`
	Cameras        []Camera        `json:"cameras"`
	Transports     []Transport     `json:"transports"`
	CMS            *CMS            `json:"cms"`
}

// Normalize fills collections missing from an older document shape. It
// reports whether anything changed, in which case the caller must persist
// the upgraded document.
func (db *Database) Normalize() bool {
	changed := false
	if db.Tenants == nil {
		db.Tenants = []Tenant{}
		changed = true
	}
	if db.Users == nil {
		db.Users = []User{}
		changed = true
	}
	if db.Agents == nil {
		db.Agents = []Agent{}
		changed = true
	}
	if db.SecurityAlerts == nil {
		db.SecurityAlerts = []SecurityAlert{}
		changed = true
	}
	if db.Cameras == nil {
		db.Cameras = []Camera{}
		changed = true
	}
	if db.Transports == nil {
		db.Transports = []Transport{}
		changed = true
	}
	if db.CMS == nil {
		db.CMS = &CMS{}
		changed = true
	}
	if db.CMS.Pages == nil {
		db.CMS.Pages = []Page{}
		changed = true
	}
	if db.CMS.Menu == nil {
		db.CMS.Menu = []MenuItem{}
		changed = true
	}
	if db.CMS.Settings == nil {
		db.CMS.Settings = &SiteSettings{SiteTitle: DefaultSiteTitle}
		changed = true
	}
	return changed
}

// Tenant returns the tenant with the given id.
func (db *Database) Tenant(id string) (*Tenant, bool) {
	for i := range db.Tenants {
		if db.Tenants[i].ID == id {
			return &db.Tenants[i], true
		}
	}
	return nil, false
}

// HasTenant reports whether a tenant with the given id exists.
func (db *Database) HasTenant(id string) bool {
	_, ok := db.Tenant(id)
	return ok
}

// User returns the user with the given id.
func (db *Database) User(id string) (*User, bool) {
	for i := range db.Users {
		if db.Users[i].ID == id {
			return &db.Users[i], true
		}
	}
	return nil, false
}

// UserByEmail looks a user up by email, ignoring case.
func (db *Database) UserByEmail(email string) (*User, bool) {
	for i := range db.Users {
		if strings.EqualFold(db.Users[i].Email, email) {
			return &db.Users[i], true
		}
	}
	return nil, false
}

// Agent returns the agent with the given id inside a tenant.
func (db *Database) Agent(tenantID, id string) (*Agent, bool) {
	for i := range db.Agents {
		if db.Agents[i].ID == id && db.Agents[i].TenantID == tenantID {
			return &db.Agents[i], true
		}
	}
	return nil, false
}

// Camera returns the camera with the given id inside a tenant.
func (db *Database) Camera(tenantID, id string) (*Camera, bool) {
	for i := range db.Cameras {
		if db.Cameras[i].ID == id && db.Cameras[i].TenantID == tenantID {
			return &db.Cameras[i], true
		}
	}
	return nil, false
}

// SecurityAlert returns the alert with the given id inside a tenant.
func (db *Database) SecurityAlert(tenantID, id string) (*SecurityAlert, bool) {
	for i := range db.SecurityAlerts {
		if db.SecurityAlerts[i].ID == id && db.SecurityAlerts[i].TenantID == tenantID {
			return &db.SecurityAlerts[i], true
		}
	}
	return nil, false
}

// Transport returns the transport with the given id inside a tenant.
func (db *Database) Transport(tenantID, id string) (*Transport, bool) {
	for i := range db.Transports {
		if db.Transports[i].ID == id && db.Transports[i].TenantID == tenantID {
			return &db.Transports[i], true
		}
	}
	return nil, false
}

// Page returns the CMS page with the given id.
func (db *Database) Page(id string) (*Page, bool) {
	if db.CMS == nil {
		return nil, false
	}
	for i := range db.CMS.Pages {
		if db.CMS.Pages[i].ID == id {
			return &db.CMS.Pages[i], true
		}
	}
	return nil, false
}

// PageBySlug returns the CMS page with the given slug.
func (db *Database) PageBySlug(slug string) (*Page, bool) {
	if db.CMS == nil {
		return nil, false
	}
	for i := range db.CMS.Pages {
		if db.CMS.Pages[i].Slug == slug {
			return &db.CMS.Pages[i], true
		}
	}
	return nil, false
}

// AgentsFor returns a copy of the agents owned by a tenant.
func (db *Database) AgentsFor(tenantID string) []Agent {
	out := []Agent{}
	for _, a := range db.Agents {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out
}

// CamerasFor returns a copy of the cameras owned by a tenant.
func (db *Database) CamerasFor(tenantID string) []Camera {
	out := []Camera{}
	for _, c := range db.Cameras {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out
}

// TransportsFor returns a copy of the transports owned by a tenant.
func (db *Database) TransportsFor(tenantID string) []Transport {
	out := []Transport{}
	for _, t := range db.Transports {
		if t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	return out
}

// SecurityAlertsFor returns the tenant's alerts, newest first.
func (db *Database) SecurityAlertsFor(tenantID string) []SecurityAlert {
	out := []SecurityAlert{}
	for _, a := range db.SecurityAlerts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b SecurityAlert) int {
		return b.Time.Compare(a.Time)
	})
	return out
}
