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
	"strings"
	"unicode/utf8"

	"github.com/intellitrader/portal/internal/apperr"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/store"
)

// Field limits
const (
	maxLabelLength     = 100
	maxHrefLength      = 200
	maxSiteTitleLength = 100
	maxHomeSlugLength  = 200
	maxTextLength      = 2000
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TenantID string `json:"tenantId"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" || r.Password == "" {
		return apperr.Validation("Email and password required")
	}
	return nil
}

// SelectTenantRequest switches the active tenant.
type SelectTenantRequest struct {
	TenantID string `json:"tenantId"`
}

func (r *SelectTenantRequest) Validate() error {
	r.TenantID = strings.TrimSpace(r.TenantID)
	if r.TenantID == "" {
		return apperr.Validation("tenantId required")
	}
	return nil
}

// CreateAgentRequest creates an agent in the active tenant.
type CreateAgentRequest struct {
	Name   string            `json:"name"`
	Status model.AgentStatus `json:"status"`
}

func (r *CreateAgentRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Status != model.AgentStopped {
		r.Status = model.AgentRunning
	}
	if r.Name == "" {
		return apperr.Validation("name required")
	}
	if len(r.Name) > maxTextLength {
		return apperr.Validation("name too long")
	}
	return nil
}

// CreateCameraRequest registers a camera.
type CreateCameraRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

func (r *CreateCameraRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Location = strings.TrimSpace(r.Location)
	if r.Name == "" {
		r.Name = "New Camera"
	}
	if len(r.Name) > maxTextLength || len(r.Location) > maxTextLength {
		return apperr.Validation("field too long")
	}
	return nil
}

// Camera fields that can be toggled.
const (
	CameraFieldOnline    = "online"
	CameraFieldRecording = "recording"
)

// ToggleCameraRequest flips one camera flag.
type ToggleCameraRequest struct {
	Field string `json:"field"`
}

func (r *ToggleCameraRequest) Validate() error {
	switch r.Field {
	case "":
		r.Field = CameraFieldRecording
	case CameraFieldOnline, CameraFieldRecording:
	default:
		return apperr.Validation("invalid field")
	}
	return nil
}

// CreateTransportRequest registers a vehicle.
type CreateTransportRequest struct {
	VehicleID string              `json:"vehicleId"`
	Kind      model.TransportKind `json:"kind"`
	Location  string              `json:"location"`
}

func (r *CreateTransportRequest) Validate() error {
	r.VehicleID = strings.TrimSpace(r.VehicleID)
	r.Location = strings.TrimSpace(r.Location)
	if r.VehicleID == "" {
		r.VehicleID = "VEH-" + strings.ToUpper(store.RandomSuffix(6))
	}
	if !r.Kind.Valid() {
		r.Kind = model.KindShuttle
	}
	if len(r.VehicleID) > maxTextLength || len(r.Location) > maxTextLength {
		return apperr.Validation("field too long")
	}
	return nil
}

// TransportStatusRequest sets a transport's status.
type TransportStatusRequest struct {
	Status model.TransportStatus `json:"status"`
}

func (r *TransportStatusRequest) Validate() error {
	if !r.Status.Valid() {
		return apperr.Validation("invalid status")
	}
	return nil
}

// CreateAlertRequest raises a security alert.
type CreateAlertRequest struct {
	Title       string            `json:"title"`
	Severity    model.Severity    `json:"severity"`
	Source      model.AlertSource `json:"source"`
	Description string            `json:"description"`
}

func (r *CreateAlertRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Severity == "" {
		r.Severity = model.SeverityMedium
	}
	if r.Source == "" {
		r.Source = model.SourceNetwork
	}
	if r.Title == "" {
		return apperr.Validation("title required")
	}
	if !r.Severity.Valid() {
		return apperr.Validation("invalid severity")
	}
	if !r.Source.Valid() {
		return apperr.Validation("invalid source")
	}
	if len(r.Title) > maxTextLength || len(r.Description) > maxTextLength {
		return apperr.Validation("field too long")
	}
	return nil
}

// AlertStatusRequest triages an alert.
type AlertStatusRequest struct {
	Status model.AlertStatus `json:"status"`
}

func (r *AlertStatusRequest) Validate() error {
	if !r.Status.Valid() {
		return apperr.Validation("invalid status")
	}
	return nil
}

// ScanRequest starts a simulated scan.
type ScanRequest struct {
	Scope model.AlertSource `json:"scope"`
}

func (r *ScanRequest) Validate() error {
	if r.Scope == "" {
		r.Scope = model.SourceNetwork
	}
	if !r.Scope.Valid() {
		return apperr.Validation("invalid scope")
	}
	return nil
}

// CreatePageRequest creates a CMS page.
type CreatePageRequest struct {
	Title   string           `json:"title"`
	Slug    string           `json:"slug"`
	Content string           `json:"content"`
	Status  model.PageStatus `json:"status"`
}

func (r *CreatePageRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Status != model.PagePublished {
		r.Status = model.PageDraft
	}
	if r.Title == "" {
		return apperr.Validation("title required")
	}
	return nil
}

// UpdatePageRequest changes the fields that are present.
type UpdatePageRequest struct {
	Title   *string           `json:"title"`
	Slug    *string           `json:"slug"`
	Content *string           `json:"content"`
	Status  *model.PageStatus `json:"status"`
}

func (r *UpdatePageRequest) Validate() error {
	if r.Status != nil && *r.Status != model.PageDraft && *r.Status != model.PagePublished {
		r.Status = nil
	}
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return apperr.Validation("title required")
	}
	return nil
}

// MenuRequest replaces the site menu.
type MenuRequest struct {
	Menu []model.MenuItem `json:"menu"`
}

// Validate requires the menu array and drops items that are empty after
// truncation.
func (r *MenuRequest) Validate() error {
	if r.Menu == nil {
		return apperr.Validation("menu array required")
	}
	clean := make([]model.MenuItem, 0, len(r.Menu))
	for _, it := range r.Menu {
		it.Label = truncate(it.Label, maxLabelLength)
		it.Href = truncate(it.Href, maxHrefLength)
		if it.Label == "" || it.Href == "" {
			continue
		}
		clean = append(clean, it)
	}
	r.Menu = clean
	return nil
}

// SettingsRequest updates the site settings that are present.
type SettingsRequest struct {
	SiteTitle    *string `json:"siteTitle"`
	HomePageSlug *string `json:"homePageSlug"`
}

func (r *SettingsRequest) Validate() error {
	if r.SiteTitle != nil {
		t := truncate(*r.SiteTitle, maxSiteTitleLength)
		r.SiteTitle = &t
	}
	if r.HomePageSlug != nil {
		s := truncate(*r.HomePageSlug, maxHomeSlugLength)
		r.HomePageSlug = &s
	}
	return nil
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
