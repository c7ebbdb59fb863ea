package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates the strict total order of roles.
// Scope: Unit Test
// Expected: A lower role never satisfies a higher requirement; a higher role satisfies every lower one.
// Test Case ID: MOD-01
func TestRole_AtLeast_TotalOrder(t *testing.T) {
	roles := Roles()
	for i, low := range roles {
		for j, high := range roles {
			if i < j {
				assert.False(t, low.AtLeast(high), "%s must not satisfy %s", low, high)
				assert.True(t, high.AtLeast(low), "%s must satisfy %s", high, low)
			}
			if i == j {
				assert.True(t, low.AtLeast(high))
			}
		}
	}

	assert.False(t, Role("root").AtLeast(RoleConsumer))
	assert.False(t, RoleAdmin.AtLeast(Role("root")))
}

// TestPurpose: Validates that loading an older document shape defaults missing collections.
// Scope: Unit Test
// Expected: Missing collections become empty, CMS settings get the default title, Normalize reports the change once.
// Test Case ID: MOD-02
func TestDatabase_Normalize_DefaultsMissingCollections(t *testing.T) {
	raw := `{"tenants":[{"id":"acme","name":"Acme","createdAt":"2025-01-01T00:00:00Z"}],"users":[],"agents":[]}`

	var db Database
	require.NoError(t, json.Unmarshal([]byte(raw), &db))

	assert.True(t, db.Normalize())
	assert.NotNil(t, db.SecurityAlerts)
	assert.NotNil(t, db.Cameras)
	assert.NotNil(t, db.Transports)
	require.NotNil(t, db.CMS)
	require.NotNil(t, db.CMS.Settings)
	assert.Equal(t, DefaultSiteTitle, db.CMS.Settings.SiteTitle)

	assert.False(t, db.Normalize(), "second pass must be a no-op")
}

// TestPurpose: Validates tenant-scoped lookups never cross tenants.
// Scope: Unit Test
// Expected: A record is only found under its own tenant.
// Test Case ID: MOD-03
func TestDatabase_ScopedLookups(t *testing.T) {
	now := time.Now()
	db := Database{
		Agents: []Agent{
			{ID: "a1", TenantID: "t1", Status: AgentRunning},
			{ID: "a2", TenantID: "t2", Status: AgentStopped},
		},
		SecurityAlerts: []SecurityAlert{
			{ID: "old", TenantID: "t1", Time: now.Add(-time.Hour)},
			{ID: "new", TenantID: "t1", Time: now},
			{ID: "other", TenantID: "t2", Time: now},
		},
	}

	_, ok := db.Agent("t2", "a1")
	assert.False(t, ok)
	a, ok := db.Agent("t1", "a1")
	require.True(t, ok)
	assert.Equal(t, AgentRunning, a.Status)

	assert.Len(t, db.AgentsFor("t1"), 1)

	alerts := db.SecurityAlertsFor("t1")
	require.Len(t, alerts, 2)
	assert.Equal(t, "new", alerts[0].ID)
	assert.Equal(t, "old", alerts[1].ID)
}

func TestUser_Public_OmitsCredentials(t *testing.T) {
	u := User{ID: "u1", Email: "a@b.c", Name: "A", Role: RoleBusiness, TenantID: "t1", PasswordHash: "x", LegacyPassword: "y"}

	data, err := json.Marshal(u.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")
	assert.NotContains(t, string(data), "passwordHash")
}
