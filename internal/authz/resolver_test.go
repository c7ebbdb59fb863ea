package authz

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/intellitrader/portal/internal/apperr"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStore struct {
	db  *model.Database
	err error
}

func (f fixedStore) Snapshot(context.Context) (*model.Database, error) { return f.db, f.err }

func testDB() *model.Database {
	return &model.Database{
		Tenants: []model.Tenant{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}},
		Users: []model.User{
			{ID: "admin", Role: model.RoleAdmin},
			{ID: "reseller", Role: model.RoleReseller, ManagedTenantIDs: []string{"t1", "t2"}},
			{ID: "biz", Role: model.RoleBusiness, TenantID: "t1"},
			{ID: "consumer", Role: model.RoleConsumer, TenantID: "t3"},
		},
	}
}

func token(t *testing.T, codec *session.Codec, s session.Session) string {
	t.Helper()
	tok, err := codec.Encode(s)
	require.NoError(t, err)
	return tok
}

// TestPurpose: Validates authentication outcomes for valid, tampered and stale sessions.
// Scope: Unit Test
// Security: Session validation (CWE-287)
// Expected: Valid token yields the user; bad token or deleted user yields 401; store failure yields 500.
// Test Case ID: AUZ-01
func TestResolver_Authenticate(t *testing.T) {
	codec := session.NewCodec("k")
	r := NewResolver(codec, fixedStore{db: testDB()}, 0)
	ctx := context.Background()

	p, err := r.Authenticate(ctx, token(t, codec, session.New("biz", model.RoleBusiness, "")))
	require.NoError(t, err)
	assert.Equal(t, "biz", p.User.ID)

	_, err = r.Authenticate(ctx, "garbage")
	assert.Equal(t, http.StatusUnauthorized, apperr.Status(err))

	_, err = r.Authenticate(ctx, token(t, codec, session.New("deleted", model.RoleAdmin, "")))
	assert.Equal(t, http.StatusUnauthorized, apperr.Status(err))

	broken := NewResolver(codec, fixedStore{err: errors.New("pool closed")}, 0)
	_, err = broken.Authenticate(ctx, token(t, codec, session.New("biz", model.RoleBusiness, "")))
	assert.Equal(t, http.StatusInternalServerError, apperr.Status(err))
	assert.Equal(t, "internal server error", apperr.Message(err))
}

func TestResolver_Authenticate_MaxAge(t *testing.T) {
	codec := session.NewCodec("k")
	r := NewResolver(codec, fixedStore{db: testDB()}, time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	fresh := session.Session{UserID: "biz", Role: model.RoleBusiness, IssuedAt: now.Add(-time.Minute).UnixMilli()}
	stale := session.Session{UserID: "biz", Role: model.RoleBusiness, IssuedAt: now.Add(-2 * time.Hour).UnixMilli()}

	_, err := r.Authenticate(context.Background(), token(t, codec, fresh))
	assert.NoError(t, err)
	_, err = r.Authenticate(context.Background(), token(t, codec, stale))
	assert.Equal(t, http.StatusUnauthorized, apperr.Status(err))
}

// TestPurpose: Validates the blunt role hierarchy.
// Scope: Unit Test
// Expected: For r1 ranked below r2, r1 fails authorize(r2) and r2 passes authorize(r1).
// Test Case ID: AUZ-02
func TestAuthorize_RoleOrder(t *testing.T) {
	roles := model.Roles()
	for i, r1 := range roles {
		for _, r2 := range roles[i+1:] {
			assert.False(t, Authorize(&model.User{Role: r1}, r2), "%s must not pass %s", r1, r2)
			assert.True(t, Authorize(&model.User{Role: r2}, r1), "%s must pass %s", r2, r1)
		}
	}
	assert.False(t, Authorize(nil, model.RoleConsumer))
}

func TestResolveTenantScope(t *testing.T) {
	u := &model.User{TenantID: "own"}
	assert.Equal(t, "active", ResolveTenantScope(session.Session{ActiveTenantID: "active"}, u))
	assert.Equal(t, "own", ResolveTenantScope(session.Session{}, u))
	assert.Equal(t, "", ResolveTenantScope(session.Session{}, &model.User{Role: model.RoleAdmin}))
}

// TestPurpose: Validates tenant switching rules per role.
// Scope: Unit Test
// Security: Cross-tenant access (CWE-639)
// Expected: Admin any tenant; reseller managed only; business and consumer own tenant only.
// Test Case ID: AUZ-03
func TestCanSwitchTenant(t *testing.T) {
	db := testDB()
	get := func(id string) *model.User { u, _ := db.User(id); return u }

	cases := []struct {
		user, tenant string
		want         bool
	}{
		{"admin", "t3", true},
		{"reseller", "t1", true},
		{"reseller", "t3", false},
		{"biz", "t1", true},
		{"biz", "t2", false},
		{"consumer", "t3", true},
		{"consumer", "t1", false},
		{"admin", "", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanSwitchTenant(get(tc.user), tc.tenant), "%s -> %q", tc.user, tc.tenant)
	}
}

// TestPurpose: Validates the tenant scope guard used by tenant-scoped endpoints.
// Scope: Unit Test
// Expected: No scope is 400; an inaccessible scope is 403; otherwise the scope is returned.
// Test Case ID: AUZ-04
func TestPrincipal_TenantScope(t *testing.T) {
	db := testDB()
	admin, _ := db.User("admin")
	biz, _ := db.User("biz")

	_, err := (&Principal{User: admin}).TenantScope()
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))

	_, err = (&Principal{User: biz, Session: session.Session{ActiveTenantID: "t2"}}).TenantScope()
	assert.Equal(t, http.StatusForbidden, apperr.Status(err))

	scope, err := (&Principal{User: biz}).TenantScope()
	require.NoError(t, err)
	assert.Equal(t, "t1", scope)

	assert.Error(t, (&Principal{User: biz}).Require(model.RoleAdmin))
	assert.NoError(t, (&Principal{User: admin}).Require(model.RoleAdmin))
}
