package identity

import (
	"context"
	"net/http"
	"testing"

	"github.com/intellitrader/portal/internal/apperr"
	"github.com/intellitrader/portal/internal/audit"
	"github.com/intellitrader/portal/internal/model"
	"github.com/intellitrader/portal/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuditLogger struct {
	mock.Mock
}

func (m *mockAuditLogger) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

func testHasher() *PasswordHasher {
	return NewPasswordHasher(1024, 1, 1, 16, 32)
}

func newTestService(t *testing.T, al audit.Logger) (*Service, *store.Store) {
	t.Helper()
	st, err := store.New(store.NewMemoryBackend(), store.Options{})
	require.NoError(t, err)
	t.Cleanup(st.Close)
	if al == nil {
		al = audit.Nop{}
	}
	return NewService(st, testHasher(), al), st
}

func lookup(t *testing.T, st *store.Store, id string) *model.User {
	t.Helper()
	db, err := st.Snapshot(context.Background())
	require.NoError(t, err)
	u, ok := db.User(id)
	require.True(t, ok)
	return u
}

// TestPurpose: Validates Argon2id hashing round trip and rejection of wrong passwords.
// Scope: Unit Test
// Security: Credential storage (CWE-916)
// Expected: Verify accepts the original password, rejects others, and errors on malformed hashes.
// Test Case ID: IDN-01
func TestPasswordHasher_HashVerify(t *testing.T) {
	h := testHasher()
	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.Regexp(t, `^\$argon2id\$v=19\$m=1024,t=1,p=1\$`, hash)

	ok, err := h.Verify("s3cret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Verify("s3cret", "plaintext")
	assert.Error(t, err)
}

// TestPurpose: Validates login against a legacy plaintext credential and its upgrade to a hash.
// Scope: Unit Test
// Security: Credential storage migration
// Expected: Login succeeds once, the stored user then carries a hash and no plaintext, and login still succeeds.
// Test Case ID: IDN-02
func TestService_Authenticate_UpgradesLegacyCredential(t *testing.T) {
	al := &mockAuditLogger{}
	al.On("Log", mock.Anything, mock.Anything).Return()
	svc, st := newTestService(t, al)
	ctx := context.Background()

	u, err := svc.Authenticate(ctx, "OPS@acme.co", "demo")
	require.NoError(t, err)
	assert.Equal(t, "u-biz", u.ID)

	stored := lookup(t, st, "u-biz")
	assert.Empty(t, stored.LegacyPassword)
	assert.NotEmpty(t, stored.PasswordHash)

	_, err = svc.Authenticate(ctx, "ops@acme.co", "demo")
	require.NoError(t, err)

	al.AssertCalled(t, "Log", mock.Anything, mock.MatchedBy(func(e audit.Event) bool { return e.Type == audit.TypePasswordUpgraded }))
}

// TestPurpose: Validates that bad credentials are rejected uniformly.
// Scope: Unit Test
// Security: Account enumeration (CWE-204)
// Expected: Unknown email and wrong password both yield ErrInvalidCredentials and are audited as failures.
// Test Case ID: IDN-03
func TestService_Authenticate_InvalidCredentials(t *testing.T) {
	al := &mockAuditLogger{}
	al.On("Log", mock.Anything, mock.MatchedBy(func(e audit.Event) bool { return e.Type == audit.TypeLoginFailed })).Return()
	svc, _ := newTestService(t, al)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "nobody@example.com", "demo")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "ops@acme.co", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, http.StatusUnauthorized, apperr.Status(err))

	al.AssertNumberOfCalls(t, "Log", 2)
}

// TestPurpose: Validates business signup creates a tenant with a disambiguated slug.
// Scope: Unit Test
// Expected: Company "Acme" yields tenant acme-1 because acme is seeded; the user is bound to it.
// Test Case ID: IDN-04
func TestService_Signup_Business(t *testing.T) {
	svc, st := newTestService(t, nil)

	u, tn, err := svc.Signup(context.Background(), SignupRequest{
		Email: "founder@newco.io", Password: "pw", Name: "Founder", AccountType: model.RoleBusiness, Company: "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme-1", tn.ID)
	assert.Equal(t, "Acme", tn.Name)
	assert.Equal(t, model.RoleBusiness, u.Role)
	assert.Equal(t, "acme-1", u.TenantID)

	stored := lookup(t, st, u.ID)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.Empty(t, stored.LegacyPassword)
}

func TestService_Signup_Consumer(t *testing.T) {
	svc, _ := newTestService(t, nil)

	u, tn, err := svc.Signup(context.Background(), SignupRequest{
		Email: "jane@example.com", Password: "pw", Name: "Jane Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleConsumer, u.Role)
	assert.Equal(t, "jane-doe", tn.ID)
	assert.Equal(t, "Jane Doe's Home", tn.Name)
	assert.Equal(t, u.ID, tn.OwnerUserID)
}

// TestPurpose: Validates signup input rules.
// Scope: Unit Test
// Expected: Duplicate email (any case) is 409, missing company for business is 400, missing fields are 400.
// Test Case ID: IDN-05
func TestService_Signup_Rejections(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, SignupRequest{Email: "Admin@Acme.co", Password: "pw", Name: "X"})
	assert.Equal(t, http.StatusConflict, apperr.Status(err))

	_, _, err = svc.Signup(ctx, SignupRequest{Email: "b@x.io", Password: "pw", Name: "X", AccountType: model.RoleBusiness})
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))

	_, _, err = svc.Signup(ctx, SignupRequest{Email: "b@x.io", Name: "X"})
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))

	_, _, err = svc.Signup(ctx, SignupRequest{Email: "b@x.io", Password: "pw", Name: "X", AccountType: model.RoleAdmin})
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))
}

// TestPurpose: Validates administrative user creation rules per actor role.
// Scope: Unit Test
// Security: Privilege escalation (CWE-269)
// Expected: Role ceiling, managed-tenant and own-tenant restrictions are enforced; unknown tenants are 404.
// Test Case ID: IDN-06
func TestService_CreateUser_Rules(t *testing.T) {
	svc, st := newTestService(t, nil)
	ctx := context.Background()
	admin := lookup(t, st, "u-admin")
	biz := lookup(t, st, "u-biz")
	reseller := lookup(t, st, "u-reseller")
	consumer := lookup(t, st, "u-consumer")

	cases := []struct {
		name   string
		actor  *model.User
		req    CreateUserRequest
		status int
	}{
		{"business cannot create admin", biz, CreateUserRequest{Email: "x1@a.co", Name: "X", Role: model.RoleAdmin}, http.StatusForbidden},
		{"business other tenant", biz, CreateUserRequest{Email: "x2@a.co", Name: "X", Role: model.RoleBusiness, TenantID: "home-123"}, http.StatusForbidden},
		{"consumer cannot create", consumer, CreateUserRequest{Email: "x3@a.co", Name: "X", Role: model.RoleConsumer}, http.StatusForbidden},
		{"reseller unmanaged tenant", reseller, CreateUserRequest{Email: "x4@a.co", Name: "X", Role: model.RoleBusiness, TenantID: "home-123"}, http.StatusForbidden},
		{"admin unknown tenant", admin, CreateUserRequest{Email: "x5@a.co", Name: "X", Role: model.RoleBusiness, TenantID: "ghost"}, http.StatusNotFound},
		{"admin business needs tenant", admin, CreateUserRequest{Email: "x6@a.co", Name: "X", Role: model.RoleBusiness}, http.StatusBadRequest},
		{"duplicate email", admin, CreateUserRequest{Email: "OPS@acme.co", Name: "X", Role: model.RoleBusiness, TenantID: "acme"}, http.StatusConflict},
		{"invalid role", admin, CreateUserRequest{Email: "x7@a.co", Name: "X", Role: "root"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tc.actor, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.status, apperr.Status(err))
		})
	}

	created, err := svc.CreateUser(ctx, biz, CreateUserRequest{Email: "teammate@acme.co", Name: "Teammate", Role: model.RoleConsumer})
	require.NoError(t, err)
	assert.Equal(t, "acme", created.TenantID)

	created, err = svc.CreateUser(ctx, reseller, CreateUserRequest{Email: "client@one.co", Name: "Client", Role: model.RoleBusiness, TenantID: "client-1"})
	require.NoError(t, err)
	assert.Equal(t, "client-1", created.TenantID)

	u, err := svc.Authenticate(ctx, "client@one.co", DefaultPassword)
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
}

func TestVisibleUsers_ByRole(t *testing.T) {
	_, st := newTestService(t, nil)
	db, err := st.Snapshot(context.Background())
	require.NoError(t, err)

	ids := func(users []model.Public) []string {
		out := []string{}
		for _, u := range users {
			out = append(out, u.ID)
		}
		return out
	}

	admin, _ := db.User("u-admin")
	assert.Len(t, VisibleUsers(db, admin), 4)

	reseller, _ := db.User("u-reseller")
	assert.ElementsMatch(t, []string{"u-admin", "u-biz", "u-reseller"}, ids(VisibleUsers(db, reseller)))

	consumer, _ := db.User("u-consumer")
	assert.Equal(t, []string{"u-consumer"}, ids(VisibleUsers(db, consumer)))
}

func TestService_Bootstrap_Idempotent(t *testing.T) {
	svc, st := newTestService(t, nil)
	ctx := context.Background()
	admin := BootstrapAdmin{Email: "root@portal.local", Password: "changeme"}

	require.NoError(t, svc.Bootstrap(ctx, admin))
	require.NoError(t, svc.Bootstrap(ctx, admin))

	db, err := st.Snapshot(ctx)
	require.NoError(t, err)
	u, ok := db.UserByEmail("root@portal.local")
	require.True(t, ok)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Len(t, db.Users, 5)

	assert.NoError(t, svc.Bootstrap(ctx, BootstrapAdmin{}))
	assert.Error(t, svc.Bootstrap(ctx, BootstrapAdmin{Email: "other@portal.local"}))
}
