package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshcart/grocery-backend/internal/catalog"
	"github.com/freshcart/grocery-backend/internal/identity"
	"github.com/freshcart/grocery-backend/internal/orders"
	"github.com/freshcart/grocery-backend/internal/users"
	pkgAuth "github.com/freshcart/grocery-backend/pkg/auth"
	"github.com/freshcart/grocery-backend/pkg/config"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/freshcart/grocery-backend/pkg/logger"
	"github.com/freshcart/grocery-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

type stubResolver map[uuid.UUID]enums.UserRole

func (s stubResolver) ResolveRole(_ context.Context, userID uuid.UUID) (enums.UserRole, error) {
	role, ok := s[userID]
	if !ok {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, identity.ErrRoleUnresolved, "unknown user")
	}
	return role, nil
}

func (s stubResolver) Resolve(ctx context.Context, id identity.Identity) (identity.Actor, error) {
	role, err := s.ResolveRole(ctx, id.UserID)
	if err != nil {
		return identity.Actor{}, err
	}
	return identity.Actor{UserID: id.UserID, Role: role}, nil
}

type stubCatalog struct {
	catalog.Service
}

func (stubCatalog) List(context.Context, catalog.ListInput) (*pagination.Page[catalog.ProductDTO], error) {
	return &pagination.Page[catalog.ProductDTO]{Items: []catalog.ProductDTO{{ID: uuid.New(), Name: "Bananas", IsActive: true}}}, nil
}

type stubOrders struct {
	orders.Service
	seen *identity.Actor
}

func (s stubOrders) List(_ context.Context, actor identity.Actor, _ orders.ListFilter) (*pagination.Page[orders.OrderDTO], error) {
	*s.seen = actor
	return &pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{}}, nil
}

type stubProfiles struct {
	users.ProfileService
	seen *identity.Actor
}

func (s stubProfiles) UpdateProfile(_ context.Context, actor identity.Actor, input users.UpdateProfileDTO) (*users.UserDTO, error) {
	*s.seen = actor
	return &users.UserDTO{ID: actor.UserID, Role: actor.Role, Phone: input.Phone}, nil
}

type fixture struct {
	handler  http.Handler
	owner    uuid.UUID
	customer uuid.UUID
	rider    uuid.UUID
	orphan   uuid.UUID
	seen     *identity.Actor
	editor   *identity.Actor
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test", Port: "0"},
		HTTP: config.HTTPConfig{LoginPath: "/login", CORSOrigins: []string{"http://localhost:3000"}},
		JWT:  config.JWTConfig{Secret: "router-secret", Issuer: "freshcart-test", ExpirationMinutes: 30},
	}
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		owner:    uuid.New(),
		customer: uuid.New(),
		rider:    uuid.New(),
		orphan:   uuid.New(),
		seen:     &identity.Actor{},
		editor:   &identity.Actor{},
	}
	f.handler = NewRouter(Deps{
		Config:   testConfig(),
		Logger:   logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}),
		DB:       stubPinger{},
		Sessions: stubSessions{},
		Resolver: stubResolver{
			f.owner:    enums.UserRoleOwner,
			f.customer: enums.UserRoleCustomer,
			f.rider:    enums.UserRoleDeliveryPartner,
		},
		Catalog:  stubCatalog{},
		Orders:   stubOrders{seen: f.seen},
		Profiles: stubProfiles{seen: f.editor},
	})
	return f
}

func (f fixture) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Email:  "user@example.com",
		JTI:    uuid.NewString(),
	})
	require.NoError(t, err)
	return token
}

func (f fixture) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthLive(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-FreshCart-Env"))
}

func TestHealthReady(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestPublicCatalogNeedsNoSession(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/api/v1/products", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data struct {
			Items []catalog.ProductDTO `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "Bananas", body.Data.Items[0].Name)
}

func TestAPIGroupsByRole(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		path string
		user *uuid.UUID
		want int
	}{
		{"owner orders without token", "/api/v1/owner/orders", nil, http.StatusUnauthorized},
		{"owner orders as customer", "/api/v1/owner/orders", &f.customer, http.StatusForbidden},
		{"owner orders as rider", "/api/v1/owner/orders", &f.rider, http.StatusForbidden},
		{"owner orders as owner", "/api/v1/owner/orders", &f.owner, http.StatusOK},
		{"customer orders as owner", "/api/v1/customer/orders", &f.owner, http.StatusForbidden},
		{"customer orders as customer", "/api/v1/customer/orders", &f.customer, http.StatusOK},
		{"delivery orders as customer", "/api/v1/delivery/orders", &f.customer, http.StatusForbidden},
		{"delivery orders as rider", "/api/v1/delivery/orders", &f.rider, http.StatusOK},
		{"unresolved role", "/api/v1/customer/orders", &f.orphan, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := ""
			if tc.user != nil {
				token = f.token(t, *tc.user)
			}
			resp := f.do(t, http.MethodGet, tc.path, token)
			assert.Equal(t, tc.want, resp.Code)
		})
	}
}

func TestOrderListReceivesResolvedActor(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/api/v1/delivery/orders", f.token(t, f.rider))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, identity.Actor{UserID: f.rider, Role: enums.UserRoleDeliveryPartner}, *f.seen)
}

func TestProfileEditIsOpenToEveryRole(t *testing.T) {
	f := newFixture(t)

	for _, user := range []uuid.UUID{f.owner, f.customer, f.rider} {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/me", strings.NewReader(`{"phone":"555-0142"}`))
		req.Header.Set("Authorization", "Bearer "+f.token(t, user))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		f.handler.ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, user, f.editor.UserID)

		var body struct {
			Data users.UserDTO `json:"data"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		require.NotNil(t, body.Data.Phone)
		assert.Equal(t, "555-0142", *body.Data.Phone)
	}

	resp := f.do(t, http.MethodPatch, "/api/v1/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSessionRoute(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		user uuid.UUID
		want string
	}{
		{f.owner, identity.OwnerDashboardPath},
		{f.customer, identity.CustomerDashboardPath},
		{f.rider, identity.DeliveryDashboardPath},
	}
	for _, tc := range cases {
		resp := f.do(t, http.MethodGet, "/api/v1/session/route", f.token(t, tc.user))
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Data struct {
				RedirectTo string `json:"redirect_to"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, tc.want, body.Data.RedirectTo)
	}
}

func TestDashboardViewsRedirect(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name     string
		path     string
		user     *uuid.UUID
		wantCode int
		wantLoc  string
	}{
		{"anonymous to login", identity.OwnerDashboardPath, nil, http.StatusSeeOther, "/login"},
		{"orphan to landing", identity.CustomerDashboardPath, &f.orphan, http.StatusSeeOther, identity.FallbackPath},
		{"customer on owner view", identity.OwnerDashboardPath, &f.customer, http.StatusSeeOther, identity.CustomerDashboardPath},
		{"owner on delivery view", identity.DeliveryDashboardPath, &f.owner, http.StatusSeeOther, identity.OwnerDashboardPath},
		{"rider on own view", identity.DeliveryDashboardPath, &f.rider, http.StatusOK, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := ""
			if tc.user != nil {
				token = f.token(t, *tc.user)
			}
			resp := f.do(t, http.MethodGet, tc.path, token)
			assert.Equal(t, tc.wantCode, resp.Code)
			assert.Equal(t, tc.wantLoc, resp.Header().Get("Location"))
		})
	}
}
