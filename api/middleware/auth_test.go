package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/freshcart/grocery-backend/internal/identity"
	"github.com/freshcart/grocery-backend/pkg/auth"
	"github.com/freshcart/grocery-backend/pkg/auth/session"
	"github.com/freshcart/grocery-backend/pkg/config"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func TestAuthRejectsMissingToken(t *testing.T) {
	authn := NewAuthenticator(testJWT, stubSessionVerifier{ok: true}, stubResolver{})
	handler := Auth(authn, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	authn := NewAuthenticator(testJWT, stubSessionVerifier{ok: true}, stubResolver{})
	handler := Auth(authn, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	userID := uuid.New()
	authn := NewAuthenticator(testJWT, stubSessionVerifier{ok: false}, stubResolver{userID: enums.UserRoleCustomer})
	handler := Auth(authn, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, userID))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsUserWithoutRole(t *testing.T) {
	authn := NewAuthenticator(testJWT, stubSessionVerifier{ok: true}, stubResolver{})
	handler := Auth(authn, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, uuid.New()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsActorFromResolvedRole(t *testing.T) {
	userID := uuid.New()
	authn := NewAuthenticator(testJWT, stubSessionVerifier{ok: true}, stubResolver{userID: enums.UserRoleOwner})

	var captured identity.Actor
	handler := Auth(authn, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, userID))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != userID || captured.Role != enums.UserRoleOwner {
		t.Fatalf("unexpected actor %+v", captured)
	}
}

func TestAuthAcceptsAccessCookie(t *testing.T) {
	userID := uuid.New()
	authn := NewAuthenticator(testJWT, stubSessionVerifier{ok: true}, stubResolver{userID: enums.UserRoleCustomer})
	handler := Auth(authn, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: mintTestToken(t, userID)})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func mintTestToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	payload := auth.AccessTokenPayload{
		UserID: userID,
		Email:  "user@example.com",
		JTI:    session.NewAccessID(),
	}
	token, err := auth.MintAccessToken(testJWT, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}

// stubResolver knows the roles of a fixed set of users.
type stubResolver map[uuid.UUID]enums.UserRole

func (s stubResolver) ResolveRole(ctx context.Context, userID uuid.UUID) (enums.UserRole, error) {
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
