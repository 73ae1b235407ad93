package auth

import (
	"context"
	"testing"
	"time"

	pkgAuth "github.com/freshcart/grocery-backend/pkg/auth"
	"github.com/freshcart/grocery-backend/pkg/auth/session"
	"github.com/freshcart/grocery-backend/pkg/config"
	"github.com/freshcart/grocery-backend/pkg/db/models"
	"github.com/freshcart/grocery-backend/pkg/enums"
	pkgerrors "github.com/freshcart/grocery-backend/pkg/errors"
	"github.com/freshcart/grocery-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "freshcart",
	ExpirationMinutes: 30,
}

type stubLoginUsers struct {
	byEmail   map[string]*models.User
	lastLogin map[uuid.UUID]time.Time
}

func newStubLoginUsers(users ...*models.User) *stubLoginUsers {
	s := &stubLoginUsers{byEmail: map[string]*models.User{}, lastLogin: map[uuid.UUID]time.Time{}}
	for _, u := range users {
		s.byEmail[u.Email] = u
	}
	return s
}

func (s *stubLoginUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubLoginUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubLoginUsers) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin[id] = at
	return nil
}

type stubSessions struct {
	tokens map[string]string
	owners map[string]uuid.UUID
}

func newStubSessions() *stubSessions {
	return &stubSessions{tokens: map[string]string{}, owners: map[string]uuid.UUID{}}
}

func (s *stubSessions) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	token := "refresh-" + accessID
	s.tokens[accessID] = token
	s.owners[accessID] = userID
	return token, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, uuid.UUID, error) {
	if s.tokens[oldAccessID] != provided || provided == "" {
		return "", "", uuid.Nil, session.ErrInvalidRefreshToken
	}
	userID := s.owners[oldAccessID]
	delete(s.tokens, oldAccessID)
	delete(s.owners, oldAccessID)
	newID := uuid.NewString()
	token, _ := s.Generate(ctx, newID, userID)
	return newID, token, userID, nil
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	delete(s.tokens, accessID)
	delete(s.owners, accessID)
	return nil
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func newLoginFixture(t *testing.T, role enums.UserRole) (Service, *models.User, *stubSessions) {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        "rider@example.com",
		PasswordHash: mustHashPassword(t, "correct horse"),
		Role:         role,
	}
	sessions := newStubSessions()
	svc, err := NewService(ServiceParams{
		UserRepo:       newStubLoginUsers(user),
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, user, sessions
}

func TestServiceLoginIssuesTokensWithoutRoleClaim(t *testing.T) {
	svc, user, sessions := newLoginFixture(t, enums.UserRoleDeliveryPartner)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "  Rider@Example.com ", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.RedirectTo != "/delivery/dashboard" {
		t.Fatalf("unexpected redirect %s", resp.RedirectTo)
	}
	if resp.User == nil || resp.User.LastLoginAt == nil {
		t.Fatalf("expected user with last login stamped")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if sessions.tokens[claims.ID] != resp.RefreshToken {
		t.Fatalf("refresh token not bound to jti")
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newLoginFixture(t, enums.UserRoleCustomer)

	cases := []LoginRequest{
		{Email: "rider@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "correct horse"},
		{Email: "   ", Password: "correct horse"},
	}
	for _, req := range cases {
		if _, err := svc.Login(context.Background(), req); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized for %+v, got %v", req, err)
		}
	}
}

func TestServiceLoginRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newLoginFixture(t, enums.UserRole("admin"))
	_, err := svc.Login(context.Background(), LoginRequest{Email: "rider@example.com", Password: "correct horse"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	svc, user, sessions := newLoginFixture(t, enums.UserRoleCustomer)
	login, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	pair, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, pair.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("refreshed token for wrong user")
	}
	if sessions.tokens[claims.ID] != pair.RefreshToken {
		t.Fatalf("new refresh token not stored")
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected replay to fail, got %v", err)
	}
}

func TestServiceLogoutRevokes(t *testing.T) {
	svc, user, sessions := newLoginFixture(t, enums.UserRoleOwner)
	login, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), login.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.tokens) != 0 {
		t.Fatalf("expected sessions cleared, got %d", len(sessions.tokens))
	}
	if err := svc.Logout(context.Background(), "garbage"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for bad token, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{SessionManager: newStubSessions()}); err == nil {
		t.Fatalf("expected missing user repo error")
	}
	if _, err := NewService(ServiceParams{UserRepo: newStubLoginUsers()}); err == nil {
		t.Fatalf("expected missing session manager error")
	}
}
