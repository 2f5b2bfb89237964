package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/sealcard-backend/pkg/auth"
	"github.com/angelmondragon/sealcard-backend/pkg/auth/session"
	"github.com/angelmondragon/sealcard-backend/pkg/config"
	"github.com/angelmondragon/sealcard-backend/pkg/db/models"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
	"github.com/angelmondragon/sealcard-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "sealcard",
	ExpirationMinutes: 30,
}

func TestServiceLoginIssuesRoleClaim(t *testing.T) {
	password := "merchant-secret"
	user := newUser(t, enums.UserRoleMerchant, password)
	svc, sessions := buildTestService(t, user)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "  " + user.Email + " ",
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleMerchant {
		t.Fatalf("expected merchant role claim, got %s", claims.Role)
	}
	if sessions.generated[claims.ID] != user.ID {
		t.Fatalf("expected refresh session keyed by jti %s", claims.ID)
	}
	if resp.RefreshToken == "" {
		t.Fatalf("expected refresh token to be set")
	}
	if resp.ExpiresIn != 30*60 {
		t.Fatalf("unexpected expires_in %d", resp.ExpiresIn)
	}
	if user.LastLoginAt == nil {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestServiceLoginRejectsBadPassword(t *testing.T) {
	user := newUser(t, enums.UserRoleCustomer, "right-password")
	svc, _ := buildTestService(t, user)

	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "wrong-password"})
	requireUnauthorized(t, err)
}

func TestServiceLoginRejectsInactiveUser(t *testing.T) {
	user := newUser(t, enums.UserRoleCustomer, "secret-pass")
	user.IsActive = false
	svc, _ := buildTestService(t, user)

	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "secret-pass"})
	requireUnauthorized(t, err)
}

func TestServiceLoginUnknownEmail(t *testing.T) {
	svc, _ := buildTestService(t, nil)
	_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "x"})
	requireUnauthorized(t, err)
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	password := "customer-secret"
	user := newUser(t, enums.UserRoleCustomer, password)
	svc, sessions := buildTestService(t, user)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if claims.ID != sessions.lastRotated {
		t.Fatalf("expected new jti %s, got %s", sessions.lastRotated, claims.ID)
	}

	_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: "stale"})
	requireUnauthorized(t, err)
}

func TestServiceLogoutRevokes(t *testing.T) {
	svc, sessions := buildTestService(t, nil)
	if err := svc.Logout(context.Background(), "access-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "access-1" {
		t.Fatalf("expected access-1 revoked, got %v", sessions.revoked)
	}
	requireUnauthorized(t, svc.Logout(context.Background(), " "))
}

func buildTestService(t *testing.T, user *models.User) (Service, *stubSessionManager) {
	t.Helper()
	sessions := &stubSessionManager{generated: map[string]uuid.UUID{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       &stubUserRepo{user: user},
		SessionManager: sessions,
		JWTConfig:      testJWT,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func newUser(t *testing.T, role enums.UserRole, password string) *models.User {
	t.Helper()
	return &models.User{
		ID:           uuid.New(),
		Email:        "owner@example.com",
		PasswordHash: mustHashPassword(t, password),
		FirstName:    "Ana",
		LastName:     "Ruiz",
		Role:         role,
		IsActive:     true,
	}
}

func requireUnauthorized(t *testing.T, err error) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user *models.User
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

type stubSessionManager struct {
	generated   map[string]uuid.UUID
	tokens      map[string]string
	revoked     []string
	lastRotated string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	s.generated[accessID] = userID
	if s.tokens == nil {
		s.tokens = map[string]string{}
	}
	s.tokens[accessID] = "refresh-" + accessID
	return s.tokens[accessID], nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error) {
	if s.generated[oldAccessID] != userID || s.tokens[oldAccessID] != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.generated, oldAccessID)
	delete(s.tokens, oldAccessID)
	next := session.NewAccessID()
	token, _ := s.Generate(ctx, next, userID)
	s.lastRotated = next
	return next, token, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	if accessID == "" {
		return errors.New("access id is required")
	}
	s.revoked = append(s.revoked, accessID)
	return nil
}
