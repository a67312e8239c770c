package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkosi-dev/sekolo-pay-api/internal/models"
	appErrors "github.com/nkosi-dev/sekolo-pay-api/pkg/errors"
)

type mockUserRepo struct {
	users      map[string]models.User
	lastLogins []string
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogins = append(m.lastLogins, id)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "sekolo-pay-api"}
}

func newUserRepo(t *testing.T, active bool) *mockUserRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &mockUserRepo{users: map[string]models.User{
		"usr_1": {
			ID:           "usr_1",
			Email:        "admin@school.example",
			FullName:     "Admin User",
			Role:         models.RoleAdmin,
			PasswordHash: string(hash),
			Active:       active,
		},
	}}
}

func TestLoginSuccess(t *testing.T) {
	repo := newUserRepo(t, true)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@school.example", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, int64(3600), resp.ExpiresIn)
	require.Equal(t, models.RoleAdmin, resp.User.Role)
	require.Equal(t, []string{"usr_1"}, repo.lastLogins)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "usr_1", claims.UserID)
	require.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(newUserRepo(t, true), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@school.example", Password: "wrong"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(newUserRepo(t, true), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@school.example", Password: "correct-horse"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc := NewAuthService(newUserRepo(t, false), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@school.example", Password: "correct-horse"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc := NewAuthService(newUserRepo(t, true), nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@school.example", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Expiration = -time.Minute
	svc := NewAuthService(newUserRepo(t, true), nil, nil, cfg)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@school.example", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}

func TestMeReturnsUserInfo(t *testing.T) {
	svc := NewAuthService(newUserRepo(t, true), nil, nil, testAuthConfig())

	info, err := svc.Me(context.Background(), &models.JWTClaims{UserID: "usr_1"})
	require.NoError(t, err)
	require.Equal(t, "admin@school.example", info.Email)
	require.Equal(t, "Admin User", info.FullName)
}
