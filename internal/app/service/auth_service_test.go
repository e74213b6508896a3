package service

import (
	"context"
	"testing"
	"time"

	"codegrade/internal/common"
	"codegrade/internal/common/security"
	"codegrade/internal/domain/model"
	"codegrade/internal/domain/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo, repository.TokenBlocklist) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	users := newFakeUserRepo()
	blocklist := repository.NewRedisTokenBlocklist(rdb)
	tokens := security.NewTokenManager([]byte("test-secret"), time.Hour)
	return NewAuthService(users, tokens, blocklist, nil), users, blocklist
}

var adaSignup = SignupRequest{
	FirstName: "Ada",
	LastName:  "Lovelace",
	Email:     "Ada.Lovelace@Example.com",
	Password:  "Str0ng!pass",
}

func TestSignup(t *testing.T) {
	svc, users, _ := newAuthFixture(t)

	resp, err := svc.Signup(context.Background(), adaSignup)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada.lovelace@example.com", resp.User.Email)
	assert.Equal(t, "ada.lovelace", resp.User.Username)
	assert.Equal(t, model.RoleUser, resp.User.Role)

	stored, err := users.FindByEmail(context.Background(), "ada.lovelace@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, adaSignup.Password, stored.HashedPassword)
	assert.True(t, security.CheckPasswordHash(adaSignup.Password, stored.HashedPassword))

	_, err = svc.Signup(context.Background(), adaSignup)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestSignupValidation(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	cases := map[string]func(*SignupRequest){
		"weak password":    func(r *SignupRequest) { r.Password = "password" },
		"bad email":        func(r *SignupRequest) { r.Email = "not-an-email" },
		"short first name": func(r *SignupRequest) { r.FirstName = "Al" },
		"short last name":  func(r *SignupRequest) { r.LastName = "L" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := adaSignup
			mutate(&req)
			_, err := svc.Signup(context.Background(), req)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestRegisterAdmin(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	resp, err := svc.RegisterAdmin(context.Background(), adaSignup)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, resp.User.Role)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	_, err := svc.Signup(context.Background(), adaSignup)
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ADA.LOVELACE@example.com", Password: adaSignup.Password})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = svc.Login(context.Background(), LoginRequest{Email: adaSignup.Email, Password: "Wr0ng!pass"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _, blocklist := newAuthFixture(t)

	require.NoError(t, svc.Logout(context.Background(), "tok", time.Now().Add(time.Hour)))
	revoked, err := blocklist.IsRevoked(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.ErrorIs(t, svc.Logout(context.Background(), "", time.Now()), common.ErrUnauthorized)
}
