package services

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/utils"
)

func register(t *testing.T, e *testEnv, email string) AuthResult {
	t.Helper()
	res, err := e.auth.Register(context.Background(), RegisterInput{
		Name:     "Nina",
		Email:    email,
		Password: "Secret1!",
		Role:     "freelancer",
	})
	require.NoError(t, err)
	return res
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	res := register(t, e, "  Nina@Example.com ")
	assert.Equal(t, "nina@example.com", res.User.Email)
	assert.NotEqual(t, "Secret1!", res.User.Password)
	assert.NotEmpty(t, res.Token)

	id, err := e.auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)
	assert.Equal(t, auth.RoleFreelancer, id.Role)

	mail := e.mail.last()
	assert.Equal(t, "nina@example.com", mail.To)
	assert.Contains(t, mail.Body, "http://app.test/verify-email/")

	login, err := e.auth.Login(ctx, "NINA@example.com", "Secret1!")
	require.NoError(t, err)
	assert.NotNil(t, login.User.LastLoginAt)
}

func TestRegisterRejectsDuplicatesAndWeakInput(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	register(t, e, "dup@example.com")

	_, err := e.auth.Register(ctx, RegisterInput{Name: "Other", Email: "DUP@example.com", Password: "Secret1!"})
	requireKind(t, err, apperr.KindConflict)

	_, err = e.auth.Register(ctx, RegisterInput{Name: "", Email: "nope", Password: "abc", Role: "admin"})
	requireKind(t, err, apperr.KindValidation)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, ae.Fields, "name")
	assert.Contains(t, ae.Fields, "email")
	assert.Contains(t, ae.Fields, "password")
	assert.Contains(t, ae.Fields, "role")
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	register(t, e, "same@example.com")

	_, errWrong := e.auth.Login(ctx, "same@example.com", "Wrong1!x")
	_, errMissing := e.auth.Login(ctx, "ghost@example.com", "Secret1!")

	requireKind(t, errWrong, apperr.KindUnauthorized)
	requireKind(t, errMissing, apperr.KindUnauthorized)
	assert.Equal(t, errWrong.Error(), errMissing.Error())
}

func TestLoginAlwaysComparesAHash(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	register(t, e, "inactive@example.com")
	u, err := e.users.GetByEmail(ctx, "inactive@example.com")
	require.NoError(t, err)
	u.IsActive = false
	require.NoError(t, e.users.Save(ctx, &u))

	var hashes []string
	e.auth.checkPass = func(hash, password string) bool {
		hashes = append(hashes, hash)
		return utils.CheckPassword(hash, password)
	}

	_, err = e.auth.Login(ctx, "ghost@example.com", "Secret1!")
	requireKind(t, err, apperr.KindUnauthorized)
	_, err = e.auth.Login(ctx, "inactive@example.com", "Secret1!")
	requireKind(t, err, apperr.KindUnauthorized)

	require.Len(t, hashes, 2)
	assert.Equal(t, absentUserHash(), hashes[0])
	assert.True(t, strings.HasPrefix(hashes[0], "$2"))
	assert.Equal(t, u.Password, hashes[1])
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.auth.Authenticate(ctx, "garbage")
	requireKind(t, err, apperr.KindUnauthorized)
	ae, _ := apperr.As(err)
	assert.Equal(t, "invalid token", ae.Message)

	expired := auth.NewTokenIssuer("test-secret", -time.Minute, time.Hour, time.Hour)
	u, err := e.users.GetByID(ctx, e.customer.UserID)
	require.NoError(t, err)
	tok, err := expired.IssueAccess(u)
	require.NoError(t, err)
	_, err = e.auth.Authenticate(ctx, tok)
	ae, _ = apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "token expired", ae.Message)

	u.IsActive = false
	require.NoError(t, e.users.Save(ctx, &u))
	tok, err = e.tokens.IssueAccess(u)
	require.NoError(t, err)
	_, err = e.auth.Authenticate(ctx, tok)
	requireKind(t, err, apperr.KindUnauthorized)
}

func resetTokenFrom(t *testing.T, body string) string {
	t.Helper()
	i := strings.Index(body, "token=")
	require.GreaterOrEqual(t, i, 0, "no token in %q", body)
	tok, err := url.QueryUnescape(strings.TrimSpace(body[i+len("token="):]))
	require.NoError(t, err)
	return tok
}

func TestPasswordResetIsSingleUse(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	register(t, e, "reset@example.com")

	require.NoError(t, e.auth.ForgotPassword(ctx, "reset@example.com"))
	tok := resetTokenFrom(t, e.mail.last().Body)

	require.NoError(t, e.auth.ResetPassword(ctx, tok, "Newpass2@"))
	err := e.auth.ResetPassword(ctx, tok, "Another3#")
	requireKind(t, err, apperr.KindValidation)

	_, err = e.auth.Login(ctx, "reset@example.com", "Newpass2@")
	require.NoError(t, err)
	_, err = e.auth.Login(ctx, "reset@example.com", "Secret1!")
	requireKind(t, err, apperr.KindUnauthorized)
}

func TestForgotPasswordHidesUnknownEmails(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.auth.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Empty(t, e.mail.sent)
}

func TestResetRejectsAccessTokens(t *testing.T) {
	e := newTestEnv(t)
	res := register(t, e, "mix@example.com")
	err := e.auth.ResetPassword(context.Background(), res.Token, "Newpass2@")
	requireKind(t, err, apperr.KindValidation)
}

func TestVerifyEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	res := register(t, e, "verify@example.com")
	assert.False(t, res.User.EmailVerified)

	body := e.mail.last().Body
	tok := body[strings.LastIndex(body, "/")+1:]
	tok, err := url.PathUnescape(strings.TrimSpace(tok))
	require.NoError(t, err)

	require.NoError(t, e.auth.VerifyEmail(ctx, tok))
	u, err := e.users.GetByEmail(ctx, "verify@example.com")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)

	requireKind(t, e.auth.VerifyEmail(ctx, "nope"), apperr.KindValidation)
}

func TestLoginWithGoogleCreatesCustomerOnce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	first, err := e.auth.LoginWithGoogle(ctx, "G.User@gmail.com", "")
	require.NoError(t, err)
	assert.Equal(t, "g.user", first.User.Name)
	assert.Equal(t, auth.RoleCustomer, string(first.User.Role))
	assert.True(t, first.User.EmailVerified)

	second, err := e.auth.LoginWithGoogle(ctx, "g.user@gmail.com", "G User")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestProfileUpdate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	name := "  Carol C "
	u, err := e.profileSvc.Update(ctx, e.customer, ProfileInput{
		Name:   &name,
		Skills: []byte(`"go, sql\n docker"`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Carol C", u.Name)
	assert.Equal(t, []string{"go", "sql", "docker"}, []string(u.Skills))

	taken := e.freelancer.Email
	_, err = e.profileSvc.Update(ctx, e.customer, ProfileInput{Email: &taken})
	requireKind(t, err, apperr.KindConflict)
}
