package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/models"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/utils"
)

func testUser() models.User {
	return models.User{ID: uuid.New(), Email: "ana@example.com", Role: models.RoleFreelancer}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour, time.Hour, time.Hour)
	u := testUser()

	tok, err := issuer.IssueAccess(u)
	require.NoError(t, err)

	id, err := issuer.ParseAccess(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, "ana@example.com", id.Email)
	assert.Equal(t, RoleFreelancer, id.Role)
}

func TestAccessTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", -time.Minute, time.Hour, time.Hour)

	tok, err := issuer.IssueAccess(testUser())
	require.NoError(t, err)

	_, err = issuer.ParseAccess(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAccessTokenInvalid(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour, time.Hour, time.Hour)
	other := NewTokenIssuer("other", time.Hour, time.Hour, time.Hour)

	tok, err := other.IssueAccess(testUser())
	require.NoError(t, err)

	_, err = issuer.ParseAccess(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = issuer.ParseAccess("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestEmailTokenCannotAuthenticate(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour, time.Hour, time.Hour)

	tok, err := issuer.IssueEmailToken("ana@example.com", utils.PurposeResetPassword)
	require.NoError(t, err)

	_, err = issuer.ParseAccess(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = issuer.ParseEmailToken(tok, utils.PurposeVerifyEmail)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	email, err := issuer.ParseEmailToken(tok, utils.PurposeResetPassword)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", email)
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	for _, h := range []string{"", "Bearer", "Basic abc", "Bearer   "} {
		_, err := BearerToken(h)
		assert.ErrorIs(t, err, ErrNoBearer, h)
	}
}
