package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/botscript-backend/internal/models"
)

func signUpRequest() *SignUpRequest {
	return &SignUpRequest{
		Email:           "Marie@Example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
		Username:        "marie",
		FullName:        "Marie Curie",
		UserType:        models.UserTypeBuyer,
		AcceptTerms:     true,
	}
}

func TestSignUpSignInAndResolve(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.store, f.cache, f.cfg)
	ctx := context.Background()

	signedUp, err := svc.SignUp(ctx, signUpRequest())
	require.NoError(t, err)
	assert.Equal(t, "marie@example.com", signedUp.User.Email)
	assert.Equal(t, signedUp.User.ID, signedUp.Profile.ID)
	assert.Equal(t, "Bearer", signedUp.TokenType)
	assert.Equal(t, 3600, signedUp.ExpiresIn)

	signedIn, err := svc.SignIn(ctx, &SignInRequest{Email: "marie@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NotNil(t, signedIn.User.LastLoginAt)

	sess, err := svc.Resolve(ctx, signedIn.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, signedUp.User.ID, sess.UserID)
	assert.Equal(t, models.UserTypeBuyer, sess.UserType)
	assert.Equal(t, "marie", sess.Username)

	view, err := svc.CurrentSession(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "marie", view.Profile.Username)
}

func TestSignUpValidatesBeforeStore(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.store, f.cache, f.cfg)

	req := signUpRequest()
	req.Password = "short"
	req.ConfirmPassword = "different"
	req.AcceptTerms = false

	_, err := svc.SignUp(context.Background(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := map[string]string{}
	for _, field := range verr.Fields {
		fields[field.Field] = field.Tag
	}
	assert.Equal(t, "min", fields["password"])
	assert.Equal(t, "eqfield", fields["confirm_password"])
	assert.Equal(t, "required", fields["accept_terms"])

	_, err = f.store.Users().GetByEmail(context.Background(), "marie@example.com")
	assert.Error(t, err)
}

func TestSignUpRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.store, f.cache, f.cfg)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, signUpRequest())
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, signUpRequest())
	assert.ErrorIs(t, err, ErrConflict)

	req := signUpRequest()
	req.Email = "other@example.com"
	_, err = svc.SignUp(ctx, req)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.store, f.cache, f.cfg)
	ctx := context.Background()

	_, err := svc.SignIn(ctx, &SignInRequest{Email: "buyer@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, &SignInRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOutRevokesToken(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.store, f.cache, f.cfg)
	ctx := context.Background()

	auth, err := svc.SignIn(ctx, &SignInRequest{Email: "buyer@example.com", Password: "password123"})
	require.NoError(t, err)

	sess, err := svc.Resolve(ctx, auth.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, sess))

	_, err = svc.Resolve(ctx, auth.AccessToken)
	assert.ErrorIs(t, err, ErrAuthenticationRequired)

	assert.ErrorIs(t, svc.SignOut(ctx, nil), ErrAuthenticationRequired)
}

func TestResolveRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.store, f.cache, f.cfg)

	_, err := svc.Resolve(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrAuthenticationRequired)
}
