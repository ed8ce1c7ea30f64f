package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	service := NewTokenService(TokenConfig{Secret: "secret", Issuer: "lesson-planner", Expiration: time.Hour})

	issued, err := service.Issue("tutor-1", "Ms. Rivera")
	require.NoError(t, err)
	assert.Equal(t, "tutor-1", issued.Subject)

	claims, err := service.Validate(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "tutor-1", claims.Subject)
	assert.Equal(t, "Ms. Rivera", claims.Name)
	assert.Equal(t, "lesson-planner", claims.Issuer)
}

func TestTokenServiceRejectsInvalidTokens(t *testing.T) {
	service := NewTokenService(TokenConfig{Secret: "secret", Issuer: "lesson-planner", Expiration: time.Hour})
	issued, err := service.Issue("tutor-1", "")
	require.NoError(t, err)

	other := NewTokenService(TokenConfig{Secret: "other", Issuer: "lesson-planner"})
	_, err = other.Validate(issued.Token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	wrongIssuer := NewTokenService(TokenConfig{Secret: "secret", Issuer: "someone-else"})
	_, err = wrongIssuer.Validate(issued.Token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = service.Validate(issued.Token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized), "expired token")

	_, err = service.Validate("not-a-token")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestTokenServiceIssueRequiresSecretAndSubject(t *testing.T) {
	_, err := NewTokenService(TokenConfig{}).Issue("tutor-1", "")
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))

	_, err = NewTokenService(TokenConfig{Secret: "secret"}).Issue("", "")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
