package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestGenerateAndVerify(t *testing.T) {
	token, err := GenerateJWT(testSecret, "writer-1", time.Hour)
	require.NoError(t, err)

	parsed, err := VerifyJWT(testSecret, token)
	require.NoError(t, err)

	sub, err := Subject(parsed)
	require.NoError(t, err)
	assert.Equal(t, "writer-1", sub)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := GenerateJWT(testSecret, "writer-1", time.Hour)
	require.NoError(t, err)

	_, err = VerifyJWT([]byte("other"), token)
	assert.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	token, err := GenerateJWT(testSecret, "writer-1", -time.Minute)
	require.NoError(t, err)

	_, err = VerifyJWT(testSecret, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "writer-1"})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)

	_, err = VerifyJWT(testSecret, signed)
	assert.Error(t, err)
}

func TestSubjectFromBearer(t *testing.T) {
	token, err := GenerateJWT(testSecret, "writer-2", time.Hour)
	require.NoError(t, err)

	sub, err := SubjectFromBearer(testSecret, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "writer-2", sub)

	_, err = SubjectFromBearer(testSecret, "Basic abc")
	assert.Error(t, err)

	blank, err := GenerateJWT(testSecret, "  ", time.Hour)
	require.NoError(t, err)
	_, err = SubjectFromBearer(testSecret, "Bearer "+blank)
	assert.ErrorIs(t, err, ErrMissingSubject)
}
