package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingSubject = errors.New("token has no subject")

// GenerateJWT signs an HS256 token for subject. Used by tooling and tests;
// the service itself only verifies tokens.
func GenerateJWT(secret []byte, subject string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyJWT parses tokenString and checks its HS256 signature and expiry.
func VerifyJWT(secret []byte, tokenString string) (*jwt.Token, error) {
	jwtToken, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if !jwtToken.Valid {
		return nil, errors.New("token invalid")
	}

	return jwtToken, nil
}

// Subject returns the trimmed "sub" claim of a verified token.
func Subject(token *jwt.Token) (string, error) {
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return "", ErrMissingSubject
	}
	return sub, nil
}

// SubjectFromBearer verifies a raw "Bearer <token>" header value.
func SubjectFromBearer(secret []byte, header string) (string, error) {
	token, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	if !ok {
		return "", errors.New("authorization header is not a bearer token")
	}
	parsed, err := VerifyJWT(secret, strings.TrimSpace(token))
	if err != nil {
		return "", err
	}
	return Subject(parsed)
}
