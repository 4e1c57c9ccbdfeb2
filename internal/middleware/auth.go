package middleware

import (
	"strings"

	"scenario-writing-lab/auth"
	"scenario-writing-lab/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const UserHeader = "x-user-id"

type Auth struct {
	// JWTSecret enables Authorization: Bearer tokens. Empty means only the
	// x-user-id header is honoured.
	JWTSecret string
}

// AuthMiddleWare resolves the caller identity and stores it under UserIDKey.
// A bearer token, when present and enabled, must be valid; otherwise the
// trimmed x-user-id header is used.
func (m *Auth) AuthMiddleWare() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var userID string

		authHeader := ctx.GetHeader("Authorization")
		if m.JWTSecret != "" && strings.HasPrefix(authHeader, "Bearer ") {
			sub, err := auth.SubjectFromBearer([]byte(m.JWTSecret), authHeader)
			if err != nil {
				ctx.Error(errors.Unauthorized(errors.CodeAuthRequired, err))
				ctx.Abort()
				return
			}
			userID = sub
		} else {
			userID = strings.TrimSpace(ctx.GetHeader(UserHeader))
		}

		if userID == "" {
			ctx.Error(errors.Unauthorized(errors.CodeAuthRequired, nil))
			ctx.Abort()
			return
		}

		ctx.Set(UserIDKey, userID)
		l := zerolog.Ctx(ctx.Request.Context()).With().Str("ownerId", userID).Logger()
		ctx.Request = ctx.Request.WithContext(l.WithContext(ctx.Request.Context()))
		ctx.Next()
	}
}
