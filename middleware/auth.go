package middleware

import (
	"errors"
	"strings"

	"checkout-service/common/auth"
	apperrors "checkout-service/common/errors"
	"checkout-service/common/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const UserContextKey = "userID"

// AuthMiddleware identifies the caller. Requests forwarded by api-gateway
// carry X-User-ID; direct callers present an access token as a Bearer header.
// A nil validator disables the Bearer path. Rejections are attached with
// c.Error and rendered by apperrors.ErrorMiddleware.
func AuthMiddleware(validator *auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")

		if userID == "" {
			header := c.GetHeader("Authorization")
			if token, ok := strings.CutPrefix(header, "Bearer "); ok && validator != nil {
				claims, err := validator.ParseAndValidateToken(strings.TrimSpace(token), auth.TokenTypeAccess)
				if err != nil {
					logger.Warn(c, "Rejected bearer token", zap.Error(err))
					reject(c, tokenError(err))
					return
				}
				userID, _ = auth.UserID(claims)
			}
		}

		if userID == "" {
			reject(c, apperrors.ErrUnauthorized)
			return
		}

		c.Set(UserContextKey, userID)
		c.Next()
	}
}

func tokenError(err error) *apperrors.Error {
	if errors.Is(err, auth.ErrTokenExpired) {
		return apperrors.Wrap(apperrors.ErrTokenExpired, err)
	}
	return apperrors.Wrap(apperrors.ErrInvalidToken, err)
}

func reject(c *gin.Context, err *apperrors.Error) {
	_ = c.Error(err)
	c.Abort()
}

// GetUserID returns the user id set by AuthMiddleware.
func GetUserID(c *gin.Context) (string, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("user ID not found in context")
}
