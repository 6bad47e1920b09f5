package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "checkout-service/common/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsSentinelIdentity(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("parse token: %w", apperrors.Wrap(apperrors.ErrInvalidToken, cause))

	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, apperrors.ErrTokenExpired)
	assert.Nil(t, apperrors.ErrInvalidToken.Err)
}

func setupRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	r.GET("/", handler)
	return r
}

func TestErrorMiddleware_RendersAppError(t *testing.T) {
	r := setupRouter(func(c *gin.Context) {
		_ = c.Error(apperrors.New(http.StatusGone, "Checkout session has expired", nil))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusGone, w.Code)
	assert.JSONEq(t, `{"error":"Checkout session has expired"}`, w.Body.String())
}

func TestErrorMiddleware_UnknownErrorIs500(t *testing.T) {
	r := setupRouter(func(c *gin.Context) {
		_ = c.Error(stderrors.New("db exploded"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db exploded")
}

func TestErrorMiddleware_DoesNotOverwriteResponse(t *testing.T) {
	r := setupRouter(func(c *gin.Context) {
		_ = c.Error(apperrors.ErrUnauthorized)
		c.JSON(http.StatusTeapot, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
}
