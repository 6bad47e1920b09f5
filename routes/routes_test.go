package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	commonmw "checkout-service/common/middleware"
	"checkout-service/controllers"
	"checkout-service/models"
	"checkout-service/routes"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

type stubService struct{}

func (stubService) BuildCheckout(context.Context, string, string) (*services.CheckoutResult, *services.ServiceError) {
	return &services.CheckoutResult{Failures: []models.ValidationFailure{{Kind: models.FailureEmptyCart}}}, nil
}

func (stubService) GetSession(context.Context, string, string) (*models.CheckoutSession, *services.ServiceError) {
	return nil, &services.ServiceError{StatusCode: http.StatusNotFound, Message: "Checkout session not found"}
}

func setupRouter(limiter *commonmw.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	routes.RegisterCheckoutRoutes(r, controllers.NewCheckoutController(stubService{}), nil, limiter)
	return r
}

func TestRegisterCheckoutRoutes(t *testing.T) {
	r := setupRouter(nil)

	tests := []struct {
		method string
		path   string
		user   string
		code   int
	}{
		{http.MethodPost, "/checkout", "user-1", http.StatusUnprocessableEntity},
		{http.MethodGet, "/checkout/tok", "user-1", http.StatusNotFound},
		{http.MethodPost, "/checkout", "", http.StatusUnauthorized},
		{http.MethodGet, "/checkout/tok", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		if tt.user != "" {
			req.Header.Set("X-User-ID", tt.user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tt.code, w.Code, "%s %s", tt.method, tt.path)
	}
}

func TestRegisterCheckoutRoutes_RateLimited(t *testing.T) {
	r := setupRouter(commonmw.NewRateLimiter(rate.Every(time.Hour), 1, time.Minute))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("X-User-ID", "user-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusUnprocessableEntity, http.StatusTooManyRequests}, codes)
}
