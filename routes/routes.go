package routes

import (
	"checkout-service/common/auth"
	apperrors "checkout-service/common/errors"
	commonmw "checkout-service/common/middleware"
	"checkout-service/controllers"
	"checkout-service/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterCheckoutRoutes sets up all checkout routes. Every route requires an
// authenticated user and is rate limited per client IP.
func RegisterCheckoutRoutes(r *gin.Engine, cc *controllers.CheckoutController, validator *auth.TokenValidator, limiter *commonmw.RateLimiter) {
	checkout := r.Group("/checkout", apperrors.ErrorMiddleware())
	if limiter != nil {
		checkout.Use(commonmw.RateLimitMiddleware(limiter))
	}
	checkout.Use(middleware.AuthMiddleware(validator))

	checkout.POST("", cc.CreateCheckout)
	checkout.GET("/:token", cc.GetCheckout)
}
