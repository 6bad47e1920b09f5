package controllers

import (
	"net/http"

	apperrors "checkout-service/common/errors"
	"checkout-service/middleware"
	"checkout-service/models"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// CheckoutController handles HTTP requests for checkout sessions.
type CheckoutController struct {
	checkoutService services.CheckoutService
}

// NewCheckoutController creates a new CheckoutController.
func NewCheckoutController(svc services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkoutService: svc}
}

// CreateCheckout handles POST /checkout
func (cc *CheckoutController) CreateCheckout(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		_ = ctx.Error(apperrors.Wrap(apperrors.ErrUnauthorized, err))
		return
	}

	result, svcErr := cc.checkoutService.BuildCheckout(ctx.Request.Context(), userID, ctx.GetHeader(IdempotencyKeyHeader))
	if svcErr != nil {
		_ = ctx.Error(serviceError(svcErr))
		return
	}

	if !result.OK() {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "checkout validation failed",
			"failures": result.Failures,
		})
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	ctx.JSON(status, sessionResponse(result.Session, result.Replayed))
}

// GetCheckout handles GET /checkout/:token
func (cc *CheckoutController) GetCheckout(ctx *gin.Context) {
	userID, err := middleware.GetUserID(ctx)
	if err != nil {
		_ = ctx.Error(apperrors.Wrap(apperrors.ErrUnauthorized, err))
		return
	}

	token := ctx.Param("token")
	if token == "" {
		_ = ctx.Error(apperrors.New(http.StatusBadRequest, "Session token is required", nil))
		return
	}

	session, svcErr := cc.checkoutService.GetSession(ctx.Request.Context(), userID, token)
	if svcErr != nil {
		_ = ctx.Error(serviceError(svcErr))
		return
	}

	ctx.JSON(http.StatusOK, session)
}

// serviceError carries a service failure to apperrors.ErrorMiddleware.
func serviceError(svcErr *services.ServiceError) *apperrors.Error {
	return apperrors.New(svcErr.StatusCode, svcErr.Message, svcErr)
}

func sessionResponse(s *models.CheckoutSession, replayed bool) gin.H {
	return gin.H{
		"session_id": s.ID,
		"token":      s.Token,
		"total":      s.Total,
		"currency":   s.Currency,
		"parts":      s.Parts,
		"status":     s.Status,
		"expires_at": s.ExpiresAt,
		"replayed":   replayed,
	}
}
