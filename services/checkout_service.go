package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"checkout-service/checkout"
	"checkout-service/common/logger"
	"checkout-service/events"
	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/repository"

	"go.uber.org/zap"
)

const maxIdempotencyKeyLength = 128

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

// MetricsRecorder is the part of the CloudWatch metrics client the service uses.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
}

// CheckoutResult carries either the created (or replayed) session or the
// complete list of validation failures, never both.
type CheckoutResult struct {
	Session  *models.CheckoutSession
	Failures []models.ValidationFailure
	Replayed bool
}

// OK reports whether a session was produced.
func (r *CheckoutResult) OK() bool { return r.Session != nil && len(r.Failures) == 0 }

// CheckoutOptions holds the tunables of the checkout service.
type CheckoutOptions struct {
	Pricing        checkout.PricingConfig
	SessionTTL     time.Duration
	IdempotencyTTL time.Duration
}

// CheckoutService defines the business logic interface.
type CheckoutService interface {
	BuildCheckout(ctx context.Context, userID, idempotencyKey string) (*CheckoutResult, *ServiceError)
	GetSession(ctx context.Context, userID, token string) (*models.CheckoutSession, *ServiceError)
}

type checkoutServiceImpl struct {
	cart      repository.CartSnapshotProvider
	stores    repository.StoreRepository
	sessions  repository.SessionRepository
	cache     repository.SessionCache
	publisher events.Publisher
	metrics   MetricsRecorder
	opts      CheckoutOptions
	logger    *zap.Logger
	now       func() time.Time
}

// NewCheckoutService creates a new CheckoutService. cache, publisher and
// metrics may be nil.
func NewCheckoutService(
	cart repository.CartSnapshotProvider,
	stores repository.StoreRepository,
	sessions repository.SessionRepository,
	cache repository.SessionCache,
	publisher events.Publisher,
	metrics MetricsRecorder,
	opts CheckoutOptions,
	logger *zap.Logger,
) CheckoutService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if opts.Pricing.Currency == "" {
		opts.Pricing = checkout.DefaultPricingConfig()
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &checkoutServiceImpl{
		cart:      cart,
		stores:    stores,
		sessions:  sessions,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// BuildCheckout turns the user's current cart into a persisted checkout
// session. Validation failures come back in the result; the returned
// ServiceError is reserved for infrastructure problems.
func (s *checkoutServiceImpl) BuildCheckout(ctx context.Context, userID, idempotencyKey string) (*CheckoutResult, *ServiceError) {
	if userID == "" {
		return nil, &ServiceError{StatusCode: http.StatusUnauthorized, Message: "Missing user"}
	}
	if len(idempotencyKey) > maxIdempotencyKeyLength {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "Idempotency key is too long"}
	}
	start := s.now()

	if idempotencyKey != "" {
		existing, svcErr := s.findReplay(ctx, userID, idempotencyKey)
		if svcErr != nil {
			return nil, svcErr
		}
		if existing != nil && existing.Expired(s.now()) {
			if svcErr := s.releaseKey(ctx, existing); svcErr != nil {
				return nil, svcErr
			}
			existing = nil
		}
		if existing != nil {
			s.log(ctx).Info("Checkout replayed",
				zap.String("user_id", userID),
				zap.String("session_id", existing.ID.String()),
			)
			s.count(ctx, awspkg.MetricCheckoutIdempotentReplay, nil)
			return &CheckoutResult{Session: existing, Replayed: true}, nil
		}
	}

	items, err := s.cart.LoadPopulatedCart(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "User not found"}
	}
	if err != nil {
		s.log(ctx).Error("Failed to load cart", zap.String("user_id", userID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Failed to load cart"}
	}

	proposal, err := checkout.Build(ctx, items, s.stores, s.opts.Pricing)
	if err != nil {
		s.log(ctx).Error("Failed to resolve stores", zap.String("user_id", userID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Failed to load stores"}
	}

	if !proposal.OK() {
		s.reportFailures(ctx, userID, proposal.Report())
		return &CheckoutResult{Failures: proposal.Failures()}, nil
	}

	session, err := proposal.Assemble(userID, s.now(), s.opts.SessionTTL)
	if err != nil {
		s.log(ctx).Error("Failed to assemble checkout session", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to create checkout session"}
	}
	session.IdempotencyKey = idempotencyKey

	if err := models.ValidateSession(session); err != nil {
		s.log(ctx).Error("Assembled session is inconsistent", zap.String("user_id", userID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to create checkout session"}
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateSession) && idempotencyKey != "" {
			winner, findErr := s.sessions.FindByIdempotencyKey(ctx, userID, idempotencyKey)
			if findErr == nil {
				s.count(ctx, awspkg.MetricCheckoutIdempotentReplay, nil)
				return &CheckoutResult{Session: winner, Replayed: true}, nil
			}
			s.log(ctx).Error("Duplicate session but no winner found", zap.String("user_id", userID), zap.Error(findErr))
		}
		s.log(ctx).Error("Failed to persist checkout session", zap.String("user_id", userID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to save checkout session"}
	}

	s.log(ctx).Info("Checkout session created",
		zap.String("user_id", userID),
		zap.String("session_id", session.ID.String()),
		zap.Int("parts", len(session.Parts)),
		zap.String("total", session.Total.StringFixed(s.opts.Pricing.Scale)),
		zap.String("currency", session.Currency),
	)

	s.afterCommit(ctx, session, start)
	return &CheckoutResult{Session: session}, nil
}

// GetSession returns a session owned by userID. Expired sessions are reported
// as gone even while storage still holds them.
func (s *checkoutServiceImpl) GetSession(ctx context.Context, userID, token string) (*models.CheckoutSession, *ServiceError) {
	if token == "" {
		return nil, &ServiceError{StatusCode: http.StatusBadRequest, Message: "Missing session token"}
	}

	session := s.cachedSession(ctx, token)
	if session == nil {
		found, err := s.sessions.FindByToken(ctx, token)
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Checkout session not found"}
		}
		if err != nil {
			s.log(ctx).Error("Failed to load checkout session", zap.Error(err))
			return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to load checkout session"}
		}
		session = found
		s.cacheSession(ctx, session)
	}

	if session.UserID != userID {
		s.log(ctx).Warn("Checkout session requested by another user",
			zap.String("user_id", userID),
			zap.String("session_id", session.ID.String()),
		)
		return nil, &ServiceError{StatusCode: http.StatusForbidden, Message: "Checkout session belongs to another user"}
	}
	if session.Expired(s.now()) {
		return nil, &ServiceError{StatusCode: http.StatusGone, Message: "Checkout session has expired"}
	}
	return session, nil
}

// findReplay looks for a session already created under the same key. Cache
// problems fall through to the repository.
func (s *checkoutServiceImpl) findReplay(ctx context.Context, userID, key string) (*models.CheckoutSession, *ServiceError) {
	if s.cache != nil {
		token, err := s.cache.GetIdempotency(ctx, userID, key)
		if err != nil {
			s.log(ctx).Warn("Idempotency cache lookup failed", zap.Error(err))
		}
		if token != "" {
			if cached := s.cachedSession(ctx, token); cached != nil {
				return cached, nil
			}
			if found, err := s.sessions.FindByToken(ctx, token); err == nil {
				return found, nil
			}
		}
	}

	existing, err := s.sessions.FindByIdempotencyKey(ctx, userID, key)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		s.log(ctx).Error("Idempotency lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Failed to check idempotency key"}
	}
	return existing, nil
}

// releaseKey frees an idempotency key still held by an expired session so the
// request builds a fresh one.
func (s *checkoutServiceImpl) releaseKey(ctx context.Context, expired *models.CheckoutSession) *ServiceError {
	if err := s.sessions.ReleaseIdempotencyKey(ctx, expired.ID); err != nil {
		s.log(ctx).Error("Failed to release idempotency key",
			zap.String("session_id", expired.ID.String()),
			zap.Error(err),
		)
		return &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Failed to check idempotency key"}
	}
	s.log(ctx).Info("Idempotency key released from expired session",
		zap.String("user_id", expired.UserID),
		zap.String("session_id", expired.ID.String()),
	)
	return nil
}

func (s *checkoutServiceImpl) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.logger)
}

func (s *checkoutServiceImpl) cachedSession(ctx context.Context, token string) *models.CheckoutSession {
	if s.cache == nil {
		return nil
	}
	session, err := s.cache.GetByToken(ctx, token)
	if err != nil {
		s.log(ctx).Warn("Session cache read failed", zap.Error(err))
		s.count(ctx, awspkg.MetricCacheMisses, map[string]string{"Cache": "session"})
		return nil
	}
	if session == nil {
		s.count(ctx, awspkg.MetricCacheMisses, map[string]string{"Cache": "session"})
		return nil
	}
	s.count(ctx, awspkg.MetricCacheHits, map[string]string{"Cache": "session"})
	return session
}

func (s *checkoutServiceImpl) cacheSession(ctx context.Context, session *models.CheckoutSession) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, session); err != nil {
		s.log(ctx).Warn("Session cache write failed", zap.Error(err))
	}
}

func (s *checkoutServiceImpl) reportFailures(ctx context.Context, userID string, report *checkout.Report) {
	if report.Internal() {
		s.log(ctx).Error("Cart snapshot violated the population contract",
			zap.String("user_id", userID),
			zap.Strings("failures", report.Kinds()),
		)
		s.count(ctx, awspkg.MetricCheckoutContractViolation, nil)
		return
	}
	s.log(ctx).Warn("Checkout validation failed",
		zap.String("user_id", userID),
		zap.Strings("failures", report.Kinds()),
	)
	for _, kind := range report.Kinds() {
		s.count(ctx, awspkg.MetricCheckoutValidationFailed, map[string]string{"Kind": kind})
	}
}

// afterCommit runs the side channels of a committed session. None of them
// can fail the request.
func (s *checkoutServiceImpl) afterCommit(ctx context.Context, session *models.CheckoutSession, start time.Time) {
	s.cacheSession(ctx, session)
	if s.cache != nil && session.IdempotencyKey != "" {
		if err := s.cache.SetIdempotency(ctx, session.UserID, session.IdempotencyKey, session.Token, s.opts.IdempotencyTTL); err != nil {
			s.log(ctx).Warn("Idempotency cache write failed", zap.Error(err))
		}
	}

	s.publishEvent(ctx, session)

	if s.metrics == nil {
		return
	}
	dims := map[string]string{"Currency": session.Currency}
	_ = s.metrics.RecordCount(ctx, awspkg.MetricCheckoutSessionsCreated, dims)
	_ = s.metrics.RecordValue(ctx, awspkg.MetricCheckoutValue, session.Total.InexactFloat64(), dims)
	_ = s.metrics.RecordLatency(ctx, awspkg.MetricCheckoutBuildLatency, s.now().Sub(start), nil)
}

// publishEvent publishes checkout_session_created (non-fatal on error).
func (s *checkoutServiceImpl) publishEvent(ctx context.Context, session *models.CheckoutSession) {
	storeIDs := make([]string, 0, len(session.Parts))
	for _, p := range session.Parts {
		storeIDs = append(storeIDs, p.StoreID)
	}
	evt := events.SessionCreated{
		EventType: events.EventTypeSessionCreated,
		SessionID: session.ID.String(),
		UserID:    session.UserID,
		StoreIDs:  storeIDs,
		Total:     session.Total.StringFixed(s.opts.Pricing.Scale),
		Currency:  session.Currency,
		ExpiresAt: session.ExpiresAt,
		Timestamp: s.now().UTC(),
	}
	if err := s.publisher.PublishSessionCreated(ctx, evt); err != nil {
		s.log(ctx).Error("Failed to publish checkout event", zap.String("session_id", evt.SessionID), zap.Error(err))
		return
	}
	s.log(ctx).Debug("Published checkout event", zap.String("session_id", evt.SessionID))
}

func (s *checkoutServiceImpl) count(ctx context.Context, metric string, dims map[string]string) {
	if s.metrics == nil {
		return
	}
	_ = s.metrics.RecordCount(ctx, metric, dims)
}
