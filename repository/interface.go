package repository

import (
	"context"
	"errors"
	"time"

	"checkout-service/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrSessionNotFound  = errors.New("checkout session not found")
	ErrDuplicateSession = errors.New("checkout session already exists")
)

// CartSnapshotProvider loads a user's cart with every line's product and
// variant resolved to their current state.
type CartSnapshotProvider interface {
	LoadPopulatedCart(ctx context.Context, userID string) ([]models.CartItem, error)
}

// StoreRepository batch-loads merchants. Unknown ids are omitted from the result.
type StoreRepository interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Store, error)
}

// SessionRepository persists checkout sessions. Create is a single atomic
// insert and fails with ErrDuplicateSession when the token or the
// (user, idempotency key) pair is already taken. ReleaseIdempotencyKey
// detaches the key from a stored session so it can be used again; releasing
// a session that no longer exists is not an error.
type SessionRepository interface {
	Create(ctx context.Context, session *models.CheckoutSession) error
	FindByToken(ctx context.Context, token string) (*models.CheckoutSession, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.CheckoutSession, error)
	ReleaseIdempotencyKey(ctx context.Context, sessionID uuid.UUID) error
}

// SessionCache is a read-through cache in front of SessionRepository. Misses
// are reported as a nil session or an empty token, never as errors.
type SessionCache interface {
	GetByToken(ctx context.Context, token string) (*models.CheckoutSession, error)
	Put(ctx context.Context, session *models.CheckoutSession) error
	GetIdempotency(ctx context.Context, userID, key string) (string, error)
	SetIdempotency(ctx context.Context, userID, key, token string, ttl time.Duration) error
}
