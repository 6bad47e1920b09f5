package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// CheckoutSessionRecord is the Postgres row of a checkout session. Parts are
// kept as a JSON document since they are only ever read back whole.
type CheckoutSessionRecord struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Token          string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	UserID         string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_checkout_user_idempotency,priority:1"`
	IdempotencyKey *string         `gorm:"type:varchar(128);uniqueIndex:idx_checkout_user_idempotency,priority:2"`
	PartsJSON      string          `gorm:"column:parts;type:jsonb;not null"`
	Total          decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Currency       string          `gorm:"type:char(3);not null"`
	Status         string          `gorm:"type:varchar(32);not null;default:'open'"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	ExpiresAt      *time.Time      `gorm:"index"`
}

func (CheckoutSessionRecord) TableName() string { return "checkout_sessions" }

// GormSessionRepository implements SessionRepository on Postgres.
type GormSessionRepository struct {
	db *gorm.DB
}

func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Create(ctx context.Context, session *models.CheckoutSession) error {
	rec, err := newSessionRecord(session)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateSession, err)
		}
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

func (r *GormSessionRepository) FindByToken(ctx context.Context, token string) (*models.CheckoutSession, error) {
	return r.first(ctx, "token = ?", token)
}

func (r *GormSessionRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.CheckoutSession, error) {
	return r.first(ctx, "user_id = ? AND idempotency_key = ?", userID, key)
}

// ReleaseIdempotencyKey sets the key to NULL; Postgres unique indexes ignore NULLs.
func (r *GormSessionRepository) ReleaseIdempotencyKey(ctx context.Context, sessionID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&CheckoutSessionRecord{}).
		Where("id = ?", sessionID).
		Update("idempotency_key", nil).Error
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (r *GormSessionRepository) first(ctx context.Context, query string, args ...interface{}) (*models.CheckoutSession, error) {
	var rec CheckoutSessionRecord
	err := r.db.WithContext(ctx).Where(query, args...).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find checkout session: %w", err)
	}
	return rec.toModel()
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func newSessionRecord(s *models.CheckoutSession) (*CheckoutSessionRecord, error) {
	parts, err := json.Marshal(s.Parts)
	if err != nil {
		return nil, fmt.Errorf("marshal parts: %w", err)
	}
	rec := &CheckoutSessionRecord{
		ID:        s.ID,
		Token:     s.Token,
		UserID:    s.UserID,
		PartsJSON: string(parts),
		Total:     s.Total,
		Currency:  s.Currency,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
	}
	if s.IdempotencyKey != "" {
		key := s.IdempotencyKey
		rec.IdempotencyKey = &key
	}
	if !s.ExpiresAt.IsZero() {
		exp := s.ExpiresAt
		rec.ExpiresAt = &exp
	}
	return rec, nil
}

func (rec *CheckoutSessionRecord) toModel() (*models.CheckoutSession, error) {
	s := &models.CheckoutSession{
		ID:        rec.ID,
		Token:     rec.Token,
		UserID:    rec.UserID,
		Total:     rec.Total,
		Currency:  rec.Currency,
		Status:    models.SessionStatus(rec.Status),
		CreatedAt: rec.CreatedAt,
	}
	if rec.IdempotencyKey != nil {
		s.IdempotencyKey = *rec.IdempotencyKey
	}
	if rec.ExpiresAt != nil {
		s.ExpiresAt = *rec.ExpiresAt
	}
	if err := json.Unmarshal([]byte(rec.PartsJSON), &s.Parts); err != nil {
		return nil, fmt.Errorf("unmarshal parts of session %s: %w", rec.ID, err)
	}
	return s, nil
}
