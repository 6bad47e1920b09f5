package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"checkout-service/models"
	"checkout-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	assert.NoError(t, err)
	return gormDB, mock
}

var sessionColumns = []string{"id", "token", "user_id", "idempotency_key", "parts", "total", "currency", "status", "created_at", "expires_at"}

const partsJSON = `[{"store_id":"64b000000000000000000001","store_name":"Corner Shop","items":[{"product_id":"p1","variant_id":"v1","product_name":"Mug","quantity":2,"unit_price":"15","line_total":"30"}],"items_total":"30","shipping_cost":"10"}]`

func TestGormCreate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)

	session := sampleSession()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "checkout_sessions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "id"}).AddRow("open", session.ID))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), session)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreate_DuplicateKey(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "checkout_sessions"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleSession())
	assert.ErrorIs(t, err, repository.ErrDuplicateSession)
}

func TestGormCreate_OtherError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "checkout_sessions"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleSession())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, repository.ErrDuplicateSession))
}

func TestGormFindByToken_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)

	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	rows := sqlmock.NewRows(sessionColumns).
		AddRow(id.String(), "tok-1", "user-1", nil, partsJSON, "40.00", "USD", "open", now, now.Add(30*time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "checkout_sessions"`)).
		WillReturnRows(rows)

	s, err := repo.FindByToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, "user-1", s.UserID)
	assert.Empty(t, s.IdempotencyKey)
	assert.True(t, decimal.RequireFromString("40").Equal(s.Total))
	require.Len(t, s.Parts, 1)
	assert.Equal(t, "Corner Shop", s.Parts[0].StoreName)
	assert.True(t, decimal.NewFromInt(30).Equal(s.Parts[0].Items[0].LineTotal))
	assert.Equal(t, now.Add(30*time.Minute), s.ExpiresAt)
}

func TestGormFindByToken_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "checkout_sessions"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	s, err := repo.FindByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	assert.Nil(t, s)
}

func TestGormFindByIdempotencyKey_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)

	id := uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows(sessionColumns).
		AddRow(id.String(), "tok-2", "user-2", "key-1", partsJSON, "40", "USD", "open", now, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "checkout_sessions"`)).
		WillReturnRows(rows)

	s, err := repo.FindByIdempotencyKey(context.Background(), "user-2", "key-1")
	require.NoError(t, err)
	assert.Equal(t, "key-1", s.IdempotencyKey)
	assert.Equal(t, "tok-2", s.Token)
	assert.True(t, s.ExpiresAt.IsZero())
}

func sampleSession() *models.CheckoutSession {
	now := time.Now().UTC()
	return &models.CheckoutSession{
		ID:     uuid.New(),
		Token:  uuid.NewString(),
		UserID: "user-1",
		Parts: []models.CheckoutSessionPart{{
			StoreID:   "64b000000000000000000001",
			StoreName: "Corner Shop",
			Items: []models.CheckoutSessionItem{{
				ProductID:   "p1",
				VariantID:   "v1",
				ProductName: "Mug",
				Quantity:    2,
				UnitPrice:   decimal.NewFromInt(15),
				LineTotal:   decimal.NewFromInt(30),
			}},
			ItemsTotal:   decimal.NewFromInt(30),
			ShippingCost: decimal.NewFromInt(10),
		}},
		Total:          decimal.NewFromInt(40),
		Currency:       "USD",
		Status:         models.SessionStatusOpen,
		IdempotencyKey: "key-1",
		CreatedAt:      now,
		ExpiresAt:      now.Add(30 * time.Minute),
	}
}

func TestGormReleaseIdempotencyKey(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "checkout_sessions" SET "idempotency_key"=$1`)).
		WithArgs(nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.ReleaseIdempotencyKey(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormReleaseIdempotencyKey_Error(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "checkout_sessions"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	assert.Error(t, repo.ReleaseIdempotencyKey(context.Background(), uuid.New()))
}
