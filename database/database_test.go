package database_test

import (
	"testing"

	"checkout-service/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := database.PostgresConfig{User: "app", Password: "pw", DB: "checkout", Host: "db", Port: "5432", SSLMode: "disable", TimeZone: "UTC"}
	assert.Equal(t, "host=db user=app password=pw dbname=checkout port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := database.NewRedisClient("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer client.Close()

	_, err = database.NewRedisClient("not a url")
	assert.Error(t, err)
}
