package logger_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"checkout-service/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_FromPlainContext(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", logger.RequestID(ctx))
	assert.Equal(t, "unknown", logger.RequestID(context.Background()))
}

func TestRequestID_FromGinContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	assert.Equal(t, "unknown", logger.RequestID(c))

	c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), "from-request"))
	assert.Equal(t, "from-request", logger.RequestID(c))

	c.Set(logger.RequestIDKey, "from-gin")
	assert.Equal(t, "from-gin", logger.RequestID(c))
}

func TestBuild_TeesIntoSink(t *testing.T) {
	var sink bytes.Buffer
	l, err := logger.Build("production", &sink)
	require.NoError(t, err)

	l.Info("checkout session created")
	_ = l.Sync()

	assert.Contains(t, sink.String(), `"msg":"checkout session created"`)
	assert.Contains(t, sink.String(), `"level":"info"`)
}
