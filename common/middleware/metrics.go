package middleware

import (
	"context"
	"strconv"
	"time"

	awspkg "checkout-service/pkg/aws"

	"github.com/gin-gonic/gin"
)

const metricsFlushTimeout = 5 * time.Second

// MetricsMiddleware reports request count, latency and error counts to
// CloudWatch. Publishing happens in a goroutine after the handler returns.
func MetricsMiddleware(metricsClient *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !metricsClient.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		dims := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    route,
			"Status":  statusClass(status),
		}

		go publishRequestMetrics(metricsClient, status, elapsed, dims)
	}
}

func publishRequestMetrics(mc *awspkg.MetricsClient, status int, elapsed time.Duration, dims map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), metricsFlushTimeout)
	defer cancel()

	_ = mc.RecordCount(ctx, awspkg.MetricHTTPRequests, dims)
	_ = mc.RecordLatency(ctx, awspkg.MetricHTTPLatency, elapsed, dims)
	if status < 400 {
		return
	}
	_ = mc.RecordCount(ctx, awspkg.MetricHTTPErrors, dims)
	if status >= 500 {
		_ = mc.RecordCount(ctx, awspkg.MetricHTTP5xx, dims)
	} else {
		_ = mc.RecordCount(ctx, awspkg.MetricHTTP4xx, dims)
	}
}

// statusClass buckets a status code as "2xx", "4xx" and so on.
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
