package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts failed Redis commands by command name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "foodgram_redis_errors_total",
	Help: "Total number of Redis command errors",
}, []string{"command"})

var (
	httpMetrics     *fiberprometheus.FiberPrometheus
	httpMetricsOnce sync.Once
)

// InitMetrics builds the HTTP metrics collector for the given service name.
// The collectors live in the default registry, so later calls return the
// first instance.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	httpMetricsOnce.Do(func() {
		httpMetrics = fiberprometheus.New(serviceName)
	})
	return httpMetrics
}

// MetricsMiddleware records request count, latency and in-flight gauges.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
