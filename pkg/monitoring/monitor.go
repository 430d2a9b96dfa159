package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SessionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "study_sessions_completed_total",
			Help: "Total number of completed study sessions",
		},
	)

	QuizResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_results_total",
			Help: "Total number of scored quiz attempts",
		},
	)

	FlashcardReviews = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashcard_reviews_total",
			Help: "Total number of flashcard reviews by outcome",
		},
		[]string{"outcome"},
	)

	BadgesEarned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_earned_total",
			Help: "Total number of badges earned",
		},
		[]string{"badge"},
	)

	SinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_failures_total",
			Help: "Total number of failed notification deliveries",
		},
		[]string{"sink"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SessionsCompleted,
			QuizResults,
			FlashcardReviews,
			BadgesEarned,
			SinkFailures,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
