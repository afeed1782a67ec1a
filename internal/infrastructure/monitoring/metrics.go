package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status_code"},
	)
)

var (
	ListingsSoldTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listings_sold_total",
			Help: "Total number of listings marked sold",
		},
	)

	CheckoutBeginTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_begin_total",
			Help: "Total number of started checkout attempts",
		},
	)

	CheckoutConfirmTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_confirm_total",
			Help: "Total number of checkout confirmations by result",
		},
		[]string{"result"},
	)

	CheckoutPartialTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_partial_total",
			Help: "Total number of confirmations that lost listings to a concurrent buyer",
		},
	)

	PaymentIntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Total number of payment intents created by result",
		},
		[]string{"result"},
	)

	ChatsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chats_created_total",
			Help: "Total number of chats created",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of dispatched notifications by result",
		},
		[]string{"result"},
	)
)

var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

var (
	RedisCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_command_duration_seconds",
			Help:    "Duration of Redis commands in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"command"},
	)
)

func TimeDBQuery(queryType, table string) func() {
	start := time.Now()
	return func() {
		DBQueryDuration.WithLabelValues(queryType, table).Observe(time.Since(start).Seconds())
	}
}

func RecordListingSold(listingID string) {
	ListingsSoldTotal.Inc()
}

func RecordCheckoutBegin() {
	CheckoutBeginTotal.Inc()
}

func RecordCheckoutConfirm(result string) {
	CheckoutConfirmTotal.WithLabelValues(result).Inc()
}

func RecordCheckoutPartial() {
	CheckoutPartialTotal.Inc()
}

func RecordPaymentIntent(result string) {
	PaymentIntentsTotal.WithLabelValues(result).Inc()
}

func RecordChatCreated() {
	ChatsCreatedTotal.Inc()
}

func RecordNotification(result string) {
	NotificationsTotal.WithLabelValues(result).Inc()
}
