package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the payment flows
var (
	OrdersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edupay_orders_created_total",
			Help: "Total number of payment orders created",
		},
		[]string{"mode"},
	)

	WebhookCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edupay_webhook_callbacks_total",
			Help: "Total number of payment provider callbacks by result",
		},
		[]string{"result"},
	)

	RenewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edupay_renewals_total",
			Help: "Total number of subscription renewal attempts by outcome",
		},
		[]string{"outcome"},
	)

	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edupay_gateway_request_duration_seconds",
			Help:    "Duration of payment gateway requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "result"},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry. It is
// safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(OrdersCreatedTotal)
		prometheus.MustRegister(WebhookCallbacksTotal)
		prometheus.MustRegister(RenewalsTotal)
		prometheus.MustRegister(GatewayRequestDuration)
	})
}

func ObserveGatewayRequest(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	GatewayRequestDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}

func IncOrdersCreated(mode string) {
	OrdersCreatedTotal.WithLabelValues(mode).Inc()
}

func IncWebhookCallback(result string) {
	WebhookCallbacksTotal.WithLabelValues(result).Inc()
}

func IncRenewal(outcome string) {
	RenewalsTotal.WithLabelValues(outcome).Inc()
}
