package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry methods are nil-safe so components can run without metrics.
type Registry struct {
	reg *prometheus.Registry

	PurchasesCreated  prometheus.Counter
	PurchasesRejected *prometheus.CounterVec
	Callbacks         *prometheus.CounterVec
	Deliveries        *prometheus.CounterVec
	RenderSec         prometheus.Histogram
	NotificationsSent prometheus.Counter
	NotificationsLost prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	created := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_purchases_created_total"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "orders_purchases_rejected_total"}, []string{"reason"})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "orders_payment_callbacks_total"}, []string{"outcome", "result"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "orders_deliveries_total"}, []string{"policy", "result"})
	render := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orders_render_seconds",
		Buckets: prometheus.DefBuckets,
	})
	sent := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_notifications_sent_total"})
	lost := prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_notifications_failed_total"})

	r.MustRegister(created, rejected, callbacks, deliveries, render, sent, lost)
	return &Registry{
		reg:               r,
		PurchasesCreated:  created,
		PurchasesRejected: rejected,
		Callbacks:         callbacks,
		Deliveries:        deliveries,
		RenderSec:         render,
		NotificationsSent: sent,
		NotificationsLost: lost,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

func (r *Registry) PurchaseCreated() {
	if r != nil {
		r.PurchasesCreated.Inc()
	}
}

func (r *Registry) PurchaseRejected(reason string) {
	if r != nil {
		r.PurchasesRejected.WithLabelValues(reason).Inc()
	}
}

func (r *Registry) Callback(outcome, result string) {
	if r != nil {
		r.Callbacks.WithLabelValues(outcome, result).Inc()
	}
}

func (r *Registry) Delivery(policy, result string) {
	if r != nil {
		r.Deliveries.WithLabelValues(policy, result).Inc()
	}
}

func (r *Registry) Rendered(d time.Duration) {
	if r != nil {
		r.RenderSec.Observe(d.Seconds())
	}
}

func (r *Registry) Notifications(sent, failed int) {
	if r != nil {
		r.NotificationsSent.Add(float64(sent))
		r.NotificationsLost.Add(float64(failed))
	}
}
