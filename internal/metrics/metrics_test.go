package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.PurchaseCreated()
		r.Callback("success", "applied")
		r.Rendered(time.Second)
		r.Notifications(3, 1)
	})
}

func TestCountersExposed(t *testing.T) {
	r := NewRegistry()
	r.PurchaseCreated()
	r.PurchaseRejected("duplicate_order")
	r.Callback("failure", "conflict")
	r.Notifications(4, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.PurchasesCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Callbacks.WithLabelValues("failure", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.NotificationsLost))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "orders_purchases_rejected_total")
}
