package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, reg)

	m.TxRetried("mark_paid")
	m.TxRetried("mark_paid")
	m.TxAborted("clear_cart")
	m.OrderSettled(decimal.RequireFromString("12.50"))
	m.Reconciled("cart", nil)
	m.Reconciled("cart", errors.New("boom"))

	assert.InDelta(t, 2, testutil.ToFloat64(m.txRetries.WithLabelValues("mark_paid")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.txAborts.WithLabelValues("clear_cart")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ordersSettled), 0)
	assert.InDelta(t, 12.5, testutil.ToFloat64(m.settledAmount), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.reconciledRows.WithLabelValues("cart", "error")), 0)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TxRetried("op")
		m.TxAborted("op")
		m.OrderSettled(decimal.NewFromInt(1))
		m.OutOfStock()
		m.Reconciled("movie", nil)
		_ = m.Handler()
	})
}
