// Package metrics prometheus метрики сервиса. Все методы безопасно вызывать на nil *Metrics:
// в тестах и утилитах метрики не собираются.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "moviestore"

type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests  *prometheus.CounterVec
	httpLatencyMS *prometheus.HistogramVec

	txRetries *prometheus.CounterVec
	txAborts  *prometheus.CounterVec

	ordersSettled  prometheus.Counter
	settledAmount  prometheus.Counter
	stockRejected  prometheus.Counter
	reconciledRows *prometheus.CounterVec
}

// New создает метрики и регистрирует их в registry. Для глобального реестра передается
// prometheus.DefaultRegisterer вместе с prometheus.DefaultGatherer.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		httpLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		txRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "retries_total",
			Help:      "Transactions restarted after a deadlock or serialization failure.",
		}, []string{"operation"}),
		txAborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "aborts_total",
			Help:      "Transactions given up after exhausting retry attempts.",
		}, []string{"operation"}),
		ordersSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "settled_total",
			Help:      "Orders transitioned to paid.",
		}),
		settledAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "settled_amount_total",
			Help:      "Sum of settled order totals.",
		}),
		stockRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "out_of_stock_total",
			Help:      "Cart mutations rejected because stock would become negative.",
		}),
		reconciledRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "rows_total",
			Help:      "Aggregates recomputed by the reconciler.",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(
		m.httpRequests,
		m.httpLatencyMS,
		m.txRetries,
		m.txAborts,
		m.ordersSettled,
		m.settledAmount,
		m.stockRejected,
		m.reconciledRows,
	)
	return m
}

func (m *Metrics) TxRetried(operation string) {
	if m == nil {
		return
	}
	m.txRetries.WithLabelValues(operation).Inc()
}

func (m *Metrics) TxAborted(operation string) {
	if m == nil {
		return
	}
	m.txAborts.WithLabelValues(operation).Inc()
}

func (m *Metrics) OrderSettled(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.ordersSettled.Inc()
	m.settledAmount.Add(total.InexactFloat64())
}

func (m *Metrics) OutOfStock() {
	if m == nil {
		return
	}
	m.stockRejected.Inc()
}

func (m *Metrics) Reconciled(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reconciledRows.WithLabelValues(kind, result).Inc()
}

// Middleware считает запросы и время их обработки по шаблону маршрута.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		m.httpRequests.WithLabelValues(handler, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpLatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
