package core

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jobtrail/jobtrail/pkg/metrics"
)

type Metrics struct {
	apiResponseTime   *prometheus.HistogramVec
	apiErrorCounter   *prometheus.CounterVec
	chatStreamTime    *prometheus.HistogramVec
	chatStreamError   *prometheus.CounterVec
	activeConnections *prometheus.GaugeVec
}

func NewMetrics(ns, system string) *Metrics {
	metrics.SetupMetricsManager(ns, system, prometheus.DefaultRegisterer.(*prometheus.Registry))

	m := &Metrics{
		apiResponseTime:   metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:   metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),
		chatStreamTime:    metrics.NewHistogramVec("chat_stream_time", nil),
		chatStreamError:   metrics.NewCounterVec("chat_stream_error", []string{"type"}),
		activeConnections: metrics.NewGaugeVec("active_connections", []string{"kind"}),
	}

	return m
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

func (m *Metrics) ChatStreamTimer() *prometheus.Timer {
	return prometheus.NewTimer(m.chatStreamTime.WithLabelValues())
}

func (m *Metrics) ChatStreamErrorInc(kind string) {
	m.chatStreamError.WithLabelValues(kind).Inc()
}

func (m *Metrics) ConnectionsInc(kind string) {
	m.activeConnections.WithLabelValues(kind).Inc()
}

func (m *Metrics) ConnectionsDec(kind string) {
	m.activeConnections.WithLabelValues(kind).Dec()
}
