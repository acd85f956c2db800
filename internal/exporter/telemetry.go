package exporter

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Telemetry exposes the agent's own health as Prometheus metrics.
type Telemetry struct {
	registry     *prometheus.Registry
	passDuration prometheus.Gauge
	passRecords  *prometheus.GaugeVec
	sendsTotal   prometheus.Counter
	sendFailures prometheus.Counter
}

// NewTelemetry initializes the self-metrics registry.
func NewTelemetry(nodeName string) *Telemetry {
	reg := prometheus.NewRegistry()

	passDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "vitakube_pass_duration_seconds",
		Help:        "Duration of the last collection pass",
		ConstLabels: prometheus.Labels{"node": nodeName},
	})
	passRecords := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "vitakube_pass_records",
		Help:        "Records produced by the last collection pass",
		ConstLabels: prometheus.Labels{"node": nodeName},
	}, []string{"type"})
	sendsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "vitakube_batch_sends_total",
		Help:        "Batch deliveries attempted against the consumer",
		ConstLabels: prometheus.Labels{"node": nodeName},
	})
	sendFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "vitakube_batch_send_failures_total",
		Help:        "Batch deliveries that failed",
		ConstLabels: prometheus.Labels{"node": nodeName},
	})

	reg.MustRegister(passDuration, passRecords, sendsTotal, sendFailures)

	return &Telemetry{
		registry:     reg,
		passDuration: passDuration,
		passRecords:  passRecords,
		sendsTotal:   sendsTotal,
		sendFailures: sendFailures,
	}
}

// Handler returns the HTTP handler for /metrics.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// ObservePass records the outcome of one collection pass.
func (t *Telemetry) ObservePass(duration time.Duration, counts map[string]int) {
	t.passDuration.Set(duration.Seconds())
	t.passRecords.Reset()
	for typ, count := range counts {
		t.passRecords.WithLabelValues(typ).Set(float64(count))
	}
}

// RecordSend implements forwarder.SendObserver.
func (t *Telemetry) RecordSend(err error) {
	t.sendsTotal.Inc()
	if err != nil {
		t.sendFailures.Inc()
	}
}
