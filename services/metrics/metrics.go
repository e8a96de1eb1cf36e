package metricsvc

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/karo/core/payment"
)

const metricsNamespace = "karo"

// Collector is a prometheus.Collector of the scanning and payment activity.
type Collector struct {
	scanSessions    prometheus.GaugeFunc
	decodes         *prometheus.CounterVec
	paymentOutcomes *prometheus.CounterVec
	logins          *prometheus.CounterVec
}

// NewCollector returns a new Collector. sessions reports the open scan sessions.
func NewCollector(sessions func() int) *Collector {
	return &Collector{
		scanSessions: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "scan_sessions",
				Help:      "The number of open scan sessions.",
			},
			func() float64 { return float64(sessions()) },
		),
		decodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "scan_decodes_total",
				Help:      "The number of decoded QR payloads, by result.",
			}, []string{"result"},
		),
		paymentOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "payments_total",
				Help:      "The number of payment attempts, by category and status.",
			}, []string{"category", "status"},
		),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "logins_total",
				Help:      "The number of sign in attempts, by result.",
			}, []string{"result"},
		),
	}
}

// Decoded counts a decode: accepted, ignored, not_found or error.
func (c *Collector) Decoded(result string) {
	c.decodes.WithLabelValues(result).Inc()
}

func (c *Collector) Paid(cat payment.Category, status payment.Status) {
	c.paymentOutcomes.WithLabelValues(string(cat), string(status)).Inc()
}

// LoggedIn counts a sign in attempt: success or failure.
func (c *Collector) LoggedIn(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.scanSessions.Describe(ch)
	c.decodes.Describe(ch)
	c.paymentOutcomes.Describe(ch)
	c.logins.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.scanSessions.Collect(ch)
	c.decodes.Collect(ch)
	c.paymentOutcomes.Collect(ch)
	c.logins.Collect(ch)
}
