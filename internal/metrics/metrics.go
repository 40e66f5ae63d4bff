// Package metrics holds the Prometheus collectors for the widget panel.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "widgets").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "widgets",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is the set of collectors.
type Metrics struct {
	fetchesTotal        *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	recordsIngested     *prometheus.CounterVec
	widgets             *prometheus.GaugeVec
	filterRecomputes    prometheus.Counter
	instantiations      *prometheus.CounterVec
	configParseErrors   prometheus.Counter
	sourceEdits         *prometheus.CounterVec
	commandsSent        *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers the collectors.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}
	histogram := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, labels)
	}

	return &Metrics{
		fetchesTotal:    counter("fetches_total", "Catalog fetches by origin and status", "origin", "status"),
		fetchDuration:   histogram("fetch_duration_seconds", "Catalog fetch duration in seconds", "origin"),
		recordsIngested: counter("records_ingested_total", "Widget records ingested by origin", "origin"),
		widgets: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "widgets",
			Help:        "Widgets currently held by the registry",
			ConstLabels: config.ConstLabels,
		}, []string{"origin"}),
		filterRecomputes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "filter_recomputations_total",
			Help:        "Remote filter results computed (cache misses)",
			ConstLabels: config.ConstLabels,
		}),
		instantiations: counter("instantiations_total", "Instantiation attempts by outcome", "outcome"),
		configParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "configuration_parse_errors_total",
			Help:        "Widget configurations that failed to parse",
			ConstLabels: config.ConstLabels,
		}),
		sourceEdits:         counter("source_edits_total", "Widget source edits by origin and outcome", "origin", "outcome"),
		commandsSent:        counter("commands_sent_total", "Executor commands by command and status", "command", "status"),
		httpRequests:        counter("http_requests_total", "API requests by route and status", "route", "status"),
		httpRequestDuration: histogram("http_request_duration_seconds", "API request duration in seconds", "route"),
	}
}

// Instantiation outcomes.
const (
	OutcomeDispatched = "dispatched"
	OutcomeFailed     = "failed"
	OutcomeEmpty      = "empty"
	OutcomeInvalid    = "invalid_configuration"
	OutcomeCancelled  = "cancelled"
	OutcomeSaved      = "saved"
	OutcomeUnchanged  = "unchanged"
)

// RecordFetch records a catalog fetch.
func (m *Metrics) RecordFetch(origin string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.fetchesTotal.WithLabelValues(origin, status).Inc()
	m.fetchDuration.WithLabelValues(origin).Observe(d.Seconds())
}

// RecordIngested records n ingested records and the registry's new total.
func (m *Metrics) RecordIngested(origin string, n, total int) {
	if m == nil {
		return
	}
	m.recordsIngested.WithLabelValues(origin).Add(float64(n))
	m.widgets.WithLabelValues(origin).Set(float64(total))
}

// RecordFilterRecompute records a filter cache miss.
func (m *Metrics) RecordFilterRecompute() {
	if m == nil {
		return
	}
	m.filterRecomputes.Inc()
}

// RecordInstantiation records an instantiation attempt's outcome.
func (m *Metrics) RecordInstantiation(outcome string) {
	if m == nil {
		return
	}
	m.instantiations.WithLabelValues(outcome).Inc()
	if outcome == OutcomeInvalid {
		m.configParseErrors.Inc()
	}
}

// RecordSourceEdit records a source edit's outcome.
func (m *Metrics) RecordSourceEdit(origin, outcome string) {
	if m == nil {
		return
	}
	m.sourceEdits.WithLabelValues(origin, outcome).Inc()
}

// RecordCommand records a command sent to the executor.
func (m *Metrics) RecordCommand(command string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.commandsSent.WithLabelValues(command, status).Inc()
}

// RecordHTTPRequest records an API request.
func (m *Metrics) RecordHTTPRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, statusClass(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
