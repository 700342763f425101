package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "brainnova"

// Metrics groups the collectors recorded while resolving scores. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	resolutions      *prometheus.CounterVec
	resolveDuration  *prometheus.HistogramVec
	fallbacks        *prometheus.CounterVec
	droppedIndicator prometheus.Counter
	noData           prometheus.Counter
	httpRequests     *prometheus.CounterVec
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_resolutions_total",
			Help:      "Score resolutions by the path that produced the result.",
		}, []string{"source"}),
		resolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_resolution_duration_seconds",
			Help:      "Time spent producing a score, by source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_fallbacks_total",
			Help:      "Transitions from the remote scorer to local recomputation, by reason.",
		}, []string{"reason"}),
		droppedIndicator: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_dropped_indicators_total",
			Help:      "Indicators excluded because they do not resolve to a subdimension and dimension.",
		}),
		noData: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_no_data_total",
			Help:      "Local computations that found no usable observations.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		m.resolutions,
		m.resolveDuration,
		m.fallbacks,
		m.droppedIndicator,
		m.noData,
		m.httpRequests,
	)
	return m
}

func (m *Metrics) ObserveResolution(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(source).Inc()
	m.resolveDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) Fallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) DroppedIndicators(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedIndicator.Add(float64(n))
}

func (m *Metrics) NoData() {
	if m == nil {
		return
	}
	m.noData.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts requests to route by response status.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if m != nil {
			m.httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
	})
}
