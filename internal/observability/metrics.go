package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxloop_active_sessions",
		Help: "Number of active conversation sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxloop_sessions_total",
		Help: "Total number of conversation sessions",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxloop_session_duration_seconds",
		Help:    "Duration of conversation sessions in seconds",
		Buckets: []float64{10, 30, 60, 120, 300, 600, 1800},
	})

	// Turn metrics
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxloop_turns_total",
		Help: "Total conversation turns by speaker",
	}, []string{"speaker"})

	listenTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxloop_listen_timeouts_total",
		Help: "Times the session waited out the listen window with no speech",
	})

	// Segmentation metrics
	segmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxloop_segments_total",
		Help: "Speech segments by outcome",
	}, []string{"outcome"}) // outcome: "emitted" or "discarded"

	segmentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxloop_segment_duration_seconds",
		Help:    "Duration of emitted speech segments in seconds",
		Buckets: []float64{1, 2, 5, 10, 15, 20, 30},
	})

	// STT metrics
	sttRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxloop_stt_requests_total",
		Help: "Total number of STT requests",
	}, []string{"status"})

	sttLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxloop_stt_latency_seconds",
		Help:    "STT processing latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Responder metrics
	responderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxloop_responder_requests_total",
		Help: "Total number of response generator requests",
	}, []string{"status"})

	responderLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxloop_responder_latency_seconds",
		Help:    "Response generator latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// TTS metrics
	ttsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxloop_tts_requests_total",
		Help: "Total number of TTS requests",
	}, []string{"status"})

	ttsLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxloop_tts_latency_seconds",
		Help:    "TTS synthesis latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxloop_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voxloop_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxloop_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// Metrics tracks per-session timings and feeds the process-wide collectors
type Metrics struct {
	sessionID          string
	startTime          time.Time
	sttStartTime       time.Time
	responderStartTime time.Time
	ttsStartTime       time.Time
	mu                 sync.Mutex
}

// NewSessionMetrics creates a metrics tracker for one session
func NewSessionMetrics(sessionID string) *Metrics {
	return &Metrics{
		sessionID: sessionID,
		startTime: time.Now(),
	}
}

// RecordSessionStart records the start of a session
func (m *Metrics) RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a session
func (m *Metrics) RecordSessionEnd() {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordTurn records one appended conversation turn
func (m *Metrics) RecordTurn(speaker string) {
	turnsTotal.WithLabelValues(speaker).Inc()
}

// RecordListenTimeout records a listen-window expiry with no speech
func (m *Metrics) RecordListenTimeout() {
	listenTimeouts.Inc()
}

// RecordSegmentEmitted records a finalized speech segment and its duration
func (m *Metrics) RecordSegmentEmitted(seconds float64) {
	segmentsTotal.WithLabelValues("emitted").Inc()
	segmentDuration.Observe(seconds)
}

// RecordSegmentDiscarded records a segment dropped as too short or empty
func (m *Metrics) RecordSegmentDiscarded() {
	segmentsTotal.WithLabelValues("discarded").Inc()
}

// RecordSTTStart records the start of STT processing
func (m *Metrics) RecordSTTStart() {
	m.mu.Lock()
	m.sttStartTime = time.Now()
	m.mu.Unlock()
}

// RecordSTTEnd records the end of STT processing
func (m *Metrics) RecordSTTEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sttStartTime.IsZero() {
		sttLatency.Observe(time.Since(m.sttStartTime).Seconds())
	}
	sttRequests.WithLabelValues(statusLabel(success)).Inc()
}

// RecordResponderStart records the start of response generation
func (m *Metrics) RecordResponderStart() {
	m.mu.Lock()
	m.responderStartTime = time.Now()
	m.mu.Unlock()
}

// RecordResponderEnd records the end of response generation
func (m *Metrics) RecordResponderEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.responderStartTime.IsZero() {
		responderLatency.Observe(time.Since(m.responderStartTime).Seconds())
	}
	responderRequests.WithLabelValues(statusLabel(success)).Inc()
}

// RecordTTSStart records the start of speech synthesis
func (m *Metrics) RecordTTSStart() {
	m.mu.Lock()
	m.ttsStartTime = time.Now()
	m.mu.Unlock()
}

// RecordTTSEnd records the end of speech synthesis
func (m *Metrics) RecordTTSEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ttsStartTime.IsZero() {
		ttsLatency.Observe(time.Since(m.ttsStartTime).Seconds())
	}
	ttsRequests.WithLabelValues(statusLabel(success)).Inc()
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
