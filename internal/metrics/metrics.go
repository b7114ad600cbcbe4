package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	CyclesRun              int64
	SourcesFetched         int64
	SourcesFailed          int64
	HeadlinesMatched       int64
	RecordsWritten         int64
	SuccessfulTranslations int64
	FailedTranslations     int64
	NotificationsSent      int64

	// Timings
	LastCycleDuration    time.Duration
	AverageCycleDuration time.Duration
	TotalCycleDuration   time.Duration

	// Status
	State         string
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true, State: "starting"}
}

func (m *Metrics) IncrementSourcesFetched() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourcesFetched++
}

func (m *Metrics) IncrementSourcesFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourcesFailed++
}

func (m *Metrics) AddHeadlinesMatched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HeadlinesMatched += int64(n)
}

func (m *Metrics) AddRecordsWritten(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordsWritten += int64(n)
}

func (m *Metrics) IncrementSuccessfulTranslations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SuccessfulTranslations++
}

func (m *Metrics) IncrementFailedTranslations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailedTranslations++
}

func (m *Metrics) IncrementNotificationsSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotificationsSent++
}

// RecordCycle counts a finished cycle and its duration, marking the process healthy.
func (m *Metrics) RecordCycle(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CyclesRun++
	m.LastCycleDuration = duration
	m.TotalCycleDuration += duration
	m.AverageCycleDuration = m.TotalCycleDuration / time.Duration(m.CyclesRun)
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetState(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.State = state
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"cycles_run":                m.CyclesRun,
		"sources_fetched":           m.SourcesFetched,
		"sources_failed":            m.SourcesFailed,
		"headlines_matched":         m.HeadlinesMatched,
		"records_written":           m.RecordsWritten,
		"successful_translations":   m.SuccessfulTranslations,
		"failed_translations":       m.FailedTranslations,
		"notifications_sent":        m.NotificationsSent,
		"last_cycle_duration_ms":    m.LastCycleDuration.Milliseconds(),
		"average_cycle_duration_ms": m.AverageCycleDuration.Milliseconds(),
		"state":                     m.State,
		"last_run_time":             formatTime(m.LastRunTime),
		"last_error_time":           formatTime(m.LastErrorTime),
		"last_error":                m.LastError,
		"is_healthy":                m.IsHealthy,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
