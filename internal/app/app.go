// Package app runs the poll loop: fetch, filter, translate, record, remember.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/deusflow/headwatch/internal/config"
	"github.com/deusflow/headwatch/internal/fetcher"
	"github.com/deusflow/headwatch/internal/logger"
	"github.com/deusflow/headwatch/internal/matcher"
	"github.com/deusflow/headwatch/internal/metrics"
	"github.com/deusflow/headwatch/internal/notify"
	"github.com/deusflow/headwatch/internal/retry"
	"github.com/deusflow/headwatch/internal/sink"
	"github.com/deusflow/headwatch/internal/storage"
	"github.com/mattn/go-runewidth"
	"github.com/robfig/cron/v3"
)

const previewWidth = 72

type State int32

const (
	StateRunning State = iota
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type HeadlineFetcher interface {
	FetchAll(ctx context.Context, sources []config.Source, keywords []string, seen matcher.SeenSet) ([]fetcher.Headline, []string)
}

type RecordSink interface {
	AppendRecords(ctx context.Context, headlines []fetcher.Headline) ([]sink.Record, error)
	Close() error
}

// Deps are the collaborators of a Monitor. Notifier and Metrics are optional.
type Deps struct {
	Fetcher  HeadlineFetcher
	Store    storage.SeenStore
	Sink     RecordSink
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
}

// CycleResult summarizes one pass over all sources.
type CycleResult struct {
	Started  time.Time
	Duration time.Duration
	Records  []sink.Record
}

// Monitor owns the in-memory seen-set and drives the cycle.
type Monitor struct {
	cfg      *config.Config
	fetcher  HeadlineFetcher
	store    storage.SeenStore
	sink     RecordSink
	notifier notify.Notifier
	metrics  *metrics.Metrics
	schedule cron.Schedule
	persist  retry.RetryConfig
	now      func() time.Time

	seen   matcher.SeenSet
	loaded bool
	state  atomic.Int32
}

func New(cfg *config.Config, deps Deps) (*Monitor, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Fetcher == nil || deps.Store == nil || deps.Sink == nil {
		return nil, errors.New("fetcher, store and sink are required")
	}

	schedule, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}

	m := deps.Metrics
	if m == nil {
		m = metrics.Global
	}

	persist := retry.DefaultConfig()
	persist.MaxAttempts = cfg.PersistRetryAttempts

	return &Monitor{
		cfg:      cfg,
		fetcher:  deps.Fetcher,
		store:    deps.Store,
		sink:     deps.Sink,
		notifier: deps.Notifier,
		metrics:  m,
		schedule: schedule,
		persist:  persist,
		now:      time.Now,
		seen:     matcher.NewSeenSet(),
	}, nil
}

func (m *Monitor) State() State {
	return State(m.state.Load())
}

func (m *Monitor) setState(s State) {
	m.state.Store(int32(s))
	m.metrics.SetState(s.String())
}

// SeenCount is the size of the in-memory seen-set.
func (m *Monitor) SeenCount() int {
	return m.seen.Len()
}

// LoadSeen reads the persisted seen-set. It runs once; later calls are no-ops.
func (m *Monitor) LoadSeen(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	entries, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load seen headlines: %w", err)
	}
	m.seen.Add(entries...)
	m.loaded = true
	logger.Info("seen headlines loaded", "count", m.seen.Len())
	return nil
}

// Run loads the seen-set and polls until ctx is cancelled or persistence
// fails. The output log is always closed on return.
func (m *Monitor) Run(ctx context.Context) (err error) {
	defer func() {
		m.setState(StateStopping)
		if cerr := m.sink.Close(); cerr != nil {
			logger.Error("failed to close output log", "error", cerr)
			if err == nil {
				err = cerr
			}
		}
		logger.Info("headwatch stopped")
	}()

	if err := m.LoadSeen(ctx); err != nil {
		return err
	}
	m.setState(StateRunning)
	logger.Info("headwatch running", "sources", len(m.cfg.Sources), "keywords", m.cfg.Keywords)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := m.RunCycle(ctx); err != nil {
			m.metrics.SetError(err.Error())
			return err
		}

		if !m.sleepUntil(ctx, m.schedule.Next(m.now())) {
			return nil
		}
	}
}

// RunOnce loads the seen-set if needed and runs a single cycle. It does not close the log.
func (m *Monitor) RunOnce(ctx context.Context) (CycleResult, error) {
	if err := m.LoadSeen(ctx); err != nil {
		return CycleResult{}, err
	}
	m.setState(StateRunning)
	return m.RunCycle(ctx)
}

// RunCycle fetches all sources and records what is new. A cancelled ctx cuts
// translation short, with the sentinel in place of the text, but the output
// log and the seen-set are still written so they stay in step.
func (m *Monitor) RunCycle(ctx context.Context) (CycleResult, error) {
	res := CycleResult{Started: m.now()}

	matched, newTexts := m.fetcher.FetchAll(ctx, m.cfg.Sources, m.cfg.Keywords, m.seen)
	if len(matched) == 0 {
		logger.Info("no new headlines")
		res.Duration = m.now().Sub(res.Started)
		m.metrics.RecordCycle(res.Duration)
		return res, nil
	}

	logger.Info("new headlines found", "count", len(matched))

	records, err := m.sink.AppendRecords(ctx, matched)
	if err != nil {
		return res, fmt.Errorf("failed to write output log: %w", err)
	}
	res.Records = records
	m.metrics.AddRecordsWritten(len(records))

	persistCtx := context.WithoutCancel(ctx)
	err = retry.WithRetry(persistCtx, m.persist, func() error {
		return m.store.Append(persistCtx, newTexts)
	})
	if err != nil {
		return res, fmt.Errorf("failed to persist seen headlines: %w", err)
	}
	m.seen.Add(newTexts...)

	for _, r := range records {
		logger.Info("new headline",
			"title", runewidth.Truncate(r.Original, previewWidth, "…"),
			"translation", r.Translated,
			"link", r.Link,
			"source", r.Source)
	}

	if m.notifier != nil && ctx.Err() == nil {
		if err := m.notifier.Notify(ctx, records); err != nil {
			logger.Warn("notification failed", "error", err)
		}
	}

	res.Duration = m.now().Sub(res.Started)
	m.metrics.RecordCycle(res.Duration)
	return res, nil
}

func (m *Monitor) sleepUntil(ctx context.Context, next time.Time) bool {
	d := next.Sub(m.now())
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
