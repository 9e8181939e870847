// Package sampler runs the background recording loop. The engine owns the
// recording state machine, consumes commands from a Control and, while
// recording, writes one cohort of samples per tick through the store.
package sampler

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/sysrec/internal/logger"
	"codeberg.org/mutker/sysrec/internal/metrics"
	"codeberg.org/mutker/sysrec/internal/record"
)

// DefaultInterval is the pause between two ticks.
const DefaultInterval = 10 * time.Second

// Store is the write side of the storage handle used by the engine.
type Store interface {
	EnsureSchema(ctx context.Context) error
	HostExists(ctx context.Context, hostname string) (bool, error)
	Write(ctx context.Context, rec record.Record) error
}

type Engine struct {
	store   Store
	source  metrics.Source
	control *Control
	out     io.Writer
	now     func() time.Time

	interval atomic.Int64
	state    atomic.Int32
	ready    chan struct{}
}

type Option func(*Engine)

// WithInterval sets the pause between ticks.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.SetInterval(d)
	}
}

// WithClock replaces time.Now as the source of tick timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New returns an idle engine. Samples written while recording verbosely are
// echoed to out.
func New(store Store, source metrics.Source, control *Control, out io.Writer, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		source:  source,
		control: control,
		out:     out,
		now:     time.Now,
		ready:   make(chan struct{}),
	}
	e.interval.Store(int64(DefaultInterval))

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// State returns the current recording state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Interval returns the pause between ticks.
func (e *Engine) Interval() time.Duration {
	return time.Duration(e.interval.Load())
}

// SetInterval changes the pause between ticks, starting with the next one.
// Non-positive values are ignored.
func (e *Engine) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	e.interval.Store(int64(d))
}

// Ready is closed once startup has finished and commands are being consumed.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// Run performs startup and then serves commands until ctx is cancelled.
// While idle it blocks on the command queue; while recording a timer
// schedules the next tick.
func (e *Engine) Run(ctx context.Context) error {
	e.startup(ctx)
	close(e.ready)

	var (
		timer *time.Timer
		tick  <-chan time.Time
	)
	arm := func() {
		timer = time.NewTimer(e.Interval())
		tick = timer.C
	}
	disarm := func() {
		if timer != nil {
			timer.Stop()
		}
		timer, tick = nil, nil
	}
	defer disarm()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Sampling engine stopped")
			return nil

		case cmd := <-e.control.commands():
			prev := e.State()
			state := next(cmd)
			e.state.Store(int32(state))

			logger.Info().
				Str("command", cmd.String()).
				Str("from", prev.String()).
				Str("to", state.String()).
				Msg("Recording state changed")

			switch {
			case !state.Recording():
				disarm()
			case !prev.Recording():
				e.tick(ctx)
				arm()
			}

		case <-tick:
			e.tick(ctx)
			arm()
		}
	}
}

// startup ensures the schema and records the host identity once per hostname.
// The existence check and the insert are separate statements.
func (e *Engine) startup(ctx context.Context) {
	if err := e.store.EnsureSchema(ctx); err != nil {
		logger.ErrorWithCode(err).Msg("Schema is incomplete")
	}

	id, err := e.source.SystemIdentity(ctx)
	if err != nil {
		logger.ErrorWithCode(err).Msg("Failed to read system identity")
		return
	}

	exists, err := e.store.HostExists(ctx, id.Hostname)
	if err != nil {
		logger.ErrorWithCode(err).Str("hostname", id.Hostname).Msg("Failed to look up host")
		return
	}
	if exists {
		logger.Debug().Str("hostname", id.Hostname).Msg("Host already recorded")
		return
	}

	sys := record.SysRecord{OS: id.OS, OSVersion: id.OSVersion, Hostname: id.Hostname}
	if err := e.store.Write(ctx, sys); err != nil {
		logger.ErrorWithCode(err).Str("hostname", id.Hostname).Msg("Failed to record host")
		return
	}

	logger.Info().
		Str("hostname", id.Hostname).
		Str("os", id.OS).
		Str("os_version", id.OSVersion).
		Msg("Host recorded")
}

// tick takes one snapshot and writes its cohort. A failed row is logged and
// the remaining rows are still written. It returns the number of rows written.
func (e *Engine) tick(ctx context.Context) int {
	if err := e.source.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("Metrics refresh incomplete")
	}

	cohort := Cohort(record.Timestamp(e.now()), e.source)
	verbose := e.State() == RecordingVerbose

	written := 0
	for _, rec := range cohort {
		if err := e.store.Write(ctx, rec); err != nil {
			logger.ErrorWithCode(err).Str("kind", rec.Kind().String()).Msg("Failed to write sample")
			continue
		}
		written++

		if verbose {
			fmt.Fprintln(e.out, rec)
		}
	}

	logger.Debug().Int("written", written).Int("samples", len(cohort)).Msg("Tick complete")

	return written
}

// Cohort builds the rows of one tick from the source's last refresh: one ram
// row, then one row per disk and per sensor, all stamped with ts.
func Cohort(ts string, source metrics.Source) []record.Record {
	disks := source.Disks()
	sensors := source.Sensors()
	m := source.Memory()

	cohort := make([]record.Record, 0, 1+len(disks)+len(sensors))
	cohort = append(cohort, record.RamRecord{
		Timestamp:   ts,
		TotalMemory: m.TotalMemory,
		UsedMemory:  m.UsedMemory,
		TotalSwap:   m.TotalSwap,
		UsedSwap:    m.UsedSwap,
	})

	for _, d := range disks {
		cohort = append(cohort, record.DiskRecord{
			Timestamp:      ts,
			Name:           d.Name,
			TotalBytes:     d.TotalBytes,
			AvailableBytes: d.AvailableBytes,
		})
	}

	for _, s := range sensors {
		cohort = append(cohort, record.ComponentRecord{
			Timestamp:   ts,
			Label:       s.Label,
			Temperature: s.Temperature,
		})
	}

	return cohort
}
