package scheduler

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"TrendBands/internal/assembler"
	"TrendBands/internal/collector"
	"TrendBands/internal/model"
	"TrendBands/internal/notifier"
	"TrendBands/internal/recorder"
	"TrendBands/internal/storage"
)

// Notifier delivers reports. TelegramNotifier implements it.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// driftWarn is the relative parameter change between consecutive fits of a
// band above which a warning is logged.
const driftWarn = 0.05

// Scheduler runs the refresh pipeline on a cron schedule and on demand.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Assembler *assembler.Assembler
	Notifier  Notifier // nil disables reports
	Recorder  recorder.Recorder
	CSVPath   string
	Symbol    string
	Ctx       context.Context

	mu   sync.Mutex
	last *assembler.Series
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, asm *assembler.Assembler, n Notifier, rec recorder.Recorder, csvPath string) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Assembler: asm,
		Notifier:  n,
		Recorder:  rec,
		CSVPath:   csvPath,
		Symbol:    col.Symbol,
		Ctx:       ctx,
	}
}

// RegisterAll registers the refresh task.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logrus.WithField("component", "scheduler").Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logrus.WithField("component", "scheduler").Info("scheduler stopped")
}

// RunNow executes the refresh task immediately.
func (s *Scheduler) RunNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	log := logrus.WithField("component", "scheduler")
	log.Info("running refresh task")
	series, err := s.Refresh(s.Ctx)
	if err != nil {
		log.WithError(err).Error("refresh failed")
		s.trySend(notifier.FormatFailure(err))
		return
	}
	s.trySend(notifier.FormatBandReport(s.Symbol, s.snapshots(series)))
}

// Refresh fetches closes, merges them with the stored table, refits the
// bands, saves the table and records the fits. Only one refresh runs at a
// time.
func (s *Scheduler) Refresh(ctx context.Context) (*assembler.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	fetched, err := s.Collector.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	table, err := storage.Load(s.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("load table: %w", err)
	}
	if table.Skipped > 0 {
		logrus.WithFields(logrus.Fields{"component": "scheduler", "skipped": table.Skipped}).
			Warn("stored table has unreadable rows")
	}

	merged := assembler.MergeCloses(table.PriceRows(s.Assembler.Currencies), fetched)
	stored := table.Index()
	series := s.Assembler.Assemble(merged, stored)
	series.Carry(table.Columns, stored)

	if err := storage.Save(s.CSVPath, series.Columns, series.Rows); err != nil {
		return nil, fmt.Errorf("save table: %w", err)
	}
	s.record(series)
	s.last = series

	logrus.WithFields(logrus.Fields{
		"component": "scheduler",
		"rows":      len(series.Rows),
		"elapsed":   time.Since(start).Round(time.Millisecond),
	}).Info("refresh complete")
	return series, nil
}

// Last returns the series of the most recent successful refresh, or nil.
func (s *Scheduler) Last() *assembler.Series {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) record(series *assembler.Series) {
	for _, cur := range s.Assembler.Currencies {
		cb, ok := series.Bands[cur]
		if !ok {
			continue
		}
		var lastDate time.Time
		snap, hasSnap := series.Latest(cur)
		if hasSnap {
			lastDate = snap.Date
		}
		for _, band := range cb.Bands {
			evt := &recorder.FitEvent{
				Currency:  cur,
				Model:     band.Curve.Model(),
				Tau:       band.Tau,
				Params:    band.Curve.Params(),
				Samples:   cb.Samples,
				Crossings: cb.Crossings,
				LastDate:  lastDate,
			}
			s.checkDrift(evt)
			if err := s.Recorder.RecordFit(evt); err != nil {
				logrus.WithError(err).WithField("component", "scheduler").Error("record fit")
			}
		}
		if hasSnap {
			if err := s.Recorder.RecordSnapshot(&snap); err != nil {
				logrus.WithError(err).WithField("component", "scheduler").Error("record snapshot")
			}
		}
	}
}

// checkDrift compares evt with the previous recorded fit of the same band.
func (s *Scheduler) checkDrift(evt *recorder.FitEvent) {
	prev, ok, err := s.Recorder.LatestFit(evt.Currency, evt.Tau)
	if err != nil || !ok || prev.Model != evt.Model {
		return
	}
	drift := ParamDrift(prev.Params, evt.Params)
	log := logrus.WithFields(logrus.Fields{
		"component": "scheduler",
		"currency":  evt.Currency,
		"model":     evt.Model,
		"tau":       evt.Tau,
		"drift":     drift,
	})
	if drift > driftWarn {
		log.Warn("band parameters moved since last fit")
	} else {
		log.Debug("band parameters stable")
	}
}

// ParamDrift returns the largest relative change between two parameter
// vectors. Non-finite or mismatched inputs yield 0.
func ParamDrift(prev, cur []float64) float64 {
	if len(prev) != len(cur) {
		return 0
	}
	var worst float64
	for i := range prev {
		p, c := prev[i], cur[i]
		if math.IsNaN(p) || math.IsNaN(c) || math.IsInf(p, 0) || math.IsInf(c, 0) {
			continue
		}
		scale := math.Max(math.Abs(p), 1e-12)
		if d := math.Abs(c-p) / scale; d > worst {
			worst = d
		}
	}
	return worst
}

func (s *Scheduler) snapshots(series *assembler.Series) []model.BandSnapshot {
	if series == nil {
		return nil
	}
	var out []model.BandSnapshot
	for _, cur := range s.Assembler.Currencies {
		if snap, ok := series.Latest(cur); ok {
			out = append(out, snap)
		}
	}
	return out
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch commandName(command) {
	case "/bands":
		last := s.Last()
		if last == nil {
			return "no bands yet, send /refresh"
		}
		return notifier.FormatBandReport(s.Symbol, s.snapshots(last))
	case "/refresh":
		series, err := s.Refresh(s.Ctx)
		if err != nil {
			return notifier.FormatFailure(err)
		}
		return notifier.FormatBandReport(s.Symbol, s.snapshots(series))
	default:
		return notifier.FormatHelp()
	}
}

// commandName returns the first word of text without the "@botname" suffix
// Telegram appends in group chats.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name := fields[0]
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		logrus.WithError(err).WithField("component", "scheduler").Error("send notification")
	}
}
