package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Auditor runs the ledger audit
type Auditor interface {
	Verify(ctx context.Context) *ledger.AuditReport
}

// FindingsGauge records the finding count of the latest audit
type FindingsGauge interface {
	SetAuditFindings(n int)
}

// AuditSink keeps audit reports
type AuditSink interface {
	SaveAudit(ctx context.Context, report *ledger.AuditReport) error
}

// AuditScheduler runs the ledger audit on a cron schedule. Runs never
// overlap: a tick that arrives while an audit is running is skipped.
type AuditScheduler struct {
	cfg     config.AuditConfig
	auditor Auditor
	gauge   FindingsGauge
	sink    AuditSink
	logger  *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	last    *ledger.AuditReport
	running bool
}

// AuditSchedulerOption configures an AuditScheduler
type AuditSchedulerOption func(*AuditScheduler)

// WithFindingsGauge reports the finding count after each run
func WithFindingsGauge(g FindingsGauge) AuditSchedulerOption {
	return func(s *AuditScheduler) { s.gauge = g }
}

// WithAuditSink stores every report
func WithAuditSink(sink AuditSink) AuditSchedulerOption {
	return func(s *AuditScheduler) { s.sink = sink }
}

// NewAuditScheduler creates a stopped scheduler
func NewAuditScheduler(cfg config.AuditConfig, auditor Auditor, logger *zap.Logger, opts ...AuditSchedulerOption) *AuditScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditScheduler{
		cfg:     cfg,
		auditor: auditor,
		logger:  logger.Named("audit_scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the audit. It fails on an invalid cron expression.
func (s *AuditScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.cfg.Schedule); err != nil {
		return fmt.Errorf("%w: audit schedule %q: %w", ErrInvalidConfig, s.cfg.Schedule, err)
	}

	log := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)
	// scheduled runs inherit ctx values but outlive its cancellation
	runCtx := context.WithoutCancel(ctx)
	entry, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.RunNow(runCtx); err != nil {
			s.logger.Error("Scheduled audit failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c.Start()

	s.cron, s.entry, s.running = c, entry, true
	s.logger.Info("Audit scheduler started",
		zap.String("schedule", s.cfg.Schedule),
		zap.Time("next_run", c.Entry(entry).Next),
	)
	return nil
}

// Stop removes the schedule and waits for a running audit to finish
func (s *AuditScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.running = false
	s.mu.Unlock()

	select {
	case <-c.Stop().Done():
		s.logger.Info("Audit scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextRun returns when the audit runs next; zero when stopped
func (s *AuditScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// LastReport returns the report of the most recent run, or nil
func (s *AuditScheduler) LastReport() *ledger.AuditReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// RunNow runs the audit immediately. The report is returned even when
// storing it fails.
func (s *AuditScheduler) RunNow(ctx context.Context) (*ledger.AuditReport, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	started := time.Now()
	report := s.auditor.Verify(ctx)

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if s.gauge != nil {
		s.gauge.SetAuditFindings(len(report.Findings))
	}

	fields := []zap.Field{
		zap.Int("findings", len(report.Findings)),
		zap.Duration("elapsed", time.Since(started)),
	}
	if report.OK() {
		s.logger.Info("Ledger audit passed", fields...)
	} else {
		s.logger.Warn("Ledger audit found inconsistencies", fields...)
	}

	if s.sink == nil {
		return report, nil
	}
	if err := s.sink.SaveAudit(ctx, report); err != nil {
		return report, errors.Join(ErrAuditNotStored, err)
	}
	return report, nil
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
