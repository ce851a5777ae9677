package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubAuditor struct {
	calls    atomic.Int32
	findings []ledger.Finding
}

func (a *stubAuditor) Verify(context.Context) *ledger.AuditReport {
	a.calls.Add(1)
	return &ledger.AuditReport{CheckedAt: 1700000000000, Findings: a.findings}
}

type mockGauge struct{ mock.Mock }

func (m *mockGauge) SetAuditFindings(n int) { m.Called(n) }

type mockSink struct{ mock.Mock }

func (m *mockSink) SaveAudit(ctx context.Context, report *ledger.AuditReport) error {
	return m.Called(ctx, report).Error(0)
}

func TestAuditScheduler_RunNow(t *testing.T) {
	drift := []ledger.Finding{{Check: "supplier_drift", Entity: "supplier", ID: "SUP-1"}}

	t.Run("reports findings to gauge and sink", func(t *testing.T) {
		auditor := &stubAuditor{findings: drift}
		gauge := &mockGauge{}
		gauge.On("SetAuditFindings", 1).Once()
		sink := &mockSink{}
		sink.On("SaveAudit", mock.Anything, mock.MatchedBy(func(r *ledger.AuditReport) bool {
			return len(r.Findings) == 1
		})).Return(nil).Once()

		core, logs := observer.New(zap.WarnLevel)
		s := NewAuditScheduler(config.AuditConfig{Schedule: "0 3 * * *", Timeout: time.Second}, auditor, zap.New(core),
			WithFindingsGauge(gauge), WithAuditSink(sink))

		report, err := s.RunNow(context.Background())
		require.NoError(t, err)
		assert.False(t, report.OK())
		assert.Same(t, report, s.LastReport())
		assert.Equal(t, 1, logs.FilterMessage("Ledger audit found inconsistencies").Len())
		gauge.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("sink failure still returns the report", func(t *testing.T) {
		sink := &mockSink{}
		sink.On("SaveAudit", mock.Anything, mock.Anything).Return(errors.New("db down"))

		s := NewAuditScheduler(config.AuditConfig{Schedule: "0 3 * * *"}, &stubAuditor{}, nil, WithAuditSink(sink))
		report, err := s.RunNow(context.Background())
		require.NotNil(t, report)
		assert.True(t, report.OK())
		assert.ErrorIs(t, err, ErrAuditNotStored)
	})
}

func TestAuditScheduler_StartStop(t *testing.T) {
	t.Run("rejects invalid schedule", func(t *testing.T) {
		s := NewAuditScheduler(config.AuditConfig{Schedule: "every night"}, &stubAuditor{}, nil)
		err := s.Start(context.Background())
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.True(t, s.NextRun().IsZero())
	})

	t.Run("schedules and stops", func(t *testing.T) {
		s := NewAuditScheduler(config.AuditConfig{Schedule: "0 3 * * *"}, &stubAuditor{}, nil)
		require.NoError(t, s.Start(context.Background()))
		require.NoError(t, s.Start(context.Background()))

		next := s.NextRun()
		assert.False(t, next.IsZero())
		assert.Equal(t, 3, next.Hour())

		require.NoError(t, s.Stop(context.Background()))
		require.NoError(t, s.Stop(context.Background()))
		assert.True(t, s.NextRun().IsZero())
	})

	t.Run("runs on schedule", func(t *testing.T) {
		auditor := &stubAuditor{}
		s := NewAuditScheduler(config.AuditConfig{Schedule: "@every 1s"}, auditor, nil)
		require.NoError(t, s.Start(context.Background()))
		t.Cleanup(func() { _ = s.Stop(context.Background()) })

		assert.Eventually(t, func() bool { return auditor.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
		assert.NotNil(t, s.LastReport())
	})
}
