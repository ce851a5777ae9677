package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"gorm.io/gorm"
)

// AuditModel is one stored ledger audit
type AuditModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	CheckedAt int64  `gorm:"not null;index"`
	Findings  int    `gorm:"not null"`
	Report    string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (AuditModel) TableName() string {
	return "ledger_audits"
}

// GormAuditStore keeps the history of ledger audits
type GormAuditStore struct {
	db *gorm.DB
}

// NewGormAuditStore creates an audit store on db
func NewGormAuditStore(db *gorm.DB) *GormAuditStore {
	return &GormAuditStore{db: db}
}

// AutoMigrate creates the audits table on SQLite
func (s *GormAuditStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&AuditModel{})
}

// SaveAudit appends report
func (s *GormAuditStore) SaveAudit(ctx context.Context, report *ledger.AuditReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode audit report: %w", err)
	}
	row := AuditModel{
		CheckedAt: report.CheckedAt,
		Findings:  len(report.Findings),
		Report:    string(payload),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("save audit report: %w", err)
	}
	return nil
}

// Recent returns up to limit reports, newest first
func (s *GormAuditStore) Recent(ctx context.Context, limit int) ([]*ledger.AuditReport, error) {
	var rows []AuditModel
	if err := s.db.WithContext(ctx).Order("checked_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list audit reports: %w", err)
	}
	out := make([]*ledger.AuditReport, 0, len(rows))
	for _, r := range rows {
		var report ledger.AuditReport
		if err := json.Unmarshal([]byte(r.Report), &report); err != nil {
			return nil, fmt.Errorf("decode audit report %d: %w", r.ID, err)
		}
		out = append(out, &report)
	}
	return out, nil
}
