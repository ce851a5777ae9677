package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrAuditNotStored is returned when an audit ran but its report could not be saved
	ErrAuditNotStored = errors.New("audit report not stored")
)
