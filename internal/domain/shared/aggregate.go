package shared

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides common fields for aggregate roots
type BaseAggregateRoot struct {
	BaseEntity
	Version      int `json:"version"`
	domainEvents []DomainEvent
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot(prefix string) BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(prefix),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// SoftDelete carries the recycle-bin state shared by deletable records.
type SoftDelete struct {
	IsDeleted      bool   `json:"is_deleted"`
	DeletionReason string `json:"deletion_reason,omitempty"`
	DeletedAt      *int64 `json:"deleted_at,omitempty"` // unix millis
}

// Deleted reports whether the record is in the recycle bin
func (s *SoftDelete) Deleted() bool {
	return s.IsDeleted
}

// MarkDeleted moves the record to the recycle bin. A blank reason is rejected.
func (s *SoftDelete) MarkDeleted(reason string, atMillis int64) error {
	if IsBlank(reason) {
		return ErrReasonRequired
	}
	if s.IsDeleted {
		return NewDomainError(CodeInvalidState, "Record is already deleted")
	}
	s.IsDeleted = true
	s.DeletionReason = reason
	s.DeletedAt = &atMillis
	return nil
}

// Unmark restores the record from the recycle bin
func (s *SoftDelete) Unmark() error {
	if !s.IsDeleted {
		return NewDomainError(CodeInvalidState, "Record is not deleted")
	}
	s.IsDeleted = false
	s.DeletionReason = ""
	s.DeletedAt = nil
	return nil
}
