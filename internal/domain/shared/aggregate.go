package shared

// BaseAggregateRoot is embedded by the aggregates that persist with
// optimistic locking and raise domain events: bills, uploads, users
// and roles. The version column backs the locking; events accumulate
// until the application layer drains them into the audit trail.
type BaseAggregateRoot struct {
	BaseEntity
	Version int           `gorm:"not null;default:1"`
	events  []DomainEvent `gorm:"-"`
}

// NewBaseAggregateRoot creates an aggregate root at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
		events:     make([]DomainEvent, 0),
	}
}

// GetVersion returns the version used for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion bumps the version; every mutating aggregate
// method calls this so stale writes conflict at save time
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent queues an event raised by the aggregate
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// GetDomainEvents returns the queued events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.events
}

// ClearDomainEvents empties the queue after the events are consumed
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.events = nil
}
