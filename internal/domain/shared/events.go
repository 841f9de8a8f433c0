// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each one is published once per newly created artifact.
const (
	EventVisitRecorded      EventType = "visit.recorded"
	EventBadgeAwarded       EventType = "achievement.badge_awarded"
	EventCountryCompleted   EventType = "completion.country_completed"
	EventContinentCompleted EventType = "completion.continent_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// VisitRecordedEvent is emitted when a new visit row is created.
type VisitRecordedEvent struct {
	BaseEvent
	UserID     UserID     `json:"user_id"`
	VisitID    string     `json:"visit_id"`
	LandmarkID LandmarkID `json:"landmark_id"`
	CountryID  CountryID  `json:"country_id"`
	Points     Points     `json:"points"`
}

// Payload implements Event interface.
func (e VisitRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID.String(),
		"visit_id":    e.VisitID,
		"landmark_id": e.LandmarkID.String(),
		"country_id":  e.CountryID.String(),
		"points":      e.Points.Int(),
	}
}

// NewVisitRecordedEvent creates a new VisitRecordedEvent.
func NewVisitRecordedEvent(userID UserID, visitID string, landmarkID LandmarkID, countryID CountryID, points Points, at time.Time) VisitRecordedEvent {
	return VisitRecordedEvent{
		BaseEvent:  NewBaseEvent(EventVisitRecorded, userID.String(), at),
		UserID:     userID,
		VisitID:    visitID,
		LandmarkID: landmarkID,
		CountryID:  countryID,
		Points:     points,
	}
}

// BadgeAwardedEvent is emitted when an achievement row is created.
type BadgeAwardedEvent struct {
	BaseEvent
	UserID    UserID `json:"user_id"`
	BadgeType string `json:"badge_type"`
}

// Payload implements Event interface.
func (e BadgeAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID.String(),
		"badge_type": e.BadgeType,
	}
}

// NewBadgeAwardedEvent creates a new BadgeAwardedEvent.
func NewBadgeAwardedEvent(userID UserID, badgeType string, at time.Time) BadgeAwardedEvent {
	return BadgeAwardedEvent{
		BaseEvent: NewBaseEvent(EventBadgeAwarded, userID.String(), at),
		UserID:    userID,
		BadgeType: badgeType,
	}
}

// CompletionAwardedEvent is emitted when a country or continent completion bonus is created.
type CompletionAwardedEvent struct {
	BaseEvent
	UserID  UserID `json:"user_id"`
	Scope   string `json:"scope"`
	ScopeID string `json:"scope_id"`
	Points  Points `json:"points"`
}

// Payload implements Event interface.
func (e CompletionAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":  e.UserID.String(),
		"scope":    e.Scope,
		"scope_id": e.ScopeID,
		"points":   e.Points.Int(),
	}
}

// NewCompletionAwardedEvent creates a new CompletionAwardedEvent. eventType must be
// EventCountryCompleted or EventContinentCompleted.
func NewCompletionAwardedEvent(eventType EventType, userID UserID, scope, scopeID string, points Points, at time.Time) CompletionAwardedEvent {
	return CompletionAwardedEvent{
		BaseEvent: NewBaseEvent(eventType, userID.String(), at),
		UserID:    userID,
		Scope:     scope,
		ScopeID:   scopeID,
		Points:    points,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// SyncSubscriber is implemented by buses that can run a handler on the
// publisher's goroutine, so its effect is visible once Publish returns.
type SyncSubscriber interface {
	SubscribeSync(eventType EventType, handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(Event) error { return nil }
