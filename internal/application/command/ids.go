// Package command contains write operations (CQRS - Commands): recording
// visits and awarding badges and completion bonuses.
package command

import "github.com/google/uuid"

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	// GenerateID generates a new unique ID.
	GenerateID() string
}

// UUIDGenerator issues random (v4) UUIDs.
type UUIDGenerator struct{}

// GenerateID implements IDGenerator.
func (UUIDGenerator) GenerateID() string {
	return uuid.NewString()
}
