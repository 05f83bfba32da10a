// Package events re-exports the platform event bus for convenience.
// This allows internal modules to import events from internal/events
// while the implementation lives in platform/events.
package events

import (
	platformevents "leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
)

// InMemoryBus is a type alias to the platform InMemoryBus
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}

// AllNames lists every domain event name, used to attach external relays.
func AllNames() []string {
	return []string{
		LeadCreated{}.EventName(),
		LeadUpdated{}.EventName(),
		LeadDeleted{}.EventName(),
		LeadsAssigned{}.EventName(),
		FollowUpRecorded{}.EventName(),
		ConversationEnded{}.EventName(),
		ConversationUpdated{}.EventName(),
		ConversationDeleted{}.EventName(),
		LeadsImported{}.EventName(),
		CampaignSent{}.EventName(),
		FollowUpDue{}.EventName(),
	}
}
