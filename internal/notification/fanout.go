package notification

import (
	"leadflow_backend/internal/notification/inapp"
	"leadflow_backend/internal/shared/actor"

	"github.com/google/uuid"
)

// fanout collects the notifications produced by one event. Each
// (recipient, type) pair is queued at most once.
type fanout struct {
	eventName  string
	actor      *actor.Actor
	deliveries []inapp.SendParams
	seen       map[fanoutKey]struct{}
}

type fanoutKey struct {
	recipient uuid.UUID
	typ       inapp.Type
}

func newFanout(eventName string, by *actor.Actor) *fanout {
	return &fanout{
		eventName: eventName,
		actor:     by,
		seen:      make(map[fanoutKey]struct{}),
	}
}

type notice struct {
	title   string
	message string
	typ     inapp.Type
	related *inapp.Ref
}

// toRecordHolder queues a notice for the assignee, author or owner of the
// entity. Such recipients are notified even when they triggered the event.
func (f *fanout) toRecordHolder(to *actor.Actor, n notice) {
	if to == nil {
		return
	}
	f.add(*to, n)
}

// toObserver queues a notice for a user who merely watches the entity.
// The actor is never notified about their own action this way.
func (f *fanout) toObserver(to actor.Actor, n notice) {
	if f.actor != nil && f.actor.ID == to.ID {
		return
	}
	f.add(to, n)
}

// toManagers queues a notice for every manager, including a manager who
// triggered the event.
func (f *fanout) toManagers(managers []actor.Actor, n notice) {
	for _, to := range managers {
		f.add(to, n)
	}
}

func (f *fanout) add(to actor.Actor, n notice) {
	if to.IsZero() || !to.Role.Valid() {
		return
	}
	key := fanoutKey{recipient: to.ID, typ: n.typ}
	if _, dup := f.seen[key]; dup {
		return
	}
	f.seen[key] = struct{}{}

	var actorID *uuid.UUID
	if f.actor != nil {
		id := f.actor.ID
		actorID = &id
	}
	f.deliveries = append(f.deliveries, inapp.SendParams{
		ActorID: actorID,
		To:      to,
		Title:   n.title,
		Message: n.message,
		Type:    n.typ,
		Related: n.related,
	})
}
