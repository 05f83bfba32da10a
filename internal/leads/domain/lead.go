// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"regexp"
	"strings"
	"time"

	"leadflow_backend/internal/shared/actor"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusFollowUp   Status = "follow-up"
	StatusClosed     Status = "closed"
)

// Priority is the sales priority of a lead.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var knownStatuses = map[Status]struct{}{
	StatusNew:        {},
	StatusInProgress: {},
	StatusFollowUp:   {},
	StatusClosed:     {},
}

var knownPriorities = map[Priority]struct{}{
	PriorityHigh:   {},
	PriorityMedium: {},
	PriorityLow:    {},
}

// transitions lists the allowed status changes. Closed is terminal.
var transitions = map[Status]map[Status]bool{
	StatusNew:        {StatusInProgress: true, StatusFollowUp: true, StatusClosed: true},
	StatusInProgress: {StatusFollowUp: true, StatusClosed: true},
	StatusFollowUp:   {StatusInProgress: true, StatusClosed: true},
	StatusClosed:     {},
}

func ParseStatus(value string) (Status, bool) {
	s := Status(strings.TrimSpace(value))
	_, ok := knownStatuses[s]
	return s, ok
}

// ParsePriority returns PriorityMedium for an empty value.
func ParsePriority(value string) (Priority, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return PriorityMedium, true
	}
	p := Priority(trimmed)
	_, ok := knownPriorities[p]
	return p, ok
}

// CanTransition reports whether a lead may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return transitions[from][to]
}

// StatusAfterFollowUp derives the status set by a recorded follow-up:
// a boolean outcome closes the lead, otherwise it waits for the next contact.
func StatusAfterFollowUp(isProfitable *bool) Status {
	if isProfitable != nil {
		return StatusClosed
	}
	return StatusFollowUp
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail applies the lead email format check.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FormatFollowUpDate renders a follow-up date as stored in the lead history.
func FormatFollowUpDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// HasFollowUpDate reports whether the history contains the given date.
func HasFollowUpDate(history []string, date time.Time) bool {
	want := FormatFollowUpDate(date)
	for _, entry := range history {
		if entry == want {
			return true
		}
	}
	return false
}

// Owner is the worker a lead belongs to: its assignee, or its creator while
// it is unassigned.
func Owner(assignedTo, createdBy *uuid.UUID) *uuid.UUID {
	if assignedTo != nil {
		return assignedTo
	}
	return createdBy
}

// VisibleTo reports whether the actor may read or act on a lead. Managers
// see every lead, workers only the leads they own.
func VisibleTo(assignedTo, createdBy *uuid.UUID, a actor.Actor) bool {
	if a.IsManager() {
		return true
	}
	owner := Owner(assignedTo, createdBy)
	return owner != nil && *owner == a.ID
}
