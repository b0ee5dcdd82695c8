package types

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an account lifecycle notification.
type EventType string

const (
	EventRegistered EventType = "account.registered"
	EventLoggedIn   EventType = "account.logged_in"
	EventConfirmed  EventType = "account.confirmed"
	EventBlocked    EventType = "account.blocked"
	EventUnblocked  EventType = "account.unblocked"
	EventDeleted    EventType = "account.deleted"
)

// AccountEvent is published after a lifecycle operation changed at least
// one account.
type AccountEvent struct {
	Type EventType `json:"type"`

	// UserIDs lists the accounts the operation was requested for. For a
	// sweep of unverified accounts it is empty and Count carries the
	// number of removed rows.
	UserIDs []uuid.UUID `json:"user_ids,omitempty"`

	Count      int64     `json:"count"`
	OccurredAt time.Time `json:"occurred_at"`
}
