package domain

import "time"

// AccountChange is one observed write to an account document, carrying the
// full snapshot before and after the write.
type AccountChange struct {
	// ID identifies the delivery. Redeliveries of the same write share it.
	ID         string
	AccountID  string
	Before     *Account
	After      *Account
	ObservedAt time.Time
}

// StatusChangedEvent is published after a partner transition is handled.
type StatusChangedEvent struct {
	AccountID  string        `json:"account_id"`
	From       PartnerStatus `json:"from"`
	To         PartnerStatus `json:"to"`
	Effect     SideEffect    `json:"effect,omitempty"`
	OrderCode  *int64        `json:"order_code,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
