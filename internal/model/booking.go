package model

import (
	"encoding/json"
	"time"
)

// Kind tags which sacrament workflow a booking belongs to.  Every kind shares
// the same booking state machine; only the participant payload differs.
type Kind string

const (
	KindWedding Kind = "wedding"
	KindBaptism Kind = "baptism"
)

// Kinds lists every supported sacrament kind in route registration order.
var Kinds = []Kind{KindWedding, KindBaptism}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindWedding || k == KindBaptism
}

// Plural returns the collection name used in URLs (e.g. "weddings").
func (k Kind) Plural() string { return string(k) + "s" }

// Status is the lifecycle state of a booking.
//
//	pending -> confirmed
//	pending -> declined
//
// confirmed and declined are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDeclined:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusDeclined
}

// CanTransitionTo reports whether moving from s to next is a legal step.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && (next == StatusConfirmed || next == StatusDeclined)
}

// Booking is a request to reserve a sacrament date.  Participants is kept as
// an opaque JSON document; its shape is checked per kind at the HTTP layer.
type Booking struct {
	ID           string          `json:"id"`
	Kind         Kind            `json:"kind"`
	RequesterID  string          `json:"requester_id"`
	EventDate    Date            `json:"event_date"`
	Participants json.RawMessage `json:"participants"`
	Status       Status          `json:"status"`
	Comments     []ReviewComment `json:"comments"`
	ConfirmedAt  *time.Time      `json:"confirmed_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsBooked reports whether the booking currently holds its event date.  A
// declined booking frees the date.
func (b *Booking) IsBooked() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// MarshalJSON adds the derived is_booked flag to the wire form.
func (b Booking) MarshalJSON() ([]byte, error) {
	type plain Booking
	comments := b.Comments
	if comments == nil {
		comments = []ReviewComment{}
	}
	p := plain(b)
	p.Comments = comments
	return json.Marshal(struct {
		plain
		IsBooked bool `json:"is_booked"`
	}{plain: p, IsBooked: b.IsBooked()})
}

// BookingSummary is the projection returned when listing every booking of a
// kind.  Name is the first party of a wedding or the child of a baptism.
type BookingSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Date        Date   `json:"date"`
	RequesterID string `json:"requester_id"`
}
