// Package queue defines the booking events exchanged over RabbitMQ, the
// publisher the booking service emits them through, and the background
// consumer that appends them to the booking log.
package queue

import "time"

// Routing keys published on the bookings exchange.
const (
	EventSubmitted = "booking.submitted"
	EventConfirmed = "booking.confirmed"
	EventDeclined  = "booking.declined"
	EventCommented = "booking.commented"
)

// BookingEvent is published after a booking changes.  It carries enough for
// downstream consumers to log or notify without querying the database.
type BookingEvent struct {
	Type        string    `json:"type"`
	BookingID   string    `json:"booking_id"`
	Kind        string    `json:"kind"`
	RequesterID string    `json:"requester_id"`
	EventDate   string    `json:"event_date"`
	Status      string    `json:"status"`
	Reviewer    string    `json:"reviewer,omitempty"`
	Category    string    `json:"category,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
