// Package repository defines the persistence layer for bookings and the
// error values it shares with higher layers.  Handlers never see these
// directly: the booking service translates them into its own typed errors.
package repository

import "errors"

// ErrNotFound is returned when no booking matches the requested id.
var ErrNotFound = errors.New("booking not found")

// ErrDateTaken is returned when a write would give a second active booking
// the same event date.  It is raised by the (kind, booked_on) unique index,
// so it also covers two submissions racing for the same day.
var ErrDateTaken = errors.New("event date already booked")

// ErrAppendOnly is returned when an update tries to drop or rewrite stored
// review comments.
var ErrAppendOnly = errors.New("review comments are append-only")
