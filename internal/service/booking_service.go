// Package service holds the booking workflow: the state machine that moves a
// sacrament booking from submission to confirmation or decline, and the
// availability index that keeps one active booking per date.
package service

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/parish-booking/internal/model"
	"github.com/iliyamo/parish-booking/internal/queue"
	"github.com/iliyamo/parish-booking/internal/repository"
)

// BookingStore is the persistence the workflow runs on.  *repository.BookingRepo
// satisfies it.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListByStatus(ctx context.Context, kind model.Kind, status model.Status) ([]model.Booking, error)
	ListByRequester(ctx context.Context, kind model.Kind, requesterID string) ([]model.Booking, error)
	ListSummaries(ctx context.Context, kind model.Kind) ([]model.BookingSummary, error)
	Update(ctx context.Context, id string, mutate func(*model.Booking) error) (*model.Booking, error)
}

// EventPublisher receives an event after each committed change.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

const maxFreeText = 2000

// BookingService enforces the booking state machine:
//
//	pending -> confirmed
//	pending -> declined
//
// Operations on one id are serialised by the store's transactional Update.
type BookingService struct {
	store  BookingStore
	avail  *AvailabilityIndex
	events EventPublisher
	now    func() time.Time
}

// NewBookingService wires the engine.  events may be nil.
func NewBookingService(store BookingStore, avail *AvailabilityIndex, events EventPublisher) *BookingService {
	return &BookingService{store: store, avail: avail, events: events, now: time.Now}
}

// WithClock replaces the clock used for confirmed_at.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// SubmitInput is a new booking request.  RequesterID comes from the caller's
// verified identity, never from the request body.
type SubmitInput struct {
	Kind         model.Kind
	RequesterID  string
	EventDate    model.Date
	Participants []byte
}

// Submit creates a pending booking for in.EventDate.  It fails with
// ValidationError on missing input and DateUnavailableError when the date is
// already held, including when a concurrent submission wins the race.
func (s *BookingService) Submit(ctx context.Context, in SubmitInput) (*model.Booking, error) {
	if !in.Kind.Valid() {
		return nil, invalid("kind", "unknown sacrament kind")
	}
	if strings.TrimSpace(in.RequesterID) == "" {
		return nil, invalid("requester_id", "is required")
	}
	if in.EventDate.IsZero() {
		return nil, invalid("event_date", "is required")
	}
	if emptyPayload(in.Participants) {
		return nil, invalid("participants", "must not be empty")
	}

	ok, err := s.avail.IsAvailable(ctx, in.Kind, in.EventDate)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &DateUnavailableError{Kind: in.Kind, Date: in.EventDate}
	}

	b := &model.Booking{
		Kind:         in.Kind,
		RequesterID:  in.RequesterID,
		EventDate:    in.EventDate,
		Participants: append([]byte(nil), in.Participants...),
	}
	if err := s.store.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDateTaken) {
			return nil, &DateUnavailableError{Kind: in.Kind, Date: in.EventDate}
		}
		return nil, &StoreError{Op: "create booking", Err: err}
	}
	s.avail.Invalidate(ctx, in.Kind)
	s.publish(ctx, queue.EventSubmitted, b, nil)
	return b, nil
}

func emptyPayload(p []byte) bool {
	t := bytes.TrimSpace(p)
	switch string(t) {
	case "", "null", "{}", "[]", `""`:
		return true
	}
	return false
}

// Get returns the booking with id.  A booking of another kind is reported as
// not found.
func (s *BookingService) Get(ctx context.Context, kind model.Kind, id string) (*model.Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeErr("get booking", kind, id, err)
	}
	if b.Kind != kind {
		return nil, &NotFoundError{Kind: kind, ID: id}
	}
	return b, nil
}

// Confirm moves a pending booking to confirmed and stamps confirmed_at.
func (s *BookingService) Confirm(ctx context.Context, kind model.Kind, id string) (*model.Booking, error) {
	b, err := s.transition(ctx, kind, id, model.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.EventConfirmed, b, nil)
	return b, nil
}

// Decline moves a pending booking to declined, which frees its date.
func (s *BookingService) Decline(ctx context.Context, kind model.Kind, id string) (*model.Booking, error) {
	b, err := s.transition(ctx, kind, id, model.StatusDeclined)
	if err != nil {
		return nil, err
	}
	s.avail.Invalidate(ctx, kind)
	s.publish(ctx, queue.EventDeclined, b, nil)
	return b, nil
}

func (s *BookingService) transition(ctx context.Context, kind model.Kind, id string, to model.Status) (*model.Booking, error) {
	b, err := s.store.Update(ctx, id, func(b *model.Booking) error {
		if b.Kind != kind {
			return &NotFoundError{Kind: kind, ID: id}
		}
		if !b.Status.CanTransitionTo(to) {
			return &InvalidTransitionError{ID: id, From: b.Status, To: to}
		}
		b.Status = to
		if to == model.StatusConfirmed {
			at := s.now().UTC()
			b.ConfirmedAt = &at
		}
		return nil
	})
	if err != nil {
		return nil, s.storeErr("update booking", kind, id, err)
	}
	return b, nil
}

// CommentInput is a reviewer remark.  Reviewer is resolved by the caller.
type CommentInput struct {
	Reviewer      string
	ScheduledDate model.Date
	Category      model.RemarkCategory
	FreeText      string
}

func (in CommentInput) validate() error {
	if strings.TrimSpace(in.Reviewer) == "" {
		return invalid("reviewer", "is required")
	}
	if in.ScheduledDate.IsZero() {
		return invalid("scheduled_date", "is required")
	}
	if !in.Category.Valid() {
		return invalid("category", "must be one of the remark categories")
	}
	if len(in.FreeText) > maxFreeText {
		return invalid("free_text", "is too long")
	}
	return nil
}

// AddComment appends a review comment in any status and returns the full
// comment sequence.
func (s *BookingService) AddComment(ctx context.Context, kind model.Kind, id string, in CommentInput) ([]model.ReviewComment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	b, err := s.store.Update(ctx, id, func(b *model.Booking) error {
		if b.Kind != kind {
			return &NotFoundError{Kind: kind, ID: id}
		}
		b.Comments = append(b.Comments, model.ReviewComment{
			Reviewer:      strings.TrimSpace(in.Reviewer),
			ScheduledDate: in.ScheduledDate,
			Category:      in.Category,
			FreeText:      strings.TrimSpace(in.FreeText),
		})
		return nil
	})
	if err != nil {
		return nil, s.storeErr("add comment", kind, id, err)
	}
	c := b.Comments[len(b.Comments)-1]
	s.publish(ctx, queue.EventCommented, b, &c)
	return b.Comments, nil
}

// ListPending returns pending bookings of kind in submission order.
func (s *BookingService) ListPending(ctx context.Context, kind model.Kind) ([]model.Booking, error) {
	return s.listByStatus(ctx, kind, model.StatusPending)
}

// ListConfirmed returns confirmed bookings of kind in submission order.
func (s *BookingService) ListConfirmed(ctx context.Context, kind model.Kind) ([]model.Booking, error) {
	return s.listByStatus(ctx, kind, model.StatusConfirmed)
}

func (s *BookingService) listByStatus(ctx context.Context, kind model.Kind, status model.Status) ([]model.Booking, error) {
	out, err := s.store.ListByStatus(ctx, kind, status)
	if err != nil {
		return nil, &StoreError{Op: "list " + string(status), Err: err}
	}
	return out, nil
}

// ListByRequester returns every booking of kind submitted by requesterID.
func (s *BookingService) ListByRequester(ctx context.Context, kind model.Kind, requesterID string) ([]model.Booking, error) {
	out, err := s.store.ListByRequester(ctx, kind, requesterID)
	if err != nil {
		return nil, &StoreError{Op: "list by requester", Err: err}
	}
	return out, nil
}

// ListSummaries returns the name/date projection of every booking of kind.
func (s *BookingService) ListSummaries(ctx context.Context, kind model.Kind) ([]model.BookingSummary, error) {
	out, err := s.store.ListSummaries(ctx, kind)
	if err != nil {
		return nil, &StoreError{Op: "list summaries", Err: err}
	}
	return out, nil
}

// IsAvailable reports whether date has no active booking of kind.
func (s *BookingService) IsAvailable(ctx context.Context, kind model.Kind, date model.Date) (bool, error) {
	return s.avail.IsAvailable(ctx, kind, date)
}

// ListBookedDates returns booked dates of kind within [from, to].
func (s *BookingService) ListBookedDates(ctx context.Context, kind model.Kind, from, to model.Date) ([]model.Date, error) {
	return s.avail.ListBookedDates(ctx, kind, from, to)
}

// storeErr translates repository failures.  Typed errors raised inside a
// mutator pass through unchanged.
func (s *BookingService) storeErr(op string, kind model.Kind, id string, err error) error {
	var (
		nf *NotFoundError
		it *InvalidTransitionError
	)
	switch {
	case errors.As(err, &nf), errors.As(err, &it):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return &NotFoundError{Kind: kind, ID: id}
	}
	return &StoreError{Op: op, Err: err}
}

func (s *BookingService) publish(ctx context.Context, typ string, b *model.Booking, c *model.ReviewComment) {
	if s.events == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:        typ,
		BookingID:   b.ID,
		Kind:        string(b.Kind),
		RequesterID: b.RequesterID,
		EventDate:   b.EventDate.String(),
		Status:      string(b.Status),
		OccurredAt:  s.now().UTC(),
	}
	if c != nil {
		ev.Reviewer = c.Reviewer
		ev.Category = string(c.Category)
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.events.Publish(pubCtx, ev); err != nil {
		log.Printf("booking-events: publish %s for %s failed: %v", typ, b.ID, err)
	}
}
