package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/parish-booking/internal/database"
	"github.com/iliyamo/parish-booking/internal/model"
)

// BookingRepo stores bookings and their review comments.  Every mutation of
// an existing booking goes through Update, which wraps the read, the
// caller's change and the write-back in one transaction.  All timestamps are
// stored in UTC.
type BookingRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sqlx.DB) *BookingRepo {
	return &BookingRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB exposes the underlying handle (health checks, migrations).
func (r *BookingRepo) DB() *sqlx.DB { return r.db }

// bookingRow mirrors the bookings table.
type bookingRow struct {
	ID           string         `db:"id"`
	Kind         string         `db:"kind"`
	RequesterID  string         `db:"requester_id"`
	EventDate    string         `db:"event_date"`
	Participants []byte         `db:"participants"`
	Status       string         `db:"status"`
	ConfirmedAt  sql.NullTime   `db:"confirmed_at"`
	BookedOn     sql.NullString `db:"booked_on"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// commentRow mirrors the booking_comments table.
type commentRow struct {
	BookingID     string    `db:"booking_id"`
	Reviewer      string    `db:"reviewer"`
	ScheduledDate string    `db:"scheduled_date"`
	Category      string    `db:"category"`
	FreeText      string    `db:"free_text"`
	CreatedAt     time.Time `db:"created_at"`
}

const bookingColumns = `id, kind, requester_id, event_date, participants, status, confirmed_at, booked_on, created_at, updated_at`

func (row bookingRow) toModel() (model.Booking, error) {
	d, err := model.ParseDate(row.EventDate)
	if err != nil {
		return model.Booking{}, fmt.Errorf("booking %s: %w", row.ID, err)
	}
	b := model.Booking{
		ID:           row.ID,
		Kind:         model.Kind(row.Kind),
		RequesterID:  row.RequesterID,
		EventDate:    d,
		Participants: json.RawMessage(row.Participants),
		Status:       model.Status(row.Status),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.ConfirmedAt.Valid {
		t := row.ConfirmedAt.Time.UTC()
		b.ConfirmedAt = &t
	}
	return b, nil
}

func (row commentRow) toModel() model.ReviewComment {
	c := model.ReviewComment{
		Reviewer:  row.Reviewer,
		Category:  model.RemarkCategory(row.Category),
		FreeText:  row.FreeText,
		CreatedAt: row.CreatedAt.UTC(),
	}
	if d, err := model.ParseDate(row.ScheduledDate); err == nil {
		c.ScheduledDate = d
	}
	return c
}

// bookedOn derives the value of the booked_on column.
func bookedOn(b *model.Booking) sql.NullString {
	if !b.IsBooked() {
		return sql.NullString{}
	}
	return sql.NullString{String: b.EventDate.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Create assigns a new id and stores b as a pending booking.  It returns
// ErrDateTaken when another active booking of the same kind already holds
// b.EventDate.  On success b carries the generated id and timestamps.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	b.ID = uuid.NewString()
	b.Status = model.StatusPending
	b.ConfirmedAt = nil
	b.Comments = nil
	now := r.now()
	b.CreatedAt, b.UpdatedAt = now, now

	const q = `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q),
		b.ID, string(b.Kind), b.RequesterID, b.EventDate.String(), string(b.Participants),
		string(b.Status), nullTime(b.ConfirmedAt), bookedOn(b), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDateTaken
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID returns the booking with its comments, or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	return r.getByID(ctx, r.db, id, "")
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

func (r *BookingRepo) getByID(ctx context.Context, q queryer, id, suffix string) (*model.Booking, error) {
	var row bookingRow
	err := q.GetContext(ctx, &row, q.Rebind(`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`+suffix), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	b, err := row.toModel()
	if err != nil {
		return nil, err
	}
	var crows []commentRow
	err = q.SelectContext(ctx, &crows, q.Rebind(
		`SELECT booking_id, reviewer, scheduled_date, category, free_text, created_at
		 FROM booking_comments WHERE booking_id = ? ORDER BY seq`), id)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	b.Comments = make([]model.ReviewComment, 0, len(crows))
	for _, c := range crows {
		b.Comments = append(b.Comments, c.toModel())
	}
	return &b, nil
}

// ListByStatus returns every booking of kind in status, in insertion order.
func (r *BookingRepo) ListByStatus(ctx context.Context, kind model.Kind, status model.Status) ([]model.Booking, error) {
	return r.list(ctx, `WHERE kind = ? AND status = ?`, string(kind), string(status))
}

// ListByRequester returns every booking of kind submitted by requesterID, in
// insertion order.
func (r *BookingRepo) ListByRequester(ctx context.Context, kind model.Kind, requesterID string) ([]model.Booking, error) {
	return r.list(ctx, `WHERE kind = ? AND requester_id = ?`, string(kind), requesterID)
}

func (r *BookingRepo) list(ctx context.Context, where string, args ...interface{}) ([]model.Booking, error) {
	var rows []bookingRow
	q := `SELECT ` + bookingColumns + ` FROM bookings ` + where + ` ORDER BY seq`
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := make([]model.Booking, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, row := range rows {
		b, err := row.toModel()
		if err != nil {
			return nil, err
		}
		b.Comments = []model.ReviewComment{}
		index[b.ID] = len(out)
		out = append(out, b)
	}
	if len(out) == 0 {
		return out, nil
	}
	// Populate comments for all bookings in a single query
	ids := make([]string, 0, len(out))
	for _, b := range out {
		ids = append(ids, b.ID)
	}
	cq, cargs, err := sqlx.In(
		`SELECT booking_id, reviewer, scheduled_date, category, free_text, created_at
		 FROM booking_comments WHERE booking_id IN (?) ORDER BY booking_id, seq`, ids)
	if err != nil {
		return nil, err
	}
	var crows []commentRow
	if err := r.db.SelectContext(ctx, &crows, r.db.Rebind(cq), cargs...); err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	for _, c := range crows {
		if idx, ok := index[c.BookingID]; ok {
			out[idx].Comments = append(out[idx].Comments, c.toModel())
		}
	}
	return out, nil
}

// ListSummaries returns the {id, name, date, requester} projection of every
// booking of kind, in insertion order.
func (r *BookingRepo) ListSummaries(ctx context.Context, kind model.Kind) ([]model.BookingSummary, error) {
	var rows []struct {
		ID           string `db:"id"`
		RequesterID  string `db:"requester_id"`
		EventDate    string `db:"event_date"`
		Participants []byte `db:"participants"`
	}
	const q = `SELECT id, requester_id, event_date, participants FROM bookings WHERE kind = ? ORDER BY seq`
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), string(kind)); err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	out := make([]model.BookingSummary, 0, len(rows))
	for _, row := range rows {
		d, err := model.ParseDate(row.EventDate)
		if err != nil {
			return nil, fmt.Errorf("booking %s: %w", row.ID, err)
		}
		out = append(out, model.BookingSummary{
			ID:          row.ID,
			Name:        summaryName(kind, row.Participants),
			Date:        d,
			RequesterID: row.RequesterID,
		})
	}
	return out, nil
}

// summaryName picks the display name out of a participants document.
// Unknown or malformed payloads yield an empty name rather than an error.
func summaryName(kind model.Kind, raw []byte) string {
	switch kind {
	case model.KindWedding:
		var p model.WeddingParticipants
		if json.Unmarshal(raw, &p) == nil {
			return p.Name1
		}
	case model.KindBaptism:
		var p model.BaptismParticipants
		if json.Unmarshal(raw, &p) == nil {
			return p.Child.FullName
		}
	}
	return ""
}

// DateFilter narrows ListDates.  Zero From/To leave that side open.
type DateFilter struct {
	Kind       model.Kind
	BookedOnly bool
	From       model.Date
	To         model.Date
}

// ListDates projects the event dates of bookings matching f, ascending and
// without duplicates.
func (r *BookingRepo) ListDates(ctx context.Context, f DateFilter) ([]model.Date, error) {
	q := `SELECT DISTINCT event_date FROM bookings WHERE kind = ?`
	args := []interface{}{string(f.Kind)}
	if f.BookedOnly {
		q += ` AND booked_on IS NOT NULL`
	}
	if !f.From.IsZero() {
		q += ` AND event_date >= ?`
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		q += ` AND event_date <= ?`
		args = append(args, f.To.String())
	}
	q += ` ORDER BY event_date`
	var raw []string
	if err := r.db.SelectContext(ctx, &raw, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list dates: %w", err)
	}
	out := make([]model.Date, 0, len(raw))
	for _, s := range raw {
		d, err := model.ParseDate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// IsDateBooked reports whether an active booking of kind holds date.
func (r *BookingRepo) IsDateBooked(ctx context.Context, kind model.Kind, date model.Date) (bool, error) {
	var n int
	const q = `SELECT COUNT(*) FROM bookings WHERE kind = ? AND booked_on = ?`
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(q), string(kind), date.String()); err != nil {
		return false, fmt.Errorf("check date: %w", err)
	}
	return n > 0, nil
}

// Update loads the booking, applies mutate and writes the result back, all
// inside one transaction with the row locked where the driver supports it.
// If mutate returns an error nothing is written and that error is returned
// unchanged.  Comments may only be appended.  Returns ErrNotFound for an
// unknown id.
func (r *BookingRepo) Update(ctx context.Context, id string, mutate func(*model.Booking) error) (*model.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := r.getByID(ctx, tx, id, database.ForUpdate(r.db.DriverName()))
	if err != nil {
		return nil, err
	}
	stored := len(b.Comments)
	before := append([]model.ReviewComment(nil), b.Comments...)

	if err := mutate(b); err != nil {
		return nil, err
	}
	if len(b.Comments) < stored {
		return nil, ErrAppendOnly
	}
	for i := range before {
		if b.Comments[i] != before[i] {
			return nil, ErrAppendOnly
		}
	}

	b.UpdatedAt = r.now()
	const upd = `UPDATE bookings SET status = ?, confirmed_at = ?, booked_on = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, tx.Rebind(upd),
		string(b.Status), nullTime(b.ConfirmedAt), bookedOn(b), b.UpdatedAt, b.ID); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDateTaken
		}
		return nil, fmt.Errorf("update booking: %w", err)
	}

	const ins = `INSERT INTO booking_comments (booking_id, reviewer, scheduled_date, category, free_text, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	for i := stored; i < len(b.Comments); i++ {
		c := &b.Comments[i]
		if c.CreatedAt.IsZero() {
			c.CreatedAt = b.UpdatedAt
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(ins),
			b.ID, c.Reviewer, c.ScheduledDate.String(), string(c.Category), c.FreeText, c.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert comment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return b, nil
}
