package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/parish-booking/internal/model"
	"github.com/iliyamo/parish-booking/internal/repository"
)

func TestBookingRepo_Create(t *testing.T) {
	repo := repository.NewBookingRepo(setupTestDB(t))
	ctx := context.Background()

	b := seedWedding(t, repo, "U1", "2025-06-01")
	if b.ID == "" {
		t.Fatal("expected generated id")
	}
	if b.Status != model.StatusPending || !b.IsBooked() {
		t.Errorf("new booking status = %s, booked = %v", b.Status, b.IsBooked())
	}

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.RequesterID != "U1" || got.EventDate.String() != "2025-06-01" || got.Kind != model.KindWedding {
		t.Errorf("unexpected booking: %+v", got)
	}
	if got.ConfirmedAt != nil {
		t.Errorf("ConfirmedAt = %v, want nil", got.ConfirmedAt)
	}
	var p model.WeddingParticipants
	if err := json.Unmarshal(got.Participants, &p); err != nil || p.Name1 != "Maria" {
		t.Errorf("participants = %s (%v)", got.Participants, err)
	}
	if len(got.Comments) != 0 {
		t.Errorf("comments = %v, want none", got.Comments)
	}
}

func TestBookingRepo_CreateDuplicateDate(t *testing.T) {
	repo := repository.NewBookingRepo(setupTestDB(t))
	ctx := context.Background()
	seedWedding(t, repo, "U1", "2025-06-01")

	dup := &model.Booking{
		Kind:         model.KindWedding,
		RequesterID:  "U2",
		EventDate:    model.MustDate("2025-06-01"),
		Participants: json.RawMessage(`{"name1":"A","name2":"B"}`),
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, repository.ErrDateTaken) {
		t.Fatalf("Create duplicate = %v, want ErrDateTaken", err)
	}

	// a different sacrament on the same day does not collide
	baptism := &model.Booking{
		Kind:         model.KindBaptism,
		RequesterID:  "U2",
		EventDate:    model.MustDate("2025-06-01"),
		Participants: json.RawMessage(`{"church":"St. Joseph"}`),
	}
	if err := repo.Create(ctx, baptism); err != nil {
		t.Fatalf("Create baptism failed: %v", err)
	}
}

func TestBookingRepo_GetByIDNotFound(t *testing.T) {
	repo := repository.NewBookingRepo(setupTestDB(t))
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("GetByID = %v, want ErrNotFound", err)
	}
}

func TestBookingRepo_UpdateDeclineFreesDate(t *testing.T) {
	repo := repository.NewBookingRepo(setupTestDB(t))
	ctx := context.Background()
	b := seedWedding(t, repo, "U1", "2025-06-01")

	updated, err := repo.Update(ctx, b.ID, func(cur *model.Booking) error {
		cur.Status = model.StatusDeclined
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != model.StatusDeclined {
		t.Errorf("status = %s", updated.Status)
	}

	booked, err := repo.IsDateBooked(ctx, model.KindWedding, model.MustDate("2025-06-01"))
	if err != nil {
		t.Fatalf("IsDateBooked failed: %v", err)
	}
	if booked {
		t.Error("declined booking still holds its date")
	}
	seedWedding(t, repo, "U2", "2025-06-01")
}

func TestBookingRepo_UpdateMutatorErrorRollsBack(t *testing.T) {
	repo := repository.NewBookingRepo(setupTestDB(t))
	ctx := context.Background()
	b := seedWedding(t, repo, "U1", "2025-06-01")

	boom := errors.New("boom")
	_, err := repo.Update(ctx, b.ID, func(cur *model.Booking) error {
		cur.Status = model.StatusConfirmed
		cur.Comments = append(cur.Comments, model.ReviewComment{Reviewer: "Fr. Santos", Category: model.RemarkOther})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update = %v, want boom", err)
	}

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != model.StatusPending || len(got.Comments) != 0 {
		t.Errorf("record changed by failed update: %+v", got)
	}
}

func TestBookingRepo_UpdateAppendsComments(t *testing.T) {
	repo := repository.NewBookingRepo(setupTestDB(t))
	ctx := context.Background()
	b := seedWedding(t, repo, "U1", "2025-06-01")

	for i, cat := range []model.RemarkCategory{model.RemarkSeminarRequired, model.RemarkDocumentsVerified} {
		_, err := repo.Update(ctx, b.ID, func(cur *model.Booking) error {
			cur.Comments = append(cur.Comments, model.ReviewComment{
				Reviewer:      "Fr. Santos",
				ScheduledDate: model.MustDate("2025-05-20"),
				Category:      cat,
			})
			return nil
		})
		if err != nil {
			t.Fatalf("Update %d failed: %v", i, err)
		}
	}

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.Comments) != 2 {
		t.Fatalf("comments = %d, want 2", len(got.Comments))
	}
	if got.Comments[0].Category != model.RemarkSeminarRequired || got.Comments[1].Category != model.RemarkDocumentsVerified {
		t.Errorf("comments out of order: %+v", got.Comments)
	}
	if got.Comments[0].ScheduledDate.String() != "2025-05-20" || got.Comments[0].CreatedAt.IsZero() {
		t.Errorf("comment fields not stored: %+v", got.Comments[0])
	}

	// dropping a stored comment is refused
	_, err = repo.Update(ctx, b.ID, func(cur *model.Booking) error {
		cur.Comments = cur.Comments[:1]
		return nil
	})
	if !errors.Is(err, repository.ErrAppendOnly) {
		t.Fatalf("truncating comments = %v, want ErrAppendOnly", err)
	}
}

func TestBookingRepo_UpdateStoresConfirmedAt(t *testing.T) {
	repo := repository.NewBookingRepo(setupTestDB(t))
	ctx := context.Background()
	b := seedWedding(t, repo, "U1", "2025-06-01")

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if _, err := repo.Update(ctx, b.ID, func(cur *model.Booking) error {
		cur.Status = model.StatusConfirmed
		cur.ConfirmedAt = &at
		return nil
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ConfirmedAt == nil || !got.ConfirmedAt.Equal(at) {
		t.Errorf("ConfirmedAt = %v, want %v", got.ConfirmedAt, at)
	}
}

func TestBookingRepo_UpdateNotFound(t *testing.T) {
	repo := repository.NewBookingRepo(setupTestDB(t))
	called := false
	_, err := repo.Update(context.Background(), "missing", func(*model.Booking) error {
		called = true
		return nil
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Update = %v, want ErrNotFound", err)
	}
	if called {
		t.Error("mutator ran for unknown id")
	}
}

func TestBookingRepo_ListByStatusInsertionOrder(t *testing.T) {
	repo := repository.NewBookingRepo(setupTestDB(t))
	ctx := context.Background()
	first := seedWedding(t, repo, "U1", "2025-09-01")
	second := seedWedding(t, repo, "U2", "2025-06-01")
	third := seedWedding(t, repo, "U3", "2025-07-01")

	if _, err := repo.Update(ctx, second.ID, func(cur *model.Booking) error {
		cur.Status = model.StatusConfirmed
		return nil
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	pending, err := repo.ListByStatus(ctx, model.KindWedding, model.StatusPending)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first.ID || pending[1].ID != third.ID {
		t.Fatalf("pending = %+v", pending)
	}
	confirmed, err := repo.ListByStatus(ctx, model.KindWedding, model.StatusConfirmed)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(confirmed) != 1 || confirmed[0].ID != second.ID {
		t.Fatalf("confirmed = %+v", confirmed)
	}
	baptisms, err := repo.ListByStatus(ctx, model.KindBaptism, model.StatusPending)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(baptisms) != 0 {
		t.Errorf("baptisms = %+v, want none", baptisms)
	}
}

func TestBookingRepo_ListByRequester(t *testing.T) {
	repo := repository.NewBookingRepo(setupTestDB(t))
	ctx := context.Background()
	seedWedding(t, repo, "U1", "2025-06-01")
	seedWedding(t, repo, "U2", "2025-06-02")
	seedWedding(t, repo, "U1", "2025-06-03")

	mine, err := repo.ListByRequester(ctx, model.KindWedding, "U1")
	if err != nil {
		t.Fatalf("ListByRequester failed: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("got %d bookings, want 2", len(mine))
	}
	for _, b := range mine {
		if b.RequesterID != "U1" {
			t.Errorf("foreign booking returned: %+v", b)
		}
	}
}

func TestBookingRepo_ListSummaries(t *testing.T) {
	repo := repository.NewBookingRepo(setupTestDB(t))
	ctx := context.Background()
	b := seedWedding(t, repo, "U1", "2025-06-01")

	sums, err := repo.ListSummaries(ctx, model.KindWedding)
	if err != nil {
		t.Fatalf("ListSummaries failed: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("got %d summaries", len(sums))
	}
	want := model.BookingSummary{ID: b.ID, Name: "Maria", Date: model.MustDate("2025-06-01"), RequesterID: "U1"}
	if sums[0].ID != want.ID || sums[0].Name != want.Name || !sums[0].Date.Equal(want.Date) || sums[0].RequesterID != want.RequesterID {
		t.Errorf("summary = %+v, want %+v", sums[0], want)
	}
}

func TestBookingRepo_ListDates(t *testing.T) {
	repo := repository.NewBookingRepo(setupTestDB(t))
	ctx := context.Background()
	seedWedding(t, repo, "U1", "2025-08-01")
	declined := seedWedding(t, repo, "U2", "2025-06-01")
	seedWedding(t, repo, "U3", "2025-07-01")
	if _, err := repo.Update(ctx, declined.ID, func(cur *model.Booking) error {
		cur.Status = model.StatusDeclined
		return nil
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	tests := []struct {
		name   string
		filter repository.DateFilter
		want   []string
	}{
		{"all", repository.DateFilter{Kind: model.KindWedding}, []string{"2025-06-01", "2025-07-01", "2025-08-01"}},
		{"booked", repository.DateFilter{Kind: model.KindWedding, BookedOnly: true}, []string{"2025-07-01", "2025-08-01"}},
		{"range", repository.DateFilter{Kind: model.KindWedding, BookedOnly: true, From: model.MustDate("2025-07-15"), To: model.MustDate("2025-12-31")}, []string{"2025-08-01"}},
		{"other kind", repository.DateFilter{Kind: model.KindBaptism}, []string{}},
	}
	for _, tt := range tests {
		got, err := repo.ListDates(ctx, tt.filter)
		if err != nil {
			t.Fatalf("%s: ListDates failed: %v", tt.name, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
		for i := range got {
			if got[i].String() != tt.want[i] {
				t.Errorf("%s: [%d] = %s, want %s", tt.name, i, got[i], tt.want[i])
			}
		}
	}
}
