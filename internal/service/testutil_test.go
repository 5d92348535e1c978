package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parish-booking/internal/config"
	"github.com/iliyamo/parish-booking/internal/database"
	"github.com/iliyamo/parish-booking/internal/model"
	"github.com/iliyamo/parish-booking/internal/queue"
	"github.com/iliyamo/parish-booking/internal/repository"
	"github.com/iliyamo/parish-booking/internal/service"
)

// recorder is an EventPublisher that keeps what it was given.
type recorder struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	fail   bool
}

func (r *recorder) Publish(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

var fixedNow = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

// newTestRepo opens an in-memory SQLite store with the schema applied.
func newTestRepo(t *testing.T) *repository.BookingRepo {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repository.NewBookingRepo(db)
}

var testCacheConfig = config.AvailabilityCacheConfig{Enabled: true, Prefix: "avail", TTL: time.Minute}

// newTestService builds a BookingService over an in-memory SQLite store.
// rdb may be nil.
func newTestService(t *testing.T, rdb *redis.Client) (*service.BookingService, *repository.BookingRepo, *recorder) {
	t.Helper()
	repo := newTestRepo(t)
	avail := service.NewAvailabilityIndex(repo, rdb, testCacheConfig)
	rec := &recorder{}
	svc := service.NewBookingService(repo, avail, rec).WithClock(func() time.Time { return fixedNow })
	return svc, repo, rec
}

func weddingInput(requester, date string) service.SubmitInput {
	return service.SubmitInput{
		Kind:         model.KindWedding,
		RequesterID:  requester,
		EventDate:    model.MustDate(date),
		Participants: []byte(`{"name1":"A","name2":"B"}`),
	}
}
