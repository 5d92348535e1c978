package repository_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/parish-booking/internal/database"
	"github.com/iliyamo/parish-booking/internal/model"
	"github.com/iliyamo/parish-booking/internal/repository"
)

// setupTestDB opens an in-memory SQLite database with the authoritative
// schema from database.Schema.  Tests never declare their own tables.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// seedWedding stores a pending wedding for date and returns it.
func seedWedding(t *testing.T, repo *repository.BookingRepo, requester, date string) *model.Booking {
	t.Helper()
	b := &model.Booking{
		Kind:         model.KindWedding,
		RequesterID:  requester,
		EventDate:    model.MustDate(date),
		Participants: json.RawMessage(`{"name1":"Maria","name2":"Jose"}`),
	}
	if err := repo.Create(context.Background(), b); err != nil {
		t.Fatalf("failed to seed wedding: %v", err)
	}
	return b
}
