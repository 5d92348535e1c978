package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema is the authoritative DDL per driver.  Every statement is idempotent
// so Migrate can run on each start.
//
// bookings.booked_on mirrors event_date while the booking holds its date
// (pending or confirmed) and is NULL otherwise.  The unique index on
// (kind, booked_on) is what guarantees a single active booking per date when
// two submissions race; NULLs never collide.
var Schema = map[string][]string{
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS bookings (
			seq           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			id            CHAR(36)     NOT NULL,
			kind          VARCHAR(16)  NOT NULL,
			requester_id  VARCHAR(64)  NOT NULL,
			event_date    CHAR(10)     NOT NULL,
			participants  JSON         NOT NULL,
			status        VARCHAR(16)  NOT NULL,
			confirmed_at  DATETIME(6)  NULL,
			booked_on     CHAR(10)     NULL,
			created_at    DATETIME(6)  NOT NULL,
			updated_at    DATETIME(6)  NOT NULL,
			UNIQUE KEY uq_bookings_id (id),
			UNIQUE KEY uq_bookings_kind_booked_on (kind, booked_on),
			KEY idx_bookings_kind_status (kind, status, seq),
			KEY idx_bookings_kind_requester (kind, requester_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS booking_comments (
			seq            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			booking_id     CHAR(36)      NOT NULL,
			reviewer       VARCHAR(200)  NOT NULL,
			scheduled_date CHAR(10)      NOT NULL,
			category       VARCHAR(32)   NOT NULL,
			free_text      VARCHAR(2000) NOT NULL DEFAULT '',
			created_at     DATETIME(6)   NOT NULL,
			KEY idx_booking_comments_booking (booking_id, seq),
			CONSTRAINT fk_booking_comments_booking FOREIGN KEY (booking_id) REFERENCES bookings (id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS bookings (
			seq           BIGSERIAL    PRIMARY KEY,
			id            CHAR(36)     NOT NULL UNIQUE,
			kind          VARCHAR(16)  NOT NULL,
			requester_id  VARCHAR(64)  NOT NULL,
			event_date    CHAR(10)     NOT NULL,
			participants  JSONB        NOT NULL,
			status        VARCHAR(16)  NOT NULL,
			confirmed_at  TIMESTAMPTZ  NULL,
			booked_on     CHAR(10)     NULL,
			created_at    TIMESTAMPTZ  NOT NULL,
			updated_at    TIMESTAMPTZ  NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_kind_booked_on ON bookings (kind, booked_on)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_kind_status ON bookings (kind, status, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_kind_requester ON bookings (kind, requester_id)`,
		`CREATE TABLE IF NOT EXISTS booking_comments (
			seq            BIGSERIAL     PRIMARY KEY,
			booking_id     CHAR(36)      NOT NULL REFERENCES bookings (id),
			reviewer       VARCHAR(200)  NOT NULL,
			scheduled_date CHAR(10)      NOT NULL,
			category       VARCHAR(32)   NOT NULL,
			free_text      VARCHAR(2000) NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ   NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_comments_booking ON booking_comments (booking_id, seq)`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS bookings (
			seq           INTEGER PRIMARY KEY AUTOINCREMENT,
			id            TEXT     NOT NULL UNIQUE,
			kind          TEXT     NOT NULL,
			requester_id  TEXT     NOT NULL,
			event_date    TEXT     NOT NULL,
			participants  TEXT     NOT NULL,
			status        TEXT     NOT NULL,
			confirmed_at  DATETIME NULL,
			booked_on     TEXT     NULL,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_kind_booked_on ON bookings (kind, booked_on)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_kind_status ON bookings (kind, status, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_kind_requester ON bookings (kind, requester_id)`,
		`CREATE TABLE IF NOT EXISTS booking_comments (
			seq            INTEGER PRIMARY KEY AUTOINCREMENT,
			booking_id     TEXT     NOT NULL REFERENCES bookings (id),
			reviewer       TEXT     NOT NULL,
			scheduled_date TEXT     NOT NULL,
			category       TEXT     NOT NULL,
			free_text      TEXT     NOT NULL DEFAULT '',
			created_at     DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_comments_booking ON booking_comments (booking_id, seq)`,
	},
}

// Migrate applies Schema for the connection's driver.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts, ok := Schema[db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
