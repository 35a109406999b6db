package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"posto/internal/core"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListBookings returns every booking ordered by date.
func (r *SQLiteRepository) ListBookings(ctx context.Context) ([]core.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, occupant, created_at FROM bookings ORDER BY date`)
	if err != nil {
		return nil, storeErr("list bookings", err)
	}
	defer rows.Close()

	var bookings []core.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storeErr("scan booking", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list bookings", err)
	}
	return bookings, nil
}

// CreateBooking claims a date for an occupant. The UNIQUE index on date is
// the only arbiter between concurrent claims: the loser gets ErrDateTaken.
func (r *SQLiteRepository) CreateBooking(ctx context.Context, date core.Date, occupant string) (core.Booking, error) {
	b := core.Booking{
		ID:        uuid.New().String(),
		Date:      date,
		Occupant:  occupant,
		CreatedAt: time.Now().UTC(),
	}
	if err := b.Validate(); err != nil {
		return core.Booking{}, err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (id, date, occupant, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.Date.String(), b.Occupant, b.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Booking{}, core.ErrDateTaken
		}
		return core.Booking{}, storeErr("create booking", err)
	}

	slog.InfoContext(ctx, "Booking saved",
		"id", b.ID,
		"date", b.Date.String(),
		"occupant", b.Occupant)

	return b, nil
}

// GetBooking retrieves a single booking by ID.
func (r *SQLiteRepository) GetBooking(ctx context.Context, id string) (core.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, date, occupant, created_at FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Booking{}, core.ErrNotFound
		}
		return core.Booking{}, storeErr("get booking", err)
	}
	return b, nil
}

// DeleteBooking removes a booking by ID.
func (r *SQLiteRepository) DeleteBooking(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete booking", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete booking", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Booking deleted", "id", id)
	return nil
}

// ListStatuses returns every persisted period status ordered by start date.
func (r *SQLiteRepository) ListStatuses(ctx context.Context) ([]core.PeriodStatus, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT start_date, end_date, is_paid FROM period_statuses ORDER BY start_date`)
	if err != nil {
		return nil, storeErr("list period statuses", err)
	}
	defer rows.Close()

	var statuses []core.PeriodStatus
	for rows.Next() {
		var startStr, endStr string
		var paid bool
		if err := rows.Scan(&startStr, &endStr, &paid); err != nil {
			return nil, storeErr("scan period status", err)
		}
		s, err := statusFromRow(startStr, endStr, paid)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list period statuses", err)
	}
	return statuses, nil
}

// UpsertStatus sets the paid flag for a period, creating the row on first
// toggle. Idempotent on the (start, end) key; returns the post-upsert record.
func (r *SQLiteRepository) UpsertStatus(ctx context.Context, start, end core.Date, paid bool) (core.PeriodStatus, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO period_statuses (start_date, end_date, is_paid) VALUES (?, ?, ?)
		 ON CONFLICT(start_date, end_date) DO UPDATE SET is_paid = excluded.is_paid`,
		start.String(), end.String(), paid)
	if err != nil {
		return core.PeriodStatus{}, storeErr("upsert period status", err)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT start_date, end_date, is_paid FROM period_statuses WHERE start_date = ? AND end_date = ?`,
		start.String(), end.String())
	var startStr, endStr string
	var stored bool
	if err := row.Scan(&startStr, &endStr, &stored); err != nil {
		return core.PeriodStatus{}, storeErr("read period status", err)
	}

	slog.InfoContext(ctx, "Period status upserted",
		"start", startStr,
		"end", endStr,
		"paid", stored)

	return statusFromRow(startStr, endStr, stored)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (core.Booking, error) {
	var b core.Booking
	var dateStr, createdStr string
	if err := row.Scan(&b.ID, &dateStr, &b.Occupant, &createdStr); err != nil {
		return core.Booking{}, err
	}
	d, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Booking{}, fmt.Errorf("stored booking date: %w", err)
	}
	b.Date = d
	if created, err := time.Parse(time.RFC3339, createdStr); err == nil {
		b.CreatedAt = created
	}
	return b, nil
}

func statusFromRow(startStr, endStr string, paid bool) (core.PeriodStatus, error) {
	start, err := core.ParseDate(startStr)
	if err != nil {
		return core.PeriodStatus{}, fmt.Errorf("stored status start: %w", err)
	}
	end, err := core.ParseDate(endStr)
	if err != nil {
		return core.PeriodStatus{}, fmt.Errorf("stored status end: %w", err)
	}
	return core.PeriodStatus{Start: start, End: end, Paid: paid}, nil
}

// storeErr tags driver-level failures so callers can distinguish an
// unavailable store from domain conflicts.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(core.ErrStoreUnavailable, err))
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
