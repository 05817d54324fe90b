package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"collage-sync/internal/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// PhotoChannel is the NOTIFY channel the photos trigger publishes on
const PhotoChannel = "collage_photos"

// Migrate creates the tables, indexes and notify trigger if they are missing
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// classify maps driver errors onto the application error kinds
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Wrap(apperr.NotFound, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return apperr.Wrap(apperr.Conflict, op, err)
		case "23503", "22P02": // foreign_key_violation, invalid_text_representation
			return apperr.Wrap(apperr.NotFound, op, err)
		case "23514", "22001": // check_violation, string_data_right_truncation
			return apperr.Wrap(apperr.Invalid, op, err)
		}
	}

	return apperr.Wrap(apperr.Transport, op, err)
}

// expectOne turns a zero-row write into NotFound
func expectOne(op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return classify(op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, op, "no rows affected")
	}
	return nil
}

// Stamp returns the single timestamp a write call uses for every time column.
// Postgres stores microseconds, so finer precision would not round-trip.
func Stamp(now time.Time) time.Time {
	return now.UTC().Truncate(time.Microsecond)
}
