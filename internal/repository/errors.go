package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique key.
	ErrDuplicate = errors.New("duplicate record")
	// ErrAlreadyRedeemed is returned when (user, code) already has a redemption row.
	ErrAlreadyRedeemed = errors.New("code already redeemed by user")
	// ErrBalanceOverflow is returned when a balance change leaves the int64 range.
	ErrBalanceOverflow = errors.New("balance out of range")
)

const (
	pgUniqueViolation   = "23505"
	pgNumericOutOfRange = "22003"
)

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicate
		case pgNumericOutOfRange:
			return ErrBalanceOverflow
		}
	}
	return err
}
