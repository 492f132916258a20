package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/db"
	"github.com/IgorGrieder/tinylink/internal/processing/links"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// SQLSTATEs after which nothing was committed and the same unit of work can
// simply be run again.
var retryableStates = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available (lock_timeout)
	"57014": {}, // query_canceled (statement_timeout)
	"25P02": {}, // in_failed_sql_transaction
}

var unavailableStates = map[string]struct{}{
	"53300": {}, // too_many_connections
	"57P01": {}, // admin_shutdown
	"57P02": {}, // crash_shutdown
	"57P03": {}, // cannot_connect_now
}

// mapError translates driver errors into the link error kinds. Errors that
// are already domain errors pass through unchanged.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return links.ErrNotFound
	case errors.Is(err, db.ErrAcquire):
		return fmt.Errorf("%w: %w", links.ErrStorageUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return links.ErrCodeConflict
		}
		if _, ok := retryableStates[pgErr.Code]; ok {
			return fmt.Errorf("%w: %w", links.ErrTransactionFailure, err)
		}
		if _, ok := unavailableStates[pgErr.Code]; ok || strings.HasPrefix(pgErr.Code, "08") {
			return fmt.Errorf("%w: %w", links.ErrStorageUnavailable, err)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", links.ErrStorageUnavailable, err)
	}

	var netErr net.Error
	if pgconn.Timeout(err) || errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", links.ErrTransactionFailure, err)
	}

	return err
}
