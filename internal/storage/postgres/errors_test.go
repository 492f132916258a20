package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/db"
	"github.com/IgorGrieder/tinylink/internal/processing/links"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapError(t *testing.T) {
	other := errors.New("something else")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, links.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("query: %w", pgx.ErrNoRows), links.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, links.ErrCodeConflict},
		{"serialization", &pgconn.PgError{Code: "40001"}, links.ErrTransactionFailure},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, links.ErrTransactionFailure},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, links.ErrTransactionFailure},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, links.ErrTransactionFailure},
		{"too many connections", &pgconn.PgError{Code: "53300"}, links.ErrStorageUnavailable},
		{"connection exception class", &pgconn.PgError{Code: "08006"}, links.ErrStorageUnavailable},
		{"acquire", fmt.Errorf("%w: %w", db.ErrAcquire, context.DeadlineExceeded), links.ErrStorageUnavailable},
		{"deadline", context.DeadlineExceeded, links.ErrStorageUnavailable},
		{"connection dropped", io.ErrUnexpectedEOF, links.ErrTransactionFailure},
		{"domain passthrough", links.ErrCodeConflict, links.ErrCodeConflict},
		{"unknown", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("mapError(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMapErrorKeepsCause(t *testing.T) {
	cause := &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"}
	got := mapError(cause)

	var pgErr *pgconn.PgError
	if !errors.As(got, &pgErr) || pgErr.Code != "55P03" {
		t.Errorf("expected wrapped PgError, got %v", got)
	}
}
