package pgrepo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/fsdevblog/moviestore/internal/domain"
)

func TestConvertErr(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		want      error
		retryable bool
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: domain.ErrRecordNotFound},
		{name: "unique", err: &pgconn.PgError{Code: uniqueViolationCode}, want: domain.ErrDuplicateKey},
		{name: "foreign key", err: &pgconn.PgError{Code: foreignKeyViolationCode}, want: domain.ErrForeignKey},
		{name: "deadlock", err: &pgconn.PgError{Code: deadlockDetectedCode}, want: domain.ErrDeadlock, retryable: true},
		{
			name:      "wrapped serialization",
			err:       fmt.Errorf("exec: %w", &pgconn.PgError{Code: serializationFailureCode}),
			want:      domain.ErrSerialization,
			retryable: true,
		},
		{name: "other pg code", err: &pgconn.PgError{Code: "42P01"}, want: domain.ErrUnknown},
		{name: "not a pg error", err: errors.New("boom"), want: domain.ErrUnknown},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := convertErr(tt.err, "movie %d", 7)
			assert.ErrorIs(t, got, tt.want)
			assert.Contains(t, got.Error(), "[repository/movie 7]")
			assert.Equal(t, tt.retryable, domain.IsRetryable(got))
		})
	}
	assert.NoError(t, convertErr(nil, "noop"))
}

func TestNotFoundIfNoRows(t *testing.T) {
	assert.ErrorIs(t, notFoundIfNoRows(pgconn.NewCommandTag("UPDATE 0"), "cart %d", 1), domain.ErrRecordNotFound)
	assert.NoError(t, notFoundIfNoRows(pgconn.NewCommandTag("UPDATE 1"), "cart %d", 1))
}
