package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTxErrorMapsLockFailuresToConflict(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		conflict bool
	}{
		{"deadlock", &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}, true},
		{"serialization", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := txError(tc.err)
			assert.Equal(t, tc.conflict, errors.Is(got, ErrVersionConflict))
			if !tc.conflict {
				assert.Equal(t, tc.err, got)
			}
		})
	}
}
