package repo

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestWrapDB(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "workflows_pkey"}, ErrAlreadyExists},
		{"foreign key violation", &pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "triggers_workflow_id_fkey"}, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapDB("insert row", tt.err)
			if tt.want == nil {
				if got != nil {
					t.Errorf("wrapDB(nil) = %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("wrapDB(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	// прочие ошибки драйвера оборачиваются с контекстом операции
	plain := errors.New("connection reset")
	got := wrapDB("insert row", plain)
	if !errors.Is(got, plain) {
		t.Errorf("expected original error in chain, got %v", got)
	}
	if errors.Is(got, ErrNotFound) || errors.Is(got, ErrAlreadyExists) {
		t.Errorf("plain error must not map to a sentinel: %v", got)
	}
}
