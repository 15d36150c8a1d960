package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/raphaelgruber/matsim/internal/errs"
	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAlreadyExists indicates a record with the same ID already exists.
	// Comparison results are created, never upserted, so a reused result
	// ID surfaces here.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrTransactionConflict indicates a SurrealDB transaction conflict.
	// This occurs when concurrent writes touch the same record; callers
	// may retry.
	ErrTransactionConflict = errors.New("transaction conflict")
)

// wrapQueryError inspects a SurrealDB error and wraps it with the matching
// sentinel. Field type violations, which come from malformed property bags
// or presets, are reported as validation errors.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		switch {
		case strings.Contains(msg, "already exists"):
			return fmt.Errorf("%w: %s", ErrAlreadyExists, msg)
		case strings.Contains(msg, "Transaction conflict"):
			return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
		case strings.Contains(msg, "Couldn't coerce value for field"),
			strings.Contains(msg, "Found") && strings.Contains(msg, "but expected"):
			return fmt.Errorf("%w: %s", errs.ErrValidation, msg)
		}
	}

	return err
}
