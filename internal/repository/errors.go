package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

// uniqueViolation is the Postgres SQLSTATE raised when a unique index rejects a write.
const uniqueViolation pq.ErrorCode = "23505"

// writeError wraps a failed write with op. Unique violations match appErrors.ErrDuplicate so callers
// can report the losing side of a race as a conflict.
func writeError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, appErrors.Wrap(err, appErrors.ErrDuplicate.Code, appErrors.ErrDuplicate.Status, appErrors.ErrDuplicate.Message))
	}
	return fmt.Errorf("%s: %w", op, err)
}
