package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	ErrLockTimeout   = errors.New("lock not acquired")
	ErrConstraint    = errors.New("constraint violation")
	ErrSerialization = errors.New("serialization failure")
)

// Classify tags PostgreSQL driver errors from lib/pq or pgx with one of the
// sentinel errors above. Unknown errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	code := sqlState(err)
	if code == "" {
		return err
	}
	switch {
	case code == "55P03", code == "57014":
		return fmt.Errorf("%w: %w", ErrLockTimeout, err)
	case code == "40001", code == "40P01":
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	case strings.HasPrefix(code, "23"):
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	default:
		return err
	}
}

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
