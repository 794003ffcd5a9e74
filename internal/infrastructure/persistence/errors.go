package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// TranslateError maps a storage failure onto the catalog error taxonomy.
// Domain errors and nil pass through unchanged. Integrity violations
// (SQLSTATE class 23) become CONSTRAINT_VIOLATION; connection, resource,
// serialization and deadline failures become TRANSIENT_STORAGE. Anything else
// is returned as is.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			return shared.NewConstraintViolationError(constraintMessage(pgErr), err)
		case strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "40"),
			strings.HasPrefix(pgErr.Code, "53"),
			strings.HasPrefix(pgErr.Code, "57"):
			return shared.NewTransientStorageError("Storage temporarily unavailable", err)
		}
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated), errors.Is(err, gorm.ErrCheckConstraintViolated):
		return shared.NewConstraintViolationError("Write violates a storage constraint", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, driver.ErrBadConn):
		return shared.NewTransientStorageError("Storage temporarily unavailable", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return shared.NewTransientStorageError("Storage temporarily unavailable", err)
	}
	return err
}

func constraintMessage(pgErr *pgconn.PgError) string {
	switch pgErr.ConstraintName {
	case "idx_product_media_single_default":
		return "A product can have only one default media item"
	case "idx_product_media_product_media_id":
		return "media_id must be unique within a product"
	}
	if pgErr.ConstraintName != "" {
		return "Write violates constraint " + pgErr.ConstraintName
	}
	return "Write violates a storage constraint"
}
