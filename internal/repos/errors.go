package repos

import (
	"database/sql"
	"errors"
	"strconv"

	"storefront/internal/domain"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func notFoundOr(err error, resource string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(resource, itoa(id))
	}
	return err
}
