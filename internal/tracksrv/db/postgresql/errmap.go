package postgresql

import (
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/tracksrv/db/dberror"
)

// mapPgError classifies PostgreSQL errors into the dberror taxonomy. Unique
// violations become ErrAlreadyExists so racing creates resolve at the
// constraint rather than in application code.
func mapPgError(err error) apperrors.Error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return dberror.ErrAlreadyExists.Err(err)
		case pgerrcode.ForeignKeyViolation:
			return dberror.ErrInvalidInput.Msg("referenced row does not exist")
		case pgerrcode.CheckViolation, pgerrcode.StringDataRightTruncationDataException:
			return dberror.ErrInvalidInput.Err(err)
		}
	}
	return dberror.ErrDatabase.Err(err)
}
