package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel errors used to escape a transaction after a constraint violation so
// the conflicting state can be re-read on a fresh connection. Postgres aborts
// the whole transaction once a constraint fires, so the re-read must happen
// outside it.
var (
	errDuplicateHoldRace  = errors.New("services: duplicate hold race")
	errConfirmationRace   = errors.New("services: confirmation race")
	errReservationRace    = errors.New("services: reservation lock race")
	errActiveOfferRace    = errors.New("services: active offer race")
	errPendingRequestRace = errors.New("services: pending reschedule race")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate") ||
		strings.Contains(lower, "constraint")
}
