package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoRowsAffected is returned by guarded UPDATEs (… WHERE status = 'pending')
// when the guard no longer matches, i.e. another transaction got there first.
var ErrNoRowsAffected = errors.New("no rows affected")

// Postgres SQLSTATE codes the services react to.
const (
	pgUniqueViolation   = "23505"
	pgLockNotAvailable  = "55P03"
	pgSerializationFail = "40001"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports a unique index rejection.
func IsUniqueViolation(err error) bool { return pgCode(err) == pgUniqueViolation }

// IsLockNotAvailable reports a NOWAIT lock that could not be taken, or a
// serialization failure; both mean a concurrent writer holds the rows.
func IsLockNotAvailable(err error) bool {
	c := pgCode(err)
	return c == pgLockNotAvailable || c == pgSerializationFail
}

// IsNotFound reports gorm's record-not-found.
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// conn returns tx when the caller runs inside a transaction, db otherwise.
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

var (
	forUpdate       = clause.Locking{Strength: "UPDATE"}
	forUpdateNoWait = clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}
	forShare        = clause.Locking{Strength: "SHARE"}
)

// paginate applies page/limit with sane floors.
func paginate(q *gorm.DB, page, limit int) *gorm.DB {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return q.Offset((page - 1) * limit).Limit(limit)
}
