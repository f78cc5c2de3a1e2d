package gormdb

import (
	"errors"
	"strings"

	sqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"user-crud-service/internal/domain/user"
)

const (
	// pgUniqueViolation is the SQLSTATE of unique_violation.
	pgUniqueViolation = "23505"

	// SQLite extended result codes.
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067

	sqliteUniqueFailedPrefix = "UNIQUE constraint failed: "
)

// classifyWriteError wraps unique violations reported by the driver into a
// *user.UniqueViolationError naming the offending column. Other errors are
// returned unchanged.
func classifyWriteError(err error) error {
	if field, ok := uniqueViolationField(err); ok {
		return &user.UniqueViolationError{Field: field, Err: err}
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation
// raised by PostgreSQL or SQLite.
func IsUniqueViolation(err error) bool {
	_, ok := uniqueViolationField(err)
	return ok
}

// uniqueViolationField reports whether err is a unique violation and, when
// the driver says so, which column caused it.
func uniqueViolationField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		if pgErr.ColumnName != "" {
			return pgErr.ColumnName, true
		}
		return columnFromConstraint(pgErr.TableName, pgErr.ConstraintName), true
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
			return columnFromSQLiteMessage(liteErr.Error()), true
		}
		return "", false
	}

	// Dialects with TranslateError enabled only leave the sentinel behind.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}
	// SQLite errors that lost their type on the way up.
	if strings.Contains(err.Error(), sqliteUniqueFailedPrefix) {
		return columnFromSQLiteMessage(err.Error()), true
	}
	return "", false
}

// columnFromConstraint derives a column from a constraint name as generated
// by GORM (uni_users_email, idx_users_email) or PostgreSQL (users_email_key).
func columnFromConstraint(table, constraint string) string {
	if table == "" {
		table = usersTable
	}
	name := constraint
	for _, prefix := range []string{"uni_", "idx_"} {
		name = strings.TrimPrefix(name, prefix)
	}
	name = strings.TrimPrefix(name, table+"_")
	name = strings.TrimSuffix(name, "_key")
	return name
}

// columnFromSQLiteMessage extracts the first column of
// "UNIQUE constraint failed: users.email".
func columnFromSQLiteMessage(msg string) string {
	idx := strings.LastIndex(msg, sqliteUniqueFailedPrefix)
	if idx < 0 {
		return ""
	}
	rest := msg[idx+len(sqliteUniqueFailedPrefix):]
	if end := strings.IndexAny(rest, ", ("); end >= 0 {
		rest = rest[:end]
	}
	if dot := strings.LastIndex(rest, "."); dot >= 0 {
		rest = rest[dot+1:]
	}
	return rest
}
