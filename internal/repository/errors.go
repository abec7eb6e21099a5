package repository

import (
	"errors"
	"strings"

	"dropview/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// uniqueFields lists user columns with unique indexes, most specific first.
var uniqueFields = []string{"referral_code", "username", "phone"}

// isUniqueConstraintError detects unique violations from Postgres (SQLSTATE 23505) and sqlite.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// duplicateField names the column behind a unique violation, or "" if unknown.
func duplicateField(err error) string {
	source := err.Error()
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		source = pgErr.ConstraintName + " " + pgErr.Detail
	}
	source = strings.ToLower(source)
	for _, f := range uniqueFields {
		if strings.Contains(source, f) {
			return f
		}
	}
	return ""
}

// translateUserWriteError converts unique violations into DUPLICATE_IDENTITY errors naming the field.
func translateUserWriteError(err error) error {
	if !isUniqueConstraintError(err) {
		return err
	}
	field := duplicateField(err)
	if field == "" {
		field = "account"
	}
	return &models.AppError{
		Code:    models.CodeDuplicateIdentity,
		Message: models.NewDuplicateIdentityError(field).Message,
		Details: []string{field},
		Err:     err,
	}
}
