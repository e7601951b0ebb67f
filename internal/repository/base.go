// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"revline/internal/middleware"
	"revline/internal/models"
	"revline/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

// likeEscape is the escape character declared by every LIKE in this package.
const likeEscape = `\`

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

// mapError converts a driver error into an AppError for resource/id.
func mapError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// containsPattern lowercases q and wraps it for a case-insensitive substring LIKE,
// escaping the wildcards so user input only ever matches literally.
func containsPattern(q string) string {
	q = strings.ToLower(q)
	q = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_").Replace(q)
	return "%" + q + "%"
}

// likeAny builds "LOWER(a) LIKE ? ESCAPE '\' OR LOWER(b) LIKE ? ..." and its args.
func likeAny(pattern string, columns ...string) (string, []any) {
	clauses := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		clauses[i] = "LOWER(" + col + ") LIKE ? ESCAPE '" + likeEscape + "'"
		args[i] = pattern
	}
	return strings.Join(clauses, " OR "), args
}

// decrementGuarded lowers column by one on the row with the given id, never below zero.
// A skipped decrement means the stored counter had already drifted; it is logged
// and counted rather than clamped silently.
func decrementGuarded(tx *gorm.DB, model any, id uint, column string, field models.CounterField) error {
	res := tx.Model(model).
		Where("id = ? AND "+column+" > 0", id).
		UpdateColumn(column, gorm.Expr(column+" - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		middleware.Logger.WarnContext(tx.Statement.Context, "counter decrement skipped at zero",
			"field", string(field),
			"id", id,
		)
		observability.RecordCounterDrift(string(field), 1)
	}
	return nil
}

func increment(tx *gorm.DB, model any, id uint, column string) error {
	return tx.Model(model).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}
