package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock aborts an order whose line cannot be fulfilled.
	ErrInsufficientStock = errors.New("insufficient stock")
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Page normalizes 1-based paging input into offset and limit.
func Page(page, limit int) (offset, size int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return (page - 1) * limit, limit
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches term literally anywhere in a LIKE/ILIKE operand.
// Backslash is the default LIKE escape in postgres.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
