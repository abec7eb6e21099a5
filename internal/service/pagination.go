package service

import (
	"errors"

	"gorm.io/gorm"
)

// Page limits for the community feed and comment threads.
const (
	DefaultPostLimit    = 10
	MaxPostLimit        = 50
	DefaultCommentLimit = 20
	MaxCommentLimit     = 100
)

// normalizePage floors page at 1 and clamps limit to [1, maxLimit]. A zero limit means def.
func normalizePage(page, limit, def, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = def
	}
	return page, min(max(limit, 1), maxLimit)
}

func offsetFor(page, limit int) int {
	return (page - 1) * limit
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
