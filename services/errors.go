package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrInvalidUserID = errors.New("user id is required")
	ErrBadgeNotFound = errors.New("badge not found")
	ErrPathNotFound  = errors.New("career path not found")
	ErrInvalidBadge  = errors.New("invalid badge definition")

	ErrInvalidMissionID = errors.New("mission id is required")
	ErrInvalidXP        = errors.New("invalid mission xp")
)

// isDuplicateKey reports whether err is a unique-constraint violation.
// Drivers opened with TranslateError return gorm.ErrDuplicatedKey; the message
// checks cover connections opened without it.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "sqlstate 23505")
}
