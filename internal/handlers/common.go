package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// isDuplicate recognizes unique-constraint violations across drivers.
// TranslateError maps most of them to gorm.ErrDuplicatedKey; the substring
// checks cover drivers that slip through.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

func isNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// idParam reads the :id path parameter.
func idParam(r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// likePattern builds the case-insensitive substring pattern used with
// lower(col) LIKE ?.
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
