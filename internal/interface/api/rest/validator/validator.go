package validator

import (
	"errors"
	"strconv"
	"strings"

	"lego-filestore/internal/domain/file_association"
)

const maxListLimit = 1000

var (
	ErrInvalidID    = errors.New("id must be a positive integer")
	ErrInvalidLimit = errors.New("limit must be an integer between 1 and 1000")
	ErrEmptyPath    = errors.New("path is required")
)

// ParseID accepts positive decimal ids only.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

func ParseOwner(kind, id string) (file_association.OwnerRef, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return file_association.OwnerRef{}, file_association.ErrInvalidOwner
	}
	return file_association.NewOwnerRef(kind, n)
}

// ParseLimit returns 0 for an empty value so the gateway default applies.
func ParseLimit(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxListLimit {
		return 0, ErrInvalidLimit
	}
	return n, nil
}

func RequirePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", ErrEmptyPath
	}
	return p, nil
}

// IDs converts raw ids, rejecting any non-positive entry.
func IDs[T ~int64](raw []int64) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, id := range raw {
		if id <= 0 {
			return nil, ErrInvalidID
		}
		out = append(out, T(id))
	}
	return out, nil
}
