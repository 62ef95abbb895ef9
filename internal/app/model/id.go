package model

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a prefixed, url-safe identifier such as "view_3f2a...".
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
