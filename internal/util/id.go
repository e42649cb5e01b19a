package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random identifier of the form prefix_<32 hex>. Prefixes
// tell record kinds apart in logs: "qn" for questionnaires, "es" for editor
// sessions.
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return raw
	}
	return prefix + "_" + raw
}
