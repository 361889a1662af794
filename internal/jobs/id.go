// Package jobs provides shared helpers for trailer job identity, routing,
// and failure handling used by the API and worker Lambdas.
package jobs

import (
	"strings"

	"github.com/google/uuid"
)

// IDPrefix namespaces trailer job IDs so they are recognisable in logs and
// store keys.
const IDPrefix = "trailer-"

// GenerateID creates a new random job ID, e.g. "trailer-1b9d6bcd-...".
func GenerateID() string {
	return IDPrefix + uuid.NewString()
}

// NormalizeID ensures the ID carries the trailer prefix. Clients may pass
// either the full ID or just the UUID portion.
func NormalizeID(id string) string {
	if strings.HasPrefix(id, IDPrefix) {
		return id
	}
	return IDPrefix + id
}
