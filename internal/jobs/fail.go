package jobs

import (
	"context"

	"github.com/rs/zerolog/log"
)

// ErrorWriter persists a job failure to the backing store. The handlers
// provide an implementation bound to their store client.
type ErrorWriter func(ctx context.Context, jobID, errMsg string) error

// Fail logs the failure and delegates persistence to the provided writer so
// every handler records job errors the same way.
func Fail(ctx context.Context, jobID, msg string, write ErrorWriter) error {
	log.Error().
		Str("job", jobID).
		Str("error", msg).
		Msg("Job failed")
	return write(ctx, jobID, msg)
}
