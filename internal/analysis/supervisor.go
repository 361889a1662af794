package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/trailer-forge/internal/scene"
)

// DefaultPipelineDeadline bounds the whole analysis stage. It must stay
// strictly below any caller-side request timeout so the fallback result
// reaches the client instead of a gateway timeout.
const DefaultPipelineDeadline = 60 * time.Second

// Supervisor wraps a primary and a fallback provider with the whole-job
// degradation policy: any primary failure switches the ENTIRE job to the
// fallback. Partial results from the two providers are never mixed, and the
// expensive primary analysis is never retried at this level.
type Supervisor struct {
	primary  Provider // nil when only the synthetic provider is configured
	fallback Provider
	deadline time.Duration
}

// NewSupervisor builds the supervisor. primary may be nil to force synthetic
// analysis; fallback must not be nil. A non-positive deadline selects the
// default.
func NewSupervisor(primary, fallback Provider, deadline time.Duration) *Supervisor {
	if deadline <= 0 {
		deadline = DefaultPipelineDeadline
	}
	return &Supervisor{primary: primary, fallback: fallback, deadline: deadline}
}

// ActiveBackend reports which provider a new job would try first. Used by
// the health surface.
func (s *Supervisor) ActiveBackend() string {
	if s.primary != nil {
		return s.primary.Name()
	}
	return s.fallback.Name()
}

// Analyze runs the primary provider under the pipeline deadline, falling back
// to the synthetic provider on any analysis error. It returns the candidates
// together with the mode that actually produced them.
func (s *Supervisor) Analyze(ctx context.Context, req Request) ([]scene.Candidate, string, error) {
	if s.primary != nil {
		deadlineCtx, cancel := context.WithTimeout(ctx, s.deadline)
		candidates, err := s.primary.Analyze(deadlineCtx, req)
		cancel()
		if err == nil {
			return candidates, s.primary.Name(), nil
		}
		if ctx.Err() != nil {
			// The job itself was canceled; don't mask that with a
			// fallback run.
			return nil, "", timeoutErr("analysis", ctx.Err())
		}

		var aerr *Error
		kind := KindProvider
		if errors.As(err, &aerr) {
			kind = aerr.Kind
		}
		log.Warn().
			Err(err).
			Str("job", req.JobID).
			Str("kind", string(kind)).
			Str("primary", s.primary.Name()).
			Str("fallback", s.fallback.Name()).
			Msg("Primary analysis failed, switching whole job to fallback provider")
	}

	candidates, err := s.fallback.Analyze(ctx, req)
	if err != nil {
		return nil, "", err
	}
	return candidates, s.fallback.Name(), nil
}
