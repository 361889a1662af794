package profile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// ParameterGetter is the slice of the SSM client used here, so override
// loading can be exercised without AWS.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadOverrides parses a JSON document of the form {"profileId": {...}} and
// patches the store. Unknown IDs create new profiles.
func (s *StaticStore) LoadOverrides(data []byte) error {
	var overrides map[string]Profile
	if err := json.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse profile overrides: %w", err)
	}
	s.apply(overrides)
	log.Info().Int("profiles", len(overrides)).Msg("Profile overrides applied")
	return nil
}

// LoadOverridesFromSSM reads the override document from an SSM parameter at
// cold start. A missing or empty parameter name is not an error; the built-in
// personas simply stand.
func (s *StaticStore) LoadOverridesFromSSM(ctx context.Context, client ParameterGetter, param string) error {
	if param == "" {
		return nil
	}
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{Name: &param})
	if err != nil {
		return fmt.Errorf("read profile overrides from SSM %s: %w", param, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return nil
	}
	return s.LoadOverrides([]byte(*result.Parameter.Value))
}
