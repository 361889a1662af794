// Package copywrite generates short promotional descriptions for planned
// trailer variants with Gemini. Copy generation is best-effort: a failure
// leaves the variant's static description in place and never fails the job.
package copywrite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/trailer-forge/internal/jsonutil"
)

// DefaultModelName balances speed and quality for one-line copy.
const DefaultModelName = "gemini-2.5-flash"

const systemPrompt = `You are a film marketing copywriter. For each trailer variant you receive,
write one punchy sentence (max 20 words) that sells the trailer to viewers.
Respond with a JSON array of objects: [{"name": "...", "description": "..."}].
Use only the provided variant names. No markdown, no extra commentary.`

// VariantBrief is the per-variant input to copy generation. It carries plain
// values so callers can build briefs from any variant representation.
type VariantBrief struct {
	Name     string
	Emphasis string
	Labels   []string
	Emotions []string
	People   []string
	Duration float64
}

type variantCopy struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Writer generates variant descriptions through a Gemini client.
type Writer struct {
	client *genai.Client
	model  string
}

// NewWriter creates a Writer for the given API key. The model defaults to
// DefaultModelName when empty.
func NewWriter(ctx context.Context, apiKey, model string) (*Writer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &Writer{client: client, model: model}, nil
}

// Describe returns a description per variant name. Missing or unparseable
// model output yields a partial (possibly empty) map, never an error for
// individual variants.
func (w *Writer) Describe(ctx context.Context, audience string, briefs []VariantBrief) (map[string]string, error) {
	if len(briefs) == 0 {
		return map[string]string{}, nil
	}

	prompt := buildPrompt(audience, briefs)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}

	callStart := time.Now()
	resp, err := w.client.Models.GenerateContent(ctx, w.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate variant copy: %w", err)
	}
	if resp == nil || resp.Text() == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	log.Debug().
		Str("model", w.model).
		Int("response_length", len(resp.Text())).
		Dur("duration", time.Since(callStart)).
		Msg("Variant copy response received")

	parsed, err := jsonutil.ParseJSON[[]variantCopy](resp.Text())
	if err != nil {
		return nil, fmt.Errorf("parse variant copy: %w", err)
	}

	known := make(map[string]bool, len(briefs))
	for _, b := range briefs {
		known[b.Name] = true
	}
	result := make(map[string]string, len(parsed))
	for _, vc := range parsed {
		if known[vc.Name] && vc.Description != "" {
			result[vc.Name] = vc.Description
		}
	}
	return result, nil
}

func buildPrompt(audience string, briefs []VariantBrief) string {
	var b strings.Builder
	if audience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n\n", audience)
	}
	for _, brief := range briefs {
		fmt.Fprintf(&b, "Variant %q (%s, %.0fs):\n", brief.Name, brief.Emphasis, brief.Duration)
		if len(brief.Labels) > 0 {
			fmt.Fprintf(&b, "  visuals: %s\n", strings.Join(brief.Labels, ", "))
		}
		if len(brief.Emotions) > 0 {
			fmt.Fprintf(&b, "  mood: %s\n", strings.Join(brief.Emotions, ", "))
		}
		if len(brief.People) > 0 {
			fmt.Fprintf(&b, "  featuring: %s\n", strings.Join(brief.People, ", "))
		}
	}
	return b.String()
}
