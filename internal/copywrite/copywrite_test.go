package copywrite

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	briefs := []VariantBrief{
		{
			Name:     "finale",
			Emphasis: "late scenes",
			Duration: 28,
			Labels:   []string{"explosion", "city"},
			Emotions: []string{"surprised"},
			People:   []string{"Ana Torres"},
		},
		{Name: "heart", Emphasis: "middle scenes", Duration: 30},
	}

	prompt := buildPrompt("action fans", briefs)

	for _, want := range []string{"action fans", `"finale"`, "explosion, city", "surprised", "Ana Torres", `"heart"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "featuring: \n") {
		t.Error("empty people list should be omitted")
	}
}

func TestBuildPrompt_NoAudience(t *testing.T) {
	prompt := buildPrompt("", []VariantBrief{{Name: "balanced", Emphasis: "even mix", Duration: 30}})
	if strings.Contains(prompt, "Target audience") {
		t.Error("audience line should be omitted when empty")
	}
}
