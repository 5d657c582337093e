package gallery

import "testing"

func TestPromptTemplate_Prompt(t *testing.T) {
	tests := []struct {
		name     string
		template PromptTemplate
		label    string
		want     string
	}{
		{"default format", DefaultTemplate(), "Cat", "a photo of Cat"},
		{"human override", DefaultTemplate(), "Human", HumanPrompt},
		{"override is exact match", DefaultTemplate(), "human", "a photo of human"},
		{"empty format", PromptTemplate{}, "Dog", "a photo of Dog"},
		{"custom format", PromptTemplate{Format: "an image of a {label} in the wild"}, "Fox", "an image of a Fox in the wild"},
		{"format without placeholder", PromptTemplate{Format: "species:"}, "Owl", "species: Owl"},
		{"custom override", PromptTemplate{Overrides: map[string]string{"Owl": "a photo of an owl at night"}}, "Owl", "a photo of an owl at night"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.template.Prompt(tt.label); got != tt.want {
				t.Errorf("Prompt(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestPromptTemplate_PromptsPreservesOrder(t *testing.T) {
	got := DefaultTemplate().Prompts([]string{"Dog", "Human", "Cat"})
	want := []string{"a photo of Dog", HumanPrompt, "a photo of Cat"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Prompts()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
