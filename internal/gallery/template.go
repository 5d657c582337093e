package gallery

import "strings"

// LabelPlaceholder is replaced by the label in a prompt format.
const LabelPlaceholder = "{label}"

// DefaultFormat is the CLIP zero-shot prompt used for every label without an override.
const DefaultFormat = "a photo of " + LabelPlaceholder

// HumanPrompt is the default override for the "Human" label. A plain "a photo of Human" sits far
// from photographs of people in CLIP space, so the label is described instead.
const HumanPrompt = "a photo of a human person man woman child Homo sapiens"

// PromptTemplate maps a label to the text embedded for it. It is a pure function of the label.
type PromptTemplate struct {
	Format    string            `yaml:"format" json:"format"`
	Overrides map[string]string `yaml:"overrides" json:"overrides,omitempty"`
}

// DefaultTemplate returns the default template with the Human override.
func DefaultTemplate() PromptTemplate {
	return PromptTemplate{
		Format:    DefaultFormat,
		Overrides: map[string]string{"Human": HumanPrompt},
	}
}

// Prompt returns the prompt for label.
func (t PromptTemplate) Prompt(label string) string {
	if p, ok := t.Overrides[label]; ok {
		return p
	}
	format := t.Format
	if format == "" {
		format = DefaultFormat
	}
	if !strings.Contains(format, LabelPlaceholder) {
		return format + " " + label
	}
	return strings.ReplaceAll(format, LabelPlaceholder, label)
}

// Prompts applies the template to every label, preserving order.
func (t PromptTemplate) Prompts(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = t.Prompt(l)
	}
	return out
}
