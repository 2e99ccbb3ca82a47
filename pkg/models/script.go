package models

// Prompt is the input to an AI provider
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
	Topic  string `json:"topic"`
	Style  string `json:"style"`
}

// ScriptMetadata identifies who produced a script
type ScriptMetadata struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// ScriptResult is the narration script for one video
type ScriptResult struct {
	Hook       string         `json:"hook"`
	Body       string         `json:"body"`
	CTA        string         `json:"cta"`
	FullScript string         `json:"full_script"`
	Metadata   ScriptMetadata `json:"metadata"`
}

// Narration returns the text to be spoken, falling back to the joined sections
func (s ScriptResult) Narration() string {
	if s.FullScript != "" {
		return s.FullScript
	}
	text := s.Hook
	for _, part := range []string{s.Body, s.CTA} {
		if part == "" {
			continue
		}
		if text != "" {
			text += " "
		}
		text += part
	}
	return text
}
