package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// TemplateProvider writes a script offline from fixed phrasing. It never
// fails for usable input, so it works as the last link in a chain.
type TemplateProvider struct{}

// NewTemplateProvider creates the offline provider
func NewTemplateProvider() *TemplateProvider {
	return &TemplateProvider{}
}

var templateHooks = map[string]string{
	StyleHinglish: "Ruko! Ye baat aapko pata honi chahiye: %s",
	StyleEnglish:  "Wait! You need to hear this: %s",
}

// Generate builds a script from the prompt topic. The details section of the
// prompt becomes the body.
func (t *TemplateProvider) Generate(ctx context.Context, prompt models.Prompt) (models.ScriptResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ScriptResult{}, err
	}

	topic := strings.TrimSpace(prompt.Topic)
	if topic == "" {
		return models.ScriptResult{}, fmt.Errorf("%w: template needs a topic", provider.ErrUnsupportedContent)
	}
	style := normalizeStyle(prompt.Style)

	body := promptDetails(prompt.User)
	if body == "" || body == topic {
		body = topic
	}

	hook := fmt.Sprintf(templateHooks[style], truncate(topic, 80))
	return NewScript(hook, body, defaultCTA[style], models.ScriptMetadata{Provider: "template", Model: "template-v1"}), nil
}

// promptDetails extracts the "Details:" line BuildPrompt writes
func promptDetails(user string) string {
	for _, line := range strings.Split(user, "\n") {
		if rest, ok := strings.CutPrefix(line, "Details:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
