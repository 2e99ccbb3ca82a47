package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// Script styles
const (
	StyleHinglish = "hinglish"
	StyleEnglish  = "english"
)

const maxPromptBody = 500

var systemPrompts = map[string]string{
	StyleHinglish: "You are a viral short-form content creator for an Indian audience. " +
		"You write energetic, relatable scripts in Hinglish (Hindi written in Latin script mixed with English).",
	StyleEnglish: "You are a viral short-form content creator. You write energetic, relatable scripts in plain English.",
}

var defaultCTA = map[string]string{
	StyleHinglish: "Like aur share karo!",
	StyleEnglish:  "Like and share if this surprised you!",
}

// BuildPrompt turns a content item into a scriptwriting prompt
func BuildPrompt(item models.ContentItem, style string) models.Prompt {
	style = normalizeStyle(style)

	body := truncate(strings.TrimSpace(item.Body), maxPromptBody)
	user := fmt.Sprintf(`Create a script based on:

Content: %s
Details: %s

Create:
1. HOOK (first 3 seconds) - attention grabber
2. BODY (main content) - value delivery
3. CTA (call to action) - engagement prompt

Label each section on its own line as HOOK:, BODY: and CTA:.
Keep it under 60 seconds when spoken. Be energetic and relatable!`, item.Title, body)

	return models.Prompt{
		System: systemPrompts[style],
		User:   user,
		Topic:  item.Title,
		Style:  style,
	}
}

func normalizeStyle(style string) string {
	style = strings.ToLower(strings.TrimSpace(style))
	if _, ok := systemPrompts[style]; !ok {
		return StyleHinglish
	}
	return style
}

// ParseScript splits a raw completion into HOOK, BODY and CTA sections.
// Missing sections fall back to the start of the text, the whole text, and
// a stock call to action.
func ParseScript(raw, style string) (hook, body, cta string) {
	hook = extractSection(raw, "HOOK", "BODY")
	body = extractSection(raw, "BODY", "CTA")
	cta = extractSection(raw, "CTA", "")

	text := strings.TrimSpace(raw)
	if hook == "" {
		hook = truncate(text, 100)
	}
	if body == "" {
		body = text
	}
	if cta == "" {
		cta = defaultCTA[normalizeStyle(style)]
	}
	return hook, body, cta
}

// NewScript assembles a result from its sections
func NewScript(hook, body, cta string, meta models.ScriptMetadata) models.ScriptResult {
	parts := make([]string, 0, 3)
	for _, p := range []string{hook, body, cta} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return models.ScriptResult{
		Hook:       strings.TrimSpace(hook),
		Body:       strings.TrimSpace(body),
		CTA:        strings.TrimSpace(cta),
		FullScript: strings.Join(parts, "\n\n"),
		Metadata:   meta,
	}
}

// extractSection returns the text after the start label up to the end label.
// Content on the label line after a colon counts as part of the section.
func extractSection(text, start, end string) string {
	upper := strings.ToUpper(text)
	startIdx := strings.Index(upper, start)
	if startIdx == -1 {
		return ""
	}

	contentIdx := startIdx + len(start)
	rest := text[contentIdx:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// "HOOK: text" keeps the text, "HOOK (3s)\n" skips the label line
		line := rest[:nl]
		if colon := strings.IndexByte(line, ':'); colon >= 0 && strings.TrimSpace(line[colon+1:]) != "" {
			contentIdx += colon + 1
		} else {
			contentIdx += nl + 1
		}
	} else if colon := strings.IndexByte(rest, ':'); colon >= 0 {
		contentIdx += colon + 1
	}

	endIdx := len(text)
	if end != "" {
		if i := strings.Index(upper[contentIdx:], end); i >= 0 {
			endIdx = contentIdx + i
		}
	}

	section := strings.TrimSpace(text[contentIdx:endIdx])
	return strings.Trim(section, "*#-: \n")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
