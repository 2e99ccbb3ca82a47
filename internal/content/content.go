// Package content fetches source material for scripts: quotes, facts and
// reddit stories.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "shortforge/1.0"
	titleLength      = 50
)

// Options are shared by every content provider
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string
	// Pick chooses an index in [0, n) for curated fallbacks
	Pick func(n int) int
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.Pick == nil {
		o.Pick = rand.IntN
	}
	return o
}

// getJSON fetches url and decodes the body into dest
func getJSON(ctx context.Context, opts Options, url string, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := opts.HTTPClient.Do(req)
	if err != nil {
		return provider.Classify(err)
	}
	defer resp.Body.Close()

	if err := provider.CheckResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode %s: %w", provider.ErrProviderUnavailable, url, err)
	}
	return nil
}

// newItem builds an item whose id is stable for the same text
func newItem(kind, prefix, text, source string, score float64) models.ContentItem {
	text = strings.TrimSpace(text)
	return models.ContentItem{
		ID:        prefix + "_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(text)).String()[:8],
		Type:      kind,
		Title:     title(text),
		Body:      text,
		Source:    source,
		Score:     score,
		CreatedAt: time.Now(),
	}
}

func title(text string) string {
	if utf8.RuneCountInString(text) <= titleLength {
		return text
	}
	return strings.TrimSpace(string([]rune(text)[:titleLength])) + "..."
}

func clampScore(score float64) float64 {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// Custom wraps a caller supplied topic as a content item
func Custom(topic string) models.ContentItem {
	return newItem(models.ContentTypeCustom, "custom", topic, "Custom topic", 70)
}
