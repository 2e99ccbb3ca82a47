package content

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// Default quote endpoints, tried in order
var DefaultQuoteAPIs = []string{
	"https://api.quotable.io/random",
	"https://zenquotes.io/api/random",
}

var curatedQuotes = []string{
	"Sapne woh nahi jo neend mein aaye, sapne woh hain jo neend ude de.",
	"Koshish karne walon ki kabhi haar nahi hoti.",
	"Haar kar jeetne wale ko hi baazigar kehte hain.",
	"Mushkil waqt mein sabse bada support aapka hausla hai.",
	"Success ka shortcut sirf hardwork hai.",
	"Apni galtiyon se seekho aur aage badho.",
	"Confidence aur patience success ki key hain.",
	"Apne goals par focus karo, baaki sab automatically hoga.",
	"Life mein risk lena zaroori hai, tabhi aage badhoge.",
	"Positive soch rakhoge toh zindagi asaan ho jayegi.",
}

const curatedQuoteScore = 75

var quotePowerWords = []string{"success", "dream", "life", "love", "change", "believe", "sapne", "koshish", "jeet"}

// QuotesProvider fetches a quote from public APIs, falling back to a curated list
type QuotesProvider struct {
	apis        []string
	curatedOnly bool
	opts        Options
	logger      *logging.Logger
}

// NewQuotesProvider creates a quotes provider. Empty apis use DefaultQuoteAPIs.
func NewQuotesProvider(apis []string, curatedOnly bool, opts Options, logger *logging.Logger) *QuotesProvider {
	if len(apis) == 0 {
		apis = DefaultQuoteAPIs
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &QuotesProvider{apis: apis, curatedOnly: curatedOnly, opts: opts.withDefaults(), logger: logger}
}

// quotePayload covers both the quotable and zenquotes shapes
type quotePayload struct {
	Content string `json:"content"`
	Q       string `json:"q"`
	Quote   string `json:"quote"`
	Author  string `json:"author"`
	A       string `json:"a"`
}

func (q quotePayload) text() string {
	for _, s := range []string{q.Content, q.Q, q.Quote} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func (q quotePayload) author() string {
	for _, s := range []string{q.Author, q.A} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return "Unknown"
}

// Fetch returns one quote. It only fails when ctx is done.
func (p *QuotesProvider) Fetch(ctx context.Context) (models.ContentItem, error) {
	if !p.curatedOnly {
		for _, api := range p.apis {
			quote, err := p.fetchAPI(ctx, api)
			if err != nil {
				if ctx.Err() != nil {
					return models.ContentItem{}, ctx.Err()
				}
				p.logger.WithError(err).Warnf("quote api %s failed", api)
				continue
			}
			if text := quote.text(); text != "" {
				return newItem(models.ContentTypeQuote, "quote", text, "Quote by "+quote.author(), ScoreQuote(text)), nil
			}
		}
		p.logger.Warn("using curated quotes")
	}

	if err := ctx.Err(); err != nil {
		return models.ContentItem{}, err
	}
	text := curatedQuotes[p.opts.Pick(len(curatedQuotes))]
	return newItem(models.ContentTypeQuote, "curated", text, "Curated Hinglish", curatedQuoteScore), nil
}

// fetchAPI decodes either a single object or a one-element array
func (p *QuotesProvider) fetchAPI(ctx context.Context, url string) (quotePayload, error) {
	var raw json.RawMessage
	if err := getJSON(ctx, p.opts, url, &raw); err != nil {
		return quotePayload{}, err
	}

	var list []quotePayload
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return quotePayload{}, nil
		}
		return list[0], nil
	}
	var single quotePayload
	err := json.Unmarshal(raw, &single)
	return single, err
}

// ScoreQuote rates shareability: short quotes and power words score higher
func ScoreQuote(quote string) float64 {
	score := 60.0
	switch n := len(quote); {
	case n < 100:
		score += 20
	case n < 150:
		score += 10
	}

	lower := strings.ToLower(quote)
	for _, word := range quotePowerWords {
		if strings.Contains(lower, word) {
			score += 5
		}
	}
	return clampScore(score)
}
