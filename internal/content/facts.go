package content

import (
	"context"
	"strings"
	"unicode"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// DefaultFactsAPI returns one random fact per request
const DefaultFactsAPI = "https://uselessfacts.jsph.pl/random.json?language=en"

var curatedFacts = []string{
	"India hai duniya ka sabse bada democracy! 1.4 billion log voting karte hain.",
	"Shampoo ka invention India mein hua tha. Hinglish word 'champo' se aaya.",
	"Chess game ki shuruaat India mein hui thi, 6th century mein.",
	"Yoga ki origin India mein 5000 saal pehle hui thi.",
	"Zero ka invention India mein mathematician Aryabhatta ne kiya.",
	"India mein 22 official languages hain aur 1600+ dialects.",
	"Kumbh Mela space se bhi dikhta hai! Duniya ka sabse bada gathering.",
}

const curatedFactScore = 80

// FactsProvider fetches a random fact, falling back to a curated list
type FactsProvider struct {
	api         string
	curatedOnly bool
	opts        Options
	logger      *logging.Logger
}

// NewFactsProvider creates a facts provider. An empty api uses DefaultFactsAPI.
func NewFactsProvider(api string, curatedOnly bool, opts Options, logger *logging.Logger) *FactsProvider {
	if api == "" {
		api = DefaultFactsAPI
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &FactsProvider{api: api, curatedOnly: curatedOnly, opts: opts.withDefaults(), logger: logger}
}

// Fetch returns one fact. It only fails when ctx is done.
func (p *FactsProvider) Fetch(ctx context.Context) (models.ContentItem, error) {
	if !p.curatedOnly {
		var payload struct {
			Text string `json:"text"`
		}
		err := getJSON(ctx, p.opts, p.api, &payload)
		switch {
		case err == nil && strings.TrimSpace(payload.Text) != "":
			return newItem(models.ContentTypeFact, "fact", payload.Text, "UselessFacts API", ScoreFact(payload.Text)), nil
		case ctx.Err() != nil:
			return models.ContentItem{}, ctx.Err()
		case err != nil:
			p.logger.WithError(err).Warn("facts api failed, using curated facts")
		}
	}

	if err := ctx.Err(); err != nil {
		return models.ContentItem{}, err
	}
	text := curatedFacts[p.opts.Pick(len(curatedFacts))]
	return newItem(models.ContentTypeFact, "curated_fact", text, "Curated Indian Facts", curatedFactScore), nil
}

// ScoreFact rates a fact: short ones and ones with numbers score higher
func ScoreFact(fact string) float64 {
	score := 65.0
	if len(fact) < 100 {
		score += 15
	}
	if strings.IndexFunc(fact, unicode.IsDigit) >= 0 {
		score += 10
	}
	return clampScore(score)
}
