package content

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// ErrNoPosts is returned when no subreddit had a post above the upvote floor
var ErrNoPosts = errors.New("no reddit posts above the upvote floor")

// RedditConfig configures the reddit provider
type RedditConfig struct {
	BaseURL    string
	Subreddits []string
	MinUpvotes int
	Limit      int
}

// RedditProvider picks the most viral recent post across subreddits
type RedditProvider struct {
	cfg    RedditConfig
	opts   Options
	logger *logging.Logger
}

// NewRedditProvider creates a reddit provider
func NewRedditProvider(cfg RedditConfig, opts Options, logger *logging.Logger) (*RedditProvider, error) {
	if len(cfg.Subreddits) == 0 {
		return nil, errors.New("reddit: no subreddits configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.reddit.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Limit <= 0 {
		cfg.Limit = 25
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &RedditProvider{cfg: cfg, opts: opts.withDefaults(), logger: logger}, nil
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Ups         int     `json:"ups"`
	NumComments int     `json:"num_comments"`
	Awards      int     `json:"total_awards_received"`
	CreatedUTC  float64 `json:"created_utc"`
	Over18      bool    `json:"over_18"`
	Stickied    bool    `json:"stickied"`
}

// Fetch returns the highest scoring post across the configured subreddits
func (p *RedditProvider) Fetch(ctx context.Context) (models.ContentItem, error) {
	var (
		best     *models.ContentItem
		lastErr  error
		failures int
	)

	for _, sub := range p.cfg.Subreddits {
		posts, err := p.top(ctx, sub)
		if err != nil {
			if ctx.Err() != nil {
				return models.ContentItem{}, ctx.Err()
			}
			p.logger.WithError(err).Warnf("failed to fetch r/%s", sub)
			lastErr = err
			failures++
			continue
		}

		for _, post := range posts {
			if post.Stickied || post.Over18 || post.Ups < p.cfg.MinUpvotes {
				continue
			}
			item := postItem(sub, post)
			if best == nil || item.Score > best.Score {
				best = &item
			}
		}
	}

	if best != nil {
		return *best, nil
	}
	if failures == len(p.cfg.Subreddits) && lastErr != nil {
		return models.ContentItem{}, fmt.Errorf("reddit: %w", lastErr)
	}
	return models.ContentItem{}, ErrNoPosts
}

func (p *RedditProvider) top(ctx context.Context, sub string) ([]redditPost, error) {
	u := fmt.Sprintf("%s/r/%s/top.json?%s", p.cfg.BaseURL, url.PathEscape(sub), url.Values{
		"t":     {"day"},
		"limit": {fmt.Sprint(p.cfg.Limit)},
	}.Encode())

	var listing redditListing
	if err := getJSON(ctx, p.opts, u, &listing); err != nil {
		return nil, err
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, c := range listing.Data.Children {
		posts = append(posts, c.Data)
	}
	return posts, nil
}

func postItem(sub string, post redditPost) models.ContentItem {
	body := strings.TrimSpace(post.Selftext)
	if body == "" {
		body = post.Title
	}
	created := time.Now()
	if post.CreatedUTC > 0 {
		created = time.Unix(int64(post.CreatedUTC), 0)
	}
	return models.ContentItem{
		ID:        "reddit_" + post.ID,
		Type:      models.ContentTypeStory,
		Title:     strings.TrimSpace(post.Title),
		Body:      body,
		Source:    "r/" + sub,
		Score:     ScorePost(post.Ups, post.NumComments, post.Awards),
		CreatedAt: created,
		Metadata:  models.Metadata{"ups": post.Ups, "comments": post.NumComments},
	}
}

// ScorePost weighs upvotes, comments and awards into a 0-100 score
func ScorePost(ups, comments, awards int) float64 {
	score := float64(ups)/1000*40 + float64(comments)/100*30 + float64(awards)*10
	return clampScore(score)
}

var _ provider.ContentProvider = (*RedditProvider)(nil)
