// Package catalog is the startup registration table: every provider the
// binaries can select, keyed by category and name, with its constructor.
package catalog

import (
	"fmt"
	"net/http"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/ai"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/background"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/content"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/database"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/transcoder"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/tts"
)

// Deps are shared by the constructors
type Deps struct {
	FFmpeg     *transcoder.FFmpeg
	HTTPClient *http.Client
	Logger     *logging.Logger
}

type entry struct {
	kind provider.Kind
	ctor provider.Constructor
}

// Register adds every known provider to r. Nothing is constructed until
// a provider is resolved.
func Register(r *provider.Registry, cfg *config.Config, deps Deps) error {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.FFmpeg == nil {
		deps.FFmpeg = transcoder.NewFFmpeg(cfg.App.FFmpegPath, cfg.App.FFprobePath)
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{}
	}

	for _, e := range table(cfg, deps) {
		if err := r.Register(e.kind, e.ctor); err != nil {
			return err
		}
	}
	return nil
}

// Selection maps configuration onto registry names
func Selection(cfg *config.Config) provider.Selection {
	return provider.Selection{
		Content:    cfg.Content.Provider,
		AI:         cfg.AI.Providers,
		TTS:        cfg.TTS.Provider,
		Background: cfg.Background.Source,
		Store:      cfg.Database.Driver,
	}
}

func table(cfg *config.Config, deps Deps) []entry {
	contentOpts := content.Options{
		HTTPClient: deps.HTTPClient,
		Timeout:    cfg.Content.Timeout,
		UserAgent:  cfg.Content.Reddit.UserAgent,
	}
	contentLog := deps.Logger.WithField("category", "content")

	kind := func(c provider.Category, name string) provider.Kind {
		return provider.Kind{Category: c, Name: name}
	}
	endpoint := func(name string, ep config.EndpointConfig) entry {
		return entry{kind(provider.CategoryAI, name), func() (any, error) {
			return ai.NewOpenAIProvider(name, ep, ai.WithHTTPClient(deps.HTTPClient))
		}}
	}
	withTimeout := func(p provider.TTSProvider) provider.TTSProvider {
		return tts.WithTimeout(p, cfg.TTS.Timeout)
	}

	return []entry{
		// Content
		{kind(provider.CategoryContent, "quotes"), func() (any, error) {
			return content.NewQuotesProvider(nil, cfg.Content.CuratedOnly, contentOpts, contentLog), nil
		}},
		{kind(provider.CategoryContent, "facts"), func() (any, error) {
			return content.NewFactsProvider("", cfg.Content.CuratedOnly, contentOpts, contentLog), nil
		}},
		{kind(provider.CategoryContent, "reddit"), func() (any, error) {
			return content.NewRedditProvider(content.RedditConfig{
				BaseURL:    cfg.Content.Reddit.BaseURL,
				Subreddits: cfg.Content.Reddit.Subreddits,
				MinUpvotes: cfg.Content.Reddit.MinUpvotes,
			}, contentOpts, contentLog)
		}},

		// AI, tried in the configured order
		endpoint("openai", cfg.AI.OpenAI),
		endpoint("groq", cfg.AI.Groq),
		endpoint("openrouter", cfg.AI.OpenRouter),
		{kind(provider.CategoryAI, "template"), func() (any, error) {
			return ai.NewTemplateProvider(), nil
		}},

		// TTS
		{kind(provider.CategoryTTS, "edge"), func() (any, error) {
			return withTimeout(tts.NewEdgeProvider(cfg.TTS.EdgePath, cfg.App.AudioDir, cfg.TTS.Voice, tts.ExecRunner, deps.FFmpeg)), nil
		}},
		{kind(provider.CategoryTTS, "espeak"), func() (any, error) {
			return withTimeout(tts.NewEspeakProvider(cfg.TTS.EspeakPath, cfg.App.AudioDir, cfg.TTS.Voice, tts.ExecRunner, deps.FFmpeg)), nil
		}},
		{kind(provider.CategoryTTS, "elevenlabs"), func() (any, error) {
			p, err := tts.NewElevenLabsProvider(tts.ElevenLabsConfig{
				APIKey:  cfg.TTS.ElevenLabs.APIKey,
				BaseURL: cfg.TTS.ElevenLabs.BaseURL,
				VoiceID: cfg.TTS.ElevenLabs.VoiceID,
				Model:   cfg.TTS.ElevenLabs.Model,
				Timeout: cfg.TTS.Timeout,
			}, cfg.App.AudioDir, deps.HTTPClient, deps.FFmpeg)
			if err != nil {
				return nil, err
			}
			return p, nil
		}},

		// Background sources
		{kind(provider.CategoryBackground, "pexels"), func() (any, error) {
			return background.NewPexelsSource(background.PexelsConfig{
				APIKey:          cfg.Background.Pexels.APIKey,
				BaseURL:         cfg.Background.Pexels.BaseURL,
				PerPage:         cfg.Background.Pexels.PerPage,
				SearchTimeout:   cfg.Background.Timeout,
				DownloadTimeout: cfg.Background.DownloadTimeout,
			}, background.WithHTTPClient(deps.HTTPClient)), nil
		}},
		{kind(provider.CategoryBackground, "local"), func() (any, error) {
			src, err := background.NewLocalSource(cfg.Background.LocalDir, deps.FFmpeg)
			if err != nil {
				return nil, err
			}
			return src, nil
		}},

		// Record stores
		{kind(provider.CategoryStore, database.DriverSQLite), storeCtor(cfg.Database, database.DriverSQLite, deps.Logger)},
		{kind(provider.CategoryStore, database.DriverPostgres), storeCtor(cfg.Database, database.DriverPostgres, deps.Logger)},
	}
}

func storeCtor(cfg config.DatabaseConfig, driver string, logger *logging.Logger) provider.Constructor {
	return func() (any, error) {
		cfg.Driver = driver
		store, err := database.Open(cfg, logger.WithField("category", "store"))
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", driver, err)
		}
		return store, nil
	}
}
