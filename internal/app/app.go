// Package app builds the process-wide object graph once at startup and
// tears it down at exit.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/ai"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/assembly"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/background"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/cache"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/catalog"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/database"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/storage"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/transcoder"
)

// Index backends
const (
	IndexFile  = "file"
	IndexRedis = "redis"
)

// App holds everything a binary needs. Construct it with New and release it
// with Close.
type App struct {
	Config       *config.Config
	Logger       *logging.Logger
	Registry     *provider.Registry
	Set          *provider.Set
	FFmpeg       *transcoder.FFmpeg
	Backgrounds  *background.Cache
	Chain        *ai.Chain
	Engine       *assembly.Engine
	Orchestrator *pipeline.Orchestrator
	Records      database.Store
	Redis        *cache.Cache // nil unless the redis index is selected

	closers []func() error
}

// New wires the provider set, background cache and orchestrator from cfg
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: provider.NewRegistry(),
		FFmpeg:   transcoder.NewFFmpeg(cfg.App.FFmpegPath, cfg.App.FFprobePath),
	}

	if err := catalog.Register(a.Registry, cfg, catalog.Deps{FFmpeg: a.FFmpeg, Logger: logger}); err != nil {
		return nil, err
	}

	set, err := a.Registry.BuildSet(catalog.Selection(cfg), func(kind provider.Kind, err error) {
		logger.WithProvider(kind.Name).WithError(err).Warn("AI provider unavailable, dropped from chain")
	})
	if err != nil {
		_ = a.Registry.Close()
		return nil, fmt.Errorf("build provider set: %w", err)
	}
	a.Set = set
	a.closers = append(a.closers, set.Close)

	if records, ok := set.Store.(database.Store); ok {
		a.Records = records
	}

	if err := a.buildBackgrounds(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Chain = ai.NewChain(set.AI, ai.ChainOptions{
		AttemptTimeout: cfg.AI.Timeout,
		Style:          cfg.AI.Style,
	}, logger.WithField("component", "ai"))

	if err := a.buildEngine(); err != nil {
		_ = a.Close()
		return nil, err
	}

	width, height := cfg.Video.Dimensions()
	deps := pipeline.Deps{
		Content:   set.Content,
		Writer:    a.Chain,
		TTS:       set.TTS,
		Assembler: a.Engine,
		Store:     set.Store,
	}
	if a.Backgrounds != nil {
		deps.Backgrounds = a.Backgrounds
	}
	a.Orchestrator, err = pipeline.New(deps, pipeline.Options{
		Width:      width,
		Height:     height,
		FrameRate:  cfg.Video.FrameRate,
		Voice:      cfg.TTS.Voice,
		Categories: cfg.Background.Categories,
		Captions:   cfg.Video.Captions,
		Watermark:  cfg.Video.Watermark,
	}, logger.WithField("component", "pipeline"))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"content":    cfg.Content.Provider,
		"ai":         strings.Join(set.AINames(), ","),
		"tts":        cfg.TTS.Provider,
		"background": cfg.Background.Source,
		"store":      cfg.Database.Driver,
	}).Info("Provider set ready")

	return a, nil
}

func (a *App) buildBackgrounds() error {
	cfg := a.Config.Background
	if a.Set.Background == nil {
		a.Logger.Info("No background source configured, videos use gradients")
		return nil
	}

	var index background.Index
	switch strings.ToLower(cfg.Index) {
	case "", IndexFile:
		fileIndex, err := background.OpenFileIndex(filepath.Join(cfg.CacheDir, "index.json"))
		if err != nil {
			return fmt.Errorf("open background index: %w", err)
		}
		index = fileIndex
	case IndexRedis:
		redis, err := cache.NewCache(a.Config.Redis)
		if err != nil {
			return fmt.Errorf("connect background index: %w", err)
		}
		a.Redis = redis
		a.closers = append(a.closers, redis.Close)
		index = redis.BackgroundIndex()
	default:
		return fmt.Errorf("unknown background index %q", cfg.Index)
	}

	a.Backgrounds = background.NewCache(a.Set.Background, index, a.FFmpeg, background.Options{
		Dir:             cfg.CacheDir,
		Granularity:     cfg.Granularity,
		MinClipDuration: cfg.MinClipDuration,
		TTL:             cfg.TTL,
		MaxEntries:      cfg.MaxEntries,
		FetchTimeout:    cfg.DownloadTimeout,
	}, a.Logger.WithField("component", "background"))

	if cfg.Mirror {
		mirror, err := storage.New(a.Config.Storage, a.Logger.WithField("component", "storage"))
		if err != nil {
			return fmt.Errorf("connect background mirror: %w", err)
		}
		a.Backgrounds.WithMirror(mirror)
	}

	return nil
}

func (a *App) buildEngine() error {
	video := a.Config.Video

	top, err := transcoder.ParseHexColor(video.GradientTop)
	if err != nil {
		return fmt.Errorf("video.gradientTop: %w", err)
	}
	bottom, err := transcoder.ParseHexColor(video.GradientBottom)
	if err != nil {
		return fmt.Errorf("video.gradientBottom: %w", err)
	}

	a.Engine = assembly.NewEngine(a.FFmpeg, assembly.Options{
		OutputDir:      a.Config.App.OutputDir,
		TempDir:        a.Config.App.TempDir,
		VideoCodec:     video.VideoCodec,
		AudioCodec:     video.AudioCodec,
		AudioBitrate:   video.AudioBitrate,
		Preset:         video.Preset,
		CRF:            video.CRF,
		Threads:        video.Threads,
		GradientTop:    top,
		GradientBottom: bottom,
	}, a.Logger.WithField("component", "assembly"))
	return nil
}

// Pool returns a worker pool over the orchestrator sized by app.workers
func (a *App) Pool() *pipeline.Pool {
	return pipeline.NewPool(a.Orchestrator, a.Config.App.Workers)
}

// Health checks the record store and, when used, redis
func (a *App) Health(ctx context.Context) error {
	var errs []error
	if a.Records != nil {
		if err := a.Records.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases everything New built, newest first
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
