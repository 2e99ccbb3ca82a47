package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig
	Logging    LoggingConfig
	Content    ContentConfig
	AI         AIConfig
	TTS        TTSConfig
	Video      VideoConfig
	Background BackgroundConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Queue      QueueConfig
	Metrics    MetricsConfig
	Tracing    TracingConfig
	Server     ServerConfig
}

// AppConfig holds process-wide paths and tool locations
type AppConfig struct {
	Name        string
	OutputDir   string
	AudioDir    string
	TempDir     string
	Workers     int
	FFmpegPath  string
	FFprobePath string
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// ContentConfig selects and tunes the content provider
type ContentConfig struct {
	Provider    string
	Language    string
	Timeout     time.Duration
	CuratedOnly bool
	Reddit      RedditConfig
}

// RedditConfig holds reddit content settings
type RedditConfig struct {
	Subreddits []string
	MinUpvotes int
	UserAgent  string
	BaseURL    string
}

// AIConfig holds the fallback order and per-provider endpoints
type AIConfig struct {
	Providers  []string
	Timeout    time.Duration
	Style      string
	Language   string
	OpenAI     EndpointConfig
	Groq       EndpointConfig
	OpenRouter EndpointConfig
}

// EndpointConfig describes an OpenAI-compatible chat endpoint
type EndpointConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Structured  bool
}

// TTSConfig selects and tunes the speech provider
type TTSConfig struct {
	Provider   string
	Voice      string
	Timeout    time.Duration
	EdgePath   string
	EspeakPath string
	ElevenLabs ElevenLabsConfig
}

// ElevenLabsConfig holds ElevenLabs API settings
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	VoiceID string
	Model   string
}

// VideoConfig holds composition and export settings
type VideoConfig struct {
	Resolution     string
	FrameRate      float64
	VideoCodec     string
	AudioCodec     string
	AudioBitrate   string
	Preset         string
	CRF            int
	Threads        int
	GradientTop    string
	GradientBottom string
	Captions       CaptionConfig
	Watermark      WatermarkConfig
}

// CaptionConfig controls the hook caption overlay
type CaptionConfig struct {
	Enabled      bool
	FontFile     string
	FontSize     int
	FontColor    string
	BorderColor  string
	BorderWidth  int
	WordsPerLine int
	MaxLines     int
	Start        float64
	MaxDuration  float64
	Position     string
}

// WatermarkConfig controls an optional text watermark
type WatermarkConfig struct {
	Text     string
	Position string
	FontSize int
	Opacity  float64
}

// BackgroundConfig holds background source and cache settings
type BackgroundConfig struct {
	Source          string
	Categories      []string
	CacheDir        string
	Granularity     int
	MinClipDuration float64
	TTL             time.Duration
	MaxEntries      int
	Index           string
	Mirror          bool
	Timeout         time.Duration
	DownloadTimeout time.Duration
	LocalDir        string
	Pexels          PexelsConfig
}

// PexelsConfig holds Pexels API settings
type PexelsConfig struct {
	APIKey  string
	BaseURL string
	PerPage int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string
	Path     string
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	Prefix          string
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
	Name     string
}

// MetricsConfig holds metrics server configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// TracingConfig holds tracer configuration
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	JWTSecret       string
	RateLimit       int
	RateBurst       int
	StatusTTL       time.Duration
}

// Load reads configuration from an optional file and environment variables.
// An empty path yields defaults plus environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks settings the pipeline cannot run without
func (c *Config) Validate() error {
	var errs []error

	if _, _, err := models.ParseResolution(c.Video.Resolution); err != nil {
		errs = append(errs, fmt.Errorf("video.resolution: %w", err))
	}
	if c.Video.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("video.frameRate must be positive, got %v", c.Video.FrameRate))
	}
	if len(c.AI.Providers) == 0 {
		errs = append(errs, errors.New("ai.providers must name at least one provider"))
	}
	if c.Background.Granularity <= 0 {
		errs = append(errs, fmt.Errorf("background.granularity must be positive, got %d", c.Background.Granularity))
	}
	if c.App.Workers <= 0 {
		errs = append(errs, fmt.Errorf("app.workers must be positive, got %d", c.App.Workers))
	}

	return errors.Join(errs...)
}

// Dimensions returns the configured output width and height
func (v VideoConfig) Dimensions() (int, int) {
	w, h, err := models.ParseResolution(v.Resolution)
	if err != nil {
		return 0, 0
	}
	return w, h
}

// bindEnv maps conventional provider variables onto config keys
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("ai.openai.apiKey", "OPENAI_API_KEY")
	_ = v.BindEnv("ai.groq.apiKey", "GROQ_API_KEY")
	_ = v.BindEnv("ai.openrouter.apiKey", "OPENROUTER_API_KEY")
	_ = v.BindEnv("background.pexels.apiKey", "PEXELS_API_KEY")
	_ = v.BindEnv("tts.elevenlabs.apiKey", "ELEVENLABS_API_KEY")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("server.jwtSecret", "JWT_SECRET")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "shortforge")
	v.SetDefault("app.outputDir", "output/videos")
	v.SetDefault("app.audioDir", "output/audio")
	v.SetDefault("app.tempDir", "/tmp/shortforge")
	v.SetDefault("app.workers", 1)
	v.SetDefault("app.ffmpegPath", "ffmpeg")
	v.SetDefault("app.ffprobePath", "ffprobe")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	// Content defaults
	v.SetDefault("content.provider", "quotes")
	v.SetDefault("content.language", "en")
	v.SetDefault("content.timeout", "10s")
	v.SetDefault("content.curatedOnly", false)
	v.SetDefault("content.reddit.subreddits", []string{"todayilearned", "Showerthoughts"})
	v.SetDefault("content.reddit.minUpvotes", 1000)
	v.SetDefault("content.reddit.userAgent", "shortforge/1.0")
	v.SetDefault("content.reddit.baseURL", "https://www.reddit.com")

	// AI defaults
	v.SetDefault("ai.providers", []string{"groq", "openai", "template"})
	v.SetDefault("ai.timeout", "45s")
	v.SetDefault("ai.style", "hinglish")
	v.SetDefault("ai.language", "hi")
	v.SetDefault("ai.openai.baseURL", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.maxTokens", 500)
	v.SetDefault("ai.openai.temperature", 0.7)
	v.SetDefault("ai.openai.structured", true)
	v.SetDefault("ai.groq.baseURL", "https://api.groq.com/openai/v1")
	v.SetDefault("ai.groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("ai.groq.maxTokens", 500)
	v.SetDefault("ai.groq.temperature", 0.7)
	v.SetDefault("ai.groq.structured", false)
	v.SetDefault("ai.openrouter.baseURL", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.openrouter.model", "meta-llama/llama-3.3-70b-instruct")
	v.SetDefault("ai.openrouter.maxTokens", 500)
	v.SetDefault("ai.openrouter.temperature", 0.7)
	v.SetDefault("ai.openrouter.structured", false)

	// TTS defaults
	v.SetDefault("tts.provider", "edge")
	v.SetDefault("tts.voice", "hi")
	v.SetDefault("tts.timeout", "60s")
	v.SetDefault("tts.edgePath", "edge-tts")
	v.SetDefault("tts.espeakPath", "espeak-ng")
	v.SetDefault("tts.elevenlabs.baseURL", "https://api.elevenlabs.io/v1")
	v.SetDefault("tts.elevenlabs.voiceID", "21m00Tcm4TlvDq8ikWAM")
	v.SetDefault("tts.elevenlabs.model", "eleven_multilingual_v2")

	// Video defaults
	v.SetDefault("video.resolution", "1080x1920")
	v.SetDefault("video.frameRate", 30)
	v.SetDefault("video.videoCodec", "libx264")
	v.SetDefault("video.audioCodec", "aac")
	v.SetDefault("video.audioBitrate", "128k")
	v.SetDefault("video.preset", "ultrafast")
	v.SetDefault("video.crf", 23)
	v.SetDefault("video.threads", 2)
	v.SetDefault("video.gradientTop", "#19193c")
	v.SetDefault("video.gradientBottom", "#3c193c")
	v.SetDefault("video.captions.enabled", true)
	v.SetDefault("video.captions.fontFile", "")
	v.SetDefault("video.captions.fontSize", 70)
	v.SetDefault("video.captions.fontColor", "white")
	v.SetDefault("video.captions.borderColor", "black")
	v.SetDefault("video.captions.borderWidth", 4)
	v.SetDefault("video.captions.wordsPerLine", 6)
	v.SetDefault("video.captions.maxLines", 4)
	v.SetDefault("video.captions.start", 0.5)
	v.SetDefault("video.captions.maxDuration", 5.0)
	v.SetDefault("video.captions.position", "center")
	v.SetDefault("video.watermark.text", "")
	v.SetDefault("video.watermark.position", "bottom-right")
	v.SetDefault("video.watermark.fontSize", 36)
	v.SetDefault("video.watermark.opacity", 0.6)

	// Background defaults
	v.SetDefault("background.source", "pexels")
	v.SetDefault("background.categories", []string{"satisfying", "nature"})
	v.SetDefault("background.cacheDir", "cache/backgrounds")
	v.SetDefault("background.granularity", 15)
	v.SetDefault("background.minClipDuration", 3.0)
	v.SetDefault("background.ttl", "168h")
	v.SetDefault("background.maxEntries", 200)
	v.SetDefault("background.index", "file")
	v.SetDefault("background.mirror", false)
	v.SetDefault("background.timeout", "30s")
	v.SetDefault("background.downloadTimeout", "60s")
	v.SetDefault("background.localDir", "assets/backgrounds")
	v.SetDefault("background.pexels.baseURL", "https://api.pexels.com/videos")
	v.SetDefault("background.pexels.perPage", 15)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/shortforge.db")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "shortforge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxConns", 10)
	v.SetDefault("database.minConns", 1)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "shortforge")

	// Storage defaults
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.accessKeyID", "minioadmin")
	v.SetDefault("storage.secretAccessKey", "minioadmin")
	v.SetDefault("storage.bucketName", "backgrounds")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.useSSL", false)
	v.SetDefault("storage.prefix", "backgrounds")

	// Queue defaults
	v.SetDefault("queue.host", "localhost")
	v.SetDefault("queue.port", 5672)
	v.SetDefault("queue.user", "guest")
	v.SetDefault("queue.password", "guest")
	v.SetDefault("queue.vhost", "/")
	v.SetDefault("queue.name", "shortforge_runs")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "shortforge")
	v.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "30s")
	v.SetDefault("server.shutdownTimeout", "10s")
	v.SetDefault("server.jwtSecret", "")
	v.SetDefault("server.rateLimit", 2)
	v.SetDefault("server.rateBurst", 5)
	v.SetDefault("server.statusTTL", "72h")
}
