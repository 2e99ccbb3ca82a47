package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/ai"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/content"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/database"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "records.db")
	cfg.App.AudioDir = t.TempDir()
	cfg.AI.OpenAI.APIKey = ""
	cfg.AI.Groq.APIKey = ""
	cfg.AI.OpenRouter.APIKey = ""
	cfg.TTS.ElevenLabs.APIKey = ""
	return cfg
}

func newRegistry(t *testing.T, cfg *config.Config) *provider.Registry {
	t.Helper()
	r := provider.NewRegistry()
	require.NoError(t, Register(r, cfg, Deps{}))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRegister_Names(t *testing.T) {
	r := newRegistry(t, testConfig(t))

	assert.Equal(t, []string{"facts", "quotes", "reddit"}, r.Names(provider.CategoryContent))
	assert.Equal(t, []string{"groq", "openai", "openrouter", "template"}, r.Names(provider.CategoryAI))
	assert.Equal(t, []string{"edge", "elevenlabs", "espeak"}, r.Names(provider.CategoryTTS))
	assert.Equal(t, []string{"local", "pexels"}, r.Names(provider.CategoryBackground))
	assert.Equal(t, []string{"postgres", "sqlite"}, r.Names(provider.CategoryStore))
}

func TestRegister_Twice(t *testing.T) {
	cfg := testConfig(t)
	r := newRegistry(t, cfg)
	assert.ErrorIs(t, Register(r, cfg, Deps{}), provider.ErrDuplicateKind)
}

func TestRegister_LazyConstruction(t *testing.T) {
	r := newRegistry(t, testConfig(t))

	assert.False(t, r.Built(provider.Kind{Category: provider.CategoryStore, Name: "sqlite"}))

	p, err := provider.Resolve[provider.ContentProvider](r, provider.CategoryContent, "facts")
	require.NoError(t, err)
	assert.IsType(t, &content.FactsProvider{}, p)
	assert.True(t, r.Built(provider.Kind{Category: provider.CategoryContent, Name: "facts"}))
}

func TestRegister_MissingCredentials(t *testing.T) {
	r := newRegistry(t, testConfig(t))

	_, err := r.Resolve(provider.CategoryAI, "openai")
	var initErr *provider.InitError
	require.ErrorAs(t, err, &initErr)
	assert.ErrorIs(t, err, ai.ErrMissingAPIKey)

	_, err = r.Resolve(provider.CategoryTTS, "elevenlabs")
	assert.ErrorAs(t, err, &initErr)
}

func TestBuildSet_FromDefaults(t *testing.T) {
	cfg := testConfig(t)
	r := newRegistry(t, cfg)

	var skipped []string
	set, err := r.BuildSet(Selection(cfg), func(kind provider.Kind, err error) {
		skipped = append(skipped, kind.Name)
	})
	require.NoError(t, err)

	// Both keyed providers lack credentials, so only the offline template remains
	assert.Equal(t, []string{"groq", "openai"}, skipped)
	assert.Equal(t, []string{"template"}, set.AINames())
	assert.NotNil(t, set.Content)
	assert.NotNil(t, set.TTS)
	assert.NotNil(t, set.Background)

	store, ok := set.Store.(database.Store)
	require.True(t, ok)
	assert.NoError(t, store.Health(context.Background()))
	assert.NoError(t, set.Close())
}

func TestBuildSet_LocalBackgroundMissingDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Background.Source = "local"
	cfg.Background.LocalDir = filepath.Join(t.TempDir(), "missing")
	r := newRegistry(t, cfg)

	_, err := r.BuildSet(Selection(cfg), nil)
	var initErr *provider.InitError
	assert.ErrorAs(t, err, &initErr)
}
