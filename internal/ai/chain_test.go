package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

type fakeAI struct {
	calls  int
	err    error
	script models.ScriptResult
	block  bool
}

func (f *fakeAI) Generate(ctx context.Context, prompt models.Prompt) (models.ScriptResult, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return models.ScriptResult{}, ctx.Err()
	}
	if f.err != nil {
		return models.ScriptResult{}, f.err
	}
	return f.script, nil
}

func okScript(model string) models.ScriptResult {
	return NewScript("hook", "body", "cta", models.ScriptMetadata{Provider: "self-reported", Model: model})
}

var testItem = models.ContentItem{ID: "c1", Title: "Honey never spoils", Body: "Archaeologists found edible honey in tombs."}

func newChain(providers ...provider.NamedAI) *Chain {
	return NewChain(providers, ChainOptions{AttemptTimeout: time.Second, Style: StyleHinglish}, logging.Nop())
}

func TestChain_FirstSuccessWins(t *testing.T) {
	first := &fakeAI{script: okScript("m1")}
	second := &fakeAI{script: okScript("m2")}
	chain := newChain(provider.NamedAI{Name: "groq", Provider: first}, provider.NamedAI{Name: "openai", Provider: second})

	script, err := chain.Generate(context.Background(), testItem)
	require.NoError(t, err)
	assert.Equal(t, "groq", script.Metadata.Provider)
	assert.Equal(t, "m1", script.Metadata.Model)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestChain_FallsThroughRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"auth failure", provider.Classify(&provider.StatusError{StatusCode: 401})},
		{"rate limited", provider.ErrRateLimited},
		{"unavailable", provider.Classify(&provider.StatusError{StatusCode: 503})},
		{"timeout", provider.ErrProviderTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failing := &fakeAI{err: tt.err}
			working := &fakeAI{script: okScript("m2")}
			chain := newChain(provider.NamedAI{Name: "openai", Provider: failing}, provider.NamedAI{Name: "groq", Provider: working})

			script, err := chain.Generate(context.Background(), testItem)
			require.NoError(t, err)
			assert.Equal(t, "groq", script.Metadata.Provider)
			assert.Equal(t, 1, failing.calls)
			assert.Equal(t, 1, working.calls)
		})
	}
}

func TestChain_UnsupportedAborts(t *testing.T) {
	first := &fakeAI{err: provider.ErrUnsupportedContent}
	second := &fakeAI{script: okScript("m2")}
	chain := newChain(provider.NamedAI{Name: "openai", Provider: first}, provider.NamedAI{Name: "groq", Provider: second})

	_, err := chain.Generate(context.Background(), testItem)
	require.Error(t, err)

	var aborted *AbortedError
	require.True(t, errors.As(err, &aborted))
	assert.Equal(t, "openai", aborted.Provider)
	assert.True(t, errors.Is(err, provider.ErrUnsupportedContent))
	assert.Equal(t, 0, second.calls)
}

func TestChain_UnclassifiedAborts(t *testing.T) {
	first := &fakeAI{err: errors.New("malformed prompt")}
	second := &fakeAI{script: okScript("m2")}
	chain := newChain(provider.NamedAI{Name: "openai", Provider: first}, provider.NamedAI{Name: "groq", Provider: second})

	_, err := chain.Generate(context.Background(), testItem)
	var aborted *AbortedError
	assert.True(t, errors.As(err, &aborted))
	assert.Equal(t, 0, second.calls)
}

func TestChain_Exhausted(t *testing.T) {
	chain := newChain(
		provider.NamedAI{Name: "groq", Provider: &fakeAI{err: provider.ErrRateLimited}},
		provider.NamedAI{Name: "openai", Provider: &fakeAI{err: provider.ErrProviderUnavailable}},
	)

	_, err := chain.Generate(context.Background(), testItem)
	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Len(t, exhausted.Failures, 2)
	assert.Equal(t, "groq", exhausted.Failures[0].Provider)
	assert.Equal(t, "openai", exhausted.Failures[1].Provider)
	assert.True(t, errors.Is(err, provider.ErrRateLimited))
	assert.True(t, errors.Is(err, provider.ErrProviderUnavailable))
	assert.Contains(t, err.Error(), "groq")
}

func TestChain_AttemptTimeout(t *testing.T) {
	slow := &fakeAI{block: true}
	fast := &fakeAI{script: okScript("m2")}
	chain := NewChain([]provider.NamedAI{
		{Name: "slow", Provider: slow},
		{Name: "fast", Provider: fast},
	}, ChainOptions{AttemptTimeout: 20 * time.Millisecond}, logging.Nop())

	script, err := chain.Generate(context.Background(), testItem)
	require.NoError(t, err)
	assert.Equal(t, "fast", script.Metadata.Provider)
}

func TestChain_EmptyScriptFallsThrough(t *testing.T) {
	empty := &fakeAI{script: models.ScriptResult{}}
	working := &fakeAI{script: okScript("m2")}
	chain := newChain(provider.NamedAI{Name: "empty", Provider: empty}, provider.NamedAI{Name: "working", Provider: working})

	script, err := chain.Generate(context.Background(), testItem)
	require.NoError(t, err)
	assert.Equal(t, "working", script.Metadata.Provider)
}

func TestChain_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	first := &fakeAI{script: okScript("m1")}
	_, err := newChain(provider.NamedAI{Name: "groq", Provider: first}).Generate(ctx, testItem)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, first.calls)
}

func TestChain_TemplateAsLastResort(t *testing.T) {
	chain := newChain(
		provider.NamedAI{Name: "groq", Provider: &fakeAI{err: provider.ErrRateLimited}},
		provider.NamedAI{Name: "template", Provider: NewTemplateProvider()},
	)

	script, err := chain.Generate(context.Background(), testItem)
	require.NoError(t, err)
	assert.Equal(t, "template", script.Metadata.Provider)
	assert.Contains(t, script.Hook, "Honey never spoils")
	assert.Equal(t, testItem.Body, script.Body)
	assert.Equal(t, "Like aur share karo!", script.CTA)
}
