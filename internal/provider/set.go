package provider

import (
	"errors"
	"fmt"
)

// Selection names the provider chosen for each stage
type Selection struct {
	Content    string
	AI         []string
	TTS        string
	Background string
	Store      string
}

// NamedAI is an AI provider tagged with its registry name
type NamedAI struct {
	Name     string
	Provider AIProvider
}

// Set is the provider set for the process lifetime
type Set struct {
	Content    ContentProvider
	AI         []NamedAI
	TTS        TTSProvider
	Background BackgroundSource
	Store      Store

	registry *Registry
}

// SkipFunc is told about AI providers left out of the chain
type SkipFunc func(kind Kind, err error)

// BuildSet resolves every provider in sel. AI providers that fail to
// initialize are skipped and reported through skip, unless none succeed.
// An empty background name leaves Background nil.
func (r *Registry) BuildSet(sel Selection, skip SkipFunc) (*Set, error) {
	set := &Set{registry: r}

	var err error
	if set.Content, err = Resolve[ContentProvider](r, CategoryContent, sel.Content); err != nil {
		return nil, err
	}

	if len(sel.AI) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoProviderForSet, CategoryAI)
	}
	var aiErrs []error
	for _, name := range sel.AI {
		p, err := Resolve[AIProvider](r, CategoryAI, name)
		if err != nil {
			var initErr *InitError
			if errors.As(err, &initErr) {
				aiErrs = append(aiErrs, err)
				if skip != nil {
					skip(initErr.Kind, initErr.Err)
				}
				continue
			}
			return nil, err
		}
		set.AI = append(set.AI, NamedAI{Name: name, Provider: p})
	}
	if len(set.AI) == 0 {
		return nil, fmt.Errorf("%w: every ai provider failed to initialize: %w", ErrNoProviderForSet, errors.Join(aiErrs...))
	}

	if set.TTS, err = Resolve[TTSProvider](r, CategoryTTS, sel.TTS); err != nil {
		return nil, err
	}

	if sel.Background != "" {
		if set.Background, err = Resolve[BackgroundSource](r, CategoryBackground, sel.Background); err != nil {
			return nil, err
		}
	}

	if set.Store, err = Resolve[Store](r, CategoryStore, sel.Store); err != nil {
		return nil, err
	}

	return set, nil
}

// AINames returns the chain order
func (s *Set) AINames() []string {
	names := make([]string, len(s.AI))
	for i, p := range s.AI {
		names[i] = p.Name
	}
	return names
}

// Close releases every provider the set's registry built
func (s *Set) Close() error {
	if s == nil || s.registry == nil {
		return nil
	}
	return s.registry.Close()
}
