package prompts

import (
	"context"
	"sync"

	"video-uploader/internal/domain"
)

// fetcher is the narrow backend surface the provider depends on.
type fetcher interface {
	FetchPrompts(ctx context.Context) ([]domain.TranscriptionPrompt, error)
}

// Provider fetches the prompt list once and serves cached lookups.
// An empty or unloaded list is a normal state, not an error.
type Provider struct {
	backend fetcher

	once  sync.Once
	mu    sync.RWMutex
	list  []domain.TranscriptionPrompt
	err   error
	ready bool
}

// NewProvider creates a provider over the given backend.
func NewProvider(backend fetcher) *Provider {
	return &Provider{backend: backend}
}

// Load fetches the prompt list exactly once for the provider's lifetime.
// Subsequent calls return the cached list or the cached fetch error.
func (p *Provider) Load(ctx context.Context) ([]domain.TranscriptionPrompt, error) {
	p.once.Do(func() {
		list, err := p.backend.FetchPrompts(ctx)

		p.mu.Lock()
		p.list = list
		p.err = err
		p.ready = err == nil
		p.mu.Unlock()
	})

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.snapshotLocked(), nil
}

// List returns the cached prompt list, nil until Load has succeeded.
func (p *Provider) List() []domain.TranscriptionPrompt {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.ready {
		return nil
	}
	return p.snapshotLocked()
}

// ResolveTemplate looks up a prompt template by identifier. The second
// return is false when the id is unknown or the list has not loaded.
func (p *Provider) ResolveTemplate(id string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.ready {
		return "", false
	}

	for _, prompt := range p.list {
		if prompt.ID == id {
			return prompt.Template, true
		}
	}
	return "", false
}

// snapshotLocked copies the list so callers cannot mutate the cache.
func (p *Provider) snapshotLocked() []domain.TranscriptionPrompt {
	if p.list == nil {
		return nil
	}
	out := make([]domain.TranscriptionPrompt, len(p.list))
	copy(out, p.list)
	return out
}
