// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
	"github.com/AleutianAI/AleutianLocaleQA/services/llm"
)

// Loader fetches a persisted index for a (kb_version, locale) pair. A nil
// index with nil error means no index exists for that pair.
type Loader func(ctx context.Context, kbVersion, locale string) (*Index, error)

// Registry owns the published retrieval indexes, keyed by
// (kb_version, locale). Loads for the same key are deduplicated; an index is
// published only after it is fully prepared, so readers never observe a
// half-built index.
type Registry struct {
	loader Loader

	mu      sync.RWMutex
	indexes map[string]*Index

	group singleflight.Group
}

// NewRegistry builds a registry over the given loader.
func NewRegistry(loader Loader) *Registry {
	return &Registry{
		loader:  loader,
		indexes: make(map[string]*Index),
	}
}

func key(kbVersion, locale string) string {
	return kbVersion + "|" + locale
}

// Get returns the published index for the pair, loading it once on first
// use. A missing index is (nil, nil), not an error.
func (r *Registry) Get(ctx context.Context, kbVersion, locale string) (*Index, error) {
	k := key(kbVersion, locale)

	r.mu.RLock()
	idx, ok := r.indexes[k]
	r.mu.RUnlock()
	if ok {
		return idx, nil
	}

	v, err, _ := r.group.Do(k, func() (any, error) {
		loaded, err := r.loader(ctx, kbVersion, locale)
		if err != nil {
			return nil, fmt.Errorf("loading index %s: %w", k, err)
		}
		if loaded == nil {
			slog.Debug("no retrieval index for pair", "kb_version", kbVersion, "locale", locale)
			return (*Index)(nil), nil
		}
		loaded.Prepare()
		r.mu.Lock()
		r.indexes[k] = loaded
		r.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Publish replaces the in-memory index for its pair. Called after a
// knowledge base is (re)registered and its index rebuilt.
func (r *Registry) Publish(idx *Index) {
	r.mu.Lock()
	r.indexes[key(idx.KBVersion, idx.Locale)] = idx
	r.mu.Unlock()
	slog.Info("published retrieval index",
		"kb_version", idx.KBVersion, "locale", idx.Locale, "rules", len(idx.Rules))
}

// Searcher runs hybrid queries through the registry, embedding query text on
// demand.
type Searcher struct {
	registry *Registry
	embedder llm.Embedder
	topK     int
}

// NewSearcher wires a registry and an embedder with a default result size.
func NewSearcher(registry *Registry, embedder llm.Embedder, topK int) *Searcher {
	return &Searcher{registry: registry, embedder: embedder, topK: topK}
}

// HybridSearch embeds the query and ranks rules from the pair's index. An
// absent index yields an empty result, not an error; only embedding failures
// surface as errors.
func (s *Searcher) HybridSearch(ctx context.Context, query, kbVersion, locale string, macroClass datatypes.MacroClass) ([]datatypes.RankedRule, error) {
	idx, err := s.registry.Get(ctx, kbVersion, locale)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return []datatypes.RankedRule{}, nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", datatypes.ErrExternalService, err)
	}
	return idx.Search(vecs[0], query, s.topK, macroClass), nil
}
