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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
)

// fakeEmbedder returns canned vectors keyed by exact text, falling back to a
// fixed default vector.
type fakeEmbedder struct {
	mu     sync.Mutex
	byText map[string][]float32
	def    []float32
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.byText[t]; ok {
			out[i] = v
		} else {
			out[i] = f.def
		}
	}
	return out, nil
}

func testRules() []datatypes.Rule {
	return []datatypes.Rule{
		{RuleID: "PUNCT-001", MacroClass: datatypes.MacroPunctuation,
			RuleText: "Use full-width punctuation marks."},
		{RuleID: "TERM-002", MacroClass: datatypes.MacroTerminology,
			RuleText:    "Translate server as 服务器.",
			ExamplesPos: []string{"服务器已重启"},
			ExamplesNeg: []string{"Server 已重启"}},
		{RuleID: "STYLE-003", MacroClass: datatypes.MacroStyle,
			RuleText: "Keep sentences concise."},
	}
}

func TestDisplayText(t *testing.T) {
	r := testRules()[1]
	assert.Equal(t,
		"Translate server as 服务器. Examples: 服务器已重启 Avoid: Server 已重启",
		DisplayText(r))

	bare := testRules()[0]
	assert.Equal(t, "Use full-width punctuation marks.", DisplayText(bare))
}

func TestSearchHybridRanking(t *testing.T) {
	kb := datatypes.KnowledgeBase{KBVersion: "1.0.0", Locale: "zh-CN", Rules: testRules()}
	emb := &fakeEmbedder{
		byText: map[string][]float32{
			DisplayText(kb.Rules[0]): {1, 0, 0},
			DisplayText(kb.Rules[1]): {0, 1, 0},
			DisplayText(kb.Rules[2]): {0, 0, 1},
		},
		def: []float32{0, 0, 0},
	}
	idx, err := BuildIndex(context.Background(), kb, emb)
	require.NoError(t, err)

	// Query vector aligned with TERM-002, query text mentioning "server".
	results := idx.Search([]float32{0, 1, 0}, "untranslated server term", 2, "")
	require.Len(t, results, 2)
	assert.Equal(t, "TERM-002", results[0].Rule.RuleID)
	assert.InDelta(t, 1.0, results[0].SemanticSim, 1e-9)
	assert.Greater(t, results[0].KeywordScore, 0.0)
	assert.InDelta(t, 0.7*1.0+0.3*results[0].KeywordScore, results[0].Score, 1e-9)
}

func TestSearchTieBreakKeepsRuleOrder(t *testing.T) {
	kb := datatypes.KnowledgeBase{KBVersion: "1.0.0", Locale: "zh-CN", Rules: testRules()}
	emb := &fakeEmbedder{def: []float32{1, 0, 0}}
	idx, err := BuildIndex(context.Background(), kb, emb)
	require.NoError(t, err)

	// Identical vectors everywhere and no keyword hits: all scores tie, so
	// knowledge-base order must be preserved.
	results := idx.Search([]float32{1, 0, 0}, "査詢", 0, "")
	require.Len(t, results, 3)
	assert.Equal(t, "PUNCT-001", results[0].Rule.RuleID)
	assert.Equal(t, "TERM-002", results[1].Rule.RuleID)
	assert.Equal(t, "STYLE-003", results[2].Rule.RuleID)
}

func TestSearchMacroClassFilter(t *testing.T) {
	kb := datatypes.KnowledgeBase{KBVersion: "1.0.0", Locale: "zh-CN", Rules: testRules()}
	emb := &fakeEmbedder{def: []float32{1, 0, 0}}
	idx, err := BuildIndex(context.Background(), kb, emb)
	require.NoError(t, err)

	results := idx.Search([]float32{1, 0, 0}, "anything", 0, datatypes.MacroTerminology)
	require.Len(t, results, 1)
	assert.Equal(t, "TERM-002", results[0].Rule.RuleID)
}

func TestFindSimilarThreshold(t *testing.T) {
	kb := datatypes.KnowledgeBase{KBVersion: "1.0.0", Locale: "zh-CN", Rules: testRules()}
	emb := &fakeEmbedder{
		byText: map[string][]float32{
			DisplayText(kb.Rules[0]): {1, 0, 0},
			DisplayText(kb.Rules[1]): {0.9, 0.1, 0},
			DisplayText(kb.Rules[2]): {0, 0, 1},
		},
		def: []float32{0, 0, 0},
	}
	idx, err := BuildIndex(context.Background(), kb, emb)
	require.NoError(t, err)

	similar := idx.FindSimilar([]float32{1, 0, 0}, 0.9)
	require.Len(t, similar, 2)
	assert.Equal(t, "PUNCT-001", similar[0].Rule.RuleID)
	assert.Equal(t, "TERM-002", similar[1].Rule.RuleID)
}

func TestHybridSearchAbsentIndexIsEmpty(t *testing.T) {
	reg := NewRegistry(func(_ context.Context, _, _ string) (*Index, error) {
		return nil, nil
	})
	s := NewSearcher(reg, &fakeEmbedder{def: []float32{1}}, 20)

	results, err := s.HybridSearch(context.Background(), "query", "9.9.9", "ja-JP", "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRegistryLoadsOnceAndPublishOverrides(t *testing.T) {
	loads := 0
	stored := &Index{KBVersion: "1.0.0", Locale: "zh-CN", Rules: testRules(),
		Vectors: [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
	reg := NewRegistry(func(_ context.Context, kbVersion, locale string) (*Index, error) {
		loads++
		return stored, nil
	})

	first, err := reg.Get(context.Background(), "1.0.0", "zh-CN")
	require.NoError(t, err)
	second, err := reg.Get(context.Background(), "1.0.0", "zh-CN")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, loads)

	replacement := &Index{KBVersion: "1.0.0", Locale: "zh-CN"}
	replacement.Prepare()
	reg.Publish(replacement)
	third, err := reg.Get(context.Background(), "1.0.0", "zh-CN")
	require.NoError(t, err)
	assert.Same(t, replacement, third)
}

func TestRegistryLoaderErrorSurfaces(t *testing.T) {
	boom := errors.New("disk on fire")
	reg := NewRegistry(func(_ context.Context, _, _ string) (*Index, error) {
		return nil, boom
	})
	_, err := reg.Get(context.Background(), "1.0.0", "zh-CN")
	assert.ErrorIs(t, err, boom)
}
