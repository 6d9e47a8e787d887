// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval implements the rule retrieval index: a hybrid
// semantic/keyword ranker over the rules of one knowledge base, plus a
// registry that owns one published index per (kb_version, locale).
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
	"github.com/AleutianAI/AleutianLocaleQA/services/llm"
)

// Weight split of the hybrid score. Semantic similarity dominates; keyword
// overlap keeps exact terminology matches from drowning.
const (
	semanticWeight = 0.7
	keywordWeight  = 0.3
)

// Index is the immutable retrieval structure for one knowledge base. Build it
// once, publish it, and share it read-only across requests.
type Index struct {
	KBVersion string           `json:"kb_version"`
	Locale    string           `json:"locale"`
	Rules     []datatypes.Rule `json:"rules"`
	Vectors   [][]float32      `json:"vectors"`

	tokens []map[string]struct{}
}

// DisplayText is the embedded representation of a rule: the rule text plus
// its positive and negative examples.
func DisplayText(r datatypes.Rule) string {
	var b strings.Builder
	b.WriteString(r.RuleText)
	if len(r.ExamplesPos) > 0 {
		b.WriteString(" Examples: ")
		b.WriteString(strings.Join(r.ExamplesPos, "; "))
	}
	if len(r.ExamplesNeg) > 0 {
		b.WriteString(" Avoid: ")
		b.WriteString(strings.Join(r.ExamplesNeg, "; "))
	}
	return b.String()
}

// BuildIndex embeds every rule's display text and returns a prepared index.
func BuildIndex(ctx context.Context, kb datatypes.KnowledgeBase, embedder llm.Embedder) (*Index, error) {
	texts := make([]string, len(kb.Rules))
	for i, r := range kb.Rules {
		texts[i] = DisplayText(r)
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %d rules for kb %s/%s: %v",
			datatypes.ErrExternalService, len(kb.Rules), kb.KBVersion, kb.Locale, err)
	}
	idx := &Index{
		KBVersion: kb.KBVersion,
		Locale:    kb.Locale,
		Rules:     kb.Rules,
		Vectors:   vectors,
	}
	idx.Prepare()
	return idx, nil
}

// Prepare builds the derived keyword token sets. Must be called after
// deserializing an index and before the first Search; BuildIndex calls it.
func (idx *Index) Prepare() {
	idx.tokens = make([]map[string]struct{}, len(idx.Rules))
	for i, r := range idx.Rules {
		idx.tokens[i] = tokenize(DisplayText(r))
	}
}

// Search ranks the index's rules against an already-embedded query.
//
// Score is semanticWeight·cosine + keywordWeight·(query tokens found in the
// rule / query token count). Ties keep knowledge-base rule order. A non-empty
// macroClass restricts candidates to that class.
func (idx *Index) Search(queryVec []float32, queryText string, topK int, macroClass datatypes.MacroClass) []datatypes.RankedRule {
	queryTokens := tokenize(queryText)

	ranked := make([]datatypes.RankedRule, 0, len(idx.Rules))
	for i, r := range idx.Rules {
		if macroClass != "" && r.MacroClass != macroClass {
			continue
		}
		sem := Cosine(queryVec, idx.Vectors[i])
		kw := overlap(queryTokens, idx.tokens[i])
		ranked = append(ranked, datatypes.RankedRule{
			Rule:         r,
			Score:        semanticWeight*sem + keywordWeight*kw,
			SemanticSim:  sem,
			KeywordScore: kw,
		})
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Score > ranked[b].Score })
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// FindSimilar returns the rules whose pure cosine similarity against the
// query vector meets the threshold, descending. The knowledge-base loader
// uses this for near-duplicate detection at registration time.
func (idx *Index) FindSimilar(queryVec []float32, threshold float64) []datatypes.RankedRule {
	var ranked []datatypes.RankedRule
	for i, r := range idx.Rules {
		sim := Cosine(queryVec, idx.Vectors[i])
		if sim >= threshold {
			ranked = append(ranked, datatypes.RankedRule{Rule: r, Score: sim, SemanticSim: sim})
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Score > ranked[b].Score })
	return ranked
}

func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// overlap is |query ∩ rule| / max(|query|, 1).
func overlap(query, rule map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for tok := range query {
		if _, ok := rule[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

// Cosine is the cosine similarity of two vectors; mismatched or zero-norm
// inputs score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
