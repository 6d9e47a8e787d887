// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scoring merges findings into a final score. Aggregation is a pure
// function of its inputs so overrides can recompute it at any time.
package scoring

import (
	"strings"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
)

// qualityMacro maps quality-assessor issue types to macro classes.
var qualityMacro = map[string]datatypes.MacroClass{
	"script_mixing":         datatypes.MacroAccuracy,
	"accuracy_error":        datatypes.MacroAccuracy,
	"completeness_error":    datatypes.MacroAccuracy,
	"grammar_error":         datatypes.MacroAccuracy,
	"terminology_error":     datatypes.MacroTerminology,
	"professionalism_error": datatypes.MacroStyle,
}

// QualityMacroClass resolves a quality-assessor issue type to its macro
// class.
func QualityMacroClass(issueType string) (datatypes.MacroClass, bool) {
	m, ok := qualityMacro[strings.ToLower(issueType)]
	return m, ok
}

// keywordClasses is the ordered fallback table for rule ids that are not in
// the knowledge base. First keyword hit wins; anything unmatched is Style.
var keywordClasses = []struct {
	keywords []string
	class    datatypes.MacroClass
}{
	{[]string{"PUNCT", "EXCL", "COMMA"}, datatypes.MacroPunctuation},
	{[]string{"TERM", "GLOSS"}, datatypes.MacroTerminology},
	{[]string{"DATE", "PLACEHOLDER", "TAG"}, datatypes.MacroMechanics},
	{[]string{"LEGAL"}, datatypes.MacroLegal},
	{[]string{"ACCURACY", "MEANING"}, datatypes.MacroAccuracy},
}

// MacroClassFor classifies a finding's rule id. A knowledge-base rule wins
// outright; synthetic QUALITY_* ids use the quality table; everything else
// goes through the keyword table. The function is total: every id gets a
// class.
func MacroClassFor(ruleID string, rules map[string]datatypes.Rule) datatypes.MacroClass {
	if r, ok := rules[ruleID]; ok {
		return r.MacroClass
	}
	upper := strings.ToUpper(ruleID)
	if issueType, ok := strings.CutPrefix(upper, "QUALITY_"); ok {
		if m, found := QualityMacroClass(issueType); found {
			return m
		}
	}
	for _, entry := range keywordClasses {
		for _, kw := range entry.keywords {
			if strings.Contains(upper, kw) {
				return entry.class
			}
		}
	}
	return datatypes.MacroStyle
}

// Aggregator computes final scores under the joint Style+Punctuation cap.
type Aggregator struct {
	stylePunctuationCap int
}

// NewAggregator returns an aggregator with the given joint cap.
func NewAggregator(stylePunctuationCap int) *Aggregator {
	return &Aggregator{stylePunctuationCap: stylePunctuationCap}
}

// Aggregate sums finding penalties per macro class and derives the final
// score.
//
// Dismissed findings are excluded. When the combined Style and Punctuation
// raw penalty exceeds the cap, the excess is subtracted from the total and
// each of the two classes is clamped to half the cap in the reported
// breakdown; the capped total stays authoritative. The final score is
// max(0, 100 − total).
func (a *Aggregator) Aggregate(findings []datatypes.Finding, rules map[string]datatypes.Rule) (int, map[string]datatypes.ScoreBreakdown) {
	byMacro := make(map[string]datatypes.ScoreBreakdown)
	total := 0
	for _, f := range findings {
		if f.Dismissed {
			continue
		}
		class := string(MacroClassFor(f.RuleID, rules))
		b := byMacro[class]
		b.Penalty += f.Penalty
		b.Count++
		b.RulesTriggered = append(b.RulesTriggered, f.RuleID)
		byMacro[class] = b
		total += f.Penalty
	}

	style := byMacro[string(datatypes.MacroStyle)]
	punct := byMacro[string(datatypes.MacroPunctuation)]
	if joint := style.Penalty + punct.Penalty; joint > a.stylePunctuationCap {
		total -= joint - a.stylePunctuationCap
		half := a.stylePunctuationCap / 2
		if style.Penalty > half {
			style.Penalty = half
			byMacro[string(datatypes.MacroStyle)] = style
		}
		if punct.Penalty > half {
			punct.Penalty = half
			byMacro[string(datatypes.MacroPunctuation)] = punct
		}
	}

	final := 100 - total
	if final < 0 {
		final = 0
	}
	return final, byMacro
}
