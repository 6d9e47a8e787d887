// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
)

func TestMacroClassFor(t *testing.T) {
	rules := map[string]datatypes.Rule{
		"R-001": {RuleID: "R-001", MacroClass: datatypes.MacroLegal},
	}

	tests := []struct {
		ruleID string
		want   datatypes.MacroClass
	}{
		{"R-001", datatypes.MacroLegal},
		{"QUALITY_SCRIPT_MIXING", datatypes.MacroAccuracy},
		{"QUALITY_GRAMMAR_ERROR", datatypes.MacroAccuracy},
		{"QUALITY_TERMINOLOGY_ERROR", datatypes.MacroTerminology},
		{"QUALITY_PROFESSIONALISM_ERROR", datatypes.MacroStyle},
		{"PUNCT-005", datatypes.MacroPunctuation},
		{"EXCL-001", datatypes.MacroPunctuation},
		{"GLOSS-010", datatypes.MacroTerminology},
		{"PLACEHOLDER-1", datatypes.MacroMechanics},
		{"DATE-2", datatypes.MacroMechanics},
		{"LEGAL-9", datatypes.MacroLegal},
		{"MEANING-3", datatypes.MacroAccuracy},
		{"SOMETHING-ELSE", datatypes.MacroStyle},
	}
	for _, tt := range tests {
		t.Run(tt.ruleID, func(t *testing.T) {
			assert.Equal(t, tt.want, MacroClassFor(tt.ruleID, rules))
		})
	}
}

func finding(ruleID string, penalty int) datatypes.Finding {
	return datatypes.Finding{RuleID: ruleID, Penalty: penalty, Severity: datatypes.SeverityMinor}
}

func TestAggregateBasic(t *testing.T) {
	agg := NewAggregator(30)
	findings := []datatypes.Finding{
		finding("TERM-001", 8),
		finding("QUALITY_GRAMMAR_ERROR", 15),
	}

	final, byMacro := agg.Aggregate(findings, nil)
	assert.Equal(t, 77, final)
	require.Contains(t, byMacro, "Terminology")
	require.Contains(t, byMacro, "Accuracy")
	assert.Equal(t, 8, byMacro["Terminology"].Penalty)
	assert.Equal(t, []string{"TERM-001"}, byMacro["Terminology"].RulesTriggered)
	assert.Equal(t, 15, byMacro["Accuracy"].Penalty)
}

func TestAggregateStylePunctuationCap(t *testing.T) {
	// Style raw 20 plus Punctuation raw 15 exceeds the cap of 30 by 5:
	// the total drops by 5 and each class clamps to 15 in the breakdown.
	agg := NewAggregator(30)
	findings := []datatypes.Finding{
		finding("STYLE-001", 20),
		finding("PUNCT-001", 15),
	}

	final, byMacro := agg.Aggregate(findings, nil)
	assert.Equal(t, 100-30, final)
	assert.Equal(t, 15, byMacro["Style"].Penalty)
	assert.Equal(t, 15, byMacro["Punctuation"].Penalty)
	assert.Equal(t, 1, byMacro["Style"].Count)
}

func TestAggregateFloorsAtZero(t *testing.T) {
	agg := NewAggregator(30)
	findings := []datatypes.Finding{
		finding("LEGAL-001", 80),
		finding("ACCURACY-002", 40),
	}
	final, _ := agg.Aggregate(findings, nil)
	assert.Equal(t, 0, final)
}

func TestAggregateSkipsDismissed(t *testing.T) {
	agg := NewAggregator(30)
	dismissed := finding("TERM-001", 0)
	dismissed.Dismissed = true
	findings := []datatypes.Finding{dismissed, finding("LEGAL-002", 10)}

	final, byMacro := agg.Aggregate(findings, nil)
	assert.Equal(t, 90, final)
	assert.NotContains(t, byMacro, "Terminology")
}

func TestAggregateIdempotent(t *testing.T) {
	agg := NewAggregator(30)
	findings := []datatypes.Finding{
		finding("STYLE-001", 12),
		finding("PUNCT-002", 9),
		finding("TERM-003", 4),
	}
	final1, by1 := agg.Aggregate(findings, nil)
	final2, by2 := agg.Aggregate(findings, nil)
	assert.Equal(t, final1, final2)
	assert.Equal(t, by1, by2)
}

func TestAggregateMonotonicUnderDismissal(t *testing.T) {
	agg := NewAggregator(30)
	findings := []datatypes.Finding{
		finding("LEGAL-001", 10),
		finding("TERM-002", 6),
	}
	before, _ := agg.Aggregate(findings, nil)

	findings[0].Dismissed = true
	findings[0].Penalty = 0
	after, _ := agg.Aggregate(findings, nil)
	assert.Equal(t, before+10, after)
}
