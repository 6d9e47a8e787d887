// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMacroClassUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MacroClass
		wantErr bool
	}{
		{name: "valid terminology", input: `"Terminology"`, want: MacroTerminology},
		{name: "valid legal", input: `"Legal"`, want: MacroLegal},
		{name: "unknown class", input: `"Typography"`, wantErr: true},
		{name: "wrong json type", input: `42`, wantErr: true},
		{name: "lowercase rejected", input: `"style"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got MacroClass
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeverityUnmarshal(t *testing.T) {
	var s Severity
	require.NoError(t, json.Unmarshal([]byte(`"Critical"`), &s))
	assert.Equal(t, SeverityCritical, s)

	err := json.Unmarshal([]byte(`"catastrophic"`), &s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFeedbackActionUnmarshal(t *testing.T) {
	var a FeedbackAction
	require.NoError(t, json.Unmarshal([]byte(`"change_severity"`), &a))
	assert.Equal(t, ActionChangeSeverity, a)

	err := json.Unmarshal([]byte(`"escalate"`), &a)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRuleRoundTrip(t *testing.T) {
	page := 12
	original := Rule{
		RuleID:     "PUNCT-001",
		MacroClass: MacroPunctuation,
		MicroClass: "fullwidth",
		RuleText:   "Use full-width punctuation in Simplified Chinese text.",
		ExamplesPos: []string{
			"你好，世界！",
		},
		ExamplesNeg: []string{
			"你好, 世界!",
		},
		DefaultSeverity: SeverityMajor,
		DefaultWeight:   2,
		Citation: Citation{
			SectionPath:  []string{"Punctuation", "Width"},
			PageNumber:   &page,
			DocumentName: "zh-CN Style Guide",
		},
		RegexReady:   true,
		RegexPattern: `[!,:;?()]`,
		CreatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Rule
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestScoreReportRoundTrip(t *testing.T) {
	updated := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	start, end := 4, 9
	original := ScoreReport{
		JobID:              "job-abc",
		KBVersion:          "2.1.0",
		RubricVersion:      "1.0.0",
		ModelPromptVersion: "1.0.0",
		FinalScore:         88,
		Findings: []Finding{
			{
				SegmentID:       "seg_1a2b3c4d",
				RuleID:          "TERM-004",
				Severity:        SeverityMajor,
				Penalty:         8,
				Justification:   "Glossary term rendered inconsistently.",
				Citation:        Citation{SectionPath: []string{"Terminology"}},
				SpanStart:       &start,
				SpanEnd:         &end,
				HighlightedText: "服务器",
			},
			{
				SegmentID:     "seg_1a2b3c4d",
				RuleID:        "QUALITY_GRAMMAR_ERROR",
				Severity:      SeverityMinor,
				Penalty:       15,
				Justification: "Subject/verb disagreement.",
				Citation: Citation{
					SectionPath:  []string{"General Translation Quality", "Grammar Error"},
					DocumentName: "Professional Translation Standards",
				},
			},
		},
		ByMacro: map[string]ScoreBreakdown{
			"Terminology": {Penalty: 8, Count: 1, RulesTriggered: []string{"TERM-004"}},
			"Accuracy":    {Penalty: 15, Count: 1, RulesTriggered: []string{"QUALITY_GRAMMAR_ERROR"}},
		},
		SourceText:  "The server restarted.",
		TargetText:  "服务器重启了。",
		Locale:      "zh-CN",
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		LastUpdated: &updated,
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded ScoreReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestMacroClassesCoversValid(t *testing.T) {
	for _, m := range MacroClasses {
		assert.True(t, m.Valid(), "listed class %q must be valid", m)
	}
	assert.False(t, MacroClass("").Valid())
}
