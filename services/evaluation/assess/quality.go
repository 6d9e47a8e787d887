// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assess

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/scoring"
	"github.com/AleutianAI/AleutianLocaleQA/services/llm"
)

const qualityPromptTemplate = `You are reviewing a professional translation for fundamental quality defects.

Source text:
%s

Target text (%s):
%s

Report every defect you find as a JSON array. Each element must be an object:
{"issue_type": one of ["script_mixing", "accuracy_error", "completeness_error", "grammar_error", "terminology_error", "professionalism_error"],
 "severity": one of ["Minor", "Major", "Critical"],
 "justification": short explanation,
 "highlighted_text": the problematic target text,
 "span_start": character offset in the target or null,
 "span_end": character offset in the target or null}

Return ONLY the JSON array. Return [] if the translation has no defects.`

// QualityAssessor produces synthetic findings for fundamental translation
// defects, with no knowledge of the rule set.
type QualityAssessor struct {
	client      llm.LLMClient
	baseWeight  int
	multipliers map[datatypes.Severity]int
	timeout     time.Duration
}

// NewQualityAssessor wires a chat backend with the scoring policy for
// synthetic findings.
func NewQualityAssessor(client llm.LLMClient, baseWeight int, multipliers map[datatypes.Severity]int, timeout time.Duration) *QualityAssessor {
	return &QualityAssessor{
		client:      client,
		baseWeight:  baseWeight,
		multipliers: multipliers,
		timeout:     timeout,
	}
}

// Assess asks the model for quality issues and converts them to findings.
//
// Issues with an unknown type or severity are skipped with a warning rather
// than failing the call; a response with no parseable JSON array is
// ErrMalformedResponse, and transport failures are ErrExternalService.
func (q *QualityAssessor) Assess(ctx context.Context, source, target, locale, segmentID string) ([]datatypes.Finding, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	prompt := fmt.Sprintf(qualityPromptTemplate, source, locale, target)
	temp := float32(0.1)
	raw, err := q.client.Generate(ctx, prompt, llm.GenerationParams{Temperature: &temp})
	if err != nil {
		return nil, fmt.Errorf("%w: quality assessment: %v", datatypes.ErrExternalService, err)
	}

	issues, err := extractIssues(raw)
	if err != nil {
		return nil, fmt.Errorf("quality assessment: %w", err)
	}

	findings := make([]datatypes.Finding, 0, len(issues))
	for _, issue := range issues {
		issueType := strings.ToLower(strings.TrimSpace(issue.IssueType))
		if _, known := scoring.QualityMacroClass(issueType); !known {
			slog.Warn("skipping quality issue with unknown type", "issue_type", issue.IssueType)
			continue
		}
		severity, ok := parseSeverity(issue.Severity)
		if !ok {
			slog.Warn("skipping quality issue with unknown severity",
				"issue_type", issueType, "severity", issue.Severity)
			continue
		}
		findings = append(findings, datatypes.Finding{
			SegmentID:     segmentID,
			RuleID:        "QUALITY_" + strings.ToUpper(issueType),
			Severity:      severity,
			Penalty:       q.baseWeight * q.multipliers[severity],
			Justification: issue.Justification,
			Citation: datatypes.Citation{
				SectionPath:  []string{"General Translation Quality", titleIssueType(issueType)},
				DocumentName: "Professional Translation Standards",
			},
			SpanStart:       issue.SpanStart,
			SpanEnd:         issue.SpanEnd,
			HighlightedText: issue.HighlightedText,
		})
	}
	return findings, nil
}

// titleIssueType renders "script_mixing" as "Script Mixing".
func titleIssueType(issueType string) string {
	parts := strings.Split(issueType, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
