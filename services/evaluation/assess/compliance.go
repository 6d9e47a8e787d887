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
	"github.com/AleutianAI/AleutianLocaleQA/services/llm"
)

const compliancePromptTemplate = `You are checking a translation against specific style-guide rules.

Source text:
%s

Target text (%s):
%s

Candidate rules:
%s

Report each rule the target violates as a JSON array. Each element must be an object:
{"rule_id": the violated rule's id, exactly as listed above,
 "severity": one of ["Minor", "Major", "Critical"],
 "justification": short explanation citing the rule,
 "highlighted_text": the violating target text,
 "span_start": character offset in the target or null,
 "span_end": character offset in the target or null}

Only report violations of the listed rules. Return ONLY the JSON array. Return [] if no rule is violated.`

// ComplianceAssessor checks the target against the retrieval-narrowed
// candidate rules.
type ComplianceAssessor struct {
	client      llm.LLMClient
	multipliers map[datatypes.Severity]int
	timeout     time.Duration
}

// NewComplianceAssessor wires a chat backend with the severity multiplier
// table.
func NewComplianceAssessor(client llm.LLMClient, multipliers map[datatypes.Severity]int, timeout time.Duration) *ComplianceAssessor {
	return &ComplianceAssessor{client: client, multipliers: multipliers, timeout: timeout}
}

// Assess asks the model which candidate rules the target violates.
//
// A reported rule_id outside the candidate set is discarded with a warning;
// the model never gets to invent rules. Penalties use the matched rule's own
// default weight.
func (c *ComplianceAssessor) Assess(ctx context.Context, source, target, locale, segmentID string, candidates []datatypes.RankedRule) ([]datatypes.Finding, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	byID := make(map[string]datatypes.Rule, len(candidates))
	var ruleList strings.Builder
	for _, cand := range candidates {
		byID[cand.Rule.RuleID] = cand.Rule
		fmt.Fprintf(&ruleList, "- %s [%s, default %s]: %s\n",
			cand.Rule.RuleID, cand.Rule.MacroClass, cand.Rule.DefaultSeverity, cand.Rule.RuleText)
	}

	prompt := fmt.Sprintf(compliancePromptTemplate, source, locale, target, ruleList.String())
	temp := float32(0.1)
	raw, err := c.client.Generate(ctx, prompt, llm.GenerationParams{Temperature: &temp})
	if err != nil {
		return nil, fmt.Errorf("%w: compliance assessment: %v", datatypes.ErrExternalService, err)
	}

	issues, err := extractIssues(raw)
	if err != nil {
		return nil, fmt.Errorf("compliance assessment: %w", err)
	}

	findings := make([]datatypes.Finding, 0, len(issues))
	for _, issue := range issues {
		rule, ok := byID[issue.RuleID]
		if !ok {
			slog.Warn("discarding compliance finding outside candidate set", "rule_id", issue.RuleID)
			continue
		}
		severity, ok := parseSeverity(issue.Severity)
		if !ok {
			slog.Warn("skipping compliance finding with unknown severity",
				"rule_id", issue.RuleID, "severity", issue.Severity)
			continue
		}
		findings = append(findings, datatypes.Finding{
			SegmentID:       segmentID,
			RuleID:          rule.RuleID,
			Severity:        severity,
			Penalty:         rule.DefaultWeight * c.multipliers[severity],
			Justification:   issue.Justification,
			Citation:        rule.Citation,
			SpanStart:       issue.SpanStart,
			SpanEnd:         issue.SpanEnd,
			HighlightedText: issue.HighlightedText,
		})
	}
	return findings, nil
}
