// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assess implements the two advisory assessors: free-form quality
// assessment and candidate-rule compliance assessment. Both talk to a chat
// model and parse its output leniently; callers degrade a failed assessment
// to zero findings.
package assess

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
)

// issueReport is the raw shape both assessors ask the model to emit, one
// object per issue. RuleID is only present in compliance output.
type issueReport struct {
	IssueType       string `json:"issue_type,omitempty"`
	RuleID          string `json:"rule_id,omitempty"`
	Severity        string `json:"severity"`
	Justification   string `json:"justification"`
	HighlightedText string `json:"highlighted_text,omitempty"`
	SpanStart       *int   `json:"span_start,omitempty"`
	SpanEnd         *int   `json:"span_end,omitempty"`
}

// extractIssues pulls a JSON array out of a model response that may be
// wrapped in markdown fences or prose. Anything without a parseable array is
// ErrMalformedResponse.
func extractIssues(raw string) ([]issueReport, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON array in model output", datatypes.ErrMalformedResponse)
	}

	var issues []issueReport
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &issues); err != nil {
		return nil, fmt.Errorf("%w: %v", datatypes.ErrMalformedResponse, err)
	}
	return issues, nil
}

// parseSeverity normalizes model-reported severity strings. Unknown values
// are rejected so a hallucinated severity cannot inflate a penalty.
func parseSeverity(raw string) (datatypes.Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "minor":
		return datatypes.SeverityMinor, true
	case "major":
		return datatypes.SeverityMajor, true
	case "critical":
		return datatypes.SeverityCritical, true
	}
	return "", false
}
