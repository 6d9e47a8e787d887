// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the wire and domain types shared across the
// localization QA evaluation service.
package datatypes

import (
	"encoding/json"
	"fmt"
	"time"
)

// MacroClass is the high-level rule taxonomy. It drives the scoring category
// and the Style/Punctuation cap.
type MacroClass string

const (
	MacroTerminology MacroClass = "Terminology"
	MacroPunctuation MacroClass = "Punctuation"
	MacroMechanics   MacroClass = "Mechanics"
	MacroStandards   MacroClass = "Standards"
	MacroStyle       MacroClass = "Style"
	MacroAccuracy    MacroClass = "Accuracy"
	MacroLegal       MacroClass = "Legal"
)

// MacroClasses lists every valid macro class in scoring-report order.
var MacroClasses = []MacroClass{
	MacroTerminology, MacroPunctuation, MacroMechanics, MacroStandards,
	MacroStyle, MacroAccuracy, MacroLegal,
}

// Valid reports whether the macro class is one of the fixed seven.
func (m MacroClass) Valid() bool {
	switch m {
	case MacroTerminology, MacroPunctuation, MacroMechanics, MacroStandards,
		MacroStyle, MacroAccuracy, MacroLegal:
		return true
	}
	return false
}

// UnmarshalJSON validates the enum on load. An unknown value is a
// MalformedResponse, never a silent coercion.
func (m *MacroClass) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: macro_class: %v", ErrMalformedResponse, err)
	}
	v := MacroClass(s)
	if !v.Valid() {
		return fmt.Errorf("%w: unknown macro_class %q", ErrMalformedResponse, s)
	}
	*m = v
	return nil
}

// Severity is the three-level severity scale applied to findings.
type Severity string

const (
	SeverityMinor    Severity = "Minor"
	SeverityMajor    Severity = "Major"
	SeverityCritical Severity = "Critical"
)

// Valid reports whether the severity is one of Minor/Major/Critical.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// UnmarshalJSON validates the enum on load.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: severity: %v", ErrMalformedResponse, err)
	}
	v := Severity(raw)
	if !v.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrMalformedResponse, raw)
	}
	*s = v
	return nil
}

// Citation points back into the style guide a rule was extracted from.
type Citation struct {
	SectionPath  []string `json:"section_path"`
	PageNumber   *int     `json:"page_number,omitempty"`
	DocumentName string   `json:"document_name,omitempty"`
}

// Rule is one atomic style-guide rule. Rules are created during knowledge-base
// registration and immutable afterwards; RuleID is unique within a KB version.
type Rule struct {
	RuleID          string     `json:"rule_id"`
	MacroClass      MacroClass `json:"macro_class"`
	MicroClass      string     `json:"micro_class"`
	RuleText        string     `json:"rule_text"`
	ExamplesPos     []string   `json:"examples_pos,omitempty"`
	ExamplesNeg     []string   `json:"examples_neg,omitempty"`
	DefaultSeverity Severity   `json:"default_severity"`
	DefaultWeight   int        `json:"default_weight"`
	Citation        Citation   `json:"citation"`
	RegexReady      bool       `json:"regex_ready,omitempty"`
	RegexPattern    string     `json:"regex_pattern,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// KnowledgeBase is an immutable, versioned rule set for one locale.
// Superseded by re-registration, never edited in place.
type KnowledgeBase struct {
	KBVersion      string    `json:"kb_version"`
	RubricVersion  string    `json:"rubric_version"`
	Rules          []Rule    `json:"rules"`
	SourceDocument string    `json:"source_document"`
	Locale         string    `json:"locale"`
	CreatedAt      time.Time `json:"created_at"`
	RuleCount      int       `json:"rule_count"`
}

// Finding is one detected (or reviewer-confirmed) rule violation instance.
//
// RuleID may be a synthetic QUALITY_* identifier for quality-assessor issues;
// those never collide with knowledge-base rule ids. Deterministic is true only
// for mechanical validator output. Dismissed/Accepted start unset and are
// flipped by the override processor; findings are never deleted.
type Finding struct {
	SegmentID       string   `json:"segment_id"`
	RuleID          string   `json:"rule_id"`
	Severity        Severity `json:"severity"`
	Penalty         int      `json:"penalty"`
	Justification   string   `json:"justification"`
	Citation        Citation `json:"citation"`
	Deterministic   bool     `json:"deterministic"`
	SpanStart       *int     `json:"span_start,omitempty"`
	SpanEnd         *int     `json:"span_end,omitempty"`
	HighlightedText string   `json:"highlighted_text,omitempty"`
	Dismissed       bool     `json:"dismissed,omitempty"`
	Accepted        bool     `json:"accepted,omitempty"`
}

// ScoreBreakdown is the per-macro-class slice of a score report.
type ScoreBreakdown struct {
	Penalty        int      `json:"penalty"`
	Count          int      `json:"count"`
	RulesTriggered []string `json:"rules_triggered"`
}

// ScoreReport is the output of one evaluation job.
//
// FinalScore and ByMacro are mutable only as a unit: the override processor
// regenerates both through the scoring aggregator, never independently.
type ScoreReport struct {
	JobID              string                    `json:"job_id"`
	KBVersion          string                    `json:"kb_version"`
	RubricVersion      string                    `json:"rubric_version"`
	ModelPromptVersion string                    `json:"model_prompt_version"`
	FinalScore         int                       `json:"final_score"`
	Findings           []Finding                 `json:"findings"`
	ByMacro            map[string]ScoreBreakdown `json:"by_macro"`
	SourceText         string                    `json:"source_text"`
	TargetText         string                    `json:"target_text"`
	Locale             string                    `json:"locale"`
	CreatedAt          time.Time                 `json:"created_at"`
	LastUpdated        *time.Time                `json:"last_updated,omitempty"`
}

// FeedbackAction is the reviewer action taken in an override.
type FeedbackAction string

const (
	ActionAccept         FeedbackAction = "accept"
	ActionChangeSeverity FeedbackAction = "change_severity"
	ActionReclassify     FeedbackAction = "reclassify"
	ActionDismiss        FeedbackAction = "dismiss"
)

// Valid reports whether the action is a known reviewer action.
func (a FeedbackAction) Valid() bool {
	switch a {
	case ActionAccept, ActionChangeSeverity, ActionReclassify, ActionDismiss:
		return true
	}
	return false
}

// UnmarshalJSON validates the enum on load.
func (a *FeedbackAction) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: action: %v", ErrMalformedResponse, err)
	}
	v := FeedbackAction(raw)
	if !v.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrMalformedResponse, raw)
	}
	*a = v
	return nil
}

// FeedbackEvent is the append-only audit record of a single override.
type FeedbackEvent struct {
	EventID   string         `json:"event_id"`
	SegmentID string         `json:"segment_id"`
	RuleID    string         `json:"rule_id"`
	Action    FeedbackAction `json:"action"`
	OldValue  string         `json:"old_value"`
	NewValue  string         `json:"new_value"`
	Reason    string         `json:"reason"`
	Actor     string         `json:"actor"`
	CreatedAt time.Time      `json:"created_at"`
}

// =============================================================================
// API request/response shapes
// =============================================================================

// EvaluationRequest is the body of POST /v1/evaluations.
type EvaluationRequest struct {
	SourceText string `json:"source_text" binding:"required"`
	TargetText string `json:"target_text" binding:"required"`
	Locale     string `json:"locale" binding:"required,locale"`
	KBVersion  string `json:"kb_version,omitempty"`
}

// OverrideRequest is the body of POST /v1/reviews/override.
type OverrideRequest struct {
	JobID       string         `json:"job_id" binding:"required"`
	FindingID   string         `json:"finding_id" binding:"required"`
	Action      FeedbackAction `json:"action" binding:"required"`
	NewSeverity Severity       `json:"new_severity,omitempty"`
	Reason      string         `json:"reason" binding:"required"`
	Reviewer    string         `json:"reviewer" binding:"required"`
}

// OverrideResponse carries the audit event and the recomputed report.
type OverrideResponse struct {
	Event  FeedbackEvent `json:"event"`
	Report ScoreReport   `json:"report"`
}

// RegisterKBRequest is the body of POST /v1/knowledgebases. Rules arrive
// already extracted; document conversion happens upstream.
type RegisterKBRequest struct {
	KBVersion      string `json:"kb_version" binding:"required"`
	RubricVersion  string `json:"rubric_version,omitempty"`
	Locale         string `json:"locale" binding:"required,locale"`
	SourceDocument string `json:"source_document,omitempty"`
	Rules          []Rule `json:"rules" binding:"required,min=1"`
}

// RankedRule is one hybrid-search hit.
type RankedRule struct {
	Rule         Rule    `json:"rule"`
	Score        float64 `json:"score"`
	SemanticSim  float64 `json:"semantic_score"`
	KeywordScore float64 `json:"keyword_score"`
}

// SearchResponse is the body returned by GET /v1/rules/search.
type SearchResponse struct {
	Query   string       `json:"query"`
	Locale  string       `json:"locale"`
	Results []RankedRule `json:"results"`
}
