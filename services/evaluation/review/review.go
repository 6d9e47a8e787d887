// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package review implements reviewer overrides on persisted score reports.
// Every override mutates at most one finding, re-derives the full score
// through the aggregator, and appends an audit event to the feedback log,
// all inside a single storage transaction.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/scoring"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/storage"
)

var overridesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "localeqa_overrides_total",
	Help: "Reviewer overrides by action.",
}, []string{"action"})

// Processor applies reviewer overrides.
type Processor struct {
	store       *storage.Store
	aggregator  *scoring.Aggregator
	multipliers map[datatypes.Severity]int
}

// NewProcessor wires the override processor.
func NewProcessor(store *storage.Store, aggregator *scoring.Aggregator, multipliers map[datatypes.Severity]int) *Processor {
	return &Processor{store: store, aggregator: aggregator, multipliers: multipliers}
}

// Override applies one reviewer action to a job's report.
//
// The finding is located by the request's finding id matching either a
// segment id or a rule id, first match wins. After the mutation the final
// score and breakdown are recomputed from scratch; the audit event is written
// in the same transaction for every action, including ones that leave the
// report unchanged, so a committed change can never lack its record.
func (p *Processor) Override(ctx context.Context, jobID string, req datatypes.OverrideRequest) (datatypes.OverrideResponse, error) {
	if req.Action == datatypes.ActionChangeSeverity && !req.NewSeverity.Valid() {
		return datatypes.OverrideResponse{}, fmt.Errorf("%w: change_severity requires a valid new_severity",
			datatypes.ErrMalformedResponse)
	}

	rules, err := p.rulesForJob(ctx, jobID)
	if err != nil {
		return datatypes.OverrideResponse{}, err
	}

	report, event, err := p.store.UpdateReportWithFeedback(ctx, jobID, func(r *datatypes.ScoreReport) (datatypes.FeedbackEvent, error) {
		idx := locateFinding(r.Findings, req.FindingID)
		if idx == -1 {
			return datatypes.FeedbackEvent{}, fmt.Errorf("%w: %s in job %s",
				datatypes.ErrFindingNotFound, req.FindingID, jobID)
		}
		f := &r.Findings[idx]

		event := datatypes.FeedbackEvent{
			EventID:   uuid.NewString(),
			SegmentID: f.SegmentID,
			RuleID:    f.RuleID,
			Action:    req.Action,
			Reason:    req.Reason,
			Actor:     req.Reviewer,
			CreatedAt: time.Now().UTC(),
		}

		switch req.Action {
		case datatypes.ActionAccept:
			f.Accepted = true
			event.NewValue = "accepted"
		case datatypes.ActionDismiss:
			event.OldValue = fmt.Sprintf("penalty=%d", f.Penalty)
			f.Penalty = 0
			f.Dismissed = true
			event.NewValue = "dismissed"
		case datatypes.ActionChangeSeverity:
			event.OldValue = string(f.Severity)
			event.NewValue = string(req.NewSeverity)
			base := f.Penalty / p.multipliers[f.Severity]
			f.Severity = req.NewSeverity
			f.Penalty = base * p.multipliers[req.NewSeverity]
		case datatypes.ActionReclassify:
			// Recorded for audit only; the finding keeps its classification
			// until a follow-up rule correction lands in the knowledge base.
			event.OldValue = string(scoring.MacroClassFor(f.RuleID, rules))
		default:
			return datatypes.FeedbackEvent{}, fmt.Errorf("%w: unknown action %q",
				datatypes.ErrMalformedResponse, req.Action)
		}

		final, byMacro := p.aggregator.Aggregate(r.Findings, rules)
		r.FinalScore = final
		r.ByMacro = byMacro
		now := time.Now().UTC()
		r.LastUpdated = &now
		return event, nil
	})
	if err != nil {
		return datatypes.OverrideResponse{}, err
	}

	overridesTotal.WithLabelValues(string(req.Action)).Inc()
	slog.Info("override applied", "job_id", jobID, "action", req.Action,
		"finding", req.FindingID, "reviewer", req.Reviewer, "final_score", report.FinalScore)
	return datatypes.OverrideResponse{Event: event, Report: report}, nil
}

// Feedback lists feedback events, newest first, optionally filtered.
func (p *Processor) Feedback(ctx context.Context, segmentID, ruleID string) ([]datatypes.FeedbackEvent, error) {
	return p.store.ListFeedback(ctx, segmentID, ruleID)
}

// rulesForJob loads the rule set the job was scored against, for macro-class
// resolution during re-aggregation. A missing knowledge base degrades to the
// keyword fallback table rather than blocking the override.
func (p *Processor) rulesForJob(ctx context.Context, jobID string) (map[string]datatypes.Rule, error) {
	report, err := p.store.GetReport(ctx, jobID)
	if err != nil {
		return nil, err
	}
	kb, err := p.store.GetKnowledgeBase(ctx, report.Locale, report.KBVersion)
	if err != nil {
		if errors.Is(err, datatypes.ErrNoKnowledgeBase) {
			slog.Warn("knowledge base gone for override re-aggregation",
				"job_id", jobID, "kb_version", report.KBVersion, "locale", report.Locale)
			return nil, nil
		}
		return nil, err
	}
	rules := make(map[string]datatypes.Rule, len(kb.Rules))
	for _, r := range kb.Rules {
		rules[r.RuleID] = r
	}
	return rules, nil
}

func locateFinding(findings []datatypes.Finding, findingID string) int {
	for i, f := range findings {
		if f.SegmentID == findingID || f.RuleID == findingID {
			return i
		}
	}
	return -1
}
