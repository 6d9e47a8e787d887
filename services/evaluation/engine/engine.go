// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine sequences one evaluation job through its phases and owns
// knowledge-base registration. The phase order is fixed; a job never
// re-enters an earlier phase. A missing knowledge base fails the whole job,
// while assessor failures degrade their phase to zero findings.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/config"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/retrieval"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/scoring"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/storage"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/validators"
	"github.com/AleutianAI/AleutianLocaleQA/services/llm"
)

var tracer = otel.Tracer("evaluation/engine")

// State names one phase boundary of the evaluation pipeline.
type State string

const (
	StateStarted            State = "Started"
	StateMechanicalChecked  State = "MechanicalChecked"
	StateQualityAssessed    State = "QualityAssessed"
	StateRetrievalDone      State = "RetrievalDone"
	StateComplianceAssessed State = "ComplianceAssessed"
	StateScored             State = "Scored"
	StatePersisted          State = "Persisted"
)

// QualityAssessor is the advisory free-form assessor the engine degrades on.
type QualityAssessor interface {
	Assess(ctx context.Context, source, target, locale, segmentID string) ([]datatypes.Finding, error)
}

// ComplianceAssessor is the advisory candidate-rule assessor.
type ComplianceAssessor interface {
	Assess(ctx context.Context, source, target, locale, segmentID string, candidates []datatypes.RankedRule) ([]datatypes.Finding, error)
}

// Searcher narrows the rule set for the compliance phase.
type Searcher interface {
	HybridSearch(ctx context.Context, query, kbVersion, locale string, macroClass datatypes.MacroClass) ([]datatypes.RankedRule, error)
}

// Engine runs evaluation jobs.
type Engine struct {
	cfg        config.Config
	store      *storage.Store
	checker    *validators.Checker
	searcher   Searcher
	registry   *retrieval.Registry
	embedder   llm.Embedder
	quality    QualityAssessor
	compliance ComplianceAssessor
	aggregator *scoring.Aggregator
}

// New wires an engine from its collaborators.
func New(cfg config.Config, store *storage.Store, searcher Searcher, registry *retrieval.Registry,
	embedder llm.Embedder, quality QualityAssessor, compliance ComplianceAssessor) *Engine {
	return &Engine{
		cfg:        cfg,
		store:      store,
		checker:    validators.NewChecker(cfg.SeverityMultipliers),
		searcher:   searcher,
		registry:   registry,
		embedder:   embedder,
		quality:    quality,
		compliance: compliance,
		aggregator: scoring.NewAggregator(cfg.StylePunctuationCap),
	}
}

// Evaluate runs one job end to end and persists the resulting report.
//
// The knowledge-base lookup is a hard precondition: its failure aborts the
// job with ErrNoKnowledgeBase and nothing is persisted. Quality, retrieval
// and compliance are advisory; each degrades to zero findings on failure so
// partial evidence still produces a report.
func (e *Engine) Evaluate(ctx context.Context, req datatypes.EvaluationRequest) (datatypes.ScoreReport, error) {
	jobID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "evaluation.pipeline")
	defer span.End()
	span.SetAttributes(
		attribute.String("job_id", jobID),
		attribute.String("locale", req.Locale),
	)

	state := StateStarted
	logState := func(next State) {
		slog.Debug("pipeline transition", "job_id", jobID, "from", string(state), "to", string(next))
		state = next
	}

	kb, err := e.store.GetKnowledgeBase(ctx, req.Locale, req.KBVersion)
	if err != nil {
		evaluationsTotal.WithLabelValues("failed").Inc()
		return datatypes.ScoreReport{}, fmt.Errorf("knowledge base precondition: %w", err)
	}
	rulesByID := make(map[string]datatypes.Rule, len(kb.Rules))
	for _, r := range kb.Rules {
		rulesByID[r.RuleID] = r
	}
	segmentID := validators.SegmentID(req.TargetText)

	_, mechSpan := tracer.Start(ctx, "evaluation.mechanical")
	findings := e.checker.RunAll(req.SourceText, req.TargetText, req.Locale, kb.Rules)
	mechSpan.SetAttributes(attribute.Int("findings", len(findings)))
	mechSpan.End()
	logState(StateMechanicalChecked)

	qualityFindings := e.assessQuality(ctx, req, segmentID, jobID)
	findings = append(findings, qualityFindings...)
	logState(StateQualityAssessed)

	candidates := e.retrieveCandidates(ctx, req, kb.KBVersion, jobID)
	logState(StateRetrievalDone)

	complianceFindings := e.assessCompliance(ctx, req, segmentID, jobID, candidates)
	findings = append(findings, complianceFindings...)
	logState(StateComplianceAssessed)

	final, byMacro := e.aggregator.Aggregate(findings, rulesByID)
	logState(StateScored)

	report := datatypes.ScoreReport{
		JobID:              jobID,
		KBVersion:          kb.KBVersion,
		RubricVersion:      kb.RubricVersion,
		ModelPromptVersion: e.cfg.ModelPromptVersion,
		FinalScore:         final,
		Findings:           findings,
		ByMacro:            byMacro,
		SourceText:         req.SourceText,
		TargetText:         req.TargetText,
		Locale:             req.Locale,
		CreatedAt:          time.Now().UTC(),
	}
	if err := e.store.SaveReport(ctx, report); err != nil {
		evaluationsTotal.WithLabelValues("failed").Inc()
		return datatypes.ScoreReport{}, fmt.Errorf("persisting report %s: %w", jobID, err)
	}
	logState(StatePersisted)

	evaluationsTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("final_score", final), attribute.Int("findings", len(findings)))
	slog.Info("evaluation complete", "job_id", jobID, "locale", req.Locale,
		"kb_version", kb.KBVersion, "final_score", final, "findings", len(findings))
	return report, nil
}

func (e *Engine) assessQuality(ctx context.Context, req datatypes.EvaluationRequest, segmentID, jobID string) []datatypes.Finding {
	ctx, span := tracer.Start(ctx, "evaluation.quality")
	defer span.End()
	findings, err := e.quality.Assess(ctx, req.SourceText, req.TargetText, req.Locale, segmentID)
	if err != nil {
		phaseDegradationsTotal.WithLabelValues("quality").Inc()
		slog.Warn("quality assessment degraded to zero findings", "job_id", jobID, "error", err)
		return nil
	}
	span.SetAttributes(attribute.Int("findings", len(findings)))
	return findings
}

func (e *Engine) retrieveCandidates(ctx context.Context, req datatypes.EvaluationRequest, kbVersion, jobID string) []datatypes.RankedRule {
	ctx, span := tracer.Start(ctx, "evaluation.retrieval")
	defer span.End()
	candidates, err := e.searcher.HybridSearch(ctx, req.TargetText, kbVersion, req.Locale, "")
	if err != nil {
		phaseDegradationsTotal.WithLabelValues("retrieval").Inc()
		slog.Warn("retrieval degraded to zero candidates", "job_id", jobID, "error", err)
		return nil
	}
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	return candidates
}

func (e *Engine) assessCompliance(ctx context.Context, req datatypes.EvaluationRequest, segmentID, jobID string, candidates []datatypes.RankedRule) []datatypes.Finding {
	ctx, span := tracer.Start(ctx, "evaluation.compliance")
	defer span.End()
	findings, err := e.compliance.Assess(ctx, req.SourceText, req.TargetText, req.Locale, segmentID, candidates)
	if err != nil {
		phaseDegradationsTotal.WithLabelValues("compliance").Inc()
		slog.Warn("compliance assessment degraded to zero findings", "job_id", jobID, "error", err)
		return nil
	}
	span.SetAttributes(attribute.Int("findings", len(findings)))
	return findings
}

// RegisterKnowledgeBase validates and persists a pre-extracted rule set,
// then builds and publishes its retrieval index.
//
// Rules missing a weight get the per-class default; near-duplicate rules
// (display-text cosine at or above the dedup threshold against an earlier
// rule) are dropped with a warning.
func (e *Engine) RegisterKnowledgeBase(ctx context.Context, req datatypes.RegisterKBRequest) (datatypes.KnowledgeBase, error) {
	ctx, span := tracer.Start(ctx, "evaluation.register_kb")
	defer span.End()
	span.SetAttributes(
		attribute.String("kb_version", req.KBVersion),
		attribute.String("locale", req.Locale),
	)

	rules := make([]datatypes.Rule, len(req.Rules))
	copy(rules, req.Rules)
	now := time.Now().UTC()
	texts := make([]string, len(rules))
	for i := range rules {
		if rules[i].DefaultWeight <= 0 {
			rules[i].DefaultWeight = e.cfg.DefaultWeights[rules[i].MacroClass]
		}
		if rules[i].DefaultSeverity == "" {
			rules[i].DefaultSeverity = datatypes.SeverityMinor
		}
		if rules[i].CreatedAt.IsZero() {
			rules[i].CreatedAt = now
		}
		texts[i] = retrieval.DisplayText(rules[i])
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return datatypes.KnowledgeBase{}, fmt.Errorf("%w: embedding %d rules: %v",
			datatypes.ErrExternalService, len(rules), err)
	}

	var kept []datatypes.Rule
	var keptVectors [][]float32
	for i, r := range rules {
		duplicate := false
		for j, v := range keptVectors {
			if retrieval.Cosine(vectors[i], v) >= e.cfg.DedupThreshold {
				slog.Warn("dropping near-duplicate rule",
					"rule_id", r.RuleID, "duplicate_of", kept[j].RuleID)
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, r)
		keptVectors = append(keptVectors, vectors[i])
	}

	rubric := req.RubricVersion
	if rubric == "" {
		rubric = "1.0.0"
	}
	kb := datatypes.KnowledgeBase{
		KBVersion:      req.KBVersion,
		RubricVersion:  rubric,
		Rules:          kept,
		SourceDocument: req.SourceDocument,
		Locale:         req.Locale,
		CreatedAt:      now,
		RuleCount:      len(kept),
	}
	if err := e.store.SaveKnowledgeBase(ctx, kb); err != nil {
		return datatypes.KnowledgeBase{}, fmt.Errorf("persisting knowledge base: %w", err)
	}

	idx := &retrieval.Index{
		KBVersion: kb.KBVersion,
		Locale:    kb.Locale,
		Rules:     kept,
		Vectors:   keptVectors,
	}
	idx.Prepare()
	if err := e.store.SaveIndex(ctx, idx); err != nil {
		return datatypes.KnowledgeBase{}, fmt.Errorf("persisting retrieval index: %w", err)
	}
	e.registry.Publish(idx)

	slog.Info("knowledge base registered", "kb_version", kb.KBVersion,
		"locale", kb.Locale, "rules", len(kept), "dropped", len(rules)-len(kept))
	return kb, nil
}
