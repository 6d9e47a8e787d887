// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/retrieval"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDB(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func sampleReport(jobID string) datatypes.ScoreReport {
	return datatypes.ScoreReport{
		JobID:      jobID,
		KBVersion:  "1.0.0",
		FinalScore: 92,
		Findings: []datatypes.Finding{
			{SegmentID: "seg_11111111", RuleID: "TERM-001",
				Severity: datatypes.SeverityMajor, Penalty: 8},
		},
		ByMacro: map[string]datatypes.ScoreBreakdown{
			"Terminology": {Penalty: 8, Count: 1, RulesTriggered: []string{"TERM-001"}},
		},
		Locale:    "zh-CN",
		CreatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestReportRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveReport(ctx, sampleReport("job-1")))
	got, err := s.GetReport(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, sampleReport("job-1"), got)
}

func TestGetReportMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.GetReport(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestUpdateReportMutatesAtomically(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveReport(ctx, sampleReport("job-1")))

	updated, err := s.UpdateReport(ctx, "job-1", func(r *datatypes.ScoreReport) error {
		r.FinalScore = 100
		r.Findings[0].Dismissed = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 100, updated.FinalScore)

	stored, err := s.GetReport(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, stored.Findings[0].Dismissed)
}

func TestUpdateReportWithFeedbackWritesBoth(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveReport(ctx, sampleReport("job-1")))

	report, event, err := s.UpdateReportWithFeedback(ctx, "job-1",
		func(r *datatypes.ScoreReport) (datatypes.FeedbackEvent, error) {
			r.FinalScore = 100
			return datatypes.FeedbackEvent{
				EventID:   "ev-1",
				SegmentID: "seg_11111111",
				RuleID:    "TERM-001",
				Action:    datatypes.ActionDismiss,
				CreatedAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
			}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, 100, report.FinalScore)
	assert.Equal(t, "ev-1", event.EventID)

	events, err := s.ListFeedback(ctx, "seg_11111111", "")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, datatypes.ActionDismiss, events[0].Action)
}

func TestUpdateReportWithFeedbackFailureWritesNeither(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveReport(ctx, sampleReport("job-1")))

	boom := errors.New("mutate refused")
	_, _, err := s.UpdateReportWithFeedback(ctx, "job-1",
		func(r *datatypes.ScoreReport) (datatypes.FeedbackEvent, error) {
			r.FinalScore = 0
			return datatypes.FeedbackEvent{EventID: "ev-lost", SegmentID: "seg_11111111"}, boom
		})
	require.ErrorIs(t, err, boom)

	stored, err := s.GetReport(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 92, stored.FinalScore)

	events, err := s.ListFeedback(ctx, "seg_11111111", "")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestUpdateReportMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.UpdateReport(context.Background(), "nope", func(r *datatypes.ScoreReport) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestKnowledgeBaseLatestVersion(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, v := range []string{"1.0.0", "1.2.0", "1.10.0"} {
		require.NoError(t, s.SaveKnowledgeBase(ctx, datatypes.KnowledgeBase{
			KBVersion: v, Locale: "zh-CN",
			Rules: []datatypes.Rule{{RuleID: "R-" + v}},
		}))
	}

	// Descending lexical order: "1.2.0" sorts above "1.10.0".
	kb, err := s.GetKnowledgeBase(ctx, "zh-CN", "")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", kb.KBVersion)

	pinned, err := s.GetKnowledgeBase(ctx, "zh-CN", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", pinned.KBVersion)
}

func TestKnowledgeBaseMissing(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.GetKnowledgeBase(ctx, "ko-KR", "")
	assert.ErrorIs(t, err, datatypes.ErrNoKnowledgeBase)

	_, err = s.GetKnowledgeBase(ctx, "ko-KR", "1.0.0")
	assert.ErrorIs(t, err, datatypes.ErrNoKnowledgeBase)
}

func TestIndexRoundTripAndAbsent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	idx := &retrieval.Index{
		KBVersion: "1.0.0",
		Locale:    "ja-JP",
		Rules:     []datatypes.Rule{{RuleID: "PUNCT-001"}},
		Vectors:   [][]float32{{0.1, 0.2}},
	}
	require.NoError(t, s.SaveIndex(ctx, idx))

	loaded, err := s.LoadIndex(ctx, "1.0.0", "ja-JP")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, idx.Rules, loaded.Rules)
	assert.Equal(t, idx.Vectors, loaded.Vectors)

	absent, err := s.LoadIndex(ctx, "9.9.9", "ja-JP")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestFeedbackListFilterAndOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	events := []datatypes.FeedbackEvent{
		{EventID: "e1", SegmentID: "seg_a", RuleID: "TERM-001",
			Action: datatypes.ActionDismiss, CreatedAt: base},
		{EventID: "e2", SegmentID: "seg_a", RuleID: "PUNCT-002",
			Action: datatypes.ActionAccept, CreatedAt: base.Add(time.Minute)},
		{EventID: "e3", SegmentID: "seg_b", RuleID: "TERM-001",
			Action: datatypes.ActionAccept, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range events {
		require.NoError(t, s.AppendFeedback(ctx, e))
	}

	all, err := s.ListFeedback(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "e3", all[0].EventID)
	assert.Equal(t, "e1", all[2].EventID)

	bySegment, err := s.ListFeedback(ctx, "seg_a", "")
	require.NoError(t, err)
	require.Len(t, bySegment, 2)
	assert.Equal(t, "e2", bySegment[0].EventID)

	byRule, err := s.ListFeedback(ctx, "", "TERM-001")
	require.NoError(t, err)
	require.Len(t, byRule, 2)
}
