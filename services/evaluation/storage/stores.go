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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/retrieval"
)

// ErrReportNotFound is returned when no score report exists for a job id.
var ErrReportNotFound = errors.New("score report not found")

// Key layout. Versions sort lexically within a locale's kb prefix, which is
// what latest-version resolution relies on.
const (
	reportPrefix   = "report:"
	kbPrefix       = "kb:"
	indexPrefix    = "index:"
	feedbackPrefix = "feedback:"
)

// updateRetries bounds the optimistic-conflict retry loop on report updates.
const updateRetries = 3

// Store provides typed access to every persisted evaluation record.
type Store struct {
	db *DB
}

// NewStore wraps an open database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func reportKey(jobID string) []byte       { return []byte(reportPrefix + jobID) }
func kbKey(locale, version string) []byte { return []byte(kbPrefix + locale + ":" + version) }
func indexKey(kbVersion, locale string) []byte {
	return []byte(indexPrefix + kbVersion + ":" + locale)
}
func feedbackKey(eventID string) []byte { return []byte(feedbackPrefix + eventID) }

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// SaveReport persists a new score report.
func (s *Store) SaveReport(ctx context.Context, report datatypes.ScoreReport) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, reportKey(report.JobID), report)
	})
}

// GetReport loads a score report by job id.
func (s *Store) GetReport(ctx context.Context, jobID string) (datatypes.ScoreReport, error) {
	var report datatypes.ScoreReport
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, reportKey(jobID), &report)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return datatypes.ScoreReport{}, fmt.Errorf("%w: job %s", ErrReportNotFound, jobID)
	}
	return report, err
}

// UpdateReport applies mutate to the stored report inside one transaction,
// so concurrent overrides of the same job cannot interleave. A transaction
// conflict is retried a bounded number of times and then surfaced as
// ErrConflict.
func (s *Store) UpdateReport(ctx context.Context, jobID string, mutate func(*datatypes.ScoreReport) error) (datatypes.ScoreReport, error) {
	return s.updateReport(ctx, jobID, func(_ *badger.Txn, r *datatypes.ScoreReport) error {
		return mutate(r)
	})
}

// UpdateReportWithFeedback applies mutate and writes the feedback event it
// returns in the same transaction. A committed report change therefore always
// has its audit record; neither survives a failure without the other.
func (s *Store) UpdateReportWithFeedback(ctx context.Context, jobID string, mutate func(*datatypes.ScoreReport) (datatypes.FeedbackEvent, error)) (datatypes.ScoreReport, datatypes.FeedbackEvent, error) {
	var event datatypes.FeedbackEvent
	report, err := s.updateReport(ctx, jobID, func(txn *badger.Txn, r *datatypes.ScoreReport) error {
		var err error
		event, err = mutate(r)
		if err != nil {
			return err
		}
		return setJSON(txn, feedbackKey(event.EventID), event)
	})
	if err != nil {
		return datatypes.ScoreReport{}, datatypes.FeedbackEvent{}, err
	}
	return report, event, nil
}

func (s *Store) updateReport(ctx context.Context, jobID string, apply func(*badger.Txn, *datatypes.ScoreReport) error) (datatypes.ScoreReport, error) {
	var report datatypes.ScoreReport
	var lastErr error
	for attempt := 0; attempt < updateRetries; attempt++ {
		err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
			report = datatypes.ScoreReport{}
			if err := getJSON(txn, reportKey(jobID), &report); err != nil {
				return err
			}
			if err := apply(txn, &report); err != nil {
				return err
			}
			return setJSON(txn, reportKey(jobID), report)
		})
		if err == nil {
			return report, nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return datatypes.ScoreReport{}, fmt.Errorf("%w: job %s", ErrReportNotFound, jobID)
		}
		if !errors.Is(err, badger.ErrConflict) {
			return datatypes.ScoreReport{}, err
		}
		lastErr = err
	}
	return datatypes.ScoreReport{}, fmt.Errorf("%w: job %s: %v", datatypes.ErrConflict, jobID, lastErr)
}

// SaveKnowledgeBase persists a knowledge base under its (locale, version)
// pair. Re-registering the same pair supersedes the previous record.
func (s *Store) SaveKnowledgeBase(ctx context.Context, kb datatypes.KnowledgeBase) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, kbKey(kb.Locale, kb.KBVersion), kb)
	})
}

// GetKnowledgeBase loads a knowledge base. An empty version resolves to the
// locale's latest version in descending lexical order. A missing base is
// ErrNoKnowledgeBase.
func (s *Store) GetKnowledgeBase(ctx context.Context, locale, version string) (datatypes.KnowledgeBase, error) {
	if version == "" {
		latest, err := s.latestVersion(ctx, locale)
		if err != nil {
			return datatypes.KnowledgeBase{}, err
		}
		version = latest
	}

	var kb datatypes.KnowledgeBase
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, kbKey(locale, version), &kb)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return datatypes.KnowledgeBase{}, fmt.Errorf("%w: locale %s version %s",
			datatypes.ErrNoKnowledgeBase, locale, version)
	}
	return kb, err
}

func (s *Store) latestVersion(ctx context.Context, locale string) (string, error) {
	prefix := kbPrefix + locale + ":"
	var versions []string
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			versions = append(versions, strings.TrimPrefix(string(it.Item().Key()), prefix))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("%w: locale %s has no registered version", datatypes.ErrNoKnowledgeBase, locale)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	return versions[0], nil
}

// SaveIndex persists a built retrieval index blob.
func (s *Store) SaveIndex(ctx context.Context, idx *retrieval.Index) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, indexKey(idx.KBVersion, idx.Locale), idx)
	})
}

// LoadIndex loads a retrieval index blob. An absent index is (nil, nil);
// the retrieval layer treats that as an empty search space.
func (s *Store) LoadIndex(ctx context.Context, kbVersion, locale string) (*retrieval.Index, error) {
	var idx retrieval.Index
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, indexKey(kbVersion, locale), &idx)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &idx, nil
}

// AppendFeedback appends one event to the feedback log.
func (s *Store) AppendFeedback(ctx context.Context, event datatypes.FeedbackEvent) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, feedbackKey(event.EventID), event)
	})
}

// ListFeedback returns feedback events newest first, optionally filtered by
// segment id and rule id.
func (s *Store) ListFeedback(ctx context.Context, segmentID, ruleID string) ([]datatypes.FeedbackEvent, error) {
	var events []datatypes.FeedbackEvent
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(feedbackPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var event datatypes.FeedbackEvent
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			})
			if err != nil {
				return err
			}
			if segmentID != "" && event.SegmentID != segmentID {
				continue
			}
			if ruleID != "" && event.RuleID != ruleID {
				continue
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(a, b int) bool {
		return events[a].CreatedAt.After(events[b].CreatedAt)
	})
	return events, nil
}
