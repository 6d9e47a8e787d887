// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
)

// apiClient talks to the evaluation service over HTTP. All methods return
// the decoded response body or an error that includes the server's message.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Evaluation runs two LLM calls; give it room.
		http: &http.Client{Timeout: 3 * time.Minute},
	}
}

func (c *apiClient) Evaluate(ctx context.Context, req datatypes.EvaluationRequest) (datatypes.ScoreReport, error) {
	var report datatypes.ScoreReport
	err := c.doJSON(ctx, http.MethodPost, "/v1/evaluations", req, &report)
	return report, err
}

func (c *apiClient) GetReport(ctx context.Context, jobID string) (datatypes.ScoreReport, error) {
	var report datatypes.ScoreReport
	err := c.doJSON(ctx, http.MethodGet, "/v1/evaluations/"+url.PathEscape(jobID), nil, &report)
	return report, err
}

func (c *apiClient) RegisterKB(ctx context.Context, req datatypes.RegisterKBRequest) (datatypes.KnowledgeBase, error) {
	var kb datatypes.KnowledgeBase
	err := c.doJSON(ctx, http.MethodPost, "/v1/knowledgebases", req, &kb)
	return kb, err
}

func (c *apiClient) Search(ctx context.Context, query, locale, kbVersion, macroClass string) (datatypes.SearchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("locale", locale)
	if kbVersion != "" {
		params.Set("kb_version", kbVersion)
	}
	if macroClass != "" {
		params.Set("macro_class", macroClass)
	}
	var resp datatypes.SearchResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/rules/search?"+params.Encode(), nil, &resp)
	return resp, err
}

func (c *apiClient) Override(ctx context.Context, req datatypes.OverrideRequest) (datatypes.OverrideResponse, error) {
	var resp datatypes.OverrideResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/reviews/override", req, &resp)
	return resp, err
}

func (c *apiClient) Feedback(ctx context.Context, segmentID, ruleID string) ([]datatypes.FeedbackEvent, error) {
	params := url.Values{}
	if segmentID != "" {
		params.Set("segment_id", segmentID)
	}
	if ruleID != "" {
		params.Set("rule_id", ruleID)
	}
	var resp struct {
		Events []datatypes.FeedbackEvent `json:"events"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/v1/reviews/feedback?"+params.Encode(), nil, &resp)
	return resp.Events, err
}

func (c *apiClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, serverMessage(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// serverMessage extracts the {"error": "..."} body the service returns, or
// falls back to the raw (truncated) body.
func serverMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no error detail"
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
