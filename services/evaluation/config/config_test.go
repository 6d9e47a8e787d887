// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, "http://localhost:1234/v1", cfg.ChatBaseURL)
	assert.Equal(t, 30, cfg.StylePunctuationCap)
	assert.Equal(t, 15, cfg.QualityBaseWeight)
	assert.Equal(t, 20, cfg.TopK)
	assert.Equal(t, 0.9, cfg.DedupThreshold)
	assert.Equal(t, 60*time.Second, cfg.AssessTimeout)
	assert.Equal(t, 1, cfg.SeverityMultipliers[datatypes.SeverityMinor])
	assert.Equal(t, 2, cfg.SeverityMultipliers[datatypes.SeverityMajor])
	assert.Equal(t, 3, cfg.SeverityMultipliers[datatypes.SeverityCritical])
	assert.Equal(t, 5, cfg.DefaultWeights[datatypes.MacroAccuracy])
	assert.Equal(t, 1, cfg.DefaultWeights[datatypes.MacroStyle])

	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SEVERITY_MULTIPLIER_CRITICAL", "5")
	t.Setenv("RETRIEVAL_TOP_K", "10")
	t.Setenv("ASSESS_TIMEOUT", "90s")
	t.Setenv("CHAT_MODEL", "qwen/qwen3-8b")

	cfg := FromEnv()
	assert.Equal(t, 5, cfg.SeverityMultipliers[datatypes.SeverityCritical])
	assert.Equal(t, 10, cfg.TopK)
	assert.Equal(t, 90*time.Second, cfg.AssessTimeout)
	assert.Equal(t, "qwen/qwen3-8b", cfg.ChatModel)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "twenty")
	t.Setenv("RULE_DEDUP_THRESHOLD", "high")
	t.Setenv("ASSESS_TIMEOUT", "soon")

	cfg := FromEnv()
	assert.Equal(t, 20, cfg.TopK)
	assert.Equal(t, 0.9, cfg.DedupThreshold)
	assert.Equal(t, 60*time.Second, cfg.AssessTimeout)
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "flat multipliers",
			mutate: func(c *Config) {
				c.SeverityMultipliers[datatypes.SeverityMajor] = 1
			},
		},
		{
			name: "inverted multipliers",
			mutate: func(c *Config) {
				c.SeverityMultipliers[datatypes.SeverityCritical] = 1
			},
		},
		{
			name:   "zero cap",
			mutate: func(c *Config) { c.StylePunctuationCap = 0 },
		},
		{
			name:   "negative weight",
			mutate: func(c *Config) { c.DefaultWeights[datatypes.MacroLegal] = -1 },
		},
		{
			name:   "zero top_k",
			mutate: func(c *Config) { c.TopK = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
