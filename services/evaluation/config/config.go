// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config centralizes environment configuration for the evaluation
// service. Every value has a default so the service starts with nothing but
// an OpenAI-compatible model endpoint available.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
)

// Config holds the scoring policy and external-service settings.
type Config struct {
	// Model endpoint (OpenAI-compatible; LM Studio, llama.cpp server, etc.)
	ChatBaseURL string
	ChatModel   string
	EmbedModel  string
	APIKey      string

	// Scoring policy
	SeverityMultipliers map[datatypes.Severity]int
	StylePunctuationCap int
	QualityBaseWeight   int
	DefaultWeights      map[datatypes.MacroClass]int

	// Retrieval
	TopK           int
	DedupThreshold float64

	// Pipeline
	ModelPromptVersion string
	AssessTimeout      time.Duration
	EmbedTimeout       time.Duration

	// Storage
	DataDir string

	// Server
	Port string
}

// FromEnv builds a Config from environment variables, logging a warning for
// every fallback the way the orchestrator service does.
func FromEnv() Config {
	return Config{
		ChatBaseURL: envString("CHAT_BASE_URL", "http://localhost:1234/v1"),
		ChatModel:   envString("CHAT_MODEL", "qwen/qwen3-1.7b"),
		EmbedModel:  envString("EMBED_MODEL", "text-embedding-nomic-embed-text-v1.5"),
		APIKey:      os.Getenv("OPENAI_API_KEY"),

		SeverityMultipliers: map[datatypes.Severity]int{
			datatypes.SeverityMinor:    envInt("SEVERITY_MULTIPLIER_MINOR", 1),
			datatypes.SeverityMajor:    envInt("SEVERITY_MULTIPLIER_MAJOR", 2),
			datatypes.SeverityCritical: envInt("SEVERITY_MULTIPLIER_CRITICAL", 3),
		},
		StylePunctuationCap: envInt("STYLE_PUNCTUATION_CAP", 30),
		QualityBaseWeight:   envInt("QUALITY_BASE_WEIGHT", 15),
		DefaultWeights: map[datatypes.MacroClass]int{
			datatypes.MacroAccuracy:    envInt("WEIGHT_ACCURACY", 5),
			datatypes.MacroTerminology: envInt("WEIGHT_TERMINOLOGY", 4),
			datatypes.MacroMechanics:   envInt("WEIGHT_MECHANICS", 3),
			datatypes.MacroPunctuation: envInt("WEIGHT_PUNCTUATION", 2),
			datatypes.MacroStyle:       envInt("WEIGHT_STYLE", 1),
			datatypes.MacroLegal:       envInt("WEIGHT_LEGAL", 6),
			datatypes.MacroStandards:   envInt("WEIGHT_STANDARDS", 3),
		},

		TopK:           envInt("RETRIEVAL_TOP_K", 20),
		DedupThreshold: envFloat("RULE_DEDUP_THRESHOLD", 0.9),

		ModelPromptVersion: envString("MODEL_PROMPT_VERSION", "1.0.0"),
		AssessTimeout:      envDuration("ASSESS_TIMEOUT", 60*time.Second),
		EmbedTimeout:       envDuration("EMBED_TIMEOUT", 30*time.Second),

		DataDir: envString("DATA_DIR", "./data"),
		Port:    envString("EVALUATION_PORT", "12310"),
	}
}

// Validate rejects configurations the scoring contract cannot honor.
//
// The multiplier table must be strictly increasing with severity; a flat or
// inverted table would break the penalty monotonicity guarantee. The cap and
// weights must stay positive.
func (c Config) Validate() error {
	minor := c.SeverityMultipliers[datatypes.SeverityMinor]
	major := c.SeverityMultipliers[datatypes.SeverityMajor]
	critical := c.SeverityMultipliers[datatypes.SeverityCritical]
	if minor < 1 || major <= minor || critical <= major {
		return fmt.Errorf("severity multipliers must be strictly increasing, got %d/%d/%d",
			minor, major, critical)
	}
	if c.StylePunctuationCap <= 0 {
		return fmt.Errorf("style/punctuation cap must be positive, got %d", c.StylePunctuationCap)
	}
	if c.QualityBaseWeight <= 0 {
		return fmt.Errorf("quality base weight must be positive, got %d", c.QualityBaseWeight)
	}
	for class, w := range c.DefaultWeights {
		if w <= 0 {
			return fmt.Errorf("default weight for %s must be positive, got %d", class, w)
		}
	}
	if c.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive, got %d", c.TopK)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Debug("env var not set, using default", "key", key, "default", fallback)
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid float env var, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}
