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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL string

	evalSource    string
	evalTarget    string
	evalLocale    string
	evalKBVersion string
	evalJobFile   string

	searchQuery      string
	searchLocale     string
	searchKBVersion  string
	searchMacroClass string

	overrideJobID     string
	overrideFindingID string
	overrideAction    string
	overrideSeverity  string
	overrideReason    string
	overrideReviewer  string

	feedbackSegmentID string
	feedbackRuleID    string

	rootCmd = &cobra.Command{
		Use:   "localeqa",
		Short: "A cli to run translation QA evaluations against a LocaleQA service",
		Long: `LocaleQA scores translated segments against a versioned rule
				knowledge base: mechanical checks, LLM quality and compliance
				review, and a capped weighted score with reviewer overrides.`,
	}

	// --- Evaluation ---
	evaluateCmd = &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a translated segment and print its score report",
		Run:   runEvaluate, // Defined in cmd_evaluate.go
	}
	reportCmd = &cobra.Command{
		Use:   "report [job-id]",
		Short: "Fetch a previously persisted score report",
		Args:  cobra.ExactArgs(1),
		Run:   runReport, // Defined in cmd_evaluate.go
	}

	// --- Knowledge Base ---
	kbCmd = &cobra.Command{
		Use:   "kb",
		Short: "Manage rule knowledge bases",
	}
	kbRegisterCmd = &cobra.Command{
		Use:   "register [rules.yaml]",
		Short: "Register a rule knowledge base from a YAML file",
		Args:  cobra.ExactArgs(1),
		Run:   runKBRegister, // Defined in cmd_kb.go
	}

	// --- Retrieval ---
	searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Run a hybrid rule search against the knowledge base",
		Run:   runSearch, // Defined in cmd_search.go
	}

	// --- Review ---
	reviewCmd = &cobra.Command{
		Use:   "review",
		Short: "Apply reviewer overrides and inspect feedback history",
	}
	overrideCmd = &cobra.Command{
		Use:   "override",
		Short: "Apply a reviewer override to a finding and re-score the report",
		Run:   runOverride, // Defined in cmd_review.go
	}
	feedbackCmd = &cobra.Command{
		Use:   "feedback",
		Short: "List feedback events, newest first",
		Run:   runFeedback, // Defined in cmd_review.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:12310",
		"Base URL of the evaluation service")

	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evalSource, "source", "", "Source segment text")
	evaluateCmd.Flags().StringVar(&evalTarget, "target", "", "Translated segment text")
	evaluateCmd.Flags().StringVar(&evalLocale, "locale", "", "Target locale (e.g., 'zh-CN')")
	evaluateCmd.Flags().StringVar(&evalKBVersion, "kb-version", "", "Knowledge base version (default: latest)")
	evaluateCmd.Flags().StringVarP(&evalJobFile, "file", "f", "", "YAML job file instead of flags")

	rootCmd.AddCommand(reportCmd)

	rootCmd.AddCommand(kbCmd)
	kbCmd.AddCommand(kbRegisterCmd)

	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "Search query text")
	searchCmd.Flags().StringVar(&searchLocale, "locale", "", "Target locale (e.g., 'zh-CN')")
	searchCmd.Flags().StringVar(&searchKBVersion, "kb-version", "", "Knowledge base version (default: latest)")
	searchCmd.Flags().StringVar(&searchMacroClass, "macro-class", "", "Restrict results to one macro class")

	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(overrideCmd)
	overrideCmd.Flags().StringVar(&overrideJobID, "job", "", "Job ID of the score report")
	overrideCmd.Flags().StringVar(&overrideFindingID, "finding", "",
		"Finding identifier (segment ID or rule ID)")
	overrideCmd.Flags().StringVar(&overrideAction, "action", "",
		"Override action: accept, dismiss, change_severity, reclassify")
	overrideCmd.Flags().StringVar(&overrideSeverity, "severity", "", "New severity for change_severity")
	overrideCmd.Flags().StringVar(&overrideReason, "reason", "", "Reviewer justification")
	overrideCmd.Flags().StringVar(&overrideReviewer, "reviewer", "", "Reviewer identifier")

	reviewCmd.AddCommand(feedbackCmd)
	feedbackCmd.Flags().StringVar(&feedbackSegmentID, "segment", "", "Filter by segment ID")
	feedbackCmd.Flags().StringVar(&feedbackRuleID, "rule", "", "Filter by rule ID")
}
