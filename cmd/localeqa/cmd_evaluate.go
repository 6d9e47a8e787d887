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
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
)

// evaluationJob is the YAML shape accepted by `evaluate --file`.
type evaluationJob struct {
	SourceText string `yaml:"source_text"`
	TargetText string `yaml:"target_text"`
	Locale     string `yaml:"locale"`
	KBVersion  string `yaml:"kb_version"`
}

func runEvaluate(cmd *cobra.Command, _ []string) {
	req := datatypes.EvaluationRequest{
		SourceText: evalSource,
		TargetText: evalTarget,
		Locale:     evalLocale,
		KBVersion:  evalKBVersion,
	}

	if evalJobFile != "" {
		data, err := os.ReadFile(evalJobFile)
		if err != nil {
			slog.Error("Failed to read job file", "path", evalJobFile, "error", err)
			return
		}
		var job evaluationJob
		if err := yaml.Unmarshal(data, &job); err != nil {
			slog.Error("Failed to parse YAML job file", "path", evalJobFile, "error", err)
			return
		}
		// Flags override the file when both are given.
		if req.SourceText == "" {
			req.SourceText = job.SourceText
		}
		if req.TargetText == "" {
			req.TargetText = job.TargetText
		}
		if req.Locale == "" {
			req.Locale = job.Locale
		}
		if req.KBVersion == "" {
			req.KBVersion = job.KBVersion
		}
	}

	if req.SourceText == "" || req.TargetText == "" || req.Locale == "" {
		slog.Error("source, target, and locale are required (via flags or --file)")
		return
	}

	client := newAPIClient(serverURL)
	report, err := client.Evaluate(context.Background(), req)
	if err != nil {
		slog.Error("Evaluation failed", "error", err)
		return
	}
	printReport(report)
}

func runReport(cmd *cobra.Command, args []string) {
	client := newAPIClient(serverURL)
	report, err := client.GetReport(context.Background(), args[0])
	if err != nil {
		slog.Error("Failed to fetch report", "job_id", args[0], "error", err)
		return
	}
	printReport(report)
}

func printReport(report datatypes.ScoreReport) {
	fmt.Printf("\nScore Report: %s\n", report.JobID)
	fmt.Printf("   Final Score:  %d / 100\n", report.FinalScore)
	fmt.Printf("   Locale:       %s\n", report.Locale)
	fmt.Printf("   KB Version:   %s (rubric %s)\n", report.KBVersion, report.RubricVersion)
	fmt.Printf("   Created:      %s\n", report.CreatedAt.Format("2006-01-02 15:04:05"))
	if report.LastUpdated != nil {
		fmt.Printf("   Last Updated: %s\n", report.LastUpdated.Format("2006-01-02 15:04:05"))
	}
	fmt.Println("---------------------------------------------------")

	classes := make([]string, 0, len(report.ByMacro))
	for class := range report.ByMacro {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		b := report.ByMacro[class]
		fmt.Printf("   %-12s penalty %3d  (%d findings)\n", class, b.Penalty, b.Count)
	}

	if len(report.Findings) == 0 {
		fmt.Println("\nNo findings.")
		return
	}
	fmt.Printf("\nFindings (%d):\n", len(report.Findings))
	for _, f := range report.Findings {
		status := ""
		if f.Dismissed {
			status = " [dismissed]"
		} else if f.Accepted {
			status = " [accepted]"
		}
		fmt.Printf("   %-20s %-8s penalty %3d%s\n", f.RuleID, f.Severity, f.Penalty, status)
		if f.Justification != "" {
			fmt.Printf("      %s\n", f.Justification)
		}
	}
}
