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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
)

func runOverride(cmd *cobra.Command, _ []string) {
	if overrideJobID == "" || overrideFindingID == "" || overrideAction == "" ||
		overrideReason == "" || overrideReviewer == "" {
		slog.Error("--job, --finding, --action, --reason, and --reviewer are required")
		return
	}
	action := datatypes.FeedbackAction(overrideAction)
	if !action.Valid() {
		slog.Error("Invalid --action. Must be accept, dismiss, change_severity, or reclassify",
			"value", overrideAction)
		return
	}
	if action == datatypes.ActionChangeSeverity && overrideSeverity == "" {
		slog.Error("--severity is required for change_severity")
		return
	}

	req := datatypes.OverrideRequest{
		JobID:       overrideJobID,
		FindingID:   overrideFindingID,
		Action:      action,
		NewSeverity: datatypes.Severity(overrideSeverity),
		Reason:      overrideReason,
		Reviewer:    overrideReviewer,
	}

	client := newAPIClient(serverURL)
	resp, err := client.Override(context.Background(), req)
	if err != nil {
		slog.Error("Override failed", "error", err)
		return
	}

	fmt.Printf("\nOverride applied: %s\n", resp.Event.EventID)
	fmt.Printf("   Action:   %s (%s -> %s)\n", resp.Event.Action, resp.Event.OldValue, resp.Event.NewValue)
	fmt.Printf("   Finding:  %s / %s\n", resp.Event.SegmentID, resp.Event.RuleID)
	fmt.Printf("   Reviewer: %s\n", resp.Event.Actor)
	printReport(resp.Report)
}

func runFeedback(cmd *cobra.Command, _ []string) {
	client := newAPIClient(serverURL)
	events, err := client.Feedback(context.Background(), feedbackSegmentID, feedbackRuleID)
	if err != nil {
		slog.Error("Failed to list feedback", "error", err)
		return
	}

	if len(events) == 0 {
		fmt.Println("No feedback events recorded.")
		return
	}
	fmt.Printf("\nFeedback events (%d, newest first):\n", len(events))
	fmt.Println("---------------------------------------------------")
	for _, ev := range events {
		fmt.Printf("%s  %-16s %s / %s by %s\n",
			ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Action, ev.SegmentID, ev.RuleID, ev.Actor)
		if ev.Reason != "" {
			fmt.Printf("    %s\n", ev.Reason)
		}
	}
}
