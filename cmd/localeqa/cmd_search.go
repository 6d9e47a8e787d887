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
)

func runSearch(cmd *cobra.Command, _ []string) {
	if searchQuery == "" || searchLocale == "" {
		slog.Error("--query and --locale are required")
		return
	}

	client := newAPIClient(serverURL)
	resp, err := client.Search(context.Background(), searchQuery, searchLocale, searchKBVersion, searchMacroClass)
	if err != nil {
		slog.Error("Search failed", "error", err)
		return
	}

	if len(resp.Results) == 0 {
		fmt.Printf("No rules matched %q for %s.\n", resp.Query, resp.Locale)
		return
	}

	fmt.Printf("\nTop %d rules for %q (%s):\n", len(resp.Results), resp.Query, resp.Locale)
	fmt.Println("---------------------------------------------------")
	for i, hit := range resp.Results {
		fmt.Printf("%2d. %-20s %-12s score %.4f (semantic %.4f, keyword %.4f)\n",
			i+1, hit.Rule.RuleID, hit.Rule.MacroClass, hit.Score, hit.SemanticSim, hit.KeywordScore)
		fmt.Printf("    %s\n", hit.Rule.RuleText)
	}
}
