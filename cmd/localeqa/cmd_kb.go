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

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
)

// kbFile is the YAML shape accepted by `kb register`. Only rule fields a
// style-guide author would write by hand are exposed; weights and severities
// left blank get per-class defaults from the service.
type kbFile struct {
	KBVersion      string `yaml:"kb_version"`
	RubricVersion  string `yaml:"rubric_version"`
	Locale         string `yaml:"locale"`
	SourceDocument string `yaml:"source_document"`
	Rules          []struct {
		RuleID          string   `yaml:"rule_id"`
		MacroClass      string   `yaml:"macro_class"`
		MicroClass      string   `yaml:"micro_class"`
		RuleText        string   `yaml:"rule_text"`
		ExamplesPos     []string `yaml:"examples_pos"`
		ExamplesNeg     []string `yaml:"examples_neg"`
		DefaultSeverity string   `yaml:"default_severity"`
		DefaultWeight   int      `yaml:"default_weight"`
		SectionPath     []string `yaml:"section_path"`
		RegexReady      bool     `yaml:"regex_ready"`
		RegexPattern    string   `yaml:"regex_pattern"`
	} `yaml:"rules"`
}

func runKBRegister(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		slog.Error("Failed to read rules file", "path", args[0], "error", err)
		return
	}
	var file kbFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		slog.Error("Failed to parse YAML rules file", "path", args[0], "error", err)
		return
	}
	if file.KBVersion == "" || file.Locale == "" || len(file.Rules) == 0 {
		slog.Error("rules file must set kb_version, locale, and at least one rule")
		return
	}

	req := datatypes.RegisterKBRequest{
		KBVersion:      file.KBVersion,
		RubricVersion:  file.RubricVersion,
		Locale:         file.Locale,
		SourceDocument: file.SourceDocument,
		Rules:          make([]datatypes.Rule, 0, len(file.Rules)),
	}
	for _, r := range file.Rules {
		req.Rules = append(req.Rules, datatypes.Rule{
			RuleID:          r.RuleID,
			MacroClass:      datatypes.MacroClass(r.MacroClass),
			MicroClass:      r.MicroClass,
			RuleText:        r.RuleText,
			ExamplesPos:     r.ExamplesPos,
			ExamplesNeg:     r.ExamplesNeg,
			DefaultSeverity: datatypes.Severity(r.DefaultSeverity),
			DefaultWeight:   r.DefaultWeight,
			RegexReady:      r.RegexReady,
			RegexPattern:    r.RegexPattern,
			Citation: datatypes.Citation{
				SectionPath:  r.SectionPath,
				DocumentName: file.SourceDocument,
			},
		})
	}

	client := newAPIClient(serverURL)
	kb, err := client.RegisterKB(context.Background(), req)
	if err != nil {
		slog.Error("Knowledge base registration failed", "error", err)
		return
	}

	fmt.Printf("\nRegistered knowledge base %s for %s\n", kb.KBVersion, kb.Locale)
	fmt.Printf("   Rubric:     %s\n", kb.RubricVersion)
	fmt.Printf("   Rules kept: %d (of %d submitted)\n", kb.RuleCount, len(file.Rules))
	if kb.RuleCount < len(file.Rules) {
		fmt.Println("   Near-duplicate rules were dropped; see service logs for details.")
	}
}
