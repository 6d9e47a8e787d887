// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validators implements the mechanical check set: pure functions over
// (source, target, locale, rules) producing deterministic findings. No I/O,
// no model calls; two runs over the same inputs yield identical findings.
package validators

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
)

// conventions captures the locale-specific expectations the mechanical
// checks gate on.
type conventions struct {
	fullWidthPunctuation bool
	localizedDates       bool
}

var localeConventions = map[string]conventions{
	"zh-CN": {fullWidthPunctuation: true, localizedDates: true},
	"zh-TW": {fullWidthPunctuation: true, localizedDates: true},
	"ja-JP": {fullWidthPunctuation: true, localizedDates: true},
}

// halfToFullWidth maps half-width marks to the full-width forms CJK style
// guides require.
var halfToFullWidth = map[rune]rune{
	'!': '！',
	',': '，',
	':': '：',
	';': '；',
	'?': '？',
	'(': '（',
	')': '）',
	'<': '《',
	'>': '》',
}

var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\{[^}]*\}`),
	regexp.MustCompile(`\[[^\]]*\]`),
	regexp.MustCompile(`<[^>]*>`),
	regexp.MustCompile(`%[sd]`),
	regexp.MustCompile(`%\(\w+\)[sd]`),
}

var isoDatePattern = regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`)

// SegmentID derives the stable segment identifier for a target text: "seg_"
// plus the first 8 hex characters of its SHA-256 digest. The digest keeps
// segment ids reproducible across processes and runs.
func SegmentID(target string) string {
	sum := sha256.Sum256([]byte(target))
	return "seg_" + hex.EncodeToString(sum[:])[:8]
}

// Checker runs the mechanical validator set with a fixed severity multiplier
// table.
type Checker struct {
	multipliers map[datatypes.Severity]int
}

// NewChecker returns a Checker using the given severity multiplier table.
func NewChecker(multipliers map[datatypes.Severity]int) *Checker {
	return &Checker{multipliers: multipliers}
}

// RunAll executes every mechanical check against the segment and returns the
// combined findings. Checks that lack an applicable rule in the knowledge
// base produce nothing; they never invent rule ids.
func (c *Checker) RunAll(source, target, locale string, rules []datatypes.Rule) []datatypes.Finding {
	segID := SegmentID(target)
	conv := localeConventions[locale]

	var findings []datatypes.Finding
	findings = append(findings, c.checkPunctuationWidth(segID, target, conv, rules)...)
	findings = append(findings, c.checkPlaceholders(segID, source, target, rules)...)
	findings = append(findings, c.checkDateFormat(segID, target, conv, rules)...)
	findings = append(findings, c.checkLineBreaks(segID, source, target, rules)...)
	findings = append(findings, c.checkPatternRules(segID, target, rules)...)
	return findings
}

// checkPunctuationWidth flags half-width marks in locales whose conventions
// require full-width punctuation. Severity is always Major for width
// violations regardless of the rule's default.
func (c *Checker) checkPunctuationWidth(segID, target string, conv conventions, rules []datatypes.Rule) []datatypes.Finding {
	if !conv.fullWidthPunctuation {
		return nil
	}

	widthRules := punctuationWidthRules(rules)
	if len(widthRules) == 0 {
		return nil
	}

	var findings []datatypes.Finding
	for i, r := range []rune(target) {
		full, bad := halfToFullWidth[r]
		if !bad {
			continue
		}
		rule := matchPunctuationRule(widthRules, r)
		start, end := i, i+1
		findings = append(findings, datatypes.Finding{
			SegmentID: segID,
			RuleID:    rule.RuleID,
			Severity:  datatypes.SeverityMajor,
			Penalty:   rule.DefaultWeight * c.multipliers[datatypes.SeverityMajor],
			Justification: fmt.Sprintf("Half-width punctuation %q used where full-width %q is required.",
				string(r), string(full)),
			Citation:        rule.Citation,
			Deterministic:   true,
			SpanStart:       &start,
			SpanEnd:         &end,
			HighlightedText: string(r),
		})
	}
	return findings
}

// punctuationWidthRules returns the punctuation-class rules whose text
// mentions width, in knowledge-base order.
func punctuationWidthRules(rules []datatypes.Rule) []datatypes.Rule {
	var out []datatypes.Rule
	for _, r := range rules {
		if r.MacroClass == datatypes.MacroPunctuation &&
			strings.Contains(strings.ToLower(r.RuleText), "width") {
			out = append(out, r)
		}
	}
	return out
}

// matchPunctuationRule prefers a width rule whose text mentions the specific
// mark, falling back to the first width rule.
func matchPunctuationRule(widthRules []datatypes.Rule, mark rune) datatypes.Rule {
	for _, r := range widthRules {
		if strings.ContainsRune(r.RuleText, mark) ||
			strings.ContainsRune(r.RuleText, halfToFullWidth[mark]) {
			return r
		}
	}
	return widthRules[0]
}

// checkPlaceholders set-differences placeholder tokens in both directions:
// source tokens with no target counterpart are missing, target tokens with no
// source counterpart are extra. Each discrepancy is its own Major finding, so
// an altered placeholder yields two. The check is skipped entirely when the
// knowledge base has no rule mentioning placeholders or tags.
func (c *Checker) checkPlaceholders(segID, source, target string, rules []datatypes.Rule) []datatypes.Finding {
	rule, ok := firstRuleMentioning(rules, "placeholder", "tag")
	if !ok {
		return nil
	}

	var findings []datatypes.Finding
	for _, pat := range placeholderPatterns {
		srcTokens := pat.FindAllString(source, -1)
		tgtTokens := pat.FindAllString(target, -1)
		if len(srcTokens) == 0 && len(tgtTokens) == 0 {
			continue
		}
		tgtCounts := map[string]int{}
		for _, tok := range tgtTokens {
			tgtCounts[tok]++
		}
		for _, tok := range srcTokens {
			if tgtCounts[tok] > 0 {
				tgtCounts[tok]--
				continue
			}
			findings = append(findings, c.placeholderFinding(segID, rule, tok,
				fmt.Sprintf("Placeholder %q from the source is missing or altered in the target.", tok)))
		}
		// Whatever is left in tgtCounts never matched a source token.
		for _, tok := range tgtTokens {
			if tgtCounts[tok] == 0 {
				continue
			}
			tgtCounts[tok]--
			findings = append(findings, c.placeholderFinding(segID, rule, tok,
				fmt.Sprintf("Placeholder %q in the target has no counterpart in the source.", tok)))
		}
	}
	return findings
}

func (c *Checker) placeholderFinding(segID string, rule datatypes.Rule, tok, justification string) datatypes.Finding {
	return datatypes.Finding{
		SegmentID:       segID,
		RuleID:          rule.RuleID,
		Severity:        datatypes.SeverityMajor,
		Penalty:         rule.DefaultWeight * c.multipliers[datatypes.SeverityMajor],
		Justification:   justification,
		Citation:        rule.Citation,
		Deterministic:   true,
		HighlightedText: tok,
	}
}

// checkDateFormat flags ISO-form dates in targets whose locale conventions
// require localized date formats.
func (c *Checker) checkDateFormat(segID, target string, conv conventions, rules []datatypes.Rule) []datatypes.Finding {
	if !conv.localizedDates {
		return nil
	}
	rule, ok := dateRule(rules)
	if !ok {
		return nil
	}

	var findings []datatypes.Finding
	for _, loc := range isoDatePattern.FindAllStringIndex(target, -1) {
		start := len([]rune(target[:loc[0]]))
		end := len([]rune(target[:loc[1]]))
		matched := target[loc[0]:loc[1]]
		findings = append(findings, datatypes.Finding{
			SegmentID:       segID,
			RuleID:          rule.RuleID,
			Severity:        rule.DefaultSeverity,
			Penalty:         rule.DefaultWeight * c.multipliers[datatypes.SeverityMajor],
			Justification:   fmt.Sprintf("ISO date %q should use the locale's date format.", matched),
			Citation:        rule.Citation,
			Deterministic:   true,
			SpanStart:       &start,
			SpanEnd:         &end,
			HighlightedText: matched,
		})
	}
	return findings
}

func dateRule(rules []datatypes.Rule) (datatypes.Rule, bool) {
	for _, r := range rules {
		text := strings.ToLower(r.RuleText)
		if strings.Contains(text, "date") &&
			(strings.Contains(r.RuleText, "年") || strings.Contains(text, "format")) {
			return r, true
		}
	}
	return datatypes.Rule{}, false
}

// checkLineBreaks flags a source/target line-count divergence beyond the ±2
// tolerance with a single Minor finding.
func (c *Checker) checkLineBreaks(segID, source, target string, rules []datatypes.Rule) []datatypes.Finding {
	rule, ok := firstRuleMentioning(rules, "line break", "formatting")
	if !ok {
		return nil
	}

	srcLines := strings.Count(source, "\n")
	tgtLines := strings.Count(target, "\n")
	diff := srcLines - tgtLines
	if diff < 0 {
		diff = -diff
	}
	if diff <= 2 {
		return nil
	}
	return []datatypes.Finding{{
		SegmentID: segID,
		RuleID:    rule.RuleID,
		Severity:  datatypes.SeverityMinor,
		Penalty:   rule.DefaultWeight * c.multipliers[datatypes.SeverityMinor],
		Justification: fmt.Sprintf("Line-break count diverges: %d in source vs %d in target.",
			srcLines, tgtLines),
		Citation:      rule.Citation,
		Deterministic: true,
	}}
}

// checkPatternRules executes every regex-ready rule against the target. An
// uncompilable pattern skips that rule with a warning; it never aborts the
// validator run.
func (c *Checker) checkPatternRules(segID, target string, rules []datatypes.Rule) []datatypes.Finding {
	var findings []datatypes.Finding
	for _, rule := range rules {
		if !rule.RegexReady || rule.RegexPattern == "" {
			continue
		}
		pat, err := regexp.Compile(rule.RegexPattern)
		if err != nil {
			slog.Warn("skipping rule with invalid regex pattern",
				"rule_id", rule.RuleID, "pattern", rule.RegexPattern, "error", err)
			continue
		}
		for _, loc := range pat.FindAllStringIndex(target, -1) {
			start := len([]rune(target[:loc[0]]))
			end := len([]rune(target[:loc[1]]))
			matched := target[loc[0]:loc[1]]
			findings = append(findings, datatypes.Finding{
				SegmentID:       segID,
				RuleID:          rule.RuleID,
				Severity:        rule.DefaultSeverity,
				Penalty:         rule.DefaultWeight * c.multipliers[datatypes.SeverityMajor],
				Justification:   fmt.Sprintf("Target matches prohibited pattern for rule %s: %q.", rule.RuleID, matched),
				Citation:        rule.Citation,
				Deterministic:   true,
				SpanStart:       &start,
				SpanEnd:         &end,
				HighlightedText: matched,
			})
		}
	}
	return findings
}

// firstRuleMentioning returns the first rule whose text contains any of the
// given substrings, case-insensitively.
func firstRuleMentioning(rules []datatypes.Rule, terms ...string) (datatypes.Rule, bool) {
	for _, r := range rules {
		text := strings.ToLower(r.RuleText)
		for _, term := range terms {
			if strings.Contains(text, term) {
				return r, true
			}
		}
	}
	return datatypes.Rule{}, false
}
