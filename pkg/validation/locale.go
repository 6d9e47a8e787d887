// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for user-provided
// identifiers. Locale tags end up in storage keys and index lookups, so they
// are validated before use rather than trusted from the request.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// localePattern matches BCP-47-style language tags of the shape the service
// supports: a lowercase language subtag plus an optional uppercase region,
// e.g. "zh-CN", "ja-JP", "fr".
var localePattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Z]{2})?$`)

// ValidateLocale validates a locale tag.
//
// Valid tags:
//   - 2-3 lowercase letters for the language subtag
//   - optional hyphen plus 2 uppercase letters for the region
//
// Returns an error if the tag is invalid.
//
// Example:
//
//	if err := validation.ValidateLocale(locale); err != nil {
//	    return nil, fmt.Errorf("invalid locale: %w", err)
//	}
//	// Safe to use as a storage key component
func ValidateLocale(locale string) error {
	if locale == "" {
		return fmt.Errorf("locale cannot be empty")
	}

	if !localePattern.MatchString(locale) {
		return fmt.Errorf("invalid locale format: %q (expected e.g. \"zh-CN\" or \"fr\")", locale)
	}

	return nil
}

// SanitizeLocale normalizes case ("ZH-cn" -> "zh-CN") and validates the
// result. Returns the normalized tag if valid, or an error if invalid.
func SanitizeLocale(locale string) (string, error) {
	trimmed := strings.TrimSpace(locale)
	lang, region, hasRegion := strings.Cut(trimmed, "-")
	normalized := strings.ToLower(lang)
	if hasRegion {
		normalized += "-" + strings.ToUpper(region)
	}
	if err := ValidateLocale(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
