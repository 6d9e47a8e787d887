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
	"log/slog"
	"os"

	"github.com/AleutianAI/AleutianLocaleQA/pkg/logging"
)

func main() {
	logger, err := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		LogDir:  os.Getenv("LOCALEQA_LOG_DIR"),
		Service: "localeqa",
	})
	if err != nil {
		// Fall back to stderr-only logging rather than refusing to run.
		logger = logging.Default()
		logger.Warn("file logging unavailable", "error", err)
	}
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
