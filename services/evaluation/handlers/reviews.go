// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/review"
)

// HandleOverride applies one reviewer action to a finding and returns the
// audit event plus the recomputed report.
func HandleOverride(processor *review.Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.OverrideRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resp, err := processor.Override(c.Request.Context(), req.JobID, req)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleFeedback lists feedback events, newest first, optionally filtered by
// segment_id and rule_id.
func HandleFeedback(processor *review.Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := processor.Feedback(c.Request.Context(),
			c.Query("segment_id"), c.Query("rule_id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		if events == nil {
			events = []datatypes.FeedbackEvent{}
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}
