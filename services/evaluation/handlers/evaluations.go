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
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/engine"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/storage"
)

// HandleEvaluate runs one evaluation job for a (source, target, locale)
// segment and returns the persisted score report.
func HandleEvaluate(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.EvaluationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		report, err := eng.Evaluate(c.Request.Context(), req)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// GetEvaluation fetches a stored score report by job id.
func GetEvaluation(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := store.GetReport(c.Request.Context(), c.Param("jobID"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// HandleRegisterKB registers a pre-extracted rule set as a new knowledge
// base version and publishes its retrieval index.
func HandleRegisterKB(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.RegisterKBRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kb, err := eng.RegisterKnowledgeBase(c.Request.Context(), req)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, kb)
	}
}
