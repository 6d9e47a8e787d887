// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers holds the gin HTTP boundary of the evaluation service.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/storage"
)

// abortWithError maps the domain error taxonomy onto HTTP status codes.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, datatypes.ErrNoKnowledgeBase):
		status = http.StatusPreconditionFailed
	case errors.Is(err, datatypes.ErrFindingNotFound), errors.Is(err, storage.ErrReportNotFound):
		status = http.StatusNotFound
	case errors.Is(err, datatypes.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, datatypes.ErrMalformedResponse):
		status = http.StatusBadRequest
	case errors.Is(err, datatypes.ErrExternalService):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
