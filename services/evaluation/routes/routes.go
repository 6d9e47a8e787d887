// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianLocaleQA/pkg/validation"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/engine"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/handlers"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/retrieval"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/review"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/storage"
)

// RegisterBindingValidators installs the custom "locale" binding tag used by
// request structs. Call once before serving.
func RegisterBindingValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("locale", func(fl validator.FieldLevel) bool {
			return validation.ValidateLocale(fl.Field().String()) == nil
		})
	}
}

// SetupRoutes registers every endpoint of the evaluation service.
func SetupRoutes(router *gin.Engine, eng *engine.Engine, processor *review.Processor,
	searcher *retrieval.Searcher, store *storage.Store) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/evaluations", handlers.HandleEvaluate(eng))
		v1.GET("/evaluations/:jobID", handlers.GetEvaluation(store))
		v1.POST("/knowledgebases", handlers.HandleRegisterKB(eng))
		v1.GET("/rules/search", handlers.HandleSearch(searcher, store))
		reviews := v1.Group("/reviews")
		{
			reviews.POST("/override", handlers.HandleOverride(processor))
			reviews.GET("/feedback", handlers.HandleFeedback(processor))
		}
	}
}
