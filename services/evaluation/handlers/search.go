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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/datatypes"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/retrieval"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/storage"
)

// HandleSearch ranks a locale's rules against a free-text query.
//
// kb_version defaults to the locale's latest registered version; a locale
// with no knowledge base at all simply yields no results, matching the
// empty-index contract of hybrid search.
func HandleSearch(searcher *retrieval.Searcher, store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("query")
		locale := c.Query("locale")
		if query == "" || locale == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query and locale are required"})
			return
		}
		macroClass := datatypes.MacroClass(c.Query("macro_class"))
		if macroClass != "" && !macroClass.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown macro_class"})
			return
		}

		kbVersion := c.Query("kb_version")
		if kbVersion == "" {
			kb, err := store.GetKnowledgeBase(c.Request.Context(), locale, "")
			switch {
			case errors.Is(err, datatypes.ErrNoKnowledgeBase):
				c.JSON(http.StatusOK, datatypes.SearchResponse{
					Query: query, Locale: locale, Results: []datatypes.RankedRule{}})
				return
			case err != nil:
				abortWithError(c, err)
				return
			}
			kbVersion = kb.KBVersion
		}

		results, err := searcher.HybridSearch(c.Request.Context(), query, kbVersion, locale, macroClass)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.SearchResponse{
			Query:   query,
			Locale:  locale,
			Results: results,
		})
	}
}
