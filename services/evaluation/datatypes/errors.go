// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "errors"

// Sentinel errors for the evaluation service.
//
// These form the error taxonomy of the pipeline. Callers classify failures
// with errors.Is; everything else is wrapped context around one of these.
var (
	// ErrNoKnowledgeBase indicates no knowledge base exists for the requested
	// locale/version. This is a hard precondition failure: the evaluation job
	// aborts with no partial report.
	ErrNoKnowledgeBase = errors.New("no knowledge base for locale")

	// ErrExternalService indicates an external capability (embedding service,
	// assessment model) was unreachable or timed out. Fatal on the
	// knowledge-base/index path, degrades to empty findings on the advisory
	// assessment paths.
	ErrExternalService = errors.New("external service unavailable")

	// ErrMalformedResponse indicates a structured response (model output or a
	// persisted record) could not be parsed into its typed form.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrFindingNotFound indicates an override referenced a finding id absent
	// from every persisted evaluation record.
	ErrFindingNotFound = errors.New("finding not found")

	// ErrConflict indicates two overrides raced on the same evaluation record
	// and the losing transaction must be retried.
	ErrConflict = errors.New("concurrent update conflict")
)
