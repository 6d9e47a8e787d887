// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localeqa_evaluations_total",
		Help: "Evaluation jobs by outcome.",
	}, []string{"outcome"})

	phaseDegradationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localeqa_phase_degradations_total",
		Help: "Advisory pipeline phases degraded to zero findings.",
	}, []string{"phase"})
)
