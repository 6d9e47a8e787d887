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
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/assess"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/config"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/engine"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/retrieval"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/review"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/routes"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/scoring"
	"github.com/AleutianAI/AleutianLocaleQA/services/evaluation/storage"
	"github.com/AleutianAI/AleutianLocaleQA/services/llm"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "localeqa-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("evaluation-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	db, err := storage.OpenDB(storage.DefaultConfig(cfg.DataDir))
	if err != nil {
		log.Fatalf("FATAL: could not open the evaluation database: %v", err)
	}
	defer db.Close()
	store := storage.NewStore(db)

	client := llm.NewOpenAIClient(cfg.ChatBaseURL, cfg.APIKey, cfg.ChatModel, cfg.EmbedModel)

	registry := retrieval.NewRegistry(store.LoadIndex)
	searcher := retrieval.NewSearcher(registry, client, cfg.TopK)
	quality := assess.NewQualityAssessor(client, cfg.QualityBaseWeight, cfg.SeverityMultipliers, cfg.AssessTimeout)
	compliance := assess.NewComplianceAssessor(client, cfg.SeverityMultipliers, cfg.AssessTimeout)
	eng := engine.New(cfg, store, searcher, registry, client, quality, compliance)
	processor := review.NewProcessor(store, scoring.NewAggregator(cfg.StylePunctuationCap), cfg.SeverityMultipliers)

	routes.RegisterBindingValidators()
	router := gin.Default()
	router.Use(otelgin.Middleware("evaluation-service"))
	routes.SetupRoutes(router, eng, processor, searcher, store)

	log.Println("Starting the evaluation server on port ", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
