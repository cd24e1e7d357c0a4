package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/raine/trendgal/internal/config"
	"github.com/raine/trendgal/internal/fashion"
	"github.com/raine/trendgal/internal/llm"
)

func main() {
	observationPath := flag.String("vision", "", "Path to an observation JSON file (from test-vision)")
	personaID := flag.String("persona", string(fashion.DefaultPersona), "Persona (kurisu or marin)")
	provider := flag.String("provider", "", "LLM provider (gemini, openai, none); defaults to LLM_PROVIDER")
	flag.Parse()

	if *observationPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -vision <observation.json> [-persona name] [-provider name]\n", os.Args[0])
		os.Exit(1)
	}

	data, err := os.ReadFile(*observationPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read observation: %v\n", err)
		os.Exit(1)
	}
	var obs fashion.Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid observation JSON: %v\n", err)
		os.Exit(1)
	}

	persona, ok := fashion.ParsePersona(*personaID)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown persona %q, using %s\n", *personaID, persona.ID)
	}

	config.LoadEnvFile()
	cfg := config.Load()
	if *provider != "" {
		cfg.LLMProvider = *provider
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	gen, err := llm.New(ctx, llm.Options{
		Provider:      cfg.LLMProvider,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating generator: %v\n", err)
		os.Exit(1)
	}

	var textGen fashion.TextGenerator
	if gen != nil {
		textGen = gen
		fmt.Printf("=== %s ===\n", gen.Name())
	} else {
		fmt.Println("=== deterministic ===")
	}

	items := fashion.NewDetector(fashion.NoRegionColors{}).Detect(ctx, obs, fashion.DetectOptions{})
	fmt.Printf("Detected %d items\n", len(items))
	for _, item := range items {
		fmt.Printf("  %-12s %s %v\n", item.Category, item.Description, item.Attributes.Colors)
	}

	queries := fashion.NewSynthesizer(textGen).Synthesize(ctx, items, obs, persona)
	fmt.Printf("\nQueries (%d):\n", len(queries))
	for i, q := range queries {
		fmt.Printf("%d. %s  [%s, %.2f]\n", i+1, q.Text, q.InferredCategory, q.Confidence)
		if q.Reasoning != "" {
			fmt.Printf("   %s\n", q.Reasoning)
		}
	}
}
