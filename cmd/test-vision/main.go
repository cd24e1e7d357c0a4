package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/raine/trendgal/internal/config"
	"github.com/raine/trendgal/internal/vision"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <image-path> [vision|local]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPrints the vision observation as JSON, suitable for test-queries.\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  GOOGLE_API_KEY or GOOGLE_SERVICE_ACCOUNT_KEY - Required for vision\n")
		os.Exit(1)
	}

	imageData, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
		os.Exit(1)
	}

	mode := "vision"
	if len(os.Args) >= 3 {
		mode = os.Args[2]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var out any
	switch mode {
	case "vision":
		config.LoadEnvFile()
		cfg := config.Load()
		client, err := vision.NewClient(ctx, vision.ClientOpts{
			BaseURL:           cfg.VisionBaseURL,
			APIKey:            cfg.GoogleAPIKey,
			ServiceAccountKey: cfg.ServiceAccountKey,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating vision client: %v\n", err)
			os.Exit(1)
		}
		out, err = client.Annotate(ctx, imageData)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "local":
		out, err = vision.PaletteAnalyzer{}.DominantColors(ctx, imageData)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s (use vision or local)\n", mode)
		os.Exit(1)
	}

	jsonBytes, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(jsonBytes))
}
