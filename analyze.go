package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/raine/trendgal/internal/fashion"
	"github.com/raine/trendgal/internal/service"
	"github.com/raine/trendgal/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze one outfit photo and print recommendations",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("persona", "", "persona used for query synthesis (kurisu or marin)")
	analyzeCmd.Flags().Bool("json", false, "print the result as JSON")
	analyzeCmd.Flags().BoolP("verbose", "v", false, "log pipeline progress to stderr")
	analyzeCmd.Flags().String("db", "", "run history database path (overrides DB_PATH)")
}

type analyzeOutput struct {
	DetectedItems   []fashion.DetectedItem `json:"detectedItems"`
	OverallStyle    string                 `json:"overallStyle"`
	ColorPalette    []fashion.ColorInfo    `json:"colorPalette"`
	Confidence      float64                `json:"confidence"`
	Queries         []fashion.SearchQuery  `json:"queries"`
	Recommendations []fashion.Product      `json:"recommendations"`
	UsedMock        bool                   `json:"usedMock"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	personaID, _ := cmd.Flags().GetString("persona")
	if personaID == "" {
		personaID = cfg.DefaultPersona
	}
	persona, ok := fashion.ParsePersona(personaID)
	if !ok {
		log.Warn().Str("persona", personaID).Msg("unknown persona, using default")
	}

	image, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = service.WithSource(ctx, service.SourceCLI)

	components, err := service.Build(ctx, cfg, store)
	if err != nil {
		return err
	}
	svc := components.Service

	analysis, err := svc.AnalyzeImage(ctx, image, persona, service.Progress{
		Item: func(current, total int, item string) {
			log.Info().Int("current", current).Int("total", total).Str("item", item).Msg("analyzing item")
		},
	})
	if err != nil {
		return err
	}

	out := analyzeOutput{
		DetectedItems:   analysis.Items,
		OverallStyle:    analysis.OverallStyle,
		ColorPalette:    analysis.Palette,
		Confidence:      analysis.Confidence,
		Queries:         []fashion.SearchQuery{},
		Recommendations: []fashion.Product{},
	}
	if len(analysis.Items) > 0 {
		rec, err := svc.Recommend(ctx, analysis.Items, &analysis.Observation, persona)
		if err != nil {
			return err
		}
		out.Queries = rec.Queries
		out.Recommendations = rec.Products
		out.UsedMock = rec.UsedMock
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printAnalysis(cmd.OutOrStdout(), out)
	return nil
}

func printAnalysis(w io.Writer, out analyzeOutput) {
	fmt.Fprintf(w, "Style: %s (confidence %.2f)\n", out.OverallStyle, out.Confidence)
	fmt.Fprintf(w, "Palette:")
	for _, c := range out.ColorPalette {
		fmt.Fprintf(w, " %s %s %d%%", c.Hex, c.Name, c.Percentage)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\nDetected items (%d):\n", len(out.DetectedItems))
	for _, item := range out.DetectedItems {
		fmt.Fprintf(w, "  %-12s %-24s %.2f %v\n", item.Category, item.Description, item.Confidence, item.Attributes.Colors)
	}

	fmt.Fprintf(w, "\nQueries (%d):\n", len(out.Queries))
	for _, q := range out.Queries {
		fmt.Fprintf(w, "  %.2f %s\n", q.Confidence, q.Text)
	}

	fmt.Fprintf(w, "\nRecommendations (%d):", len(out.Recommendations))
	if out.UsedMock {
		fmt.Fprint(w, " [sample products, catalog search failed]")
	}
	fmt.Fprintln(w)
	for _, p := range out.Recommendations {
		fmt.Fprintf(w, "  ¥%-7d %s (%s)\n    %s\n", p.Price, p.Name, p.ShopName, p.ShopURL)
	}
}
