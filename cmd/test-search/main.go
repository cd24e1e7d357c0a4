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
	"github.com/raine/trendgal/internal/shopping"
)

func main() {
	query := flag.String("q", "", "Search query")
	results := flag.Int("results", 10, "Number of results")
	sort := flag.String("sort", fashion.SortByScore, "Sort order")
	rawJSON := flag.Bool("json", false, "Output listings as JSON")
	flag.Parse()

	if *query == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -q <query> [-results n] [-sort order] [-json]\n", os.Args[0])
		os.Exit(1)
	}

	config.LoadEnvFile()
	cfg := config.Load()

	client, err := shopping.NewClient(shopping.ClientOpts{
		BaseURL:       cfg.YahooBaseURL,
		ClientID:      cfg.YahooClientID,
		RatePerSecond: cfg.SearchRate,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	listings, err := client.Search(ctx, *query, fashion.SearchOptions{Results: *results, Sort: *sort})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *rawJSON {
		jsonBytes, _ := json.MarshalIndent(listings, "", "  ")
		fmt.Println(string(jsonBytes))
		return
	}

	fmt.Printf("Found %d results\n\n", len(listings))
	for i, l := range listings {
		price := fmt.Sprintf("¥%d", l.Price)
		if l.OriginalPrice > 0 {
			price += fmt.Sprintf(" (¥%d)", l.OriginalPrice)
		}
		fmt.Printf("%d. %s - %s\n", i+1, l.Name, price)
		if l.ShopName != "" {
			fmt.Printf("   %s\n", l.ShopName)
		}
		fmt.Printf("   %s\n", l.ShopURL)
	}
}
