package bot

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/raine/trendgal/internal/service"
)

const maxListedProducts = 5

func formatAnalysis(a *service.Analysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, MsgDetectedItems+"\n", len(a.Items))
	for i, item := range a.Items {
		fmt.Fprintf(&sb, "%d. %s (%d%%)\n", i+1, escapeMarkdown(item.Description), percent(item.Confidence))
		if colors := item.Attributes.Colors; len(colors) > 0 {
			fmt.Fprintf(&sb, "   カラー: %s\n", strings.Join(colors, " "))
		}
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, MsgOverallStyle, escapeMarkdown(a.OverallStyle), percent(a.Confidence))
	return sb.String()
}

func formatProducts(rec *service.Recommendation) string {
	var sb strings.Builder
	for i, p := range rec.Products[:min(maxListedProducts, len(rec.Products))] {
		name := escapeMarkdown(strings.NewReplacer("[", "", "]", "").Replace(p.Name))
		if strings.HasPrefix(p.ShopURL, "http") {
			fmt.Fprintf(&sb, "%d. [%s](%s)\n", i+1, name, p.ShopURL)
		} else {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, name)
		}

		price := formatYen(p.Price)
		if p.OriginalPrice != nil && *p.OriginalPrice > p.Price {
			price += fmt.Sprintf(" (定価 %s)", formatYen(*p.OriginalPrice))
		}
		fmt.Fprintf(&sb, "   %s・%s\n", price, escapeMarkdown(p.ShopName))
	}
	if rec.UsedMock {
		sb.WriteString("\n")
		sb.WriteString(MsgMockProductsNote)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func percent(f float64) int {
	return int(math.Round(f * 100))
}

// formatYen renders 12980 as ¥12,980.
func formatYen(n int) string {
	return "¥" + humanize.Comma(int64(n))
}
