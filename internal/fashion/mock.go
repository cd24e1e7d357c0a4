package fashion

import (
	"fmt"
	"strings"
)

const (
	maxMockProducts     = 6
	mockProductsPerItem = 2
	mockImageURL        = "/images/placeholder.svg"
	mockShopName        = "サンプルブランド"
	mockShopURL         = "#"
	mockColorWord       = "カラー"
	mockIDPrefix        = "mock_"
)

// IsMock reports whether p is a placeholder made by MockProducts.
func (p Product) IsMock() bool {
	return strings.HasPrefix(p.ID, mockIDPrefix)
}

// MockProducts builds placeholder products, two per item and at most six,
// for when every real search came back empty. Names are derived from item
// color and category; prices and ratings are random within fixed bands.
func (m *Matcher) MockProducts(items []DetectedItem) []Product {
	out := make([]Product, 0, min(maxMockProducts, len(items)*mockProductsPerItem))
	for idx, item := range items {
		color := itemColorWord(item)
		if color == "" {
			color = mockColorWord
		}
		name := itemName(item)
		itemID := item.ID
		if itemID == "" {
			itemID = fmt.Sprintf("item%d", idx)
		}

		for i := range mockProductsPerItem {
			if len(out) == maxMockProducts {
				return out
			}
			original := 2980 + m.randIntN(3000)
			rating := min(4+m.randFloat(), 5)
			reviews := 10 + m.randIntN(200)
			out = append(out, Product{
				ID:            fmt.Sprintf("%s%s_%d", mockIDPrefix, itemID, i),
				Name:          fmt.Sprintf("%s%s - サンプル商品%d", color, name, i+1),
				Price:         1980 + m.randIntN(3000),
				OriginalPrice: &original,
				ImageURL:      mockImageURL,
				ShopName:      mockShopName,
				ShopURL:       mockShopURL,
				Category:      item.Category,
				Tags:          []string{name, color},
				Rating:        &rating,
				ReviewCount:   &reviews,
			})
		}
	}
	return out
}
