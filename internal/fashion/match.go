package fashion

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog/log"
)

const (
	// MaxProducts caps the recommendation list.
	MaxProducts = 10

	maxQuerySearches = 5
	maxItemSearches  = 3
	primaryResults   = 5
	broadResults     = 3

	// Item-path products have no computed similarity. They get a placeholder
	// drawn uniformly from this range.
	PlaceholderSimilarityMin = 0.70
	PlaceholderSimilarityMax = 0.95

	unknownShopName = "ブランド名不明"
)

// SortByScore orders catalog results by relevance, best first.
const SortByScore = "-score"

// SearchOptions are passed to the catalog with every query.
type SearchOptions struct {
	Results int
	Sort    string
}

// Catalog searches a product catalog.
type Catalog interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]Listing, error)
}

// Matcher turns queries and detected items into a ranked product list.
type Matcher struct {
	catalog   Catalog
	observer  Observer
	randFloat func() float64
	randIntN  func(int) int
}

type MatcherOption func(*Matcher)

func WithMatcherObserver(o Observer) MatcherOption {
	return func(m *Matcher) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithRand makes placeholder similarities and mock prices reproducible.
// The Matcher must then not be shared between goroutines.
func WithRand(r *rand.Rand) MatcherOption {
	return func(m *Matcher) {
		m.randFloat = r.Float64
		m.randIntN = r.IntN
	}
}

func NewMatcher(catalog Catalog, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		catalog:   catalog,
		observer:  nopObserver{},
		randFloat: rand.Float64,
		randIntN:  rand.IntN,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match searches the catalog with the queries, most confident first. When
// that yields nothing it searches per detected item, and when that yields
// nothing too it returns placeholder products. A *NoProductsError carrying
// every collected failure is returned only when even placeholders cannot be
// made.
func (m *Matcher) Match(ctx context.Context, queries []SearchQuery, items []DetectedItem) ([]Product, error) {
	if len(queries) == 0 && len(items) == 0 {
		return []Product{}, nil
	}

	r := &matchRun{m: m, seen: make(map[string]bool)}
	if len(queries) > 0 {
		r.searchQueries(ctx, queries)
	}
	if len(r.products) == 0 && len(items) > 0 {
		if len(queries) > 0 {
			m.observer.FallbackUsed(TierItemSearch)
		}
		r.searchItems(ctx, items)
	}

	if len(r.products) == 0 {
		mock := m.MockProducts(items)
		if len(mock) == 0 {
			return nil, &NoProductsError{Failures: r.failures}
		}
		m.observer.FallbackUsed(TierMock)
		log.Warn().Strs("failures", r.failures).Int("mockProducts", len(mock)).Msg("all product searches failed, using mock products")
		return mock, nil
	}

	if len(r.failures) > 0 {
		log.Warn().Strs("failures", r.failures).Msg("some product searches failed")
	}
	return r.products, nil
}

type matchRun struct {
	m        *Matcher
	products []Product
	seen     map[string]bool
	failures []string
}

func (r *matchRun) full() bool {
	return len(r.products) >= MaxProducts
}

func (r *matchRun) searchQueries(ctx context.Context, queries []SearchQuery) {
	sorted := slices.Clone(queries)
	slices.SortStableFunc(sorted, func(a, b SearchQuery) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	for _, q := range sorted[:min(maxQuerySearches, len(sorted))] {
		if r.full() {
			return
		}
		listings, err := r.search(ctx, q.Text, primaryResults)
		if err != nil {
			r.failures = append(r.failures, fmt.Sprintf("「%s」の検索でエラーが発生しました: %v", q.Text, err))
			continue
		}
		if len(listings) == 0 {
			r.failures = append(r.failures, fmt.Sprintf("「%s」の商品が見つかりませんでした", q.Text))
			continue
		}

		category := q.InferredCategory
		if category == CategoryUnknown {
			category = CategoryTops
		}
		for _, l := range listings {
			r.add(r.m.product(l, category, q.Confidence, q.Text))
		}
	}
}

func (r *matchRun) searchItems(ctx context.Context, items []DetectedItem) {
	for _, item := range items[:min(maxItemSearches, len(items))] {
		if r.full() {
			return
		}
		name := itemName(item)
		primary := joinWords(itemColorWord(item), name)

		listings, err := r.search(ctx, primary, primaryResults)
		if err != nil {
			r.failures = append(r.failures, fmt.Sprintf("「%s」の検索でエラーが発生しました: %v", item.Description, err))
			continue
		}
		if len(listings) == 0 && name != primary {
			r.m.observer.FallbackUsed(TierBroadQuery)
			log.Info().Str("query", primary).Str("fallbackQuery", name).Msg("no results, retrying with broader query")
			listings, err = r.search(ctx, name, broadResults)
			if err != nil {
				r.failures = append(r.failures, fmt.Sprintf("「%s」の検索でエラーが発生しました: %v", name, err))
				continue
			}
		}
		if len(listings) == 0 {
			r.failures = append(r.failures, fmt.Sprintf("「%s」の商品が見つかりませんでした", primary))
			continue
		}

		for _, l := range listings {
			r.add(r.m.product(l, item.Category, r.m.placeholderSimilarity(), item.Category.String()))
		}
	}
}

func (r *matchRun) search(ctx context.Context, query string, results int) ([]Listing, error) {
	listings, err := r.m.catalog.Search(ctx, query, SearchOptions{Results: results, Sort: SortByScore})
	switch {
	case err != nil:
		r.m.observer.CatalogSearched(SearchError)
		log.Warn().Err(err).Str("query", query).Msg("catalog search failed")
	case len(listings) == 0:
		r.m.observer.CatalogSearched(SearchEmpty)
		log.Info().Str("query", query).Msg("catalog search returned no results")
	default:
		r.m.observer.CatalogSearched(SearchHit)
	}
	return listings, err
}

// add appends p unless a product from the same shop URL is already present
// or the list is full.
func (r *matchRun) add(p Product) {
	if r.full() {
		return
	}
	if p.ShopURL != "" {
		if r.seen[p.ShopURL] {
			return
		}
		r.seen[p.ShopURL] = true
	}
	r.products = append(r.products, p)
}

func (m *Matcher) product(l Listing, category Category, similarity float64, tag string) Product {
	id := l.Code
	if id == "" {
		id = shortuuid.New()
	}
	shop := l.ShopName
	if shop == "" {
		shop = unknownShopName
	}
	tags := []string{category.String()}
	if tag != "" && tag != category.String() {
		tags = append(tags, tag)
	}

	p := Product{
		ID:          "yahoo_" + id,
		Name:        l.Name,
		Price:       l.Price,
		ImageURL:    l.ImageURL,
		ShopName:    shop,
		ShopURL:     l.ShopURL,
		Category:    category,
		Tags:        tags,
		Similarity:  &similarity,
		Rating:      l.Rating,
		ReviewCount: l.ReviewCount,
	}
	if l.OriginalPrice > 0 {
		orig := l.OriginalPrice
		p.OriginalPrice = &orig
	}
	return p
}

func (m *Matcher) placeholderSimilarity() float64 {
	return PlaceholderSimilarityMin + m.randFloat()*(PlaceholderSimilarityMax-PlaceholderSimilarityMin)
}

func itemColorWord(item DetectedItem) string {
	if len(item.Attributes.Colors) == 0 {
		return ""
	}
	return ColorNameOf(item.Attributes.Colors[0]).Japanese()
}
