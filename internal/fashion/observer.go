package fashion

// Observer receives pipeline events for metrics. Calls happen synchronously
// on the pipeline goroutine and must return quickly.
type Observer interface {
	ItemsDetected(n int)
	CatalogSearched(outcome string)
	FallbackUsed(tier string)
}

// Catalog search outcomes.
const (
	SearchHit   = "hit"
	SearchEmpty = "empty"
	SearchError = "error"
)

// Fallback tiers.
const (
	TierDeterministicQueries = "deterministic_queries"
	TierBroadQuery           = "broad_query"
	TierItemSearch           = "item_search"
	TierMock                 = "mock"
)

type nopObserver struct{}

func (nopObserver) ItemsDetected(int)      {}
func (nopObserver) CatalogSearched(string) {}
func (nopObserver) FallbackUsed(string)    {}
