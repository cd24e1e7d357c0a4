package fashion

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSON is returned when generated text contains no JSON object.
	ErrNoJSON = errors.New("no JSON object found in response")
	// ErrInvalidQueries is returned when generated JSON does not match the query schema.
	ErrInvalidQueries = errors.New("generated queries do not match schema")
)

// NoProductsError is the terminal matching failure: every search came back
// empty or failed and no placeholder products could be produced.
type NoProductsError struct {
	Failures []string
}

func (e *NoProductsError) Error() string {
	if len(e.Failures) == 0 {
		return "no products found for detected items"
	}
	return fmt.Sprintf("product search failed: %s", strings.Join(e.Failures, "; "))
}
