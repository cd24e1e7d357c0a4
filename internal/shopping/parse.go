package shopping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/raine/trendgal/internal/fashion"
)

// ErrUnknownEnvelope is returned when a response body matches neither of the
// known catalog response shapes.
var ErrUnknownEnvelope = errors.New("unknown catalog response envelope")

// envelope covers both response shapes. The legacy API wraps results as
// {"ResultSet":{"Result":[...]}}, the current one as {"hits":[...]}.
type envelope struct {
	ResultSet *struct {
		Result                json.RawMessage `json:"Result"`
		TotalResultsAvailable flexInt         `json:"totalResultsAvailable"`
	} `json:"ResultSet"`
	Hits                  json.RawMessage `json:"hits"`
	TotalResultsAvailable flexInt         `json:"totalResultsAvailable"`
}

// ParseListings normalizes a catalog search response body into listings.
// Records that no parser accepts are skipped.
func ParseListings(body []byte) ([]fashion.Listing, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	var raw json.RawMessage
	switch {
	case env.Hits != nil:
		raw = env.Hits
	case env.ResultSet != nil:
		raw = env.ResultSet.Result
	default:
		return nil, ErrUnknownEnvelope
	}

	records, err := recordList(raw)
	if err != nil {
		return nil, err
	}

	listings := make([]fashion.Listing, 0, len(records))
	for _, rec := range records {
		listing, ok := parseRecord(rec)
		if !ok {
			continue
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// recordList accepts a JSON array or null. Some legacy responses used an
// object keyed by position instead of an array.
func recordList(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("failed to decode catalog records: %w", err)
		}
		return records, nil
	}

	var byIndex map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byIndex); err != nil {
		return nil, fmt.Errorf("failed to decode catalog records: %w", err)
	}
	var records []json.RawMessage
	for i := 0; ; i++ {
		rec, ok := byIndex[strconv.Itoa(i)]
		if !ok {
			break
		}
		records = append(records, rec)
	}
	return records, nil
}

// recordParser converts one raw record. ok is false when the record is not
// in the parser's schema.
type recordParser func(raw json.RawMessage) (fashion.Listing, bool)

var recordParsers = []recordParser{parseCurrentRecord, parseLegacyRecord}

func parseRecord(raw json.RawMessage) (fashion.Listing, bool) {
	for _, parse := range recordParsers {
		if listing, ok := parse(raw); ok {
			return listing, true
		}
	}
	return fashion.Listing{}, false
}

type currentRecord struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	Price        *flexInt `json:"price"`
	PremiumPrice *flexInt `json:"premiumPrice"`
	PriceLabel   *struct {
		DefaultPrice    *flexInt `json:"defaultPrice"`
		DiscountedPrice *flexInt `json:"discountedPrice"`
	} `json:"priceLabel"`
	Image *struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
	} `json:"image"`
	Brand *struct {
		Name string `json:"name"`
	} `json:"brand"`
	Seller *struct {
		Name string `json:"name"`
	} `json:"seller"`
	Review *struct {
		Rate  *flexFloat `json:"rate"`
		Count *flexInt   `json:"count"`
	} `json:"review"`
}

func parseCurrentRecord(raw json.RawMessage) (fashion.Listing, bool) {
	var rec currentRecord
	if !hasKey(raw, "name") {
		return fashion.Listing{}, false
	}
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Name == "" {
		return fashion.Listing{}, false
	}

	listing := fashion.Listing{
		Code:    rec.Code,
		Name:    rec.Name,
		ShopURL: rec.URL,
	}

	var listPrice *flexInt
	if rec.PriceLabel != nil {
		listPrice = rec.PriceLabel.DefaultPrice
		listing.Price = firstPrice(rec.Price, rec.PriceLabel.DiscountedPrice, rec.PriceLabel.DefaultPrice, rec.PremiumPrice)
	} else {
		listing.Price = firstPrice(rec.Price, rec.PremiumPrice)
	}
	listing.OriginalPrice = originalPrice(listing.Price, listPrice)

	if rec.Image != nil {
		listing.ImageURL = firstNonEmpty(rec.Image.Medium, rec.Image.Small)
	}
	if rec.Brand != nil {
		listing.ShopName = rec.Brand.Name
	}
	if listing.ShopName == "" && rec.Seller != nil {
		listing.ShopName = rec.Seller.Name
	}
	if rec.Review != nil {
		listing.Rating, listing.ReviewCount = review(rec.Review.Rate, rec.Review.Count)
	}
	return listing, true
}

type legacyRecord struct {
	Code       string          `json:"Code"`
	Name       string          `json:"Name"`
	URL        string          `json:"Url"`
	Price      json.RawMessage `json:"Price"`
	PriceLabel json.RawMessage `json:"PriceLabel"`
	Image      *struct {
		Small  string `json:"Small"`
		Medium string `json:"Medium"`
	} `json:"Image"`
	Brand  json.RawMessage `json:"Brand"`
	Store  *struct {
		Name string `json:"Name"`
	} `json:"Store"`
	Review *struct {
		Rate  *flexFloat `json:"Rate"`
		Count *flexInt   `json:"Count"`
	} `json:"Review"`
}

func parseLegacyRecord(raw json.RawMessage) (fashion.Listing, bool) {
	var rec legacyRecord
	if !hasKey(raw, "Name") {
		return fashion.Listing{}, false
	}
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Name == "" {
		return fashion.Listing{}, false
	}

	listing := fashion.Listing{
		Code:    rec.Code,
		Name:    rec.Name,
		ShopURL: rec.URL,
	}

	// Price is either a bare number/string or {"_value": ...}.
	price := legacyValue(rec.Price)
	var label struct {
		DefaultPrice *flexInt `json:"DefaultPrice"`
		SalePrice    *flexInt `json:"SalePrice"`
		FixedPrice   *flexInt `json:"FixedPrice"`
	}
	if len(rec.PriceLabel) > 0 && rec.PriceLabel[0] == '{' {
		_ = json.Unmarshal(rec.PriceLabel, &label)
	}
	listing.Price = firstPrice(price, label.SalePrice, label.DefaultPrice, label.FixedPrice, legacyValue(rec.PriceLabel))
	listing.OriginalPrice = originalPrice(listing.Price, label.DefaultPrice)

	if rec.Image != nil {
		listing.ImageURL = firstNonEmpty(rec.Image.Medium, rec.Image.Small)
	}
	listing.ShopName = legacyBrand(rec.Brand)
	if listing.ShopName == "" && rec.Store != nil {
		listing.ShopName = rec.Store.Name
	}
	if rec.Review != nil {
		listing.Rating, listing.ReviewCount = review(rec.Review.Rate, rec.Review.Count)
	}
	return listing, true
}

// hasKey reports whether the object has key with exact casing. encoding/json
// matches field names case-insensitively, so the schemas are told apart here.
func hasKey(raw json.RawMessage, key string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	_, ok := fields[key]
	return ok
}

func legacyValue(raw json.RawMessage) *flexInt {
	if len(raw) == 0 {
		return nil
	}
	var v flexInt
	if err := json.Unmarshal(raw, &v); err == nil {
		return &v
	}
	var wrapped struct {
		Value *flexInt `json:"_value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Value
	}
	return nil
}

func legacyBrand(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}
	var obj struct {
		Name string `json:"Name"`
	}
	_ = json.Unmarshal(raw, &obj)
	return obj.Name
}

// firstPrice returns the first positive candidate.
func firstPrice(candidates ...*flexInt) int {
	for _, c := range candidates {
		if c != nil && *c > 0 {
			return int(*c)
		}
	}
	return 0
}

// originalPrice reports the list price only when it is above the selling
// price.
func originalPrice(price int, list *flexInt) int {
	if list == nil || int(*list) <= price {
		return 0
	}
	return int(*list)
}

func review(rate *flexFloat, count *flexInt) (*float64, *int) {
	if count == nil || *count <= 0 {
		return nil, nil
	}
	n := int(*count)
	if rate == nil {
		return nil, &n
	}
	r := float64(*rate)
	return &r, &n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// flexInt decodes a JSON number or a numeric string such as "1,980".
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(i)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	*f = flexInt(v)
	return nil
}

// flexFloat decodes a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	*f = flexFloat(v)
	return nil
}
