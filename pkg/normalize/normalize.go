// Package normalize converts raw scraped product records into canonical
// tuples: parsed prices, normalized stock statuses, stable identities, and
// derived SKUs. Everything here is a pure function; per-record failures are
// reported to the caller and never abort a whole run.
package normalize

import (
	"strings"

	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// RawRecord is one scraped product as handed over by the scraping layer.
// Shapes vary by site; only Client plus an identity-bearing URL or SKU are
// required.
type RawRecord struct {
	Client      string `json:"client"`
	Title       string `json:"title,omitempty"`
	PriceText   string `json:"price_text,omitempty"`
	StockText   string `json:"stock_text,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	SKU         string `json:"sku,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Product is the canonical tuple produced from one RawRecord.
type Product struct {
	Client      string
	Identity    string
	Title       *string
	Price       *float64
	PriceRaw    string
	Stock       domain.StockStatus
	StockRaw    string
	Description *string
	URL         string
	SKU         string
	ImageURL    string
}

// Normalize converts a raw record into its canonical form. A record with no
// derivable identity is rejected with ErrNoIdentity. An unparseable price
// yields a nil Price, not a zero and not a rejection.
func Normalize(r RawRecord) (*Product, error) {
	identity, err := Identity(r.Client, r.URL, r.SKU)
	if err != nil {
		return nil, err
	}

	p := &Product{
		Client:      r.Client,
		Identity:    identity,
		Title:       trimmed(r.Title),
		PriceRaw:    strings.TrimSpace(r.PriceText),
		Stock:       NormalizeStock(r.StockText),
		StockRaw:    strings.TrimSpace(r.StockText),
		Description: trimmed(r.Description),
		URL:         strings.TrimSpace(r.URL),
		SKU:         DeriveSKU(r.SKU, r.URL),
		ImageURL:    strings.TrimSpace(r.ImageURL),
	}

	if p.PriceRaw != "" {
		if price, perr := ParsePrice(p.PriceRaw); perr == nil {
			p.Price = &price
		}
	}

	return p, nil
}

// trimmed returns the trimmed string, or nil when the result is empty.
// Empty means absent, which matters for added/removed classification.
func trimmed(s string) *string {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	return &t
}
