package normalize

import (
	"regexp"
	"strings"

	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

// stockExact maps already-clean availability strings straight to a status.
var stockExact = map[string]domain.StockStatus{
	"in stock":       domain.StockInStock,
	"in_stock":       domain.StockInStock,
	"instock":        domain.StockInStock,
	"available":      domain.StockInStock,
	"out of stock":   domain.StockOutOfStock,
	"out_of_stock":   domain.StockOutOfStock,
	"outofstock":     domain.StockOutOfStock,
	"sold out":       domain.StockOutOfStock,
	"unavailable":    domain.StockUnavailable,
	"backorder":      domain.StockBackOrder,
	"back order":     domain.StockBackOrder,
	"back_order":     domain.StockBackOrder,
	"preorder":       domain.StockPreorder,
	"pre-order":      domain.StockPreorder,
	"pre order":      domain.StockPreorder,
	"limited":        domain.StockLimited,
	"limited stock":  domain.StockLimited,
	"discontinued":   domain.StockDiscontinued,
	"no longer made": domain.StockDiscontinued,
	"unknown":        domain.StockUnknown,
}

// stockPatterns is matched in order against lowercased free text; the first
// hit wins. Negated phrases must come before their positive counterparts
// ("out of stock" contains "stock").
var stockPatterns = []struct {
	re     *regexp.Regexp
	status domain.StockStatus
}{
	{regexp.MustCompile(`out\s*of\s*stock|sold\s*out|not\s+available`), domain.StockOutOfStock},
	{regexp.MustCompile(`back\s*-?\s*order`), domain.StockBackOrder},
	{regexp.MustCompile(`pre\s*-?\s*order`), domain.StockPreorder},
	{regexp.MustCompile(`discontinued|no\s+longer\s+(?:available|made)`), domain.StockDiscontinued},
	{regexp.MustCompile(`limited|low\s+stock|only\s+\d+\s+left|few\s+remaining`), domain.StockLimited},
	{regexp.MustCompile(`unavailable`), domain.StockUnavailable},
	{regexp.MustCompile(`in\s*stock|available|ready\s+to\s+ship|ships\s+`), domain.StockInStock},
}

// NormalizeStock maps free-text availability to a stock status. Text that
// matches no category falls back to its slugified raw value so the literal
// signal remains visible downstream.
func NormalizeStock(raw string) domain.StockStatus {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return domain.StockUnknown
	}

	if status, ok := stockExact[text]; ok {
		return status
	}

	for _, p := range stockPatterns {
		if p.re.MatchString(text) {
			return p.status
		}
	}

	return domain.StockStatus(Slugify(text))
}
