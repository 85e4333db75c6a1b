package feed

import (
	"github.com/jmhart/catalog-tracker/pkg/normalize"
)

// toRawRecords converts wire feed entries into raw records. The client
// namespace is filled in by the source, not here.
func toRawRecords(items []rawFeedRecord) []normalize.RawRecord {
	records := make([]normalize.RawRecord, 0, len(items))
	for i := range items {
		records = append(records, toRawRecord(&items[i]))
	}
	return records
}

func toRawRecord(item *rawFeedRecord) normalize.RawRecord {
	return normalize.RawRecord{
		Title:       item.Title,
		PriceText:   item.Price,
		StockText:   item.Availability,
		Description: item.Description,
		URL:         item.URL,
		SKU:         item.SKU,
		ImageURL:    item.ImageURL,
	}
}
