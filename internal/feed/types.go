package feed

// rawFeedRecord is one product entry as it appears on the wire. Field names
// follow the feed contract, not the internal record shape.
type rawFeedRecord struct {
	Title        string `json:"title"`
	Price        string `json:"price"`
	Availability string `json:"availability"`
	Description  string `json:"description"`
	URL          string `json:"url"`
	SKU          string `json:"sku"`
	ImageURL     string `json:"image_url"`
}
