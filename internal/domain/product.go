package domain

// Product is the subset of a catalog product the feed export needs.
// CategoryIDs holds the product's category assignments in catalog
// order; ids referencing another site's catalog may appear here and
// are skipped during categorization.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	ProductURL  string   `json:"product_url,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
}
