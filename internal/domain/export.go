package domain

import "time"

// CategoryPair is one category reference in an export record, as the
// UGC service expects it.
type CategoryPair struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
}

// ExportRecord is one product as shipped to the UGC service.
// Categories covers the product's assigned categories and all of their
// ancestors up to, but not including, the tree root.
type ExportRecord struct {
	ProductID   string         `json:"product_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
	ProductURL  string         `json:"product_url,omitempty"`
	Categories  []CategoryPair `json:"categories"`
}

// ExportAudit summarizes one finished feed job for the audit table.
type ExportAudit struct {
	JobID     string    `json:"job_id"`
	Strategy  string    `json:"strategy"`
	Exported  int       `json:"exported"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Aborted   bool      `json:"aborted"`
}
