package feed

import (
	"fmt"
	"strings"

	"ugc/exporter/internal/category"
	"ugc/exporter/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// Assembler turns catalog products into export records. Category
// resolution goes through the per-job index manager; descriptions are
// storefront HTML and get flattened to plain text before export.
type Assembler struct {
	categories *category.Manager
}

func NewAssembler(categories *category.Manager) *Assembler {
	return &Assembler{
		categories: categories,
	}
}

// Assemble builds the export record for one product. A failure here
// degrades that product only; the caller decides whether to skip it or
// abort the job on repeated failures.
func (a *Assembler) Assemble(p domain.Product) (*domain.ExportRecord, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("product has no id")
	}

	record := &domain.ExportRecord{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: SanitizeDescription(p.Description),
		ImageURL:    p.ImageURL,
		ProductURL:  p.ProductURL,
		Categories:  a.categories.CategoriesForProduct(p.CategoryIDs),
	}

	return record, nil
}

// SanitizeDescription strips storefront HTML markup from a product
// description and collapses the remaining whitespace. Unparseable
// input is passed through unchanged rather than dropped.
func SanitizeDescription(description string) string {
	if description == "" {
		return ""
	}
	if !strings.ContainsAny(description, "<>") {
		return strings.Join(strings.Fields(description), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		log.Debugf("Failed to parse product description as HTML: %v", err)
		return strings.Join(strings.Fields(description), " ")
	}

	doc.Find("script, style").Remove()

	return strings.Join(strings.Fields(doc.Text()), " ")
}
