package repository

import (
	"context"
	"fmt"

	"ugc/exporter/internal/catalog"
	"ugc/exporter/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CatalogRepository interface {
	LoadCategoryRows(ctx context.Context) ([]catalog.Row, error)
	CountProducts(ctx context.Context) (int, error)
	ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error)
	SaveExportAudit(ctx context.Context, audit *domain.ExportAudit) error
}

type catalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{
		db: db,
	}
}

// LoadCategoryRows reads the flat category table in position order so
// the rebuilt tree keeps the merchandising sort.
func (r *catalogRepository) LoadCategoryRows(ctx context.Context) ([]catalog.Row, error) {
	query := `
	SELECT id, COALESCE(parent_id, ''), name, position
	FROM categories
	ORDER BY position, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	defer rows.Close()

	var result []catalog.Row
	for rows.Next() {
		var row catalog.Row
		if err := rows.Scan(&row.ID, &row.ParentID, &row.Name, &row.Position); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}

	return result, nil
}

func (r *catalogRepository) CountProducts(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE online`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// ListProducts pages through exportable products with their category
// assignment ids aggregated in assignment order.
func (r *catalogRepository) ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	query := `
	SELECT p.id, p.name, COALESCE(p.description, ''), COALESCE(p.image_url, ''), COALESCE(p.product_url, ''),
	       COALESCE(array_agg(pc.category_id ORDER BY pc.position) FILTER (WHERE pc.category_id IS NOT NULL), '{}')
	FROM products p
	LEFT JOIN product_categories pc ON pc.product_id = p.id
	WHERE p.online
	GROUP BY p.id, p.name, p.description, p.image_url, p.product_url
	ORDER BY p.id
	OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.ProductURL, &p.CategoryIDs); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	return products, nil
}

func (r *catalogRepository) SaveExportAudit(ctx context.Context, audit *domain.ExportAudit) error {
	query := `
	INSERT INTO export_audit (job_id, strategy, exported, failed, started_at, ended_at, aborted)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (job_id)
	DO UPDATE SET strategy = $2, exported = $3, failed = $4, started_at = $5, ended_at = $6, aborted = $7`
	_, err := r.db.Exec(ctx, query,
		audit.JobID, audit.Strategy, audit.Exported, audit.Failed, audit.StartedAt, audit.EndedAt, audit.Aborted)
	if err != nil {
		return fmt.Errorf("failed to save export audit: %w", err)
	}

	return nil
}
