package repository

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/puntogafas/order-intake/internal/catalog"
)

// LensCatalogRepo reads the lens_catalog table.
type LensCatalogRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewLensCatalogRepo(pool *pgxpool.Pool, logger *slog.Logger) *LensCatalogRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &LensCatalogRepo{pool: pool, log: logger}
}

func (r *LensCatalogRepo) ListActiveLenses(ctx context.Context, category string, isDigital *bool) ([]catalog.LensRow, error) {
	query := `
		SELECT id::text, lens_type, category,
		       COALESCE(material, ''), COALESCE(treatment, ''), is_digital,
		       sphere_min, sphere_max, cylinder_min, cylinder_max, add_min, add_max,
		       retail_price, lab_cost, COALESCE(lab_id::text, ''), active
		FROM lens_catalog
		WHERE active = true`
	args := []any{}
	if category != "" {
		args = append(args, category)
		query += ` AND category = $1`
	}
	if isDigital != nil {
		args = append(args, *isDigital)
		if len(args) == 1 {
			query += ` AND is_digital = $1`
		} else {
			query += ` AND is_digital = $2`
		}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("lens_catalog query failed", "category", category, "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []catalog.LensRow
	for rows.Next() {
		var row catalog.LensRow
		if err := rows.Scan(
			&row.ID, &row.LensType, &row.Category,
			&row.Material, &row.Treatment, &row.IsDigital,
			&row.SphereMin, &row.SphereMax, &row.CylinderMin, &row.CylinderMax,
			&row.AddMin, &row.AddMax,
			&row.RetailPrice, &row.LabCost, &row.LabID, &row.Active,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ProductRepo reads the products table.
type ProductRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewProductRepo(pool *pgxpool.Pool, logger *slog.Logger) *ProductRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductRepo{pool: pool, log: logger}
}

func (r *ProductRepo) ListProducts(ctx context.Context, category, brand string) ([]catalog.ProductRow, error) {
	query := `
		SELECT id::text, name, COALESCE(description, ''), COALESCE(brand, ''),
		       COALESCE(material, ''), COALESCE(category, ''), price, ai_tags
		FROM products
		WHERE active = true`
	args := []any{}
	if category != "" {
		args = append(args, category)
		query += ` AND category = $1`
	}
	if brand != "" {
		args = append(args, "%"+brand+"%")
		if len(args) == 1 {
			query += ` AND brand ILIKE $1`
		} else {
			query += ` AND brand ILIKE $2`
		}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("products query failed", "category", category, "brand", brand, "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []catalog.ProductRow
	for rows.Next() {
		var row catalog.ProductRow
		var tags []byte
		if err := rows.Scan(
			&row.ID, &row.Name, &row.Description, &row.Brand,
			&row.Material, &row.Category, &row.Price, &tags,
		); err != nil {
			return nil, err
		}
		row.Tags = flattenTags(tags)
		out = append(out, row)
	}
	return out, rows.Err()
}

// flattenTags decodes the ai_tags JSONB column into plain strings. The
// column holds either an array of strings or an object of string values.
func flattenTags(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err == nil {
		var out []string
		for _, v := range asMap {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
