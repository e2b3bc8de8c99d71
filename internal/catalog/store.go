package catalog

import "context"

// LensRow is one row from the lens_catalog table. Nil range bounds mean
// the row declares no limit on that axis.
type LensRow struct {
	ID          string
	LensType    string
	Category    string
	Material    string
	Treatment   string
	IsDigital   bool
	SphereMin   *float64
	SphereMax   *float64
	CylinderMin *float64
	CylinderMax *float64
	AddMin      *float64
	AddMax      *float64
	RetailPrice float64
	LabCost     *float64
	LabID       string
	Active      bool
}

// ProductRow is one row from the products table. Tags carries the ai_tags
// JSONB values, already flattened to strings.
type ProductRow struct {
	ID          string
	Name        string
	Description string
	Brand       string
	Material    string
	Category    string
	Price       float64
	Tags        []string
}

// LensStore reads active lens rows, optionally narrowed by the exact
// filters the backend can apply cheaply (category, digital flag).
type LensStore interface {
	ListActiveLenses(ctx context.Context, category string, isDigital *bool) ([]LensRow, error)
}

// ProductStore reads product rows, optionally narrowed by exact category
// and a fuzzy brand pattern.
type ProductStore interface {
	ListProducts(ctx context.Context, category, brand string) ([]ProductRow, error)
}
