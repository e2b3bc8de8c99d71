package catalog

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// topN is how many ranked candidates a search returns.
const topN = 3

// Search runs fuzzy queries over the two product catalogs. A failing store
// read degrades to an empty result set; callers report that as a warning,
// it never propagates.
type Search struct {
	lenses   LensStore
	products ProductStore
	log      *slog.Logger
}

func NewSearch(lenses LensStore, products ProductStore, logger *slog.Logger) *Search {
	if logger == nil {
		logger = slog.Default()
	}
	return &Search{lenses: lenses, products: products, log: logger}
}

// LensQuery carries the filters for a lens_catalog search. Nil numeric
// values skip that axis entirely.
type LensQuery struct {
	Category      string
	MaterialHint  string
	TreatmentHint string
	IsDigital     *bool
	Sphere        *float64
	Cylinder      *float64
	AddPower      *float64
}

// SearchLenses returns up to 3 matches sorted by retail price, cheapest
// first. Fuzzy filters that would eliminate every row are discarded
// rather than returning an empty set; numeric range filters are strict.
func (s *Search) SearchLenses(ctx context.Context, q LensQuery) []LensRow {
	rows, err := s.lenses.ListActiveLenses(ctx, strings.ToLower(q.Category), q.IsDigital)
	if err != nil {
		s.log.Error("catalog.lens.read_failed", "category", q.Category, "error", err)
		return nil
	}
	if len(rows) == 0 {
		s.log.Info("catalog.lens.no_rows", "category", q.Category)
		return nil
	}

	// Material and treatment are fuzzy: a partial match beats nothing, so
	// an all-eliminating filter is abandoned.
	if patterns := materialPatterns(NormalizeMaterial(q.MaterialHint)); len(patterns) > 0 {
		filtered := rows[:0:0]
		for _, row := range rows {
			combined := strings.ToLower(row.Material + " " + row.LensType)
			if containsAny(combined, patterns) {
				filtered = append(filtered, row)
			}
		}
		if len(filtered) > 0 {
			rows = filtered
		}
	}

	if patterns := treatmentPatterns(NormalizeTreatment(q.TreatmentHint)); len(patterns) > 0 {
		filtered := rows[:0:0]
		for _, row := range rows {
			combined := strings.ToLower(row.Treatment + " " + row.LensType)
			if containsAny(combined, patterns) {
				filtered = append(filtered, row)
			}
		}
		if len(filtered) > 0 {
			rows = filtered
		}
	}

	// Optical ranges: rows with no declared bound on an axis pass.
	rows = filterRange(rows, q.Sphere, func(r LensRow) (*float64, *float64) { return r.SphereMin, r.SphereMax })
	rows = filterRange(rows, q.Cylinder, func(r LensRow) (*float64, *float64) { return r.CylinderMin, r.CylinderMax })
	rows = filterRange(rows, q.AddPower, func(r LensRow) (*float64, *float64) { return r.AddMin, r.AddMax })

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].RetailPrice < rows[j].RetailPrice })
	if len(rows) > topN {
		rows = rows[:topN]
	}

	s.log.Info("catalog.lens.matched",
		"category", q.Category, "material", q.MaterialHint,
		"treatment", q.TreatmentHint, "results", len(rows))
	return rows
}

// ProductQuery carries the filters for a products search.
type ProductQuery struct {
	Description string
	Brand       string
	Material    string
	Category    string
}

// SearchProducts returns up to 3 matches. With a description, candidates
// are scored by how many description tokens (longer than 2 characters)
// appear in the row's searchable text, ranked descending; zero-score rows
// are dropped. A material filter that empties the set is abandoned.
func (s *Search) SearchProducts(ctx context.Context, q ProductQuery) []ProductRow {
	rows, err := s.products.ListProducts(ctx, q.Category, q.Brand)
	if err != nil {
		s.log.Error("catalog.product.read_failed", "brand", q.Brand, "category", q.Category, "error", err)
		return nil
	}
	if len(rows) == 0 {
		s.log.Info("catalog.product.no_rows", "brand", q.Brand, "category", q.Category)
		return nil
	}

	if q.Description != "" {
		keywords := descriptionTokens(q.Description)
		type scored struct {
			score int
			row   ProductRow
		}
		var ranked []scored
		for _, row := range rows {
			searchable := strings.ToLower(strings.Join([]string{
				row.Name, row.Description, row.Brand, row.Material, strings.Join(row.Tags, " "),
			}, " "))
			score := 0
			for _, kw := range keywords {
				if strings.Contains(searchable, kw) {
					score++
				}
			}
			if score > 0 {
				ranked = append(ranked, scored{score: score, row: row})
			}
		}
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
		rows = rows[:0:0]
		for i, sc := range ranked {
			if i == topN {
				break
			}
			rows = append(rows, sc.row)
		}
		if len(rows) == 0 {
			s.log.Info("catalog.product.no_description_match", "description", q.Description)
			return nil
		}
	}

	if q.Material != "" && len(rows) > 0 {
		mat := strings.ToLower(strings.TrimSpace(q.Material))
		filtered := rows[:0:0]
		for _, row := range rows {
			if strings.Contains(strings.ToLower(row.Material), mat) ||
				strings.Contains(strings.ToLower(strings.Join(row.Tags, " ")), mat) {
				filtered = append(filtered, row)
			}
		}
		if len(filtered) > 0 {
			rows = filtered
		}
	}

	if len(rows) > topN {
		rows = rows[:topN]
	}
	s.log.Info("catalog.product.matched",
		"description", q.Description, "brand", q.Brand, "results", len(rows))
	return rows
}

func containsAny(haystack string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(haystack, p) {
			return true
		}
	}
	return false
}

func descriptionTokens(description string) []string {
	var tokens []string
	for _, w := range strings.Fields(description) {
		if len(w) > 2 {
			tokens = append(tokens, strings.ToLower(w))
		}
	}
	return tokens
}

func filterRange(rows []LensRow, value *float64, bounds func(LensRow) (*float64, *float64)) []LensRow {
	if value == nil {
		return rows
	}
	filtered := rows[:0:0]
	for _, row := range rows {
		min, max := bounds(row)
		if (min == nil || *min <= *value) && (max == nil || *max >= *value) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}
