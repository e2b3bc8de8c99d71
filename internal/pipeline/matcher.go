package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/puntogafas/order-intake/constants"
	"github.com/puntogafas/order-intake/internal/catalog"
	"github.com/puntogafas/order-intake/internal/entity"
)

// MatcherStage binds requested items to catalog rows. Pure search logic,
// no model call. Always emits exactly one MatchedItem per requested item;
// failures degrade to manual-selection placeholders. Never returns an
// error.
type MatcherStage struct {
	Search *catalog.Search
	Logger *slog.Logger
}

func NewMatcherStage(search *catalog.Search, logger *slog.Logger) *MatcherStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatcherStage{Search: search, Logger: logger}
}

// rxValues is the representative refraction used for lens range matching.
type rxValues struct {
	Sphere   *float64
	Cylinder *float64
	AddPower *float64
}

// Run matches every requested item. For a direct accessory sale only the
// products table is searched and no lab is suggested.
func (s *MatcherStage) Run(ctx context.Context, conversation entity.ConversationOutput, vision entity.VisionOutput) entity.CatalogOutput {
	isDirectSale := conversation.SuggestedOrderType == constants.OrderTypeDirectSale

	if len(conversation.ItemsRequested) == 0 {
		s.Logger.Info("matcher.skip", "reason", "no items")
		return entity.CatalogOutput{
			Warnings: []string{"No hay items para buscar en catálogo"},
		}
	}

	var rx rxValues
	if !isDirectSale {
		rx = worstEyeValues(vision)
	}

	var out entity.CatalogOutput
	for _, item := range conversation.ItemsRequested {
		match := s.matchItem(ctx, item, rx, isDirectSale)

		if match.Kind == string(constants.KindLens) && match.LabID != "" && out.SuggestedLabID == "" {
			out.SuggestedLabID = match.LabID
		}
		if match.NeedsManualSelection {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("Sin match para %s: '%s' — logística debe asignar", item.Kind, item.Description))
		}
		out.MatchedItems = append(out.MatchedItems, match)
	}

	if isDirectSale {
		out.SuggestedLabID = ""
	}

	s.Logger.Info("matcher.done",
		"matched", len(out.MatchedItems), "warnings", len(out.Warnings),
		"lab", out.SuggestedLabID, "direct_sale", isDirectSale)
	return out
}

func (s *MatcherStage) matchItem(ctx context.Context, item entity.ItemRequested, rx rxValues, isDirectSale bool) (match entity.MatchedItem) {
	// A search panic must not lose the item.
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("matcher.item_panic", "description", item.Description, "panic", r)
			match = manualItem(item, fmt.Sprintf("Error: %v", r))
		}
	}()

	switch {
	case isDirectSale:
		match = s.matchProduct(ctx, item)
		s.Logger.Info("matcher.direct_sale",
			"type", item.Kind, "description", match.Description, "price", match.UnitPrice)
	case item.Kind == string(constants.KindLens):
		match = s.matchLens(ctx, item, rx)
	case item.Kind == string(constants.KindFrame) || item.Kind == string(constants.KindAccessory):
		match = s.matchProduct(ctx, item)
	case item.Kind == string(constants.KindService):
		match = entity.MatchedItem{
			Kind:                 string(constants.KindService),
			Description:          fallback(item.Description, "Servicio"),
			Quantity:             item.Quantity,
			NeedsManualSelection: true,
			Notes:                item.Notes,
		}
	default:
		match = entity.MatchedItem{
			Kind:                 fallback(item.Kind, "otro"),
			Description:          fallback(item.Description, "Item no clasificado"),
			Quantity:             item.Quantity,
			NeedsManualSelection: true,
			Notes:                item.Notes,
		}
	}
	return match
}

func (s *MatcherStage) matchLens(ctx context.Context, item entity.ItemRequested, rx rxValues) entity.MatchedItem {
	results := s.Search.SearchLenses(ctx, catalog.LensQuery{
		Category:      item.Category,
		MaterialHint:  item.MaterialHint,
		TreatmentHint: item.TreatmentHint,
		IsDigital:     item.IsDigital,
		Sphere:        rx.Sphere,
		Cylinder:      rx.Cylinder,
		AddPower:      rx.AddPower,
	})

	if len(results) == 0 {
		s.Logger.Info("matcher.lens.no_match", "description", item.Description)
		return entity.MatchedItem{
			Kind:                 string(constants.KindLens),
			Description:          fallback(item.Description, "Lente - sin match en catálogo"),
			Quantity:             item.Quantity,
			NeedsManualSelection: true,
			Notes:                item.Notes,
		}
	}

	best := results[0]
	var alternatives []entity.CatalogCandidate
	for _, r := range results[1:] {
		alternatives = append(alternatives, entity.CatalogCandidate{
			LensCatalogID: r.ID,
			Description:   r.LensType,
			Price:         r.RetailPrice,
		})
	}

	return entity.MatchedItem{
		Kind:          string(constants.KindLens),
		LensCatalogID: best.ID,
		LabID:         best.LabID,
		Description:   fallback(best.LensType, item.Description),
		UnitPrice:     best.RetailPrice,
		LabCost:       best.LabCost,
		Quantity:      item.Quantity,
		Confidence:    0.9,
		Alternatives:  alternatives,
		Notes:         item.Notes,
	}
}

func (s *MatcherStage) matchProduct(ctx context.Context, item entity.ItemRequested) entity.MatchedItem {
	results := s.Search.SearchProducts(ctx, catalog.ProductQuery{
		Description: item.Description,
		Brand:       item.BrandHint,
		Material:    item.MaterialHint,
		Category:    item.Kind,
	})

	if len(results) == 0 {
		s.Logger.Info("matcher.product.no_match", "description", item.Description)
		kind := fallback(item.Kind, string(constants.KindFrame))
		description := item.Description
		if description == "" {
			description = fmt.Sprintf("%s - Pendiente selección", fallback(item.Kind, "Producto"))
		}
		return entity.MatchedItem{
			Kind:                 kind,
			Description:          description,
			Quantity:             item.Quantity,
			NeedsManualSelection: true,
			Notes:                item.Notes,
		}
	}

	best := results[0]
	var alternatives []entity.CatalogCandidate
	for _, r := range results[1:] {
		alternatives = append(alternatives, entity.CatalogCandidate{
			ProductID:   r.ID,
			Description: r.Name,
			Price:       r.Price,
		})
	}

	return entity.MatchedItem{
		Kind:         fallback(item.Kind, string(constants.KindFrame)),
		ProductID:    best.ID,
		Description:  fallback(best.Name, item.Description),
		UnitPrice:    best.Price,
		Quantity:     item.Quantity,
		Confidence:   0.8,
		Alternatives: alternatives,
		Notes:        item.Notes,
	}
}

// worstEyeValues picks the representative sphere/cylinder from the first
// prescription: whichever eye has the larger absolute value, OD winning
// ties. Add comes from OD when present, else OS.
func worstEyeValues(vision entity.VisionOutput) rxValues {
	if len(vision.Prescriptions) == 0 {
		return rxValues{}
	}
	rx := vision.Prescriptions[0].RxData
	if rx == nil {
		return rxValues{}
	}

	var out rxValues
	if rx.OD != nil && rx.OD.Sphere != nil {
		out.Sphere = rx.OD.Sphere
	}
	if rx.OS != nil && rx.OS.Sphere != nil {
		if out.Sphere == nil || abs(*rx.OS.Sphere) > abs(*out.Sphere) {
			out.Sphere = rx.OS.Sphere
		}
	}

	if rx.OD != nil && rx.OD.Cylinder != nil {
		out.Cylinder = rx.OD.Cylinder
	}
	if rx.OS != nil && rx.OS.Cylinder != nil {
		if out.Cylinder == nil || abs(*rx.OS.Cylinder) > abs(*out.Cylinder) {
			out.Cylinder = rx.OS.Cylinder
		}
	}

	if rx.OD != nil && rx.OD.Add != nil {
		out.AddPower = rx.OD.Add
	} else if rx.OS != nil && rx.OS.Add != nil {
		out.AddPower = rx.OS.Add
	}

	return out
}

func manualItem(item entity.ItemRequested, note string) entity.MatchedItem {
	return entity.MatchedItem{
		Kind:                 fallback(item.Kind, "otro"),
		Description:          fallback(item.Description, "Item con error de matching"),
		Quantity:             item.Quantity,
		NeedsManualSelection: true,
		Notes:                note,
	}
}

func fallback(s, alt string) string {
	if s != "" {
		return s
	}
	return alt
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
