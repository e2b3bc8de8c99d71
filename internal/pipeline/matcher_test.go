package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/puntogafas/order-intake/constants"
	"github.com/puntogafas/order-intake/internal/catalog"
	"github.com/puntogafas/order-intake/internal/entity"
)

type stubLensStore struct {
	rows   []catalog.LensRow
	err    error
	calls  int
	panics bool
}

func (s *stubLensStore) ListActiveLenses(_ context.Context, _ string, _ *bool) ([]catalog.LensRow, error) {
	s.calls++
	if s.panics {
		panic("lens store blew up")
	}
	return s.rows, s.err
}

type stubProductStore struct {
	rows  []catalog.ProductRow
	err   error
	calls int
}

func (s *stubProductStore) ListProducts(_ context.Context, _, _ string) ([]catalog.ProductRow, error) {
	s.calls++
	return s.rows, s.err
}

func fptr(v float64) *float64 { return &v }

func matcherWith(lenses *stubLensStore, products *stubProductStore) *MatcherStage {
	return NewMatcherStage(catalog.NewSearch(lenses, products, nil), nil)
}

func visionWithRx(od, os *entity.EyeRx) entity.VisionOutput {
	return entity.VisionOutput{Prescriptions: []entity.Prescription{
		{RxData: &entity.RxData{OD: od, OS: os}},
	}}
}

func TestMatcherRun_NoItems(t *testing.T) {
	stage := matcherWith(&stubLensStore{}, &stubProductStore{})

	out := stage.Run(context.Background(), entity.ConversationOutput{}, entity.VisionOutput{})

	if len(out.MatchedItems) != 0 {
		t.Errorf("expected no matched items, got %d", len(out.MatchedItems))
	}
	if len(out.Warnings) != 1 || out.Warnings[0] != "No hay items para buscar en catálogo" {
		t.Errorf("expected no-items warning, got %v", out.Warnings)
	}
}

func TestMatcherRun_OneMatchPerItem(t *testing.T) {
	lenses := &stubLensStore{rows: []catalog.LensRow{
		{ID: "lens-1", LensType: "Monofocal Poly", RetailPrice: 120000, LabID: "lab-9", LabCost: fptr(40000)},
	}}
	products := &stubProductStore{err: errors.New("products down")}
	stage := matcherWith(lenses, products)

	conversation := entity.ConversationOutput{ItemsRequested: []entity.ItemRequested{
		{Kind: "lente", Description: "monofocal poly", Quantity: 2},
		{Kind: "montura", Description: "montura metálica", Quantity: 1},
		{Kind: "servicio", Description: "ajuste", Quantity: 1},
	}}

	out := stage.Run(context.Background(), conversation, entity.VisionOutput{})

	if len(out.MatchedItems) != len(conversation.ItemsRequested) {
		t.Fatalf("expected %d matched items, got %d", len(conversation.ItemsRequested), len(out.MatchedItems))
	}
	lens := out.MatchedItems[0]
	if lens.LensCatalogID != "lens-1" || lens.UnitPrice != 120000 || lens.Confidence != 0.9 {
		t.Errorf("lens match wrong: %+v", lens)
	}
	if out.MatchedItems[1].NeedsManualSelection != true {
		t.Errorf("frame with failing store should need manual selection")
	}
	if out.MatchedItems[2].NeedsManualSelection != true {
		t.Errorf("service items always need manual selection")
	}
	if out.SuggestedLabID != "lab-9" {
		t.Errorf("expected lab from first lens match, got %q", out.SuggestedLabID)
	}
	if len(out.Warnings) != 2 {
		t.Errorf("expected one warning per manual item, got %v", out.Warnings)
	}
}

func TestMatcherRun_DirectSaleSkipsLensesAndLab(t *testing.T) {
	lenses := &stubLensStore{rows: []catalog.LensRow{{ID: "lens-1", LabID: "lab-9", RetailPrice: 100000}}}
	products := &stubProductStore{rows: []catalog.ProductRow{
		{ID: "prod-1", Name: "Estuche rígido", Price: 20000},
	}}
	stage := matcherWith(lenses, products)

	conversation := entity.ConversationOutput{
		SuggestedOrderType: constants.OrderTypeDirectSale,
		ItemsRequested: []entity.ItemRequested{
			{Kind: "accesorio", Description: "estuche rígido", Quantity: 1},
		},
	}

	out := stage.Run(context.Background(), conversation, entity.VisionOutput{})

	if lenses.calls != 0 {
		t.Errorf("direct sale must not touch the lens catalog, got %d calls", lenses.calls)
	}
	if out.SuggestedLabID != "" {
		t.Errorf("direct sale must not suggest a lab, got %q", out.SuggestedLabID)
	}
	if len(out.MatchedItems) != 1 || out.MatchedItems[0].ProductID != "prod-1" {
		t.Fatalf("expected product match, got %+v", out.MatchedItems)
	}
	if out.MatchedItems[0].Confidence != 0.8 {
		t.Errorf("expected product confidence 0.8, got %f", out.MatchedItems[0].Confidence)
	}
}

func TestMatcherRun_PanicIsolatedPerItem(t *testing.T) {
	lenses := &stubLensStore{panics: true}
	products := &stubProductStore{rows: []catalog.ProductRow{{ID: "prod-1", Name: "Paño", Price: 5000}}}
	stage := matcherWith(lenses, products)

	conversation := entity.ConversationOutput{ItemsRequested: []entity.ItemRequested{
		{Kind: "lente", Description: "progresivo"},
		{Kind: "accesorio", Description: "paño"},
	}}

	out := stage.Run(context.Background(), conversation, entity.VisionOutput{})

	if len(out.MatchedItems) != 2 {
		t.Fatalf("a panicking search must not lose items, got %d", len(out.MatchedItems))
	}
	if !out.MatchedItems[0].NeedsManualSelection {
		t.Errorf("panicked item should degrade to manual selection: %+v", out.MatchedItems[0])
	}
	if out.MatchedItems[1].ProductID != "prod-1" {
		t.Errorf("item after the panic should still match: %+v", out.MatchedItems[1])
	}
}

func TestWorstEyeValues(t *testing.T) {
	cases := []struct {
		name       string
		od, os     *entity.EyeRx
		wantSphere float64
	}{
		{"os strictly worse", &entity.EyeRx{Sphere: fptr(-2.0)}, &entity.EyeRx{Sphere: fptr(-4.5)}, -4.5},
		{"od wins ties", &entity.EyeRx{Sphere: fptr(-3.0)}, &entity.EyeRx{Sphere: fptr(3.0)}, -3.0},
		{"od worse", &entity.EyeRx{Sphere: fptr(-5.0)}, &entity.EyeRx{Sphere: fptr(-1.0)}, -5.0},
	}
	for _, tc := range cases {
		got := worstEyeValues(visionWithRx(tc.od, tc.os))
		if got.Sphere == nil || *got.Sphere != tc.wantSphere {
			t.Errorf("%s: expected sphere %f, got %v", tc.name, tc.wantSphere, got.Sphere)
		}
	}
}

func TestWorstEyeValues_AddFromODFirst(t *testing.T) {
	got := worstEyeValues(visionWithRx(
		&entity.EyeRx{Add: fptr(2.0)},
		&entity.EyeRx{Add: fptr(2.5)},
	))
	if got.AddPower == nil || *got.AddPower != 2.0 {
		t.Errorf("add should come from OD when present, got %v", got.AddPower)
	}

	got = worstEyeValues(visionWithRx(
		&entity.EyeRx{},
		&entity.EyeRx{Add: fptr(2.5)},
	))
	if got.AddPower == nil || *got.AddPower != 2.5 {
		t.Errorf("add should fall back to OS, got %v", got.AddPower)
	}
}

func TestWorstEyeValues_NoPrescription(t *testing.T) {
	got := worstEyeValues(entity.VisionOutput{})
	if got.Sphere != nil || got.Cylinder != nil || got.AddPower != nil {
		t.Errorf("expected empty refraction, got %+v", got)
	}
}
