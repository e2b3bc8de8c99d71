package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/puntogafas/order-intake/constants"
	"github.com/puntogafas/order-intake/internal/entity"
)

func testJob() *entity.Job {
	return &entity.Job{
		ID:             uuid.New(),
		ConversationID: "conv-1",
		CustomerID:     "cust-1",
		SedeID:         "sede-1",
		RequestedBy:    "advisor-1",
	}
}

func paymentMethod(m constants.PaymentMethod) *constants.PaymentMethod { return &m }

func TestAssemblerRun_TotalsFromCatalogOnly(t *testing.T) {
	stage := NewAssemblerStage("gemini-2.0-flash", nil)
	catalogOut := entity.CatalogOutput{MatchedItems: []entity.MatchedItem{
		{Description: "Monofocal Poly", Quantity: 2, UnitPrice: 80000},
		{Description: "Montura", Quantity: 1, UnitPrice: 60000},
	}}
	vision := entity.VisionOutput{Remissions: []entity.Remission{
		{TotalAmount: fptr(500000)},
	}}

	draft := stage.Run(testJob(), vision, entity.ConversationOutput{}, catalogOut, nil, time.Now())

	if draft.Header.TotalAmount != 220000 {
		t.Errorf("total must come from catalog subtotals, got %f", draft.Header.TotalAmount)
	}
	if draft.Header.BalanceDue != 220000 {
		t.Errorf("balance due should equal total, got %f", draft.Header.BalanceDue)
	}
	if draft.Items[0].Subtotal != 160000 {
		t.Errorf("subtotal should be price*quantity, got %f", draft.Items[0].Subtotal)
	}
}

func TestAssemblerRun_DiscrepancyWarning(t *testing.T) {
	stage := NewAssemblerStage("gemini-2.0-flash", nil)
	catalogOut := entity.CatalogOutput{MatchedItems: []entity.MatchedItem{
		{Description: "Lente", Quantity: 1, UnitPrice: 160000},
	}}
	vision := entity.VisionOutput{Remissions: []entity.Remission{
		{TotalAmount: fptr(220000)},
	}}

	draft := stage.Run(testJob(), vision, entity.ConversationOutput{}, catalogOut, nil, time.Now())

	found := false
	for _, w := range draft.Warnings {
		if strings.Contains(w, "Remisión dice $220000") && strings.Contains(w, "catálogo calcula $160000") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected discrepancy warning, got %v", draft.Warnings)
	}
}

func TestAssemblerRun_SmallDiscrepancyIgnored(t *testing.T) {
	stage := NewAssemblerStage("gemini-2.0-flash", nil)
	catalogOut := entity.CatalogOutput{MatchedItems: []entity.MatchedItem{
		{Description: "Lente", Quantity: 1, UnitPrice: 160000},
	}}
	vision := entity.VisionOutput{Remissions: []entity.Remission{
		{TotalAmount: fptr(160900)},
	}}

	draft := stage.Run(testJob(), vision, entity.ConversationOutput{}, catalogOut, nil, time.Now())

	for _, w := range draft.Warnings {
		if strings.Contains(w, "verificar") {
			t.Errorf("difference below threshold should not warn: %q", w)
		}
	}
}

func TestAssemblerRun_UrgentWarningFirst(t *testing.T) {
	stage := NewAssemblerStage("gemini-2.0-flash", nil)
	catalogOut := entity.CatalogOutput{
		MatchedItems: []entity.MatchedItem{{Description: "Lente", Quantity: 1, NeedsManualSelection: true}},
		Warnings:     []string{"Sin match para lente"},
	}
	vision := entity.VisionOutput{Remissions: []entity.Remission{
		{Observations: "Urgente, cliente viaja el lunes"},
	}}

	draft := stage.Run(testJob(), vision, entity.ConversationOutput{}, catalogOut, nil, time.Now())

	if len(draft.Warnings) == 0 || !strings.HasPrefix(draft.Warnings[0], "🔴 URGENTE") {
		t.Fatalf("urgent observation must be the first warning, got %v", draft.Warnings)
	}
}

func TestAssemblerRun_CompletenessTiers(t *testing.T) {
	stage := NewAssemblerStage("gemini-2.0-flash", nil)
	pricedItem := entity.MatchedItem{Description: "Lente", Quantity: 1, UnitPrice: 100000}
	manualItem := entity.MatchedItem{Description: "Lente", Quantity: 1, NeedsManualSelection: true}
	prescriptionVision := entity.VisionOutput{Prescriptions: []entity.Prescription{
		{RxData: &entity.RxData{}, Confidence: 0.9},
	}}

	cases := []struct {
		name    string
		job     *entity.Job
		vision  entity.VisionOutput
		catalog entity.CatalogOutput
		want    constants.Completeness
		manual  bool
	}{
		{
			"priced items no images",
			testJob(), entity.VisionOutput{},
			entity.CatalogOutput{MatchedItems: []entity.MatchedItem{pricedItem}},
			constants.CompletenessComplete, false,
		},
		{
			"priced items with prescription",
			func() *entity.Job {
				j := testJob()
				j.Payload.MediaURLs = []string{"https://cdn/f.jpg"}
				return j
			}(), prescriptionVision,
			entity.CatalogOutput{MatchedItems: []entity.MatchedItem{pricedItem}},
			constants.CompletenessComplete, false,
		},
		{
			"images but no prescription",
			func() *entity.Job {
				j := testJob()
				j.Payload.MediaURLs = []string{"https://cdn/f.jpg"}
				return j
			}(), entity.VisionOutput{},
			entity.CatalogOutput{MatchedItems: []entity.MatchedItem{pricedItem}},
			constants.CompletenessPartial, true,
		},
		{
			"manual item",
			testJob(), entity.VisionOutput{},
			entity.CatalogOutput{MatchedItems: []entity.MatchedItem{manualItem}},
			constants.CompletenessPartial, true,
		},
		{
			"no items",
			testJob(), entity.VisionOutput{},
			entity.CatalogOutput{},
			constants.CompletenessMinimal, true,
		},
	}

	for _, tc := range cases {
		draft := stage.Run(tc.job, tc.vision, entity.ConversationOutput{}, tc.catalog, nil, time.Now())
		if draft.Completeness != tc.want {
			t.Errorf("%s: expected completeness %q, got %q", tc.name, tc.want, draft.Completeness)
		}
		if draft.NeedsManualReview != tc.manual {
			t.Errorf("%s: expected manual review %v, got %v", tc.name, tc.manual, draft.NeedsManualReview)
		}
	}
}

func TestBuildPaymentSuggestion_RemissionBeatsConversation(t *testing.T) {
	cash := constants.PaymentCash
	partial := constants.PaymentPartial
	remission := &entity.Remission{
		PaymentMethod: paymentMethod(constants.PaymentTransfer),
		PaymentType:   &partial,
		PaymentAmount: fptr(100000),
		HasProof:      true,
	}
	mentions := []entity.PaymentMention{
		{Method: &cash, Amount: fptr(50000), Source: constants.SourceConversation},
	}

	got := buildPaymentSuggestion(remission, mentions)

	if got == nil || got.Method == nil || *got.Method != constants.PaymentTransfer {
		t.Fatalf("remission method should win, got %+v", got)
	}
	if got.Source != constants.SourceRemission {
		t.Errorf("expected remission source, got %q", got.Source)
	}
	if got.AmountReference == nil || *got.AmountReference != 100000 {
		t.Errorf("expected payment amount reference, got %v", got.AmountReference)
	}
	if got.Type != constants.PaymentPartial {
		t.Errorf("expected partial type, got %q", got.Type)
	}
}

func TestBuildPaymentSuggestion_AmountFallsBackToTotal(t *testing.T) {
	remission := &entity.Remission{
		PaymentMethod: paymentMethod(constants.PaymentCash),
		TotalAmount:   fptr(300000),
	}

	got := buildPaymentSuggestion(remission, nil)

	if got == nil || got.AmountReference == nil || *got.AmountReference != 300000 {
		t.Fatalf("expected total amount fallback, got %+v", got)
	}
	if got.Type != constants.PaymentTotal {
		t.Errorf("missing payment type should default to total, got %q", got.Type)
	}
}

func TestBuildPaymentSuggestion_FirstResolvedMention(t *testing.T) {
	nequi := constants.PaymentNequi
	mentions := []entity.PaymentMention{
		{RawText: "pago con puntos", Source: constants.SourceConversation},
		{Method: &nequi, Amount: fptr(80000), Source: constants.SourceInternalNote, HasProof: true, ProofURL: "https://cdn/p.jpg"},
	}

	got := buildPaymentSuggestion(nil, mentions)

	if got == nil || got.Method == nil || *got.Method != constants.PaymentNequi {
		t.Fatalf("expected first mention with a resolved method, got %+v", got)
	}
	if got.Source != constants.SourceInternalNote || !got.HasProof || got.ProofURL == "" {
		t.Errorf("mention fields not carried through: %+v", got)
	}
}

func TestBuildPaymentSuggestion_RemissionTextWithoutMethod(t *testing.T) {
	remission := &entity.Remission{PaymentInfo: "Pago total", TotalAmount: fptr(250000)}

	got := buildPaymentSuggestion(remission, nil)

	if got == nil {
		t.Fatal("expected suggestion from remission text")
	}
	if got.Method != nil {
		t.Errorf("method must stay nil when the document had none, got %v", got.Method)
	}
	if got.AmountReference == nil || *got.AmountReference != 250000 {
		t.Errorf("expected document total as reference, got %v", got.AmountReference)
	}
}

func TestBuildPaymentSuggestion_NoEvidence(t *testing.T) {
	if got := buildPaymentSuggestion(nil, nil); got != nil {
		t.Errorf("expected nil without evidence, got %+v", got)
	}
}

func TestAssemblerRun_DirectSaleStatusAndLab(t *testing.T) {
	stage := NewAssemblerStage("gemini-2.0-flash", nil)
	conversation := entity.ConversationOutput{SuggestedOrderType: constants.OrderTypeDirectSale}
	catalogOut := entity.CatalogOutput{
		MatchedItems:   []entity.MatchedItem{{Description: "Estuche", Quantity: 1, UnitPrice: 20000}},
		SuggestedLabID: "lab-1",
	}

	draft := stage.Run(testJob(), entity.VisionOutput{}, conversation, catalogOut, nil, time.Now())

	if draft.Header.OrderType != constants.OrderTypeDirectSale {
		t.Errorf("expected direct sale order type, got %q", draft.Header.OrderType)
	}
	if draft.SuggestedStatus != constants.OrderStatusBilling {
		t.Errorf("direct sale should suggest por_facturar, got %q", draft.SuggestedStatus)
	}
	if draft.Header.LabID != "" {
		t.Errorf("direct sale must not carry a lab, got %q", draft.Header.LabID)
	}
	if draft.Header.Status != constants.OrderStatusDraft {
		t.Errorf("draft status should stay borrador, got %q", draft.Header.Status)
	}
}

func TestAssemblerRun_AgentErrorsCarried(t *testing.T) {
	stage := NewAssemblerStage("gemini-2.0-flash", nil)
	agentErrors := map[string]string{"vision_extractor": "timeout"}
	vision := entity.VisionOutput{Error: "timeout"}

	draft := stage.Run(testJob(), vision, entity.ConversationOutput{}, entity.CatalogOutput{}, agentErrors, time.Now())

	if draft.AgentErrors["vision_extractor"] != "timeout" {
		t.Errorf("agent errors not carried: %v", draft.AgentErrors)
	}
	found := false
	for _, w := range draft.Warnings {
		if strings.Contains(w, "Agente Visión") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected vision error warning, got %v", draft.Warnings)
	}
}
