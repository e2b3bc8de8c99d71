package pipeline

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/puntogafas/order-intake/constants"
	"github.com/puntogafas/order-intake/internal/entity"
)

// totalDiscrepancyThreshold is the absolute COP difference above which a
// remission-declared total versus the catalog-computed total triggers a
// verification warning.
const totalDiscrepancyThreshold = 1000

// AssemblerStage builds the final order draft from the three upstream
// outputs. Pure assembly logic, no model call, no I/O. Never returns an
// error.
type AssemblerStage struct {
	Model  string
	Logger *slog.Logger
}

func NewAssemblerStage(model string, logger *slog.Logger) *AssemblerStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssemblerStage{Model: model, Logger: logger}
}

// Run assembles the draft. The order total comes exclusively from catalog
// item prices; document totals are carried as reference only.
func (s *AssemblerStage) Run(job *entity.Job, vision entity.VisionOutput, conversation entity.ConversationOutput, catalogOut entity.CatalogOutput, agentErrors map[string]string, start time.Time) entity.OrderDraft {
	var warnings []string
	var items []entity.OrderDraftItem

	for _, mi := range catalogOut.MatchedItems {
		quantity := mi.Quantity
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, entity.OrderDraftItem{
			Description:          mi.Description,
			Quantity:             quantity,
			UnitPrice:            mi.UnitPrice,
			Subtotal:             mi.UnitPrice * float64(quantity),
			LensCatalogID:        mi.LensCatalogID,
			LensLabCost:          mi.LabCost,
			ProductID:            mi.ProductID,
			NeedsManualSelection: mi.NeedsManualSelection,
		})
	}

	totalAmount := 0.0
	for _, item := range items {
		totalAmount += item.Subtotal
	}

	var remission *entity.Remission
	if len(vision.Remissions) > 0 {
		remission = &vision.Remissions[0]
	}
	var clinical *entity.ClinicalHistory
	if len(vision.ClinicalHistories) > 0 {
		clinical = &vision.ClinicalHistories[0]
	}

	paymentSuggestion := buildPaymentSuggestion(remission, conversation.PaymentMentions)

	var prescription *entity.PrescriptionInsert
	if len(vision.Prescriptions) > 0 {
		best := vision.Prescriptions[0]
		prescription = &entity.PrescriptionInsert{
			CustomerID:       job.CustomerID,
			RxData:           best.RxData,
			OriginalImageURL: best.ImageURL,
			ExtractionMetadata: &entity.ExtractionMetadata{
				Source:      "ai_pipeline",
				Confidence:  best.Confidence,
				Model:       s.Model,
				Warnings:    best.Warnings,
				ExtractedAt: time.Now().UTC().Format(time.RFC3339),
			},
		}
		for _, w := range best.Warnings {
			warnings = append(warnings, "Fórmula: "+w)
		}
	}

	warnings = append(warnings, conversation.Warnings...)
	warnings = append(warnings, catalogOut.Warnings...)

	if vision.Error != "" {
		warnings = append(warnings, "Agente Visión: "+vision.Error)
	}
	if conversation.Error != "" {
		warnings = append(warnings, "Agente Conversación: "+conversation.Error)
	}
	if catalogOut.Error != "" {
		warnings = append(warnings, "Agente Catálogo: "+catalogOut.Error)
	}

	if len(items) == 0 {
		warnings = append(warnings, "No se identificaron productos — pedido vacío requiere revisión manual")
	}
	if totalAmount == 0 && len(items) > 0 {
		warnings = append(warnings, "Total $0 — precios pendientes de asignar por logística")
	}
	if prescription == nil && len(job.Payload.MediaURLs) > 0 {
		warnings = append(warnings, "Se enviaron imágenes pero no se extrajo fórmula óptica")
	}

	anyManual := false
	for _, item := range items {
		if item.NeedsManualSelection {
			anyManual = true
			break
		}
	}
	if anyManual {
		warnings = append(warnings, "Uno o más items requieren selección manual por logística")
	}

	// Urgent observations jump to the head of the list.
	if remission != nil && remission.Observations != "" &&
		strings.Contains(strings.ToUpper(remission.Observations), "URGENTE") {
		urgent := "🔴 URGENTE — observación de remisión: " + remission.Observations
		warnings = append([]string{urgent}, warnings...)
	}

	if remission != nil && remission.TotalAmount != nil && totalAmount > 0 {
		if diff := abs(*remission.TotalAmount - totalAmount); diff > totalDiscrepancyThreshold {
			warnings = append(warnings, fmt.Sprintf(
				"⚠️ Remisión dice $%.0f pero catálogo calcula $%.0f — verificar",
				*remission.TotalAmount, totalAmount))
		}
	}

	if paymentSuggestion != nil && paymentSuggestion.HasProof {
		warnings = append(warnings, "📎 Comprobante de pago detectado — requiere verificación")
	}

	completeness := classifyCompleteness(items, totalAmount, prescription != nil, anyManual, len(job.Payload.MediaURLs))

	orderType := constants.OrderTypeOptical
	if conversation.SuggestedOrderType == constants.OrderTypeDirectSale {
		orderType = constants.OrderTypeDirectSale
	}
	// Direct sales are created ready to bill; the optical flow always
	// starts as a draft pending logistics review.
	var suggestedStatus constants.OrderStatus
	if orderType == constants.OrderTypeDirectSale {
		suggestedStatus = constants.OrderStatusBilling
	}

	labID := catalogOut.SuggestedLabID
	if orderType == constants.OrderTypeDirectSale {
		labID = ""
	}

	draft := entity.OrderDraft{
		Header: entity.OrderDraftHeader{
			CustomerID:    job.CustomerID,
			SedeID:        job.SedeID,
			SellerID:      job.RequestedBy,
			Status:        constants.OrderStatusDraft,
			OrderType:     orderType,
			TotalAmount:   totalAmount,
			BalanceDue:    totalAmount,
			PaymentStatus: constants.PaymentStatusPending,
			LabID:         labID,
			PromisedDate:  conversation.PromisedDateHint,
		},
		Items:                items,
		Prescription:         prescription,
		Remission:            remission,
		ClinicalHistory:      clinical,
		Frames:               vision.Frames,
		ImageClassifications: vision.ImageClassifications,
		PaymentSuggestion:    paymentSuggestion,
		CustomerUpdates:      conversation.CustomerUpdates,
		SuggestedStatus:      suggestedStatus,
		Completeness:         completeness,
		Warnings:             warnings,
		NeedsManualReview:    completeness != constants.CompletenessComplete,
		ProcessingTimeMS:     time.Since(start).Milliseconds(),
		AgentErrors:          agentErrors,
	}

	method := "none"
	if paymentSuggestion != nil && paymentSuggestion.Method != nil {
		method = string(*paymentSuggestion.Method)
	}
	s.Logger.Info("assembler.order_built",
		"items", len(items), "total", totalAmount,
		"completeness", completeness, "order_type", orderType,
		"remission", remission != nil, "clinical", clinical != nil,
		"frames", len(vision.Frames), "payment", method,
		"warnings", len(warnings))

	return draft
}

// buildPaymentSuggestion merges payment evidence into a single suggestion.
// A remission with a resolved method wins outright over any conversation
// mention; the amount is reference-only in every branch.
func buildPaymentSuggestion(remission *entity.Remission, mentions []entity.PaymentMention) *entity.PaymentSuggestion {
	if remission != nil && remission.PaymentMethod != nil {
		paymentType := constants.PaymentTotal
		if remission.PaymentType != nil {
			paymentType = *remission.PaymentType
		}
		amount := remission.PaymentAmount
		if amount == nil {
			amount = remission.TotalAmount
		}
		return &entity.PaymentSuggestion{
			Method:          remission.PaymentMethod,
			Type:            paymentType,
			AmountReference: amount,
			HasProof:        remission.HasProof,
			Source:          constants.SourceRemission,
		}
	}

	for _, m := range mentions {
		if m.Method == nil {
			continue
		}
		paymentType := constants.PaymentTotal
		if m.Type != nil {
			paymentType = *m.Type
		}
		return &entity.PaymentSuggestion{
			Method:          m.Method,
			Type:            paymentType,
			AmountReference: m.Amount,
			HasProof:        m.HasProof,
			Source:          m.Source,
			ProofURL:        m.ProofURL,
		}
	}

	if remission != nil && remission.PaymentInfo != "" {
		return &entity.PaymentSuggestion{
			Type:            constants.PaymentTotal,
			AmountReference: remission.TotalAmount,
			Source:          constants.SourceRemission,
		}
	}

	return nil
}

func classifyCompleteness(items []entity.OrderDraftItem, total float64, hasPrescription, anyManual bool, imageCount int) constants.Completeness {
	hasItems := len(items) > 0
	switch {
	case hasItems && total > 0 && !anyManual:
		if hasPrescription || imageCount == 0 {
			return constants.CompletenessComplete
		}
		return constants.CompletenessPartial
	case hasItems:
		return constants.CompletenessPartial
	default:
		return constants.CompletenessMinimal
	}
}
