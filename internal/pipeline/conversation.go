package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/puntogafas/order-intake/constants"
	"github.com/puntogafas/order-intake/internal/entity"
	"github.com/puntogafas/order-intake/internal/llm"
)

// ConversationStage extracts purchase intents and payment mentions from
// chat messages and internal notes. Internal notes carry more weight than
// messages; the priority ordering is baked into the context layout and the
// prompt. Never returns an error.
type ConversationStage struct {
	Extractor llm.Extractor
	Logger    *slog.Logger
}

func NewConversationStage(extractor llm.Extractor, logger *slog.Logger) *ConversationStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationStage{Extractor: extractor, Logger: logger}
}

// Run analyzes the conversation. With no messages, notes, or instructions
// it short-circuits without calling the model.
func (s *ConversationStage) Run(ctx context.Context, payload entity.JobPayload) entity.ConversationOutput {
	hasMessages := false
	for _, m := range payload.Messages {
		if m.Content != "" {
			hasMessages = true
			break
		}
	}
	hasNotes := false
	for _, n := range payload.InternalNotes {
		if n.Content != "" {
			hasNotes = true
			break
		}
	}
	if !hasMessages && !hasNotes && payload.Instructions == "" {
		s.Logger.Warn("conversation.skip", "reason", "no messages, notes, or instructions")
		return entity.ConversationOutput{
			Urgency:  constants.UrgencyUnknown,
			Warnings: []string{"Sin mensajes, notas internas ni instrucciones disponibles"},
		}
	}

	context := buildConversationContext(payload)
	s.Logger.Info("conversation.context_built", "chars", len(context))

	raw, rawJSON, err := s.Extractor.ExtractFromText(ctx, conversationPrompt, context)
	if err != nil {
		s.Logger.Error("conversation.extract_failed", "error", err)
		raw = map[string]any{"error": fmt.Sprintf("Error de IA: %v", err)}
		rawJSON = nil
	}

	var schemaWarning string
	if rawJSON != nil {
		schema := llm.BuildConversationSchema()
		if err := llm.ValidateJSONAgainstSchema(schema, rawJSON); err != nil {
			cleaned, touched, sanitizeErr := llm.SanitizeDocument(rawJSON)
			if sanitizeErr != nil || llm.ValidateJSONAgainstSchema(schema, cleaned) != nil {
				s.Logger.Warn("conversation.schema.invalid", "error", err)
				schemaWarning = "respuesta del modelo no cumple el esquema"
			} else if len(touched) > 0 {
				s.Logger.Info("conversation.schema.sanitized", "fields", touched)
			}
		}
	}

	result := parseConversationResult(raw)
	if schemaWarning != "" {
		result.Warnings = append(result.Warnings, schemaWarning)
	}

	if orderType := inferOrderType(payload.InternalNotes, result.ItemsRequested); orderType != "" {
		result.SuggestedOrderType = orderType
		s.Logger.Info("conversation.order_type", "type", orderType)
	}

	s.Logger.Info("conversation.analyzed",
		"items", len(result.ItemsRequested),
		"payment_mentions", len(result.PaymentMentions),
		"urgency", result.Urgency,
		"order_type", result.SuggestedOrderType)
	return result
}

// buildConversationContext assembles the text handed to the model. Notes
// come first, then requester instructions, then the chat transcript, so
// the evidence priority matches reading order.
func buildConversationContext(payload entity.JobPayload) string {
	var parts []string

	if len(payload.InternalNotes) > 0 {
		parts = append(parts, "=== NOTAS INTERNAS DEL ASESOR (MAYOR PRIORIDAD) ===")
		for _, note := range payload.InternalNotes {
			ts := ""
			if note.CreatedAt != "" {
				ts = fmt.Sprintf(" [%s]", note.CreatedAt)
			}
			tag := ""
			if note.SaleTag != nil {
				tag = fmt.Sprintf(" [🏷️ %s]", *note.SaleTag)
			}
			content := note.Content
			if content == "" {
				content = "(vacía)"
			}
			if note.AttachmentURL != "" {
				noteType := note.Type
				if noteType == "" {
					noteType = "image"
				}
				content += fmt.Sprintf(" [Adjunto: %s]", noteType)
			}
			parts = append(parts, fmt.Sprintf("📝%s%s %s", ts, tag, content))
		}
	}

	if payload.Instructions != "" {
		parts = append(parts, fmt.Sprintf("\n=== INSTRUCCIONES ESPECIALES ===\n%s", payload.Instructions))
	}

	if len(payload.Messages) > 0 {
		parts = append(parts, "\n=== CONVERSACIÓN DE CHAT ===")
		for _, msg := range payload.Messages {
			roleLabel := "Asesor"
			if msg.Role == "user" {
				roleLabel = "Cliente"
			}
			ts := ""
			if msg.CreatedAt != "" {
				ts = fmt.Sprintf(" [%s]", msg.CreatedAt)
			}
			content := msg.Content
			if msg.Type != "" && msg.Type != "text" {
				content += fmt.Sprintf(" [Adjunto: %s]", msg.Type)
			}
			if msg.AttachmentURL != "" {
				content += fmt.Sprintf(" [URL adjunto: %s]", msg.AttachmentURL)
			}
			parts = append(parts, fmt.Sprintf("%s%s: %s", roleLabel, ts, content))
		}
	}

	if len(parts) == 0 {
		return "(Sin mensajes ni notas internas disponibles)"
	}
	return strings.Join(parts, "\n")
}

func parseConversationResult(raw map[string]any) entity.ConversationOutput {
	var items []entity.ItemRequested
	if rawItems, ok := raw["items_requested"].([]any); ok {
		for _, ri := range rawItems {
			m, ok := ri.(map[string]any)
			if !ok {
				continue
			}
			quantity := int(getFloat(m, "quantity", 1))
			if quantity < 1 {
				quantity = 1
			}
			items = append(items, entity.ItemRequested{
				Kind:          getString(m, "type"),
				Description:   getString(m, "description"),
				Category:      getString(m, "category"),
				MaterialHint:  getString(m, "material_hint"),
				TreatmentHint: getString(m, "treatment_hint"),
				IsDigital:     getBoolPtr(m, "is_digital"),
				BrandHint:     getString(m, "brand_hint"),
				ModelHint:     getString(m, "model_hint"),
				Quantity:      quantity,
				Notes:         getString(m, "notes"),
			})
		}
	}

	var customerUpdates *entity.CustomerUpdates
	if cu := getMap(raw, "customer_updates"); cu != nil {
		parsed := entity.CustomerUpdates{
			Email:      getString(cu, "email"),
			DocumentID: getString(cu, "document_id"),
			City:       getString(cu, "city"),
			Phone:      getString(cu, "phone"),
			Address:    getString(cu, "address"),
		}
		if parsed != (entity.CustomerUpdates{}) {
			customerUpdates = &parsed
		}
	}

	var mentions []entity.PaymentMention
	if rawMentions, ok := raw["payment_mentions"].([]any); ok {
		for _, rm := range rawMentions {
			m, ok := rm.(map[string]any)
			if !ok {
				continue
			}
			var method *constants.PaymentMethod
			if pm, ok := constants.CanonicalPaymentMethod(getString(m, "method")); ok {
				method = &pm
			}
			var paymentType *constants.PaymentType
			switch getString(m, "type") {
			case string(constants.PaymentTotal):
				t := constants.PaymentTotal
				paymentType = &t
			case string(constants.PaymentPartial):
				t := constants.PaymentPartial
				paymentType = &t
			}
			source := constants.PaymentSource(getString(m, "source"))
			if source != constants.SourceInternalNote {
				source = constants.SourceConversation
			}
			mentions = append(mentions, entity.PaymentMention{
				Method:   method,
				Type:     paymentType,
				Amount:   getFloatPtr(m, "amount"),
				HasProof: getBool(m, "has_proof"),
				ProofURL: getString(m, "proof_url"),
				Source:   source,
				RawText:  getString(m, "raw_text"),
			})
		}
	}

	urgency := constants.Urgency(getString(raw, "urgency"))
	switch urgency {
	case constants.UrgencyNormal, constants.UrgencyUrgent, constants.UrgencyUnknown:
	default:
		urgency = constants.UrgencyUnknown
	}

	var warnings []string
	if len(items) == 0 {
		warnings = append(warnings, "No se identificaron productos en la conversación")
	}
	errMsg := getString(raw, "error")
	if errMsg != "" {
		warnings = append(warnings, errMsg)
	}

	return entity.ConversationOutput{
		ItemsRequested:      items,
		SpecialInstructions: getString(raw, "special_instructions"),
		Urgency:             urgency,
		PromisedDateHint:    getString(raw, "promised_date_hint"),
		CustomerUpdates:     customerUpdates,
		PaymentMentions:     mentions,
		Warnings:            warnings,
		Error:               errMsg,
	}
}

// inferOrderType decides between the optical workflow and a direct
// accessory sale, from sale tags on internal notes and the extracted item
// kinds. No tagged notes means no inference; any lens request forces the
// optical flow.
func inferOrderType(notes []entity.InternalNote, items []entity.ItemRequested) constants.OrderType {
	contentNotes := 0
	taggedNotes := 0
	for _, n := range notes {
		if n.Content == "" {
			continue
		}
		contentNotes++
		if n.SaleTag != nil {
			taggedNotes++
		}
	}
	if taggedNotes == 0 {
		return ""
	}

	allTagged := contentNotes > 0 && taggedNotes == contentNotes

	hasLens := false
	for _, item := range items {
		if item.Kind == string(constants.KindLens) {
			hasLens = true
			break
		}
	}

	if allTagged && !hasLens {
		return constants.OrderTypeDirectSale
	}
	return constants.OrderTypeOptical
}
