package llm

import "github.com/puntogafas/order-intake/constants"

// JSON Schemas (draft 2020-12 subset) as generic maps, one per document
// type plus one for the conversation analysis. They are used locally to
// validate model output before parsing; every domain field is optional and
// nullable: partial extractions are the normal case, so only the
// classification envelope is required.

func numberOrNull() map[string]any {
	return map[string]any{"type": []string{"number", "null"}}
}

func integerOrNull() map[string]any {
	return map[string]any{"type": []string{"integer", "null"}}
}

func stringOrNull() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

func confidenceProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}
}

func eyeRxSchema() map[string]any {
	return map[string]any{
		"type": []string{"object", "null"},
		"properties": map[string]any{
			"sphere":   numberOrNull(),
			"cylinder": numberOrNull(),
			"axis":     integerOrNull(),
			"add":      numberOrNull(),
		},
	}
}

func clinicalHistoryProps() map[string]any {
	return map[string]any{
		"diagnosis_od":      stringOrNull(),
		"diagnosis_os":      stringOrNull(),
		"av_vp_od":          stringOrNull(),
		"av_vp_os":          stringOrNull(),
		"av_vl_od":          stringOrNull(),
		"av_vl_os":          stringOrNull(),
		"next_control":      stringOrNull(),
		"professional_name": stringOrNull(),
		"confidence":        confidenceProp(),
	}
}

// BuildPrescriptionSchema covers the "formula" response, including the
// optional embedded clinical history block.
func BuildPrescriptionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"image_type": map[string]any{"const": string(constants.DocPrescription)},
			"confidence": confidenceProp(),
			"rx_data": map[string]any{
				"type": []string{"object", "null"},
				"properties": map[string]any{
					"od": eyeRxSchema(),
					"os": eyeRxSchema(),
					"pd": map[string]any{
						"type": []string{"object", "null"},
						"properties": map[string]any{
							"right": numberOrNull(),
							"left":  numberOrNull(),
						},
					},
				},
			},
			"patient_name": stringOrNull(),
			"document_id":  stringOrNull(),
			"warnings":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"notes":        stringOrNull(),
			"clinical_history": map[string]any{
				"type":       []string{"object", "null"},
				"properties": clinicalHistoryProps(),
			},
		},
		"required": []string{"image_type"},
	}
}

// BuildRemissionSchema covers the "remission" response.
func BuildRemissionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"image_type":          map[string]any{"const": string(constants.DocRemission)},
			"confidence":          confidenceProp(),
			"lens_description":    stringOrNull(),
			"warranty_frame":      stringOrNull(),
			"warranty_lens":       stringOrNull(),
			"warranty_conditions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"delivery_days":       integerOrNull(),
			"observations":        stringOrNull(),
			"remission_number":    stringOrNull(),
			"total_amount":        numberOrNull(),
			"payment_method":      stringOrNull(),
			"payment_type":        stringOrNull(),
			"payment_amount":      numberOrNull(),
			"has_proof":           map[string]any{"type": "boolean"},
		},
		"required": []string{"image_type"},
	}
}

// BuildClinicalHistorySchema covers the standalone "clinical_history"
// response.
func BuildClinicalHistorySchema() map[string]any {
	props := clinicalHistoryProps()
	props["image_type"] = map[string]any{"const": string(constants.DocClinicalHistory)}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"image_type"},
	}
}

// BuildFrameSchema covers the "frame" response.
func BuildFrameSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"image_type":     map[string]any{"const": string(constants.DocFrame)},
			"confidence":     confidenceProp(),
			"description":    stringOrNull(),
			"reference_code": stringOrNull(),
		},
		"required": []string{"image_type"},
	}
}

// BuildConversationSchema covers the conversation-analysis response.
func BuildConversationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items_requested": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type":           stringOrNull(),
						"description":    stringOrNull(),
						"category":       stringOrNull(),
						"material_hint":  stringOrNull(),
						"treatment_hint": stringOrNull(),
						"is_digital":     map[string]any{"type": []string{"boolean", "null"}},
						"brand_hint":     stringOrNull(),
						"model_hint":     stringOrNull(),
						"quantity":       integerOrNull(),
						"notes":          stringOrNull(),
					},
				},
			},
			"special_instructions": stringOrNull(),
			"urgency":              stringOrNull(),
			"promised_date_hint":   stringOrNull(),
			"customer_updates": map[string]any{
				"type": []string{"object", "null"},
				"properties": map[string]any{
					"email":       stringOrNull(),
					"document_id": stringOrNull(),
					"city":        stringOrNull(),
					"phone":       stringOrNull(),
					"address":     stringOrNull(),
				},
			},
			"payment_mentions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"method":    stringOrNull(),
						"type":      stringOrNull(),
						"amount":    numberOrNull(),
						"has_proof": map[string]any{"type": "boolean"},
						"source":    stringOrNull(),
						"raw_text":  stringOrNull(),
					},
				},
			},
		},
		"required": []string{"items_requested"},
	}
}

// SchemaForDocumentType returns the vision schema matching a classified
// type, or nil for unclassified images (which have no fixed shape).
func SchemaForDocumentType(t constants.DocumentType) map[string]any {
	switch t {
	case constants.DocPrescription:
		return BuildPrescriptionSchema()
	case constants.DocRemission:
		return BuildRemissionSchema()
	case constants.DocClinicalHistory:
		return BuildClinicalHistorySchema()
	case constants.DocFrame:
		return BuildFrameSchema()
	default:
		return nil
	}
}
