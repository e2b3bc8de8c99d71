package entity

import "github.com/puntogafas/order-intake/constants"

// VisionOutput is everything the vision stage extracted from the job's
// images, grouped by document type. ImageClassifications has one entry per
// image, plus an extra entry when a clinical history was embedded in a
// formula image.
type VisionOutput struct {
	Prescriptions        []Prescription        `json:"prescriptions,omitempty"`
	Remissions           []Remission           `json:"remissions,omitempty"`
	ClinicalHistories    []ClinicalHistory     `json:"clinical_histories,omitempty"`
	Frames               []Frame               `json:"frames,omitempty"`
	UnclassifiedImages   []UnclassifiedImage   `json:"unclassified_images,omitempty"`
	ImageClassifications []ImageClassification `json:"image_classifications,omitempty"`
	Error                string                `json:"error,omitempty"`
}

// ItemRequested is a normalized purchase intent extracted from the
// conversation. Produced only by the conversation stage, never mutated.
type ItemRequested struct {
	Kind          string `json:"type,omitempty"` // constants.ItemKind values
	Description   string `json:"description,omitempty"`
	Category      string `json:"category,omitempty"` // constants.LensCategory values
	MaterialHint  string `json:"material_hint,omitempty"`
	TreatmentHint string `json:"treatment_hint,omitempty"`
	IsDigital     *bool  `json:"is_digital,omitempty"`
	BrandHint     string `json:"brand_hint,omitempty"`
	ModelHint     string `json:"model_hint,omitempty"`
	Quantity      int    `json:"quantity"`
	Notes         string `json:"notes,omitempty"`
}

// PaymentMention is a candidate payment signal found in the conversation.
// Multiple may exist per job; only one is chosen downstream.
type PaymentMention struct {
	Method   *constants.PaymentMethod `json:"method,omitempty"`
	Type     *constants.PaymentType   `json:"type,omitempty"`
	Amount   *float64                 `json:"amount,omitempty"`
	HasProof bool                     `json:"has_proof"`
	ProofURL string                   `json:"proof_url,omitempty"`
	Source   constants.PaymentSource  `json:"source"`
	RawText  string                   `json:"raw_text,omitempty"`
}

// CustomerUpdates is data mentioned in the conversation that could update
// the customer record. Only explicit mentions are ever filled in.
type CustomerUpdates struct {
	Email      string `json:"email,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	City       string `json:"city,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
}

// ConversationOutput is the conversation stage result.
type ConversationOutput struct {
	ItemsRequested      []ItemRequested     `json:"items_requested,omitempty"`
	SpecialInstructions string              `json:"special_instructions,omitempty"`
	Urgency             constants.Urgency   `json:"urgency"`
	PromisedDateHint    string              `json:"promised_date_hint,omitempty"`
	CustomerUpdates     *CustomerUpdates    `json:"customer_updates,omitempty"`
	PaymentMentions     []PaymentMention    `json:"payment_mentions,omitempty"`
	SuggestedOrderType  constants.OrderType `json:"suggested_order_type,omitempty"`
	Warnings            []string            `json:"warnings,omitempty"`
	Error               string              `json:"error,omitempty"`
}

// CatalogCandidate is one non-best catalog row kept as an alternative.
type CatalogCandidate struct {
	LensCatalogID string  `json:"lens_catalog_id,omitempty"`
	ProductID     string  `json:"product_id,omitempty"`
	Description   string  `json:"description,omitempty"`
	Price         float64 `json:"price"`
}

// MatchedItem is one ItemRequested bound (or not) to a catalog row.
// NeedsManualSelection is true when no acceptable candidate exists; the
// original description is preserved so logistics can resolve it.
type MatchedItem struct {
	Kind                 string             `json:"type,omitempty"`
	LensCatalogID        string             `json:"lens_catalog_id,omitempty"`
	LabID                string             `json:"lab_id,omitempty"`
	ProductID            string             `json:"product_id,omitempty"`
	Description          string             `json:"description,omitempty"`
	UnitPrice            float64            `json:"unit_price"`
	LabCost              *float64           `json:"lab_cost,omitempty"`
	Quantity             int                `json:"quantity"`
	Confidence           float64            `json:"confidence"`
	NeedsManualSelection bool               `json:"needs_manual_selection"`
	Alternatives         []CatalogCandidate `json:"alternatives,omitempty"`
	Notes                string             `json:"notes,omitempty"`
}

// CatalogOutput is the catalog matcher result. MatchedItems always has
// exactly one entry per requested item.
type CatalogOutput struct {
	MatchedItems   []MatchedItem `json:"matched_items,omitempty"`
	SuggestedLabID string        `json:"suggested_lab_id,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
	Error          string        `json:"error,omitempty"`
}
