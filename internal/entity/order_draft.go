package entity

import "github.com/puntogafas/order-intake/constants"

// OrderDraftHeader is the header for the INSERT into orders.
type OrderDraftHeader struct {
	CustomerID    string                  `json:"customer_id,omitempty"`
	SedeID        string                  `json:"sede_id,omitempty"`
	SellerID      string                  `json:"seller_id,omitempty"`
	Status        constants.OrderStatus   `json:"status"`
	OrderType     constants.OrderType     `json:"order_type"`
	TotalAmount   float64                 `json:"total_amount"`
	BalanceDue    float64                 `json:"balance_due"`
	PaymentStatus constants.PaymentStatus `json:"payment_status"`
	LabID         string                  `json:"lab_id,omitempty"`
	PromisedDate  string                  `json:"promised_date,omitempty"`
}

// OrderDraftItem is one order line. Subtotal is always quantity ×
// unit price from the catalog match.
type OrderDraftItem struct {
	Description          string   `json:"description,omitempty"`
	Quantity             int      `json:"quantity"`
	UnitPrice            float64  `json:"unit_price"`
	Subtotal             float64  `json:"subtotal"`
	LensCatalogID        string   `json:"lens_catalog_id,omitempty"`
	LensLabCost          *float64 `json:"lens_lab_cost,omitempty"`
	ProductID            string   `json:"product_id,omitempty"`
	PrescriptionID       string   `json:"prescription_id,omitempty"` // filled after prescription INSERT
	NeedsManualSelection bool     `json:"needs_manual_selection"`
}

// PrescriptionInsert is the prescription row to persist, when one was
// extracted, wrapped with extraction provenance.
type PrescriptionInsert struct {
	CustomerID         string              `json:"customer_id,omitempty"`
	RxData             *RxData             `json:"rx_data,omitempty"`
	OriginalImageURL   string              `json:"original_image_url,omitempty"`
	ExtractionMetadata *ExtractionMetadata `json:"ai_extraction_metadata,omitempty"`
}

// PaymentSuggestion is the single payment suggestion merged from remission
// and conversation evidence. AmountReference is informational only and
// never overwrites the catalog-computed total.
type PaymentSuggestion struct {
	Method          *constants.PaymentMethod `json:"method,omitempty"`
	Type            constants.PaymentType    `json:"type"`
	AmountReference *float64                 `json:"amount_reference,omitempty"`
	HasProof        bool                     `json:"has_proof"`
	Source          constants.PaymentSource  `json:"source"`
	ProofURL        string                   `json:"proof_url,omitempty"`
}

// OrderDraft is the terminal pipeline artifact: everything the persistence
// collaborator needs, in a self-contained serializable form.
type OrderDraft struct {
	Header               OrderDraftHeader       `json:"order_draft"`
	Items                []OrderDraftItem       `json:"items"`
	Prescription         *PrescriptionInsert    `json:"prescription,omitempty"`
	Remission            *Remission             `json:"remission,omitempty"`
	ClinicalHistory      *ClinicalHistory       `json:"clinical_history,omitempty"`
	Frames               []Frame                `json:"frames,omitempty"`
	ImageClassifications []ImageClassification  `json:"image_classifications,omitempty"`
	PaymentSuggestion    *PaymentSuggestion     `json:"payment_suggestion,omitempty"`
	CustomerUpdates      *CustomerUpdates       `json:"customer_updates,omitempty"`
	SuggestedStatus      constants.OrderStatus  `json:"suggested_status,omitempty"`
	Completeness         constants.Completeness `json:"completeness"`
	Warnings             []string               `json:"warnings,omitempty"`
	NeedsManualReview    bool                   `json:"needs_manual_review"`
	ProcessingTimeMS     int64                  `json:"processing_time_ms"`
	AgentErrors          map[string]string      `json:"agent_errors,omitempty"`
}
