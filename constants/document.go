package constants

// DocumentType is the classification assigned to each submitted image.
type DocumentType string

// Stable values (these exact strings come back from the vision model).
const (
	DocPrescription    DocumentType = "formula"
	DocRemission       DocumentType = "remission"
	DocFrame           DocumentType = "frame"
	DocClinicalHistory DocumentType = "clinical_history"
	DocOther           DocumentType = "other"
)

// PaymentSource tags where a payment signal came from.
type PaymentSource string

const (
	SourceRemission    PaymentSource = "remission"
	SourceConversation PaymentSource = "conversation"
	SourceInternalNote PaymentSource = "internal_note"
)
