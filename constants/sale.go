package constants

// SaleTag is an advisor-applied label on an internal note asserting a
// confirmed accessory sale category for that note.
type SaleTag string

const (
	SaleTagFrame SaleTag = "montura"
	SaleTagCase  SaleTag = "estuche"
)

// OrderType classifies the fulfillment path of an order.
type OrderType string

const (
	// OrderTypeOptical is the standard prescription workflow.
	OrderTypeOptical OrderType = "optico"
	// OrderTypeDirectSale bypasses the optical workflow entirely:
	// frames/accessories only, no lab, no prescription.
	OrderTypeDirectSale OrderType = "venta_directa"
)

// Urgency levels reported by the conversation extractor.
type Urgency string

const (
	UrgencyNormal  Urgency = "normal"
	UrgencyUrgent  Urgency = "urgente"
	UrgencyUnknown Urgency = "desconocida"
)
