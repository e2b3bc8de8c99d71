package constants

// JobStatus is the canonical status for rows in ai_order_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending    JobStatus = "pending"    // waiting to be claimed
	JobStatusProcessing JobStatus = "processing" // claimed by a worker
	JobStatusExtracting JobStatus = "extracting" // pipeline running
	JobStatusCompleted  JobStatus = "completed"  // terminal success
	JobStatusFailed     JobStatus = "failed"     // terminal failure
)

// OrderStatus is the lifecycle status for rows in orders.
type OrderStatus string

const (
	OrderStatusDraft   OrderStatus = "borrador"
	OrderStatusBilling OrderStatus = "por_facturar"
)

// PaymentStatus tracks how much of an order has been paid.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pendiente"
	PaymentStatusPartial PaymentStatus = "parcial"
	PaymentStatusPaid    PaymentStatus = "pagado"
)

// Completeness summarizes how much of an order draft is usable without
// human intervention.
type Completeness string

const (
	CompletenessComplete Completeness = "completo"
	CompletenessPartial  Completeness = "parcial"
	CompletenessMinimal  Completeness = "minimo"
)
