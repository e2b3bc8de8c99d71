package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/puntogafas/order-intake/constants"
	"github.com/puntogafas/order-intake/internal/entity"
)

// OrderWriter persists a finished order draft. Inserts run sequentially
// (prescription, order, items, customer updates, job completion,
// notification, system note); every step after the order insert is
// individually guarded so a partial failure never loses the order. Only a
// failed order insert fails the job.
type OrderWriter struct {
	pool *pgxpool.Pool
	jobs JobRepository
	log  *slog.Logger
}

func NewOrderWriter(pool *pgxpool.Pool, jobs JobRepository, logger *slog.Logger) *OrderWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderWriter{pool: pool, jobs: jobs, log: logger}
}

// PersistDraft writes the draft and closes out the job. Returns the
// created order id, or nil when the order insert itself failed (the job is
// then marked failed).
func (w *OrderWriter) PersistDraft(ctx context.Context, job *entity.Job, draft *entity.OrderDraft) *uuid.UUID {
	isDirectSale := draft.Header.OrderType == constants.OrderTypeDirectSale
	var stepErrors []string

	// 1. Prescription (skipped entirely for direct sales).
	var prescriptionID *uuid.UUID
	if !isDirectSale && draft.Prescription != nil && draft.Prescription.RxData != nil {
		id, err := w.insertPrescription(ctx, job, draft.Prescription)
		if err != nil {
			msg := fmt.Sprintf("Error inserting prescription: %v", err)
			w.log.Error("order_writer prescription failed", "job_id", job.ID, "error", err)
			stepErrors = append(stepErrors, msg)
		} else {
			prescriptionID = &id
			w.log.Info("prescription inserted", "job_id", job.ID, "prescription_id", id)
		}
	}

	// 2. Order header. This is the only step whose failure sinks the job.
	orderID, orderNumber, err := w.insertOrder(ctx, job, draft, isDirectSale)
	if err != nil {
		msg := fmt.Sprintf("Error inserting order: %v", err)
		w.log.Error("order_writer order failed", "job_id", job.ID, "error", err)
		w.FailJob(ctx, job, msg)
		return nil
	}
	w.log.Info("order inserted",
		"job_id", job.ID, "order_id", orderID, "order_number", orderNumber,
		"order_type", draft.Header.OrderType)

	// 3. Line items.
	for idx, item := range draft.Items {
		if err := w.insertOrderItem(ctx, orderID, prescriptionID, idx, item, isDirectSale); err != nil {
			msg := fmt.Sprintf("Error inserting order_item %d: %v", idx, err)
			w.log.Error("order_writer item failed", "job_id", job.ID, "index", idx, "error", err)
			stepErrors = append(stepErrors, msg)
		}
	}

	// 4. Customer updates mentioned in the conversation.
	if draft.CustomerUpdates != nil {
		if err := w.updateCustomer(ctx, job.CustomerID, draft.CustomerUpdates); err != nil {
			msg := fmt.Sprintf("Error updating customer: %v", err)
			w.log.Error("order_writer customer update failed", "job_id", job.ID, "error", err)
			stepErrors = append(stepErrors, msg)
		}
	}

	// 5. Close out the job, folding any step errors into the warnings.
	draft.Warnings = append(draft.Warnings, stepErrors...)
	result, err := json.Marshal(draft)
	if err != nil {
		w.log.Error("order_writer result encode failed", "job_id", job.ID, "error", err)
		result = nil
	}
	if err := w.jobs.Complete(ctx, job.ID, result, &orderID); err != nil {
		w.log.Error("order_writer job completion failed", "job_id", job.ID, "error", err)
	}

	// 6. Notify the requesting user.
	if err := w.insertNotification(ctx, job, draft, orderID, orderNumber, isDirectSale); err != nil {
		w.log.Error("order_writer notification failed", "job_id", job.ID, "error", err)
	}

	// 7. Leave a system note in the conversation.
	if err := w.insertSystemNote(ctx, job, draft, orderNumber, isDirectSale); err != nil {
		w.log.Error("order_writer system note failed", "job_id", job.ID, "error", err)
	}

	return &orderID
}

// FailJob marks the job failed and leaves an error note in the
// conversation. Both writes are best-effort.
func (w *OrderWriter) FailJob(ctx context.Context, job *entity.Job, errorMessage string) {
	if err := w.jobs.Fail(ctx, job.ID, errorMessage); err != nil {
		w.log.Error("could not mark job failed", "job_id", job.ID, "error", err)
	}
	if job.ConversationID == "" {
		return
	}
	_, err := w.pool.Exec(ctx, `
		INSERT INTO messages (conversation_id, sender_type, is_internal, content, message_type)
		VALUES ($1::uuid, 'system', true, $2, 'text')`,
		job.ConversationID, "⚠️ Error al procesar pedido IA: "+errorMessage)
	if err != nil {
		w.log.Error("could not insert error note", "job_id", job.ID, "error", err)
	}
}

func (w *OrderWriter) insertPrescription(ctx context.Context, job *entity.Job, p *entity.PrescriptionInsert) (uuid.UUID, error) {
	rxData, err := json.Marshal(p.RxData)
	if err != nil {
		return uuid.Nil, err
	}
	var metadata []byte
	if p.ExtractionMetadata != nil {
		metadata, _ = json.Marshal(p.ExtractionMetadata)
	}
	customerID := p.CustomerID
	if customerID == "" {
		customerID = job.CustomerID
	}

	var id uuid.UUID
	err = w.pool.QueryRow(ctx, `
		INSERT INTO prescriptions (customer_id, rx_data, original_image_url, ai_extraction_metadata)
		VALUES ($1::uuid, $2, NULLIF($3, ''), $4)
		RETURNING id`,
		customerID, rxData, p.OriginalImageURL, metadata,
	).Scan(&id)
	return id, err
}

func (w *OrderWriter) insertOrder(ctx context.Context, job *entity.Job, draft *entity.OrderDraft, isDirectSale bool) (uuid.UUID, int, error) {
	status := draft.Header.Status
	if isDirectSale && draft.SuggestedStatus != "" {
		status = draft.SuggestedStatus
	}

	customerID := fallbackStr(draft.Header.CustomerID, job.CustomerID)
	sedeID := fallbackStr(draft.Header.SedeID, job.SedeID)
	sellerID := fallbackStr(draft.Header.SellerID, job.RequestedBy)

	labID := draft.Header.LabID
	if isDirectSale {
		labID = ""
	}

	var (
		id     uuid.UUID
		number int
	)
	err := w.pool.QueryRow(ctx, `
		INSERT INTO orders (customer_id, sede_id, seller_id, status, order_type,
		                    total_amount, balance_due, payment_status, lab_id, promised_date)
		VALUES ($1::uuid, NULLIF($2, '')::uuid, NULLIF($3, '')::uuid, $4, $5,
		        $6, $7, $8, NULLIF($9, '')::uuid, NULLIF($10, '')::date)
		RETURNING id, order_number`,
		customerID, sedeID, sellerID, string(status), string(draft.Header.OrderType),
		draft.Header.TotalAmount, draft.Header.BalanceDue, string(draft.Header.PaymentStatus),
		labID, draft.Header.PromisedDate,
	).Scan(&id, &number)
	return id, number, err
}

func (w *OrderWriter) insertOrderItem(ctx context.Context, orderID uuid.UUID, prescriptionID *uuid.UUID, idx int, item entity.OrderDraftItem, isDirectSale bool) error {
	description := item.Description
	if description == "" {
		description = fmt.Sprintf("Item %d", idx+1)
	}
	quantity := item.Quantity
	if quantity < 1 {
		quantity = 1
	}

	// Optical orders link the prescription to lens line items.
	var itemPrescriptionID *uuid.UUID
	if prescriptionID != nil && !isDirectSale &&
		strings.Contains(strings.ToLower(description), string(constants.KindLens)) {
		itemPrescriptionID = prescriptionID
	}

	_, err := w.pool.Exec(ctx, `
		INSERT INTO order_items (order_id, description, quantity, unit_price,
		                         lens_catalog_id, lens_lab_cost, product_id,
		                         prescription_id, needs_manual_selection)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6, NULLIF($7, '')::uuid, $8, $9)`,
		orderID, description, quantity, item.UnitPrice,
		item.LensCatalogID, item.LensLabCost, item.ProductID,
		itemPrescriptionID, item.NeedsManualSelection)
	return err
}

func (w *OrderWriter) updateCustomer(ctx context.Context, customerID string, cu *entity.CustomerUpdates) error {
	sets := []string{}
	args := []any{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("email", cu.Email)
	add("document_id", cu.DocumentID)
	add("city", cu.City)
	add("phone", cu.Phone)
	add("address", cu.Address)
	if len(sets) == 0 {
		return nil
	}

	args = append(args, customerID)
	query := fmt.Sprintf("UPDATE customers SET %s WHERE id = $%d::uuid",
		strings.Join(sets, ", "), len(args))
	_, err := w.pool.Exec(ctx, query, args...)
	if err == nil {
		w.log.Info("customer updated", "customer_id", customerID, "fields", len(sets))
	}
	return err
}

func (w *OrderWriter) insertNotification(ctx context.Context, job *entity.Job, draft *entity.OrderDraft, orderID uuid.UUID, orderNumber int, isDirectSale bool) error {
	if job.RequestedBy == "" {
		return nil
	}

	displayNumber := "(sin número)"
	if orderNumber > 0 {
		displayNumber = fmt.Sprintf("#%d", orderNumber)
	}
	severity := "warning"
	if draft.Completeness == constants.CompletenessComplete {
		severity = "info"
	}

	var title, message string
	if isDirectSale {
		title = fmt.Sprintf("Venta directa creada %s", displayNumber)
		message = fmt.Sprintf("Venta directa %s creada por IA. Estado: %s. Total: $%.0f COP.",
			displayNumber, draft.Completeness, draft.Header.TotalAmount)
	} else {
		title = fmt.Sprintf("Pedido IA creado %s", displayNumber)
		message = fmt.Sprintf("Pedido borrador %s creado por IA. Estado: %s. Pendiente revisión por logística.",
			displayNumber, draft.Completeness)
	}

	metadata, _ := json.Marshal(map[string]any{
		"order_id":            orderID,
		"order_type":          draft.Header.OrderType,
		"completeness":        draft.Completeness,
		"needs_manual_review": draft.NeedsManualReview,
		"warnings_count":      len(draft.Warnings),
	})

	_, err := w.pool.Exec(ctx, `
		INSERT INTO notifications (user_id, type, title, message, severity, metadata, link_to)
		VALUES ($1::uuid, 'ai_order', $2, $3, $4, $5, '/admin/verification-queue')`,
		job.RequestedBy, title, message, severity, metadata)
	if err == nil {
		w.log.Info("notification sent", "job_id", job.ID, "user_id", job.RequestedBy)
	}
	return err
}

func (w *OrderWriter) insertSystemNote(ctx context.Context, job *entity.Job, draft *entity.OrderDraft, orderNumber int, isDirectSale bool) error {
	if job.ConversationID == "" {
		return nil
	}

	displayNumber := ""
	if orderNumber > 0 {
		displayNumber = fmt.Sprintf("#%d", orderNumber)
	}
	warningsText := ""
	if len(draft.Warnings) > 0 {
		shown := draft.Warnings
		if len(shown) > 5 {
			shown = shown[:5]
		}
		warningsText = "\n⚠️ " + strings.Join(shown, "\n⚠️ ")
	}

	label := "Pedido borrador"
	if isDirectSale {
		label = "Venta directa"
	}
	content := fmt.Sprintf("🤖 %s %s creada por IA.\nEstado: %s.\nTotal: $%.0f COP%s",
		label, displayNumber, draft.Completeness, draft.Header.TotalAmount, warningsText)
	if !isDirectSale {
		content = fmt.Sprintf("🤖 %s %s creado por IA.\nEstado: %s.\nTotal: $%.0f COP%s",
			label, displayNumber, draft.Completeness, draft.Header.TotalAmount, warningsText)
	}

	_, err := w.pool.Exec(ctx, `
		INSERT INTO messages (conversation_id, sender_type, is_internal, content, message_type)
		VALUES ($1::uuid, 'system', true, $2, 'text')`,
		job.ConversationID, content)
	if err == nil {
		w.log.Info("system note inserted", "job_id", job.ID, "conversation_id", job.ConversationID)
	}
	return err
}

func fallbackStr(s, alt string) string {
	if s != "" {
		return s
	}
	return alt
}
