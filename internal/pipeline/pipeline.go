package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/puntogafas/order-intake/constants"
	"github.com/puntogafas/order-intake/internal/entity"
)

// Step names used as keys in the per-job error map.
const (
	stepVision       = "vision_extractor"
	stepConversation = "conversation_analyzer"
	stepMatcher      = "catalog_matcher"
	stepAssembler    = "order_builder"
)

// Pipeline runs the four extraction stages sequentially. A failure in any
// stage is recorded under that stage's name and replaced with the stage's
// fallback output; execution always continues. Run never returns an error
// and never panics to its caller.
type Pipeline struct {
	Vision       *VisionStage
	Conversation *ConversationStage
	Matcher      *MatcherStage
	Assembler    *AssemblerStage
	Logger       *slog.Logger
}

func NewPipeline(vision *VisionStage, conversation *ConversationStage, matcher *MatcherStage, assembler *AssemblerStage, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Vision:       vision,
		Conversation: conversation,
		Matcher:      matcher,
		Assembler:    assembler,
		Logger:       logger,
	}
}

// Run executes the full pipeline for one job.
func (p *Pipeline) Run(ctx context.Context, job *entity.Job) entity.OrderDraft {
	start := time.Now()
	agentErrors := make(map[string]string)

	p.Logger.Info("pipeline.stage.vision", "job_id", job.ID)
	var vision entity.VisionOutput
	if err := recovered(func() {
		vision = p.Vision.Run(ctx, job.Payload.MediaURLs)
	}); err != nil {
		msg := fmt.Sprintf("Vision extractor fallo: %v", err)
		p.Logger.Error("pipeline.stage.vision_failed", "job_id", job.ID, "error", err)
		agentErrors[stepVision] = msg
		vision = entity.VisionOutput{Error: msg}
	}
	p.Logger.Info("pipeline.vision.done",
		"job_id", job.ID,
		"prescriptions", len(vision.Prescriptions),
		"remissions", len(vision.Remissions),
		"frames", len(vision.Frames),
		"classifications", len(vision.ImageClassifications))

	p.Logger.Info("pipeline.stage.conversation", "job_id", job.ID)
	var conversation entity.ConversationOutput
	if err := recovered(func() {
		conversation = p.Conversation.Run(ctx, job.Payload)
	}); err != nil {
		msg := fmt.Sprintf("Conversation analyzer fallo: %v", err)
		p.Logger.Error("pipeline.stage.conversation_failed", "job_id", job.ID, "error", err)
		agentErrors[stepConversation] = msg
		conversation = entity.ConversationOutput{
			Urgency:  constants.UrgencyUnknown,
			Error:    msg,
			Warnings: []string{"El analizador de conversación falló — pedido puede estar incompleto"},
		}
	}

	p.Logger.Info("pipeline.stage.matcher", "job_id", job.ID)
	var catalogOut entity.CatalogOutput
	if err := recovered(func() {
		catalogOut = p.Matcher.Run(ctx, conversation, vision)
	}); err != nil {
		msg := fmt.Sprintf("Catalog matcher fallo: %v", err)
		p.Logger.Error("pipeline.stage.matcher_failed", "job_id", job.ID, "error", err)
		agentErrors[stepMatcher] = msg
		catalogOut = entity.CatalogOutput{
			Error:    msg,
			Warnings: []string{"El matcher de catálogo falló — items sin precios ni IDs"},
		}
	}

	p.Logger.Info("pipeline.stage.assembler", "job_id", job.ID)
	var draft entity.OrderDraft
	if err := recovered(func() {
		draft = p.Assembler.Run(job, vision, conversation, catalogOut, agentErrors, start)
	}); err != nil {
		msg := fmt.Sprintf("Order builder fallo: %v", err)
		p.Logger.Error("pipeline.stage.assembler_failed", "job_id", job.ID, "error", err)
		agentErrors[stepAssembler] = msg

		// Last resort: a minimal result that still identifies the job.
		draft = entity.OrderDraft{
			Header: entity.OrderDraftHeader{
				CustomerID:    job.CustomerID,
				SedeID:        job.SedeID,
				SellerID:      job.RequestedBy,
				Status:        constants.OrderStatusDraft,
				OrderType:     constants.OrderTypeOptical,
				PaymentStatus: constants.PaymentStatusPending,
			},
			Completeness:      constants.CompletenessMinimal,
			NeedsManualReview: true,
			Warnings: []string{
				"El constructor de pedido falló — pedido mínimo creado",
				msg,
			},
			AgentErrors:      agentErrors,
			ProcessingTimeMS: time.Since(start).Milliseconds(),
		}
	}

	p.Logger.Info("pipeline.done",
		"job_id", job.ID,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"completeness", draft.Completeness,
		"items", len(draft.Items),
		"order_type", draft.Header.OrderType,
		"warnings", len(draft.Warnings))

	return draft
}

// recovered runs fn and converts a panic into an error.
func recovered(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	fn()
	return nil
}
