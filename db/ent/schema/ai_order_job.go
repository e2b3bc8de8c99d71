package schema

import (
	"encoding/json"
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"

	"github.com/puntogafas/order-intake/constants"
	"github.com/puntogafas/order-intake/db/ent/schema/utils"
)

type AIOrderJob struct{ ent.Schema }

func (AIOrderJob) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "ai_order_jobs"},
	}
}

func (AIOrderJob) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.UUID("conversation_id", uuid.UUID{}).Optional().Nillable(),
		field.UUID("customer_id", uuid.UUID{}),
		field.UUID("sede_id", uuid.UUID{}).Optional().Nillable(),
		field.UUID("requested_by", uuid.UUID{}).Optional().Nillable(),
		field.String("status").Default(string(constants.JobStatusPending)).
			Validate(utils.EnumValidator(
				string(constants.JobStatusPending),
				string(constants.JobStatusProcessing),
				string(constants.JobStatusExtracting),
				string(constants.JobStatusCompleted),
				string(constants.JobStatusFailed),
			)),
		// Conversation snapshot the pipeline consumes.
		field.JSON("payload", json.RawMessage{}),
		// Full OrderDraft once the job completes.
		field.JSON("result", json.RawMessage{}).Optional(),
		field.UUID("order_id", uuid.UUID{}).Optional().Nillable(),
		field.String("error_message").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "text"}),
		field.Time("processing_started_at").Optional().Nillable(),
		field.Time("completed_at").Optional().Nillable(),
		field.Time("created_at").Default(time.Now),
	}
}

func (AIOrderJob) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status", "created_at"),
		index.Fields("customer_id"),
	}
}
