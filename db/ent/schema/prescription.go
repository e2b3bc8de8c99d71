package schema

import (
	"encoding/json"
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

type Prescription struct{ ent.Schema }

func (Prescription) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "prescriptions"},
	}
}

func (Prescription) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.UUID("customer_id", uuid.UUID{}),
		// Per-eye refraction values, stored as-extracted.
		field.JSON("rx_data", json.RawMessage{}),
		field.String("original_image_url").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "text"}),
		field.JSON("ai_extraction_metadata", json.RawMessage{}).Optional(),
		field.Time("created_at").Default(time.Now),
	}
}

func (Prescription) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("order_items", OrderItem.Type),
	}
}

func (Prescription) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("customer_id", "created_at"),
	}
}
