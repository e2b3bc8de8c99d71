package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"
)

type OrderItem struct{ ent.Schema }

func (OrderItem) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "order_items"},
	}
}

func (OrderItem) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.UUID("order_id", uuid.UUID{}),
		field.String("description").NotEmpty(),
		field.Int("quantity").Default(1).Positive(),
		field.Float("unit_price").Default(0).
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
		field.UUID("lens_catalog_id", uuid.UUID{}).Optional().Nillable(),
		field.Float("lens_lab_cost").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
		field.UUID("product_id", uuid.UUID{}).Optional().Nillable(),
		field.UUID("prescription_id", uuid.UUID{}).Optional().Nillable(),
		field.Bool("needs_manual_selection").Default(false),
	}
}

func (OrderItem) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("order", Order.Type).
			Ref("items").
			Field("order_id").
			Unique().
			Required(),
		edge.From("lens", LensCatalog.Type).
			Ref("order_items").
			Field("lens_catalog_id").
			Unique(),
		edge.From("product", Product.Type).
			Ref("order_items").
			Field("product_id").
			Unique(),
		edge.From("prescription", Prescription.Type).
			Ref("order_items").
			Field("prescription_id").
			Unique(),
	}
}

func (OrderItem) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("order_id"),
	}
}
