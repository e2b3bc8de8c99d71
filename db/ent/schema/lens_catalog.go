package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"

	"github.com/puntogafas/order-intake/constants"
	"github.com/puntogafas/order-intake/db/ent/schema/utils"
)

type LensCatalog struct{ ent.Schema }

func (LensCatalog) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "lens_catalog"},
	}
}

func (LensCatalog) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.String("lens_type").NotEmpty(),
		field.String("category").NotEmpty().
			Validate(utils.EnumValidator(
				string(constants.CategoryProgressive),
				string(constants.CategorySingleVision),
				string(constants.CategoryBifocal),
				string(constants.CategoryOccupational),
			)),
		field.String("material").Optional().Nillable(),
		field.String("treatment").Optional().Nillable(),
		field.Bool("is_digital").Default(false),
		// Declared validity ranges; NULL bound means unrestricted.
		field.Float("sphere_min").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "numeric(5,2)"}),
		field.Float("sphere_max").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "numeric(5,2)"}),
		field.Float("cylinder_min").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "numeric(5,2)"}),
		field.Float("cylinder_max").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "numeric(5,2)"}),
		field.Float("add_min").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "numeric(4,2)"}),
		field.Float("add_max").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "numeric(4,2)"}),
		field.Float("retail_price").
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
		field.Float("lab_cost").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
		field.UUID("lab_id", uuid.UUID{}).Optional().Nillable(),
		field.Bool("active").Default(true),
		field.Time("created_at").Default(time.Now),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (LensCatalog) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("order_items", OrderItem.Type),
	}
}

func (LensCatalog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("category", "active"),
		index.Fields("lab_id"),
	}
}
