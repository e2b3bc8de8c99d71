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

type Order struct{ ent.Schema }

func (Order) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "orders"},
	}
}

func (Order) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		// Sequential human-facing number, assigned by the database.
		field.Int("order_number").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "serial"}),
		field.UUID("customer_id", uuid.UUID{}),
		field.UUID("sede_id", uuid.UUID{}).Optional().Nillable(),
		field.UUID("seller_id", uuid.UUID{}).Optional().Nillable(),
		field.String("status").Default(string(constants.OrderStatusDraft)).
			Validate(utils.EnumValidator(
				string(constants.OrderStatusDraft),
				string(constants.OrderStatusBilling),
			)),
		field.String("order_type").Default(string(constants.OrderTypeOptical)).
			Validate(utils.EnumValidator(
				string(constants.OrderTypeOptical),
				string(constants.OrderTypeDirectSale),
			)),
		field.Float("total_amount").Default(0).
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
		field.Float("balance_due").Default(0).
			SchemaType(map[string]string{dialect.Postgres: "numeric(12,2)"}),
		field.String("payment_status").Default(string(constants.PaymentStatusPending)).
			Validate(utils.EnumValidator(
				string(constants.PaymentStatusPending),
				string(constants.PaymentStatusPartial),
				string(constants.PaymentStatusPaid),
			)),
		field.UUID("lab_id", uuid.UUID{}).Optional().Nillable(),
		field.Time("promised_date").Optional().Nillable().
			SchemaType(map[string]string{dialect.Postgres: "date"}),
		field.Time("created_at").Default(time.Now),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (Order) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("items", OrderItem.Type),
	}
}

func (Order) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("customer_id", "status"),
		index.Fields("sede_id", "created_at"),
	}
}
