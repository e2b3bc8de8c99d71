package llm

import (
	"testing"

	"github.com/puntogafas/order-intake/constants"
)

func TestValidateJSONAgainstSchema_Prescription(t *testing.T) {
	schema := BuildPrescriptionSchema()

	good := []byte(`{"image_type":"formula","confidence":0.9,"rx_data":{"od":{"sphere":-2.5,"axis":180}}}`)
	if err := ValidateJSONAgainstSchema(schema, good); err != nil {
		t.Errorf("valid document rejected: %v", err)
	}

	missing := []byte(`{"confidence":0.9}`)
	if err := ValidateJSONAgainstSchema(schema, missing); err == nil {
		t.Error("document without image_type should fail")
	}

	badType := []byte(`{"image_type":"formula","rx_data":{"od":{"sphere":"-2.5"}}}`)
	if err := ValidateJSONAgainstSchema(schema, badType); err == nil {
		t.Error("string sphere should fail before sanitizing")
	}
}

func TestValidateJSONAgainstSchema_Conversation(t *testing.T) {
	schema := BuildConversationSchema()

	good := []byte(`{"items_requested":[{"type":"lente","description":"progresivo","quantity":2}],"urgency":"normal"}`)
	if err := ValidateJSONAgainstSchema(schema, good); err != nil {
		t.Errorf("valid conversation rejected: %v", err)
	}

	missing := []byte(`{"urgency":"normal"}`)
	if err := ValidateJSONAgainstSchema(schema, missing); err == nil {
		t.Error("missing items_requested should fail")
	}
}

func TestSchemaForDocumentType(t *testing.T) {
	for _, dt := range []constants.DocumentType{
		constants.DocPrescription, constants.DocRemission,
		constants.DocClinicalHistory, constants.DocFrame,
	} {
		if SchemaForDocumentType(dt) == nil {
			t.Errorf("expected schema for %s", dt)
		}
	}
	if SchemaForDocumentType(constants.DocOther) != nil {
		t.Error("other images have no schema")
	}
}
