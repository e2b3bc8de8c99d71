package constants

import "strings"

// PaymentMethod is the canonical payment method vocabulary.
type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "efectivo"
	PaymentTransfer  PaymentMethod = "transferencia"
	PaymentCard      PaymentMethod = "tarjeta"
	PaymentNequi     PaymentMethod = "nequi"
	PaymentDaviplata PaymentMethod = "daviplata"
)

var allPaymentMethods = []PaymentMethod{
	PaymentCash,
	PaymentTransfer,
	PaymentCard,
	PaymentNequi,
	PaymentDaviplata,
}

// PaymentType distinguishes full from partial payments.
type PaymentType string

const (
	PaymentTotal   PaymentType = "total"
	PaymentPartial PaymentType = "parcial"
)

// CanonicalPaymentMethod maps surface forms seen on documents and in chat
// ("Datáfono", "Consignación") to the canonical vocabulary.
func CanonicalPaymentMethod(input string) (PaymentMethod, bool) {
	if input == "" {
		return "", false
	}
	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]PaymentMethod{
		"datáfono":     PaymentCard,
		"datafono":     PaymentCard,
		"consignación": PaymentTransfer,
		"consignacion": PaymentTransfer,
	}
	if m, ok := synonyms[normalized]; ok {
		return m, true
	}
	for _, m := range allPaymentMethods {
		if normalized == string(m) {
			return m, true
		}
	}
	return "", false
}

// PaymentMethodsAsStrings returns the closed set for prompt/schema construction.
func PaymentMethodsAsStrings() []string {
	result := make([]string, len(allPaymentMethods))
	for i, m := range allPaymentMethods {
		result[i] = string(m)
	}
	return result
}
