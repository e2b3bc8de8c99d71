package constants

import "testing"

func TestCanonicalPaymentMethod(t *testing.T) {
	cases := []struct {
		in   string
		want PaymentMethod
		ok   bool
	}{
		{"Datáfono", PaymentCard, true},
		{"datafono", PaymentCard, true},
		{"Consignación", PaymentTransfer, true},
		{"EFECTIVO", PaymentCash, true},
		{" nequi ", PaymentNequi, true},
		{"daviplata", PaymentDaviplata, true},
		{"bitcoin", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := CanonicalPaymentMethod(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("CanonicalPaymentMethod(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestItemKindFromString(t *testing.T) {
	if k, ok := ItemKindFromString(" Lente "); !ok || k != KindLens {
		t.Errorf("expected lente, got (%q, %v)", k, ok)
	}
	if _, ok := ItemKindFromString("gafas"); ok {
		t.Error("unknown kind should not resolve")
	}
}
