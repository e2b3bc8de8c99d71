package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/puntogafas/order-intake/constants"
)

func imageServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("fake-image-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVisionRun_NoImages(t *testing.T) {
	fake := &fakeExtractor{}
	stage := NewVisionStage(fake, nil, nil)

	out := stage.Run(context.Background(), nil)

	if fake.imageCalls != 0 {
		t.Errorf("expected no model calls, got %d", fake.imageCalls)
	}
	if len(out.ImageClassifications) != 0 {
		t.Errorf("expected no classifications, got %d", len(out.ImageClassifications))
	}
}

func TestVisionRun_DownloadFailure(t *testing.T) {
	srv := imageServer(t, http.StatusInternalServerError)
	fake := &fakeExtractor{}
	stage := NewVisionStage(fake, srv.Client(), nil)

	out := stage.Run(context.Background(), []string{srv.URL + "/foto.jpg"})

	if fake.imageCalls != 0 {
		t.Errorf("expected no model call after failed download, got %d", fake.imageCalls)
	}
	if len(out.UnclassifiedImages) != 1 || !strings.Contains(out.UnclassifiedImages[0].Description, "no se pudo descargar") {
		t.Fatalf("expected download error placeholder, got %+v", out.UnclassifiedImages)
	}
	if len(out.ImageClassifications) != 1 {
		t.Fatalf("expected 1 classification, got %d", len(out.ImageClassifications))
	}
	cls := out.ImageClassifications[0]
	if cls.Type != constants.DocOther || cls.Confidence != 0 {
		t.Errorf("expected other/0 classification, got %s/%f", cls.Type, cls.Confidence)
	}
}

func TestVisionRun_ExtractFailure(t *testing.T) {
	srv := imageServer(t, http.StatusOK)
	fake := &fakeExtractor{imageErr: errors.New("model overloaded")}
	stage := NewVisionStage(fake, srv.Client(), nil)

	out := stage.Run(context.Background(), []string{srv.URL + "/foto.jpg"})

	if len(out.UnclassifiedImages) != 1 || !strings.Contains(out.UnclassifiedImages[0].Description, "Error de IA") {
		t.Fatalf("expected AI error placeholder, got %+v", out.UnclassifiedImages)
	}
}

func TestVisionRun_PrescriptionWithEmbeddedClinical(t *testing.T) {
	srv := imageServer(t, http.StatusOK)
	fake := &fakeExtractor{imageResult: map[string]any{
		"image_type": "formula",
		"confidence": float64(0.92),
		"rx_data": map[string]any{
			"od": map[string]any{"sphere": float64(-2.5), "cylinder": float64(-0.75), "axis": float64(180)},
			"os": map[string]any{"sphere": float64(-2.0), "add": float64(1.5)},
			"pd": map[string]any{"right": float64(31), "left": float64(31.5)},
		},
		"clinical_history": map[string]any{
			"diagnosis_od": "miopía",
			"av_vp_od":     "20/20",
			"confidence":   float64(0.8),
		},
	}}
	stage := NewVisionStage(fake, srv.Client(), nil)

	out := stage.Run(context.Background(), []string{srv.URL + "/formula.jpg"})

	if len(out.Prescriptions) != 1 {
		t.Fatalf("expected 1 prescription, got %d", len(out.Prescriptions))
	}
	p := out.Prescriptions[0]
	if p.RxData == nil || p.RxData.OD == nil || p.RxData.OD.Sphere == nil || *p.RxData.OD.Sphere != -2.5 {
		t.Errorf("OD sphere not parsed: %+v", p.RxData)
	}
	if p.RxData.OS == nil || p.RxData.OS.Add == nil || *p.RxData.OS.Add != 1.5 {
		t.Errorf("OS add not parsed: %+v", p.RxData.OS)
	}
	if p.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %f", p.Confidence)
	}
	if len(out.ClinicalHistories) != 1 || out.ClinicalHistories[0].DiagnosisOD != "miopía" {
		t.Fatalf("expected embedded clinical history, got %+v", out.ClinicalHistories)
	}
	if len(out.ImageClassifications) != 2 {
		t.Fatalf("expected an extra clinical classification, got %d", len(out.ImageClassifications))
	}
	if out.ImageClassifications[1].Type != constants.DocClinicalHistory {
		t.Errorf("second classification should be clinical_history, got %s", out.ImageClassifications[1].Type)
	}
}

func TestVisionRun_Remission(t *testing.T) {
	srv := imageServer(t, http.StatusOK)
	fake := &fakeExtractor{imageResult: map[string]any{
		"image_type":       "remission",
		"confidence":       float64(0.85),
		"lens_description": "Progresivo Poly AR",
		"payment_method":   "Datáfono",
		"payment_type":     "total",
		"payment_amount":   float64(350000),
		"total_amount":     float64(350000),
		"observations":     "URGENTE entregar viernes",
		"delivery_days":    float64(5),
	}}
	stage := NewVisionStage(fake, srv.Client(), nil)

	out := stage.Run(context.Background(), []string{srv.URL + "/remision.jpg"})

	if len(out.Remissions) != 1 {
		t.Fatalf("expected 1 remission, got %d", len(out.Remissions))
	}
	r := out.Remissions[0]
	if r.PaymentMethod == nil || *r.PaymentMethod != constants.PaymentCard {
		t.Errorf("Datáfono should canonicalize to tarjeta, got %v", r.PaymentMethod)
	}
	if r.PaymentInfo != "Pago total - tarjeta" {
		t.Errorf("unexpected payment info summary: %q", r.PaymentInfo)
	}
	if r.DeliveryDays == nil || *r.DeliveryDays != 5 {
		t.Errorf("delivery days not parsed: %v", r.DeliveryDays)
	}
	if r.TotalAmount == nil || *r.TotalAmount != 350000 {
		t.Errorf("total amount not parsed: %v", r.TotalAmount)
	}
}

func TestParseFrame_DefaultDescription(t *testing.T) {
	frame := parseFrame(map[string]any{"reference_code": "RB-4165"}, "https://cdn/m.jpg")

	if frame.Description != "Montura" {
		t.Errorf("expected default description, got %q", frame.Description)
	}
	if frame.ReferenceCode != "RB-4165" {
		t.Errorf("reference code not parsed: %q", frame.ReferenceCode)
	}
}
