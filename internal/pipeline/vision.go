package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/puntogafas/order-intake/constants"
	"github.com/puntogafas/order-intake/internal/entity"
	"github.com/puntogafas/order-intake/internal/llm"
)

const imageDownloadTimeout = 30 * time.Second

// VisionStage downloads the job's images, classifies each one, and
// extracts structured data per document type. It never returns an error:
// a failed download or extraction degrades to an unclassified image, and
// a total failure degrades to a VisionOutput carrying Error.
type VisionStage struct {
	Extractor  llm.Extractor
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewVisionStage(extractor llm.Extractor, client *http.Client, logger *slog.Logger) *VisionStage {
	if client == nil {
		client = &http.Client{Timeout: imageDownloadTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionStage{Extractor: extractor, HTTPClient: client, Logger: logger}
}

// Run processes every media URL. One classification entry is emitted per
// image, plus an extra clinical_history entry when a formula image embeds
// a clinical section.
func (s *VisionStage) Run(ctx context.Context, mediaURLs []string) entity.VisionOutput {
	var out entity.VisionOutput
	if len(mediaURLs) == 0 {
		s.Logger.Info("vision.skip", "reason", "no media urls")
		return out
	}

	for _, url := range mediaURLs {
		s.Logger.Info("vision.image.start", "url", url)

		imageBytes, err := s.download(ctx, url)
		if err != nil {
			s.Logger.Error("vision.image.download_failed", "url", url, "error", err)
			out.UnclassifiedImages = append(out.UnclassifiedImages, entity.UnclassifiedImage{
				ImageURL:    url,
				Description: "Error: no se pudo descargar la imagen",
			})
			out.ImageClassifications = append(out.ImageClassifications, entity.ImageClassification{
				URL: url, Type: constants.DocOther, Confidence: 0,
			})
			continue
		}

		img := llm.ImageInput{Bytes: imageBytes, MimeType: llm.GuessMimeType(url)}
		result, raw, err := s.Extractor.ExtractFromImage(ctx, visionPrompt, img)
		if err != nil {
			s.Logger.Error("vision.image.extract_failed", "url", url, "error", err)
			result = map[string]any{
				"image_type":  string(constants.DocOther),
				"description": fmt.Sprintf("Error de IA: %v", err),
			}
			raw = nil
		}

		imageType := constants.DocumentType(getString(result, "image_type"))
		if imageType == "" {
			imageType = constants.DocOther
		}
		confidence := getFloat(result, "confidence", 0.5)

		var schemaWarnings []string
		if raw != nil {
			result, schemaWarnings = s.validateDocument(imageType, result, raw, url)
		}

		out.ImageClassifications = append(out.ImageClassifications, entity.ImageClassification{
			URL: url, Type: imageType, Confidence: confidence,
		})

		switch imageType {
		case constants.DocPrescription:
			prescription, clinical := parsePrescription(result, url)
			prescription.Warnings = append(prescription.Warnings, schemaWarnings...)
			out.Prescriptions = append(out.Prescriptions, prescription)
			s.Logger.Info("vision.formula.extracted", "url", url, "confidence", prescription.Confidence)

			if clinical != nil {
				out.ClinicalHistories = append(out.ClinicalHistories, *clinical)
				out.ImageClassifications = append(out.ImageClassifications, entity.ImageClassification{
					URL: url, Type: constants.DocClinicalHistory, Confidence: clinical.Confidence,
				})
				s.Logger.Info("vision.clinical.embedded", "url", url)
			}

		case constants.DocRemission:
			remission := parseRemission(result, url)
			out.Remissions = append(out.Remissions, remission)
			s.Logger.Info("vision.remission.extracted",
				"url", url, "lens", remission.LensDescription,
				"payment_method", remission.PaymentMethod, "confidence", remission.Confidence)

		case constants.DocClinicalHistory:
			clinical := parseClinicalHistory(result, url)
			out.ClinicalHistories = append(out.ClinicalHistories, clinical)
			s.Logger.Info("vision.clinical.extracted", "url", url, "confidence", clinical.Confidence)

		case constants.DocFrame:
			frame := parseFrame(result, url)
			out.Frames = append(out.Frames, frame)
			s.Logger.Info("vision.frame.extracted", "url", url, "reference", frame.ReferenceCode)

		default:
			description := getString(result, "description")
			if description == "" {
				description = "Imagen no clasificada"
			}
			out.UnclassifiedImages = append(out.UnclassifiedImages, entity.UnclassifiedImage{
				ImageURL: url, Description: description,
			})
			s.Logger.Info("vision.image.other", "url", url, "description", description)
		}
	}

	return out
}

func (s *VisionStage) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// validateDocument checks the model output against the local schema for its
// type, sanitizing and revalidating once before giving up. Validation
// failures downgrade to warnings; the parse still runs on whatever came back.
func (s *VisionStage) validateDocument(t constants.DocumentType, result map[string]any, raw []byte, url string) (map[string]any, []string) {
	schema := llm.SchemaForDocumentType(t)
	if schema == nil {
		return result, nil
	}
	if err := llm.ValidateJSONAgainstSchema(schema, raw); err == nil {
		return result, nil
	}

	cleaned, touched, err := llm.SanitizeDocument(raw)
	if err != nil {
		s.Logger.Warn("vision.schema.sanitize_failed", "url", url, "type", t, "error", err)
		return result, []string{"respuesta del modelo no cumple el esquema"}
	}
	if len(touched) > 0 {
		s.Logger.Info("vision.schema.sanitized", "url", url, "type", t, "fields", touched)
	}

	var m map[string]any
	if err := json.Unmarshal(cleaned, &m); err == nil {
		result = m
	}

	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		s.Logger.Warn("vision.schema.invalid", "url", url, "type", t, "error", err)
		return result, []string{"respuesta del modelo no cumple el esquema"}
	}
	return result, nil
}

func parsePrescription(data map[string]any, url string) (entity.Prescription, *entity.ClinicalHistory) {
	rxRaw := getMap(data, "rx_data")

	rx := &entity.RxData{Notes: getString(data, "notes")}
	if od := getMap(rxRaw, "od"); od != nil {
		rx.OD = parseEyeRx(od)
	}
	if os := getMap(rxRaw, "os"); os != nil {
		rx.OS = parseEyeRx(os)
	}
	if pd := getMap(rxRaw, "pd"); pd != nil {
		rx.PD = &entity.PupilDistance{
			Right: getFloatPtr(pd, "right"),
			Left:  getFloatPtr(pd, "left"),
		}
	}

	prescription := entity.Prescription{
		ImageURL:   url,
		RxData:     rx,
		Confidence: getFloat(data, "confidence", 0.5),
		Warnings:   getStringSlice(data, "warnings"),
		Notes:      getString(data, "notes"),
	}

	var clinical *entity.ClinicalHistory
	if ch := getMap(data, "clinical_history"); ch != nil {
		parsed := parseClinicalHistory(ch, url)
		clinical = &parsed
	}
	return prescription, clinical
}

func parseEyeRx(m map[string]any) *entity.EyeRx {
	return &entity.EyeRx{
		Sphere:   getFloatPtr(m, "sphere"),
		Cylinder: getFloatPtr(m, "cylinder"),
		Axis:     getIntPtr(m, "axis"),
		Add:      getFloatPtr(m, "add"),
	}
}

func parseRemission(data map[string]any, url string) entity.Remission {
	var warranty *entity.WarrantyInfo
	frame := getString(data, "warranty_frame")
	lens := getString(data, "warranty_lens")
	conditions := getStringSlice(data, "warranty_conditions")
	if frame != "" || lens != "" || len(conditions) > 0 {
		warranty = &entity.WarrantyInfo{Frame: frame, Lens: lens, Conditions: conditions}
	}

	var method *constants.PaymentMethod
	if m, ok := constants.CanonicalPaymentMethod(getString(data, "payment_method")); ok {
		method = &m
	}
	var paymentType *constants.PaymentType
	switch getString(data, "payment_type") {
	case string(constants.PaymentTotal):
		t := constants.PaymentTotal
		paymentType = &t
	case string(constants.PaymentPartial):
		t := constants.PaymentPartial
		paymentType = &t
	}

	// Raw text summary kept alongside the structured fields.
	paymentInfo := ""
	if paymentType != nil {
		paymentInfo = "Pago " + string(*paymentType)
	}
	if method != nil {
		if paymentInfo != "" {
			paymentInfo += " - "
		}
		paymentInfo += string(*method)
	}

	return entity.Remission{
		ImageURL:        url,
		LensDescription: getString(data, "lens_description"),
		Warranty:        warranty,
		DeliveryDays:    getIntPtr(data, "delivery_days"),
		PaymentInfo:     paymentInfo,
		PaymentMethod:   method,
		PaymentType:     paymentType,
		PaymentAmount:   getFloatPtr(data, "payment_amount"),
		HasProof:        getBool(data, "has_proof"),
		Observations:    getString(data, "observations"),
		TotalAmount:     getFloatPtr(data, "total_amount"),
		RemissionNumber: getString(data, "remission_number"),
		Confidence:      getFloat(data, "confidence", 0.5),
	}
}

func parseClinicalHistory(data map[string]any, url string) entity.ClinicalHistory {
	var va *entity.VisualAcuity
	vpOD := getString(data, "av_vp_od")
	vpOS := getString(data, "av_vp_os")
	vlOD := getString(data, "av_vl_od")
	vlOS := getString(data, "av_vl_os")
	if vpOD != "" || vpOS != "" || vlOD != "" || vlOS != "" {
		va = &entity.VisualAcuity{VPOD: vpOD, VPOS: vpOS, VLOD: vlOD, VLOS: vlOS}
	}

	return entity.ClinicalHistory{
		ImageURL:         url,
		DiagnosisOD:      getString(data, "diagnosis_od"),
		DiagnosisOS:      getString(data, "diagnosis_os"),
		VisualAcuity:     va,
		NextControl:      getString(data, "next_control"),
		ProfessionalName: getString(data, "professional_name"),
		Confidence:       getFloat(data, "confidence", 0.5),
	}
}

func parseFrame(data map[string]any, url string) entity.Frame {
	description := getString(data, "description")
	if description == "" {
		description = "Montura"
	}
	return entity.Frame{
		ImageURL:      url,
		ReferenceCode: getString(data, "reference_code"),
		Description:   description,
		Confidence:    getFloat(data, "confidence", 0.5),
	}
}
