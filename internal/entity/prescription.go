package entity

import "github.com/puntogafas/order-intake/constants"

// EyeRx holds single-eye prescription values. All numeric fields are
// pointers — partial extractions are expected, never invented.
type EyeRx struct {
	Sphere   *float64 `json:"sphere,omitempty"`
	Cylinder *float64 `json:"cylinder,omitempty"`
	Axis     *int     `json:"axis,omitempty"`
	Add      *float64 `json:"add,omitempty"`
}

// PupilDistance may be reported as a single total or split right/left.
type PupilDistance struct {
	Right *float64 `json:"right,omitempty"`
	Left  *float64 `json:"left,omitempty"`
}

// RxData is the rx_data JSONB structure stored in the prescriptions table.
// OD is the right eye, OS the left.
type RxData struct {
	OD    *EyeRx         `json:"od,omitempty"`
	OS    *EyeRx         `json:"os,omitempty"`
	PD    *PupilDistance `json:"pd,omitempty"`
	Notes string         `json:"notes,omitempty"`
}

// Prescription is an optical formula extracted from an image.
type Prescription struct {
	ImageURL   string   `json:"image_url,omitempty"`
	RxData     *RxData  `json:"rx_data,omitempty"`
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// WarrantyInfo carries warranty terms read off a remission document.
type WarrantyInfo struct {
	Frame      string   `json:"frame,omitempty"` // e.g. "1 año"
	Lens       string   `json:"lens,omitempty"`  // e.g. "6 meses Blue"
	Conditions []string `json:"conditions,omitempty"`
}

// Remission is a signed delivery/payment document issued at time of sale.
// TotalAmount is advisory only: the order total is always recomputed from
// the catalog and must never be overwritten by this value.
type Remission struct {
	ImageURL        string                    `json:"image_url,omitempty"`
	LensDescription string                    `json:"lens_description,omitempty"`
	Warranty        *WarrantyInfo             `json:"warranty,omitempty"`
	DeliveryDays    *int                      `json:"delivery_days,omitempty"`
	PaymentInfo     string                    `json:"payment_info,omitempty"` // raw text
	PaymentMethod   *constants.PaymentMethod  `json:"payment_method,omitempty"`
	PaymentType     *constants.PaymentType    `json:"payment_type,omitempty"`
	PaymentAmount   *float64                  `json:"payment_amount,omitempty"`
	HasProof        bool                      `json:"has_proof"`
	Observations    string                    `json:"observations,omitempty"`
	TotalAmount     *float64                  `json:"total_amount,omitempty"`
	RemissionNumber string                    `json:"remission_number,omitempty"`
	Confidence      float64                   `json:"confidence"`
}

// VisualAcuity values from a clinical history (vp = near, vl = distance).
type VisualAcuity struct {
	VPOD string `json:"vp_od,omitempty"`
	VPOS string `json:"vp_os,omitempty"`
	VLOD string `json:"vl_od,omitempty"` // e.g. "20/20"
	VLOS string `json:"vl_os,omitempty"`
}

// ClinicalHistory is extracted from a clinical history document, or from
// the clinical section embedded in the same image as a formula.
type ClinicalHistory struct {
	ImageURL         string        `json:"image_url,omitempty"`
	DiagnosisOD      string        `json:"diagnosis_od,omitempty"`
	DiagnosisOS      string        `json:"diagnosis_os,omitempty"`
	VisualAcuity     *VisualAcuity `json:"visual_acuity,omitempty"`
	NextControl      string        `json:"next_control,omitempty"`
	ProfessionalName string        `json:"professional_name,omitempty"`
	Confidence       float64       `json:"confidence"`
}

// Frame is a photographed frame classified by the vision stage.
type Frame struct {
	ImageURL      string  `json:"image_url,omitempty"`
	ReferenceCode string  `json:"reference_code,omitempty"`
	Description   string  `json:"description,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// UnclassifiedImage is an image that could not be classified, or whose
// download or extraction failed. The description carries the reason.
type UnclassifiedImage struct {
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
}

// ImageClassification records the type assigned to each processed image.
type ImageClassification struct {
	URL        string                 `json:"url,omitempty"`
	Type       constants.DocumentType `json:"type"`
	Confidence float64                `json:"confidence"`
}

// ExtractionMetadata wraps a persisted prescription with provenance.
type ExtractionMetadata struct {
	Source      string   `json:"source"`
	Confidence  float64  `json:"confidence"`
	Model       string   `json:"model,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	ExtractedAt string   `json:"extracted_at,omitempty"`
}
