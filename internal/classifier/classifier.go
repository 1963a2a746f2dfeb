// Package classifier is a placeholder skin-lesion classifier. It derives a
// stable pseudo-prediction from the image bytes so the same upload always
// yields the same answer.
package classifier

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand/v2"
)

// Classes are the HAM10000 lesion labels in model output order.
var Classes = []string{"akiec", "bcc", "bkl", "df", "mel", "nv", "vasc"}

// ConfidenceThreshold below which a prediction is reported as not confident.
const ConfidenceThreshold = 0.7

var benign = map[string]bool{"bkl": true, "df": true, "nv": true, "vasc": true}

var descriptions = map[string]string{
	"akiec": "Actinic keratoses: Precancerous scaly patches on sun-damaged skin",
	"bcc":   "Basal cell carcinoma: Slow-growing skin cancer that rarely metastasizes",
	"bkl":   "Benign keratosis: Non-cancerous skin growths like seborrheic keratosis",
	"df":    "Dermatofibroma: Harmless firm bump, often on legs",
	"mel":   "Melanoma: Most dangerous skin cancer that can spread quickly",
	"nv":    "Melanocytic nevus: Common mole, typically harmless",
	"vasc":  "Vascular lesion: Blood vessel-related skin markings",
}

const defaultDescription = "Please consult a dermatologist for proper diagnosis."

const (
	conclusionLow       = "No confident cancer prediction (all probabilities < 70%)"
	conclusionBenign    = "Benign lesion detected"
	conclusionMalignant = "Potential malignancy detected"
)

type Result struct {
	PredictedClass string             `json:"predicted_class"`
	Confidence     float64            `json:"confidence"`
	AllPredictions map[string]float64 `json:"all_predictions"`
	Conclusion     string             `json:"conclusion"`
	LowConfidence  bool               `json:"low_confidence"`
	IsBenign       bool               `json:"is_benign"`
	Description    string             `json:"description"`
}

type Stub struct{}

func New() *Stub { return &Stub{} }

func (*Stub) Predict(data []byte) (*Result, error) {
	sum := sha256.Sum256(data)
	rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])))

	class := Classes[rng.IntN(len(Classes))]
	confidence := round2(0.65 + rng.Float64()*(0.92-0.65))

	all := make(map[string]float64, len(Classes))
	for _, c := range Classes {
		if c == class {
			all[c] = confidence
			continue
		}
		all[c] = round2(0.01 + rng.Float64()*(0.2-0.01))
	}

	return Describe(class, confidence, all), nil
}

// Describe fills in the derived fields for a raw class/confidence pair.
func Describe(class string, confidence float64, all map[string]float64) *Result {
	r := &Result{
		PredictedClass: class,
		Confidence:     confidence,
		AllPredictions: all,
		LowConfidence:  confidence < ConfidenceThreshold,
		IsBenign:       benign[class],
		Description:    defaultDescription,
	}
	if d, ok := descriptions[class]; ok {
		r.Description = d
	}
	switch {
	case r.LowConfidence:
		r.Conclusion = conclusionLow
	case r.IsBenign:
		r.Conclusion = conclusionBenign
	default:
		r.Conclusion = conclusionMalignant
	}
	return r
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
