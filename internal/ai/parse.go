package ai

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/wisnuaji/payproof/internal/models"
)

// ParseOutcome tags how much of the model response could be trusted.
// Downstream stages branch on the tag instead of probing for zero values.
type ParseOutcome int

const (
	// OutcomeParsed means the response parsed and describes a payment proof.
	OutcomeParsed ParseOutcome = iota
	// OutcomeInvalid means the response parsed but the model does not
	// consider the image a payment proof.
	OutcomeInvalid
	// OutcomeUnparseable means no usable JSON could be recovered.
	OutcomeUnparseable
)

func (o ParseOutcome) String() string {
	switch o {
	case OutcomeParsed:
		return "parsed"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "unparseable"
	}
}

// Validation holds the model's own cross-check flags for a payment proof.
type Validation struct {
	IsPaymentProof  bool `json:"isPaymentProof"`
	IsRecent        bool `json:"isRecent"`
	AmountMatches   bool `json:"amountMatches"`
	BankMatches     bool `json:"bankMatches"`
	HasManipulation bool `json:"hasManipulation"`
}

// AnalysisResult is the normalized outcome of one vision model call.
type AnalysisResult struct {
	Outcome         ParseOutcome
	IsValid         bool
	Confidence      float64 // 0-100, clamped
	RiskLevel       models.RiskLevel
	RiskScore       float64
	Extracted       models.ExtractedTransferData
	Validation      Validation
	FraudIndicators []models.FraudIndicator
	Recommendation  string
	Reasoning       string
	Raw             string
}

// AmountExtraction is the result of the specialized amount-only retry prompt.
type AmountExtraction struct {
	Amount          float64 `json:"amount"`
	Bank            string  `json:"bank"`
	ReferenceNumber string  `json:"referenceNumber"`
}

// flexFloat tolerates numbers the model emits as strings ("150000" or
// "150.000") as well as plain JSON numbers.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Retry without separator stripping for fractional values.
		v, err = strconv.ParseFloat(strings.Trim(string(data), `"`), 64)
		if err != nil {
			*f = 0
			return nil
		}
	}
	*f = flexFloat(v)
	return nil
}

type analysisPayload struct {
	IsValid       bool      `json:"isValid"`
	Confidence    flexFloat `json:"confidence"`
	RiskLevel     string    `json:"riskLevel"`
	RiskScore     flexFloat `json:"riskScore"`
	ExtractedData struct {
		Amount          flexFloat `json:"amount"`
		Date            string    `json:"date"`
		Time            string    `json:"time"`
		Bank            string    `json:"bank"`
		AccountNumber   string    `json:"accountNumber"`
		AccountHolder   string    `json:"accountHolder"`
		ReferenceNumber string    `json:"referenceNumber"`
		TransferMethod  string    `json:"transferMethod"`
	} `json:"extractedData"`
	Validation      Validation              `json:"validation"`
	FraudIndicators []models.FraudIndicator `json:"fraudIndicators"`
	Recommendation  string                  `json:"recommendation"`
	Reasoning       string                  `json:"reasoning"`
}

// ParseAnalysis normalizes a free-text model response into an AnalysisResult.
// Malformed or non-JSON responses yield OutcomeUnparseable with high risk and
// zero confidence; they are never an error.
func ParseAnalysis(raw string) *AnalysisResult {
	unparseable := &AnalysisResult{
		Outcome:    OutcomeUnparseable,
		Confidence: 0,
		RiskLevel:  models.RiskHigh,
		RiskScore:  80,
		Raw:        raw,
	}

	jsonStr := ExtractJSON(raw)
	if jsonStr == "" {
		return unparseable
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return unparseable
	}

	result := &AnalysisResult{
		IsValid:    payload.IsValid,
		Confidence: clamp(float64(payload.Confidence), 0, 100),
		RiskLevel:  normalizeRiskLevel(payload.RiskLevel),
		RiskScore:  clamp(float64(payload.RiskScore), 0, 100),
		Extracted: models.ExtractedTransferData{
			Amount:          float64(payload.ExtractedData.Amount),
			Date:            payload.ExtractedData.Date,
			Time:            payload.ExtractedData.Time,
			Bank:            payload.ExtractedData.Bank,
			AccountNumber:   payload.ExtractedData.AccountNumber,
			AccountHolder:   payload.ExtractedData.AccountHolder,
			ReferenceNumber: payload.ExtractedData.ReferenceNumber,
			TransferMethod:  payload.ExtractedData.TransferMethod,
			IsPaymentProof:  payload.Validation.IsPaymentProof,
		},
		Validation:      payload.Validation,
		FraudIndicators: payload.FraudIndicators,
		Recommendation:  payload.Recommendation,
		Reasoning:       payload.Reasoning,
		Raw:             raw,
	}

	if payload.Validation.IsPaymentProof || payload.IsValid {
		result.Outcome = OutcomeParsed
	} else {
		result.Outcome = OutcomeInvalid
	}

	return result
}

// ParseAmountOnly parses the response of the amount-only retry prompt.
// Returns false when no positive amount was recovered.
func ParseAmountOnly(raw string) (AmountExtraction, bool) {
	jsonStr := ExtractJSON(raw)
	if jsonStr == "" {
		return AmountExtraction{}, false
	}

	var payload struct {
		Amount          flexFloat `json:"amount"`
		Bank            string    `json:"bank"`
		ReferenceNumber string    `json:"referenceNumber"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return AmountExtraction{}, false
	}
	if payload.Amount <= 0 {
		return AmountExtraction{}, false
	}

	return AmountExtraction{
		Amount:          float64(payload.Amount),
		Bank:            payload.Bank,
		ReferenceNumber: payload.ReferenceNumber,
	}, true
}

// ExtractJSON recovers the first complete JSON object from free text,
// tolerating markdown code fences around it.
func ExtractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}
	end := findJSONEnd(content, start)
	if end <= start {
		return ""
	}
	return content[start:end]
}

// findJSONEnd walks the text from an opening brace to its matching close,
// skipping braces inside string literals.
func findJSONEnd(content string, start int) int {
	braceCount := 0
	inString := false
	escapeNext := false

	for i := start; i < len(content); i++ {
		char := content[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if char == '\\' {
			escapeNext = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if char == '{' {
			braceCount++
		} else if char == '}' {
			braceCount--
			if braceCount == 0 {
				return i + 1
			}
		}
	}

	return -1
}

func normalizeRiskLevel(level string) models.RiskLevel {
	switch models.RiskLevel(strings.ToLower(level)) {
	case models.RiskLow:
		return models.RiskLow
	case models.RiskMedium:
		return models.RiskMedium
	case models.RiskHigh:
		return models.RiskHigh
	case models.RiskCritical:
		return models.RiskCritical
	default:
		return models.RiskHigh
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
