package verify

import (
	"context"
	"fmt"
	"strings"
)

// fakeVision replays canned model responses, one per Analyze call.
type fakeVision struct {
	responses []string
	calls     int
	err       error
}

func (f *fakeVision) Analyze(ctx context.Context, image []byte, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("fakeVision: no responses left")
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

// analysisJSON builds a model response with sensible defaults overridden per
// field. Keeps test cases focused on the field under test.
func analysisJSON(overrides map[string]string) string {
	fields := map[string]string{
		"isValid":         "true",
		"confidence":      "92",
		"riskLevel":       `"low"`,
		"riskScore":       "8",
		"amount":          "150000",
		"date":            `"2026-08-31"`,
		"time":            `"10:00"`,
		"bank":            `"BRI"`,
		"reference":       `"TRX-TEST-001"`,
		"isPaymentProof":  "true",
		"isRecent":        "true",
		"amountMatches":   "true",
		"hasManipulation": "false",
		"indicators":      "[]",
	}
	for k, v := range overrides {
		fields[k] = v
	}

	var b strings.Builder
	fmt.Fprintf(&b, `{
		"isValid": %s,
		"confidence": %s,
		"riskLevel": %s,
		"riskScore": %s,
		"extractedData": {
			"amount": %s,
			"date": %s,
			"time": %s,
			"bank": %s,
			"referenceNumber": %s
		},
		"validation": {
			"isPaymentProof": %s,
			"isRecent": %s,
			"amountMatches": %s,
			"bankMatches": true,
			"hasManipulation": %s
		},
		"fraudIndicators": %s,
		"recommendation": "auto_approve",
		"reasoning": "test"
	}`,
		fields["isValid"], fields["confidence"], fields["riskLevel"], fields["riskScore"],
		fields["amount"], fields["date"], fields["time"], fields["bank"], fields["reference"],
		fields["isPaymentProof"], fields["isRecent"], fields["amountMatches"],
		fields["hasManipulation"], fields["indicators"])
	return b.String()
}
