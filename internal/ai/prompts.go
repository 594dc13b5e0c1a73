package ai

import (
	"fmt"
	"strings"
)

// ExtractionPrompt asks the model to read all transfer fields off a receipt.
// Deliberately lenient: dark mode screenshots, custom fonts and cropped
// headers are normal for mobile banking captures and must not count as fraud.
func ExtractionPrompt() string {
	return `Extract the transfer data from this bank/e-wallet receipt image.

CONTEXT:
- The image is usually a phone screenshot (BRImo, BCA, Mandiri, DANA, OVO, GoPay, QRIS) or a photo of an ATM slip.
- Dark mode, custom phone fonts and slightly cropped headers are NORMAL and are not fraud.

Consider it a valid payment proof (isPaymentProof: true) when a success keyword ("Berhasil", "Sukses", "Transfer", "Struk"), a money amount and a date are readable.

Respond with ONLY a JSON object of this exact shape:
{
  "isValid": boolean,
  "confidence": number (0-100),
  "riskLevel": "low" | "medium" | "high" | "critical",
  "riskScore": number (0-100),
  "extractedData": {
    "amount": number (plain digits, no separators),
    "date": "YYYY-MM-DD",
    "time": "HH:MM",
    "bank": "string",
    "accountNumber": "string",
    "accountHolder": "string",
    "referenceNumber": "string",
    "transferMethod": "string"
  },
  "validation": {
    "isPaymentProof": boolean,
    "isRecent": boolean,
    "amountMatches": boolean,
    "bankMatches": boolean,
    "hasManipulation": boolean
  },
  "fraudIndicators": [],
  "recommendation": "auto_approve" | "manual_review" | "reject",
  "reasoning": "string"
}

Extract exactly what you see. Use 0 or "" for unreadable fields. Only set hasManipulation when there is crude editing such as pasted boxes covering digits.`
}

// AmountOnlyPrompt is the specialized retry used when the first pass could
// not read an amount.
func AmountOnlyPrompt() string {
	return `Look at this transfer receipt image and extract ONLY the following, as JSON:

{
  "amount": <transferred amount as a plain number, e.g. 150000>,
  "bank": "<bank or e-wallet name, e.g. BRI, Mandiri, DANA, OVO>",
  "referenceNumber": "<reference/transaction number if visible>"
}

IMPORTANT:
- Focus only on the transferred amount; ignore balances and admin fees.
- Respond with valid JSON only.
- If the amount cannot be read, return {"amount": null}.`
}

// Expectation carries the known-good values embedded into the fraud
// analysis prompt for cross-checking.
type Expectation struct {
	Amount        float64
	Bank          string
	CustomerName  string
	InvoiceNumber string
}

// FraudAnalysisPrompt asks the model for a deep fraud-focused pass over the
// receipt, cross-checking against the expected payment.
func FraudAnalysisPrompt(exp Expectation) string {
	var b strings.Builder

	b.WriteString(`You are an experienced payment-proof fraud analyst for an internet service provider's billing system. Analyze this transfer receipt image thoroughly.

EXPECTED DATA:
`)
	if exp.Amount > 0 {
		fmt.Fprintf(&b, "- Expected amount: Rp %.0f\n", exp.Amount)
	} else {
		b.WriteString("- Expected amount: not specified\n")
	}
	if exp.Bank != "" {
		fmt.Fprintf(&b, "- Expected bank: %s\n", exp.Bank)
	}
	if exp.CustomerName != "" {
		fmt.Fprintf(&b, "- Customer name: %s\n", exp.CustomerName)
	}
	if exp.InvoiceNumber != "" {
		fmt.Fprintf(&b, "- Invoice number: %s\n", exp.InvoiceNumber)
	}

	b.WriteString(`
ANALYSIS TASKS, IN PRIORITY ORDER:

1. AUTHENTICITY
   - Is this a real transfer receipt? Identify the platform (mobile banking, e-wallet, ATM slip).
   - Check standard visual elements: bank logo, timestamp, app UI.
   - Look for editing: inconsistent fonts, odd spacing, overlaid text, boxes covering digits, unnatural blur over key fields.

2. DATA EXTRACTION
   - Amount (Rupiah, plain digits), transfer date and time, bank/method, destination account, sender name, reference number, transfer status.

3. CROSS-CHECK AGAINST EXPECTED DATA
   - Does the amount match (small rounding differences are acceptable)?
   - Is the transfer recent?
   - Does the sender plausibly match the customer name (a different sender mentioned in the notes is acceptable)?

4. FRAUD INDICATORS
   - manipulation: signs of image editing
   - data_mismatch: amount/bank/date inconsistent with expectations
   - suspicious_pattern: UI inconsistent with the official app, key fields deliberately obscured
   - context_issue: status not successful, wrong destination account, future-dated transfer

5. RISK
   - riskLevel low (clean), medium (minor inconsistencies), high (significant mismatch or editing signs), critical (almost certainly fraudulent).

Respond with ONLY a JSON object of this exact shape:
{
  "isValid": boolean,
  "confidence": number (0-100),
  "riskLevel": "low" | "medium" | "high" | "critical",
  "riskScore": number (0-100),
  "extractedData": {
    "amount": number,
    "date": "YYYY-MM-DD",
    "time": "HH:MM",
    "bank": "string",
    "accountNumber": "string",
    "accountHolder": "string",
    "referenceNumber": "string",
    "transferMethod": "string"
  },
  "validation": {
    "isPaymentProof": boolean,
    "isRecent": boolean,
    "amountMatches": boolean,
    "bankMatches": boolean,
    "hasManipulation": boolean
  },
  "fraudIndicators": [
    {
      "type": "manipulation" | "data_mismatch" | "suspicious_pattern" | "context_issue",
      "severity": "low" | "medium" | "high" | "critical",
      "description": "string",
      "evidence": "string"
    }
  ],
  "recommendation": "auto_approve" | "manual_review" | "reject",
  "reasoning": "string"
}

If any fraud indicator has severity high or critical, set isValid to false.`)

	return b.String()
}
