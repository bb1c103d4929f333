package parse

import "strings"

// maxPromptChars bounds the document text placed in the prompt; downstream
// model context is finite.
const maxPromptChars = 15000

const truncationMarker = "\n[... text truncated ...]"

// buildExtractionPrompt constructs the instruction sent to the language
// model together with the (possibly truncated) statement text.
func buildExtractionPrompt(text string) string {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars] + truncationMarker
	}

	var b strings.Builder
	b.WriteString("You are a financial statement parser.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Identify EVERY transaction-like entry in the statement text below.\n")
	b.WriteString("- Infer the issuing bank's name, a masked account reference and the statement period if present.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n\n")
	b.WriteString("Output a single JSON object with exactly this shape:\n")
	b.WriteString(`{
  "bankName": string or null,
  "accountNumber": string or null,
  "statementPeriod": string or null,
  "transactions": [
    {"date": "YYYY-MM-DD", "description": string, "amount": number, "type": "income" or "expense", "category": string}
  ],
  "insights": [string]
}`)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- amount is the transaction magnitude; use type for direction.\n")
	b.WriteString("- category is one of: Food, Shopping, Transport, Entertainment, Utilities, Health, Travel, Education, Other.\n")
	b.WriteString("- insights is up to three short observations about spending patterns.\n")
	b.WriteString("- Do NOT wrap the response in code fences or Markdown.\n")
	b.WriteString("- Output must begin with \"{\" and end with \"}\".\n\n")
	b.WriteString("Statement text:\n")
	b.WriteString(text)
	return b.String()
}
