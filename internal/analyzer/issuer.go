package analyzer

import "strings"

// knownIssuers are scanned in order; the first substring hit wins.
var knownIssuers = []string{
	"HBL", "Habib Bank", "UBL", "United Bank", "MCB", "Muslim Commercial",
	"Allied Bank", "Bank Alfalah", "Meezan Bank", "Standard Chartered",
	"Faysal Bank", "JS Bank", "Bank of Punjab", "Askari Bank",
	"HDFC", "ICICI", "SBI", "Axis Bank", "Kotak",
}

// DetectIssuer scans statement text for a known issuer name. Returns the
// canonical name of the first match, or "" when no issuer is recognized.
func DetectIssuer(text string) string {
	upper := strings.ToUpper(text)
	for _, bank := range knownIssuers {
		if strings.Contains(upper, strings.ToUpper(bank)) {
			return bank
		}
	}
	return ""
}
