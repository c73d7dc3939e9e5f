package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// amountRe matches a currency-like value: optional "R$", an integer part
// with optional thousands dots, then a decimal separator and exactly two
// fraction digits.
var amountRe = regexp.MustCompile(`(?:R\$\s*)?(\d{1,3}(?:\.\d{3})+|\d+)[.,]\s?(\d{2})`)

// Lines carrying one of these words are tried before all other lines;
// receipts label the payable amount with them.
var amountLineKeywords = []string{"total", "valor", "pago", "pagamento", "tarifa"}

// minPlausibleCents filters near-zero OCR artifacts. Real charges start
// at R$ 0,50 (Estapar meters go as low as R$ 0,90).
const minPlausibleCents = 50

// ocrDigitFixer repairs the common letter-for-digit confusions tesseract
// makes inside numbers.
var ocrDigitFixer = strings.NewReplacer(
	"O", "0", "o", "0",
	"S", "5",
	"I", "1", "l", "1",
)

// parseAmount scans the text line by line for a plausible monetary value
// and returns it in cents, or nil when nothing qualifies.
func parseAmount(text string) *int64 {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}

	var preferred []string
	for _, ln := range lines {
		low := strings.ToLower(ln)
		for _, kw := range amountLineKeywords {
			if strings.Contains(low, kw) {
				preferred = append(preferred, ln)
				break
			}
		}
	}

	candidates := append(preferred, lines...)

	for _, ln := range candidates {
		fixed := ocrDigitFixer.Replace(ln)

		// Whitespace inside the value ("R$ 12 ,34") is an OCR artifact,
		// so the stripped form is tried first.
		m := amountRe.FindStringSubmatch(strings.ReplaceAll(fixed, " ", ""))
		if m == nil {
			m = amountRe.FindStringSubmatch(fixed)
		}
		if m == nil {
			continue
		}

		intPart := strings.ReplaceAll(m[1], ".", "")
		whole, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			continue
		}
		cents, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}

		v := whole*100 + cents
		if v >= minPlausibleCents {
			return &v
		}
	}

	return nil
}
