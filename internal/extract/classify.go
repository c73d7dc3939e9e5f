package extract

import (
	"strings"

	"github.com/khaothykus/fieldmap-bot/internal/receipt"
)

// Keyword sets for classification. Toll keywords are checked first:
// toll vendor names are specific and rarely appear as false positives,
// while parking terms are generic enough to show up on toll receipts.
var tollKeywords = []string{
	"pedágio", "pedagio", "veloe", "sem parar", "semparar", "tag",
	"praça", "praca", "autoban", "ccr", "rota das bandeiras", "renovias",
}

var parkingKeywords = []string{
	"estac", "vaga legal", "zona azul", "zul+", "zul plus", "park",
	"parquímetro", "parquimetro", "estapar", "sigapay",
}

// classify scans the text for category keywords, toll set before
// parking set; no match means the category stays unknown.
func classify(text string) receipt.Category {
	low := strings.ToLower(text)
	for _, kw := range tollKeywords {
		if strings.Contains(low, kw) {
			return receipt.CategoryToll
		}
	}
	for _, kw := range parkingKeywords {
		if strings.Contains(low, kw) {
			return receipt.CategoryParking
		}
	}
	return receipt.CategoryUnknown
}
