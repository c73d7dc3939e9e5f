// Dry-run OCR on a single file: print the recognized text and the
// extracted fact without touching the ledger or the portal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/khaothykus/fieldmap-bot/internal/extract"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/logging"
	"github.com/khaothykus/fieldmap-bot/internal/recognize"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file path")
		showText   = flag.Bool("text", false, "Also print the raw recognized text")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: ocr [-config file] [-text] <image>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := config.LoadOrEnvWithPath(*configFile)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "ocr")

	recognizer := recognize.NewTesseract(cfg.Recognition)
	text, err := recognizer.Recognize(context.Background(), path)
	if err != nil {
		logger.Error("recognition failed", "file", path, "error", err)
		os.Exit(1)
	}

	if *showText {
		fmt.Println("--- recognized text ---")
		fmt.Println(text)
		fmt.Println("-----------------------")
	}

	fact := extract.New().Extract(text)
	fmt.Printf("category:     %s\n", fact.Category)
	if fact.Timestamp != nil {
		fmt.Printf("timestamp:    %s\n", fact.Timestamp.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Printf("timestamp:    (none)\n")
	}
	fmt.Printf("amount_cents: %d\n", fact.AmountCents)

	if usable, reason := fact.Usable(); !usable {
		fmt.Printf("verdict:      would be rejected (%s)\n", reason)
		os.Exit(1)
	}
	fmt.Printf("verdict:      would be submitted\n")
}
