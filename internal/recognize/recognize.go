// Package recognize turns a receipt image into raw text via an
// external tesseract binary. The output may be partial or garbled;
// callers must never assume it is reliable.
package recognize

import (
	"context"
	"fmt"

	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
)

// Recognizer is the recognition port consumed by the pipeline.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Tesseract shells out to the tesseract CLI. Receipts are photographed
// phone screens and thermal prints, so psm 6 (uniform text block) with
// the LSTM engine gives the most stable reads.
type Tesseract struct {
	binary   string
	language string
	runner   Runner
}

// NewTesseract builds the default recognizer from config.
func NewTesseract(cfg config.RecognitionConfig) *Tesseract {
	bin := cfg.TesseractPath
	if bin == "" {
		bin = "tesseract"
	}
	lang := cfg.Language
	if lang == "" {
		lang = "por+eng"
	}
	return &Tesseract{binary: bin, language: lang, runner: execRunner{}}
}

// NewTesseractWithRunner is for tests.
func NewTesseractWithRunner(cfg config.RecognitionConfig, r Runner) *Tesseract {
	t := NewTesseract(cfg)
	t.runner = r
	return t
}

func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout", "-l", t.language, "--oem", "3", "--psm", "6"}

	out, errb, err := t.runner.Run(ctx, t.binary, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w (stderr: %s)", imagePath, err, truncate(string(errb), 512))
	}
	return string(out), nil
}
