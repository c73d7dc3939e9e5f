package recognize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
)

type fakeRunner struct {
	gotName string
	gotArgs []string
	stdout  []byte
	stderr  []byte
	err     error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.gotName = name
	f.gotArgs = args
	return f.stdout, f.stderr, f.err
}

func TestRecognize_CommandShape(t *testing.T) {
	fr := &fakeRunner{stdout: []byte("VELOE\nTotal: R$ 12,34\n")}
	rec := NewTesseractWithRunner(config.RecognitionConfig{TesseractPath: "/usr/bin/tesseract", Language: "por"}, fr)

	text, err := rec.Recognize(context.Background(), "/tmp/r.jpg")
	require.NoError(t, err)
	assert.Equal(t, "VELOE\nTotal: R$ 12,34\n", text)
	assert.Equal(t, "/usr/bin/tesseract", fr.gotName)
	assert.Equal(t, []string{"/tmp/r.jpg", "stdout", "-l", "por", "--oem", "3", "--psm", "6"}, fr.gotArgs)
}

func TestRecognize_Defaults(t *testing.T) {
	fr := &fakeRunner{}
	rec := NewTesseractWithRunner(config.RecognitionConfig{}, fr)

	_, err := rec.Recognize(context.Background(), "r.png")
	require.NoError(t, err)
	assert.Equal(t, "tesseract", fr.gotName)
	assert.Contains(t, fr.gotArgs, "por+eng")
}

func TestRecognize_ErrorCarriesStderr(t *testing.T) {
	fr := &fakeRunner{stderr: []byte("cannot open image"), err: errors.New("exit status 1")}
	rec := NewTesseractWithRunner(config.RecognitionConfig{}, fr)

	_, err := rec.Recognize(context.Background(), "missing.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot open image")
}
