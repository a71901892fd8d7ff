// Package ocr recovers text from scanned PDF pages by rasterizing them and
// running tesseract.
package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Tesseract shells out to pdftoppm and tesseract. Both binaries must be on
// the PATH unless overridden.
type Tesseract struct {
	PdftoppmPath  string
	TesseractPath string
	// DPI controls the rasterization resolution. Zero means 300, which is
	// what the source documents need for a usable recognition rate.
	DPI int
}

// FirstPageOCR rasterizes the first page of the PDF and returns the
// recognized text.
func (t Tesseract) FirstPageOCR(ctx context.Context, data []byte) (string, error) {
	pdftoppm := t.PdftoppmPath
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	tesseract := t.TesseractPath
	if tesseract == "" {
		tesseract = "tesseract"
	}
	dpi := t.DPI
	if dpi == 0 {
		dpi = 300
	}

	dir, err := os.MkdirTemp("", "ocr")
	if err != nil {
		return "", fmt.Errorf("ocr: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "page.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return "", fmt.Errorf("ocr: write document: %w", err)
	}

	imageBase := filepath.Join(dir, "page")
	render := exec.CommandContext(ctx, pdftoppm,
		"-png", "-singlefile", "-f", "1", "-l", "1", "-r", strconv.Itoa(dpi),
		pdfPath, imageBase)
	if out, err := render.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ocr: rasterize page: %w: %s", err, out)
	}

	recognize := exec.CommandContext(ctx, tesseract, imageBase+".png", "stdout")
	text, err := recognize.Output()
	if err != nil {
		return "", fmt.Errorf("ocr: recognize page: %w", err)
	}
	return string(text), nil
}
