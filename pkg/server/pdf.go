package server

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
)

// WriteScreenshotPDF writes one page per PNG to w, each page sized to its
// image at 72 dpi.
func WriteScreenshotPDF(w io.Writer, identity string, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no screenshots for %s", identity)
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetTitle("Screenshots for @"+identity, true)
	pdf.SetCreator("xscraper", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read screenshot: %w", err)
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		wd, ht := float64(cfg.Width), float64(cfg.Height)

		name := filepath.Base(path)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: wd, Ht: ht})
		pdf.ImageOptions(name, 0, 0, wd, ht, false, opts, 0, "")
		if pdf.Err() {
			return fmt.Errorf("%s: %w", name, pdf.Error())
		}
	}
	return pdf.Output(w)
}
