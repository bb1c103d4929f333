package extract

import (
	"bytes"
	"fmt"
	"image/png"

	fitz "github.com/gen2brain/go-fitz"
)

// rasterDPI renders at 1.5x the PDF's native 72 DPI so small print stays
// legible for the vision model.
const rasterDPI = 108

// Rasterizer renders the leading pages of a PDF to PNG bitmaps.
type Rasterizer interface {
	RenderPages(data []byte, maxPages int) ([][]byte, error)
}

// FitzRasterizer renders pages with MuPDF.
type FitzRasterizer struct{}

func NewFitzRasterizer() *FitzRasterizer {
	return &FitzRasterizer{}
}

func (r *FitzRasterizer) RenderPages(data []byte, maxPages int) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("rasterize: open document: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n > maxPages {
		n = maxPages
	}

	var pages [][]byte
	for i := 0; i < n; i++ {
		img, err := doc.ImageDPI(i, rasterDPI)
		if err != nil {
			return nil, fmt.Errorf("rasterize: render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("rasterize: encode page %d: %w", i+1, err)
		}
		pages = append(pages, buf.Bytes())
	}

	return pages, nil
}
