package extract

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/finlens/statement-analyzer/internal/domain"
)

// lineTolerance is the vertical distance, in PDF units, within which two
// text fragments are considered part of the same line.
const lineTolerance = 5.0

// TextLayerTier reads a PDF's embedded text layer page by page,
// reconstructing reading order from glyph vertical position.
type TextLayerTier struct{}

func NewTextLayerTier() *TextLayerTier {
	return &TextLayerTier{}
}

func (t *TextLayerTier) Name() domain.ExtractionMethod {
	return domain.MethodTextLayer
}

func (t *TextLayerTier) Attempt(ctx context.Context, doc *domain.RawDocument) (*domain.ExtractionResult, error) {
	text, err := extractTextLayer(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("text layer: %w", err)
	}
	if len(text) <= MinTextChars {
		return nil, ErrInsufficientText
	}
	return &domain.ExtractionResult{Text: text, Method: domain.MethodTextLayer}, nil
}

// extractTextLayer walks every page's positioned fragments in source order.
// The PDF library can panic on malformed files, so the whole walk is fenced
// with recover and reported as an ordinary error.
func extractTextLayer(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		if pageText := reconstructLines(page.Content().Text); pageText != "" {
			pages = append(pages, pageText)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

// reconstructLines rebuilds reading order from fragment Y coordinates: a
// fragment whose vertical position differs from the previous one by more
// than the tolerance starts a new line, otherwise it is appended to the
// current line with a single separating space. Fragments with no textual
// content are skipped.
func reconstructLines(fragments []pdf.Text) string {
	var b strings.Builder
	var line strings.Builder
	var prevY float64
	first := true

	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(s)
		}
		line.Reset()
	}

	for _, frag := range fragments {
		if strings.TrimSpace(frag.S) == "" {
			continue
		}
		if !first && math.Abs(frag.Y-prevY) > lineTolerance {
			flush()
		}
		if line.Len() > 0 && !endsInSpace(line.String()) {
			line.WriteByte(' ')
		}
		line.WriteString(frag.S)
		prevY = frag.Y
		first = false
	}
	flush()

	return b.String()
}

func endsInSpace(s string) bool {
	return s != "" && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t')
}
