package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/finlens/statement-analyzer/internal/domain"
)

const visionInstruction = "Transcribe all text from this bank statement page. " +
	"Preserve the structure as closely as possible, especially dates, amounts " +
	"and transaction descriptions. Output plain text only."

// PageRecognizer transcribes a single page bitmap.
type PageRecognizer interface {
	Transcribe(ctx context.Context, pngData []byte) (string, error)
}

// GenAIRecognizer sends page bitmaps to a vision-capable Gemini model.
type GenAIRecognizer struct {
	client *genai.Client
	model  string
}

func NewGenAIRecognizer(client *genai.Client, model string) *GenAIRecognizer {
	return &GenAIRecognizer{client: client, model: model}
}

func (r *GenAIRecognizer) Transcribe(ctx context.Context, pngData []byte) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: visionInstruction},
				{
					InlineData: &genai.Blob{
						MIMEType: "image/png",
						Data:     pngData,
					},
				},
			},
		},
	}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("vision: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("vision: empty response from model")
	}
	return text, nil
}

// VisionTier rasterizes the first pages of a document and transcribes each
// bitmap with the recognition model. Pages are processed sequentially to
// bound external-API concurrency; a per-page failure is logged and skipped.
type VisionTier struct {
	raster Rasterizer
	rec    PageRecognizer
	log    zerolog.Logger
}

// NewVisionTier wires the MuPDF rasterizer to a recognizer. rec may be nil
// when no vision credential is configured; Attempt then reports the skip.
func NewVisionTier(raster Rasterizer, rec PageRecognizer, log zerolog.Logger) *VisionTier {
	return &VisionTier{raster: raster, rec: rec, log: log}
}

func (t *VisionTier) Name() domain.ExtractionMethod {
	return domain.MethodVision
}

func (t *VisionTier) Attempt(ctx context.Context, doc *domain.RawDocument) (*domain.ExtractionResult, error) {
	if t.rec == nil {
		return nil, ErrNoCredential
	}

	pages, err := t.raster.RenderPages(doc.Data, MaxVisionPages)
	if err != nil {
		return nil, err
	}

	var transcript strings.Builder
	for i, page := range pages {
		text, err := t.rec.Transcribe(ctx, page)
		if err != nil {
			t.log.Warn().Err(err).Int("page", i+1).Msg("Vision transcription failed for page")
			continue
		}
		fmt.Fprintf(&transcript, "--- Page %d ---\n%s\n", i+1, text)
	}

	combined := strings.TrimSpace(transcript.String())
	if len(combined) <= MinVisionChars {
		return nil, ErrInsufficientText
	}

	return &domain.ExtractionResult{Text: combined, Method: domain.MethodVision}, nil
}
