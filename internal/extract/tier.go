// Package extract implements the ordered extraction tiers that turn an
// uploaded statement into raw text: the external parse service, the PDF
// text layer, and vision transcription of rasterized pages.
package extract

import (
	"context"
	"errors"

	"github.com/finlens/statement-analyzer/internal/domain"
)

// Content thresholds per tier. A result below its tier's threshold is not a
// success; the caller must fall through to the next tier.
const (
	// MinTextChars is the minimum combined text length for the text-layer
	// and external tiers. Below this the PDF is presumed image-only.
	MinTextChars = 100

	// MinVisionChars is the minimum accumulated vision transcript length.
	MinVisionChars = 50

	// MaxVisionPages bounds the number of pages sent to the vision model.
	MaxVisionPages = 3
)

// ErrInsufficientText reports that a tier ran but produced too little text
// to be trusted.
var ErrInsufficientText = errors.New("extracted text below minimum content threshold")

// ErrNoCredential reports that a tier requires a credential that is not
// configured. This is a normal skip condition, not a crash.
var ErrNoCredential = errors.New("no vision credential configured")

// Tier is one extraction strategy. Attempt returns a result with non-empty
// text, or an error; both hard failures and insufficiency are errors so the
// orchestrator can fall through uniformly.
type Tier interface {
	Name() domain.ExtractionMethod
	Attempt(ctx context.Context, doc *domain.RawDocument) (*domain.ExtractionResult, error)
}
