package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/finlens/statement-analyzer/internal/domain"
)

// externalResponse is the wire shape of the document-parsing service.
type externalResponse struct {
	RawText        string `json:"rawText"`
	PageCount      int    `json:"pageCount"`
	DetectedIssuer string `json:"detectedIssuer"`
	Transactions   []struct {
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		Type        string  `json:"type"`
	} `json:"transactions"`
}

// ExternalTier submits the raw file to an external document-parsing
// endpoint. It is the cheapest path when available; any failure is a normal
// fallthrough to the local tiers.
type ExternalTier struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewExternalTier(baseURL string, client *http.Client, log zerolog.Logger) *ExternalTier {
	if client == nil {
		client = http.DefaultClient
	}
	return &ExternalTier{baseURL: baseURL, client: client, log: log}
}

func (t *ExternalTier) Name() domain.ExtractionMethod {
	return domain.MethodExternal
}

func (t *ExternalTier) Attempt(ctx context.Context, doc *domain.RawDocument) (*domain.ExtractionResult, error) {
	body, contentType, err := buildMultipart(doc)
	if err != nil {
		return nil, fmt.Errorf("external: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/extract", body)
	if err != nil {
		return nil, fmt.Errorf("external: new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("external: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("external: unexpected status %d", resp.StatusCode)
	}

	var parsed externalResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("external: decode response: %w", err)
	}

	if len(parsed.RawText) <= MinTextChars {
		return nil, ErrInsufficientText
	}

	result := &domain.ExtractionResult{
		Text:   parsed.RawText,
		Method: domain.MethodExternal,
		Issuer: parsed.DetectedIssuer,
	}

	// The external service does not categorize, so its pre-parsed guesses
	// get the default category and a middle confidence.
	for _, raw := range parsed.Transactions {
		if raw.Amount <= 0 || raw.Description == "" {
			continue
		}
		txType := domain.TypeExpense
		if raw.Type == string(domain.TypeIncome) {
			txType = domain.TypeIncome
		}
		result.PreParsed = append(result.PreParsed, domain.Transaction{
			ID:          domain.NewTransactionID(),
			Date:        domain.NormalizeDate(raw.Date),
			Description: raw.Description,
			Amount:      raw.Amount,
			Type:        txType,
			Category:    domain.DefaultCategory,
			Confidence:  domain.ConfidenceExternal,
		})
	}

	t.log.Debug().
		Int("page_count", parsed.PageCount).
		Int("pre_parsed", len(result.PreParsed)).
		Msg("External extraction succeeded")

	return result, nil
}

func buildMultipart(doc *domain.RawDocument) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := doc.Filename
	if name == "" {
		name = "statement.pdf"
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}
