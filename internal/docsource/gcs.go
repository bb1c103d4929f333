// Package docsource fetches uploaded statement files for asynchronous
// analysis.
package docsource

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/finlens/statement-analyzer/internal/domain"
)

// ParseGCSURI splits "gs://bucket/object" into its bucket and object parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(uri, "gs://")
	if trimmed == uri {
		return "", "", fmt.Errorf("docsource: %q is not a gs:// URI", uri)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("docsource: %q is missing bucket or object", uri)
	}
	return parts[0], parts[1], nil
}

// FetchFromGCS downloads a statement from GCS and wraps it as a RawDocument.
// Application Default Credentials are assumed.
func FetchFromGCS(ctx context.Context, uri string) (*domain.RawDocument, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("docsource: storage client: %w", err)
	}
	defer client.Close()

	obj := client.Bucket(bucket).Object(object)

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("docsource: object attrs %q: %w", uri, err)
	}

	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("docsource: open %q: %w", uri, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("docsource: read %q: %w", uri, err)
	}

	mime := attrs.ContentType
	if mime == "" {
		mime = "application/pdf"
	}

	return &domain.RawDocument{
		Data:     data,
		MimeType: mime,
		Filename: path.Base(object),
	}, nil
}
