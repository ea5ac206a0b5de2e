package docuseal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxDocumentSize caps signed PDF downloads at 25 MiB.
const maxDocumentSize = 25 << 20

// Downloader fetches signed documents from provider URLs.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// HTTPDownloader fetches documents over HTTPS with a bounded timeout. A
// download that fails is not retried here; the webhook records the failure
// and staff follow up, because the provider's retry will arrive anyway.
type HTTPDownloader struct {
	client *http.Client
}

// NewHTTPDownloader creates a downloader with the given timeout.
func NewHTTPDownloader(timeout time.Duration) *HTTPDownloader {
	return &HTTPDownloader{client: &http.Client{Timeout: timeout}}
}

func (d *HTTPDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading signed document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading signed document: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading signed document: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("signed document exceeds %d bytes", maxDocumentSize)
	}
	return data, nil
}
