package web

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OFFIS-RIT/kgchat/pkg/loader"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/sync/singleflight"
)

const maxBodySize = 20 << 20

// WebGraphLoader fetches URLs and extracts readable text. HTML pages are
// reduced to their main article content, plain text is returned as is.
type WebGraphLoader struct {
	client *http.Client
	group  singleflight.Group
}

// NewWebGraphLoader creates a web loader. A nil client uses a default
// client with a 30 second timeout.
func NewWebGraphLoader(client *http.Client) *WebGraphLoader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebGraphLoader{client: client}
}

// GetFileText fetches file.FilePath and extracts its text.
func (l *WebGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	result, err, _ := l.group.Do(loader.CacheKey(file), func() (any, error) {
		return l.fetch(ctx, file.FilePath)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (l *WebGraphLoader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("failed to fetch url: %s", resp.Status)
	}

	body := io.LimitReader(resp.Body, maxBodySize)
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))

	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		article, err := readability.FromReader(body, u)
		if err != nil {
			return nil, fmt.Errorf("failed to parse html: %w", err)
		}
		var builder strings.Builder
		if err := article.RenderText(&builder); err != nil {
			return nil, fmt.Errorf("failed to render article text: %w", err)
		}
		return []byte(strings.TrimSpace(builder.String())), nil
	case strings.HasPrefix(mediaType, "text/"), mediaType == "":
		return io.ReadAll(body)
	}

	return nil, fmt.Errorf("%w: %s serves %s", loader.ErrUnsupportedFileType, rawURL, mediaType)
}
