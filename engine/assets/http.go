package assets

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spaghettifunk/mapviewer/engine/core"
)

type HTTPTransportConfig struct {
	/** @brief Mirror root the logical paths are resolved against. */
	BaseURL string
	/** @brief Timeout of a whole transfer. Zero disables it. */
	Timeout time.Duration
}

// HTTPTransport downloads logical paths from a remote mirror.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

func NewHTTPTransport(config *HTTPTransportConfig) (*HTTPTransport, error) {
	if config.BaseURL == "" {
		err := fmt.Errorf("func NewHTTPTransport - config.BaseURL must not be empty")
		core.LogError("%s", err)
		return nil, err
	}
	if config.Timeout < 0 {
		err := fmt.Errorf("func NewHTTPTransport - config.Timeout must be >= 0")
		core.LogError("%s", err)
		return nil, err
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		client:  &http.Client{Timeout: config.Timeout},
	}, nil
}

func (t *HTTPTransport) URL(path string) string {
	return t.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (t *HTTPTransport) Fetch(ctx context.Context, path string, rng *Range, onProgress OnProgress) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL(path), nil)
	if err != nil {
		return nil, err
	}
	if rng != nil {
		req.Header.Set("Range", rng.String())
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPartialContent && rng != nil:
	case resp.StatusCode == http.StatusOK:
		if rng != nil {
			// The server ignored the Range header and sent the whole file.
			core.LogDebug("GET %s: range %s not honoured, slicing locally", path, rng)
			b, err := readAll(ctx, resp.Body, resp.ContentLength, onProgress)
			if err != nil {
				return nil, err
			}
			return rng.slice(path, b)
		}
	default:
		return nil, fmt.Errorf("GET %s: unexpected status %s", path, resp.Status)
	}

	core.LogDebug("GET %s (%d bytes)", path, resp.ContentLength)
	return readAll(ctx, resp.Body, resp.ContentLength, onProgress)
}
