package wikiapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Download streams the resource at rawURL into w.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty download url", ErrNotFound)
	}

	return c.execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("%w: creating request: %v", ErrTransport, err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%w: %w", ErrTransport, ctxErr)
			}
			return fmt.Errorf("%w: sending request: %v", ErrTransport, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
			return fmt.Errorf("%w: %s", ErrNotFound, rawURL)
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("%w: download returned status %d", ErrResponse, resp.StatusCode)
		}

		if _, err := io.Copy(w, resp.Body); err != nil {
			return fmt.Errorf("%w: reading body: %v", ErrTransport, err)
		}
		return nil
	})
}
