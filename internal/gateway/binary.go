package gateway

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"log/slog"
)

// FetchBinary retrieves a raw binary document (exports, attachments) from the
// upstream. It attaches auth headers directly and skips the envelope
// pipeline; a content-type mismatch aborts with a log entry only, no
// user-facing notification.
func (c *Client) FetchBinary(ctx context.Context, path, wantType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/"+strings.TrimLeft(path, "/"), nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: build binary request: %w", err)
	}
	c.attachHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("gateway: binary fetch: %s", transportMessage(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway: binary fetch: status %d", resp.StatusCode)
	}

	gotType := resp.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(gotType); err == nil {
		gotType = parsed
	}
	if gotType != wantType {
		c.logger.Warn("binary fetch content type mismatch",
			slog.String("path", path),
			slog.String("want", wantType),
			slog.String("got", gotType))
		return nil, ErrUnexpectedMIME
	}

	return io.ReadAll(resp.Body)
}
