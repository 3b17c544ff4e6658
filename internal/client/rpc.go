package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jason-s-yu/cardlink/internal/channel"
)

const requestTimeout = 5 * time.Second

// call POSTs (or GETs, when body is nil and method says so) a JSON request
// and decodes the JSON reply into out.
func (c *Client) call(ctx context.Context, method, path, token string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.ServerURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(channel.TokenHeader, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s reply (status %d): %w", path, resp.StatusCode, err)
	}
	return nil
}

// channelURL turns the server's http(s) base URL into the game channel's
// ws(s) URL.
func channelURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/game/channel"
	return u.String(), nil
}
