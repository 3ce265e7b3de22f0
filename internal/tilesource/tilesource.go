// Package tilesource fetches map tiles over HTTP from a TMS URL template.
package tilesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/trackreel/trackreel/internal/config"
	"github.com/trackreel/trackreel/internal/tilecache"
)

// MaxTileSize bounds the body read for one tile.
const MaxTileSize = 8 << 20

var switchPattern = regexp.MustCompile(`\{switch:([^}]*)\}`)

// StatusError is returned for a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tile %s returned status %d", e.URL, e.Code)
}

// HTTP is a tilecache.Fetcher backed by an http.Client.
type HTTP struct {
	userAgent  string
	httpClient *http.Client
}

// New creates a fetcher from the tile source settings. A zero timeout means
// 30 seconds.
func New(cfg config.TileSourceConfig) *HTTP {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTP{
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the tile addressed by key. key.Source is the URL
// template.
func (h *HTTP) Fetch(ctx context.Context, key tilecache.Key) ([]byte, error) {
	url, err := Expand(key.Source, key.Zoom, key.X, key.Y)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxTileSize))
	if err != nil {
		return nil, fmt.Errorf("read tile %s: %w", url, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("tile %s is empty", url)
	}
	return data, nil
}

// Expand fills a TMS URL template. {zoom} and {z}, {x} and {y} take the tile
// address; {switch:a,b,c} picks one of the listed values, spreading tiles
// over the mirrors deterministically.
func Expand(template string, zoom, x, y int) (string, error) {
	if template == "" {
		return "", fmt.Errorf("empty tile URL template")
	}
	var expandErr error
	url := switchPattern.ReplaceAllStringFunc(template, func(m string) string {
		opts := strings.Split(switchPattern.FindStringSubmatch(m)[1], ",")
		for i := range opts {
			opts[i] = strings.TrimSpace(opts[i])
		}
		if len(opts) == 1 && opts[0] == "" {
			expandErr = fmt.Errorf("empty switch in tile URL template %q", template)
			return m
		}
		return opts[(x+y)%len(opts)]
	})
	if expandErr != nil {
		return "", expandErr
	}
	url = strings.NewReplacer(
		"{zoom}", strconv.Itoa(zoom),
		"{z}", strconv.Itoa(zoom),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(url)
	return url, nil
}
