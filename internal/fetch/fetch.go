
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// ErrUnsupportedContent is returned for responses that are not a text format
// the engine reads.
var ErrUnsupportedContent = errors.New("unsupported content type")

// ErrTooLarge is returned by Open when a document exceeds the size cap.
var ErrTooLarge = errors.New("document exceeds size cap")

var acceptedTypes = []string{
	"text/html",
	"application/xhtml+xml",
	"application/json",
	"application/x-ndjson",
	"text/markdown",
	"text/x-markdown",
	"text/plain",
	"text/tab-separated-values",
	"text/csv",
}

type HTTPClient struct {
	client    *http.Client
	sizeCap   int64
	userAgent string
}

func NewHTTPClient(timeout, dialTimeout time.Duration, sizeCap int64) *HTTPClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		sizeCap:   sizeCap,
		userAgent: "door43-helps-engine/1.0",
	}
}

// Fetch GETs rawURL and returns the size-capped body, the final URL after
// redirects, the content type and the time taken.
func (h *HTTPClient) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, string, string, time.Duration, error) {
	start := time.Now()
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, "", "", 0, fmt.Errorf("invalid url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", "", 0, err
	}
	req.Header.Set("Accept", "text/html,application/json,text/markdown,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", "", 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, "", "", 0, fmt.Errorf("http status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "" && !accepted(mediaType) {
		resp.Body.Close()
		return nil, "", "", 0, fmt.Errorf("%w: %s", ErrUnsupportedContent, mediaType)
	}

	var body io.ReadCloser = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, "", "", 0, err
		}
		body = &gzipBody{Reader: gz, raw: resp.Body}
	}

	// one byte over the cap lets Open tell a truncated body apart
	r := io.LimitReader(body, h.sizeCap+1)
	finalURL := resp.Request.URL.String()
	elapsed := time.Since(start)
	return readCloser{Reader: r, Closer: body}, finalURL, contentType, elapsed, nil
}

// Open reads a local file or an http(s) URL and returns its content as UTF-8.
// Remote documents larger than the size cap fail with ErrTooLarge.
func (h *HTTPClient) Open(ctx context.Context, pathOrURL string) ([]byte, error) {
	if !IsURL(pathOrURL) {
		data, err := os.ReadFile(pathOrURL)
		if err != nil {
			return nil, err
		}
		return toUTF8(data, "")
	}
	rc, _, contentType, _, err := h.Fetch(ctx, pathOrURL)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > h.sizeCap {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, pathOrURL)
	}
	return toUTF8(data, contentType)
}

// IsURL reports whether s is an http or https URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func accepted(mediaType string) bool {
	for _, t := range acceptedTypes {
		if mediaType == t {
			return true
		}
	}
	return strings.HasSuffix(mediaType, "+json")
}

func toUTF8(data []byte, contentType string) ([]byte, error) {
	if contentType == "" && utf8.Valid(data) {
		return data, nil
	}
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		// fallback: if already utf-8, continue
		if !utf8.Valid(data) {
			return nil, err
		}
		return data, nil
	}
	return out, nil
}

type gzipBody struct {
	*gzip.Reader
	raw io.Closer
}

func (g *gzipBody) Close() error {
	g.Reader.Close()
	return g.raw.Close()
}

type readCloser struct {
	io.Reader
	io.Closer
}
