package qrcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/sealcard-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/sealcard-backend/pkg/errors"
)

const (
	defaultSize                 = 300
	defaultTimeout              = 3 * time.Second
	responseBodyReadLimit int64 = 1024
)

var (
	errBaseURLRequired     = errors.New("qr code base url is required")
	errPublicURLRequired   = errors.New("public card base url is required")
	errPayloadSegmentBlank = errors.New("qr payload segment is required")
)

// Client builds image URLs against a GET-based QR rendering service
// (`{base}?size=NxN&data=...`) and optionally checks that the image renders.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	publicBaseURL string
	size          int
	verify        bool
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithVerify toggles the render check performed after building a URL.
func WithVerify(verify bool) Option {
	return func(c *Client) {
		c.verify = verify
	}
}

// NewClient builds the QR client from configuration.
func NewClient(cfg config.QRCodeConfig, opts ...Option) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errBaseURLRequired
	}
	public := strings.TrimRight(strings.TrimSpace(cfg.PublicCardBaseURL), "/")
	if public == "" {
		return nil, errPublicURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	size := cfg.Size
	if size <= 0 {
		size = defaultSize
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       base,
		publicBaseURL: public,
		size:          size,
		verify:        cfg.Verify,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ProgramLink is the public URL customers open to view and join a program.
func (c *Client) ProgramLink(publicCode string) (string, error) {
	code := strings.TrimSpace(publicCode)
	if code == "" {
		return "", errPayloadSegmentBlank
	}
	return fmt.Sprintf("%s/%s", c.publicBaseURL, url.PathEscape(code)), nil
}

// CardLink is the URL printed on a customer's personal card QR.
func (c *Client) CardLink(publicCode, cardCode string) (string, error) {
	program, err := c.ProgramLink(publicCode)
	if err != nil {
		return "", err
	}
	code := strings.TrimSpace(cardCode)
	if code == "" {
		return "", errPayloadSegmentBlank
	}
	return fmt.Sprintf("%s/%s", program, url.PathEscape(code)), nil
}

// ImageURL returns the rendering service URL for payload.
func (c *Client) ImageURL(payload string) string {
	query := url.Values{}
	query.Set("size", fmt.Sprintf("%dx%d", c.size, c.size))
	query.Set("data", payload)
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + query.Encode()
}

// ProgramQR builds (and optionally verifies) the QR image URL for a program link.
func (c *Client) ProgramQR(ctx context.Context, publicCode string) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "qr code client not configured")
	}
	link, err := c.ProgramLink(publicCode)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build program link")
	}
	return c.render(ctx, link)
}

// CardQR builds (and optionally verifies) the QR image URL for a customer card.
func (c *Client) CardQR(ctx context.Context, publicCode, cardCode string) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "qr code client not configured")
	}
	link, err := c.CardLink(publicCode, cardCode)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build card link")
	}
	return c.render(ctx, link)
}

func (c *Client) render(ctx context.Context, payload string) (string, error) {
	imageURL := c.ImageURL(payload)
	if !c.verify {
		return imageURL, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build qr request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute qr request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "qr request failed")
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "qr service returned "+ct)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseBodyReadLimit))
	return imageURL, nil
}
