package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"howett.net/plist"

	"github.com/ipagrab/ipagrab/internal/infra/config"
	"github.com/ipagrab/ipagrab/internal/infra/logger"
)

const (
	authPath = "/WebObjects/MZFinance.woa/wa/authenticate"
	buyPath  = "/WebObjects/MZFinance.woa/wa/volumeStoreDownloadProduct"

	// The store only answers requests that identify as a device
	// configuration client.
	userAgent = "Configurator/2.15 (Macintosh; OS X 11.0.0; 16G29) AppleWebKit/2603.3.8"
)

// Client speaks the private MZFinance store protocol: plist request bodies,
// plist responses, success/failure signalled inside the body rather than by
// HTTP status.
type Client struct {
	baseURL string
	guid    string
	http    *http.Client
	log     *logger.Logger
}

func New(cfg config.StoreConfig, log *logger.Logger) *Client {
	guid := cfg.GUID
	if guid == "" {
		guid = NewGUID()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		guid:    guid,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// GUID returns the device identifier this client authenticates with. It is
// fixed for the lifetime of the client so auth and purchase present the same
// device to the server.
func (c *Client) GUID() string { return c.guid }

// post marshals payload as an XML plist, posts it, and unmarshals the plist
// response into out. A non-2xx status alone is not treated as failure: the
// body's failureType field is the protocol's only success signal.
func (c *Client) post(ctx context.Context, path string, headers map[string]string, payload, out any) error {
	body, err := plist.Marshal(payload, plist.XMLFormat)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s%s?guid=%s", c.baseURL, path, c.guid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/x-apple-plist")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read store response: %w", err)
	}

	if _, err := plist.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed store response: %w", err)
	}

	return nil
}
