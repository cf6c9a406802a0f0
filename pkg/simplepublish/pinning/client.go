// Package pinning uploads batches and documents to a hosted IPFS pinning
// service speaking the Pinata pinning API.
package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendant/simple-publish/internal/logger"
	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/urlstrategy"
)

const (
	// DefaultAPIBaseURL is the public Pinata API endpoint
	DefaultAPIBaseURL = "https://api.pinata.cloud"

	pinFilePath = "/pinning/pinFileToIPFS"
	pinJSONPath = "/pinning/pinJSONToIPFS"

	// CredentialSetting names the setting that holds the API credential
	CredentialSetting = "pinning credential"

	maxErrorBody = 4096

	maxLoggedBody = 256
)

// Config configures a pinning client
type Config struct {
	// Credential is sent as a bearer token (a Pinata JWT)
	Credential string

	// APIBaseURL defaults to DefaultAPIBaseURL
	APIBaseURL string

	// HTTPClient defaults to a client with a five minute timeout
	HTTPClient *http.Client

	// URLStrategy derives access URLs; defaults to the public gateway
	URLStrategy urlstrategy.URLStrategy

	Logger *zap.Logger
}

// PinResponse is the provider response to a successful pin
type PinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Client implements simplepublish.Uploader against a pinning service.
// Every call is a single attempt; retrying is left to the caller.
type Client struct {
	credential string
	baseURL    string
	httpClient *http.Client
	urls       urlstrategy.URLStrategy
	logger     *zap.Logger
}

// New creates a pinning client. A blank credential is rejected before any
// request is made.
func New(cfg Config) (*Client, error) {
	credential := strings.TrimSpace(cfg.Credential)
	if credential == "" {
		return nil, simplepublish.NewMissingCredentialError(CredentialSetting)
	}

	c := &Client{
		credential: credential,
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient: cfg.HTTPClient,
		urls:       cfg.URLStrategy,
		logger:     cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultAPIBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if c.urls == nil {
		c.urls = urlstrategy.NewDefaultStrategy(urlstrategy.DefaultGatewayURL)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

type pinataMetadata struct {
	Name string `json:"name"`
}

// UploadBatch pins files as one directory and returns the directory reference
func (c *Client) UploadBatch(ctx context.Context, files []simplepublish.File) (simplepublish.ContentReference, error) {
	if err := simplepublish.CheckBatch(files); err != nil {
		return simplepublish.ContentReference{}, &simplepublish.UploadError{Message: err.Error()}
	}

	dir := "batch-" + uuid.NewString()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreatePart(filePartHeader(dir+"/"+f.Name, f.MimeType))
		if err != nil {
			return simplepublish.ContentReference{}, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return simplepublish.ContentReference{}, err
		}
	}

	meta, err := json.Marshal(pinataMetadata{Name: dir})
	if err != nil {
		return simplepublish.ContentReference{}, err
	}
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return simplepublish.ContentReference{}, err
	}
	if err := w.Close(); err != nil {
		return simplepublish.ContentReference{}, err
	}

	resp, err := c.pin(ctx, pinFilePath, w.FormDataContentType(), &body)
	if err != nil {
		return simplepublish.ContentReference{}, err
	}

	c.logger.Debug("pinned batch",
		zap.String("cid", resp.IpfsHash),
		zap.Int("files", len(files)),
		zap.Int64("pin_size", resp.PinSize),
	)
	return c.reference(ctx, resp.IpfsHash)
}

// UploadDocument pins the JSON encoding of document
func (c *Client) UploadDocument(ctx context.Context, document any) (simplepublish.ContentReference, error) {
	payload, err := json.Marshal(struct {
		Content  any            `json:"pinataContent"`
		Metadata pinataMetadata `json:"pinataMetadata"`
	}{
		Content:  document,
		Metadata: pinataMetadata{Name: "document-" + uuid.NewString()},
	})
	if err != nil {
		return simplepublish.ContentReference{}, fmt.Errorf("failed to encode document: %w", err)
	}

	resp, err := c.pin(ctx, pinJSONPath, "application/json", bytes.NewReader(payload))
	if err != nil {
		return simplepublish.ContentReference{}, err
	}

	c.logger.Debug("pinned document", zap.String("cid", resp.IpfsHash), zap.Int64("pin_size", resp.PinSize))
	return c.reference(ctx, resp.IpfsHash)
}

func (c *Client) pin(ctx context.Context, path, contentType string, body io.Reader) (*PinResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.credential)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &simplepublish.NetworkError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("pinning request rejected",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", logger.TruncateForLog(string(raw), maxLoggedBody)),
		)
		return nil, &simplepublish.UploadError{
			ProviderStatus: resp.StatusCode,
			Message:        errorMessage(resp.Status, raw),
		}
	}

	var out PinResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &simplepublish.UploadError{
			ProviderStatus: resp.StatusCode,
			Message:        "invalid provider response",
			Err:            err,
		}
	}
	if out.IpfsHash == "" {
		return nil, &simplepublish.UploadError{
			ProviderStatus: resp.StatusCode,
			Message:        "provider response has no content identifier",
		}
	}
	return &out, nil
}

func (c *Client) reference(ctx context.Context, cid string) (simplepublish.ContentReference, error) {
	url, err := c.urls.GenerateURL(ctx, cid)
	if err != nil {
		return simplepublish.ContentReference{}, fmt.Errorf("failed to derive URL for %s: %w", cid, err)
	}
	return simplepublish.ContentReference{ContentID: cid, URL: url}, nil
}

// errorMessage extracts the reason from a provider error body. The service
// answers either {"error":{"reason","details"}} or {"error":"..."}.
func errorMessage(status string, raw []byte) string {
	var structured struct {
		Error struct {
			Reason  string `json:"reason"`
			Details string `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &structured) == nil && structured.Error.Reason != "" {
		if structured.Error.Details != "" {
			return structured.Error.Reason + ": " + structured.Error.Details
		}
		return structured.Error.Reason
	}

	var plain struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &plain) == nil && plain.Error != "" {
		return plain.Error
	}

	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return status
}

func filePartHeader(filename, mimeType string) textproto.MIMEHeader {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", mimeType)
	return h
}
