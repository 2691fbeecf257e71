// Package wizapi implements the ingestion API client: OAuth
// client-credentials (or static token) authentication, gzip-compressed
// findings upload, and upload status checks.
package wizapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"

	"github.com/gassorg/wiz-sarif-action-ingest/internal/metrics"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/logger"
	"github.com/gassorg/wiz-sarif-action-ingest/pkg/wiz"
)

// API endpoints, relative to the base URL.
const (
	tokenPath  = "/oauth/token"
	uploadPath = "/ingestion/vulnerability-findings"
	statusPath = "/ingestion/uploads/"
)

// tokenRefreshMargin refreshes tokens slightly before they expire so
// in-flight requests never carry a token about to lapse.
const tokenRefreshMargin = time.Minute

// ErrNoCredentials indicates the client has neither a static API token nor
// OAuth client credentials.
var ErrNoCredentials = errors.New("no API credentials provided: set WIZ_API_TOKEN or WIZ_CLIENT_ID/WIZ_CLIENT_SECRET")

// Credentials holds the supported authentication inputs. APIToken wins when
// both are present.
type Credentials struct {
	APIToken     string
	ClientID     string
	ClientSecret string
}

// Options configures a Client.
type Options struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second
	RateBurst int
}

// Client talks to the findings ingestion API.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates an ingestion API client.
func NewClient(baseURL string, creds Credentials, opts Options, log *logger.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}
	if opts.RateBurst < 1 {
		opts.RateBurst = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		log:        log,
	}
}

// Authenticate ensures the client holds a usable token. With a static API
// token this is a no-op; with OAuth credentials it performs the
// client-credentials exchange.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.token(ctx)
	return err
}

// token returns a valid bearer token, refreshing the OAuth token when it is
// missing or about to expire.
func (c *Client) token(ctx context.Context) (string, error) {
	if c.creds.APIToken != "" {
		return c.creds.APIToken, nil
	}
	if c.creds.ClientID == "" || c.creds.ClientSecret == "" {
		return "", ErrNoCredentials
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > tokenRefreshMargin {
		return c.accessToken, nil
	}

	if err := c.fetchToken(ctx); err != nil {
		return "", err
	}
	return c.accessToken, nil
}

// fetchToken performs the client-credentials exchange. Caller holds c.mu.
func (c *Client) fetchToken(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
		"audience":      {"wiz-api"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token request failed: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return errors.New("token response missing access_token")
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = tokenExpiry(tokenResp.AccessToken, tokenResp.ExpiresIn)

	c.log.Debug("obtained access token", "expires_at", c.tokenExpiry)
	return nil
}

// tokenExpiry reads the exp claim from the JWT without verifying it; the
// server verifies, the client only needs to know when to refresh. Falls back
// to expires_in, then to a conservative hour.
func tokenExpiry(token string, expiresIn int) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if expiresIn > 0 {
		return time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return time.Now().Add(time.Hour)
}

// UploadResponse is the ingestion API's answer to a findings upload.
type UploadResponse struct {
	UploadID string `json:"uploadId"`
}

// Upload posts a findings document, gzip-compressed, and returns the upload
// ID assigned by the API.
func (c *Client) Upload(ctx context.Context, doc *wiz.Document) (string, error) {
	start := time.Now()

	uploadID, err := c.upload(ctx, doc)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failure").Inc()
		return "", err
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	metrics.UploadDuration.Observe(time.Since(start).Seconds())
	return uploadID, nil
}

func (c *Client) upload(ctx context.Context, doc *wiz.Document) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return "", fmt.Errorf("compress document: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, &buf)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.NewString())

	c.log.Info("uploading findings",
		"integration_id", doc.IntegrationID,
		"data_sources", len(doc.DataSources),
		"payload_bytes", len(payload),
		"compressed_bytes", buf.Len(),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", parseAPIError(resp.StatusCode, body)
	}

	var uploadResp UploadResponse
	if err := json.Unmarshal(body, &uploadResp); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if uploadResp.UploadID == "" {
		// Some deployments acknowledge without an upload ID; fall back to
		// the integration ID so callers still get a handle to log.
		return doc.IntegrationID, nil
	}

	return uploadResp.UploadID, nil
}

// UploadStatus describes the server-side state of an upload.
type UploadStatus struct {
	UploadID string `json:"uploadId"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// CheckStatus fetches the processing status of a previous upload.
func (c *Client) CheckStatus(ctx context.Context, uploadID string) (*UploadStatus, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath+url.PathEscape(uploadID), nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var status UploadStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &status, nil
}

// APIError represents an error response from the ingestion API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func parseAPIError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			apiErr.Message = parsed.Message
		case parsed.Error != "":
			apiErr.Message = parsed.Error
		}
	}

	if apiErr.Message == "" {
		switch statusCode {
		case http.StatusUnauthorized:
			apiErr.Message = "unauthorized: invalid or expired credentials"
		case http.StatusForbidden:
			apiErr.Message = "forbidden: insufficient permissions"
		case http.StatusRequestEntityTooLarge:
			apiErr.Message = "payload too large"
		}
	}

	return apiErr
}
