// Package storage keeps request attachments in a Supabase-compatible object
// store. Objects live under <uploader id>/<unix millis>_<file name>.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/frahmantamala/audit-workflow/internal"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultSignedURLTTL = time.Hour
	maxErrorBody        = 4 << 10
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFileName keeps letters, digits, dot, underscore and dash and
// replaces everything else with an underscore.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if strings.Trim(stem, ". ") == "" {
		stem = "file"
	}
	return unsafeNameChars.ReplaceAllString(stem, "_") + unsafeNameChars.ReplaceAllString(ext, "_")
}

// BuildPath returns the object path for a file uploaded by uploaderID at now.
func BuildPath(uploaderID, fileName string, now time.Time) string {
	return fmt.Sprintf("%s/%d_%s", uploaderID, now.UnixMilli(), SanitizeFileName(fileName))
}

// OwnedBy reports whether objectPath was produced by BuildPath for uploaderID.
func OwnedBy(objectPath, uploaderID string) bool {
	if uploaderID == "" || strings.Contains(objectPath, "..") {
		return false
	}
	dir, file, ok := strings.Cut(objectPath, "/")
	if !ok || dir != uploaderID || file == "" || strings.Contains(file, "/") {
		return false
	}
	stamp, _, ok := strings.Cut(file, "_")
	if !ok {
		return false
	}
	_, err := strconv.ParseInt(stamp, 10, 64)
	return err == nil
}

// DisplayName is the file name without the uploader and timestamp prefix.
func DisplayName(objectPath string) string {
	file := path.Base(objectPath)
	if stamp, rest, ok := strings.Cut(file, "_"); ok && rest != "" {
		if _, err := strconv.ParseInt(stamp, 10, 64); err == nil {
			return rest
		}
	}
	return file
}

// Client talks to the storage REST API.
type Client struct {
	baseURL      string
	apiKey       string
	bucket       string
	public       bool
	signedURLTTL time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

func NewClient(cfg internal.StorageConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ttl := cfg.SignedURLTTL
	if ttl <= 0 {
		ttl = defaultSignedURLTTL
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.URL, "/"),
		apiKey:       cfg.APIKey,
		bucket:       cfg.Bucket,
		public:       cfg.Public,
		signedURLTTL: ttl,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

func (c *Client) objectURL(kind, objectPath string) string {
	segments := []string{c.baseURL, "storage/v1/object"}
	if kind != "" {
		segments = append(segments, kind)
	}
	segments = append(segments, url.PathEscape(c.bucket), escapePath(objectPath))
	return strings.Join(segments, "/")
}

// Upload stores data at objectPath.
func (c *Client) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.objectURL("", objectPath), data)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.responseError("upload", resp)
	}

	c.logger.Debug("attachment uploaded", "path", objectPath, "bucket", c.bucket)
	return nil
}

// URL returns a link to objectPath: the public URL for public buckets and
// a time-limited signed URL otherwise.
func (c *Client) URL(ctx context.Context, objectPath string) (string, error) {
	if c.public {
		return c.objectURL("public", objectPath), nil
	}

	body, err := json.Marshal(map[string]int64{"expiresIn": int64(c.signedURLTTL.Seconds())})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.objectURL("sign", objectPath), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sign request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.responseError("sign", resp)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read sign response: %w", err)
	}
	signed := gjson.GetBytes(raw, "signedURL").String()
	if signed == "" {
		signed = gjson.GetBytes(raw, "signedUrl").String()
	}
	if signed == "" {
		return "", fmt.Errorf("sign response has no signedURL")
	}
	if strings.HasPrefix(signed, "http://") || strings.HasPrefix(signed, "https://") {
		return signed, nil
	}
	return c.baseURL + "/storage/v1/" + strings.TrimLeft(signed, "/"), nil
}

func (c *Client) OwnedBy(objectPath, uploaderID string) bool {
	return OwnedBy(objectPath, uploaderID)
}

func (c *Client) DisplayName(objectPath string) string {
	return DisplayName(objectPath)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey == "" {
		return
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func (c *Client) responseError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := gjson.GetBytes(raw, "message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return fmt.Errorf("storage %s returned status %d: %s", op, resp.StatusCode, msg)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
