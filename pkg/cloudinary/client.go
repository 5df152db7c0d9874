// Package cloudinary is a minimal signed REST client for the Cloudinary image API.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/kiosk-attendance-api/pkg/config"
)

const (
	defaultBaseURL = "https://api.cloudinary.com/v1_1"
	maxDownload    = 10 << 20
)

// ErrInvalidURL is returned when a public id cannot be derived from an image URL.
var ErrInvalidURL = errors.New("cloudinary: cannot derive public id from url")

// Client uploads and destroys images using signed requests.
type Client struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	BaseURL   string
	HTTP      *http.Client

	now func() time.Time
}

// New creates a Cloudinary client.
func New(cfg config.CloudinaryConfig) *Client {
	return &Client{
		CloudName: cfg.CloudName,
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Folder:    cfg.Folder,
		BaseURL:   defaultBaseURL,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

// UploadResult holds the response from Cloudinary after a successful upload.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
}

type destroyResult struct {
	Result string `json:"result"`
}

// Upload sends image bytes read from r.
func (c *Client) Upload(ctx context.Context, r io.Reader, filename string) (*UploadResult, error) {
	params := c.signedParams(nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range params {
		_ = w.WriteField(k, v)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("cloudinary: write file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("cloudinary: close form: %w", err)
	}

	body, err := c.post(ctx, "image/upload", w.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("cloudinary: decode upload response: %w", err)
	}
	return &result, nil
}

// Destroy deletes the image identified by publicID. It reports whether
// Cloudinary answered with result "ok".
func (c *Client) Destroy(ctx context.Context, publicID string) (bool, error) {
	params := c.signedParams(map[string]string{"public_id": publicID})

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	body, err := c.post(ctx, "image/destroy", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}

	var result destroyResult
	if err := json.Unmarshal(body, &result); err != nil {
		return false, fmt.Errorf("cloudinary: decode destroy response: %w", err)
	}
	return result.Result == "ok", nil
}

// Download fetches an image by URL, used to embed photos in rendered documents.
func (c *Client) Download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: create download request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cloudinary: download failed (%d)", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownload))
}

// PublicIDFromURL derives the asset public id from a delivery URL: the path
// after "/upload/", without a leading version segment and file extension.
// URLs without an upload segment fall back to the bare file name.
func PublicIDFromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	p := u.Path
	if idx := strings.Index(p, "/upload/"); idx >= 0 {
		segments := strings.Split(p[idx+len("/upload/"):], "/")
		if len(segments) > 1 && isVersion(segments[0]) {
			segments = segments[1:]
		}
		p = strings.Join(segments, "/")
	} else {
		p = path.Base(p)
	}

	p = strings.TrimSuffix(p, path.Ext(p))
	if p == "" || p == "." || p == "/" {
		return "", ErrInvalidURL
	}
	return p, nil
}

func isVersion(segment string) bool {
	if len(segment) < 2 || segment[0] != 'v' {
		return false
	}
	_, err := strconv.ParseUint(segment[1:], 10, 64)
	return err == nil
}

func (c *Client) signedParams(extra map[string]string) map[string]string {
	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
		"api_key":   c.APIKey,
	}
	for k, v := range extra {
		params[k] = v
	}
	if _, ok := extra["public_id"]; !ok && c.Folder != "" {
		params["folder"] = c.Folder
	}
	params["signature"] = c.sign(params)
	return params
}

func (c *Client) post(ctx context.Context, action, contentType string, body io.Reader) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.BaseURL, "/"), c.CloudName, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("cloudinary: %s failed (%d): %s", action, resp.StatusCode, string(payload))
	}
	return payload, nil
}

// sign computes the API signature. api_key, file and resource_type are not
// part of the signed payload.
func (c *Client) sign(params map[string]string) string {
	excludeKeys := map[string]bool{"api_key": true, "file": true, "resource_type": true, "signature": true}

	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if !excludeKeys[k] && v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)

	h := sha1.New()
	h.Write([]byte(strings.Join(pairs, "&") + c.APISecret))
	return fmt.Sprintf("%x", h.Sum(nil))
}
