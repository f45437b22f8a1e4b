package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/config"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
)

const (
	defaultBaseURL = "https://storage.googleapis.com"
	readScope      = "https://www.googleapis.com/auth/devstorage.read_only"
	pingTimeout    = 5 * time.Second
	defaultTimeout = 60 * time.Second
)

// ErrObjectNotFound is returned when the bucket has no such object.
var ErrObjectNotFound = errors.New("gcs object not found")

// Client reads plan files from a single bucket over the JSON API.
type Client struct {
	httpClient *http.Client
	bucket     string
	baseURL    string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Object is an open object stream; callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	ts, err := tokenSource(ctx, gcp)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = timeout

	client := newClient(httpClient, cfg.BucketName, defaultBaseURL)
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}
	return client, nil
}

func newClient(httpClient *http.Client, bucket, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		bucket:     bucket,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func tokenSource(ctx context.Context, gcp config.GCPConfig) (oauth2.TokenSource, error) {
	var raw []byte
	switch {
	case gcp.CredentialsJSON != "":
		raw = []byte(gcp.CredentialsJSON)
	case gcp.ApplicationCredentials != "":
		b, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		raw = b
	default:
		ts, err := google.DefaultTokenSource(ctx, readScope)
		if err != nil {
			return nil, fmt.Errorf("default gcp credentials: %w", err)
		}
		return ts, nil
	}

	creds, err := google.CredentialsFromJSON(ctx, raw, readScope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	return creds.TokenSource, nil
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// OpenObject starts streaming the named object.
func (c *Client) OpenObject(ctx context.Context, object string) (*Object, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("gcs client not initialized")
	}
	object = strings.TrimPrefix(strings.TrimSpace(object), "/")
	if object == "" {
		return nil, errors.New("object name is required")
	}

	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media",
		c.baseURL, url.PathEscape(c.bucket), url.PathEscape(object))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gcs get %s: %w", object, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, object)
	case resp.StatusCode != http.StatusOK:
		defer func() { _ = resp.Body.Close() }()
		return nil, statusError("gcs get "+object, resp)
	}

	size := resp.ContentLength
	if size < 0 {
		if parsed, err := strconv.ParseInt(resp.Header.Get("X-Goog-Stored-Content-Length"), 10, 64); err == nil {
			size = parsed
		}
	}

	return &Object{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        size,
	}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.httpClient == nil {
		return errors.New("gcs client not initialized")
	}
	if c.bucket == "" {
		return errors.New("gcs bucket not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", c.baseURL, url.PathEscape(c.bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError("gcs object check failed", resp)
	}
	return nil
}

func statusError(prefix string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if len(b) > 0 {
		return fmt.Errorf("%s: %s: %s", prefix, resp.Status, strings.TrimSpace(string(b)))
	}
	return fmt.Errorf("%s: %s", prefix, resp.Status)
}
