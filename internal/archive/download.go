// Package archive downloads the source artifacts behind interactions and bundles them
// with a rendered report into a ZIP package.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/retry"
)

// DefaultTimeout bounds a single artifact request.
const DefaultTimeout = 60 * time.Second

// Downloader fetches interaction artifacts from the object store or plain HTTP(S)
// locations.
type Downloader struct {
	endpoint *url.URL
	client   *http.Client
	caller   retry.Caller
	logger   *zap.Logger
}

// NewDownloader resolves s3:// locations against objectEndpoint. An empty endpoint
// limits the downloader to http(s) URLs. A nil transport uses http.DefaultTransport.
func NewDownloader(objectEndpoint string, timeout time.Duration, transport http.RoundTripper, caller retry.Caller, logger *zap.Logger) (*Downloader, error) {
	var endpoint *url.URL
	if objectEndpoint != "" {
		u, err := url.Parse(objectEndpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("invalid object endpoint %q", objectEndpoint)
		}
		endpoint = u
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger = logger.Named("downloader")
	caller.Logger = logger
	return &Downloader{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout, Transport: newDecodingTransport(transport)},
		caller:   caller,
		logger:   logger,
	}, nil
}

// Resolve maps an interaction URL onto the HTTP location it is served from.
func (d *Downloader) Resolve(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid artifact url %q", schemas.ErrMalformedInput, raw)
	}
	switch u.Scheme {
	case "http", "https":
		return u.String(), nil
	case "s3":
		if d.endpoint == nil {
			return "", fmt.Errorf("cannot resolve %s: no object endpoint configured", raw)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return "", fmt.Errorf("%w: artifact url %q needs a bucket and a key", schemas.ErrMalformedInput, raw)
		}
		return d.endpoint.JoinPath(u.Host, key).String(), nil
	default:
		return "", fmt.Errorf("%w: unsupported artifact url scheme %q", schemas.ErrMalformedInput, u.Scheme)
	}
}

// Fetch downloads and decodes the artifact at raw.
func (d *Downloader) Fetch(ctx context.Context, raw string) ([]byte, error) {
	target, err := d.Resolve(raw)
	if err != nil {
		return nil, err
	}

	var body []byte
	err = d.caller.Do(ctx, "fetch "+target, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		resp, err := d.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return retry.Permanent(fmt.Errorf("artifact %s: %w", raw, schemas.ErrNotFound))
		case retry.Retryable(resp.StatusCode):
			return fmt.Errorf("artifact %s: status %d", raw, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return retry.Permanent(fmt.Errorf("artifact %s: unexpected status %d", raw, resp.StatusCode))
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	d.logger.Debug("Fetched artifact.", zap.String("url", target), zap.Int("bytes", len(body)))
	return body, nil
}

// ArtifactName is the file name an artifact is stored under inside a package.
func ArtifactName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	return path.Base(u.Path)
}
