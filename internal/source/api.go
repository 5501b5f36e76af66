package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mediumroast/mrcli/api/schemas"
	"github.com/mediumroast/mrcli/internal/retry"
)

// APISource reads the collections from the Mediumroast REST API.
type APISource struct {
	base   *url.URL
	token  string
	client *http.Client
	caller retry.Caller
	logger *zap.Logger
}

var _ schemas.EntitySource = (*APISource)(nil)

// NewAPISource returns a client for the API rooted at baseURL. A nil client uses
// http.DefaultClient.
func NewAPISource(baseURL, token string, client *http.Client, caller retry.Caller, logger *zap.Logger) (*APISource, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	logger = logger.Named("api_source")
	caller.Logger = logger
	return &APISource{base: base, token: token, client: client, caller: caller, logger: logger}, nil
}

// get fetches a collection resource. A 404 is an empty collection.
func (s *APISource) get(ctx context.Context, resource string) ([]byte, error) {
	target := s.base.JoinPath(resource).String()
	var body []byte
	err := s.caller.Do(ctx, "GET "+resource, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("building request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if s.token != "" {
			req.Header.Set("Authorization", "Bearer "+s.token)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			body = nil
			return nil
		case retry.Retryable(resp.StatusCode):
			return fmt.Errorf("GET %s: status %d", resource, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return retry.Permanent(fmt.Errorf("GET %s: unexpected status %d", resource, resp.StatusCode))
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading %s response: %w", resource, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Fetched collection.", zap.String("resource", resource), zap.Int("bytes", len(body)))
	return body, nil
}

func (s *APISource) Companies(ctx context.Context) ([]schemas.Company, error) {
	data, err := s.get(ctx, "companies")
	if err != nil {
		return nil, err
	}
	return decodeCollection[schemas.Company](data, "companies")
}

func (s *APISource) Interactions(ctx context.Context) ([]schemas.Interaction, error) {
	data, err := s.get(ctx, "interactions")
	if err != nil {
		return nil, err
	}
	return decodeCollection[schemas.Interaction](data, "interactions")
}

func (s *APISource) Studies(ctx context.Context) ([]schemas.Study, error) {
	data, err := s.get(ctx, "studies")
	if err != nil {
		return nil, err
	}
	return decodeCollection[schemas.Study](data, "studies")
}
