// Package nerdgraph is a thin client for the create-style NerdGraph
// mutations this plugin issues: alert policies, synthetics monitors, NRQL
// conditions, notification destinations and channels, and alert workflows.
//
// The client performs one authenticated HTTP call per operation and never
// retries. Provisioning calls are not idempotent on the vendor side, so a
// failed call is surfaced to the caller as-is.
package nerdgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/newrelic/newrelic-client-go/pkg/region"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 30 * time.Second

// APIError is returned for any NerdGraph response that does not carry the
// requested mutation result: a non-2xx status, a GraphQL error payload, a
// transport failure or a body that cannot be parsed.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("newrelic api: %s", e.Message)
	}
	return fmt.Sprintf("newrelic api: %d: %s", e.StatusCode, e.Message)
}

// Client issues GraphQL mutations against the region-specific NerdGraph
// endpoint, scoped to a single account.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	accountID  int
	log        *logrus.Logger
}

// Option adjusts a Client during construction.
type Option func(*Client)

// WithEndpoint overrides the region-derived NerdGraph endpoint.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger replaces the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a Client bound to one account and region. regionCode must
// name a known New Relic region.
func New(apiKey string, accountID int, regionCode string, opts ...Option) (*Client, error) {
	name, err := region.Parse(regionCode)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown region %q", regionCode)
	}
	reg, err := region.Get(name)
	if err != nil {
		return nil, err
	}

	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		endpoint:   reg.NerdGraphURL(),
		apiKey:     apiKey,
		accountID:  accountID,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// mutationError is the embedded error shape some mutations return next to
// their payload instead of the top-level errors array.
type mutationError struct {
	Description string `json:"description"`
	Type        string `json:"type"`
}

// do posts one GraphQL document and decodes the response's data payload
// into dest.
func (c *Client) do(ctx context.Context, query string, variables map[string]interface{}, dest interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return errors.Wrap(err, "encoding nerdgraph request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building nerdgraph request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var gresp graphQLResponse
	if err := json.Unmarshal(raw, &gresp); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response body: %v", err)}
	}
	if len(gresp.Errors) > 0 {
		msgs := make([]string, len(gresp.Errors))
		for i, e := range gresp.Errors {
			msgs[i] = e.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.Join(msgs, "; ")}
	}

	if dest != nil {
		if err := json.Unmarshal(gresp.Data, dest); err != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response body: %v", err)}
		}
	}
	return nil
}

func (c *Client) mutationFailed(name string, errs []mutationError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = fmt.Sprintf("%s: %s", e.Type, e.Description)
	}
	return &APIError{
		StatusCode: http.StatusOK,
		Message:    fmt.Sprintf("%s: %s", name, strings.Join(msgs, "; ")),
	}
}
