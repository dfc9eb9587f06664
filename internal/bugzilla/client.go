// Package bugzilla provides a client for the Bugzilla REST API.
package bugzilla

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/danielolaszy/bzstat/internal/logging"
	"github.com/danielolaszy/bzstat/internal/query"
	"github.com/danielolaszy/bzstat/pkg/models"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// DefaultHost is the public Bugzilla instance queried when no URL is given.
const DefaultHost = "bugzilla.redhat.com"

var bugsPath = jp.MustParseString("$.bugs[*]")

// APIError is an error reported by the Bugzilla server.
type APIError struct {
	StatusCode int
	Code       int64
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("bugzilla error %d (status %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("bugzilla error (status %d): %s", e.StatusCode, e.Message)
}

// Client encapsulates the Bugzilla REST endpoint and the login token, if any.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
}

// NormalizeURL turns a host name or URL into the REST base URL, e.g.
// "bugzilla.redhat.com" becomes "https://bugzilla.redhat.com/rest".
func NormalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultHost
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid bugzilla url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid bugzilla url %q: missing host", raw)
	}

	path := strings.TrimSuffix(u.Path, "/")
	path = strings.TrimSuffix(path, "/xmlrpc.cgi")
	if !strings.HasSuffix(path, "/rest") {
		path += "/rest"
	}
	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""

	return u, nil
}

// NewClient creates a Bugzilla client. A nil httpClient uses a client with a
// generous timeout.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	baseURL, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}

	logging.Debug("bugzilla configuration", "api_url", baseURL.String())

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// LoggedIn reports whether the client holds a login token.
func (c *Client) LoggedIn() bool {
	return c.token != ""
}

// Login exchanges a username and password for an API token.
func (c *Client) Login(ctx context.Context, username, password string) error {
	params := url.Values{}
	params.Set("login", username)
	params.Set("password", password)

	data, err := c.get(ctx, "login", params)
	if err != nil {
		return fmt.Errorf("bugzilla login failed: %w", err)
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("bugzilla login failed: unexpected response")
	}

	token, _ := obj["token"].(string)
	if token == "" {
		return fmt.Errorf("bugzilla login failed: no token in response")
	}

	c.token = token
	return nil
}

// Logout invalidates the current token. It is a no-op when not logged in.
func (c *Client) Logout(ctx context.Context) error {
	if c.token == "" {
		return nil
	}

	params := url.Values{}
	params.Set("token", c.token)
	c.token = ""

	if _, err := c.get(ctx, "logout", params); err != nil {
		return fmt.Errorf("bugzilla logout failed: %w", err)
	}
	return nil
}

// Query runs a bug search. Every value of every query field is sent as a
// repeated parameter, so Bugzilla ORs values within a field and ANDs fields.
func (c *Client) Query(ctx context.Context, q query.Query) ([]models.Bug, error) {
	params := url.Values{}
	for _, field := range q.Fields() {
		for _, v := range q.Values(field) {
			params.Add(field, v)
		}
	}
	if c.token != "" {
		params.Set("token", c.token)
	}

	logging.Debug("searching bugzilla", "query", q.String())

	data, err := c.get(ctx, "bug", params)
	if err != nil {
		logging.Error("failed to search bugzilla", "query", q.String(), "error", err)
		return nil, fmt.Errorf("failed to search bugzilla: %w", err)
	}

	results := bugsPath.Get(data)
	bugs := make([]models.Bug, 0, len(results))
	for _, r := range results {
		obj, ok := r.(map[string]any)
		if !ok {
			continue
		}
		bugs = append(bugs, toBug(obj))
	}

	logging.Debug("bugzilla search complete", "query", q.String(), "count", len(bugs))
	return bugs, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (any, error) {
	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	data, parseErr := oj.Parse(body)
	if parseErr == nil {
		if apiErr := asAPIError(resp.StatusCode, data); apiErr != nil {
			return nil, apiErr
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if parseErr != nil {
		return nil, fmt.Errorf("invalid json response: %w", parseErr)
	}

	return data, nil
}

// asAPIError extracts {"error": true, "message": ..., "code": ...} responses.
func asAPIError(status int, data any) *APIError {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	if isErr, _ := obj["error"].(bool); !isErr {
		return nil
	}

	apiErr := &APIError{StatusCode: status}
	apiErr.Message, _ = obj["message"].(string)
	switch code := obj["code"].(type) {
	case int64:
		apiErr.Code = code
	case float64:
		apiErr.Code = int64(code)
	}
	return apiErr
}

func toBug(obj map[string]any) models.Bug {
	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := flatten(v); ok {
			fields[k] = s
		}
	}
	id := fields[models.FieldID]
	delete(fields, models.FieldID)
	return models.NewBug(id, fields)
}

// flatten renders a JSON value as a string. Objects are not representable and
// report false; lists are joined with ", ".
func flatten(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int:
		return strconv.Itoa(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := flatten(item); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), true
	case map[string]any:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}
