// Package github provides a tracker backend that searches GitHub issues.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/danielolaszy/bzstat/internal/logging"
	"github.com/danielolaszy/bzstat/internal/query"
	"github.com/danielolaszy/bzstat/pkg/models"
	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"
)

// DefaultDomain is the public GitHub host.
const DefaultDomain = "github.com"

// perPage caps a single search; pagination is not followed.
const perPage = 100

// qualifiers maps bzstat query fields to GitHub search qualifiers.
var qualifiers = map[string]string{
	models.FieldProduct:    "repo",
	models.FieldComponent:  "label",
	models.FieldAssignedTo: "assignee",
	models.FieldCreator:    "author",
}

// Client encapsulates the GitHub API client. It starts anonymous and switches
// to a token-authenticated client on Login.
type Client struct {
	apiURL     *url.URL
	httpClient *http.Client
	client     *github.Client
	user       string
}

// APIURL returns the REST API root for a GitHub or GitHub Enterprise domain.
func APIURL(domain string) string {
	if domain == "" || domain == DefaultDomain {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// NewClient creates an anonymous GitHub client for domain.
func NewClient(domain string, httpClient *http.Client) (*Client, error) {
	if domain == "" {
		domain = DefaultDomain
	}

	apiURL, err := url.Parse(APIURL(domain))
	if err != nil {
		return nil, fmt.Errorf("invalid github api url: %w", err)
	}

	logging.Debug("github configuration", "domain", domain, "api_url", apiURL.String())

	return newClient(apiURL, httpClient), nil
}

func newClient(apiURL *url.URL, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	c := &Client{apiURL: apiURL, httpClient: httpClient}
	c.client = c.apiClient(httpClient)
	return c
}

func (c *Client) apiClient(hc *http.Client) *github.Client {
	client := github.NewClient(hc)
	client.BaseURL = c.apiURL
	client.UploadURL = c.apiURL
	return client
}

// Login authenticates with a personal access token passed as the password.
// The token is verified by fetching the authenticated user.
func (c *Client) Login(ctx context.Context, username, token string) error {
	if token == "" {
		return fmt.Errorf("github login requires a token")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), ts)
	client := c.apiClient(tc)

	user, resp, err := client.Users.Get(ctx, "")
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		logging.Error("failed to test github token", "error", err, "status_code", status)
		return fmt.Errorf("error testing github token: %w", err)
	}

	if username != "" && !strings.EqualFold(username, user.GetLogin()) {
		logging.Warn("github token belongs to a different user",
			"expected", logging.MaskSensitive(username),
			"actual", logging.MaskSensitive(user.GetLogin()))
	}

	c.client = client
	c.user = user.GetLogin()
	logging.Debug("github authentication successful", "username", logging.MaskSensitive(c.user))
	return nil
}

// Logout drops the authenticated client and returns to anonymous searches.
func (c *Client) Logout(ctx context.Context) error {
	c.client = c.apiClient(c.httpClient)
	c.user = ""
	return nil
}

// Query searches issues matching q.
func (c *Client) Query(ctx context.Context, q query.Query) ([]models.Bug, error) {
	search, err := BuildSearch(q)
	if err != nil {
		return nil, err
	}
	logging.Debug("searching github issues", "query", search)

	result, resp, err := c.client.Search.Issues(ctx, search, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		logging.Error("failed to search github issues", "query", search, "status_code", status, "error", err)
		return nil, fmt.Errorf("failed to search GitHub issues: %w", err)
	}

	if result.GetIncompleteResults() || result.GetTotal() > len(result.Issues) {
		logging.Warn("github search returned a partial result",
			"query", search,
			"returned", len(result.Issues),
			"total", result.GetTotal())
	}

	bugs := make([]models.Bug, 0, len(result.Issues))
	for _, issue := range result.Issues {
		bugs = append(bugs, toBug(issue))
	}
	return bugs, nil
}

// ErrUnsupportedStatus is returned for a status that has no GitHub issue state.
var ErrUnsupportedStatus = errors.New("status has no github equivalent")

// issueStates maps Bugzilla statuses onto GitHub issue states.
var issueStates = map[string]string{
	"open":            "open",
	"new":             "open",
	"assigned":        "open",
	"post":            "open",
	"modified":        "open",
	"on_dev":          "open",
	"on_qa":           "open",
	"reopened":        "open",
	"closed":          "closed",
	"verified":        "closed",
	"resolved":        "closed",
	"release_pending": "closed",
}

// BuildSearch translates a query into GitHub search syntax. Values within a
// field are ORed: repo: qualifiers repeat, the others take a comma list.
// Statuses map onto state:open or state:closed; a status list spanning both
// states adds no qualifier.
func BuildSearch(q query.Query) (string, error) {
	terms := []string{"is:issue"}
	for _, field := range q.Fields() {
		values := q.Values(field)

		switch field {
		case models.FieldStatus:
			state, err := stateQualifier(values)
			if err != nil {
				return "", err
			}
			if state != "" {
				terms = append(terms, state)
			}
		case models.FieldProduct:
			for _, v := range values {
				terms = append(terms, "repo:"+quoteSearch(v))
			}
		default:
			name, ok := qualifiers[field]
			if !ok {
				name = field
			}
			quoted := make([]string, len(values))
			for i, v := range values {
				quoted[i] = quoteSearch(v)
			}
			terms = append(terms, name+":"+strings.Join(quoted, ","))
		}
	}
	return strings.Join(terms, " "), nil
}

func stateQualifier(statuses []string) (string, error) {
	seen := map[string]bool{}
	for _, s := range statuses {
		state, ok := issueStates[strings.ToLower(s)]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedStatus, s)
		}
		seen[state] = true
	}
	if len(seen) != 1 {
		return "", nil
	}
	for state := range seen {
		return "state:" + state, nil
	}
	return "", nil
}

func quoteSearch(v string) string {
	if strings.ContainsAny(v, " \t") {
		return strconv.Quote(v)
	}
	return v
}

// toBug maps a GitHub issue onto the tracker-neutral field names.
func toBug(issue *github.Issue) models.Bug {
	labels := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, label.GetName())
	}

	fields := map[string]string{
		models.FieldCreator:    issue.GetUser().GetLogin(),
		models.FieldSummary:    issue.GetTitle(),
		models.FieldStatus:     issue.GetState(),
		models.FieldAssignedTo: issue.GetAssignee().GetLogin(),
		models.FieldComponent:  strings.Join(labels, ", "),
		models.FieldProduct:    repoFromURL(issue.GetRepositoryURL()),
		"milestone":            issue.GetMilestone().GetTitle(),
		"comments":             strconv.Itoa(issue.GetComments()),
	}
	return models.NewBug(strconv.Itoa(issue.GetNumber()), fields)
}

// repoFromURL turns ".../repos/owner/repo" into "owner/repo".
func repoFromURL(raw string) string {
	parts := strings.Split(strings.TrimSuffix(raw, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}
