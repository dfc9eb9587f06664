// Package jira provides a tracker backend that searches JIRA with JQL.
package jira

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	jira "github.com/andygrunwald/go-jira"
	"github.com/danielolaszy/bzstat/internal/logging"
	"github.com/danielolaszy/bzstat/internal/query"
	"github.com/danielolaszy/bzstat/pkg/models"
)

// maxResults caps a single search; pagination is not followed.
const maxResults = 1000

// jqlFields maps bzstat query fields to their JQL names.
var jqlFields = map[string]string{
	models.FieldProduct:    "project",
	models.FieldComponent:  "component",
	models.FieldAssignedTo: "assignee",
	models.FieldCreator:    "reporter",
	models.FieldStatus:     "status",
}

// Client handles interactions with the JIRA API
type Client struct {
	client   *jira.Client
	loggedIn bool
}

// NewClient creates a JIRA client for baseURL. Without a login the client
// searches anonymously.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("JIRA url is required")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	client, err := jira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, fmt.Errorf("error creating JIRA client: %w", err)
	}

	logging.Debug("jira configuration", "url", baseURL)

	return &Client{client: client}, nil
}

// Login acquires a JIRA session cookie.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if c.client == nil {
		return fmt.Errorf("JIRA client not initialized")
	}

	ok, err := c.client.Authentication.AcquireSessionCookieWithContext(ctx, username, password)
	if err != nil {
		return fmt.Errorf("jira login failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("jira login failed: session not established")
	}

	c.loggedIn = true
	return nil
}

// Logout ends the JIRA session. It is a no-op when not logged in.
func (c *Client) Logout(ctx context.Context) error {
	if c.client == nil || !c.loggedIn {
		return nil
	}
	c.loggedIn = false

	if err := c.client.Authentication.LogoutWithContext(ctx); err != nil {
		return fmt.Errorf("jira logout failed: %w", err)
	}
	return nil
}

// Query runs the JQL built from q.
func (c *Client) Query(ctx context.Context, q query.Query) ([]models.Bug, error) {
	if c.client == nil {
		return nil, fmt.Errorf("JIRA client not initialized")
	}

	jql := BuildJQL(q)
	logging.Debug("searching jira", "jql", jql)

	issues, resp, err := c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{MaxResults: maxResults})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		logging.Error("failed to search jira issues", "jql", jql, "status_code", status, "error", err)
		return nil, fmt.Errorf("failed to search JIRA issues: %w (status: %d)", err, status)
	}

	bugs := make([]models.Bug, 0, len(issues))
	for _, issue := range issues {
		bugs = append(bugs, toBug(issue))
	}
	return bugs, nil
}

// BuildJQL translates a query into JQL. Fields are ANDed, values within a
// field are ORed with "in". Fields are emitted in sorted order.
func BuildJQL(q query.Query) string {
	clauses := make([]string, 0, q.Len())
	for _, field := range q.Fields() {
		name, ok := jqlFields[field]
		if !ok {
			name = field
		}

		values := q.Values(field)
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = quoteJQL(v)
		}

		if len(quoted) == 1 {
			clauses = append(clauses, fmt.Sprintf("%s = %s", name, quoted[0]))
		} else {
			clauses = append(clauses, fmt.Sprintf("%s in (%s)", name, strings.Join(quoted, ", ")))
		}
	}
	return strings.Join(clauses, " AND ")
}

func quoteJQL(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
}

// toBug maps a JIRA issue onto the tracker-neutral field names.
func toBug(issue jira.Issue) models.Bug {
	fields := map[string]string{}
	if f := issue.Fields; f != nil {
		fields[models.FieldSummary] = f.Summary
		fields[models.FieldProduct] = f.Project.Key
		if f.Status != nil {
			fields[models.FieldStatus] = f.Status.Name
		}
		if f.Reporter != nil {
			fields[models.FieldCreator] = userName(f.Reporter)
		}
		if f.Assignee != nil {
			fields[models.FieldAssignedTo] = userName(f.Assignee)
		} else {
			fields[models.FieldAssignedTo] = ""
		}
		if f.Type.Name != "" {
			fields["type"] = f.Type.Name
		}
		if f.Priority != nil {
			fields["priority"] = f.Priority.Name
		}

		components := make([]string, 0, len(f.Components))
		for _, comp := range f.Components {
			if comp != nil {
				components = append(components, comp.Name)
			}
		}
		fields[models.FieldComponent] = strings.Join(components, ", ")
	}
	return models.NewBug(issue.Key, fields)
}

func userName(u *jira.User) string {
	switch {
	case u.Name != "":
		return u.Name
	case u.EmailAddress != "":
		return u.EmailAddress
	default:
		return u.DisplayName
	}
}
