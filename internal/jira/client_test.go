package jira

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	jira "github.com/andygrunwald/go-jira"
	"github.com/danielolaszy/bzstat/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", nil)
	assert.Error(t, err)

	client, err := NewClient("issues.example.com", nil)
	require.NoError(t, err)
	baseURL := client.client.GetBaseURL()
	assert.Equal(t, "https://issues.example.com/", baseURL.String())
}

func TestBuildJQL(t *testing.T) {
	testCases := []struct {
		name     string
		fields   map[string][]string
		expected string
	}{
		{
			name:     "Single values",
			fields:   map[string][]string{"product": {"PROJ"}, "status": {"Open"}},
			expected: `project = "PROJ" AND status = "Open"`,
		},
		{
			name:     "Multiple values use in",
			fields:   map[string][]string{"status": {"Open", "In Progress"}},
			expected: `status in ("Open", "In Progress")`,
		},
		{
			name:     "Mapped and pass-through fields",
			fields:   map[string][]string{"assigned_to": {"bob"}, "creator": {"alice"}, "labels": {"triage"}},
			expected: `assignee = "bob" AND reporter = "alice" AND labels = "triage"`,
		},
		{
			name:     "Quotes are escaped",
			fields:   map[string][]string{"component": {`Say "hi"`}},
			expected: `component = "Say \"hi\""`,
		},
		{
			name:     "Empty query",
			fields:   nil,
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, BuildJQL(query.New(tc.fields)))
		})
	}
}

func TestToBug(t *testing.T) {
	issue := jira.Issue{
		Key: "PROJ-12",
		Fields: &jira.IssueFields{
			Summary:  "Login page broken",
			Project:  jira.Project{Key: "PROJ"},
			Status:   &jira.Status{Name: "Open"},
			Reporter: &jira.User{EmailAddress: "alice@example.com"},
			Components: []*jira.Component{
				{Name: "Auth"},
				{Name: "UI"},
			},
		},
	}

	bug := toBug(issue)
	assert.Equal(t, "PROJ-12", bug.ID)
	assert.Equal(t, "Login page broken", bug.Get("summary"))
	assert.Equal(t, "PROJ", bug.Get("product"))
	assert.Equal(t, "Open", bug.Get("status"))
	assert.Equal(t, "alice@example.com", bug.Get("creator"))
	assert.Equal(t, "Auth, UI", bug.Get("component"))
	assert.True(t, bug.Has("assigned_to"), "unassigned issues still carry the field")
	assert.False(t, bug.Has("qa_contact"))
}

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)
		assert.Equal(t, `project = "PROJ"`, r.URL.Query().Get("jql"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"startAt": 0, "maxResults": 1000, "total": 2, "issues": [
			{"id": "1", "key": "PROJ-1", "fields": {"summary": "one", "status": {"name": "Open"}, "components": [{"name": "Core"}]}},
			{"id": "2", "key": "PROJ-2", "fields": {"summary": "two", "status": {"name": "Done"}, "components": [{"name": "Core"}]}}
		]}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	bugs, err := client.Query(context.Background(), query.New(map[string][]string{"product": {"PROJ"}}))
	require.NoError(t, err)
	require.Len(t, bugs, 2)
	assert.Equal(t, "PROJ-1", bugs[0].ID)
	assert.Equal(t, "Core", bugs[1].Get("component"))
	assert.Equal(t, "Done", bugs[1].Get("status"))
}

func TestQueryNotInitialized(t *testing.T) {
	client := &Client{}

	_, err := client.Query(context.Background(), query.New(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")

	assert.NoError(t, client.Logout(context.Background()))
}
