package tracker

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/danielolaszy/bzstat/internal/bugzilla"
	"github.com/danielolaszy/bzstat/internal/github"
	"github.com/danielolaszy/bzstat/internal/jira"
)

// Kind names a supported tracker backend.
type Kind string

const (
	// KindBugzilla talks to the Bugzilla REST API.
	KindBugzilla Kind = "bugzilla"
	// KindJira talks to a JIRA server.
	KindJira Kind = "jira"
	// KindGitHub searches GitHub issues.
	KindGitHub Kind = "github"
)

// Kinds lists every supported backend.
var Kinds = []Kind{KindBugzilla, KindJira, KindGitHub}

// ParseKind validates a backend name.
func ParseKind(s string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Kinds {
		if k == kind {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unsupported tracker %q, expected one of %v", s, Kinds)
}

// Options configures backend construction.
type Options struct {
	// GitHubDomain selects a GitHub Enterprise host; empty means github.com
	GitHubDomain string

	// HTTPClient overrides the transport used by every backend
	HTTPClient *http.Client
}

// New creates the tracker client for kind pointed at url.
func New(kind Kind, url string, opts Options) (Client, error) {
	var (
		client Client
		err    error
	)

	switch kind {
	case KindBugzilla:
		client, err = bugzilla.NewClient(url, opts.HTTPClient)
	case KindJira:
		client, err = jira.NewClient(url, opts.HTTPClient)
	case KindGitHub:
		client, err = github.NewClient(opts.GitHubDomain, opts.HTTPClient)
	default:
		return nil, fmt.Errorf("unsupported tracker %q", kind)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", kind, err)
	}
	return client, nil
}
