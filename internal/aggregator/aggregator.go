// Package aggregator turns one or more bug queries into a ranked frequency
// distribution over a chosen record field.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/danielolaszy/bzstat/internal/logging"
	"github.com/danielolaszy/bzstat/internal/query"
	"github.com/danielolaszy/bzstat/internal/tracker"
	"github.com/danielolaszy/bzstat/pkg/models"
)

// ErrUnknownField is returned when a fetched record lacks the aggregation field.
var ErrUnknownField = errors.New("field not present on bug")

// Options controls authentication for the fetch.
type Options struct {
	// LoginRequired runs every query inside one authenticated session
	LoginRequired bool

	// Credentials used for the session; nil means none were available
	Credentials *query.Credentials

	// Authenticator logs in and out; required when LoginRequired is set
	Authenticator tracker.Authenticator
}

// Aggregator fetches bugs for a fixed set of queries once and derives
// frequency tables, titles and reports from them.
type Aggregator struct {
	searcher tracker.Searcher
	queries  []query.Query
	field    string
	opts     Options

	fetched bool
	bugs    []models.Bug
}

// New creates an Aggregator. Queries are used in declaration order.
func New(searcher tracker.Searcher, queries []query.Query, field string, opts Options) (*Aggregator, error) {
	if searcher == nil {
		return nil, fmt.Errorf("a tracker client is required")
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("at least one query is required")
	}
	if strings.TrimSpace(field) == "" {
		return nil, fmt.Errorf("an aggregation field is required")
	}
	if opts.LoginRequired && opts.Authenticator == nil {
		if auth, ok := searcher.(tracker.Authenticator); ok {
			opts.Authenticator = auth
		} else {
			return nil, fmt.Errorf("login required but the tracker client cannot authenticate")
		}
	}

	return &Aggregator{
		searcher: searcher,
		queries:  append([]query.Query(nil), queries...),
		field:    field,
		opts:     opts,
	}, nil
}

// Field returns the aggregation field.
func (a *Aggregator) Field() string {
	return a.field
}

// Mode reports whether the aggregator combines several queries.
func (a *Aggregator) Mode() query.Mode {
	return query.ModeOf(a.queries)
}

// Bugs returns every bug matched by the queries, concatenated in declaration
// order without de-duplication. The tracker is only queried on the first
// successful call.
func (a *Aggregator) Bugs(ctx context.Context) ([]models.Bug, error) {
	if a.fetched {
		return a.bugs, nil
	}

	var bugs []models.Bug
	run := func(ctx context.Context) error {
		var err error
		bugs, err = a.runQueries(ctx)
		return err
	}

	var err error
	if a.opts.LoginRequired {
		err = tracker.WithSession(ctx, a.opts.Authenticator, a.opts.Credentials, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, err
	}

	a.bugs = bugs
	a.fetched = true
	logging.Info("fetched bugs", "count", len(bugs), "queries", len(a.queries), "mode", a.Mode())
	return a.bugs, nil
}

func (a *Aggregator) runQueries(ctx context.Context) ([]models.Bug, error) {
	multi := a.Mode() == query.Multi

	var bugs []models.Bug
	for i, q := range a.queries {
		if multi {
			logging.Info("running query", "index", i+1, "query", q.String())
		}

		result, err := a.searcher.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		bugs = append(bugs, result...)
	}
	return bugs, nil
}

// Frequencies counts the aggregation field across all bugs, sorted by count
// descending. Values with equal counts keep their first-appearance order.
func (a *Aggregator) Frequencies(ctx context.Context) (models.FrequencyTable, error) {
	bugs, err := a.Bugs(ctx)
	if err != nil {
		return nil, err
	}
	return Count(bugs, a.field)
}

// Count tallies field over bugs. A bug without the field is an error.
func Count(bugs []models.Bug, field string) (models.FrequencyTable, error) {
	index := make(map[string]int)
	var table models.FrequencyTable

	for _, bug := range bugs {
		value, ok := bug.Field(field)
		if !ok {
			return nil, fmt.Errorf("%w: %q missing on bug %s", ErrUnknownField, field, bug.ID)
		}

		if i, seen := index[value]; seen {
			table[i].Count++
			continue
		}
		index[value] = len(table)
		table = append(table, models.Count{Value: value, Count: 1})
	}

	sort.SliceStable(table, func(i, j int) bool {
		return table[i].Count > table[j].Count
	})
	return table, nil
}

// Statuses returns the distinct status filters across queries.
func (a *Aggregator) Statuses() []string {
	return query.Distinct(a.queries, query.FieldStatus)
}

// Products returns the distinct product filters across queries.
func (a *Aggregator) Products() []string {
	return query.Distinct(a.queries, query.FieldProduct)
}

// Title describes the chart, e.g. "NEW, ASSIGNED bugs sorted by Component".
func (a *Aggregator) Title() string {
	return fmt.Sprintf("%s bugs sorted by %s", strings.Join(a.Statuses(), ", "), capitalize(a.field))
}

// ProductLabel is the chart annotation; empty when no query names a product.
func (a *Aggregator) ProductLabel() string {
	return strings.Join(a.Products(), ", ")
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

const bugTemplate = `
BZ %s:
    reported_by: %s
    summary: %s
    status: %s
    qa_contact: %s
    assignee: %s
`

// Output writes one block per bug, in fetch order. Missing fields print empty.
func (a *Aggregator) Output(ctx context.Context, w io.Writer) error {
	bugs, err := a.Bugs(ctx)
	if err != nil {
		return err
	}

	for _, bug := range bugs {
		_, err := fmt.Fprintf(w, bugTemplate,
			bug.ID,
			bug.Get(models.FieldCreator),
			bug.Get(models.FieldSummary),
			bug.Get(models.FieldStatus),
			bug.Get(models.FieldQAContact),
			bug.Get(models.FieldAssignedTo),
		)
		if err != nil {
			return fmt.Errorf("failed to write bug output: %w", err)
		}
	}
	return nil
}
