// Package query loads the declarative bug queries and the optional login
// credentials that drive a bzstat run.
package query

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Search fields with special meaning for titles and chart annotations.
const (
	FieldStatus  = "status"
	FieldProduct = "product"
)

// Query maps search-field names to one or more filter values. A Query is
// immutable once built: accessors return copies.
type Query struct {
	fields map[string][]string
}

// New builds a Query from a field mapping. Empty value lists are dropped.
func New(fields map[string][]string) Query {
	q := Query{fields: make(map[string][]string, len(fields))}
	for k, vs := range fields {
		if len(vs) == 0 {
			continue
		}
		q.fields[k] = append([]string(nil), vs...)
	}
	return q
}

// Values returns the filter values for a field, in declaration order.
func (q Query) Values(field string) []string {
	return append([]string(nil), q.fields[field]...)
}

// Has reports whether the query filters on the given field.
func (q Query) Has(field string) bool {
	_, ok := q.fields[field]
	return ok
}

// Fields returns the filtered field names, sorted.
func (q Query) Fields() []string {
	names := make([]string, 0, len(q.fields))
	for k := range q.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of filtered fields.
func (q Query) Len() int {
	return len(q.fields)
}

// String renders the query as "field=[v1 v2] ..." for logs.
func (q Query) String() string {
	parts := make([]string, 0, len(q.fields))
	for _, name := range q.Fields() {
		parts = append(parts, fmt.Sprintf("%s=%v", name, q.fields[name]))
	}
	return strings.Join(parts, " ")
}

// UnmarshalYAML accepts a mapping whose values are scalars or sequences of
// scalars. A scalar becomes a single-value list; null values are ignored.
func (q *Query) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: query must be a mapping of search fields", node.Line)
	}

	fields := make(map[string][]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]

		switch val.Kind {
		case yaml.ScalarNode:
			if val.Tag == "!!null" {
				continue
			}
			fields[key.Value] = []string{val.Value}
		case yaml.SequenceNode:
			values := make([]string, 0, len(val.Content))
			for _, item := range val.Content {
				if item.Kind != yaml.ScalarNode {
					return fmt.Errorf("line %d: values of %q must be scalars", item.Line, key.Value)
				}
				values = append(values, item.Value)
			}
			fields[key.Value] = values
		default:
			return fmt.Errorf("line %d: unsupported value for %q", val.Line, key.Value)
		}
	}

	*q = New(fields)
	return nil
}

// Mode tells whether a run combines results from several queries.
type Mode int

const (
	// Single is a run with exactly one query.
	Single Mode = iota
	// Multi is a run whose query results are concatenated before aggregation.
	Multi
)

func (m Mode) String() string {
	if m == Multi {
		return "multi"
	}
	return "single"
}

// ModeOf returns the mode for a list of queries.
func ModeOf(queries []Query) Mode {
	if len(queries) > 1 {
		return Multi
	}
	return Single
}

// Distinct collects the values of a field across queries, dropping duplicates
// while keeping first-seen order. Queries without the field contribute nothing.
func Distinct(queries []Query, field string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range queries {
		for _, v := range q.fields[field] {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
