// Package models defines data structures shared across the application.
package models

// Field names every tracker backend populates when the tracker has them.
const (
	FieldID         = "id"
	FieldCreator    = "creator"
	FieldSummary    = "summary"
	FieldStatus     = "status"
	FieldQAContact  = "qa_contact"
	FieldAssignedTo = "assigned_to"
	FieldComponent  = "component"
	FieldProduct    = "product"
)

// KnownFields lists the fields shown in reports, in display order.
var KnownFields = []string{
	FieldID,
	FieldCreator,
	FieldSummary,
	FieldStatus,
	FieldQAContact,
	FieldAssignedTo,
	FieldComponent,
	FieldProduct,
}

// Bug is a single record returned by a bug tracker search.
type Bug struct {
	// ID is the tracker's identifier for the bug (e.g., "1234567" or "PROJ-12")
	ID string

	// Fields holds every attribute the tracker returned, flattened to strings
	Fields map[string]string
}

// NewBug creates a Bug, copying fields so the record stays read-only for its owner.
func NewBug(id string, fields map[string]string) Bug {
	copied := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		copied[k] = v
	}
	copied[FieldID] = id
	return Bug{ID: id, Fields: copied}
}

// Field returns the named attribute and whether the tracker returned it.
func (b Bug) Field(name string) (string, bool) {
	if name == FieldID {
		return b.ID, true
	}
	v, ok := b.Fields[name]
	return v, ok
}

// Get returns the named attribute, or an empty string when it is absent.
func (b Bug) Get(name string) string {
	v, _ := b.Field(name)
	return v
}

// Has reports whether the named attribute is present.
func (b Bug) Has(name string) bool {
	_, ok := b.Field(name)
	return ok
}

// Count is a single row of a FrequencyTable.
type Count struct {
	Value string `yaml:"value"`
	Count int    `yaml:"count"`
}

// FrequencyTable is an ordered list of field values and their occurrence counts,
// sorted by count descending.
type FrequencyTable []Count

// Positions returns the x-axis positions [0, len) for charting.
func (t FrequencyTable) Positions() []int {
	xs := make([]int, len(t))
	for i := range t {
		xs[i] = i
	}
	return xs
}

// Values returns the field values in table order.
func (t FrequencyTable) Values() []string {
	vs := make([]string, len(t))
	for i, c := range t {
		vs[i] = c.Value
	}
	return vs
}

// Counts returns the counts in table order.
func (t FrequencyTable) Counts() []int {
	cs := make([]int, len(t))
	for i, c := range t {
		cs[i] = c.Count
	}
	return cs
}

// Total returns the sum of all counts.
func (t FrequencyTable) Total() int {
	total := 0
	for _, c := range t {
		total += c.Count
	}
	return total
}
