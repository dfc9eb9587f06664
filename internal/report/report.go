// Package report writes the structured YAML report of a bzstat run.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/danielolaszy/bzstat/pkg/models"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileName is the report written by --report.
const FileName = "bz_report.yaml"

// Metadata describes how the report was produced.
type Metadata struct {
	RunID       string    `yaml:"run_id"`
	Tracker     string    `yaml:"tracker"`
	URL         string    `yaml:"url"`
	Field       string    `yaml:"field"`
	Title       string    `yaml:"title"`
	Product     string    `yaml:"product,omitempty"`
	Queries     []string  `yaml:"queries"`
	GeneratedAt time.Time `yaml:"generated_at"`
	TotalBugs   int       `yaml:"total_bugs"`
}

// BugEntry is a single bug with the known fields it carries.
type BugEntry struct {
	ID     string            `yaml:"id"`
	Fields map[string]string `yaml:",inline"`
}

// Report is the document written to disk.
type Report struct {
	Metadata    Metadata              `yaml:"metadata"`
	Frequencies models.FrequencyTable `yaml:"frequencies"`
	Bugs        []BugEntry            `yaml:"bugs"`
}

// Build assembles a report. Only the known fields present on each bug are kept.
func Build(meta Metadata, table models.FrequencyTable, bugs []models.Bug) *Report {
	meta.TotalBugs = len(bugs)
	if meta.RunID == "" {
		meta.RunID = newRunID()
	}
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}

	entries := make([]BugEntry, 0, len(bugs))
	for _, bug := range bugs {
		fields := make(map[string]string)
		for _, name := range models.KnownFields {
			if name == models.FieldID {
				continue
			}
			if v, ok := bug.Field(name); ok {
				fields[name] = v
			}
		}
		entries = append(entries, BugEntry{ID: bug.ID, Fields: fields})
	}

	if table == nil {
		table = models.FrequencyTable{}
	}

	return &Report{
		Metadata:    meta,
		Frequencies: table,
		Bugs:        entries,
	}
}

// newRunID returns a time-ordered identifier so reports sort by creation.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Write encodes the report as YAML.
func Write(w io.Writer, r *Report) error {
	if r == nil {
		return fmt.Errorf("report is nil")
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// WriteFile writes the report to dir/bz_report.yaml and returns the path.
func WriteFile(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, r); err != nil {
		return "", err
	}
	return path, f.Close()
}
