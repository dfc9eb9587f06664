package report

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/danielolaszy/bzstat/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sample() *Report {
	bugs := []models.Bug{
		models.NewBug("1", map[string]string{"component": "Core", "status": "NEW", "cf_internal": "x"}),
		models.NewBug("2", map[string]string{"component": "UI"}),
	}
	table := models.FrequencyTable{{Value: "Core", Count: 1}, {Value: "UI", Count: 1}}

	return Build(Metadata{
		Tracker:     "bugzilla",
		URL:         "https://bugzilla.example.com/rest",
		Field:       "component",
		Title:       "NEW bugs sorted by Component",
		Product:     "Widget",
		Queries:     []string{"product=[Widget] status=[NEW]"},
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}, table, bugs)
}

func TestBuild(t *testing.T) {
	r := sample()

	assert.Equal(t, 2, r.Metadata.TotalBugs)
	require.Len(t, r.Bugs, 2)
	assert.Equal(t, map[string]string{"component": "Core", "status": "NEW"}, r.Bugs[0].Fields, "only known fields are kept")
	assert.Equal(t, "2", r.Bugs[1].ID)
}

func TestBuildDefaults(t *testing.T) {
	r := Build(Metadata{}, nil, nil)
	assert.False(t, r.Metadata.GeneratedAt.IsZero())
	assert.Len(t, r.Metadata.RunID, 36)
	assert.NotNil(t, r.Frequencies)
	assert.Empty(t, r.Bugs)
}

func TestWriteRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample()))

	out := buf.String()
	assert.Contains(t, out, "tracker: bugzilla")
	assert.Contains(t, out, "- value: Core\n    count: 1")
	assert.Contains(t, out, "- id: \"1\"")

	var decoded Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sample().Frequencies, decoded.Frequencies)
	assert.Equal(t, "Core", decoded.Bugs[0].Fields["component"])
}

func TestBuildKeepsRunID(t *testing.T) {
	r := Build(Metadata{RunID: "run-1"}, nil, nil)
	assert.Equal(t, "run-1", r.Metadata.RunID)

	a, b := Build(Metadata{}, nil, nil), Build(Metadata{}, nil, nil)
	assert.NotEqual(t, a.Metadata.RunID, b.Metadata.RunID)
}

func TestWriteNil(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, nil))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFile(dir, sample())
	require.NoError(t, err)
	assert.Equal(t, FileName, path[len(dir)+1:])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "field: component")
}
