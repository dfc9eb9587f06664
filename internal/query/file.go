package query

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrQueryFileNotFound is returned when the query file does not exist.
	ErrQueryFileNotFound = errors.New("query file not present")
	// ErrInvalidQueryFile is returned when the query file has no usable entries.
	ErrInvalidQueryFile = errors.New("invalid query file")
	// ErrInvalidCredentialFile is returned when the credential file has no login_info.
	ErrInvalidCredentialFile = errors.New("invalid credential file")
)

// Credentials holds the login used for an authenticated tracker session.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type queryEntry struct {
	Query *Query `yaml:"query"`
}

type credentialEntry struct {
	LoginInfo *Credentials `yaml:"login_info"`
}

// LoadFile reads an ordered list of `- query: {...}` entries.
func LoadFile(path string) ([]Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrQueryFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read query file %s: %w", path, err)
	}

	var entries []queryEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrInvalidQueryFile, path, err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w %s: no query entries", ErrInvalidQueryFile, path)
	}

	queries := make([]Query, 0, len(entries))
	for i, entry := range entries {
		if entry.Query == nil {
			return nil, fmt.Errorf("%w %s: entry %d has no query", ErrInvalidQueryFile, path, i+1)
		}
		queries = append(queries, *entry.Query)
	}

	return queries, nil
}

// LoadCredentials reads a `- login_info: {username, password}` file. Callers
// decide whether a failure here is fatal.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file %s: %w", path, err)
	}

	var entries []credentialEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrInvalidCredentialFile, path, err)
	}

	if len(entries) == 0 || entries[0].LoginInfo == nil {
		return nil, fmt.Errorf("%w %s: missing login_info", ErrInvalidCredentialFile, path)
	}

	return entries[0].LoginInfo, nil
}
