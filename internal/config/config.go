// Package config provides centralized configuration management for bzstat.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides of command-line flags,
// e.g. BZSTAT_URL or BZSTAT_CREDENTIAL_FILE.
const EnvPrefix = "BZSTAT"

// Flag defaults.
const (
	DefaultQueryFile      = "conf/query.yaml"
	DefaultPlotField      = "component"
	DefaultURL            = "bugzilla.redhat.com"
	DefaultCredentialFile = "conf/credentials.yaml"
	DefaultTracker        = "bugzilla"
)

// SupportedTrackers lists the accepted --tracker values.
var SupportedTrackers = []string{"bugzilla", "jira", "github"}

// Config holds all configuration parameters for a run.
type Config struct {
	QueryFile      string
	PlotField      string
	URL            string
	Tracker        string
	CredentialFile string

	Save   bool
	Output bool
	NoPlot bool
	Report bool
	Login  bool

	LogLevel string
	GitHub   GitHubConfig
	Jira     JiraConfig
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Domain string
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL string
}

// Load merges flag values, BZSTAT_* environment variables and defaults, in
// that order of precedence. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("query", DefaultQueryFile)
	v.SetDefault("plot", DefaultPlotField)
	v.SetDefault("url", DefaultURL)
	v.SetDefault("tracker", DefaultTracker)
	v.SetDefault("credential_file", DefaultCredentialFile)
	v.SetDefault("log_level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	// Map specific environment variables
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("log_level", "LOG_LEVEL")

	cfg := &Config{
		QueryFile:      v.GetString("query"),
		PlotField:      strings.TrimSpace(v.GetString("plot")),
		URL:            v.GetString("url"),
		Tracker:        strings.ToLower(strings.TrimSpace(v.GetString("tracker"))),
		CredentialFile: v.GetString("credential_file"),
		Save:           v.GetBool("save"),
		Output:         v.GetBool("output"),
		NoPlot:         v.GetBool("noplot"),
		Report:         v.GetBool("report"),
		Login:          v.GetBool("login"),
		LogLevel:       v.GetString("log_level"),
		GitHub: GitHubConfig{
			Domain: v.GetString("github.domain"),
		},
		Jira: JiraConfig{
			URL: v.GetString("jira.url"),
		},
	}

	// --noplot implies --output
	if cfg.NoPlot {
		cfg.Output = true
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that the configuration can drive a run.
func Validate(cfg *Config) error {
	var problems []string

	if cfg.QueryFile == "" {
		problems = append(problems, "query file path is empty")
	}
	if cfg.PlotField == "" {
		problems = append(problems, "plot field is empty")
	}

	supported := false
	for _, t := range SupportedTrackers {
		if cfg.Tracker == t {
			supported = true
			break
		}
	}
	if !supported {
		problems = append(problems, fmt.Sprintf("unsupported tracker %q, expected one of %v", cfg.Tracker, SupportedTrackers))
	}

	if supported && cfg.Tracker == "jira" && !cfg.hasJiraURL() {
		problems = append(problems, "jira tracker needs --url or JIRA_URL")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return nil
}

// hasJiraURL reports whether a JIRA endpoint was given, either as a
// non-default --url or through JIRA_URL.
func (c *Config) hasJiraURL() bool {
	if strings.TrimSpace(c.Jira.URL) != "" {
		return true
	}
	url := strings.TrimSpace(c.URL)
	return url != "" && url != DefaultURL
}

// TrackerURL returns the endpoint for the selected tracker. JIRA falls back to
// JIRA_URL when --url was left at the Bugzilla default.
func (c *Config) TrackerURL() string {
	if c.Tracker == "jira" && c.Jira.URL != "" && c.URL == DefaultURL {
		return c.Jira.URL
	}
	return c.URL
}
