// Package cmd provides the command-line interface for the bzstat CLI tool.
package cmd

import (
	"os"

	"github.com/danielolaszy/bzstat/internal/config"
	"github.com/danielolaszy/bzstat/internal/logging"
	"github.com/spf13/cobra"
)

// rootCmd queries a bug tracker, counts the results by one field and plots them.
var rootCmd = &cobra.Command{
	Use:   "bzstat",
	Short: "Plot bug tracker query results grouped by a field",
	Long: `bzstat runs one or more bug queries against a bug tracker, counts the
matching bugs by a chosen field and renders the counts as a bar chart.

Queries are read from a YAML file holding a list of entries:

  - query:
      product: [Fedora]
      status: [NEW, ASSIGNED]

Results from several entries are concatenated before counting.

Example:
  bzstat --query conf/query.yaml --plot assigned_to --save
  bzstat --noplot --login --credential_file conf/credentials.yaml
  bzstat --tracker jira --url https://jira.example.com --plot component`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}

		logging.SetupLogger(os.Stderr, logging.LogLevel(cfg.LogLevel))

		return newRunner(cmd.OutOrStdout()).run(cmd.Context(), cfg)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.Flags()
	flags.StringP("query", "q", config.DefaultQueryFile, "Path to query yaml file")
	flags.StringP("plot", "p", config.DefaultPlotField,
		"Plot bar chart for bugs found via <query> sorted according to one of: [component, qa_contact, assigned_to, creator]")
	flags.StringP("url", "u", config.DefaultURL, "Bug tracker URL")
	flags.StringP("tracker", "t", config.DefaultTracker, "Bug tracker type: bugzilla, jira or github")
	flags.Bool("save", false, "Save the plot as <plot>.png instead of displaying it")
	flags.Bool("output", false, "Output bug data from query to stdout")
	flags.Bool("noplot", false, "Do not generate any plot (implies --output)")
	flags.Bool("report", false, "Generate a bug yaml file report")
	flags.Bool("login", false,
		"Login to the bug tracker before making query. Required to use e.g. saved searches and to get some hidden fields.")
	flags.String("credential_file", config.DefaultCredentialFile, "Path to credential yaml file")
}
