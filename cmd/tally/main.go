/*
main.go - Application entry point

PURPOSE:
  The tally command. Serves one tracker over HTTP, or computes a dashboard
  or prints a schema from the command line.

COMMANDS:
  serve      Load config, replay the journal, serve the HTTP API
  dashboard  Insert records from a YAML/JSON file and print the snapshot
  schema     Print fields, slot groups and the derivation order

GLOBAL FLAGS:
  --config   Path to a TOML config file (default: ./tally.toml if present)
  --domain   Built-in tracker: leads, income, payroll, contractor
  --schema   YAML/JSON schema document, overrides --domain

ENVIRONMENT:
  Every config key can be set as TALLY_<SECTION>_<KEY>, e.g.
  TALLY_ENGINE_DOMAIN=payroll or TALLY_STORE_PATH=./data/tally.db.

EXAMPLES:
  tally serve --config ./tally.toml
  tally dashboard --domain leads --records ./leads.yaml --from 2025-03-01 --to 2025-03-31
  tally schema --domain payroll --format yaml

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/tally/config"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	Domain     string
	SchemaFile string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "tally",
		Short:         "Schema-driven record tracker with derived fields and dashboards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (TOML)")
	cmd.PersistentFlags().StringVar(&opts.Domain, "domain", "", "built-in tracker (overrides engine.domain)")
	cmd.PersistentFlags().StringVar(&opts.SchemaFile, "schema", "", "schema document (overrides engine.schema_file)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newDashboardCommand(opts))
	cmd.AddCommand(newSchemaCommand(opts))

	return cmd
}

// loadConfig reads the config and applies the tracker flags on top.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.Domain != "" {
		cfg.Engine.Domain = o.Domain
		cfg.Engine.SchemaFile = ""
	}
	if o.SchemaFile != "" {
		cfg.Engine.SchemaFile = o.SchemaFile
	}
	return cfg, nil
}
