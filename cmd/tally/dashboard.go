package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/tally/api"
	"github.com/warp/tally/config"
	"github.com/warp/tally/engine"
	"github.com/warp/tally/engine/store"
	"github.com/warp/tally/factory"
	"golang.org/x/text/language"
)

type dashboardOptions struct {
	Records string
	From    string
	To      string
}

func newDashboardCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &dashboardOptions{}

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Compute a dashboard from a records file",
		Long: `Insert the records of a YAML or JSON document into a fresh tracker and
print the dashboard snapshot as JSON.

The document has the form:
  records:
    - fields: {Timestamp: "2025-03-01 10:00", OrderStatus: Pending}
      slots:
        Services:
          - {category: Painting, value: "15000"}

A rejected record stops the command with its validation error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(opts.Records)
			if err != nil {
				return fmt.Errorf("failed to read records: %w", err)
			}
			return runDashboard(cmd.Context(), cfg, data, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Records, "records", "", "records document (YAML or JSON)")
	cmd.Flags().StringVar(&opts.From, "from", "", "range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "range end (YYYY-MM-DD)")
	cmd.MarkFlagRequired("records")

	return cmd
}

func runDashboard(ctx context.Context, cfg *config.Config, data []byte, opts *dashboardOptions, out io.Writer) error {
	schema, dashboard, err := factory.Resolve(cfg.Engine.Domain, cfg.Engine.SchemaFile)
	if err != nil {
		return err
	}
	raws, err := factory.NewFactory().ParseRecords(data)
	if err != nil {
		return err
	}
	rng, err := engine.NewDateRange(opts.From, opts.To)
	if err != nil {
		return err
	}

	ec := engine.NewContext(schema, store.NewMemory(), engine.WithMaxRecords(cfg.Engine.MaxRecords))
	for i, raw := range raws {
		if _, err := ec.Insert(ctx, raw); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
	}

	tag, err := language.Parse(cfg.Engine.Locale)
	if err != nil {
		return fmt.Errorf("engine.locale: %w", err)
	}
	h := api.NewHandler(ec, dashboard, api.NewFormatter(tag, cfg.Engine.CurrencySymbol))
	snap, err := h.Snapshot(ctx, rng)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
