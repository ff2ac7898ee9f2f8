package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/warp/tally/config"
	"github.com/warp/tally/engine"
	"github.com/warp/tally/factory"
	"gopkg.in/yaml.v3"
)

func newSchemaCommand(rootOpts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the active schema",
		Long: `Print the fields, slot groups and derivation order of the active schema.

With --format yaml the schema is printed as a document that --schema (or
engine.schema_file) accepts, which is the usual starting point for a custom
tracker.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			switch format {
			case "text":
				return runSchemaText(cfg, cmd.OutOrStdout())
			case "yaml":
				return runSchemaYAML(cfg, cmd.OutOrStdout())
			default:
				return fmt.Errorf("invalid format %q: must be text or yaml", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text|yaml)")
	return cmd
}

func runSchemaText(cfg *config.Config, out io.Writer) error {
	schema, _, err := factory.Resolve(cfg.Engine.Domain, cfg.Engine.SchemaFile)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Schema:  %s\n", schema.Name())
	fmt.Fprintf(out, "Key:     %s\n", schema.FormatKey(1))
	fmt.Fprintf(out, "Trigger: %s\n", schema.TriggerField())
	if s := schema.StatusField(); s != "" {
		fmt.Fprintf(out, "Status:  %s\n", s)
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tTYPE\tDETAIL")
	for _, f := range schema.Fields() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, fieldType(f), fieldDetail(f))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if groups := schema.SlotGroups(); len(groups) > 0 {
		fmt.Fprintln(out)
		for _, g := range groups {
			fmt.Fprintf(out, "Slots %s: %d x %s (%s)\n", g.Name, g.MaxSlots, g.ValueType, strings.Join(g.CategoryDomain, ", "))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Derivation order:")
	for i, f := range schema.DerivedOrder() {
		fmt.Fprintf(out, "  %d. %s = %s\n", i+1, f.Name, f.Compiled())
	}
	return nil
}

func fieldType(f *engine.Field) string {
	if f.IsDerived() {
		return "derived -> " + string(f.ValueType())
	}
	return string(f.Type)
}

func fieldDetail(f *engine.Field) string {
	var parts []string
	if f.Required {
		parts = append(parts, "required")
	}
	if f.GroupKey {
		parts = append(parts, "group key")
	}
	if len(f.Domain) > 0 {
		parts = append(parts, "["+strings.Join(f.Domain, " | ")+"]")
	}
	return strings.Join(parts, ", ")
}

func runSchemaYAML(cfg *config.Config, out io.Writer) error {
	var doc factory.Document
	if cfg.Engine.SchemaFile != "" {
		var err error
		if doc, err = factory.NewFactory().LoadFile(cfg.Engine.SchemaFile); err != nil {
			return err
		}
	} else {
		p, err := factory.LookupPreset(cfg.Engine.Domain)
		if err != nil {
			return err
		}
		doc = p.Document()
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
