package factory

import (
	"fmt"
	"sort"

	"github.com/warp/tally/engine"
	"github.com/warp/tally/leads"
	"github.com/warp/tally/mis"
)

// =============================================================================
// PRESETS - Built-in trackers selectable by name
// =============================================================================

// Preset is a named built-in tracker.
type Preset struct {
	Name        string
	Description string
	Schema      func() engine.SchemaDef
	Dashboard   func() engine.DashboardSpec
}

var presets = map[string]Preset{
	"leads": {
		Name:        "leads",
		Description: "Home-services lead and order tracker",
		Schema:      leads.SchemaDef,
		Dashboard:   leads.Dashboard,
	},
	"income": {
		Name:        "income",
		Description: "Income tracker with GST",
		Schema:      mis.IncomeSchemaDef,
		Dashboard:   mis.IncomeDashboard,
	},
	"payroll": {
		Name:        "payroll",
		Description: "Employee salaries with PF and ESI deductions",
		Schema:      mis.PayrollSchemaDef,
		Dashboard:   mis.PayrollDashboard,
	},
	"contractor": {
		Name:        "contractor",
		Description: "Contractor payments with TDS",
		Schema:      mis.ContractorSchemaDef,
		Dashboard:   mis.ContractorDashboard,
	},
}

// LookupPreset returns the preset registered under name.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown domain %q (available: %v)", name, PresetNames())
	}
	return p, nil
}

// PresetNames lists the registered presets in name order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Document renders the preset's schema as a document, e.g. as a starting
// point for a custom schema file.
func (p Preset) Document() Document {
	return Document{Schema: NewFactory().SchemaToDoc(p.Schema())}
}

// Resolve picks the schema and dashboard to run: the document at schemaFile
// when given, otherwise the named preset.
func Resolve(domain, schemaFile string) (*engine.Schema, engine.DashboardSpec, error) {
	f := NewFactory()
	if schemaFile != "" {
		doc, err := f.LoadFile(schemaFile)
		if err != nil {
			return nil, engine.DashboardSpec{}, err
		}
		return f.Build(doc)
	}
	p, err := LookupPreset(domain)
	if err != nil {
		return nil, engine.DashboardSpec{}, err
	}
	schema, err := engine.NewSchema(p.Schema())
	if err != nil {
		return nil, engine.DashboardSpec{}, fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return schema, p.Dashboard(), nil
}
