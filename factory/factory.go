package factory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/warp/tally/engine"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// FACTORY
// =============================================================================

// Factory converts documents to engine definitions.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// ParseDocument decodes a YAML or JSON document. Unknown keys are rejected so
// a misspelt option fails loudly instead of being ignored.
func (f *Factory) ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := decodeStrict(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse schema document: %w", err)
	}
	return doc, nil
}

// LoadFile reads and decodes a document from disk.
func (f *Factory) LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return f.ParseDocument(data)
}

// ParseRecords decodes a batch of raw records.
func (f *Factory) ParseRecords(data []byte) ([]engine.RawRecord, error) {
	var doc RecordsDoc
	if err := decodeStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse records document: %w", err)
	}
	return doc.Records, nil
}

// Build compiles the document's schema and checks its dashboard against it.
// A document without a dashboard yields an empty DashboardSpec.
func (f *Factory) Build(doc Document) (*engine.Schema, engine.DashboardSpec, error) {
	def, err := f.SchemaFromDoc(doc.Schema)
	if err != nil {
		return nil, engine.DashboardSpec{}, err
	}
	schema, err := engine.NewSchema(def)
	if err != nil {
		return nil, engine.DashboardSpec{}, err
	}
	if doc.Dashboard == nil {
		return schema, engine.DashboardSpec{Name: def.Name}, nil
	}
	spec, err := f.DashboardFromDoc(*doc.Dashboard)
	if err != nil {
		return nil, engine.DashboardSpec{}, err
	}
	if err := ValidateDashboard(schema, spec); err != nil {
		return nil, engine.DashboardSpec{}, err
	}
	return schema, spec, nil
}

// ValidateDashboard checks every table and KPI of spec against schema
// without any records.
func ValidateDashboard(schema *engine.Schema, spec engine.DashboardSpec) error {
	agg := engine.NewAggregationEngine(schema)
	model := engine.NewDashboardModel(agg, engine.NewRangeQueryEngine(schema, agg), nil)
	_, err := model.Build(spec, nil, engine.DateRange{})
	return err
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// =============================================================================
// SCHEMA CONVERSION
// =============================================================================

var fieldTypes = map[string]engine.FieldType{
	string(engine.TypeText):     engine.TypeText,
	string(engine.TypeNumber):   engine.TypeNumber,
	string(engine.TypeCurrency): engine.TypeCurrency,
	string(engine.TypePercent):  engine.TypePercent,
	string(engine.TypeDate):     engine.TypeDate,
	string(engine.TypeEnum):     engine.TypeEnum,
	string(engine.TypeDerived):  engine.TypeDerived,
}

func parseFieldType(field, s string, allowEmpty bool) (engine.FieldType, error) {
	if s == "" && allowEmpty {
		return "", nil
	}
	t, ok := fieldTypes[s]
	if !ok {
		return "", &engine.SchemaError{Kind: engine.SchemaInvalidField, Field: field,
			Detail: fmt.Sprintf("unknown type %q", s)}
	}
	return t, nil
}

// SchemaFromDoc converts a SchemaDoc. Structural checks (duplicates,
// expressions, cycles) are left to engine.NewSchema.
func (f *Factory) SchemaFromDoc(doc SchemaDoc) (engine.SchemaDef, error) {
	def := engine.SchemaDef{
		Name:           doc.Name,
		KeyPrefix:      doc.KeyPrefix,
		KeyWidth:       doc.KeyWidth,
		TriggerField:   doc.Trigger,
		TimestampField: doc.Timestamp,
		StatusField:    doc.Status,
	}
	for _, fd := range doc.Fields {
		typ, err := parseFieldType(fd.Name, fd.Type, false)
		if err != nil {
			return engine.SchemaDef{}, err
		}
		result, err := parseFieldType(fd.Name, fd.Result, true)
		if err != nil {
			return engine.SchemaDef{}, err
		}
		def.Fields = append(def.Fields, engine.FieldDef{
			Name:     fd.Name,
			Type:     typ,
			Domain:   fd.Domain,
			Expr:     fd.Expr,
			Result:   result,
			Required: fd.Required,
			GroupKey: fd.GroupKey,
		})
	}
	for _, gd := range doc.SlotGroups {
		vt, err := parseFieldType(gd.Name, gd.ValueType, true)
		if err != nil {
			return engine.SchemaDef{}, err
		}
		def.SlotGroups = append(def.SlotGroups, engine.SlotGroupDef{
			Name:           gd.Name,
			MaxSlots:       gd.MaxSlots,
			CategoryDomain: gd.Categories,
			ValueType:      vt,
		})
	}
	return def, nil
}

// SchemaToDoc converts a definition back to document form.
func (f *Factory) SchemaToDoc(def engine.SchemaDef) SchemaDoc {
	doc := SchemaDoc{
		Name:      def.Name,
		KeyPrefix: def.KeyPrefix,
		KeyWidth:  def.KeyWidth,
		Trigger:   def.TriggerField,
		Timestamp: def.TimestampField,
		Status:    def.StatusField,
	}
	for _, fd := range def.Fields {
		doc.Fields = append(doc.Fields, FieldDoc{
			Name:     fd.Name,
			Type:     string(fd.Type),
			Domain:   fd.Domain,
			Expr:     fd.Expr,
			Result:   string(fd.Result),
			Required: fd.Required,
			GroupKey: fd.GroupKey,
		})
	}
	for _, gd := range def.SlotGroups {
		doc.SlotGroups = append(doc.SlotGroups, SlotGroupDoc{
			Name:       gd.Name,
			MaxSlots:   gd.MaxSlots,
			Categories: gd.CategoryDomain,
			ValueType:  string(gd.ValueType),
		})
	}
	return doc
}

// =============================================================================
// DASHBOARD CONVERSION
// =============================================================================

// DashboardFromDoc converts a DashboardDoc. Field references are checked
// later, against a compiled schema.
func (f *Factory) DashboardFromDoc(doc DashboardDoc) (engine.DashboardSpec, error) {
	spec := engine.DashboardSpec{Name: doc.Name}
	var err error
	if spec.Tables, err = parseTables(doc.Tables); err != nil {
		return engine.DashboardSpec{}, err
	}
	if spec.KPIs, err = parseKPIs(doc.KPIs); err != nil {
		return engine.DashboardSpec{}, err
	}
	if spec.Range.Tables, err = parseTables(doc.Range.Tables); err != nil {
		return engine.DashboardSpec{}, err
	}
	if spec.Range.KPIs, err = parseKPIs(doc.Range.KPIs); err != nil {
		return engine.DashboardSpec{}, err
	}
	return spec, nil
}

// TableFromDoc converts a single table, e.g. an ad-hoc aggregation request.
func (f *Factory) TableFromDoc(td TableDoc) (engine.TableSpec, error) {
	tables, err := parseTables([]TableDoc{td})
	if err != nil {
		return engine.TableSpec{}, err
	}
	return tables[0], nil
}

func parseTables(docs []TableDoc) ([]engine.TableSpec, error) {
	var out []engine.TableSpec
	for _, td := range docs {
		filter, err := parsePredicate(td.Filter)
		if err != nil {
			return nil, fmt.Errorf("table %q filter: %w", td.Name, err)
		}
		ts := engine.TableSpec{Name: td.Name, Group: td.Group, Filter: filter}
		for _, cd := range td.Columns {
			acc, err := parseAcc(cd.AccDoc)
			if err != nil {
				return nil, fmt.Errorf("table %q column %q: %w", td.Name, cd.Name, err)
			}
			ts.Columns = append(ts.Columns, engine.Column{Name: cd.Name, Acc: acc})
		}
		out = append(out, ts)
	}
	return out, nil
}

func parseKPIs(docs []KPIDoc) ([]engine.KPISpec, error) {
	var out []engine.KPISpec
	for _, kd := range docs {
		acc, err := parseAcc(kd.AccDoc)
		if err != nil {
			return nil, fmt.Errorf("kpi %q: %w", kd.Name, err)
		}
		filter, err := parsePredicate(kd.Filter)
		if err != nil {
			return nil, fmt.Errorf("kpi %q filter: %w", kd.Name, err)
		}
		ks := engine.KPISpec{Name: kd.Name, Acc: acc, Filter: filter}
		if kd.Reconcile != nil {
			ks.Reconcile = &engine.ColumnRef{Table: kd.Reconcile.Table, Column: kd.Reconcile.Column}
		}
		out = append(out, ks)
	}
	return out, nil
}

func parseAcc(ad AccDoc) (engine.Accumulator, error) {
	where, err := parsePredicate(ad.Where)
	if err != nil {
		return engine.Accumulator{}, err
	}
	switch engine.AccKind(ad.Kind) {
	case engine.AccCount:
		return engine.CountWhere(where), nil
	case engine.AccSum:
		return engine.Sum(ad.Field, where), nil
	case engine.AccAvg:
		return engine.Avg(ad.Field, where), nil
	default:
		return engine.Accumulator{}, fmt.Errorf("%w: unknown accumulator %q", engine.ErrInvalidAggregation, ad.Kind)
	}
}

func parsePredicate(pd *PredicateDoc) (engine.Predicate, error) {
	if pd == nil {
		return nil, nil
	}
	switch pd.Op {
	case "eq":
		return engine.Eq(pd.Field, pd.Value), nil
	case "ne":
		return engine.NotEq(pd.Field, pd.Value), nil
	case "in":
		return engine.In(pd.Field, pd.Values...), nil
	case "has_value":
		return engine.HasValue(pd.Field), nil
	case "gt":
		d, err := decimal.NewFromString(pd.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: gt on %q needs a number, got %q", engine.ErrInvalidAggregation, pd.Field, pd.Value)
		}
		return engine.GreaterThan(pd.Field, d), nil
	case "tag_in":
		tags := make([]engine.Tag, len(pd.Values))
		for i, v := range pd.Values {
			tags[i] = engine.Tag(v)
		}
		return engine.TagIn(tags...), nil
	case "and", "or":
		args, err := parsePredicates(pd.Args)
		if err != nil {
			return nil, err
		}
		if pd.Op == "and" {
			return engine.And(args...), nil
		}
		return engine.Or(args...), nil
	case "not":
		if len(pd.Args) != 1 {
			return nil, fmt.Errorf("%w: not takes exactly one argument", engine.ErrInvalidAggregation)
		}
		arg, err := parsePredicate(&pd.Args[0])
		if err != nil {
			return nil, err
		}
		return engine.Not(arg), nil
	default:
		return nil, fmt.Errorf("%w: unknown predicate %q", engine.ErrInvalidAggregation, pd.Op)
	}
}

func parsePredicates(docs []PredicateDoc) ([]engine.Predicate, error) {
	out := make([]engine.Predicate, 0, len(docs))
	for i := range docs {
		p, err := parsePredicate(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
