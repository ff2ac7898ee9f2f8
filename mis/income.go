/*
income.go - Income tracker with GST

PURPOSE:
  One record per invoice raised for a service. GST is computed from the base
  amount and the rate; the dashboard reports service-wise revenue and the
  GST collected for filing.

DERIVED:
  GSTAmount   = BaseAmount * GSTRate
  TotalAmount = BaseAmount + GSTAmount

EXAMPLE:
  BaseAmount 2000, GSTRate 18%  ->  GSTAmount 360, TotalAmount 2360
*/
package mis

import "github.com/warp/tally/engine"

const (
	IncomeDate          = "Date"
	IncomeInvoiceNo     = "InvoiceNo"
	IncomeCustomer      = "CustomerName"
	IncomeServiceType   = "ServiceType"
	IncomeProjectType   = "ProjectType"
	IncomeProjectName   = "ProjectName"
	IncomeBaseAmount    = "BaseAmount"
	IncomeGSTRate       = "GSTRate"
	IncomeGSTAmount     = "GSTAmount"
	IncomeTotalAmount   = "TotalAmount"
	IncomePaymentMode   = "PaymentMode"
	IncomePaymentStatus = "PaymentStatus"
	IncomeNotes         = "Notes"
)

const (
	TableServiceRevenue = "service_revenue"
	TableProjectRevenue = "project_revenue"
	TableIncomeModes    = "income_payment_modes"

	KPIBaseRevenue  = "Base Revenue"
	KPIGSTCollected = "GST Collected"
	KPITotalRevenue = "Total Revenue"
	KPIReceived     = "Received"
	KPIOutstanding  = "Outstanding"
	KPIInvoices     = "Invoices"
)

// IncomeSchemaDef returns the income tracker definition. ServiceType is
// required so service-wise totals reconcile with the overall KPIs.
func IncomeSchemaDef() engine.SchemaDef {
	return engine.SchemaDef{
		Name:           "income",
		KeyPrefix:      "INC",
		TriggerField:   IncomeDate,
		TimestampField: IncomeDate,
		StatusField:    IncomePaymentStatus,
		Fields: []engine.FieldDef{
			{Name: IncomeDate, Type: engine.TypeDate},
			{Name: IncomeInvoiceNo, Type: engine.TypeText},
			{Name: IncomeCustomer, Type: engine.TypeText},
			{Name: IncomeServiceType, Type: engine.TypeEnum, Domain: values(Services), Required: true, GroupKey: true},
			{Name: IncomeProjectType, Type: engine.TypeEnum, Domain: values(ProjectTypes), GroupKey: true},
			{Name: IncomeProjectName, Type: engine.TypeText},
			{Name: IncomeBaseAmount, Type: engine.TypeCurrency},
			{Name: IncomeGSTRate, Type: engine.TypePercent},
			{Name: IncomeGSTAmount, Type: engine.TypeDerived, Expr: "BaseAmount * GSTRate", Result: engine.TypeCurrency},
			{Name: IncomeTotalAmount, Type: engine.TypeDerived, Expr: "BaseAmount + GSTAmount", Result: engine.TypeCurrency},
			{Name: IncomePaymentMode, Type: engine.TypeEnum, Domain: values(IncomeModes), GroupKey: true},
			{Name: IncomePaymentStatus, Type: engine.TypeEnum, Domain: values(IncomeStatuses), Required: true},
			{Name: IncomeNotes, Type: engine.TypeText},
		},
	}
}

func NewIncomeSchema() *engine.Schema { return mustSchema(IncomeSchemaDef()) }

// IncomeDashboard returns the income summary and GST report.
func IncomeDashboard() engine.DashboardSpec {
	revenueColumns := []engine.Column{
		{Name: KPIBaseRevenue, Acc: engine.Sum(IncomeBaseAmount, nil)},
		{Name: KPIGSTCollected, Acc: engine.Sum(IncomeGSTAmount, nil)},
		{Name: KPITotalRevenue, Acc: engine.Sum(IncomeTotalAmount, nil)},
		{Name: KPIInvoices, Acc: engine.Count()},
	}
	byService := func(name string) *engine.ColumnRef {
		return &engine.ColumnRef{Table: TableServiceRevenue, Column: name}
	}
	return engine.DashboardSpec{
		Name: "income",
		Tables: []engine.TableSpec{
			{Name: TableServiceRevenue, Group: IncomeServiceType, Columns: revenueColumns},
			{Name: TableProjectRevenue, Group: IncomeProjectType, Columns: revenueColumns},
			{Name: TableIncomeModes, Group: IncomePaymentMode, Filter: tag(StatusReceived), Columns: []engine.Column{
				{Name: KPIReceived, Acc: engine.Sum(IncomeTotalAmount, nil)},
			}},
		},
		KPIs: []engine.KPISpec{
			{Name: KPIInvoices, Acc: engine.Count(), Reconcile: byService(KPIInvoices)},
			{Name: KPIBaseRevenue, Acc: engine.Sum(IncomeBaseAmount, nil), Reconcile: byService(KPIBaseRevenue)},
			{Name: KPIGSTCollected, Acc: engine.Sum(IncomeGSTAmount, nil), Reconcile: byService(KPIGSTCollected)},
			{Name: KPITotalRevenue, Acc: engine.Sum(IncomeTotalAmount, nil), Reconcile: byService(KPITotalRevenue)},
			{Name: KPIReceived, Acc: engine.Sum(IncomeTotalAmount, tag(StatusReceived))},
			{Name: KPIOutstanding, Acc: engine.Sum(IncomeTotalAmount, tag(StatusPending))},
		},
		Range: engine.RangeSpec{
			KPIs: []engine.KPISpec{
				{Name: KPIInvoices, Acc: engine.Count()},
				{Name: KPITotalRevenue, Acc: engine.Sum(IncomeTotalAmount, nil)},
				{Name: KPIGSTCollected, Acc: engine.Sum(IncomeGSTAmount, nil)},
			},
		},
	}
}
