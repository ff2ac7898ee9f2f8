/*
payroll.go - Employee salary register with statutory deductions

PURPOSE:
  One record per employee per month. Gross pay, provident fund, employee
  state insurance and net pay are derived; deductions are rounded to whole
  rupees the way payslips show them.

DERIVED:
  Gross           = Basic + HRA + Allowances
  PF              = round(Basic * 12%)
  ESI             = round(Gross * 0.75%) while Gross <= 21000, else 0
  TotalDeductions = PF + ESI + OtherDeductions
  NetSalary       = Gross - TotalDeductions

EXAMPLE:
  Basic 15000, HRA 3000, Allowances 1000
  -> Gross 19000, PF 1800, ESI 143 (142.5 rounds up), Net 17057
*/
package mis

import "github.com/warp/tally/engine"

const (
	PayMonth           = "Month"
	PayEmployeeID      = "EmployeeID"
	PayEmployeeName    = "EmployeeName"
	PayDesignation     = "Designation"
	PayDepartment      = "Department"
	PayBasic           = "Basic"
	PayHRA             = "HRA"
	PayAllowances      = "Allowances"
	PayGross           = "Gross"
	PayPF              = "PF"
	PayESI             = "ESI"
	PayOtherDeductions = "OtherDeductions"
	PayTotalDeductions = "TotalDeductions"
	PayNetSalary       = "NetSalary"
	PayPaymentDate     = "PaymentDate"
	PayPaymentMode     = "PaymentMode"
	PayStatus          = "Status"
	PayNotes           = "Notes"

	// ESICeiling is the gross monthly pay above which ESI does not apply.
	ESICeiling = 21000
)

const (
	TablePayrollByDepartment = "payroll_by_department"

	KPIEmployees       = "Employees"
	KPIGrossPayroll    = "Gross Payroll"
	KPIPFDeducted      = "PF Deducted"
	KPIESIDeducted     = "ESI Deducted"
	KPINetPayroll      = "Net Payroll"
	KPISalariesPending = "Salaries Pending"
)

// PayrollSchemaDef returns the salary register definition. A row becomes a
// record once its employee ID is entered; range queries use PaymentDate.
func PayrollSchemaDef() engine.SchemaDef {
	return engine.SchemaDef{
		Name:           "payroll",
		KeyPrefix:      "SAL",
		TriggerField:   PayEmployeeID,
		TimestampField: PayPaymentDate,
		StatusField:    PayStatus,
		Fields: []engine.FieldDef{
			{Name: PayMonth, Type: engine.TypeText, GroupKey: true},
			{Name: PayEmployeeID, Type: engine.TypeText},
			{Name: PayEmployeeName, Type: engine.TypeText},
			{Name: PayDesignation, Type: engine.TypeText, GroupKey: true},
			{Name: PayDepartment, Type: engine.TypeEnum, Domain: values(Departments), Required: true, GroupKey: true},
			{Name: PayBasic, Type: engine.TypeCurrency, Required: true},
			{Name: PayHRA, Type: engine.TypeCurrency},
			{Name: PayAllowances, Type: engine.TypeCurrency},
			{Name: PayGross, Type: engine.TypeDerived, Result: engine.TypeCurrency,
				Expr: "Basic + coalesce(HRA, 0) + coalesce(Allowances, 0)"},
			{Name: PayPF, Type: engine.TypeDerived, Result: engine.TypeCurrency,
				Expr: "round(Basic * 0.12)"},
			{Name: PayESI, Type: engine.TypeDerived, Result: engine.TypeCurrency,
				Expr: "if(Gross <= 21000, round(Gross * 0.0075), 0)"},
			{Name: PayOtherDeductions, Type: engine.TypeCurrency},
			{Name: PayTotalDeductions, Type: engine.TypeDerived, Result: engine.TypeCurrency,
				Expr: "PF + ESI + coalesce(OtherDeductions, 0)"},
			{Name: PayNetSalary, Type: engine.TypeDerived, Result: engine.TypeCurrency,
				Expr: "Gross - TotalDeductions"},
			{Name: PayPaymentDate, Type: engine.TypeDate},
			{Name: PayPaymentMode, Type: engine.TypeEnum, Domain: values(PayrollModes), GroupKey: true},
			{Name: PayStatus, Type: engine.TypeEnum, Domain: values(PayoutStatuses), Required: true},
			{Name: PayNotes, Type: engine.TypeText},
		},
	}
}

func NewPayrollSchema() *engine.Schema { return mustSchema(PayrollSchemaDef()) }

// PayrollDashboard returns the department-wise payroll summary.
func PayrollDashboard() engine.DashboardSpec {
	dept := func(col string) *engine.ColumnRef {
		return &engine.ColumnRef{Table: TablePayrollByDepartment, Column: col}
	}
	return engine.DashboardSpec{
		Name: "payroll",
		Tables: []engine.TableSpec{{
			Name:  TablePayrollByDepartment,
			Group: PayDepartment,
			Columns: []engine.Column{
				{Name: KPIEmployees, Acc: engine.Count()},
				{Name: KPIGrossPayroll, Acc: engine.Sum(PayGross, nil)},
				{Name: KPIPFDeducted, Acc: engine.Sum(PayPF, nil)},
				{Name: KPIESIDeducted, Acc: engine.Sum(PayESI, nil)},
				{Name: KPINetPayroll, Acc: engine.Sum(PayNetSalary, nil)},
			},
		}},
		KPIs: []engine.KPISpec{
			{Name: KPIEmployees, Acc: engine.Count(), Reconcile: dept(KPIEmployees)},
			{Name: KPIGrossPayroll, Acc: engine.Sum(PayGross, nil), Reconcile: dept(KPIGrossPayroll)},
			{Name: KPIPFDeducted, Acc: engine.Sum(PayPF, nil), Reconcile: dept(KPIPFDeducted)},
			{Name: KPIESIDeducted, Acc: engine.Sum(PayESI, nil), Reconcile: dept(KPIESIDeducted)},
			{Name: KPINetPayroll, Acc: engine.Sum(PayNetSalary, nil), Reconcile: dept(KPINetPayroll)},
			{Name: KPISalariesPending, Acc: engine.Sum(PayNetSalary, engine.Not(tag(StatusPaid)))},
		},
		Range: engine.RangeSpec{
			KPIs: []engine.KPISpec{
				{Name: KPIEmployees, Acc: engine.Count()},
				{Name: KPINetPayroll, Acc: engine.Sum(PayNetSalary, nil)},
			},
		},
	}
}
