/*
contractor.go - Contractor payments with TDS

PURPOSE:
  One record per payout to a contractor. Tax deducted at source is computed
  from the gross amount; the dashboard separates TDS already deposited with
  the government from TDS still to be deposited.

DERIVED:
  TDSAmount  = GrossAmount * TDSRate
  NetPayable = GrossAmount - TDSAmount
*/
package mis

import "github.com/warp/tally/engine"

const (
	ContDate          = "Date"
	ContPaymentID     = "PaymentID"
	ContName          = "ContractorName"
	ContPAN           = "ContractorPAN"
	ContServiceType   = "ServiceType"
	ContDescription   = "Description"
	ContGrossAmount   = "GrossAmount"
	ContTDSRate       = "TDSRate"
	ContTDSAmount     = "TDSAmount"
	ContNetPayable    = "NetPayable"
	ContPaymentDate   = "PaymentDate"
	ContPaymentMode   = "PaymentMode"
	ContPaymentStatus = "PaymentStatus"
	ContTDSDeposited  = "TDSDeposited"
	ContNotes         = "Notes"
)

const (
	TableContractorServices = "contractor_services"

	KPIGrossPayments     = "Total Contractor Payments (Gross)"
	KPITDSDeducted       = "Total TDS Deducted"
	KPINetPaid           = "Total Net Paid to Contractors"
	KPITDSDeposited      = "TDS Deposited"
	KPITDSPendingDeposit = "TDS Pending Deposit"
	KPIPayouts           = "Payouts"
)

func ContractorSchemaDef() engine.SchemaDef {
	return engine.SchemaDef{
		Name:           "contractor",
		KeyPrefix:      "CONT",
		TriggerField:   ContDate,
		TimestampField: ContDate,
		StatusField:    ContPaymentStatus,
		Fields: []engine.FieldDef{
			{Name: ContDate, Type: engine.TypeDate},
			{Name: ContPaymentID, Type: engine.TypeText},
			{Name: ContName, Type: engine.TypeText, GroupKey: true},
			{Name: ContPAN, Type: engine.TypeText},
			{Name: ContServiceType, Type: engine.TypeEnum, Domain: values(Services), GroupKey: true},
			{Name: ContDescription, Type: engine.TypeText},
			{Name: ContGrossAmount, Type: engine.TypeCurrency},
			{Name: ContTDSRate, Type: engine.TypePercent},
			{Name: ContTDSAmount, Type: engine.TypeDerived, Expr: "GrossAmount * TDSRate", Result: engine.TypeCurrency},
			{Name: ContNetPayable, Type: engine.TypeDerived, Expr: "GrossAmount - TDSAmount", Result: engine.TypeCurrency},
			{Name: ContPaymentDate, Type: engine.TypeDate},
			{Name: ContPaymentMode, Type: engine.TypeEnum, Domain: values(ContractorModes), GroupKey: true},
			{Name: ContPaymentStatus, Type: engine.TypeEnum, Domain: values(PayoutStatuses), Required: true},
			{Name: ContTDSDeposited, Type: engine.TypeEnum, Domain: values(YesNos)},
			{Name: ContNotes, Type: engine.TypeText},
		},
	}
}

func NewContractorSchema() *engine.Schema { return mustSchema(ContractorSchemaDef()) }

// ContractorDashboard returns the TDS summary.
func ContractorDashboard() engine.DashboardSpec {
	deposited := engine.Eq(ContTDSDeposited, string(Yes))
	return engine.DashboardSpec{
		Name: "contractor",
		Tables: []engine.TableSpec{{
			Name:  TableContractorServices,
			Group: ContServiceType,
			Columns: []engine.Column{
				{Name: KPIPayouts, Acc: engine.Count()},
				{Name: KPIGrossPayments, Acc: engine.Sum(ContGrossAmount, nil)},
				{Name: KPITDSDeducted, Acc: engine.Sum(ContTDSAmount, nil)},
			},
		}},
		KPIs: []engine.KPISpec{
			{Name: KPIGrossPayments, Acc: engine.Sum(ContGrossAmount, nil)},
			{Name: KPITDSDeducted, Acc: engine.Sum(ContTDSAmount, nil)},
			{Name: KPINetPaid, Acc: engine.Sum(ContNetPayable, nil)},
			{Name: KPITDSDeposited, Acc: engine.Sum(ContTDSAmount, deposited)},
			{Name: KPITDSPendingDeposit, Acc: engine.Sum(ContTDSAmount, engine.Not(deposited))},
		},
		Range: engine.RangeSpec{
			KPIs: []engine.KPISpec{
				{Name: KPIPayouts, Acc: engine.Count()},
				{Name: KPITDSDeducted, Acc: engine.Sum(ContTDSAmount, nil)},
			},
		},
	}
}
