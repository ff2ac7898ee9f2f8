package mis

import (
	"time"

	"github.com/warp/tally/engine"
)

// =============================================================================
// SAMPLE DATA
// =============================================================================

const dateLayout = "2006-01-02"

func rows(in []map[string]string) []engine.RawRecord {
	out := make([]engine.RawRecord, len(in))
	for i, fields := range in {
		out[i] = engine.RawRecord{Fields: fields}
	}
	return out
}

// IncomeSamples returns a few invoices dated in the days before now.
func IncomeSamples(now time.Time) []engine.RawRecord {
	day := func(n int) string { return now.AddDate(0, 0, n).Format(dateLayout) }
	return rows([]map[string]string{
		{IncomeDate: day(-12), IncomeInvoiceNo: "INV-1001", IncomeCustomer: "Rajesh Kumar",
			IncomeServiceType: string(ServiceDeepCleaning), IncomeProjectType: string(ProjectIndividual),
			IncomeBaseAmount: "4500", IncomeGSTRate: "18%",
			IncomePaymentMode: string(ModeUPI), IncomePaymentStatus: string(StatusReceived)},
		{IncomeDate: day(-8), IncomeInvoiceNo: "INV-1002", IncomeCustomer: "Green Meadows RWA",
			IncomeServiceType: string(ServicePestControl), IncomeProjectType: string(ProjectApartmentBulk),
			IncomeProjectName: "Green Meadows Block C", IncomeBaseAmount: "36000", IncomeGSTRate: "18%",
			IncomePaymentMode: string(ModeBankTransfer), IncomePaymentStatus: string(StatusReceived)},
		{IncomeDate: day(-4), IncomeInvoiceNo: "INV-1003", IncomeCustomer: "Brightdesk Offices",
			IncomeServiceType: string(ServicePainting), IncomeProjectType: string(ProjectCommercial),
			IncomeBaseAmount: "85000", IncomeGSTRate: "18%", IncomePaymentStatus: string(StatusPending)},
		{IncomeDate: day(-1), IncomeInvoiceNo: "INV-1004", IncomeCustomer: "Meera Reddy",
			IncomeServiceType: string(ServiceDeepCleaning), IncomeProjectType: string(ProjectIndividual),
			IncomeBaseAmount: "3999", IncomeGSTRate: "18%",
			IncomePaymentMode: string(ModeCash), IncomePaymentStatus: string(StatusReceived)},
	})
}

// PayrollSamples returns one month of salaries paid at the end of the month
// before now.
func PayrollSamples(now time.Time) []engine.RawRecord {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	paid := first.AddDate(0, 0, -1)
	month := paid.Format("January 2006")
	date := paid.Format(dateLayout)
	return rows([]map[string]string{
		{PayMonth: month, PayEmployeeID: "EMP001", PayEmployeeName: "Suresh", PayDesignation: "Technician",
			PayDepartment: string(DepartmentOperations), PayBasic: "18000", PayHRA: "3600", PayAllowances: "1500",
			PayPaymentDate: date, PayPaymentMode: string(ModeBankTransfer), PayStatus: string(StatusPaid)},
		{PayMonth: month, PayEmployeeID: "EMP002", PayEmployeeName: "Ramesh", PayDesignation: "Technician",
			PayDepartment: string(DepartmentOperations), PayBasic: "15000", PayHRA: "3000", PayAllowances: "1000",
			PayPaymentDate: date, PayPaymentMode: string(ModeUPI), PayStatus: string(StatusPaid)},
		{PayMonth: month, PayEmployeeID: "EMP003", PayEmployeeName: "Anita", PayDesignation: "Coordinator",
			PayDepartment: string(DepartmentOffice), PayBasic: "22000", PayHRA: "6000",
			PayOtherDeductions: "500", PayStatus: string(StatusPending)},
	})
}

// ContractorSamples returns a few contractor payouts dated before now.
func ContractorSamples(now time.Time) []engine.RawRecord {
	day := func(n int) string { return now.AddDate(0, 0, n).Format(dateLayout) }
	return rows([]map[string]string{
		{ContDate: day(-15), ContPaymentID: "PAY-501", ContName: "Vijay Painters", ContPAN: "ABCPV1234K",
			ContServiceType: string(ServicePainting), ContGrossAmount: "40000", ContTDSRate: "1%",
			ContPaymentDate: day(-14), ContPaymentMode: string(ModeBankTransfer),
			ContPaymentStatus: string(StatusPaid), ContTDSDeposited: string(Yes)},
		{ContDate: day(-6), ContPaymentID: "PAY-502", ContName: "Sparkline Electricals", ContPAN: "BXZPS5678L",
			ContServiceType: string(ServiceElectrical), ContGrossAmount: "12500", ContTDSRate: "2%",
			ContPaymentDate: day(-5), ContPaymentMode: string(ModeUPI),
			ContPaymentStatus: string(StatusPaid), ContTDSDeposited: string(No)},
		{ContDate: day(-2), ContPaymentID: "PAY-503", ContName: "Vijay Painters", ContPAN: "ABCPV1234K",
			ContServiceType: string(ServicePainting), ContGrossAmount: "25000", ContTDSRate: "1%",
			ContPaymentStatus: string(StatusOnHold), ContNotes: "Awaiting site sign-off"},
	})
}
