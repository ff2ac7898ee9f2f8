// Package mis holds the management-information trackers of a services
// business: income with GST, employee payroll with PF/ESI deductions, and
// contractor payments with TDS. Each tracker is a schema plus a dashboard.
package mis

import "github.com/warp/tally/engine"

type Service string

const (
	ServiceDeepCleaning    Service = "Deep Cleaning"
	ServiceRegularCleaning Service = "Regular Cleaning"
	ServicePestControl     Service = "Pest Control"
	ServicePainting        Service = "Painting"
	ServicePlumbing        Service = "Plumbing"
	ServiceElectrical      Service = "Electrical"
	ServiceCarpentry       Service = "Carpentry"
	ServiceACService       Service = "AC Service"
)

var Services = []Service{
	ServiceDeepCleaning, ServiceRegularCleaning, ServicePestControl, ServicePainting,
	ServicePlumbing, ServiceElectrical, ServiceCarpentry, ServiceACService,
}

type ProjectType string

const (
	ProjectIndividual    ProjectType = "Individual"
	ProjectApartmentBulk ProjectType = "Apartment Bulk"
	ProjectCommercial    ProjectType = "Commercial"
)

var ProjectTypes = []ProjectType{ProjectIndividual, ProjectApartmentBulk, ProjectCommercial}

type PaymentMode string

const (
	ModeCash         PaymentMode = "Cash"
	ModeUPI          PaymentMode = "UPI"
	ModeBankTransfer PaymentMode = "Bank Transfer"
	ModeCard         PaymentMode = "Card"
	ModeCheque       PaymentMode = "Cheque"
)

var (
	IncomeModes     = []PaymentMode{ModeCash, ModeUPI, ModeBankTransfer, ModeCard}
	PayrollModes    = []PaymentMode{ModeCash, ModeUPI, ModeBankTransfer, ModeCheque}
	ContractorModes = []PaymentMode{ModeBankTransfer, ModeUPI, ModeCheque}
)

// Status values. Income uses Received/Pending; payroll and contractors use
// Paid/Pending/On Hold.
type Status string

const (
	StatusReceived Status = "Received"
	StatusPending  Status = "Pending"
	StatusPaid     Status = "Paid"
	StatusOnHold   Status = "On Hold"
)

var (
	IncomeStatuses = []Status{StatusReceived, StatusPending}
	PayoutStatuses = []Status{StatusPaid, StatusPending, StatusOnHold}
)

type Department string

const (
	DepartmentOperations Department = "Operations"
	DepartmentOffice     Department = "Office"
)

var Departments = []Department{DepartmentOperations, DepartmentOffice}

// YesNo answers flags such as "TDS deposited".
type YesNo string

const (
	Yes YesNo = "Yes"
	No  YesNo = "No"
)

var YesNos = []YesNo{Yes, No}

func values[T ~string](xs []T) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = string(x)
	}
	return out
}

func mustSchema(def engine.SchemaDef) *engine.Schema {
	s, err := engine.NewSchema(def)
	if err != nil {
		panic("mis: invalid " + def.Name + " schema: " + err.Error())
	}
	return s
}

func tag(s Status) engine.Predicate { return engine.TagIn(engine.Tag(s)) }
