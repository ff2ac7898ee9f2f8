/*
dashboard.go - Lead dashboard definition

PURPOSE:
  Describes the management dashboard over the lead table as an
  engine.DashboardSpec: order statistics, payment and discount summaries,
  source/service/area/payment-mode tables, and the date-range section.

CROSS-CHECKS:
  Total Orders    == order_statistics.Orders TOTAL
  Total Received  == order_statistics.Revenue TOTAL
  Service Revenue == service_performance.Revenue TOTAL
  OrderStatus is required, so every record lands in exactly one status row.

SEE ALSO:
  - schema.go: the fields these aggregations read
  - engine/dashboard.go: DashboardModel and Snapshot.CrossCheck
*/
package leads

import (
	"github.com/shopspring/decimal"
	"github.com/warp/tally/engine"
)

// Table names.
const (
	TableOrderStatistics    = "order_statistics"
	TableSourcePerformance  = "source_performance"
	TableServicePerformance = "service_performance"
	TableAreaPerformance    = "area_performance"
	TablePaymentModes       = "payment_modes"
	TableRangeByStatus      = "range_by_status"
)

// KPI names.
const (
	KPITotalOrders      = "Total Orders"
	KPITotalQuoted      = "Total Quoted"
	KPITotalReceived    = "Total Received"
	KPITotalPending     = "Total Pending"
	KPICashReceived     = "Cash Received"
	KPIUPIReceived      = "UPI Received"
	KPICardGateway      = "Card / Gateway"
	KPITotalAdvance     = "Total Advance"
	KPITotalRefunds     = "Total Refunds"
	KPIServiceRevenue   = "Service Revenue"
	KPIDiscountedOrders = "Orders with Discount"
	KPITotalDiscount    = "Total Discount Given"
	KPIAvgDiscount      = "Avg Discount"

	KPIRangeOrders          = "Orders"
	KPIRangeConfirmed       = "Confirmed"
	KPIRangeCompleted       = "Completed"
	KPIRangePending         = "Pending"
	KPIRangeCancelled       = "Cancelled"
	KPIRangeRevenue         = "Revenue"
	KPIRangePendingPayments = "Pending Payments"
)

// Column names shared by several tables.
const (
	ColOrders  = "Orders"
	ColTotal   = "Total Orders"
	ColRevenue = "Revenue"
)

func received() engine.Predicate {
	return engine.Eq(FieldPaymentStatus, string(PaymentReceived))
}

func paymentPending() engine.Predicate {
	return engine.Eq(FieldPaymentStatus, string(PaymentPending))
}

func status(s ...Status) engine.Predicate {
	tags := make([]engine.Tag, len(s))
	for i, x := range s {
		tags[i] = engine.Tag(x)
	}
	return engine.TagIn(tags...)
}

func statusColumns(statuses ...Status) []engine.Column {
	cols := make([]engine.Column, len(statuses))
	for i, s := range statuses {
		cols[i] = engine.Column{Name: string(s), Acc: engine.CountWhere(status(s))}
	}
	return cols
}

func revenueColumn() engine.Column {
	return engine.Column{Name: ColRevenue, Acc: engine.Sum(FieldPaymentValue, received())}
}

// Dashboard returns the lead dashboard definition.
func Dashboard() engine.DashboardSpec {
	paid := received()
	discounted := engine.GreaterThan(FieldDiscountAmount, decimal.Zero)

	var tables []engine.TableSpec

	// ===== ORDER STATISTICS =====
	tables = append(tables, engine.TableSpec{
		Name:  TableOrderStatistics,
		Group: FieldOrderStatus,
		Columns: []engine.Column{
			{Name: ColOrders, Acc: engine.Count()},
			revenueColumn(),
		},
	})

	// ===== SOURCE / SERVICE / AREA =====
	tables = append(tables, engine.TableSpec{
		Name:  TableSourcePerformance,
		Group: FieldOrderSource,
		Columns: append(append([]engine.Column{{Name: ColTotal, Acc: engine.Count()}},
			statusColumns(StatusConfirmed, StatusCompleted)...), revenueColumn()),
	})
	tables = append(tables, engine.TableSpec{
		Name:  TableServicePerformance,
		Group: SlotServices,
		Columns: append(append([]engine.Column{{Name: ColTotal, Acc: engine.Count()}},
			statusColumns(StatusConfirmed, StatusScheduled, StatusCompleted, StatusPending, StatusCancelled)...),
			// An empty field sums the slot's own price.
			engine.Column{Name: ColRevenue, Acc: engine.Sum("", paid)}),
	})
	tables = append(tables, engine.TableSpec{
		Name:  TableAreaPerformance,
		Group: FieldArea,
		Columns: append(append([]engine.Column{{Name: ColTotal, Acc: engine.Count()}},
			statusColumns(StatusConfirmed, StatusCompleted, StatusPending)...), revenueColumn()),
	})
	tables = append(tables, engine.TableSpec{
		Name:   TablePaymentModes,
		Group:  FieldPaymentMode,
		Filter: paid,
		Columns: []engine.Column{
			{Name: ColOrders, Acc: engine.Count()},
			{Name: "Received", Acc: engine.Sum(FieldPaymentValue, nil)},
		},
	})

	kpis := []engine.KPISpec{
		// ===== ORDERS =====
		{Name: KPITotalOrders, Acc: engine.Count(),
			Reconcile: &engine.ColumnRef{Table: TableOrderStatistics, Column: ColOrders}},

		// ===== PAYMENT SUMMARY =====
		{Name: KPITotalQuoted, Acc: engine.Sum(FieldDiscountedTotal, nil)},
		{Name: KPITotalReceived, Acc: engine.Sum(FieldPaymentValue, paid),
			Reconcile: &engine.ColumnRef{Table: TableOrderStatistics, Column: ColRevenue}},
		{Name: KPITotalPending, Acc: engine.Sum(FieldPaymentValue, paymentPending())},
		{Name: KPICashReceived, Acc: engine.Sum(FieldPaymentValue, engine.And(paid, engine.Eq(FieldPaymentMode, string(ModeCash))))},
		{Name: KPIUPIReceived, Acc: engine.Sum(FieldPaymentValue, engine.And(paid, engine.Eq(FieldPaymentMode, string(ModeUPI))))},
		{Name: KPICardGateway, Acc: engine.Sum(FieldPaymentValue, engine.And(paid,
			engine.In(FieldPaymentMode, string(ModeDebitCard), string(ModePaymentGateway))))},
		{Name: KPITotalAdvance, Acc: engine.Sum(FieldAdvanceAmount, engine.Eq(FieldAdvanceStatus, string(AdvanceReceived)))},
		{Name: KPITotalRefunds, Acc: engine.Sum(FieldRefundAmount, nil)},
		{Name: KPIServiceRevenue, Acc: engine.Sum(FieldTotalValue, paid),
			Reconcile: &engine.ColumnRef{Table: TableServicePerformance, Column: ColRevenue}},

		// ===== DISCOUNT SUMMARY =====
		{Name: KPIDiscountedOrders, Acc: engine.CountWhere(discounted)},
		{Name: KPITotalDiscount, Acc: engine.Sum(FieldDiscountAmount, nil)},
		{Name: KPIAvgDiscount, Acc: engine.Avg(FieldDiscountAmount, discounted)},
	}

	return engine.DashboardSpec{
		Name:   "leads",
		Tables: tables,
		KPIs:   kpis,
		Range: engine.RangeSpec{
			KPIs: []engine.KPISpec{
				{Name: KPIRangeOrders, Acc: engine.Count()},
				{Name: KPIRangeConfirmed, Acc: engine.CountWhere(status(StatusConfirmed))},
				{Name: KPIRangeCompleted, Acc: engine.CountWhere(status(StatusCompleted))},
				{Name: KPIRangePending, Acc: engine.CountWhere(status(StatusPending))},
				{Name: KPIRangeCancelled, Acc: engine.CountWhere(status(StatusCancelled))},
				{Name: KPIRangeRevenue, Acc: engine.Sum(FieldPaymentValue, paid)},
				{Name: KPIRangePendingPayments, Acc: engine.Sum(FieldPaymentValue, paymentPending())},
			},
			Tables: []engine.TableSpec{{
				Name:    TableRangeByStatus,
				Group:   FieldOrderStatus,
				Columns: []engine.Column{{Name: ColOrders, Acc: engine.Count()}, revenueColumn()},
			}},
		},
	}
}
