/*
schema.go - Lead tracker schema definition

PURPOSE:
  Declares the order/lead table of a home-services business as an
  engine.SchemaDef. One row is one customer order; the Timestamp column is
  the identity trigger, so a row becomes a record (and receives its ST-0001
  style Order ID) the moment a timestamp is entered.

COLUMNS:
  Customer:  Timestamp, CustomerName, PhoneNumber, WhatsAppNumber,
             AlternatePhone, Email, City, Area, FullAddress, BHK, SQFT
  Services:  slot group of up to 4 service/price pairs, TotalValue
  Order:     DiscountAmount, DiscountedTotal, PreferredDate, SlotTime,
             OrderSource, OrderStatus, Notes
  Vendor:    VendorName, VendorContact, VendorAlternate, ScheduledDate,
             ScheduledTime, CompletedDate
  Payment:   AdvanceAmount, AdvanceStatus, PendingBalance, PaymentValue,
             PaymentStatus, PaymentMode, RefundAmount, InvoiceNumber,
             TransactionRef

DERIVED:
  TotalValue      = sum of service prices, blank until a service is chosen
  DiscountedTotal = TotalValue - DiscountAmount
  PendingBalance  = 0 once paid, else DiscountedTotal - AdvanceAmount
  InvoiceNumber   = INV-0001 style, from the record's sequence number

SEE ALSO:
  - dashboard.go: the lead dashboard built over this schema
  - factory/presets.go: registers this schema as the "leads" preset
*/
package leads

import "github.com/warp/tally/engine"

const (
	exprTotalValue      = `if(count(Services) > 0, coalesce(sum(Services), 0), blank())`
	exprDiscountedTotal = `TotalValue - coalesce(DiscountAmount, 0)`
	exprPendingBalance  = `if(isblank(DiscountedTotal), blank(), if(PaymentStatus == "Received", 0, DiscountedTotal - coalesce(AdvanceAmount, 0)))`
	exprInvoiceNumber   = `seqid("INV")`
)

// SchemaDef returns the lead tracker schema definition.
func SchemaDef() engine.SchemaDef {
	return engine.SchemaDef{
		Name:           "leads",
		KeyPrefix:      KeyPrefix,
		TriggerField:   FieldTimestamp,
		TimestampField: FieldTimestamp,
		StatusField:    FieldOrderStatus,
		Fields: []engine.FieldDef{
			// ===== CUSTOMER =====
			{Name: FieldTimestamp, Type: engine.TypeDate},
			{Name: FieldCustomerName, Type: engine.TypeText},
			{Name: FieldPhone, Type: engine.TypeText},
			{Name: FieldWhatsApp, Type: engine.TypeText},
			{Name: FieldAlternatePhone, Type: engine.TypeText},
			{Name: FieldEmail, Type: engine.TypeText},
			{Name: FieldCity, Type: engine.TypeEnum, Domain: values(Cities), GroupKey: true},
			{Name: FieldArea, Type: engine.TypeEnum, Domain: values(Areas), GroupKey: true},
			{Name: FieldAddress, Type: engine.TypeText},
			{Name: FieldBHK, Type: engine.TypeEnum, Domain: values(BHKs), GroupKey: true},
			{Name: FieldSQFT, Type: engine.TypeNumber},

			// ===== ORDER =====
			{Name: FieldTotalValue, Type: engine.TypeDerived, Expr: exprTotalValue, Result: engine.TypeCurrency},
			{Name: FieldDiscountAmount, Type: engine.TypeCurrency},
			{Name: FieldDiscountedTotal, Type: engine.TypeDerived, Expr: exprDiscountedTotal, Result: engine.TypeCurrency},
			{Name: FieldPreferredDate, Type: engine.TypeDate},
			{Name: FieldSlotTime, Type: engine.TypeEnum, Domain: values(Slots), GroupKey: true},
			{Name: FieldOrderSource, Type: engine.TypeEnum, Domain: values(Sources), GroupKey: true},
			{Name: FieldOrderStatus, Type: engine.TypeEnum, Domain: values(Statuses), Required: true},
			{Name: FieldNotes, Type: engine.TypeText},

			// ===== VENDOR =====
			{Name: FieldVendorName, Type: engine.TypeText},
			{Name: FieldVendorContact, Type: engine.TypeText},
			{Name: FieldVendorAlternate, Type: engine.TypeText},
			{Name: FieldScheduledDate, Type: engine.TypeDate},
			{Name: FieldScheduledTime, Type: engine.TypeText},
			{Name: FieldCompletedDate, Type: engine.TypeDate},

			// ===== PAYMENT =====
			{Name: FieldAdvanceAmount, Type: engine.TypeCurrency},
			{Name: FieldAdvanceStatus, Type: engine.TypeEnum, Domain: values(AdvanceStatuses)},
			{Name: FieldPendingBalance, Type: engine.TypeDerived, Expr: exprPendingBalance, Result: engine.TypeCurrency},
			{Name: FieldPaymentValue, Type: engine.TypeCurrency},
			{Name: FieldPaymentStatus, Type: engine.TypeEnum, Domain: values(PaymentStatuses)},
			{Name: FieldPaymentMode, Type: engine.TypeEnum, Domain: values(PaymentModes), GroupKey: true},
			{Name: FieldRefundAmount, Type: engine.TypeCurrency},
			{Name: FieldInvoiceNumber, Type: engine.TypeDerived, Expr: exprInvoiceNumber, Result: engine.TypeText},
			{Name: FieldTransactionRef, Type: engine.TypeText},
		},
		SlotGroups: []engine.SlotGroupDef{
			{Name: SlotServices, MaxSlots: MaxServices, CategoryDomain: values(Services), ValueType: engine.TypeCurrency},
		},
	}
}

// NewSchema compiles the lead tracker schema. The definition is static, so a
// failure here is a programming error.
func NewSchema() *engine.Schema {
	s, err := engine.NewSchema(SchemaDef())
	if err != nil {
		panic("leads: invalid schema: " + err.Error())
	}
	return s
}
