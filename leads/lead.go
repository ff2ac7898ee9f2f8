package leads

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/tally/engine"
)

// =============================================================================
// LEAD - Typed input for one order row
// =============================================================================

// ServiceLine is one Service/Price pair.
type ServiceLine struct {
	Service Service
	Price   decimal.Decimal
}

// Lead is the typed form of a lead row. Zero values mean "not entered":
// an empty string, a zero time, or an invalid NullDecimal.
type Lead struct {
	Timestamp      time.Time
	CustomerName   string
	Phone          string
	WhatsApp       string
	AlternatePhone string
	Email          string
	City           City
	Area           Area
	Address        string
	BHK            BHK
	SQFT           decimal.NullDecimal

	Services       []ServiceLine
	DiscountAmount decimal.NullDecimal
	PreferredDate  time.Time
	SlotTime       Slot
	Source         Source
	Status         Status
	Notes          string

	VendorName      string
	VendorContact   string
	VendorAlternate string
	ScheduledDate   time.Time
	ScheduledTime   string
	CompletedDate   time.Time

	AdvanceAmount  decimal.NullDecimal
	AdvanceStatus  AdvanceStatus
	PaymentValue   decimal.NullDecimal
	PaymentStatus  PaymentStatus
	PaymentMode    PaymentMode
	RefundAmount   decimal.NullDecimal
	TransactionRef string
}

const (
	timestampLayout = "2006-01-02 15:04"
	dateLayout      = "2006-01-02"
)

// Amount is a shorthand for an entered money value.
func Amount(v int64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromInt(v), Valid: true}
}

// Raw converts the lead to the raw cell form the engine validates. Blank
// inputs are omitted so the record keeps whatever it had before.
func (l Lead) Raw() engine.RawRecord {
	fields := make(map[string]string)
	text := func(name, v string) {
		if v != "" {
			fields[name] = v
		}
	}
	at := func(name string, t time.Time, layout string) {
		if !t.IsZero() {
			fields[name] = t.Format(layout)
		}
	}
	amount := func(name string, d decimal.NullDecimal) {
		if d.Valid {
			fields[name] = d.Decimal.String()
		}
	}

	at(FieldTimestamp, l.Timestamp, timestampLayout)
	text(FieldCustomerName, l.CustomerName)
	text(FieldPhone, l.Phone)
	text(FieldWhatsApp, l.WhatsApp)
	text(FieldAlternatePhone, l.AlternatePhone)
	text(FieldEmail, l.Email)
	text(FieldCity, string(l.City))
	text(FieldArea, string(l.Area))
	text(FieldAddress, l.Address)
	text(FieldBHK, string(l.BHK))
	amount(FieldSQFT, l.SQFT)

	amount(FieldDiscountAmount, l.DiscountAmount)
	at(FieldPreferredDate, l.PreferredDate, dateLayout)
	text(FieldSlotTime, string(l.SlotTime))
	text(FieldOrderSource, string(l.Source))
	text(FieldOrderStatus, string(l.Status))
	text(FieldNotes, l.Notes)

	text(FieldVendorName, l.VendorName)
	text(FieldVendorContact, l.VendorContact)
	text(FieldVendorAlternate, l.VendorAlternate)
	at(FieldScheduledDate, l.ScheduledDate, dateLayout)
	text(FieldScheduledTime, l.ScheduledTime)
	at(FieldCompletedDate, l.CompletedDate, dateLayout)

	amount(FieldAdvanceAmount, l.AdvanceAmount)
	text(FieldAdvanceStatus, string(l.AdvanceStatus))
	amount(FieldPaymentValue, l.PaymentValue)
	text(FieldPaymentStatus, string(l.PaymentStatus))
	text(FieldPaymentMode, string(l.PaymentMode))
	amount(FieldRefundAmount, l.RefundAmount)
	text(FieldTransactionRef, l.TransactionRef)

	raw := engine.RawRecord{Fields: fields}
	if len(l.Services) > 0 {
		entries := make([]engine.RawSubEntry, len(l.Services))
		for i, s := range l.Services {
			entries[i] = engine.RawSubEntry{Category: string(s.Service), Value: s.Price.String()}
		}
		raw.Slots = map[string][]engine.RawSubEntry{SlotServices: entries}
	}
	return raw
}

// =============================================================================
// SAMPLE DATA
// =============================================================================

// Samples returns five demonstration leads, one per common status, dated
// relative to now.
func Samples(now time.Time) []Lead {
	day := func(n int) time.Time { return now.AddDate(0, 0, n) }
	svc := func(s Service, price int64) ServiceLine {
		return ServiceLine{Service: s, Price: decimal.NewFromInt(price)}
	}
	return []Lead{
		{
			Timestamp: day(-5), CustomerName: "Rajesh Kumar", Phone: "9876543210", WhatsApp: "9876543210",
			Email: "rajesh.k@email.com", City: CityBangalore, Area: AreaIndiranagar,
			Address: "123, 12th Main, Indiranagar, Bangalore - 560038", BHK: BHK2, SQFT: Amount(1200),
			Services:       []ServiceLine{svc(ServiceBathroomCleaning, 2000), svc(ServicePestControl, 3500)},
			DiscountAmount: Amount(500),
			PreferredDate:  day(2), SlotTime: SlotMorning10, Source: SourceWebsite, Status: StatusConfirmed,
			VendorName: "Suresh", VendorContact: "9988776655", ScheduledDate: day(2), ScheduledTime: string(SlotMorning10),
			AdvanceAmount: Amount(500), AdvanceStatus: AdvanceReceived,
		},
		{
			Timestamp: day(-3), CustomerName: "Priya Sharma", Phone: "8765432109",
			Email: "priya.s@email.com", City: CityBangalore, Area: AreaHSRLayout,
			Address: "45, Sector 2, HSR Layout, Bangalore - 560102", BHK: BHK3, SQFT: Amount(1800),
			Services:      []ServiceLine{svc(ServiceFullHome, 4500)},
			PreferredDate: day(5), SlotTime: SlotAfternoon2, Source: SourceInstagram, Status: StatusPending,
		},
		{
			Timestamp: day(-7), CustomerName: "Amit Patel", Phone: "7654321098",
			Email: "amit.p@email.com", City: CityBangalore, Area: AreaWhitefield,
			Address: "78, ITPL Road, Whitefield, Bangalore - 560066", BHK: BHK2, SQFT: Amount(1100),
			Services:       []ServiceLine{svc(ServicePainting, 15000), svc(ServicePlumbing, 2000)},
			DiscountAmount: Amount(2000),
			Source:         SourceGoogle, Status: StatusCancelled, Notes: "Price too high",
		},
		{
			Timestamp: day(-2), CustomerName: "Meera Reddy", Phone: "6543210987", WhatsApp: "6543210987",
			Email: "meera.r@email.com", City: CityBangalore, Area: AreaKoramangala,
			Address: "22, 5th Block, Koramangala, Bangalore - 560095", BHK: BHK3, SQFT: Amount(1600),
			Services:      []ServiceLine{svc(ServiceFullHome, 4500)},
			PreferredDate: day(3), SlotTime: SlotMorning8, Source: SourceJustDial, Status: StatusScheduled,
			VendorName: "Ramesh", VendorContact: "9876501234", ScheduledDate: day(3), ScheduledTime: string(SlotMorning8),
			AdvanceAmount: Amount(1000), AdvanceStatus: AdvanceReceived,
		},
		{
			Timestamp: day(-10), CustomerName: "Karthik Nair", Phone: "5432109876",
			Email: "karthik.n@email.com", City: CityBangalore, Area: AreaJPNagar,
			Address: "56, 6th Phase, JP Nagar, Bangalore - 560078", BHK: BHK1, SQFT: Amount(650),
			Services:      []ServiceLine{svc(ServicePlumbing, 1500)},
			PreferredDate: day(-8), SlotTime: SlotEvening4, Source: SourceWebsite, Status: StatusCompleted,
			VendorName: "Vijay", VendorContact: "9123456780", ScheduledDate: day(-8), ScheduledTime: string(SlotEvening4),
			CompletedDate: day(-8),
			AdvanceAmount: Amount(0), AdvanceStatus: AdvanceNil,
			PaymentValue: Amount(1500), PaymentStatus: PaymentReceived, PaymentMode: ModeCash, RefundAmount: Amount(0),
		},
	}
}
