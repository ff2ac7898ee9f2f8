// Package leads implements the home-services lead tracker on top of the
// engine: enum domains, the lead schema, and the lead dashboard.
package leads

// =============================================================================
// FIELD NAMES
// =============================================================================

const (
	FieldTimestamp       = "Timestamp"
	FieldCustomerName    = "CustomerName"
	FieldPhone           = "PhoneNumber"
	FieldWhatsApp        = "WhatsAppNumber"
	FieldAlternatePhone  = "AlternatePhone"
	FieldEmail           = "Email"
	FieldCity            = "City"
	FieldArea            = "Area"
	FieldAddress         = "FullAddress"
	FieldBHK             = "BHK"
	FieldSQFT            = "SQFT"
	FieldTotalValue      = "TotalValue"
	FieldDiscountAmount  = "DiscountAmount"
	FieldDiscountedTotal = "DiscountedTotal"
	FieldPreferredDate   = "PreferredDate"
	FieldSlotTime        = "SlotTime"
	FieldOrderSource     = "OrderSource"
	FieldOrderStatus     = "OrderStatus"
	FieldNotes           = "Notes"
	FieldVendorName      = "VendorName"
	FieldVendorContact   = "VendorContact"
	FieldVendorAlternate = "VendorAlternate"
	FieldScheduledDate   = "ScheduledDate"
	FieldScheduledTime   = "ScheduledTime"
	FieldCompletedDate   = "CompletedDate"
	FieldAdvanceAmount   = "AdvanceAmount"
	FieldAdvanceStatus   = "AdvanceStatus"
	FieldPendingBalance  = "PendingBalance"
	FieldPaymentValue    = "PaymentValue"
	FieldPaymentStatus   = "PaymentStatus"
	FieldPaymentMode     = "PaymentMode"
	FieldRefundAmount    = "RefundAmount"
	FieldInvoiceNumber   = "InvoiceNumber"
	FieldTransactionRef  = "TransactionRef"

	// SlotServices is the slot group of up to four service/price pairs.
	SlotServices = "Services"
	MaxServices  = 4

	KeyPrefix     = "ST"
	InvoicePrefix = "INV"
)

// =============================================================================
// ENUM DOMAINS - Declaration order is the dashboard row order
// =============================================================================

type City string

const (
	CityBangalore City = "Bangalore"
	CityMumbai    City = "Mumbai"
	CityDelhi     City = "Delhi"
	CityHyderabad City = "Hyderabad"
	CityChennai   City = "Chennai"
	CityPune      City = "Pune"
	CityOther     City = "Other"
)

var Cities = []City{CityBangalore, CityMumbai, CityDelhi, CityHyderabad, CityChennai, CityPune, CityOther}

type Area string

const (
	AreaIndiranagar    Area = "Indiranagar"
	AreaKoramangala    Area = "Koramangala"
	AreaHSRLayout      Area = "HSR Layout"
	AreaWhitefield     Area = "Whitefield"
	AreaJPNagar        Area = "JP Nagar"
	AreaBTMLayout      Area = "BTM Layout"
	AreaElectronicCity Area = "Electronic City"
	AreaMGRoad         Area = "MG Road"
	AreaMarathahalli   Area = "Marathahalli"
	AreaBanashankari   Area = "Banashankari"
	AreaOther          Area = "Other"
)

var Areas = []Area{
	AreaIndiranagar, AreaKoramangala, AreaHSRLayout, AreaWhitefield, AreaJPNagar, AreaBTMLayout,
	AreaElectronicCity, AreaMGRoad, AreaMarathahalli, AreaBanashankari, AreaOther,
}

type BHK string

const (
	BHK1             BHK = "1BHK"
	BHK2             BHK = "2BHK"
	BHK3             BHK = "3BHK"
	BHK4             BHK = "4BHK"
	BHK4Plus         BHK = "4+BHK"
	BHKNotApplicable BHK = "Not Applicable"
)

var BHKs = []BHK{BHK1, BHK2, BHK3, BHK4, BHK4Plus, BHKNotApplicable}

type Service string

const (
	ServiceBathroomCleaning Service = "Bathroom Cleaning"
	ServiceKitchenCleaning  Service = "Kitchen Cleaning"
	ServiceFullHome         Service = "Full Home Cleaning"
	ServiceRentalProperty   Service = "Rental Property Cleaning"
	ServiceMoveIn           Service = "Ready to Move In Cleaning"
	ServicePainting         Service = "Painting"
	ServicePestControl      Service = "Pest Control"
	ServicePlumbing         Service = "Plumbing"
	ServiceElectrician      Service = "Electrician"
	ServiceOther            Service = "Other"
)

var Services = []Service{
	ServiceBathroomCleaning, ServiceKitchenCleaning, ServiceFullHome, ServiceRentalProperty, ServiceMoveIn,
	ServicePainting, ServicePestControl, ServicePlumbing, ServiceElectrician, ServiceOther,
}

type Slot string

const (
	SlotMorning8    Slot = "Morning 8-10"
	SlotMorning10   Slot = "Morning 10-12"
	SlotAfternoon12 Slot = "Afternoon 12-2"
	SlotAfternoon2  Slot = "Afternoon 2-4"
	SlotEvening4    Slot = "Evening 4-6"
	SlotEvening6    Slot = "Evening 6-8"
)

var Slots = []Slot{SlotMorning8, SlotMorning10, SlotAfternoon12, SlotAfternoon2, SlotEvening4, SlotEvening6}

type Source string

const (
	SourceWebsite   Source = "Website"
	SourceInstagram Source = "Instagram"
	SourceJustDial  Source = "JustDial"
	SourceGoogle    Source = "Google"
	SourceReferral  Source = "Referral"
	SourceWhatsApp  Source = "WhatsApp"
	SourceWalkIn    Source = "Walk-in"
	SourceOther     Source = "Other"
)

var Sources = []Source{
	SourceWebsite, SourceInstagram, SourceJustDial, SourceGoogle, SourceReferral, SourceWhatsApp, SourceWalkIn, SourceOther,
}

// Status is the order status; it is also the classification tag.
type Status string

const (
	StatusConfirmed Status = "Confirmed"
	StatusPending   Status = "Pending"
	StatusCancelled Status = "Cancelled"
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusRefunded  Status = "Refunded"
)

var Statuses = []Status{StatusConfirmed, StatusPending, StatusCancelled, StatusScheduled, StatusCompleted, StatusRefunded}

type AdvanceStatus string

const (
	AdvanceReceived AdvanceStatus = "Received"
	AdvanceNil      AdvanceStatus = "NIL"
	AdvanceCleared  AdvanceStatus = "Cleared"
)

var AdvanceStatuses = []AdvanceStatus{AdvanceReceived, AdvanceNil, AdvanceCleared}

type PaymentStatus string

const (
	PaymentReceived PaymentStatus = "Received"
	PaymentPending  PaymentStatus = "Pending"
)

var PaymentStatuses = []PaymentStatus{PaymentReceived, PaymentPending}

type PaymentMode string

const (
	ModeCash           PaymentMode = "Cash"
	ModeUPI            PaymentMode = "UPI"
	ModeDebitCard      PaymentMode = "Debit Card"
	ModePaymentGateway PaymentMode = "Payment Gateway"
	ModeBankTransfer   PaymentMode = "Bank Transfer"
	ModeOther          PaymentMode = "Other"
)

var PaymentModes = []PaymentMode{ModeCash, ModeUPI, ModeDebitCard, ModePaymentGateway, ModeBankTransfer, ModeOther}

func values[T ~string](xs []T) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = string(x)
	}
	return out
}
