package shipment

import (
	"time"
)

// WeightUnit represents weight measurement unit.
type WeightUnit string

const (
	WeightKG WeightUnit = "kg"
	WeightG  WeightUnit = "g"
	WeightLB WeightUnit = "lb"
	WeightOZ WeightUnit = "oz"
)

// DimensionUnit represents dimension measurement unit.
type DimensionUnit string

const (
	DimensionCM DimensionUnit = "cm"
	DimensionMM DimensionUnit = "mm"
	DimensionIN DimensionUnit = "in"
)

// Address represents a shipper or recipient address.
type Address struct {
	Name            string
	Company         string
	Street          string
	StreetNumber    string
	AddressAddition string
	City            string
	State           string
	PostalCode      string
	CountryCode     string // ISO 3166-1 alpha-2, e.g., "DE", "US"
	Phone           string
	Email           string
}

// Order holds the order fields the pipeline reads.
type Order struct {
	IncrementID string
	GrandTotal  float64
	Currency    string
	QtyOrdered  float64

	// CashOnDelivery is resolved by the host from the order's payment method.
	CashOnDelivery bool
}

// Services holds the value-added services selected for a package.
type Services struct {
	PrintOnlyIfCodeable bool
	CashOnDelivery      bool
	AdditionalInsurance bool
	VisualCheckOfAge    string // "A16" or "A18"
	BulkyGoods          bool
	PreferredDay        string // YYYY-MM-DD
	PreferredTime       string // timeframe, e.g. "10001200"
	PreferredNeighbour  string
	PreferredLocation   string
	ReturnShipment      bool
	ParcelAnnouncement  bool
	ParcelOutletRouting bool
	ParcelOutletEmail   string

	// ParcelLocker is encoded as stationId|countryId|postalCode|city.
	ParcelLocker string
	PostNumber   string
}

// Customs holds export declaration data for a package.
type Customs struct {
	ContentType                  string // OTHER, PRESENT, COMMERCIAL_SAMPLE, DOCUMENT, RETURN_OF_GOODS, COMMERCIAL_GOODS
	PlaceOfCommittal             string
	AdditionalFee                float64
	ContentExplanation           string
	TermsOfTrade                 string // DDU, DAP, DDP, DXV
	PermitNumber                 string
	AttestationNumber            string
	ElectronicExportNotification bool
}

// PackageItem is one order item line packed into a package.
type PackageItem struct {
	Qty           float64
	Description   string
	Value         float64 // per unit
	Weight        float64 // per unit, in the package weight unit
	HSCode        string
	OriginCountry string
}

// Package represents one physical parcel of a shipment.
type Package struct {
	ID            string
	Weight        float64
	WeightUnit    WeightUnit
	Length        float64
	Width         float64
	Height        float64
	DimensionUnit DimensionUnit
	DeclaredValue float64
	ProductCode   string
	Services      Services
	Customs       *Customs
	Items         []PackageItem

	// SequenceNumber is stamped during request mapping and used to correlate
	// the carrier response with this package.
	SequenceNumber string
}

// CustomsValue returns the declared customs value of the package.
// Item values win over the package's declared value.
func (p *Package) CustomsValue() float64 {
	if len(p.Items) == 0 {
		return p.DeclaredValue
	}
	var total float64
	for _, item := range p.Items {
		total += item.Value * item.Qty
	}
	return total
}

// ShipmentRequest is one shipment to be labelled, built by the host from an
// order and user input.
type ShipmentRequest struct {
	RequestIndex string
	StoreID      int
	ShipmentRef  string
	ShipDate     time.Time
	Order        Order
	Shipper      Address
	Recipient    Address
	Packages     []*Package
}

// QtyShipped returns the total item quantity across all packages.
func (r *ShipmentRequest) QtyShipped() float64 {
	var qty float64
	for _, pkg := range r.Packages {
		for _, item := range pkg.Items {
			qty += item.Qty
		}
	}
	return qty
}

// IsPartial reports whether the shipment covers less than the full ordered
// quantity or is split into multiple packages.
func (r *ShipmentRequest) IsPartial() bool {
	if len(r.Packages) > 1 {
		return true
	}
	return r.QtyShipped() < r.Order.QtyOrdered
}

// SequenceNumber returns the correlation key stamped on the request's packages.
func (r *ShipmentRequest) SequenceNumber() string {
	for _, pkg := range r.Packages {
		if pkg.SequenceNumber != "" {
			return pkg.SequenceNumber
		}
	}
	return ""
}

// CancellationRequest asks the carrier to cancel a previously created shipment.
type CancellationRequest struct {
	RequestIndex string
	StoreID      int
	TrackNumber  string
	ShipmentRef  string
	TrackRef     string
}

// ============================================================================
// Uniform results
// ============================================================================

// Response is a uniform per-item outcome.
type Response interface {
	Index() string
	Succeeded() bool
}

// LabelResponse is a successfully created label.
type LabelResponse struct {
	RequestIndex         string
	OrderRef             string
	ShipmentRef          string
	TrackingNumber       string
	ReturnTrackingNumber string
	LabelContent         []byte
	Documents            [][]byte // export documents, return and COD labels
}

func (r LabelResponse) Index() string   { return r.RequestIndex }
func (r LabelResponse) Succeeded() bool { return true }

// TrackResponse is a successfully cancelled shipment.
type TrackResponse struct {
	RequestIndex string
	TrackNumber  string
	ShipmentRef  string
	TrackRef     string
}

func (r TrackResponse) Index() string   { return r.RequestIndex }
func (r TrackResponse) Succeeded() bool { return true }

// ErrorResponse is a failed item.
type ErrorResponse struct {
	RequestIndex string
	Message      string
	OrderRef     string
	ShipmentRef  string
	TrackRef     string
}

func (r ErrorResponse) Index() string   { return r.RequestIndex }
func (r ErrorResponse) Succeeded() bool { return false }

// Split separates responses into successes and failures, keeping order.
func Split(responses []Response) (successes, failures []Response) {
	for _, r := range responses {
		if r.Succeeded() {
			successes = append(successes, r)
		} else {
			failures = append(failures, r)
		}
	}
	return successes, failures
}
