package carrier

import (
	"context"
)

// APIClient defines the batch operations of the carrier's label web service.
// This abstraction allows for mock implementations during testing
// and the SOAP implementation in production.
type APIClient interface {
	// CreateShipments creates labels for all orders in one call. Orders the
	// carrier could not process may be missing from the result without an error.
	CreateShipments(ctx context.Context, orders []ShipmentOrder) ([]CreatedShipment, error)

	// CancelShipments cancels shipments by shipment number and returns the
	// numbers that were actually cancelled.
	CancelShipments(ctx context.Context, shipmentNumbers []string) ([]string, error)
}

// ============================================================================
// API Request/Response Types
// ============================================================================

// ShipmentOrder is one label request within a batch.
type ShipmentOrder struct {
	SequenceNumber      string
	Details             ShipmentDetails
	Shipper             Address
	Receiver            Receiver
	ReturnReceiver      *Address
	Export              *ExportDocument
	PrintOnlyIfCodeable bool
}

// ShipmentDetails holds product, billing and package data.
type ShipmentDetails struct {
	Product             string
	BillingNumber       string
	ReturnBillingNumber string
	ShipmentDate        string // YYYY-MM-DD
	CustomerReference   string
	Pieces              []Piece
	Services            Services
	NotificationEmail   string
}

// Piece is one physical parcel.
type Piece struct {
	WeightKG   float64
	Dimensions *Dimensions
}

// Dimensions in centimeters.
type Dimensions struct {
	Length int
	Width  int
	Height int
}

// Services holds the value-added services of a shipment order.
type Services struct {
	CashOnDelivery      *Amount
	AdditionalInsurance *Amount
	VisualCheckOfAge    string
	BulkyGoods          bool
	PreferredTime       string
	PreferredDay        string
	PreferredNeighbour  string
	PreferredLocation   string
	ParcelOutletRouting string // notification email, empty when inactive
}

// Amount is a monetary value.
type Amount struct {
	Value    float64
	Currency string
}

// Address is a carrier address.
type Address struct {
	Name1        string
	Name2        string
	Street       string
	StreetNumber string
	Addition     string
	PostalCode   string
	City         string
	State        string
	CountryCode  string
	Phone        string
	Email        string
}

// Receiver is the consignee, optionally delivered to a parcel locker.
type Receiver struct {
	Address
	Locker *Locker
}

// Locker identifies a parcel locker delivery.
type Locker struct {
	StationID   string
	PostNumber  string
	PostalCode  string
	City        string
	CountryCode string
}

// ExportDocument is the customs declaration of an international shipment.
type ExportDocument struct {
	ExportType                   string
	ExportTypeDescription        string
	TermsOfTrade                 string
	PlaceOfCommittal             string
	AdditionalFee                float64
	PermitNumber                 string
	AttestationNumber            string
	ElectronicExportNotification bool
	Positions                    []ExportPosition
}

// ExportPosition is one customs line item.
type ExportPosition struct {
	Description         string
	CountryCodeOrigin   string
	CustomsTariffNumber string
	Amount              int
	NetWeightKG         float64
	CustomsValue        float64
}

// CreatedShipment is the carrier's answer for one created label.
type CreatedShipment struct {
	SequenceNumber       string
	ShipmentNumber       string
	ReturnShipmentNumber string
	Label                []byte
	ReturnLabel          []byte
	ExportLabel          []byte
	CODLabel             []byte
}
