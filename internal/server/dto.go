package server

import (
	"fmt"
	"time"

	"github.com/tournevent/labelbridge/pkg/shipment"
)

type addressInput struct {
	Name            string `json:"name"`
	Company         string `json:"company,omitempty"`
	Street          string `json:"street"`
	StreetNumber    string `json:"street_number,omitempty"`
	AddressAddition string `json:"address_addition,omitempty"`
	City            string `json:"city"`
	State           string `json:"state,omitempty"`
	PostalCode      string `json:"postal_code"`
	CountryCode     string `json:"country_code"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
}

type orderInput struct {
	IncrementID    string  `json:"increment_id"`
	GrandTotal     float64 `json:"grand_total"`
	Currency       string  `json:"currency"`
	QtyOrdered     float64 `json:"qty_ordered"`
	CashOnDelivery bool    `json:"cash_on_delivery,omitempty"`
}

type servicesInput struct {
	PrintOnlyIfCodeable bool   `json:"print_only_if_codeable,omitempty"`
	CashOnDelivery      bool   `json:"cash_on_delivery,omitempty"`
	AdditionalInsurance bool   `json:"additional_insurance,omitempty"`
	VisualCheckOfAge    string `json:"visual_check_of_age,omitempty"`
	BulkyGoods          bool   `json:"bulky_goods,omitempty"`
	PreferredDay        string `json:"preferred_day,omitempty"`
	PreferredTime       string `json:"preferred_time,omitempty"`
	PreferredNeighbour  string `json:"preferred_neighbour,omitempty"`
	PreferredLocation   string `json:"preferred_location,omitempty"`
	ReturnShipment      bool   `json:"return_shipment,omitempty"`
	ParcelAnnouncement  bool   `json:"parcel_announcement,omitempty"`
	ParcelOutletRouting bool   `json:"parcel_outlet_routing,omitempty"`
	ParcelOutletEmail   string `json:"parcel_outlet_email,omitempty"`
	ParcelLocker        string `json:"parcel_locker,omitempty"`
	PostNumber          string `json:"post_number,omitempty"`
}

type customsInput struct {
	ContentType                  string  `json:"content_type"`
	PlaceOfCommittal             string  `json:"place_of_committal,omitempty"`
	AdditionalFee                float64 `json:"additional_fee,omitempty"`
	ContentExplanation           string  `json:"content_explanation,omitempty"`
	TermsOfTrade                 string  `json:"terms_of_trade,omitempty"`
	PermitNumber                 string  `json:"permit_number,omitempty"`
	AttestationNumber            string  `json:"attestation_number,omitempty"`
	ElectronicExportNotification bool    `json:"electronic_export_notification,omitempty"`
}

type itemInput struct {
	Qty           float64 `json:"qty"`
	Description   string  `json:"description,omitempty"`
	Value         float64 `json:"value"`
	Weight        float64 `json:"weight,omitempty"`
	HSCode        string  `json:"hs_code,omitempty"`
	OriginCountry string  `json:"origin_country,omitempty"`
}

type packageInput struct {
	ID            string        `json:"id,omitempty"`
	Weight        float64       `json:"weight"`
	WeightUnit    string        `json:"weight_unit,omitempty"`
	Length        float64       `json:"length,omitempty"`
	Width         float64       `json:"width,omitempty"`
	Height        float64       `json:"height,omitempty"`
	DimensionUnit string        `json:"dimension_unit,omitempty"`
	DeclaredValue float64       `json:"declared_value,omitempty"`
	ProductCode   string        `json:"product_code"`
	Services      servicesInput `json:"services"`
	Customs       *customsInput `json:"customs,omitempty"`
	Items         []itemInput   `json:"items,omitempty"`
}

type shipmentInput struct {
	RequestIndex string         `json:"request_index,omitempty"`
	StoreID      int            `json:"store_id"`
	ShipmentRef  string         `json:"shipment_ref,omitempty"`
	ShipDate     string         `json:"ship_date,omitempty"` // YYYY-MM-DD
	Order        orderInput     `json:"order"`
	Shipper      addressInput   `json:"shipper"`
	Recipient    addressInput   `json:"recipient"`
	Packages     []packageInput `json:"packages"`
}

type cancellationInput struct {
	RequestIndex string `json:"request_index,omitempty"`
	StoreID      int    `json:"store_id"`
	TrackNumber  string `json:"track_number"`
	ShipmentRef  string `json:"shipment_ref,omitempty"`
	TrackRef     string `json:"track_ref,omitempty"`
}

type createRequest struct {
	Shipments []shipmentInput `json:"shipments"`
}

type cancelRequest struct {
	Cancellations []cancellationInput `json:"cancellations"`
}

type result struct {
	RequestIndex         string   `json:"request_index"`
	Success              bool     `json:"success"`
	OrderRef             string   `json:"order_ref,omitempty"`
	ShipmentRef          string   `json:"shipment_ref,omitempty"`
	TrackRef             string   `json:"track_ref,omitempty"`
	TrackingNumber       string   `json:"tracking_number,omitempty"`
	ReturnTrackingNumber string   `json:"return_tracking_number,omitempty"`
	Label                []byte   `json:"label,omitempty"`
	Documents            [][]byte `json:"documents,omitempty"`
	Message              string   `json:"message,omitempty"`
}

type resultsResponse struct {
	Results []result `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func addressInputToModel(in addressInput) shipment.Address {
	return shipment.Address{
		Name:            in.Name,
		Company:         in.Company,
		Street:          in.Street,
		StreetNumber:    in.StreetNumber,
		AddressAddition: in.AddressAddition,
		City:            in.City,
		State:           in.State,
		PostalCode:      in.PostalCode,
		CountryCode:     in.CountryCode,
		Phone:           in.Phone,
		Email:           in.Email,
	}
}

func packageInputToModel(in packageInput) *shipment.Package {
	pkg := &shipment.Package{
		ID:            in.ID,
		Weight:        in.Weight,
		WeightUnit:    shipment.WeightUnit(in.WeightUnit),
		Length:        in.Length,
		Width:         in.Width,
		Height:        in.Height,
		DimensionUnit: shipment.DimensionUnit(in.DimensionUnit),
		DeclaredValue: in.DeclaredValue,
		ProductCode:   in.ProductCode,
		Services:      shipment.Services(in.Services),
	}
	if pkg.WeightUnit == "" {
		pkg.WeightUnit = shipment.WeightKG
	}
	if pkg.DimensionUnit == "" {
		pkg.DimensionUnit = shipment.DimensionCM
	}
	if in.Customs != nil {
		customs := shipment.Customs(*in.Customs)
		pkg.Customs = &customs
	}
	for _, item := range in.Items {
		pkg.Items = append(pkg.Items, shipment.PackageItem(item))
	}
	return pkg
}

func shipmentInputToModel(in shipmentInput) (*shipment.ShipmentRequest, error) {
	req := &shipment.ShipmentRequest{
		RequestIndex: in.RequestIndex,
		StoreID:      in.StoreID,
		ShipmentRef:  in.ShipmentRef,
		Order: shipment.Order{
			IncrementID:    in.Order.IncrementID,
			GrandTotal:     in.Order.GrandTotal,
			Currency:       in.Order.Currency,
			QtyOrdered:     in.Order.QtyOrdered,
			CashOnDelivery: in.Order.CashOnDelivery,
		},
		Shipper:   addressInputToModel(in.Shipper),
		Recipient: addressInputToModel(in.Recipient),
	}
	if in.ShipDate != "" {
		date, err := time.Parse(time.DateOnly, in.ShipDate)
		if err != nil {
			return nil, fmt.Errorf("invalid ship_date %q", in.ShipDate)
		}
		req.ShipDate = date
	}
	for _, p := range in.Packages {
		req.Packages = append(req.Packages, packageInputToModel(p))
	}
	return req, nil
}

func cancellationInputToModel(in cancellationInput) *shipment.CancellationRequest {
	return &shipment.CancellationRequest{
		RequestIndex: in.RequestIndex,
		StoreID:      in.StoreID,
		TrackNumber:  in.TrackNumber,
		ShipmentRef:  in.ShipmentRef,
		TrackRef:     in.TrackRef,
	}
}

func responseToResult(resp shipment.Response) result {
	switch r := resp.(type) {
	case shipment.LabelResponse:
		return result{
			RequestIndex:         r.RequestIndex,
			Success:              true,
			OrderRef:             r.OrderRef,
			ShipmentRef:          r.ShipmentRef,
			TrackingNumber:       r.TrackingNumber,
			ReturnTrackingNumber: r.ReturnTrackingNumber,
			Label:                r.LabelContent,
			Documents:            r.Documents,
		}
	case shipment.TrackResponse:
		return result{
			RequestIndex:   r.RequestIndex,
			Success:        true,
			ShipmentRef:    r.ShipmentRef,
			TrackRef:       r.TrackRef,
			TrackingNumber: r.TrackNumber,
		}
	case shipment.ErrorResponse:
		return result{
			RequestIndex: r.RequestIndex,
			OrderRef:     r.OrderRef,
			ShipmentRef:  r.ShipmentRef,
			TrackRef:     r.TrackRef,
			Message:      r.Message,
		}
	default:
		return result{RequestIndex: resp.Index(), Success: resp.Succeeded()}
	}
}
