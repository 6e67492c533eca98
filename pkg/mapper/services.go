package mapper

import (
	"strings"

	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

// serviceContext is the state shared by the service mappers of one request.
type serviceContext struct {
	req      *shipment.ShipmentRequest
	services shipment.Services
	product  string
	extract  extractor
	builder  *carrier.OrderBuilder
}

type serviceMapper struct {
	name  string
	apply func(sc *serviceContext) error
}

// defaultServiceMappers returns the service mappers in evaluation order.
func defaultServiceMappers() []serviceMapper {
	return []serviceMapper{
		{"print_only_if_codeable", mapPrintOnlyIfCodeable},
		{"cash_on_delivery", mapCashOnDelivery},
		{"additional_insurance", mapInsurance},
		{"visual_check_of_age", mapVisualCheckOfAge},
		{"bulky_goods", mapBulkyGoods},
		{"preferred_time", mapPreferredTime},
		{"preferred_day", mapPreferredDay},
		{"preferred_neighbour", mapPreferredNeighbour},
		{"preferred_location", mapPreferredLocation},
		{"return_shipment", mapReturnShipment},
		{"parcel_outlet_routing", mapParcelOutletRouting},
		{"parcel_locker", mapParcelLocker},
	}
}

func mapPrintOnlyIfCodeable(sc *serviceContext) error {
	if sc.services.PrintOnlyIfCodeable {
		sc.builder.SetPrintOnlyIfCodeable()
	}
	return nil
}

func mapCashOnDelivery(sc *serviceContext) error {
	if sc.services.CashOnDelivery || sc.req.Order.CashOnDelivery {
		sc.builder.SetCashOnDelivery(sc.req.Order.GrandTotal, sc.req.Order.Currency)
	}
	return nil
}

func mapInsurance(sc *serviceContext) error {
	if sc.services.AdditionalInsurance {
		sc.builder.SetInsuredValue(sc.req.Order.GrandTotal, sc.req.Order.Currency)
	}
	return nil
}

func mapVisualCheckOfAge(sc *serviceContext) error {
	if sc.services.VisualCheckOfAge != "" {
		sc.builder.SetVisualCheckOfAge(sc.services.VisualCheckOfAge)
	}
	return nil
}

func mapBulkyGoods(sc *serviceContext) error {
	if sc.services.BulkyGoods {
		sc.builder.SetBulkyGoods()
	}
	return nil
}

func mapPreferredTime(sc *serviceContext) error {
	if sc.services.PreferredTime != "" {
		sc.builder.SetPreferredTime(sc.services.PreferredTime)
	}
	return nil
}

func mapPreferredDay(sc *serviceContext) error {
	if sc.services.PreferredDay != "" {
		sc.builder.SetPreferredDay(sc.services.PreferredDay)
	}
	return nil
}

func mapPreferredNeighbour(sc *serviceContext) error {
	if sc.services.PreferredNeighbour != "" {
		sc.builder.SetPreferredNeighbour(sc.services.PreferredNeighbour)
	}
	return nil
}

func mapPreferredLocation(sc *serviceContext) error {
	if sc.services.PreferredLocation != "" {
		sc.builder.SetPreferredLocation(sc.services.PreferredLocation)
	}
	return nil
}

func mapReturnShipment(sc *serviceContext) error {
	if !sc.services.ReturnShipment {
		return nil
	}
	billing, err := sc.extract.returnBillingNumber(sc.product)
	if err != nil {
		return err
	}
	sc.builder.SetReturnBillingNumber(billing).
		SetReturnReceiver(sc.extract.returnAddress())
	return nil
}

func mapParcelOutletRouting(sc *serviceContext) error {
	if !sc.services.ParcelOutletRouting {
		return nil
	}
	email := sc.services.ParcelOutletEmail
	if email == "" {
		email = sc.req.Recipient.Email
	}
	if email == "" {
		return shipment.NewMappingError("parcel_outlet_routing", "Parcel outlet routing requires an email address.")
	}
	sc.builder.SetParcelOutletRouting(email)
	return nil
}

// mapParcelLocker parses the locker encoded as stationId|countryId|postalCode|city.
func mapParcelLocker(sc *serviceContext) error {
	if sc.services.ParcelLocker == "" {
		return nil
	}

	locker, err := ParseLocker(sc.services.ParcelLocker)
	if err != nil {
		return err
	}
	if sc.services.PostNumber == "" {
		return shipment.NewMappingError("parcel_locker", "Parcel locker delivery requires a post number.")
	}
	locker.PostNumber = sc.services.PostNumber
	sc.builder.SetParcelLocker(locker)
	return nil
}

// ParseLocker decodes a stationId|countryId|postalCode|city string.
func ParseLocker(encoded string) (carrier.Locker, error) {
	parts := strings.Split(encoded, "|")
	if len(parts) != 4 {
		return carrier.Locker{}, shipment.NewMappingError("parcel_locker", "The parcel locker is invalid.")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return carrier.Locker{}, shipment.NewMappingError("parcel_locker", "The parcel locker is invalid.")
		}
	}
	return carrier.Locker{
		StationID:   parts[0],
		CountryCode: strings.ToUpper(parts[1]),
		PostalCode:  parts[2],
		City:        parts[3],
	}, nil
}
