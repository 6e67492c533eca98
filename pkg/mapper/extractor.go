package mapper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

// extractor reads normalized request data in the shape the carrier expects.
type extractor struct {
	req      *shipment.ShipmentRequest
	settings shipment.StoreSettings
}

func (e extractor) shipper() carrier.Address {
	return toCarrierAddress(e.req.Shipper)
}

// recipient returns the receiver address. The email is only passed on when
// the customer agreed to a parcel announcement.
func (e extractor) recipient(announce bool) carrier.Address {
	addr := toCarrierAddress(e.req.Recipient)
	if !announce {
		addr.Email = ""
	}
	return addr
}

func (e extractor) returnAddress() carrier.Address {
	if e.settings.ReturnAddress != nil {
		return toCarrierAddress(*e.settings.ReturnAddress)
	}
	return e.shipper()
}

// services returns the service selection of the shipment. The host applies
// one selection to all packages, so the first package is authoritative.
func (e extractor) services() shipment.Services {
	if len(e.req.Packages) == 0 {
		return shipment.Services{}
	}
	return e.req.Packages[0].Services
}

// productCode returns the product shared by all packages.
func (e extractor) productCode() (string, error) {
	var code string
	for _, pkg := range e.req.Packages {
		switch {
		case code == "":
			code = pkg.ProductCode
		case pkg.ProductCode != code:
			return "", shipment.NewMappingError("product", "All packages of a shipment must use the same product.")
		}
	}
	return code, nil
}

func (e extractor) billingNumber(product string) (string, error) {
	participation, ok := e.settings.Participations[product]
	if !ok || e.settings.AccountNumber == "" {
		return "", shipment.NewMappingError("billing_number",
			fmt.Sprintf("No billing number configured for product %s.", product))
	}
	return carrier.BillingNumber(e.settings.AccountNumber, product, participation), nil
}

// returnBillingNumber uses the "return" participation, falling back to the
// participation of the outbound product.
func (e extractor) returnBillingNumber(product string) (string, error) {
	participation, ok := e.settings.Participations[ReturnParticipationKey]
	if !ok {
		participation, ok = e.settings.Participations[product]
	}
	if !ok || e.settings.AccountNumber == "" {
		return "", shipment.NewMappingError("return_billing_number", "No billing number configured for return shipments.")
	}
	return carrier.ReturnBillingNumber(e.settings.AccountNumber, participation), nil
}

// shipDate returns the requested ship date, or today adjusted by the store's
// cut-off time. Shipments are never dated on a Sunday.
func (e extractor) shipDate(now time.Time) (time.Time, error) {
	if !e.req.ShipDate.IsZero() {
		return e.req.ShipDate, nil
	}

	date := now
	if e.settings.CutOffTime != "" {
		cutOff, err := parseCutOff(e.settings.CutOffTime, now)
		if err != nil {
			return time.Time{}, shipment.NewMappingError("shipment_date", "The store cut-off time is invalid.").WithCause(err)
		}
		if !now.Before(cutOff) {
			date = date.AddDate(0, 0, 1)
		}
	}
	if date.Weekday() == time.Sunday {
		date = date.AddDate(0, 0, 1)
	}
	return date, nil
}

func parseCutOff(value string, now time.Time) (time.Time, error) {
	hh, mm, ok := strings.Cut(value, ":")
	if !ok {
		return time.Time{}, fmt.Errorf("expected HH:MM, got %q", value)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute in %q", value)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()), nil
}

func toCarrierAddress(a shipment.Address) carrier.Address {
	return carrier.Address{
		Name1:        a.Name,
		Name2:        a.Company,
		Street:       a.Street,
		StreetNumber: a.StreetNumber,
		Addition:     a.AddressAddition,
		PostalCode:   a.PostalCode,
		City:         a.City,
		State:        a.State,
		CountryCode:  strings.ToUpper(a.CountryCode),
		Phone:        a.Phone,
		Email:        a.Email,
	}
}

// WeightInKG converts a weight to kilograms.
func WeightInKG(weight float64, unit shipment.WeightUnit) float64 {
	switch unit {
	case shipment.WeightG:
		return weight / 1000
	case shipment.WeightLB:
		return weight * 0.45359237
	case shipment.WeightOZ:
		return weight * 0.028349523125
	default:
		return weight
	}
}

// LengthInCM converts a length to whole centimeters, rounding up.
func LengthInCM(length float64, unit shipment.DimensionUnit) int {
	switch unit {
	case shipment.DimensionMM:
		length /= 10
	case shipment.DimensionIN:
		length *= 2.54
	}
	return int(math.Ceil(length))
}

// dimensions returns nil unless all three dimensions are set.
func dimensions(pkg *shipment.Package) *carrier.Dimensions {
	if pkg.Length <= 0 || pkg.Width <= 0 || pkg.Height <= 0 {
		return nil
	}
	return &carrier.Dimensions{
		Length: LengthInCM(pkg.Length, pkg.DimensionUnit),
		Width:  LengthInCM(pkg.Width, pkg.DimensionUnit),
		Height: LengthInCM(pkg.Height, pkg.DimensionUnit),
	}
}
