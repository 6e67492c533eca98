// Package validator holds the business rules a shipment request must satisfy
// before it is mapped to a carrier request.
package validator

import (
	"fmt"

	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

// CustomsValueThreshold is the declared customs value from which an
// electronic export notification is mandatory.
const CustomsValueThreshold = 1000.0

// Validator checks one shipment request. A violation is returned as
// *shipment.ValidationError.
type Validator interface {
	Name() string
	Validate(req *shipment.ShipmentRequest) error
}

// Func adapts a function to Validator.
type Func struct {
	name string
	fn   func(req *shipment.ShipmentRequest) error
}

// New creates a named validator from a function.
func New(name string, fn func(req *shipment.ShipmentRequest) error) Func {
	return Func{name: name, fn: fn}
}

func (f Func) Name() string { return f.name }

func (f Func) Validate(req *shipment.ShipmentRequest) error { return f.fn(req) }

// Default returns the validators in registration order.
func Default() []Validator {
	return []Validator{
		PartialShipment{},
		ProductCompatibility{},
		CustomsDeclaration{Threshold: CustomsValueThreshold},
	}
}

// PartialShipment rejects partial or multi-package shipments of orders that
// are paid cash on delivery or carry additional insurance.
type PartialShipment struct{}

func (PartialShipment) Name() string { return "partial_shipment" }

func (v PartialShipment) Validate(req *shipment.ShipmentRequest) error {
	if !req.IsPartial() {
		return nil
	}

	if req.Order.CashOnDelivery {
		return shipment.NewValidationError(v.Name(),
			"Partial shipments with cash on delivery are not supported.")
	}
	for _, pkg := range req.Packages {
		if pkg.Services.CashOnDelivery {
			return shipment.NewValidationError(v.Name(),
				"Partial shipments with cash on delivery are not supported.")
		}
		if pkg.Services.AdditionalInsurance {
			return shipment.NewValidationError(v.Name(),
				"Partial shipments with additional insurance are not supported.")
		}
	}
	return nil
}

// ProductCompatibility rejects services the selected product cannot carry.
type ProductCompatibility struct{}

func (ProductCompatibility) Name() string { return "product_compatibility" }

func (v ProductCompatibility) Validate(req *shipment.ShipmentRequest) error {
	for _, pkg := range req.Packages {
		if !carrier.IsLightweight(pkg.ProductCode) {
			continue
		}
		if pkg.Services.PreferredDay != "" {
			return shipment.NewValidationError(v.Name(),
				"The selected product does not support the preferred day service.")
		}
		if pkg.Services.CashOnDelivery || req.Order.CashOnDelivery {
			return shipment.NewValidationError(v.Name(),
				"The selected product does not support cash on delivery.")
		}
	}
	return nil
}

// CustomsDeclaration requires an electronic export notification for
// high-value export declarations.
type CustomsDeclaration struct {
	Threshold float64
}

func (CustomsDeclaration) Name() string { return "customs_declaration" }

// Validate checks the shipment total, as one export declaration covers all
// packages. The declaration header is taken from the first package with
// customs data.
func (v CustomsDeclaration) Validate(req *shipment.ShipmentRequest) error {
	var customs *shipment.Customs
	var total float64
	for _, pkg := range req.Packages {
		if customs == nil && pkg.Customs != nil {
			customs = pkg.Customs
		}
		total += pkg.CustomsValue()
	}
	if customs == nil || customs.ElectronicExportNotification {
		return nil
	}
	if total >= v.Threshold {
		return shipment.NewValidationError(v.Name(), fmt.Sprintf(
			"An electronic export notification is required for customs values of %.0f or more.", v.Threshold))
	}
	return nil
}

// Run applies validators in order and returns the first violation.
func Run(req *shipment.ShipmentRequest, validators []Validator) error {
	for _, v := range validators {
		if err := v.Validate(req); err != nil {
			return err
		}
	}
	return nil
}
