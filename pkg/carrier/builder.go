package carrier

import (
	"fmt"
	"time"

	"github.com/tournevent/labelbridge/pkg/shipment"
)

// OrderBuilder assembles a ShipmentOrder step by step. Build validates the
// accumulated data and resets the builder for the next order.
type OrderBuilder struct {
	order ShipmentOrder
}

// NewOrderBuilder creates an empty builder.
func NewOrderBuilder() *OrderBuilder {
	return &OrderBuilder{}
}

func (b *OrderBuilder) SetSequenceNumber(seq string) *OrderBuilder {
	b.order.SequenceNumber = seq
	return b
}

func (b *OrderBuilder) SetBillingNumber(number string) *OrderBuilder {
	b.order.Details.BillingNumber = number
	return b
}

func (b *OrderBuilder) SetReturnBillingNumber(number string) *OrderBuilder {
	b.order.Details.ReturnBillingNumber = number
	return b
}

func (b *OrderBuilder) SetShipper(addr Address) *OrderBuilder {
	b.order.Shipper = addr
	return b
}

func (b *OrderBuilder) SetReceiver(addr Address) *OrderBuilder {
	b.order.Receiver.Address = addr
	return b
}

// SetParcelLocker routes the shipment to a parcel locker instead of the
// receiver's street address.
func (b *OrderBuilder) SetParcelLocker(locker Locker) *OrderBuilder {
	b.order.Receiver.Locker = &locker
	return b
}

func (b *OrderBuilder) SetReturnReceiver(addr Address) *OrderBuilder {
	b.order.ReturnReceiver = &addr
	return b
}

func (b *OrderBuilder) SetProduct(code string) *OrderBuilder {
	b.order.Details.Product = code
	return b
}

func (b *OrderBuilder) SetShipmentDate(date time.Time) *OrderBuilder {
	b.order.Details.ShipmentDate = date.Format("2006-01-02")
	return b
}

func (b *OrderBuilder) SetCustomerReference(ref string) *OrderBuilder {
	b.order.Details.CustomerReference = ref
	return b
}

// AddPiece adds a parcel. dims may be nil.
func (b *OrderBuilder) AddPiece(weightKG float64, dims *Dimensions) *OrderBuilder {
	b.order.Details.Pieces = append(b.order.Details.Pieces, Piece{WeightKG: weightKG, Dimensions: dims})
	return b
}

func (b *OrderBuilder) SetNotificationEmail(email string) *OrderBuilder {
	b.order.Details.NotificationEmail = email
	return b
}

func (b *OrderBuilder) SetPrintOnlyIfCodeable() *OrderBuilder {
	b.order.PrintOnlyIfCodeable = true
	return b
}

func (b *OrderBuilder) SetCashOnDelivery(amount float64, currency string) *OrderBuilder {
	b.order.Details.Services.CashOnDelivery = &Amount{Value: amount, Currency: currency}
	return b
}

func (b *OrderBuilder) SetInsuredValue(amount float64, currency string) *OrderBuilder {
	b.order.Details.Services.AdditionalInsurance = &Amount{Value: amount, Currency: currency}
	return b
}

func (b *OrderBuilder) SetVisualCheckOfAge(age string) *OrderBuilder {
	b.order.Details.Services.VisualCheckOfAge = age
	return b
}

func (b *OrderBuilder) SetBulkyGoods() *OrderBuilder {
	b.order.Details.Services.BulkyGoods = true
	return b
}

func (b *OrderBuilder) SetPreferredTime(timeframe string) *OrderBuilder {
	b.order.Details.Services.PreferredTime = timeframe
	return b
}

func (b *OrderBuilder) SetPreferredDay(day string) *OrderBuilder {
	b.order.Details.Services.PreferredDay = day
	return b
}

func (b *OrderBuilder) SetPreferredNeighbour(neighbour string) *OrderBuilder {
	b.order.Details.Services.PreferredNeighbour = neighbour
	return b
}

func (b *OrderBuilder) SetPreferredLocation(location string) *OrderBuilder {
	b.order.Details.Services.PreferredLocation = location
	return b
}

func (b *OrderBuilder) SetParcelOutletRouting(email string) *OrderBuilder {
	b.order.Details.Services.ParcelOutletRouting = email
	return b
}

// SetExportDocument sets the customs declaration header. Positions are added
// with AddExportPosition.
func (b *OrderBuilder) SetExportDocument(doc ExportDocument) *OrderBuilder {
	positions := doc.Positions
	if b.order.Export != nil {
		positions = append(b.order.Export.Positions, positions...)
	}
	doc.Positions = positions
	b.order.Export = &doc
	return b
}

func (b *OrderBuilder) AddExportPosition(pos ExportPosition) *OrderBuilder {
	if b.order.Export == nil {
		b.order.Export = &ExportDocument{}
	}
	b.order.Export.Positions = append(b.order.Export.Positions, pos)
	return b
}

// Build validates and returns the assembled order. Faults are returned as
// *shipment.MappingError. The builder is reset in either case.
func (b *OrderBuilder) Build() (ShipmentOrder, error) {
	order := b.order
	b.order = ShipmentOrder{}

	if err := validateOrder(order); err != nil {
		return ShipmentOrder{}, err
	}
	return order, nil
}

func validateOrder(o ShipmentOrder) error {
	d := o.Details
	switch {
	case o.SequenceNumber == "":
		return shipment.NewMappingError("sequence_number", "Sequence number is required.")
	case d.Product == "":
		return shipment.NewMappingError("product", "Product code is required.")
	case !IsKnownProduct(d.Product):
		return shipment.NewMappingError("product", fmt.Sprintf("Product %s is not supported.", d.Product))
	case d.BillingNumber == "":
		return shipment.NewMappingError("billing_number", "Billing number is required.")
	case d.ShipmentDate == "":
		return shipment.NewMappingError("shipment_date", "Shipment date is required.")
	case len(d.Pieces) == 0:
		return shipment.NewMappingError("weight", "At least one package is required.")
	}

	for _, p := range d.Pieces {
		if p.WeightKG <= 0 {
			return shipment.NewMappingError("weight", "Package weight must be greater than zero.")
		}
	}

	if err := validateAddress("shipper", o.Shipper); err != nil {
		return err
	}

	if o.Receiver.Name1 == "" {
		return shipment.NewMappingError("receiver.name", "Receiver name is required.")
	}
	if o.Receiver.Locker != nil {
		l := o.Receiver.Locker
		if l.StationID == "" || l.PostalCode == "" || l.City == "" || l.CountryCode == "" {
			return shipment.NewMappingError("receiver.locker", "Parcel locker address is incomplete.")
		}
	} else if err := validateAddress("receiver", o.Receiver.Address); err != nil {
		return err
	}

	if o.ReturnReceiver != nil {
		if err := validateAddress("return_receiver", *o.ReturnReceiver); err != nil {
			return err
		}
	}

	if o.Export != nil && len(o.Export.Positions) == 0 {
		return shipment.NewMappingError("export", "Export document requires at least one item.")
	}

	return nil
}

func validateAddress(field string, a Address) error {
	switch {
	case a.Name1 == "":
		return shipment.NewMappingError(field+".name", fmt.Sprintf("The %s name is required.", label(field)))
	case a.Street == "":
		return shipment.NewMappingError(field+".street", fmt.Sprintf("The %s street is required.", label(field)))
	case a.PostalCode == "":
		return shipment.NewMappingError(field+".postal_code", fmt.Sprintf("The %s postal code is required.", label(field)))
	case a.City == "":
		return shipment.NewMappingError(field+".city", fmt.Sprintf("The %s city is required.", label(field)))
	case a.CountryCode == "":
		return shipment.NewMappingError(field+".country", fmt.Sprintf("The %s country is required.", label(field)))
	}
	return nil
}

func label(field string) string {
	switch field {
	case "return_receiver":
		return "return receiver"
	default:
		return field
	}
}
