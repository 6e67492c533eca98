// Package mapper translates normalized shipment requests into carrier
// shipment orders and carrier results back into uniform responses.
package mapper

import (
	"errors"
	"strings"
	"time"

	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

// ReturnParticipationKey is the participations key holding the participation
// number of return shipments.
const ReturnParticipationKey = "return"

// DefaultEUCountries is the set of destinations that need no customs data.
var DefaultEUCountries = []string{
	"AT", "BE", "BG", "CY", "CZ", "DE", "DK", "EE", "ES", "FI", "FR", "GR", "HR", "HU",
	"IE", "IT", "LT", "LU", "LV", "MT", "NL", "PL", "PT", "RO", "SE", "SI", "SK",
}

// RequestMapper maps shipment requests of one store to carrier orders.
type RequestMapper struct {
	settings shipment.StoreSettings
	eu       map[string]struct{}
	now      func() time.Time
	services []serviceMapper
}

// Option configures a RequestMapper.
type Option func(*RequestMapper)

// WithClock overrides the clock used to derive the ship date.
func WithClock(now func() time.Time) Option {
	return func(m *RequestMapper) { m.now = now }
}

// WithEUCountries overrides the EU country set.
func WithEUCountries(countries []string) Option {
	return func(m *RequestMapper) { m.eu = countrySet(countries) }
}

// NewRequestMapper creates a mapper for the given store settings.
func NewRequestMapper(settings shipment.StoreSettings, opts ...Option) *RequestMapper {
	m := &RequestMapper{
		settings: settings,
		eu:       countrySet(DefaultEUCountries),
		now:      time.Now,
		services: defaultServiceMappers(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map builds the carrier order for req and stamps seq onto its packages.
// The packages are written in place, so they must not be shared with other
// requests of the same batch.
// Incomplete or malformed data is reported as *shipment.MappingError.
func (m *RequestMapper) Map(seq string, req *shipment.ShipmentRequest) (carrier.ShipmentOrder, error) {
	if len(req.Packages) == 0 {
		return carrier.ShipmentOrder{}, shipment.NewMappingError("packages", "The shipment contains no packages.")
	}

	ex := extractor{req: req, settings: m.settings}
	b := carrier.NewOrderBuilder().SetSequenceNumber(seq)

	product, err := ex.productCode()
	if err != nil {
		return carrier.ShipmentOrder{}, err
	}
	billing, err := ex.billingNumber(product)
	if err != nil {
		return carrier.ShipmentOrder{}, err
	}
	b.SetBillingNumber(billing)

	services := ex.services()
	b.SetShipper(ex.shipper())
	recipient := ex.recipient(services.ParcelAnnouncement)
	b.SetReceiver(recipient)
	if recipient.Email != "" {
		b.SetNotificationEmail(recipient.Email)
	}

	date, err := ex.shipDate(m.now())
	if err != nil {
		return carrier.ShipmentOrder{}, err
	}
	b.SetProduct(product).
		SetShipmentDate(date).
		SetCustomerReference(req.Order.IncrementID)

	for _, pkg := range req.Packages {
		pkg.SequenceNumber = seq
		b.AddPiece(WeightInKG(pkg.Weight, pkg.WeightUnit), dimensions(pkg))
	}

	sc := &serviceContext{
		req:      req,
		services: services,
		product:  product,
		extract:  ex,
		builder:  b,
	}
	for _, sm := range m.services {
		if err := sm.apply(sc); err != nil {
			return carrier.ShipmentOrder{}, err
		}
	}

	if !m.isEU(req.Recipient.CountryCode) {
		mapCustoms(req, b)
	}

	return b.Build()
}

func (m *RequestMapper) isEU(countryCode string) bool {
	_, ok := m.eu[strings.ToUpper(countryCode)]
	return ok
}

// mapCustoms adds the export declaration of the first package carrying
// customs data and one export position per package item.
func mapCustoms(req *shipment.ShipmentRequest, b *carrier.OrderBuilder) {
	var customs *shipment.Customs
	for _, pkg := range req.Packages {
		if pkg.Customs != nil {
			customs = pkg.Customs
			break
		}
	}
	if customs == nil {
		return
	}

	b.SetExportDocument(carrier.ExportDocument{
		ExportType:                   customs.ContentType,
		ExportTypeDescription:        customs.ContentExplanation,
		TermsOfTrade:                 customs.TermsOfTrade,
		PlaceOfCommittal:             customs.PlaceOfCommittal,
		AdditionalFee:                customs.AdditionalFee,
		PermitNumber:                 customs.PermitNumber,
		AttestationNumber:            customs.AttestationNumber,
		ElectronicExportNotification: customs.ElectronicExportNotification,
	})

	for _, pkg := range req.Packages {
		for _, item := range pkg.Items {
			b.AddExportPosition(carrier.ExportPosition{
				Description:         item.Description,
				CountryCodeOrigin:   item.OriginCountry,
				CustomsTariffNumber: item.HSCode,
				Amount:              int(item.Qty),
				NetWeightKG:         WeightInKG(item.Weight, pkg.WeightUnit),
				CustomsValue:        item.Value,
			})
		}
	}
}

// MapCancellation returns the shipment number to cancel.
func MapCancellation(req *shipment.CancellationRequest) (string, error) {
	number := strings.TrimSpace(req.TrackNumber)
	if number == "" {
		return "", shipment.NewMappingError("track_number", "The shipment number is missing.")
	}
	return number, nil
}

// IsMappingFault reports whether err is a recoverable per-item mapping fault.
func IsMappingFault(err error) bool {
	var mappingErr *shipment.MappingError
	return errors.As(err, &mappingErr)
}

func countrySet(countries []string) map[string]struct{} {
	set := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		set[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return set
}
