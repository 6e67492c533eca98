package mapper_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/mapper"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

func testSettings() shipment.StoreSettings {
	return shipment.StoreSettings{
		StoreID:       1,
		AccountNumber: "2222222222",
		Participations: map[string]string{
			carrier.ProductParcel:              "01",
			carrier.ProductParcelInternational: "02",
			mapper.ReturnParticipationKey:      "03",
		},
		CutOffTime: "14:00",
	}
}

func testRequest(country string) *shipment.ShipmentRequest {
	return &shipment.ShipmentRequest{
		RequestIndex: "0",
		StoreID:      1,
		ShipmentRef:  "S-1",
		ShipDate:     time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Order:        shipment.Order{IncrementID: "100000001", GrandTotal: 119.0, Currency: "EUR", QtyOrdered: 2},
		Shipper: shipment.Address{
			Name: "Shop", Company: "Shop GmbH", Street: "Nonnenstraße", StreetNumber: "11",
			PostalCode: "04229", City: "Leipzig", CountryCode: "DE", Email: "shop@example.com",
		},
		Recipient: shipment.Address{
			Name: "Jane Doe", Street: "Main Street", StreetNumber: "5",
			PostalCode: "10001", City: "New York", CountryCode: country, Email: "jane@example.com",
		},
		Packages: []*shipment.Package{{
			Weight:        1500,
			WeightUnit:    shipment.WeightG,
			Length:        300,
			Width:         200,
			Height:        100,
			DimensionUnit: shipment.DimensionMM,
			ProductCode:   carrier.ProductParcel,
			Items: []shipment.PackageItem{
				{Qty: 2, Description: "Shirt", Value: 25, Weight: 300, HSCode: "61091000", OriginCountry: "DE"},
			},
			Customs: &shipment.Customs{ContentType: "COMMERCIAL_GOODS", PlaceOfCommittal: "Leipzig", TermsOfTrade: "DDU"},
		}},
	}
}

func TestRequestMapper_Map(t *testing.T) {
	m := mapper.NewRequestMapper(testSettings())
	req := testRequest("DE")

	order, err := m.Map("0", req)
	require.NoError(t, err)

	assert.Equal(t, "0", order.SequenceNumber)
	assert.Equal(t, "0", req.Packages[0].SequenceNumber, "sequence number is stamped on the package")
	assert.Equal(t, carrier.ProductParcel, order.Details.Product)
	assert.Equal(t, "22222222220101", order.Details.BillingNumber)
	assert.Equal(t, "2024-03-04", order.Details.ShipmentDate)
	assert.Equal(t, "100000001", order.Details.CustomerReference)
	assert.Equal(t, "Shop", order.Shipper.Name1)
	assert.Equal(t, "Shop GmbH", order.Shipper.Name2)

	require.Len(t, order.Details.Pieces, 1)
	assert.InDelta(t, 1.5, order.Details.Pieces[0].WeightKG, 0.0001)
	assert.Equal(t, &carrier.Dimensions{Length: 30, Width: 20, Height: 10}, order.Details.Pieces[0].Dimensions)

	assert.Empty(t, order.Receiver.Email, "email is only sent with parcel announcement")
	assert.Empty(t, order.Details.NotificationEmail)
}

func TestRequestMapper_ParcelAnnouncement(t *testing.T) {
	req := testRequest("DE")
	req.Packages[0].Services.ParcelAnnouncement = true

	order, err := mapper.NewRequestMapper(testSettings()).Map("0", req)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", order.Receiver.Email)
	assert.Equal(t, "jane@example.com", order.Details.NotificationEmail)
}

func TestRequestMapper_DimensionsRequireAllThree(t *testing.T) {
	req := testRequest("DE")
	req.Packages[0].Height = 0

	order, err := mapper.NewRequestMapper(testSettings()).Map("0", req)
	require.NoError(t, err)
	assert.Nil(t, order.Details.Pieces[0].Dimensions)
}

func TestRequestMapper_CustomsOnlyOutsideEU(t *testing.T) {
	m := mapper.NewRequestMapper(testSettings())

	for _, country := range []string{"DE", "fr", "AT"} {
		order, err := m.Map("0", testRequest(country))
		require.NoError(t, err)
		assert.Nil(t, order.Export, "no customs block for %s", country)
	}

	req := testRequest("US")
	req.Packages[0].ProductCode = carrier.ProductParcelInternational
	order, err := m.Map("0", req)
	require.NoError(t, err)
	require.NotNil(t, order.Export)
	assert.Equal(t, "COMMERCIAL_GOODS", order.Export.ExportType)
	assert.Equal(t, "Leipzig", order.Export.PlaceOfCommittal)
	require.Len(t, order.Export.Positions, 1)
	assert.Equal(t, 2, order.Export.Positions[0].Amount)
	assert.Equal(t, "61091000", order.Export.Positions[0].CustomsTariffNumber)
	assert.InDelta(t, 0.3, order.Export.Positions[0].NetWeightKG, 0.0001)

	noCustoms := testRequest("US")
	noCustoms.Packages[0].ProductCode = carrier.ProductParcelInternational
	noCustoms.Packages[0].Customs = nil
	order, err = m.Map("0", noCustoms)
	require.NoError(t, err)
	assert.Nil(t, order.Export)
}

func TestRequestMapper_CustomEUSet(t *testing.T) {
	m := mapper.NewRequestMapper(testSettings(), mapper.WithEUCountries([]string{"DE"}))

	req := testRequest("FR")
	order, err := m.Map("0", req)
	require.NoError(t, err)
	assert.NotNil(t, order.Export)
}

func TestRequestMapper_Services(t *testing.T) {
	req := testRequest("DE")
	req.Order.CashOnDelivery = true
	req.Packages[0].Services = shipment.Services{
		PrintOnlyIfCodeable: true,
		AdditionalInsurance: true,
		VisualCheckOfAge:    "A18",
		BulkyGoods:          true,
		PreferredTime:       "18002000",
		PreferredDay:        "2024-03-06",
		PreferredNeighbour:  "Mrs. Smith",
		PreferredLocation:   "Garage",
		ReturnShipment:      true,
		ParcelOutletRouting: true,
	}

	order, err := mapper.NewRequestMapper(testSettings()).Map("0", req)
	require.NoError(t, err)

	s := order.Details.Services
	assert.True(t, order.PrintOnlyIfCodeable)
	require.NotNil(t, s.CashOnDelivery)
	assert.Equal(t, 119.0, s.CashOnDelivery.Value)
	require.NotNil(t, s.AdditionalInsurance)
	assert.Equal(t, 119.0, s.AdditionalInsurance.Value)
	assert.Equal(t, "A18", s.VisualCheckOfAge)
	assert.True(t, s.BulkyGoods)
	assert.Equal(t, "18002000", s.PreferredTime)
	assert.Equal(t, "2024-03-06", s.PreferredDay)
	assert.Equal(t, "Mrs. Smith", s.PreferredNeighbour)
	assert.Equal(t, "Garage", s.PreferredLocation)
	assert.Equal(t, "jane@example.com", s.ParcelOutletRouting)

	require.NotNil(t, order.ReturnReceiver)
	assert.Equal(t, "Shop", order.ReturnReceiver.Name1, "return receiver falls back to the shipper")
	assert.Equal(t, "22222222220703", order.Details.ReturnBillingNumber)
}

func TestRequestMapper_ReturnAddressFromSettings(t *testing.T) {
	settings := testSettings()
	settings.ReturnAddress = &shipment.Address{
		Name: "Returns", Street: "Hafenstraße", StreetNumber: "1", PostalCode: "20457", City: "Hamburg", CountryCode: "DE",
	}
	req := testRequest("DE")
	req.Packages[0].Services.ReturnShipment = true

	order, err := mapper.NewRequestMapper(settings).Map("0", req)
	require.NoError(t, err)
	require.NotNil(t, order.ReturnReceiver)
	assert.Equal(t, "Returns", order.ReturnReceiver.Name1)
	assert.Equal(t, "Hamburg", order.ReturnReceiver.City)
}

func TestRequestMapper_ParcelLocker(t *testing.T) {
	req := testRequest("DE")
	req.Packages[0].Services.ParcelLocker = "139|de|04229|Leipzig"
	req.Packages[0].Services.PostNumber = "12345678"

	order, err := mapper.NewRequestMapper(testSettings()).Map("0", req)
	require.NoError(t, err)
	require.NotNil(t, order.Receiver.Locker)
	assert.Equal(t, carrier.Locker{
		StationID: "139", CountryCode: "DE", PostalCode: "04229", City: "Leipzig", PostNumber: "12345678",
	}, *order.Receiver.Locker)
}

func TestRequestMapper_MappingFaults(t *testing.T) {
	tests := []struct {
		name   string
		modify func(req *shipment.ShipmentRequest)
		field  string
	}{
		{"malformed locker", func(req *shipment.ShipmentRequest) {
			req.Packages[0].Services.ParcelLocker = "139|DE|04229"
			req.Packages[0].Services.PostNumber = "12345678"
		}, "parcel_locker"},
		{"locker without post number", func(req *shipment.ShipmentRequest) {
			req.Packages[0].Services.ParcelLocker = "139|DE|04229|Leipzig"
		}, "parcel_locker"},
		{"mixed products", func(req *shipment.ShipmentRequest) {
			second := *req.Packages[0]
			second.ProductCode = carrier.ProductParcelEurope
			req.Packages = append(req.Packages, &second)
		}, "product"},
		{"missing participation", func(req *shipment.ShipmentRequest) {
			req.Packages[0].ProductCode = carrier.ProductParcelEurope
		}, "billing_number"},
		{"missing recipient city", func(req *shipment.ShipmentRequest) {
			req.Recipient.City = ""
		}, "receiver.city"},
		{"zero weight", func(req *shipment.ShipmentRequest) {
			req.Packages[0].Weight = 0
		}, "weight"},
		{"no packages", func(req *shipment.ShipmentRequest) {
			req.Packages = nil
		}, "packages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest("DE")
			tt.modify(req)

			_, err := mapper.NewRequestMapper(testSettings()).Map("0", req)
			require.Error(t, err)
			assert.True(t, mapper.IsMappingFault(err))

			var mappingErr *shipment.MappingError
			require.True(t, errors.As(err, &mappingErr))
			assert.Equal(t, tt.field, mappingErr.Field)
		})
	}
}

func TestRequestMapper_ShipDateCutOff(t *testing.T) {
	settings := testSettings()
	berlin := time.FixedZone("CET", 3600)

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"before cut-off", time.Date(2024, 3, 4, 9, 0, 0, 0, berlin), "2024-03-04"},
		{"after cut-off", time.Date(2024, 3, 4, 15, 0, 0, 0, berlin), "2024-03-05"},
		{"saturday after cut-off moves to monday", time.Date(2024, 3, 9, 15, 0, 0, 0, berlin), "2024-03-11"},
		{"sunday moves to monday", time.Date(2024, 3, 10, 9, 0, 0, 0, berlin), "2024-03-11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			m := mapper.NewRequestMapper(settings, mapper.WithClock(func() time.Time { return now }))

			req := testRequest("DE")
			req.ShipDate = time.Time{}

			order, err := m.Map("0", req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, order.Details.ShipmentDate)
		})
	}
}

func TestMapCancellation(t *testing.T) {
	number, err := mapper.MapCancellation(&shipment.CancellationRequest{TrackNumber: " 222201010000001 "})
	require.NoError(t, err)
	assert.Equal(t, "222201010000001", number)

	_, err = mapper.MapCancellation(&shipment.CancellationRequest{})
	require.Error(t, err)
	assert.True(t, mapper.IsMappingFault(err))
}

func TestUnitConversion(t *testing.T) {
	assert.InDelta(t, 1.0, mapper.WeightInKG(1000, shipment.WeightG), 0.0001)
	assert.InDelta(t, 0.4536, mapper.WeightInKG(1, shipment.WeightLB), 0.0001)
	assert.InDelta(t, 0.2835, mapper.WeightInKG(10, shipment.WeightOZ), 0.0001)
	assert.InDelta(t, 2.0, mapper.WeightInKG(2, shipment.WeightKG), 0.0001)

	assert.Equal(t, 31, mapper.LengthInCM(12, shipment.DimensionIN))
	assert.Equal(t, 5, mapper.LengthInCM(45, shipment.DimensionMM))
	assert.Equal(t, 20, mapper.LengthInCM(20, shipment.DimensionCM))
}
