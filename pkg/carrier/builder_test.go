package carrier_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

func testAddress(name string) carrier.Address {
	return carrier.Address{
		Name1:        name,
		Street:       "Charles-de-Gaulle-Str.",
		StreetNumber: "20",
		PostalCode:   "53113",
		City:         "Bonn",
		CountryCode:  "DE",
	}
}

func validBuilder() *carrier.OrderBuilder {
	return carrier.NewOrderBuilder().
		SetSequenceNumber("0").
		SetProduct(carrier.ProductParcel).
		SetBillingNumber(carrier.BillingNumber("2222222222", carrier.ProductParcel, "01")).
		SetShipmentDate(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)).
		SetShipper(testAddress("Shop GmbH")).
		SetReceiver(testAddress("Jane Doe")).
		AddPiece(1.5, nil)
}

func TestOrderBuilder_Build(t *testing.T) {
	order, err := validBuilder().
		SetCustomerReference("100000001").
		SetCashOnDelivery(49.9, "EUR").
		SetPreferredDay("2024-03-06").
		Build()

	require.NoError(t, err)
	assert.Equal(t, "0", order.SequenceNumber)
	assert.Equal(t, "22222222220101", order.Details.BillingNumber)
	assert.Equal(t, "2024-03-04", order.Details.ShipmentDate)
	assert.Equal(t, "100000001", order.Details.CustomerReference)
	require.NotNil(t, order.Details.Services.CashOnDelivery)
	assert.Equal(t, 49.9, order.Details.Services.CashOnDelivery.Value)
	assert.Equal(t, "2024-03-06", order.Details.Services.PreferredDay)
	assert.Len(t, order.Details.Pieces, 1)
}

func TestOrderBuilder_ResetsAfterBuild(t *testing.T) {
	b := validBuilder().SetBulkyGoods()
	_, err := b.Build()
	require.NoError(t, err)

	_, err = b.Build()
	require.Error(t, err)
}

func TestOrderBuilder_RequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		build func() *carrier.OrderBuilder
		field string
	}{
		{"missing product", func() *carrier.OrderBuilder { return validBuilder().SetProduct("") }, "product"},
		{"unknown product", func() *carrier.OrderBuilder { return validBuilder().SetProduct("X99") }, "product"},
		{"zero weight", func() *carrier.OrderBuilder { return validBuilder().AddPiece(0, nil) }, "weight"},
		{"missing receiver city", func() *carrier.OrderBuilder {
			addr := testAddress("Jane Doe")
			addr.City = ""
			return validBuilder().SetReceiver(addr)
		}, "receiver.city"},
		{"missing shipper street", func() *carrier.OrderBuilder {
			addr := testAddress("Shop GmbH")
			addr.Street = ""
			return validBuilder().SetShipper(addr)
		}, "shipper.street"},
		{"incomplete locker", func() *carrier.OrderBuilder {
			return validBuilder().SetParcelLocker(carrier.Locker{StationID: "123"})
		}, "receiver.locker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			require.Error(t, err)

			var mappingErr *shipment.MappingError
			require.True(t, errors.As(err, &mappingErr))
			assert.Equal(t, tt.field, mappingErr.Field)
		})
	}
}

func TestOrderBuilder_LockerSkipsStreetCheck(t *testing.T) {
	order, err := validBuilder().
		SetReceiver(carrier.Address{Name1: "Jane Doe"}).
		SetParcelLocker(carrier.Locker{StationID: "139", PostalCode: "04229", City: "Leipzig", CountryCode: "DE"}).
		Build()

	require.NoError(t, err)
	require.NotNil(t, order.Receiver.Locker)
	assert.Equal(t, "139", order.Receiver.Locker.StationID)
}

func TestOrderBuilder_ExportDocument(t *testing.T) {
	_, err := validBuilder().
		SetExportDocument(carrier.ExportDocument{ExportType: "OTHER"}).
		Build()
	require.Error(t, err)

	order, err := validBuilder().
		AddExportPosition(carrier.ExportPosition{Description: "Shirt", Amount: 2, CustomsValue: 20}).
		SetExportDocument(carrier.ExportDocument{ExportType: "OTHER", PlaceOfCommittal: "Bonn"}).
		Build()
	require.NoError(t, err)
	require.NotNil(t, order.Export)
	assert.Equal(t, "OTHER", order.Export.ExportType)
	assert.Len(t, order.Export.Positions, 1)
}

func TestBillingNumbers(t *testing.T) {
	assert.Equal(t, "22222222225301", carrier.BillingNumber("2222222222", carrier.ProductParcelInternational, "01"))
	assert.Equal(t, "22222222220701", carrier.ReturnBillingNumber("2222222222", "01"))
	assert.True(t, carrier.IsLightweight(carrier.ProductLightweight))
	assert.False(t, carrier.IsLightweight(carrier.ProductParcel))
}
