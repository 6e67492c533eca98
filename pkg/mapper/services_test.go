package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

func TestDefaultServiceMappers_Order(t *testing.T) {
	var names []string
	for _, sm := range defaultServiceMappers() {
		names = append(names, sm.name)
	}

	assert.Equal(t, []string{
		"print_only_if_codeable",
		"cash_on_delivery",
		"additional_insurance",
		"visual_check_of_age",
		"bulky_goods",
		"preferred_time",
		"preferred_day",
		"preferred_neighbour",
		"preferred_location",
		"return_shipment",
		"parcel_outlet_routing",
		"parcel_locker",
	}, names)
}

func TestMapParcelOutletRouting(t *testing.T) {
	sc := &serviceContext{
		req: &shipment.ShipmentRequest{},
		services: shipment.Services{
			ParcelOutletRouting: true,
			ParcelOutletEmail:   "outlet@example.com",
		},
		builder: carrier.NewOrderBuilder(),
	}
	require.NoError(t, mapParcelOutletRouting(sc))

	sc.services.ParcelOutletEmail = ""
	err := mapParcelOutletRouting(sc)
	require.Error(t, err)
}

func TestParseLocker(t *testing.T) {
	locker, err := ParseLocker("139|de|04229|Leipzig")
	require.NoError(t, err)
	assert.Equal(t, "DE", locker.CountryCode)

	for _, bad := range []string{"", "139", "139|DE||Leipzig", "1|2|3|4|5"} {
		_, err := ParseLocker(bad)
		assert.Error(t, err, bad)
	}
}
