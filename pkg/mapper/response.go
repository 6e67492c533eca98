package mapper

import (
	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

// LabelResponse maps a created carrier shipment to a uniform label result.
func LabelResponse(index string, req *shipment.ShipmentRequest, created carrier.CreatedShipment) shipment.LabelResponse {
	resp := shipment.LabelResponse{
		RequestIndex:         index,
		OrderRef:             req.Order.IncrementID,
		ShipmentRef:          req.ShipmentRef,
		TrackingNumber:       created.ShipmentNumber,
		ReturnTrackingNumber: created.ReturnShipmentNumber,
		LabelContent:         created.Label,
	}
	for _, doc := range [][]byte{created.ExportLabel, created.ReturnLabel, created.CODLabel} {
		if len(doc) > 0 {
			resp.Documents = append(resp.Documents, doc)
		}
	}
	return resp
}

// TrackResponse maps a cancelled shipment to a uniform track result. number
// is the shipment number sent to the carrier.
func TrackResponse(index, number string, req *shipment.CancellationRequest) shipment.TrackResponse {
	return shipment.TrackResponse{
		RequestIndex: index,
		TrackNumber:  number,
		ShipmentRef:  req.ShipmentRef,
		TrackRef:     req.TrackRef,
	}
}
