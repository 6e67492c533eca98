package carrier_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

const createResponseTmpl = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:bcs="http://dhl.de/webservices/businesscustomershipping/3.0">
  <soap:Body>
    <bcs:CreateShipmentOrderResponse>
      <bcs:Version><majorRelease>3</majorRelease><minorRelease>1</minorRelease></bcs:Version>
      <Status><statusCode>0</statusCode><statusText>ok</statusText></Status>
      <CreationState>
        <sequenceNumber>0</sequenceNumber>
        <shipmentNumber>222201010000001</shipmentNumber>
        <LabelData>
          <Status><statusCode>0</statusCode><statusText>ok</statusText></Status>
          <labelData>` + "%s" + `</labelData>
        </LabelData>
      </CreationState>
      <CreationState>
        <sequenceNumber>1</sequenceNumber>
        <LabelData>
          <Status><statusCode>1101</statusCode><statusText>Hard validation error occured.</statusText></Status>
        </LabelData>
      </CreationState>
    </bcs:CreateShipmentOrderResponse>
  </soap:Body>
</soap:Envelope>`

const rejectedResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <CreateShipmentOrderResponse>
      <Status><statusCode>1101</statusCode><statusText>Hard validation error occured.</statusText></Status>
      <CreationState>
        <sequenceNumber>0</sequenceNumber>
        <LabelData>
          <Status>
            <statusCode>1101</statusCode>
            <statusMessage>Die Postleitzahl konnte nicht gefunden werden.</statusMessage>
          </Status>
        </LabelData>
      </CreationState>
    </CreateShipmentOrderResponse>
  </soap:Body>
</soap:Envelope>`

const deleteResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <DeleteShipmentOrderResponse>
      <Status><statusCode>0</statusCode><statusText>ok</statusText></Status>
      <DeletionState><shipmentNumber>111</shipmentNumber><Status><statusCode>0</statusCode></Status></DeletionState>
      <DeletionState><shipmentNumber>222</shipmentNumber><Status><statusCode>2000</statusCode></Status></DeletionState>
    </DeleteShipmentOrderResponse>
  </soap:Body>
</soap:Envelope>`

const faultResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault><faultcode>soap:Server</faultcode><faultstring>Internal error</faultstring></soap:Fault>
  </soap:Body>
</soap:Envelope>`

func newSOAPClient(url string) *carrier.SOAPAPIClient {
	return carrier.NewSOAPAPIClient(carrier.SOAPAPIClientConfig{
		Endpoint: url,
		Username: "user",
		Password: "pass",
		Timeout:  5 * time.Second,
	})
}

func testOrder(t *testing.T, seq string) carrier.ShipmentOrder {
	t.Helper()
	order, err := validBuilder().SetSequenceNumber(seq).Build()
	require.NoError(t, err)
	return order
}

func TestSOAPAPIClient_CreateShipments(t *testing.T) {
	label := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 label"))
	var body string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "pass", pass)
		assert.Equal(t, "urn:createShipmentOrder", r.Header.Get("SOAPAction"))

		raw, _ := io.ReadAll(r.Body)
		body = string(raw)

		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, fmt.Sprintf(createResponseTmpl, label))
	}))
	defer server.Close()

	client := newSOAPClient(server.URL)
	created, err := client.CreateShipments(context.Background(), []carrier.ShipmentOrder{
		testOrder(t, "0"),
		testOrder(t, "1"),
	})

	require.NoError(t, err)
	require.Len(t, created, 1, "orders with a failed item status are omitted")
	assert.Equal(t, "0", created[0].SequenceNumber)
	assert.Equal(t, "222201010000001", created[0].ShipmentNumber)
	assert.Equal(t, []byte("%PDF-1.4 label"), created[0].Label)

	assert.Contains(t, body, "<soapenv:Envelope")
	assert.Contains(t, body, "<CreateShipmentOrderRequest")
	assert.Contains(t, body, "<sequenceNumber>1</sequenceNumber>")
	assert.Contains(t, body, "<accountNumber>22222222220101</accountNumber>")
	assert.Contains(t, body, "<weightInKG>1.50</weightInKG>")
}

func TestSOAPAPIClient_CreateShipments_AmountServices(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = io.WriteString(w, fmt.Sprintf(createResponseTmpl, ""))
	}))
	defer server.Close()

	order, err := validBuilder().
		SetSequenceNumber("0").
		SetCashOnDelivery(49.9, "EUR").
		SetInsuredValue(500, "EUR").
		Build()
	require.NoError(t, err)

	_, err = newSOAPClient(server.URL).CreateShipments(context.Background(), []carrier.ShipmentOrder{order})
	require.NoError(t, err)

	assert.Contains(t, body, `<CashOnDelivery active="1" codAmount="49.90">`)
	assert.Contains(t, body, `<AdditionalInsurance active="1" insuranceAmount="500.00">`)
	assert.NotContains(t, body, `<AdditionalInsurance active="1" codAmount`)
}

func TestSOAPAPIClient_CreateShipments_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, rejectedResponse)
	}))
	defer server.Close()

	_, err := newSOAPClient(server.URL).CreateShipments(context.Background(), []carrier.ShipmentOrder{testOrder(t, "0")})
	require.Error(t, err)

	var detailed *shipment.DetailedServiceError
	require.True(t, errors.As(err, &detailed))
	assert.Equal(t, "1101", detailed.Code)
	assert.Equal(t, "Hard validation error occured. Die Postleitzahl konnte nicht gefunden werden.", detailed.Error())
	assert.False(t, shipment.IsRetryable(err))
}

func TestSOAPAPIClient_Fault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, faultResponse)
	}))
	defer server.Close()

	_, err := newSOAPClient(server.URL).CreateShipments(context.Background(), []carrier.ShipmentOrder{testOrder(t, "0")})
	require.Error(t, err)

	var serviceErr *shipment.ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "soap:Server", serviceErr.Code)
	assert.Equal(t, "Internal error", serviceErr.Message)
	assert.True(t, serviceErr.Retryable)
}

func TestSOAPAPIClient_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newSOAPClient(server.URL).CancelShipments(context.Background(), []string{"111"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipment.ErrAuthenticationFailed))
	assert.False(t, shipment.IsRetryable(err))
}

func TestSOAPAPIClient_CancelShipments(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = io.WriteString(w, deleteResponse)
	}))
	defer server.Close()

	cancelled, err := newSOAPClient(server.URL).CancelShipments(context.Background(), []string{"111", "222"})
	require.NoError(t, err)
	assert.Equal(t, []string{"111"}, cancelled)
	assert.Contains(t, body, "<DeleteShipmentOrderRequest")
	assert.Contains(t, body, "<shipmentNumber>222</shipmentNumber>")
}
