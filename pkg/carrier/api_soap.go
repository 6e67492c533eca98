package carrier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/tournevent/labelbridge/pkg/shipment"
)

const (
	apiMajorRelease = "3"
	apiMinorRelease = "1"
	labelNamespace  = "http://dhl.de/webservices/businesscustomershipping/3.0"
)

// SOAPAPIClient is the production implementation of APIClient using SOAP.
type SOAPAPIClient struct {
	endpoint   string
	username   string
	password   string
	httpClient *http.Client
}

// SOAPAPIClientConfig holds configuration for the SOAP client.
type SOAPAPIClientConfig struct {
	Endpoint string
	Username string
	Password string
	Timeout  time.Duration
}

// NewSOAPAPIClient creates a new SOAP-based API client for production use.
func NewSOAPAPIClient(cfg SOAPAPIClientConfig) *SOAPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &SOAPAPIClient{
		endpoint: cfg.Endpoint,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateShipments sends a createShipmentOrder request for all orders.
func (c *SOAPAPIClient) CreateShipments(ctx context.Context, orders []ShipmentOrder) ([]CreatedShipment, error) {
	req := createShipmentOrderRequest{
		XMLNS:             labelNamespace,
		Version:           xmlVersion{Major: apiMajorRelease, Minor: apiMinorRelease},
		LabelResponseType: "B64",
	}
	for _, o := range orders {
		req.ShipmentOrders = append(req.ShipmentOrders, toXMLOrder(o))
	}

	env, err := c.call(ctx, "createShipmentOrder", req)
	if err != nil {
		return nil, err
	}
	resp := env.Body.CreateResponse
	if resp == nil {
		return nil, shipment.NewServiceError("PARSE_ERROR", "missing CreateShipmentOrderResponse")
	}
	if resp.Status.Code != 0 {
		return nil, detailedError(resp.Status, creationMessages(resp.CreationStates))
	}

	created := make([]CreatedShipment, 0, len(resp.CreationStates))
	for _, state := range resp.CreationStates {
		if state.LabelData.Status.Code != 0 {
			continue
		}
		cs := CreatedShipment{
			SequenceNumber:       state.SequenceNumber,
			ShipmentNumber:       state.ShipmentNumber,
			ReturnShipmentNumber: state.ReturnShipmentNumber,
		}
		if cs.Label, err = decodeLabel(state.LabelData.LabelData); err != nil {
			return nil, err
		}
		if cs.ReturnLabel, err = decodeLabel(state.LabelData.ReturnLabelData); err != nil {
			return nil, err
		}
		if cs.ExportLabel, err = decodeLabel(state.LabelData.ExportLabelData); err != nil {
			return nil, err
		}
		if cs.CODLabel, err = decodeLabel(state.LabelData.CODLabelData); err != nil {
			return nil, err
		}
		created = append(created, cs)
	}
	return created, nil
}

// CancelShipments sends a deleteShipmentOrder request for all numbers.
func (c *SOAPAPIClient) CancelShipments(ctx context.Context, shipmentNumbers []string) ([]string, error) {
	req := deleteShipmentOrderRequest{
		XMLNS:           labelNamespace,
		Version:         xmlVersion{Major: apiMajorRelease, Minor: apiMinorRelease},
		ShipmentNumbers: shipmentNumbers,
	}

	env, err := c.call(ctx, "deleteShipmentOrder", req)
	if err != nil {
		return nil, err
	}
	resp := env.Body.DeleteResponse
	if resp == nil {
		return nil, shipment.NewServiceError("PARSE_ERROR", "missing DeleteShipmentOrderResponse")
	}
	if resp.Status.Code != 0 {
		var msgs []string
		for _, state := range resp.DeletionStates {
			msgs = append(msgs, state.Status.Messages...)
		}
		return nil, detailedError(resp.Status, msgs)
	}

	cancelled := make([]string, 0, len(resp.DeletionStates))
	for _, state := range resp.DeletionStates {
		if state.Status.Code == 0 {
			cancelled = append(cancelled, state.ShipmentNumber)
		}
	}
	return cancelled, nil
}

// ============================================================================
// HTTP Helpers
// ============================================================================

func (c *SOAPAPIClient) call(ctx context.Context, action string, payload any) (*soapEnvelope, error) {
	body, err := c.buildEnvelope(payload)
	if err != nil {
		return nil, shipment.NewServiceError("BUILD_ERROR", "failed to build request").WithCause(err)
	}

	resp, err := c.doSOAPRequest(ctx, action, body)
	if err != nil {
		return nil, shipment.NewServiceError("TRANSPORT", "request failed").
			WithCause(err).
			WithRetryable(!errors.Is(err, context.Canceled))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, shipment.NewServiceError("TRANSPORT", "failed to read response").
			WithCause(err).
			WithRetryable(true)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseSOAPError(resp.StatusCode, raw)
	}

	var env soapEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, shipment.NewServiceError("PARSE_ERROR", "failed to parse response").WithCause(err)
	}
	if env.Body.Fault != nil {
		return nil, shipment.NewServiceError(env.Body.Fault.Code, env.Body.Fault.String)
	}
	return &env, nil
}

func (c *SOAPAPIClient) doSOAPRequest(ctx context.Context, action string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "urn:"+action)

	return c.httpClient.Do(req)
}

func (c *SOAPAPIClient) parseSOAPError(statusCode int, body []byte) error {
	var env soapEnvelope
	if err := xml.Unmarshal(body, &env); err == nil && env.Body.Fault != nil {
		return shipment.NewServiceError(env.Body.Fault.Code, env.Body.Fault.String).
			WithStatusCode(statusCode).
			WithRetryable(statusCode >= 500)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return shipment.NewServiceError("AUTH", "authentication failed").
			WithStatusCode(statusCode).
			WithCause(shipment.ErrAuthenticationFailed)
	case statusCode >= 500:
		return shipment.NewServiceError(fmt.Sprintf("HTTP_%d", statusCode), string(body)).
			WithStatusCode(statusCode).
			WithCause(shipment.ErrServiceUnavailable).
			WithRetryable(true)
	default:
		return shipment.NewServiceError(fmt.Sprintf("HTTP_%d", statusCode), string(body)).
			WithStatusCode(statusCode)
	}
}

func detailedError(status xmlStatus, itemMessages []string) error {
	msgs := make([]string, 0, 1+len(status.Messages)+len(itemMessages))
	if status.Text != "" {
		msgs = append(msgs, status.Text)
	}
	msgs = append(msgs, status.Messages...)
	msgs = append(msgs, itemMessages...)
	return &shipment.DetailedServiceError{Code: strconv.Itoa(status.Code), Messages: msgs}
}

func creationMessages(states []creationState) []string {
	var msgs []string
	for _, state := range states {
		msgs = append(msgs, state.LabelData.Status.Messages...)
	}
	return msgs
}

func decodeLabel(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, shipment.NewServiceError("PARSE_ERROR", "invalid label data").WithCause(err)
	}
	return b, nil
}

// ============================================================================
// SOAP Request Builders
// ============================================================================

const soapEnvelopeTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:cis="http://dhl.de/webservice/cisbase">
  <soapenv:Header>
    <cis:Authentification>
      <cis:user>{{.User}}</cis:user>
      <cis:signature>{{.Signature}}</cis:signature>
    </cis:Authentification>
  </soapenv:Header>
  <soapenv:Body>
    {{.Body}}
  </soapenv:Body>
</soapenv:Envelope>`

var envelopeTmpl = template.Must(template.New("envelope").Parse(soapEnvelopeTemplate))

func (c *SOAPAPIClient) buildEnvelope(payload any) ([]byte, error) {
	body, err := xml.Marshal(payload)
	if err != nil {
		return nil, err
	}

	envData := struct {
		User      string
		Signature string
		Body      string
	}{
		User:      xmlText(c.username),
		Signature: xmlText(c.password),
		Body:      string(body),
	}

	var envBuf bytes.Buffer
	if err := envelopeTmpl.Execute(&envBuf, envData); err != nil {
		return nil, err
	}
	return envBuf.Bytes(), nil
}

func xmlText(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func toXMLOrder(o ShipmentOrder) xmlShipmentOrder {
	d := o.Details
	x := xmlShipmentOrder{
		SequenceNumber: o.SequenceNumber,
		Shipment: xmlShipment{
			Details: xmlShipmentDetails{
				Product:                     d.Product,
				AccountNumber:               d.BillingNumber,
				CustomerReference:           d.CustomerReference,
				ShipmentDate:                d.ShipmentDate,
				ReturnShipmentAccountNumber: d.ReturnBillingNumber,
			},
			Shipper:  toXMLShipper(o.Shipper),
			Receiver: toXMLReceiver(o.Receiver),
		},
	}

	for _, p := range d.Pieces {
		item := xmlShipmentItem{WeightInKG: formatDecimal(p.WeightKG)}
		if p.Dimensions != nil {
			item.LengthInCM = strconv.Itoa(p.Dimensions.Length)
			item.WidthInCM = strconv.Itoa(p.Dimensions.Width)
			item.HeightInCM = strconv.Itoa(p.Dimensions.Height)
		}
		x.Shipment.Details.ShipmentItems = append(x.Shipment.Details.ShipmentItems, item)
	}

	if d.NotificationEmail != "" {
		x.Shipment.Details.Notification = &xmlNotification{RecipientEmailAddress: d.NotificationEmail}
	}

	x.Shipment.Details.Service = toXMLServices(d.Services)

	if o.ReturnReceiver != nil {
		rr := toXMLShipper(*o.ReturnReceiver)
		x.Shipment.ReturnReceiver = &rr
	}

	if o.Export != nil {
		x.Shipment.ExportDocument = toXMLExport(*o.Export)
	}

	if o.PrintOnlyIfCodeable {
		x.PrintOnlyIfCodeable = &xmlActive{Active: "1"}
	}

	return x
}

func toXMLShipper(a Address) xmlShipper {
	return xmlShipper{
		Name: xmlName{Name1: a.Name1, Name2: a.Name2},
		Address: xmlNativeAddress{
			StreetName:      a.Street,
			StreetNumber:    a.StreetNumber,
			AddressAddition: a.Addition,
			Zip:             a.PostalCode,
			City:            a.City,
			Province:        a.State,
			Origin:          xmlOrigin{CountryISOCode: a.CountryCode},
		},
		Communication: xmlCommunication{Phone: a.Phone, Email: a.Email},
	}
}

func toXMLReceiver(r Receiver) xmlReceiver {
	x := xmlReceiver{Name1: r.Name1}
	if r.Locker != nil {
		x.Packstation = &xmlPackstation{
			PostNumber:        r.Locker.PostNumber,
			PackstationNumber: r.Locker.StationID,
			Zip:               r.Locker.PostalCode,
			City:              r.Locker.City,
			Origin:            xmlOrigin{CountryISOCode: r.Locker.CountryCode},
		}
	} else {
		x.Address = &xmlNativeAddress{
			Name2:           r.Name2,
			StreetName:      r.Street,
			StreetNumber:    r.StreetNumber,
			AddressAddition: r.Addition,
			Zip:             r.PostalCode,
			City:            r.City,
			Province:        r.State,
			Origin:          xmlOrigin{CountryISOCode: r.CountryCode},
		}
	}
	x.Communication = xmlCommunication{Phone: r.Phone, Email: r.Email}
	return x
}

func toXMLServices(s Services) *xmlServices {
	x := &xmlServices{}
	empty := true
	if s.CashOnDelivery != nil {
		x.CashOnDelivery = &xmlAmountService{Active: "1", Amount: formatDecimal(s.CashOnDelivery.Value)}
		empty = false
	}
	if s.AdditionalInsurance != nil {
		x.AdditionalInsurance = &xmlInsuranceService{Active: "1", Amount: formatDecimal(s.AdditionalInsurance.Value)}
		empty = false
	}
	if s.VisualCheckOfAge != "" {
		x.VisualCheckOfAge = &xmlTypedService{Active: "1", Type: s.VisualCheckOfAge}
		empty = false
	}
	if s.BulkyGoods {
		x.BulkyGoods = &xmlActive{Active: "1"}
		empty = false
	}
	if s.PreferredTime != "" {
		x.PreferredTime = &xmlTypedService{Active: "1", Type: s.PreferredTime}
		empty = false
	}
	if s.PreferredDay != "" {
		x.PreferredDay = &xmlDetailsService{Active: "1", Details: s.PreferredDay}
		empty = false
	}
	if s.PreferredNeighbour != "" {
		x.PreferredNeighbour = &xmlDetailsService{Active: "1", Details: s.PreferredNeighbour}
		empty = false
	}
	if s.PreferredLocation != "" {
		x.PreferredLocation = &xmlDetailsService{Active: "1", Details: s.PreferredLocation}
		empty = false
	}
	if s.ParcelOutletRouting != "" {
		x.ParcelOutletRouting = &xmlDetailsService{Active: "1", Details: s.ParcelOutletRouting}
		empty = false
	}
	if empty {
		return nil
	}
	return x
}

func toXMLExport(e ExportDocument) *xmlExportDocument {
	x := &xmlExportDocument{
		ExportType:            e.ExportType,
		ExportTypeDescription: e.ExportTypeDescription,
		TermsOfTrade:          e.TermsOfTrade,
		PlaceOfCommital:       e.PlaceOfCommittal,
		AdditionalFee:         formatDecimal(e.AdditionalFee),
		PermitNumber:          e.PermitNumber,
		AttestationNumber:     e.AttestationNumber,
	}
	if e.ElectronicExportNotification {
		x.WithElectronicExportNtfctn = &xmlActive{Active: "1"}
	}
	for _, p := range e.Positions {
		x.Positions = append(x.Positions, xmlExportPosition{
			Description:         p.Description,
			CountryCodeOrigin:   p.CountryCodeOrigin,
			CustomsTariffNumber: p.CustomsTariffNumber,
			Amount:              p.Amount,
			NetWeightInKG:       formatDecimal(p.NetWeightKG),
			CustomsValue:        formatDecimal(p.CustomsValue),
		})
	}
	return x
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ============================================================================
// SOAP Request - XML Types
// ============================================================================

type xmlVersion struct {
	Major string `xml:"majorRelease"`
	Minor string `xml:"minorRelease"`
}

type createShipmentOrderRequest struct {
	XMLName           xml.Name           `xml:"CreateShipmentOrderRequest"`
	XMLNS             string             `xml:"xmlns,attr"`
	Version           xmlVersion         `xml:"Version"`
	ShipmentOrders    []xmlShipmentOrder `xml:"ShipmentOrder"`
	LabelResponseType string             `xml:"labelResponseType"`
}

type deleteShipmentOrderRequest struct {
	XMLName         xml.Name   `xml:"DeleteShipmentOrderRequest"`
	XMLNS           string     `xml:"xmlns,attr"`
	Version         xmlVersion `xml:"Version"`
	ShipmentNumbers []string   `xml:"shipmentNumber"`
}

type xmlShipmentOrder struct {
	SequenceNumber      string      `xml:"sequenceNumber"`
	Shipment            xmlShipment `xml:"Shipment"`
	PrintOnlyIfCodeable *xmlActive  `xml:"PrintOnlyIfCodeable,omitempty"`
}

type xmlShipment struct {
	Details        xmlShipmentDetails `xml:"ShipmentDetails"`
	Shipper        xmlShipper         `xml:"Shipper"`
	Receiver       xmlReceiver        `xml:"Receiver"`
	ReturnReceiver *xmlShipper        `xml:"ReturnReceiver,omitempty"`
	ExportDocument *xmlExportDocument `xml:"ExportDocument,omitempty"`
}

type xmlShipmentDetails struct {
	Product                     string            `xml:"product"`
	AccountNumber               string            `xml:"accountNumber"`
	CustomerReference           string            `xml:"customerReference,omitempty"`
	ShipmentDate                string            `xml:"shipmentDate"`
	ReturnShipmentAccountNumber string            `xml:"returnShipmentAccountNumber,omitempty"`
	ShipmentItems               []xmlShipmentItem `xml:"ShipmentItem"`
	Service                     *xmlServices      `xml:"Service,omitempty"`
	Notification                *xmlNotification  `xml:"Notification,omitempty"`
}

type xmlShipmentItem struct {
	WeightInKG string `xml:"weightInKG"`
	LengthInCM string `xml:"lengthInCM,omitempty"`
	WidthInCM  string `xml:"widthInCM,omitempty"`
	HeightInCM string `xml:"heightInCM,omitempty"`
}

type xmlServices struct {
	PreferredLocation   *xmlDetailsService   `xml:"PreferredLocation,omitempty"`
	PreferredNeighbour  *xmlDetailsService   `xml:"PreferredNeighbour,omitempty"`
	PreferredDay        *xmlDetailsService   `xml:"PreferredDay,omitempty"`
	PreferredTime       *xmlTypedService     `xml:"PreferredTime,omitempty"`
	VisualCheckOfAge    *xmlTypedService     `xml:"VisualCheckOfAge,omitempty"`
	ParcelOutletRouting *xmlDetailsService   `xml:"ParcelOutletRouting,omitempty"`
	CashOnDelivery      *xmlAmountService    `xml:"CashOnDelivery,omitempty"`
	AdditionalInsurance *xmlInsuranceService `xml:"AdditionalInsurance,omitempty"`
	BulkyGoods          *xmlActive           `xml:"BulkyGoods,omitempty"`
}

type xmlActive struct {
	Active string `xml:"active,attr"`
}

type xmlTypedService struct {
	Active string `xml:"active,attr"`
	Type   string `xml:"type,attr"`
}

type xmlDetailsService struct {
	Active  string `xml:"active,attr"`
	Details string `xml:"details,attr"`
}

type xmlAmountService struct {
	Active string `xml:"active,attr"`
	Amount string `xml:"codAmount,attr"`
}

type xmlInsuranceService struct {
	Active string `xml:"active,attr"`
	Amount string `xml:"insuranceAmount,attr"`
}

type xmlNotification struct {
	RecipientEmailAddress string `xml:"recipientEmailAddress"`
}

type xmlName struct {
	Name1 string `xml:"name1"`
	Name2 string `xml:"name2,omitempty"`
}

type xmlOrigin struct {
	CountryISOCode string `xml:"countryISOCode"`
}

type xmlNativeAddress struct {
	Name2           string    `xml:"name2,omitempty"`
	StreetName      string    `xml:"streetName"`
	StreetNumber    string    `xml:"streetNumber,omitempty"`
	AddressAddition string    `xml:"addressAddition,omitempty"`
	Zip             string    `xml:"zip"`
	City            string    `xml:"city"`
	Province        string    `xml:"province,omitempty"`
	Origin          xmlOrigin `xml:"Origin"`
}

type xmlCommunication struct {
	Phone string `xml:"phone,omitempty"`
	Email string `xml:"email,omitempty"`
}

type xmlShipper struct {
	Name          xmlName          `xml:"Name"`
	Address       xmlNativeAddress `xml:"Address"`
	Communication xmlCommunication `xml:"Communication"`
}

type xmlReceiver struct {
	Name1         string            `xml:"name1"`
	Address       *xmlNativeAddress `xml:"Address,omitempty"`
	Packstation   *xmlPackstation   `xml:"Packstation,omitempty"`
	Communication xmlCommunication  `xml:"Communication"`
}

type xmlPackstation struct {
	PostNumber        string    `xml:"postNumber,omitempty"`
	PackstationNumber string    `xml:"packstationNumber"`
	Zip               string    `xml:"zip"`
	City              string    `xml:"city"`
	Origin            xmlOrigin `xml:"Origin"`
}

type xmlExportDocument struct {
	ExportType                 string              `xml:"exportType"`
	ExportTypeDescription      string              `xml:"exportTypeDescription,omitempty"`
	TermsOfTrade               string              `xml:"termsOfTrade,omitempty"`
	PlaceOfCommital            string              `xml:"placeOfCommital"`
	AdditionalFee              string              `xml:"additionalFee"`
	PermitNumber               string              `xml:"permitNumber,omitempty"`
	AttestationNumber          string              `xml:"attestationNumber,omitempty"`
	WithElectronicExportNtfctn *xmlActive          `xml:"WithElectronicExportNtfctn,omitempty"`
	Positions                  []xmlExportPosition `xml:"ExportDocPosition"`
}

type xmlExportPosition struct {
	Description         string `xml:"description"`
	CountryCodeOrigin   string `xml:"countryCodeOrigin"`
	CustomsTariffNumber string `xml:"customsTariffNumber,omitempty"`
	Amount              int    `xml:"amount"`
	NetWeightInKG       string `xml:"netWeightInKG"`
	CustomsValue        string `xml:"customsValue"`
}

// ============================================================================
// SOAP Response Parsers - XML Types
// ============================================================================

type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	Fault          *soapFault                   `xml:"Fault,omitempty"`
	CreateResponse *createShipmentOrderResponse `xml:"CreateShipmentOrderResponse,omitempty"`
	DeleteResponse *deleteShipmentOrderResponse `xml:"DeleteShipmentOrderResponse,omitempty"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type xmlStatus struct {
	Code     int      `xml:"statusCode"`
	Text     string   `xml:"statusText"`
	Messages []string `xml:"statusMessage"`
}

type createShipmentOrderResponse struct {
	Status         xmlStatus       `xml:"Status"`
	CreationStates []creationState `xml:"CreationState"`
}

type creationState struct {
	SequenceNumber       string       `xml:"sequenceNumber"`
	ShipmentNumber       string       `xml:"shipmentNumber"`
	ReturnShipmentNumber string       `xml:"returnShipmentNumber"`
	LabelData            xmlLabelData `xml:"LabelData"`
}

type xmlLabelData struct {
	Status          xmlStatus `xml:"Status"`
	LabelData       string    `xml:"labelData"`
	ReturnLabelData string    `xml:"returnLabelData"`
	ExportLabelData string    `xml:"exportLabelData"`
	CODLabelData    string    `xml:"codLabelData"`
}

type deleteShipmentOrderResponse struct {
	Status         xmlStatus       `xml:"Status"`
	DeletionStates []deletionState `xml:"DeletionState"`
}

type deletionState struct {
	ShipmentNumber string    `xml:"shipmentNumber"`
	Status         xmlStatus `xml:"Status"`
}

var _ APIClient = (*SOAPAPIClient)(nil)
