package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// ProductType enumerates what a marketplace customer can order
type ProductType string

const (
	ProductMapSnapshot    ProductType = "MAP_SNAPSHOT"
	ProductMapIframe      ProductType = "MAP_IFRAME"
	ProductLocationExport ProductType = "LOCATION_EXPORT"
	ProductAIDescription  ProductType = "AI_DESCRIPTION"
	ProductFlatRate       ProductType = "FLAT_RATE"
)

var knownProducts = map[ProductType]struct{}{
	ProductMapSnapshot:    {},
	ProductMapIframe:      {},
	ProductLocationExport: {},
	ProductAIDescription:  {},
	ProductFlatRate:       {},
}

// OrderState is the order lifecycle position
type OrderState string

const (
	OrderDraft     OrderState = "DRAFT"
	OrderCreated   OrderState = "CREATED"
	OrderConfirmed OrderState = "CONFIRMED"
	OrderRejected  OrderState = "REJECTED"
)

// OrderStatusSuccess is the only confirmation status that can be accepted
const OrderStatusSuccess = "success"

// OrderProduct is one ordered line
type OrderProduct struct {
	Type     ProductType `json:"type"`
	Quantity int         `json:"quantity"`
}

// Order is a transient order request from the marketplace UI
type Order struct {
	IntegrationUserID string         `json:"integrationUserId"`
	ParameterCacheID  string         `json:"parameterCacheId"`
	Products          []OrderProduct `json:"products"`
}

// Validate checks the order shape
func (o Order) Validate() error {
	if o.IntegrationUserID == "" {
		return NewValidationError("integrationUserId", "is required")
	}
	if len(o.Products) == 0 {
		return NewValidationError("products", "at least one product is required")
	}
	for i, p := range o.Products {
		if _, ok := knownProducts[p.Type]; !ok {
			return NewValidationError(fmt.Sprintf("products[%d].type", i), fmt.Sprintf("unknown product type %q", p.Type))
		}
		if p.Quantity <= 0 {
			return NewValidationError(fmt.Sprintf("products[%d].quantity", i), "must be greater than zero")
		}
	}
	return nil
}

// OrderConfirmation is sent by the marketplace after checkout
type OrderConfirmation struct {
	URL           string `json:"url"`
	UserID        string `json:"userId"`
	Timestamp     string `json:"timestamp"`
	Signature     string `json:"signature"`
	Message       string `json:"message,omitempty"`
	ReferenceID   string `json:"referenceid"`
	TransactionID string `json:"transactionid"`
	Status        string `json:"status"`
}

// ConfirmationFromParams reads a confirmation from flattened request parameters,
// so numeric JSON values and form bodies arrive in the same shape
func ConfirmationFromParams(params url.Values) OrderConfirmation {
	return OrderConfirmation{
		URL:           params.Get("url"),
		UserID:        params.Get(FieldUserID),
		Timestamp:     params.Get(FieldTimestamp),
		Signature:     params.Get(FieldSignature),
		Message:       params.Get("message"),
		ReferenceID:   params.Get("referenceid"),
		TransactionID: params.Get("transactionid"),
		Status:        params.Get("status"),
	}
}

// OrderResult is the caller-visible outcome of an order operation
type OrderResult struct {
	State         OrderState      `json:"state"`
	OrderID       string          `json:"orderId,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Response      json.RawMessage `json:"response,omitempty"`
}
