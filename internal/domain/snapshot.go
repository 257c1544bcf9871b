package domain

import "encoding/json"

// EstateAddress is the listing location read from the marketplace
type EstateAddress struct {
	Street      string   `json:"street,omitempty"`
	HouseNumber string   `json:"houseNumber,omitempty"`
	PostalCode  string   `json:"postalCode,omitempty"`
	City        string   `json:"city,omitempty"`
	Country     string   `json:"country,omitempty"`
	Latitude    *float64 `json:"lat,omitempty"`
	Longitude   *float64 `json:"lng,omitempty"`
}

// SnapshotRequest is delegated to the snapshot/search collaborator
type SnapshotRequest struct {
	EstateID          string             `json:"estateId"`
	MarketplaceUserID string             `json:"integrationUserId"`
	IntegrationType   IntegrationVariant `json:"integrationType"`
	Address           EstateAddress      `json:"address"`
}

// SnapshotResponse is returned unchanged from the collaborator
type SnapshotResponse = json.RawMessage
