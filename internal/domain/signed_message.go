package domain

// MACVersion is the signature scheme version the marketplace expects
const MACVersion = 2

// Action ids understood by the marketplace action API
const (
	ActionIDDo   = "urn:onoffice-de-ns:smart:2.5:smartml:action:do"
	ActionIDRead = "urn:onoffice-de-ns:smart:2.5:smartml:action:read"
)

// Resource types used by this integration
const (
	ResourceUnlockProvider = "unlockProvider"
	ResourceEstate         = "estate"
)

// SignedMessage is one action inside an outbound marketplace request
type SignedMessage struct {
	ActionID     string         `json:"actionid"`
	ResourceID   string         `json:"resourceid"`
	ResourceType string         `json:"resourcetype"`
	Identifier   string         `json:"identifier"`
	Timestamp    int64          `json:"timestamp"`
	Parameters   map[string]any `json:"parameters"`
	MAC          string         `json:"hmac"`
	MACVersion   int            `json:"hmac_version"`
}

// MarketplaceEnvelope is the JSON body posted to the marketplace action API
type MarketplaceEnvelope struct {
	Token   string             `json:"token"`
	Request MarketplaceActions `json:"request"`
}

// MarketplaceActions wraps the action list
type MarketplaceActions struct {
	Actions []SignedMessage `json:"actions"`
}

// MarketplaceStatus is the status triple returned by the marketplace
type MarketplaceStatus struct {
	Code      int    `json:"code"`
	ErrorCode int    `json:"errorcode"`
	Message   string `json:"message"`
}

// IsSuccess reports whether the status is exactly {200, 0, "OK"}
func (s MarketplaceStatus) IsSuccess() bool {
	return s.Code == 200 && s.ErrorCode == 0 && s.Message == "OK"
}

// MarketplaceResponse is the decoded marketplace answer
type MarketplaceResponse struct {
	Status   MarketplaceStatus  `json:"status"`
	Response MarketplaceResults `json:"response"`
}

// MarketplaceResults holds per-action results
type MarketplaceResults struct {
	Results []MarketplaceResult `json:"results"`
}

// MarketplaceResult is the result of a single action
type MarketplaceResult struct {
	ActionID     string            `json:"actionid"`
	ResourceID   string            `json:"resourceid"`
	ResourceType string            `json:"resourcetype"`
	Data         MarketplaceData   `json:"data"`
	Status       MarketplaceStatus `json:"status"`
}

// MarketplaceData holds returned records
type MarketplaceData struct {
	Records []MarketplaceRecord `json:"records"`
}

// MarketplaceRecord is one returned resource
type MarketplaceRecord struct {
	ID       any            `json:"id"`
	Type     string         `json:"type"`
	Elements map[string]any `json:"elements"`
}
