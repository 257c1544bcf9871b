package domain

import "strconv"

// Estate record fields requested from the marketplace
const (
	fieldStreet      = "strasse"
	fieldHouseNumber = "hausnummer"
	fieldPostalCode  = "plz"
	fieldCity        = "ort"
	fieldCountry     = "land"
	fieldLatitude    = "breitengrad"
	fieldLongitude   = "laengengrad"
)

var estateAddressFields = []string{
	fieldStreet, fieldHouseNumber, fieldPostalCode, fieldCity, fieldCountry, fieldLatitude, fieldLongitude,
}

// NewUnlockProviderAction builds the action that confirms activation
func NewUnlockProviderAction(parameterCacheID string) SignedMessage {
	return SignedMessage{
		ActionID:     ActionIDDo,
		ResourceType: ResourceUnlockProvider,
		Parameters: map[string]any{
			ParamParameterCacheID: parameterCacheID,
		},
	}
}

// NewReadEstateAction builds the action reading a listing's address fields
func NewReadEstateAction(estateID string) SignedMessage {
	return SignedMessage{
		ActionID:     ActionIDRead,
		ResourceID:   estateID,
		ResourceType: ResourceEstate,
		Parameters: map[string]any{
			"data": estateAddressFields,
		},
	}
}

// EstateAddressFromResponse extracts the address of the first returned estate record
func EstateAddressFromResponse(resp *MarketplaceResponse) (EstateAddress, error) {
	if resp == nil || len(resp.Response.Results) == 0 {
		return EstateAddress{}, NewValidationError("estateId", "no estate result")
	}
	records := resp.Response.Results[0].Data.Records
	if len(records) == 0 {
		return EstateAddress{}, NewValidationError("estateId", "estate not found")
	}
	el := records[0].Elements
	return EstateAddress{
		Street:      stringElement(el, fieldStreet),
		HouseNumber: stringElement(el, fieldHouseNumber),
		PostalCode:  stringElement(el, fieldPostalCode),
		City:        stringElement(el, fieldCity),
		Country:     stringElement(el, fieldCountry),
		Latitude:    floatElement(el, fieldLatitude),
		Longitude:   floatElement(el, fieldLongitude),
	}, nil
}

func stringElement(elements map[string]any, key string) string {
	switch v := elements[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func floatElement(elements map[string]any, key string) *float64 {
	var f float64
	switch v := elements[key].(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f == 0 {
		return nil
	}
	return &f
}
