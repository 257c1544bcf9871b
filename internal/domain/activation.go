package domain

// Result literals returned to the activation iframe
const (
	ActivationResultActive = "active"
	ActivationResultError  = "error"
)

// ProviderData is handed to the marketplace activation script as JSON
type ProviderData struct {
	Token            string `json:"token"`
	ParameterCacheID string `json:"parameterCacheId"`
	ExtendedClaim    string `json:"extendedClaim"`
	CallbackURL      string `json:"callbackUrl"`
}

// ActivationPayload is what the activation view renders
type ActivationPayload struct {
	ProviderData string   `json:"providerData"`
	Scripts      []string `json:"scripts"`
}

// LoginResult is returned after a verified marketplace login
type LoginResult struct {
	RedirectURL     string             `json:"redirectUrl"`
	ExtendedClaim   string             `json:"extendedClaim"`
	CustomerName    string             `json:"customerName,omitempty"`
	CustomerWebID   string             `json:"customerWebId,omitempty"`
	IntegrationType IntegrationVariant `json:"integrationType"`
}
