package api

import (
	"html/template"
	"net/http"

	"marketplace-integration-layer/internal/domain"
)

var activationView = template.Must(template.New("activation").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Activate location analysis</title>
{{range .Scripts}}<script src="{{.}}"></script>
{{end}}</head>
<body>
<div id="marketplace-activation" data-provider-data="{{.ProviderData}}"></div>
</body>
</html>
`))

var messageView = template.Must(template.New("message").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Detail}}</p>
</body>
</html>
`))

type message struct {
	Title  string
	Detail string
}

func renderActivation(w http.ResponseWriter, payload *domain.ActivationPayload) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = activationView.Execute(w, payload)
}

func renderMessage(w http.ResponseWriter, m message) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = messageView.Execute(w, m)
}

// SignatureMismatchView is rendered inside the marketplace UI when a signed request fails verification
func SignatureMismatchView() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderMessage(w, message{
			Title:  "Signature mismatch",
			Detail: "This request could not be verified. Please reopen the integration from the marketplace.",
		})
	})
}
