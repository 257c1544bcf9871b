package application

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"marketplace-integration-layer/internal/domain"
	"marketplace-integration-layer/internal/infrastructure/encryption"
	"marketplace-integration-layer/internal/infrastructure/replay"
	"marketplace-integration-layer/internal/infrastructure/repository"
	"marketplace-integration-layer/internal/infrastructure/signature"
)

type fakeGateway struct {
	calls   []sentCall
	respond func(action domain.SignedMessage) (*domain.MarketplaceResponse, error)
}

type sentCall struct {
	token  string
	secret string
	action domain.SignedMessage
}

func (g *fakeGateway) Send(_ context.Context, token, secret string, actions ...domain.SignedMessage) (*domain.MarketplaceResponse, error) {
	g.calls = append(g.calls, sentCall{token: token, secret: secret, action: actions[0]})
	if g.respond == nil {
		return successResponse(), nil
	}
	return g.respond(actions[0])
}

func successResponse() *domain.MarketplaceResponse {
	return &domain.MarketplaceResponse{Status: domain.MarketplaceStatus{Code: 200, ErrorCode: 0, Message: "OK"}}
}

type fakeSnapshots struct {
	requests []domain.SnapshotRequest
	response domain.SnapshotResponse
}

func (f *fakeSnapshots) FindOrCreate(_ context.Context, req domain.SnapshotRequest) (domain.SnapshotResponse, error) {
	f.requests = append(f.requests, req)
	return f.response, nil
}

type fakeBilling struct {
	created   []domain.Order
	confirmed []domain.OrderConfirmation
}

func (f *fakeBilling) CreateOrder(_ context.Context, _ *domain.IntegrationIdentity, order domain.Order) (json.RawMessage, error) {
	f.created = append(f.created, order)
	return json.RawMessage(`{"orderId":"O1"}`), nil
}

func (f *fakeBilling) ConfirmOrder(_ context.Context, _ *domain.IntegrationIdentity, c domain.OrderConfirmation) (json.RawMessage, error) {
	f.confirmed = append(f.confirmed, c)
	return json.RawMessage(`{"paid":true}`), nil
}

type harness struct {
	svc       *IntegrationService
	repo      *repository.MemoryIdentityRepository
	gateway   *fakeGateway
	snapshots *fakeSnapshots
	billing   *fakeBilling
	now       time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	enc, err := encryption.NewService(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 32))))
	if err != nil {
		t.Fatalf("encryption.NewService() error = %v", err)
	}
	h := &harness{
		repo:      repository.NewMemoryIdentityRepository(),
		gateway:   &fakeGateway{},
		snapshots: &fakeSnapshots{response: json.RawMessage(`{"snapshotId":"S-1","cached":false}`)},
		billing:   &fakeBilling{},
		now:       time.Unix(1700000000, 0),
	}
	logger := zerolog.Nop()
	h.svc = NewIntegrationService(
		h.repo,
		NewCredentialsService(h.repo, enc, logger),
		h.gateway,
		h.snapshots,
		h.billing,
		replay.NewMemoryGuard(),
		signature.Verifier{},
		IntegrationConfig{AppURL: "https://app.example.com", ActivationScripts: []string{"https://cdn.example.com/a.js"}, MaxSkew: 10 * time.Minute},
		logger,
	)
	h.svc.now = func() time.Time { return h.now }
	return h
}

func (h *harness) render(t *testing.T, userID, claim string) {
	t.Helper()
	_, err := h.svc.RenderActivationPayload(context.Background(), RenderActivationInput{
		Variant:          domain.VariantShop,
		UserID:           userID,
		APIToken:         "T",
		ParameterCacheID: "P",
		ExtendedClaim:    claim,
	})
	if err != nil {
		t.Fatalf("RenderActivationPayload() error = %v", err)
	}
}

func (h *harness) activate(t *testing.T, userID, claim, secret string) {
	t.Helper()
	h.render(t, userID, claim)
	result, err := h.svc.UnlockProvider(context.Background(), UnlockProviderInput{
		Variant: domain.VariantShop, Token: "T", Secret: secret, ParameterCacheID: "P", ExtendedClaim: claim,
	})
	if err != nil || result != domain.ActivationResultActive {
		t.Fatalf("UnlockProvider() = %q, %v; want active", result, err)
	}
}

func TestRenderActivationPayload(t *testing.T) {
	h := newHarness(t)
	payload, err := h.svc.RenderActivationPayload(context.Background(), RenderActivationInput{
		Variant: domain.VariantFull, UserID: "U1", APIToken: "T", ParameterCacheID: "P", ExtendedClaim: "C1",
	})
	if err != nil {
		t.Fatalf("RenderActivationPayload() error = %v", err)
	}

	var data domain.ProviderData
	if err := json.Unmarshal([]byte(payload.ProviderData), &data); err != nil {
		t.Fatalf("provider data is not JSON: %v", err)
	}
	want := domain.ProviderData{Token: "T", ParameterCacheID: "P", ExtendedClaim: "C1", CallbackURL: "https://app.example.com/marketplace/full/unlockProvider"}
	if data != want {
		t.Fatalf("provider data = %+v, want %+v", data, want)
	}
	if len(payload.Scripts) != 1 {
		t.Fatalf("scripts = %v", payload.Scripts)
	}
	if len(h.gateway.calls) != 0 {
		t.Fatal("rendering must not call the marketplace")
	}

	identity, _ := h.repo.GetByUser(context.Background(), "U1", domain.VariantFull)
	if identity == nil || identity.ActivationState != domain.ActivationPending {
		t.Fatalf("identity = %+v, want PENDING", identity)
	}

	if _, err := h.svc.RenderActivationPayload(context.Background(), RenderActivationInput{Variant: domain.VariantFull}); !domain.IsValidation(err) {
		t.Fatalf("missing userId error = %v, want validation error", err)
	}
}

func TestRenderTwiceReplacesClaim(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.render(t, "U1", "C1")
	h.render(t, "U1", "C2")

	if _, err := h.svc.ResolveClaim(ctx, "C1"); !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Fatalf("ResolveClaim(old) error = %v, want ErrIdentityNotFound", err)
	}
	identity, err := h.svc.ResolveClaim(ctx, "C2")
	if err != nil || identity.MarketplaceUserID != "U1" {
		t.Fatalf("ResolveClaim(new) = %+v, %v", identity, err)
	}
}

func TestRenderClaimConflict(t *testing.T) {
	h := newHarness(t)
	h.render(t, "U1", "C1")
	_, err := h.svc.RenderActivationPayload(context.Background(), RenderActivationInput{Variant: domain.VariantShop, UserID: "U2", ExtendedClaim: "C1"})
	if !errors.Is(err, domain.ErrClaimConflict) {
		t.Fatalf("error = %v, want ErrClaimConflict", err)
	}
}

func TestUnlockProviderOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		respond   func(domain.SignedMessage) (*domain.MarketplaceResponse, error)
		want      string
		wantErr   error
		wantState domain.ActivationState
	}{
		{
			name:      "success triple",
			want:      domain.ActivationResultActive,
			wantState: domain.ActivationActive,
		},
		{
			name: "non-zero errorcode",
			respond: func(domain.SignedMessage) (*domain.MarketplaceResponse, error) {
				return &domain.MarketplaceResponse{Status: domain.MarketplaceStatus{Code: 200, ErrorCode: 1, Message: "OK"}}, nil
			},
			want:      domain.ActivationResultError,
			wantState: domain.ActivationFailed,
		},
		{
			name: "client error",
			respond: func(domain.SignedMessage) (*domain.MarketplaceResponse, error) {
				return nil, errors.New("marketplace returned status 403")
			},
			want:      domain.ActivationResultError,
			wantState: domain.ActivationFailed,
		},
		{
			name: "upstream unavailable",
			respond: func(domain.SignedMessage) (*domain.MarketplaceResponse, error) {
				return nil, fmt.Errorf("%w: timeout", domain.ErrUpstreamUnavailable)
			},
			wantErr:   domain.ErrUpstreamUnavailable,
			wantState: domain.ActivationFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.gateway.respond = tt.respond
			h.render(t, "U1", "C1")

			got, err := h.svc.UnlockProvider(context.Background(), UnlockProviderInput{
				Variant: domain.VariantShop, Token: "T2", Secret: "S", ParameterCacheID: "P", ExtendedClaim: "C1",
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UnlockProvider() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil || got != tt.want {
				t.Fatalf("UnlockProvider() = %q, %v; want %q", got, err, tt.want)
			}

			identity, _ := h.repo.GetByClaim(context.Background(), "C1")
			if identity.ActivationState != tt.wantState {
				t.Fatalf("state = %s, want %s", identity.ActivationState, tt.wantState)
			}
			if identity.SessionToken != "T2" || !identity.HasSecret() || identity.EncryptedSecret == "S" {
				t.Fatalf("secret/token not stored encrypted: %+v", identity)
			}

			if len(h.gateway.calls) != 1 {
				t.Fatalf("gateway calls = %d, want exactly 1 (no retry)", len(h.gateway.calls))
			}
			call := h.gateway.calls[0]
			if call.secret != "S" || call.token != "T2" || call.action.ResourceType != domain.ResourceUnlockProvider {
				t.Fatalf("unexpected unlock call: %+v", call)
			}
		})
	}
}

func TestUnlockProviderRejectsUnknownClaimAndWrongVariant(t *testing.T) {
	h := newHarness(t)
	h.render(t, "U1", "C1")
	ctx := context.Background()

	_, err := h.svc.UnlockProvider(ctx, UnlockProviderInput{Variant: domain.VariantShop, Token: "T", Secret: "S", ExtendedClaim: "nope"})
	if !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Fatalf("unknown claim error = %v", err)
	}
	_, err = h.svc.UnlockProvider(ctx, UnlockProviderInput{Variant: domain.VariantFull, Token: "T", Secret: "S", ExtendedClaim: "C1"})
	if !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Fatalf("wrong variant error = %v", err)
	}
	_, err = h.svc.UnlockProvider(ctx, UnlockProviderInput{Variant: domain.VariantShop, Token: "T", ExtendedClaim: "C1"})
	if !domain.IsValidation(err) {
		t.Fatalf("missing secret error = %v", err)
	}
	if len(h.gateway.calls) != 0 {
		t.Fatal("rejected unlocks must not reach the marketplace")
	}
}

func TestResolveActionIdentityFailsClosedBeforeActivation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.render(t, "U1", "C1")

	params := url.Values{domain.FieldExtendedClaim: {"C1"}}
	if _, _, err := h.svc.ResolveActionIdentity(ctx, domain.VariantShop, params); !errors.Is(err, domain.ErrNotActivated) {
		t.Fatalf("ResolveActionIdentity() before unlock error = %v, want ErrNotActivated", err)
	}

	if _, err := h.svc.UnlockProvider(ctx, UnlockProviderInput{Variant: domain.VariantShop, Token: "T", Secret: "S", ExtendedClaim: "C1"}); err != nil {
		t.Fatalf("UnlockProvider() error = %v", err)
	}

	tests := []struct {
		name   string
		params url.Values
	}{
		{name: "extended claim", params: url.Values{domain.FieldExtendedClaim: {"C1"}}},
		{name: "api claim", params: url.Values{domain.FieldAPIClaim: {"C1"}}},
		{name: "user id", params: url.Values{domain.FieldUserID: {"U1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, secret, err := h.svc.ResolveActionIdentity(ctx, domain.VariantShop, tt.params)
			if err != nil || secret != "S" || identity.MarketplaceUserID != "U1" {
				t.Fatalf("ResolveActionIdentity() = %v, %q, %v", identity, secret, err)
			}
		})
	}

	if _, _, err := h.svc.ResolveActionIdentity(ctx, domain.VariantFull, url.Values{domain.FieldUserID: {"U1"}}); !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Fatalf("other variant error = %v, want ErrIdentityNotFound", err)
	}
	if _, _, err := h.svc.ResolveActionIdentity(ctx, domain.VariantShop, url.Values{}); !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Fatalf("no identifiers error = %v, want ErrIdentityNotFound", err)
	}
}

func TestLoginRecordsTimestampOnly(t *testing.T) {
	h := newHarness(t)
	h.activate(t, "U1", "C1", "S")
	ctx := context.Background()

	identity, _ := h.repo.GetByClaim(ctx, "C1")
	params := url.Values{domain.FieldCustomerName: {"Acme Immobilien"}, domain.FieldCustomerWebID: {"W-7"}}

	result, err := h.svc.Login(domain.WithIdentity(ctx, identity), LoginInput{Variant: domain.VariantShop, Params: params})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.CustomerName != "Acme Immobilien" || result.CustomerWebID != "W-7" || result.ExtendedClaim != "C1" {
		t.Fatalf("unexpected login result: %+v", result)
	}
	if !strings.HasPrefix(result.RedirectURL, "https://app.example.com/marketplace/shop/app?") || !strings.Contains(result.RedirectURL, "extendedClaim=C1") {
		t.Fatalf("unexpected redirect: %s", result.RedirectURL)
	}

	after, _ := h.repo.GetByClaim(ctx, "C1")
	if after.LastLoginAt == nil || !after.LastLoginAt.Equal(h.now) {
		t.Fatalf("LastLoginAt = %v, want %v", after.LastLoginAt, h.now)
	}
	if after.ActivationState != domain.ActivationActive || after.EncryptedSecret != identity.EncryptedSecret {
		t.Fatal("login must not change activation state or secret")
	}

	if _, err := h.svc.Login(ctx, LoginInput{Variant: domain.VariantShop}); !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Fatalf("Login() without identity error = %v", err)
	}
}

func TestCreateOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := domain.Order{IntegrationUserID: "U1", ParameterCacheID: "P", Products: []domain.OrderProduct{{Type: domain.ProductMapSnapshot, Quantity: 2}}}

	if _, err := h.svc.CreateOrder(ctx, domain.VariantShop, order); !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Fatalf("unknown user error = %v", err)
	}

	h.render(t, "U1", "C1")
	if _, err := h.svc.CreateOrder(ctx, domain.VariantShop, order); !errors.Is(err, domain.ErrNotActivated) {
		t.Fatalf("pending identity error = %v, want ErrNotActivated", err)
	}

	if _, err := h.svc.UnlockProvider(ctx, UnlockProviderInput{Variant: domain.VariantShop, Token: "T", Secret: "S", ExtendedClaim: "C1"}); err != nil {
		t.Fatalf("UnlockProvider() error = %v", err)
	}
	result, err := h.svc.CreateOrder(ctx, domain.VariantShop, order)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if result.State != domain.OrderCreated || string(result.Response) != `{"orderId":"O1"}` {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(h.billing.created) != 1 || h.billing.created[0].Products[0].Quantity != 2 {
		t.Fatalf("order not forwarded unchanged: %+v", h.billing.created)
	}

	bad := domain.Order{IntegrationUserID: "U1", Products: []domain.OrderProduct{{Type: domain.ProductMapSnapshot}}}
	if _, err := h.svc.CreateOrder(ctx, domain.VariantShop, bad); !domain.IsValidation(err) {
		t.Fatalf("invalid order error = %v, want validation error", err)
	}
}

func signedConfirmation(secret, absoluteURL string, c domain.OrderConfirmation) (domain.OrderConfirmation, url.Values) {
	params := url.Values{}
	params.Set("url", c.URL)
	params.Set("userId", c.UserID)
	params.Set("timestamp", c.Timestamp)
	params.Set("referenceid", c.ReferenceID)
	params.Set("transactionid", c.TransactionID)
	params.Set("status", c.Status)
	c.Signature = signature.SignRequest(secret, absoluteURL, params)
	params.Set(domain.FieldSignature, c.Signature)
	return c, params
}

func TestConfirmOrder(t *testing.T) {
	const confirmURL = "https://app.example.com/marketplace/shop/confirm-order"
	h := newHarness(t)
	h.activate(t, "U1", "C1", "S")
	ctx := context.Background()

	base := domain.OrderConfirmation{
		URL: "https://host.example.com/cb", UserID: "U1", Timestamp: "1700000000",
		ReferenceID: "R1", TransactionID: "TX1", Status: domain.OrderStatusSuccess,
	}

	t.Run("non-success status rejected despite valid signature", func(t *testing.T) {
		c := base
		c.Status = "failed"
		c, params := signedConfirmation("S", confirmURL, c)
		result, err := h.svc.ConfirmOrder(ctx, ConfirmOrderInput{Variant: domain.VariantShop, Confirmation: c, AbsoluteURL: confirmURL, Params: params})
		if err != nil || result.State != domain.OrderRejected || result.Reason != ReasonStatusNotSuccess {
			t.Fatalf("ConfirmOrder() = %+v, %v", result, err)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		c, params := signedConfirmation("not-S", confirmURL, base)
		result, err := h.svc.ConfirmOrder(ctx, ConfirmOrderInput{Variant: domain.VariantShop, Confirmation: c, AbsoluteURL: confirmURL, Params: params})
		if err != nil || result.State != domain.OrderRejected || result.Reason != ReasonSignatureInvalid {
			t.Fatalf("ConfirmOrder() = %+v, %v", result, err)
		}
	})

	t.Run("stale timestamp rejected", func(t *testing.T) {
		c := base
		c.Timestamp = "1699990000"
		c, params := signedConfirmation("S", confirmURL, c)
		result, err := h.svc.ConfirmOrder(ctx, ConfirmOrderInput{Variant: domain.VariantShop, Confirmation: c, AbsoluteURL: confirmURL, Params: params})
		if err != nil || result.State != domain.OrderRejected {
			t.Fatalf("ConfirmOrder() = %+v, %v", result, err)
		}
	})

	t.Run("unknown user rejected", func(t *testing.T) {
		c := base
		c.UserID = "U404"
		c, params := signedConfirmation("S", confirmURL, c)
		result, err := h.svc.ConfirmOrder(ctx, ConfirmOrderInput{Variant: domain.VariantShop, Confirmation: c, AbsoluteURL: confirmURL, Params: params})
		if err != nil || result.State != domain.OrderRejected || result.Reason != ReasonUnknownUser {
			t.Fatalf("ConfirmOrder() = %+v, %v", result, err)
		}
	})

	if len(h.billing.confirmed) != 0 {
		t.Fatal("rejected confirmations must not reach billing")
	}

	t.Run("valid confirmation then replay", func(t *testing.T) {
		c, params := signedConfirmation("S", confirmURL, base)
		input := ConfirmOrderInput{Variant: domain.VariantShop, Confirmation: c, AbsoluteURL: confirmURL, Params: params}

		result, err := h.svc.ConfirmOrder(ctx, input)
		if err != nil || result.State != domain.OrderConfirmed || result.TransactionID != "TX1" {
			t.Fatalf("ConfirmOrder() = %+v, %v", result, err)
		}
		if len(h.billing.confirmed) != 1 {
			t.Fatalf("billing confirmations = %d, want 1", len(h.billing.confirmed))
		}

		again, err := h.svc.ConfirmOrder(ctx, input)
		if err != nil || again.State != domain.OrderRejected || again.Reason != ReasonAlreadyConfirmed {
			t.Fatalf("replayed ConfirmOrder() = %+v, %v", again, err)
		}
	})

	t.Run("missing transaction id is a validation error", func(t *testing.T) {
		c := base
		c.TransactionID = ""
		_, err := h.svc.ConfirmOrder(ctx, ConfirmOrderInput{Variant: domain.VariantShop, Confirmation: c, AbsoluteURL: confirmURL})
		if !domain.IsValidation(err) {
			t.Fatalf("error = %v, want validation error", err)
		}
	})
}

func TestEndToEndActivationAndSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gateway.respond = func(action domain.SignedMessage) (*domain.MarketplaceResponse, error) {
		resp := successResponse()
		if action.ResourceType == domain.ResourceEstate {
			resp.Response.Results = []domain.MarketplaceResult{{
				ResourceID: action.ResourceID,
				Data: domain.MarketplaceData{Records: []domain.MarketplaceRecord{{
					ID:       action.ResourceID,
					Elements: map[string]any{"strasse": "Hauptstr.", "hausnummer": "5", "plz": "10115", "ort": "Berlin"},
				}}},
			}}
		}
		return resp, nil
	}

	// (1) render for U1/SHOP with claim C1
	h.render(t, "U1", "C1")
	identity, _ := h.repo.GetByUser(ctx, "U1", domain.VariantShop)
	if identity == nil || identity.ExtendedClaim != "C1" {
		t.Fatalf("identity after render = %+v", identity)
	}

	// (2) unlock with secret S
	result, err := h.svc.UnlockProvider(ctx, UnlockProviderInput{Variant: domain.VariantShop, Token: "T", Secret: "S", ParameterCacheID: "P", ExtendedClaim: "C1"})
	if err != nil || result != "active" {
		t.Fatalf("UnlockProvider() = %q, %v", result, err)
	}
	if _, secret, err := h.svc.ResolveActionIdentity(ctx, domain.VariantShop, url.Values{domain.FieldExtendedClaim: {"C1"}}); err != nil || secret != "S" {
		t.Fatalf("stored secret = %q, %v; want S", secret, err)
	}

	// (3) snapshot for estate E via claim C1
	resolved, _ := h.svc.ResolveClaim(ctx, "C1")
	got, err := h.svc.FindOrCreateSnapshot(domain.WithIdentity(ctx, resolved), FindSnapshotInput{Variant: domain.VariantShop, EstateID: "E", ExtendedClaim: "C1"})
	if err != nil {
		t.Fatalf("FindOrCreateSnapshot() error = %v", err)
	}
	if string(got) != string(h.snapshots.response) {
		t.Fatalf("snapshot response altered: %s", got)
	}

	if len(h.snapshots.requests) != 1 {
		t.Fatalf("snapshot requests = %d, want 1", len(h.snapshots.requests))
	}
	req := h.snapshots.requests[0]
	if req.EstateID != "E" || req.MarketplaceUserID != "U1" || req.Address.City != "Berlin" {
		t.Fatalf("unexpected snapshot request: %+v", req)
	}

	readCall := h.gateway.calls[len(h.gateway.calls)-1]
	if readCall.action.ActionID != domain.ActionIDRead || readCall.action.ResourceID != "E" || readCall.secret != "S" {
		t.Fatalf("unexpected estate read: %+v", readCall)
	}
}

func TestFindOrCreateSnapshotErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.FindOrCreateSnapshot(ctx, FindSnapshotInput{Variant: domain.VariantShop, EstateID: "E", ExtendedClaim: "missing"}); !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Fatalf("unknown claim error = %v", err)
	}
	if _, err := h.svc.FindOrCreateSnapshot(ctx, FindSnapshotInput{Variant: domain.VariantShop, ExtendedClaim: "C1"}); !domain.IsValidation(err) {
		t.Fatalf("missing estate error = %v", err)
	}

	h.activate(t, "U1", "C1", "S")
	h.gateway.respond = func(domain.SignedMessage) (*domain.MarketplaceResponse, error) {
		return nil, fmt.Errorf("%w: connection refused", domain.ErrUpstreamUnavailable)
	}
	if _, err := h.svc.FindOrCreateSnapshot(ctx, FindSnapshotInput{Variant: domain.VariantShop, EstateID: "E", ExtendedClaim: "C1"}); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("upstream error = %v, want ErrUpstreamUnavailable", err)
	}
	if len(h.snapshots.requests) != 0 {
		t.Fatal("snapshot service must not be called when the marketplace is down")
	}
}
