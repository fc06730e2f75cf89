package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// TokenRequest is the client-credentials grant body
type TokenRequest struct {
	ClientID     string `json:"client_id" example:"7b0e4f7e-3c1e-4b8e-9a55-0d7f0c2e6a11"`
	ClientSecret string `json:"client_secret" example:"sk_sandbox_5f2c..."`
	GrantType    string `json:"grant_type" example:"client_credentials"`
}

// TokenResponse is returned by a successful grant
type TokenResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIs..."`
	TokenType   string `json:"token_type" example:"Bearer"`
	ExpiresIn   int    `json:"expires_in" example:"3600"`
	Scope       string `json:"scope" example:"orders:read webhooks:manage"`
}

// RateLimitsData holds the effective per-window ceilings
type RateLimitsData struct {
	PerMinute int `json:"per_minute" example:"60"`
	PerHour   int `json:"per_hour" example:"1000"`
	Burst     int `json:"burst" example:"10"`
}

// MeResponse describes the authenticated partner
type MeResponse struct {
	PartnerID      string         `json:"partner_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name           string         `json:"name" example:"Acme Supplies"`
	PartnerType    string         `json:"partner_type" example:"SUPPLIER"`
	Tier           string         `json:"tier" example:"STANDARD"`
	OrganizationID string         `json:"organization_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	CredentialID   string         `json:"credential_id" example:"7b0e4f7e-3c1e-4b8e-9a55-0d7f0c2e6a11"`
	Environment    string         `json:"environment" example:"sandbox"`
	Scopes         []string       `json:"scopes" example:"orders:read"`
	RateLimits     RateLimitsData `json:"rate_limits"`
}

// ErrorBody is the inner error object
type ErrorBody struct {
	Code    string `json:"code" example:"VALIDATION_ERROR"`
	Message string `json:"message" example:"Request validation failed"`
}

// ErrorResponse is the standard error envelope. Context fields sit next to code and message.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// Webhook types

type EventTypesResponse struct {
	PartnerType string   `json:"partner_type" example:"SUPPLIER"`
	Events      []string `json:"events" example:"order.created"`
}

type CreateWebhookRequest struct {
	URL         string   `json:"url" example:"https://partner.example.com/hooks"`
	Events      []string `json:"events" example:"order.created"`
	Description string   `json:"description,omitempty" example:"ERP order feed"`
}

type UpdateWebhookRequest struct {
	URL         string   `json:"url,omitempty" example:"https://partner.example.com/v2/hooks"`
	Events      []string `json:"events,omitempty" example:"order.cancelled"`
	Description string   `json:"description,omitempty" example:"ERP order feed"`
}

type WebhookStatusRequest struct {
	Status string `json:"status" example:"PAUSED"`
}

type WebhookData struct {
	ID                  string   `json:"id" example:"4a0f2c77-8d0e-4f0b-a6c2-1b1d4c5e9f10"`
	PartnerID           string   `json:"partner_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	URL                 string   `json:"url" example:"https://partner.example.com/hooks"`
	Events              []string `json:"events" example:"order.created"`
	Description         string   `json:"description,omitempty" example:"ERP order feed"`
	Status              string   `json:"status" example:"ACTIVE"`
	ConsecutiveFailures int      `json:"consecutive_failures" example:"0"`
	DisabledReason      string   `json:"disabled_reason,omitempty" example:""`
	CreatedAt           string   `json:"created_at" example:"2024-01-01T00:00:00Z"`
	UpdatedAt           string   `json:"updated_at" example:"2024-01-01T00:00:00Z"`
}

type WebhookResponse struct {
	Webhook WebhookData `json:"webhook"`
}

type CreateWebhookResponse struct {
	Webhook WebhookData `json:"webhook"`
	Secret  string      `json:"secret" example:"whsec_3f9a..."`
}

type WebhookListResponse struct {
	Webhooks []WebhookData `json:"webhooks"`
}

type RotateSecretResponse struct {
	ID     string `json:"id" example:"4a0f2c77-8d0e-4f0b-a6c2-1b1d4c5e9f10"`
	Secret string `json:"secret" example:"whsec_81be..."`
}

type DeliveryData struct {
	ID             string `json:"id" example:"0c9a6f5e-2d7b-4c1a-9e3f-5b8d7a6c4e21"`
	SubscriptionID string `json:"subscription_id" example:"4a0f2c77-8d0e-4f0b-a6c2-1b1d4c5e9f10"`
	EventID        string `json:"event_id" example:"a1f3c5e7-9b2d-4f6a-8c0e-2d4f6a8c0e1b"`
	EventType      string `json:"event_type" example:"order.created"`
	Attempts       int    `json:"attempts" example:"2"`
	MaxAttempts    int    `json:"max_attempts" example:"5"`
	Status         string `json:"status" example:"RETRYING"`
	LastStatusCode int    `json:"last_status_code,omitempty" example:"503"`
	LastError      string `json:"last_error,omitempty" example:"HTTP 503"`
	NextRetryAt    string `json:"next_retry_at,omitempty" example:"2024-01-01T00:05:00Z"`
	CreatedAt      string `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

type DeliveryResponse struct {
	Delivery DeliveryData `json:"delivery"`
}

type TestDeliveryResponse struct {
	Delivery DeliveryData `json:"delivery"`
	Success  bool         `json:"success" example:"true"`
}

type DeliveryListResponse struct {
	Deliveries []DeliveryData `json:"deliveries"`
}

// Internal API types

// EventData is free-form; an order payload is shown as an example.
type EventData struct {
	OrderID string  `json:"order_id" example:"ORD-1001"`
	Total   float64 `json:"total" example:"1250.5"`
}

type PublishEventRequest struct {
	EventType  string    `json:"event_type" example:"order.created"`
	Data       EventData `json:"data"`
	PartnerIDs []string  `json:"partner_ids,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
}

type DispatchResponse struct {
	EventID    string `json:"event_id" example:"a1f3c5e7-9b2d-4f6a-8c0e-2d4f6a8c0e1b"`
	Deliveries int    `json:"deliveries" example:"3"`
	Succeeded  int    `json:"succeeded" example:"2"`
	Failed     int    `json:"failed" example:"1"`
}

type IssueCredentialRequest struct {
	Name        string   `json:"name" example:"ERP connector"`
	Scopes      []string `json:"scopes" example:"orders:read"`
	Environment string   `json:"environment" example:"sandbox"`
	ExpiresAt   string   `json:"expires_at,omitempty" example:"2025-01-01T00:00:00Z"`
}

type CredentialData struct {
	ID           string   `json:"id" example:"7b0e4f7e-3c1e-4b8e-9a55-0d7f0c2e6a11"`
	PartnerID    string   `json:"partner_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name         string   `json:"name" example:"ERP connector"`
	SecretPrefix string   `json:"secret_prefix" example:"sk_sandbox_5f2c"`
	Scopes       []string `json:"scopes" example:"orders:read"`
	Status       string   `json:"status" example:"ACTIVE"`
	Environment  string   `json:"environment" example:"sandbox"`
}

type IssuedCredentialResponse struct {
	Credential   CredentialData `json:"credential"`
	ClientID     string         `json:"client_id" example:"7b0e4f7e-3c1e-4b8e-9a55-0d7f0c2e6a11"`
	ClientSecret string         `json:"client_secret" example:"sk_sandbox_5f2c..."`
}

type CredentialResponse struct {
	Credential CredentialData `json:"credential"`
}

type OperatorTokenResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIs..."`
	TokenType   string `json:"token_type" example:"Bearer"`
}

type CredentialListResponse struct {
	Credentials []CredentialData `json:"credentials"`
}

var (
	partnerAuth  = endpoint.WithSecurity([]map[string][]string{{"BearerAuth": {}}})
	internalAuth = endpoint.WithSecurity([]map[string][]string{{"OperatorAuth": {}}})

	jsonMIME = []mime.MIME{mime.JSON}

	webhookID = endpoint.WithParams(
		parameter.StrParam("id", parameter.Path, parameter.WithRequired(), parameter.WithDescription("Webhook subscription UUID")),
	)
)

func errResp(code, message, status, desc string) response.Response {
	return response.New(ErrorResponse{Error: ErrorBody{Code: code, Message: message}}, status, desc)
}

// partnerErrors are the failures every /v1 route can return before reaching the handler.
func partnerErrors(extra ...response.Response) []response.Response {
	errs := []response.Response{
		errResp("MISSING_TOKEN", "Authorization header with Bearer token is required", "401", "Unauthorized"),
		errResp("TOKEN_EXPIRED", "Access token has expired", "401", "Unauthorized"),
		errResp("PARTNER_INACTIVE", "Partner account is not active", "403", "Forbidden"),
		errResp("IP_BLOCKED", "Request IP is not allowed for this partner", "403", "Forbidden"),
		errResp("INSUFFICIENT_SCOPE", "Token lacks a required scope", "403", "Forbidden"),
		errResp("RATE_LIMIT_EXCEEDED", "Rate limit exceeded", "429", "Too Many Requests"),
	}
	return append(errs, extra...)
}

func internalErrors(extra ...response.Response) []response.Response {
	errs := []response.Response{
		errResp("MISSING_TOKEN", "Authorization header with Bearer token is required", "401", "Unauthorized"),
		errResp("FORBIDDEN", "Operator role not permitted", "403", "Forbidden"),
	}
	return append(errs, extra...)
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Partnerhub Gateway API",
		Version:     "v1.0.0",
		Description: "Partner-facing API gateway: OAuth2 client credentials, tiered rate limiting and signed webhooks",
		Host:        "localhost:3000",
		Path:        "/",
	})

	notFound := errResp("SUBSCRIPTION_NOT_FOUND", "Webhook subscription not found", "404", "Not Found")
	invalid := errResp("VALIDATION_ERROR", "Request validation failed", "400", "Bad Request")

	endpoints := []*endpoint.EndPoint{
		// POST /oauth/token
		endpoint.New(endpoint.POST, "/oauth/token",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("OAuth"),
			endpoint.WithSummary("Exchange client credentials for an access token"),
			endpoint.WithBody(TokenRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(TokenResponse{}, "200", "Token issued"),
			}),
			endpoint.WithErrors([]response.Response{
				errResp("UNSUPPORTED_GRANT_TYPE", "Only client_credentials is supported", "400", "Bad Request"),
				errResp("MISSING_CREDENTIALS", "client_id and client_secret are required", "400", "Bad Request"),
				errResp("INVALID_CREDENTIALS", "Invalid client credentials", "401", "Unauthorized"),
				errResp("CREDENTIAL_EXPIRED", "Credential has expired", "401", "Unauthorized"),
				errResp("PARTNER_INACTIVE", "Partner account is not active", "403", "Forbidden"),
			}),
		),

		// GET /v1/me
		endpoint.New(endpoint.GET, "/v1/me",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Partner"),
			endpoint.WithSummary("Describe the authenticated partner and its effective rate limits"),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MeResponse{}, "200", "Partner context"),
			}),
			endpoint.WithErrors(partnerErrors()),
			partnerAuth,
		),

		// Webhooks
		endpoint.New(endpoint.GET, "/v1/webhooks/events",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("List event types available to the caller's partner type"),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EventTypesResponse{}, "200", "Event types"),
			}),
			endpoint.WithErrors(partnerErrors()),
			partnerAuth,
		),
		endpoint.New(endpoint.GET, "/v1/webhooks",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("List webhook subscriptions"),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(WebhookListResponse{}, "200", "Subscriptions"),
			}),
			endpoint.WithErrors(partnerErrors()),
			partnerAuth,
		),
		endpoint.New(endpoint.POST, "/v1/webhooks",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Create a webhook subscription"),
			endpoint.WithDescription("The signing secret is returned only in this response and on rotation."),
			endpoint.WithBody(CreateWebhookRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CreateWebhookResponse{}, "201", "Subscription created"),
			}),
			endpoint.WithErrors(partnerErrors(
				invalid,
				errResp("LIMIT_REACHED", "Maximum number of webhook subscriptions reached", "400", "Bad Request")),
			),
			partnerAuth,
		),
		endpoint.New(endpoint.GET, "/v1/webhooks/{id}",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Get a webhook subscription"),
			webhookID,
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(WebhookResponse{}, "200", "Subscription"),
			}),
			endpoint.WithErrors(partnerErrors(notFound)),
			partnerAuth,
		),
		endpoint.New(endpoint.PATCH, "/v1/webhooks/{id}",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Update URL, events or description"),
			webhookID,
			endpoint.WithBody(UpdateWebhookRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(WebhookResponse{}, "200", "Subscription updated"),
			}),
			endpoint.WithErrors(partnerErrors(invalid, notFound)),
			partnerAuth,
		),
		endpoint.New(endpoint.DELETE, "/v1/webhooks/{id}",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Delete a webhook subscription"),
			webhookID,
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Subscription deleted"),
			}),
			endpoint.WithErrors(partnerErrors(notFound)),
			partnerAuth,
		),
		endpoint.New(endpoint.POST, "/v1/webhooks/{id}/status",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Pause or reactivate a subscription"),
			webhookID,
			endpoint.WithBody(WebhookStatusRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(WebhookResponse{}, "200", "Status changed"),
			}),
			endpoint.WithErrors(partnerErrors(invalid, notFound)),
			partnerAuth,
		),
		endpoint.New(endpoint.POST, "/v1/webhooks/{id}/rotate-secret",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Replace the signing secret"),
			webhookID,
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RotateSecretResponse{}, "200", "Secret rotated"),
			}),
			endpoint.WithErrors(partnerErrors(notFound)),
			partnerAuth,
		),
		endpoint.New(endpoint.POST, "/v1/webhooks/{id}/test",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Send a webhook.test ping"),
			webhookID,
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(TestDeliveryResponse{}, "200", "Ping attempted"),
			}),
			endpoint.WithErrors(partnerErrors(notFound)),
			partnerAuth,
		),
		endpoint.New(endpoint.GET, "/v1/webhooks/{id}/deliveries",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("List recent deliveries, newest first"),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithRequired(), parameter.WithDescription("Webhook subscription UUID")),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum deliveries (default: 50, max: 200)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DeliveryListResponse{}, "200", "Deliveries"),
			}),
			endpoint.WithErrors(partnerErrors(notFound)),
			partnerAuth,
		),
		endpoint.New(endpoint.POST, "/v1/webhooks/{id}/deliveries/{delivery_id}/redeliver",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Webhooks"),
			endpoint.WithSummary("Resend a past delivery's payload"),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithRequired(), parameter.WithDescription("Webhook subscription UUID")),
				parameter.StrParam("delivery_id", parameter.Path, parameter.WithRequired(), parameter.WithDescription("Delivery UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DeliveryResponse{}, "202", "Redelivery attempted"),
			}),
			endpoint.WithErrors(partnerErrors(notFound, errResp("DELIVERY_NOT_FOUND", "Webhook delivery not found", "404", "Not Found"))),
			partnerAuth,
		),

		// Internal API
		endpoint.New(endpoint.POST, "/internal/events",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Internal"),
			endpoint.WithSummary("Publish a business event to subscribed partners"),
			endpoint.WithBody(PublishEventRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DispatchResponse{}, "202", "Event dispatched"),
			}),
			endpoint.WithErrors(internalErrors(invalid)),
			internalAuth,
		),
		endpoint.New(endpoint.POST, "/internal/token/refresh",
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Internal"),
			endpoint.WithSummary("Extend the caller's internal token"),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(OperatorTokenResponse{}, "200", "Token refreshed"),
			}),
			endpoint.WithErrors(internalErrors()),
			internalAuth,
		),
		endpoint.New(endpoint.GET, "/internal/partners/{id}/credentials",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Internal"),
			endpoint.WithSummary("List a partner's credentials"),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithRequired(), parameter.WithDescription("Partner UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CredentialListResponse{}, "200", "Credentials"),
			}),
			endpoint.WithErrors(internalErrors(errResp("PARTNER_NOT_FOUND", "Partner not found", "404", "Not Found"))),
			internalAuth,
		),
		endpoint.New(endpoint.POST, "/internal/partners/{id}/credentials",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Internal"),
			endpoint.WithSummary("Issue a client credential"),
			endpoint.WithDescription("The client secret is returned only once."),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithRequired(), parameter.WithDescription("Partner UUID")),
			),
			endpoint.WithBody(IssueCredentialRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IssuedCredentialResponse{}, "201", "Credential issued"),
			}),
			endpoint.WithErrors(internalErrors(invalid, errResp("PARTNER_NOT_FOUND", "Partner not found", "404", "Not Found"))),
			internalAuth,
		),
		endpoint.New(endpoint.POST, "/internal/credentials/{id}/revoke",
			endpoint.WithConsume(jsonMIME),
			endpoint.WithProduce(jsonMIME),
			endpoint.WithTags("Internal"),
			endpoint.WithSummary("Revoke a credential"),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithRequired(), parameter.WithDescription("Credential UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CredentialResponse{}, "200", "Credential revoked"),
			}),
			endpoint.WithErrors(internalErrors(errResp("CREDENTIAL_NOT_FOUND", "Credential not found", "404", "Not Found"))),
			internalAuth,
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
