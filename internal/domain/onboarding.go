package domain

import "time"

// WhatsAppStatus is the coarse connection state of a tenant's WhatsApp integration.
type WhatsAppStatus string

const (
	WhatsAppDisconnected WhatsAppStatus = "disconnected"
	WhatsAppAuthorised   WhatsAppStatus = "authorised"
	WhatsAppConnected    WhatsAppStatus = "connected"
)

// OnboardingStatus tracks backend-side provisioning after the exchange.
type OnboardingStatus string

const (
	OnboardingNone            OnboardingStatus = "none"
	OnboardingPending         OnboardingStatus = "pending"
	OnboardingProvisioning    OnboardingStatus = "provisioning"
	OnboardingPinRequired     OnboardingStatus = "pin_required"
	OnboardingBillingRequired OnboardingStatus = "billing_required"
	OnboardingConnected       OnboardingStatus = "connected"
)

// OnboardingConfig mirrors the backend's view of the integration.
// It is replaced wholesale on every fetch.
type OnboardingConfig struct {
	WhatsAppStatus           WhatsAppStatus   `json:"whatsappStatus" dynamodbav:"whatsapp_status"`
	WhatsAppOnboardingStatus OnboardingStatus `json:"whatsappOnboardingStatus" dynamodbav:"whatsapp_onboarding_status"`
	IsUsingOwnWhatsApp       bool             `json:"isUsingOwnWhatsapp" dynamodbav:"is_using_own_whatsapp"`
	IsWebhookVerified        bool             `json:"isWebhookVerified" dynamodbav:"is_webhook_verified"`
	WhatsAppWabaID           string           `json:"whatsappWabaId,omitempty" dynamodbav:"whatsapp_waba_id"`
	WhatsAppPhoneNumberID    string           `json:"whatsappPhoneNumberId,omitempty" dynamodbav:"whatsapp_phone_number_id"`
}

// ShouldPoll reports whether the status poller must be running for this snapshot.
func (c OnboardingConfig) ShouldPoll() bool {
	if c.WhatsAppStatus == WhatsAppAuthorised {
		return true
	}
	return c.WhatsAppOnboardingStatus == OnboardingPending ||
		c.WhatsAppOnboardingStatus == OnboardingProvisioning
}

// PendingPinPhoneID returns the phone number awaiting PIN verification, if any.
func (c OnboardingConfig) PendingPinPhoneID() string {
	if c.WhatsAppOnboardingStatus != OnboardingPinRequired {
		return ""
	}
	return c.WhatsAppPhoneNumberID
}

// Disconnected returns the optimistic snapshot shown while a disconnect is in flight.
func (c OnboardingConfig) Disconnected() OnboardingConfig {
	c.WhatsAppStatus = WhatsAppDisconnected
	c.WhatsAppOnboardingStatus = OnboardingNone
	c.IsWebhookVerified = false
	c.WhatsAppWabaID = ""
	c.WhatsAppPhoneNumberID = ""
	return c
}

// Snapshot is a fetched OnboardingConfig as stored for one tenant.
type Snapshot struct {
	TenantID    string           `json:"tenant_id" dynamodbav:"tenant_id"`
	Config      OnboardingConfig `json:"config" dynamodbav:"config"`
	Webhook     string           `json:"webhook,omitempty" dynamodbav:"webhook"`
	TokenExpiry *time.Time       `json:"token_expiry,omitempty" dynamodbav:"token_expiry"`
	FetchedAt   time.Time        `json:"fetched_at" dynamodbav:"fetched_at"`
}
