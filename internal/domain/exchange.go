package domain

// Discriminator messages returned by the backend exchange operation.
const (
	ExchangeMessageAlreadyConnected = "ALREADY_CONNECTED"
	ExchangeMessagePinRequired      = "PIN_REQUIRED"
	ExchangeMessageBillingRequired  = "BILLING_REQUIRED"
)

// ExchangeRequest is the body of POST /whatsapp/exchange-code.
type ExchangeRequest struct {
	Code          string `json:"code"`
	WabaID        string `json:"wabaId,omitempty"`
	PhoneNumberID string `json:"phoneNumberId,omitempty"`
	BusinessID    string `json:"businessId,omitempty"`
}

// ExchangeOutcome is the non-failure result of an exchange.
type ExchangeOutcome string

const (
	ExchangeConnected        ExchangeOutcome = "connected"
	ExchangeAlreadyConnected ExchangeOutcome = "already_connected"
	ExchangePinRequired      ExchangeOutcome = "pin_required"
	ExchangeBillingRequired  ExchangeOutcome = "billing_required"
)

// ExchangeResult is what the backend answered for a non-failed exchange.
type ExchangeResult struct {
	Outcome       ExchangeOutcome
	PhoneNumberID string
	Message       string
}

// OutcomeForMessage maps a backend discriminator to an outcome.
// An empty or unknown message on a successful response means a fresh connection.
func OutcomeForMessage(msg string) ExchangeOutcome {
	switch msg {
	case ExchangeMessageAlreadyConnected:
		return ExchangeAlreadyConnected
	case ExchangeMessagePinRequired:
		return ExchangePinRequired
	case ExchangeMessageBillingRequired:
		return ExchangeBillingRequired
	default:
		return ExchangeConnected
	}
}

// IsDiscriminator reports whether msg is one of the exchange discriminators.
func IsDiscriminator(msg string) bool {
	return msg == ExchangeMessageAlreadyConnected ||
		msg == ExchangeMessagePinRequired ||
		msg == ExchangeMessageBillingRequired
}
