package domain

import "strings"

// PinLength is the number of digits in a WhatsApp two-step verification PIN.
const PinLength = 6

// PinChallenge is a PIN submission for the phone number that requires it.
type PinChallenge struct {
	PendingPhoneID string `json:"phoneNumberId" validate:"required"`
	Pin            string `json:"pin" validate:"required,len=6,numeric"`
}

// SanitizePin drops every non-digit character from raw.
func SanitizePin(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
}

// ValidPin reports whether pin is exactly PinLength ASCII digits.
func ValidPin(pin string) bool {
	return len(pin) == PinLength && SanitizePin(pin) == pin
}
