package validator

import (
	"net/mail"
	"strings"
)

// NormalizeEmail lower-cases and trims a business email. The second return is
// false when the address does not parse.
func NormalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}
