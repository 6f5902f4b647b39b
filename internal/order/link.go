package order

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrMissingContact = errors.New("no WhatsApp contact configured")
	ErrEmptyCart      = errors.New("cart is empty")
)

// BuildLink returns the WhatsApp deep link that opens a chat with phone and
// text prefilled. No link is produced without a phone number.
func BuildLink(baseURL, phone, text string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrMissingContact
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid WhatsApp url %q: %w", baseURL, err)
	}

	q := url.Values{}
	q.Set("phone", phone)
	q.Set("text", text)
	// the app shows a literal "+" for form-encoded spaces
	u.RawQuery = strings.ReplaceAll(q.Encode(), "+", "%20")

	return u.String(), nil
}
