// Package phone normalizes customer phone numbers so leads can be matched
// across imports regardless of how agents typed them.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	ErrEmpty   = errors.New("phone number is empty")
	ErrInvalid = errors.New("phone number is not valid")
)

// Normalize returns number in E.164. Numbers without a country prefix are
// read in region (ISO 3166 alpha-2).
func Normalize(number, region string) (string, error) {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return "", ErrEmpty
	}

	parsed, err := phonenumbers.Parse(trimmed, strings.ToUpper(strings.TrimSpace(region)))
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return "", ErrInvalid
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
