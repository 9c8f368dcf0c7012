// Package phone validates and normalises Kenyan mobile numbers before any
// payment call leaves the gateway.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

var msisdnPattern = regexp.MustCompile(`^(?:254|\+254|0)?(7[0-9]{8})$`)

// ErrInvalidNumber indicates the input is not a legal Kenyan mobile number.
var ErrInvalidNumber = errors.New("phone: invalid kenyan mobile number")

// Valid reports whether raw is a legal Kenyan mobile number in any of the
// accepted spellings (07..., 2547..., +2547..., 7...).
func Valid(raw string) bool {
	return msisdnPattern.MatchString(strip(raw))
}

// Normalize converts raw to international 2547XXXXXXXX form.
func Normalize(raw string) (string, error) {
	match := msisdnPattern.FindStringSubmatch(strip(raw))
	if match == nil {
		return "", ErrInvalidNumber
	}
	return "254" + match[1], nil
}

func strip(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
}
