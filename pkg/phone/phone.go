// Package phone normalizes the contact numbers stored on prospects.
package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is assumed when a number has no country prefix.
const DefaultRegion = "US"

// Contact is a parsed prospect phone number.
type Contact struct {
	E164     string `json:"e164"`
	National string `json:"national"`
	Region   string `json:"region"`
	Mobile   bool   `json:"mobile"`
}

// Parse validates a number and returns its canonical forms.
func Parse(raw, region string) (*Contact, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("phone number cannot be empty")
	}
	if region == "" {
		region = DefaultRegion
	}

	parsed, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return nil, fmt.Errorf("failed to parse phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return nil, fmt.Errorf("invalid phone number")
	}

	t := phonenumbers.GetNumberType(parsed)
	return &Contact{
		E164:     phonenumbers.Format(parsed, phonenumbers.E164),
		National: phonenumbers.Format(parsed, phonenumbers.NATIONAL),
		Region:   phonenumbers.GetRegionCodeForNumber(parsed),
		Mobile:   t == phonenumbers.MOBILE || t == phonenumbers.FIXED_LINE_OR_MOBILE,
	}, nil
}

// Normalize returns the E.164 form of raw, or raw trimmed when it can't be
// parsed. Imported rows often carry extensions or free text, which are kept.
func Normalize(raw, region string) string {
	c, err := Parse(raw, region)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return c.E164
}

// Display formats a stored number for popups: national format for numbers in
// region, international otherwise. Unparseable values are returned unchanged.
func Display(stored, region string) string {
	if region == "" {
		region = DefaultRegion
	}
	parsed, err := phonenumbers.Parse(stored, region)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return stored
	}
	if phonenumbers.GetRegionCodeForNumber(parsed) == region {
		return phonenumbers.Format(parsed, phonenumbers.NATIONAL)
	}
	return phonenumbers.Format(parsed, phonenumbers.INTERNATIONAL)
}
