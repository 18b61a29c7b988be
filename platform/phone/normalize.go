// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number carries no country prefix.
const DefaultRegion = "US"

// Normalizer formats contact numbers scraped from profiles to E.164.
type Normalizer struct {
	region string
}

// NewNormalizer creates a normalizer for region (ISO 3166 alpha-2).
// An empty region falls back to DefaultRegion.
func NewNormalizer(region string) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	return &Normalizer{region: region}
}

// E164 formats input to E.164. If parsing fails, it returns the trimmed input.
func (n *Normalizer) E164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, n.region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// All normalises every entry, dropping blanks and duplicates that only
// differed in formatting.
func (n *Normalizer) All(inputs []string) []string {
	if len(inputs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(inputs))
	out := make([]string, 0, len(inputs))
	for _, input := range inputs {
		formatted := n.E164(input)
		if formatted == "" {
			continue
		}
		if _, ok := seen[formatted]; ok {
			continue
		}
		seen[formatted] = struct{}{}
		out = append(out, formatted)
	}
	return out
}
