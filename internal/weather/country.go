package weather

import (
	"fmt"
	"strings"

	"github.com/biter777/countries"
)

// ResolveCountry resolves an ISO-3166-1 alpha-2 code to the canonical full
// country name ("IT" -> "Italy"). Anything that is not a two-letter code for
// a known country fails with ErrInvalidCountry.
func ResolveCountry(countryCode string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if len(code) != 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCountry, countryCode)
	}

	country := countries.ByName(code)
	if !country.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCountry, countryCode)
	}

	return country.String(), nil
}
