package helpers

import (
	"regexp"
	"strings"

	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
	"github.com/crosscartapp/crosscart-backend/pkg/types"
)

var usZipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// ValidateShippingAddress checks the destination before it is written onto a
// session. Every field must be present; the zip format is only enforced for
// US destinations, other countries keep whatever postal code they carry.
func ValidateShippingAddress(address types.ShippingAddress) error {
	if strings.TrimSpace(address.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient name is required")
	}
	if strings.TrimSpace(address.Address1) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "street address is required")
	}
	if strings.TrimSpace(address.City) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "city is required")
	}
	if strings.TrimSpace(address.State) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "state is required")
	}
	if strings.TrimSpace(address.Zip) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "postal code is required")
	}

	country := strings.ToUpper(strings.TrimSpace(address.Country))
	if country == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "country is required")
	}
	if country == "US" || country == "USA" {
		if !usZipPattern.MatchString(strings.TrimSpace(address.Zip)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid US zip code")
		}
	}
	return nil
}
