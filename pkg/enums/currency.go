package enums

// Currency is the ISO-4217 code carried on monetary records. Only USD is
// supported today.
type Currency string

const CurrencyUSD Currency = "USD"

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool {
	return c == CurrencyUSD
}
