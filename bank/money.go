package bank

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var gbpPrinter = message.NewPrinter(language.BritishEnglish)

// FormatMinorUnits renders an amount of minor currency units (pence) as a
// human-readable GBP string, e.g. 123456789 -> "£1,234,567.89".
func FormatMinorUnits(minor int64) string {
	return FormatPounds(float64(minor) / 100)
}

// FormatPounds renders a major-unit amount as a human-readable GBP string.
// Negative amounts carry a leading minus, "-£5.00".
func FormatPounds(pounds float64) string {
	sign := ""
	if pounds < 0 {
		sign = "-"
		pounds = -pounds
	}
	return gbpPrinter.Sprintf(
		"%s£%v",
		sign,
		number.Decimal(
			pounds,
			number.MinFractionDigits(2),
			number.MaxFractionDigits(2),
		),
	)
}
