package money

import "strings"

// minorUnits maps ISO 4217 codes whose minor unit differs from the default of 2.
var minorUnits = map[string]int32{
	"BIF": 0,
	"CLP": 0,
	"DJF": 0,
	"GNF": 0,
	"IDR": 0,
	"ISK": 0,
	"JPY": 0,
	"KMF": 0,
	"KRW": 0,
	"PYG": 0,
	"RWF": 0,
	"UGX": 0,
	"VND": 0,
	"VUV": 0,
	"XAF": 0,
	"XOF": 0,
	"XPF": 0,
	"BHD": 3,
	"IQD": 3,
	"JOD": 3,
	"KWD": 3,
	"LYD": 3,
	"OMR": 3,
	"TND": 3,
}

// MinorUnits returns the number of decimal places used when rounding
// amounts in the given currency.
func MinorUnits(currency string) int32 {
	if exp, ok := minorUnits[NormalizeCurrency(currency)]; ok {
		return exp
	}
	return 2
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}
