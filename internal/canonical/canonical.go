// Package canonical resolves raw source location names into the canonical
// country / sub-region identity used as an index key everywhere downstream.
package canonical

import "strings"

// Sentinel identities for unresolvable source names.
const (
	UnknownCountry  = "Unknown"
	EntireSubregion = "Entire"
)

// countryAliases maps historical or variant source spellings to the
// canonical country name. Names absent from the table pass through
// unchanged. Sourced from the naming drift observed in the CSSE daily
// report corpus through early 2020.
var countryAliases = map[string]string{
	"Viet Nam":                   "Vietnam",
	"Republic of the Congo":      "Congo",
	"Congo (Brazzaville)":        "Congo",
	"Congo (Kinshasa)":           "Congo",
	"Czech Republic":             "Czechia",
	"Hong Kong SAR":              "Hong Kong",
	"Iran (Islamic Republic of)": "Iran",
	"Macao SAR":                  "Macau",
	"Mainland China":             "China",
	"Republic of Moldova":        "Moldova",
	"Republic of Ireland":        "Ireland",
	"Korea, South":               "South Korea",
	"Republic of Korea":          "South Korea",
	"Russian Federation":         "Russia",
	"Gambia, The":                "The Gambia",
	"UK":                         "United Kingdom",
	"Holy See":                   "Vatican City",
}

// Location is a canonical (country, sub-region) pair.
type Location struct {
	Country   string
	Subregion string
}

// Resolve canonicalizes a raw country and sub-region name. It trims source
// noise (asterisks, surrounding whitespace), rewrites known aliases, and
// substitutes sentinels for empty names. Resolve is pure and total: any
// input is accepted and it never fails.
func Resolve(rawCountry, rawSubregion string) Location {
	country := strings.Trim(rawCountry, " *")
	subregion := strings.Trim(rawSubregion, " *")

	if alias, ok := countryAliases[country]; ok {
		country = alias
	}
	if country == "" {
		country = UnknownCountry
	}
	if subregion == "" {
		subregion = EntireSubregion
	}

	return Location{Country: country, Subregion: subregion}
}
