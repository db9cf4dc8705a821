// Package mains works out where the recording rig is: the local timezone,
// its country and the mains frequency that hum will sit on.
package mains

import (
	"slices"
	"strings"
	"time"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// DefaultHz is used whenever the country cannot be resolved
const DefaultHz = 50

// Locale describes the machine's local setting
type Locale struct {
	Timezone string         // IANA name, "" when unknown
	Country  string         // "" for UTC-style or unknown zones
	Location *time.Location // never nil; falls back to time.Local
	Hz       int            // 50 or 60
}

// Detect resolves the locale from the runtime timezone.
func Detect() Locale {
	name, err := tzlocal.RuntimeTZ()
	if err != nil || name == "" {
		return Locale{Location: time.Local, Hz: DefaultHz}
	}
	return ForTimezone(name)
}

// ForTimezone resolves a locale for an IANA timezone name
func ForTimezone(name string) Locale {
	loc := Locale{Timezone: name, Location: time.Local, Hz: DefaultHz}
	if l, err := time.LoadLocation(name); err == nil {
		loc.Location = l
	}

	if isCountryless(name) {
		return loc
	}

	tzMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return loc
	}
	country, err := tzMap.GetCountry(name)
	if err != nil {
		return loc
	}

	loc.Country = country
	loc.Hz = HzForCountry(country)
	return loc
}

// Frequency returns the local mains frequency in Hz
func Frequency() int {
	return Detect().Hz
}

// Resolve picks the hum probe frequency for the detected locale
func Resolve(override int) int {
	return Detect().HumHz(override)
}

// HumHz picks the hum probe frequency. A positive override wins, a negative
// one disables the probe (0 Hz), zero means the locale's mains frequency.
func (l Locale) HumHz(override int) int {
	switch {
	case override > 0:
		return override
	case override < 0:
		return 0
	default:
		return l.Hz
	}
}

func isCountryless(name string) bool {
	return name == "UTC" || name == "GMT" || strings.HasPrefix(name, "Etc/")
}

// HzForCountry returns 60 for the countries on 60 Hz grids, 50 otherwise.
// Japan is split by region; the 50 Hz east is the larger population.
func HzForCountry(country string) int {
	if _, found := slices.BinarySearch(countries60Hz, country); found {
		return 60
	}
	return DefaultHz
}

// countries60Hz must stay sorted for the binary search.
// Source: https://en.wikipedia.org/wiki/Mains_electricity_by_country
var countries60Hz = []string{
	"American Samoa",
	"Bahamas",
	"Barbados",
	"Belize",
	"Brazil", // mixed grid, 60 Hz predominant
	"Canada",
	"Cayman Islands",
	"Colombia",
	"Costa Rica",
	"Cuba",
	"Dominican Republic",
	"Ecuador",
	"El Salvador",
	"Guam",
	"Guatemala",
	"Guyana",
	"Haiti",
	"Honduras",
	"Jamaica",
	"Marshall Islands",
	"Mexico",
	"Micronesia",
	"Nicaragua",
	"Palau",
	"Panama",
	"Peru",
	"Philippines",
	"Puerto Rico",
	"Saudi Arabia",
	"South Korea",
	"Suriname",
	"Taiwan",
	"Trinidad and Tobago",
	"U.S. Virgin Islands",
	"United States",
	"Venezuela",
}
