package services

import (
	"strings"
)

// Static lookup tables loaded once at process start. These are read-only;
// nothing mutates them after init.

// countryNameToCode maps lower-cased country names (and codes) to ISO-2 codes.
var countryNameToCode = map[string]string{
	"united states": "us", "usa": "us", "us": "us",
	"united kingdom": "gb", "uk": "gb", "gb": "gb",
	"france": "fr", "fr": "fr",
	"germany": "de", "de": "de",
	"spain": "es", "es": "es",
	"italy": "it", "it": "it",
	"netherlands": "nl", "nl": "nl",
	"norway": "no", "no": "no",
	"sweden": "se", "se": "se",
	"denmark": "dk", "dk": "dk",
	"switzerland": "ch", "ch": "ch",
	"austria": "at", "at": "at",
	"portugal": "pt", "pt": "pt",
	"ireland": "ie", "ie": "ie",
	"japan": "jp", "jp": "jp",
	"china": "cn", "cn": "cn",
	"india": "in", "in": "in",
	"singapore": "sg", "sg": "sg",
	"thailand": "th", "th": "th",
	"australia": "au", "au": "au",
	"new zealand": "nz", "nz": "nz",
	"canada": "ca", "ca": "ca",
	"mexico": "mx", "mx": "mx",
	"brazil": "br", "br": "br",
	"united arab emirates": "ae", "uae": "ae", "ae": "ae",
	"turkey": "tr", "tr": "tr",
	"south korea": "kr", "korea": "kr", "kr": "kr",
	"hong kong": "hk", "hk": "hk",
	"uzbekistan": "uz", "uz": "uz",
	"russia": "ru", "ru": "ru",
	"greece": "gr", "gr": "gr",
	"egypt": "eg", "eg": "eg",
	"south africa": "za", "za": "za",
	"indonesia": "id", "id": "id",
	"vietnam": "vn", "vn": "vn",
	"malaysia": "my", "my": "my",
	"philippines": "ph", "ph": "ph",
	"argentina": "ar", "ar": "ar",
	"chile": "cl", "cl": "cl",
	"poland": "pl", "pl": "pl",
	"czech republic": "cz", "czechia": "cz", "cz": "cz",
	"hungary": "hu", "hu": "hu",
	"finland": "fi", "fi": "fi",
	"iceland": "is", "is": "is",
	"israel": "il", "il": "il",
	"saudi arabia": "sa", "sa": "sa",
	"qatar": "qa", "qa": "qa",
}

// cityToIATA maps lower-cased city names to their primary airport or
// metropolitan code.
var cityToIATA = map[string]string{
	"oslo": "OSL", "bergen": "BGO", "trondheim": "TRD", "stavanger": "SVG",
	"sydney": "SYD", "melbourne": "MEL", "brisbane": "BNE", "perth": "PER",
	"london": "LHR", "paris": "CDG", "frankfurt": "FRA", "amsterdam": "AMS",
	"tokyo": "TYO", "singapore": "SIN", "hong kong": "HKG", "new york": "JFK",
	"delhi": "DEL", "mumbai": "BOM", "bangkok": "BKK", "dubai": "DXB",
	"madrid": "MAD", "barcelona": "BCN", "rome": "FCO", "berlin": "BER",
	"munich": "MUC", "lisbon": "LIS", "vienna": "VIE", "zurich": "ZRH",
	"istanbul": "IST", "seoul": "ICN", "osaka": "KIX", "los angeles": "LAX",
	"san francisco": "SFO", "chicago": "ORD", "miami": "MIA", "toronto": "YYZ",
	"tashkent": "TAS",
}

// countryToHubs maps lower-cased country names to their major airports, tried
// in order when a destination is only identified at country level.
var countryToHubs = map[string][]string{
	"norway":         {"OSL", "BGO", "TRD", "SVG"},
	"australia":      {"SYD", "MEL", "BNE", "PER"},
	"united kingdom": {"LHR", "LGW", "MAN", "EDI"},
	"uk":             {"LHR", "LGW", "MAN", "EDI"},
	"united states":  {"JFK", "LAX", "ORD", "SFO", "MIA"},
	"usa":            {"JFK", "LAX", "ORD", "SFO", "MIA"},
	"japan":          {"TYO", "HND", "NRT", "KIX"},
	"india":          {"DEL", "BOM", "BLR"},
	"germany":        {"FRA", "MUC", "BER"},
	"france":         {"CDG", "ORY"},
	"spain":          {"MAD", "BCN"},
	"italy":          {"FCO", "MXP"},
	"turkey":         {"IST", "SAW"},
}

// originCountryHubs maps ISO-2 country codes to the hub airports used as
// alternate origins when the literal origin yields nothing.
var originCountryHubs = map[string][]string{
	"us": {"JFK", "LAX", "SFO", "ORD"},
	"in": {"DEL", "BOM", "BLR"},
	"gb": {"LHR", "LGW"},
	"uk": {"LHR", "LGW"},
	"ae": {"DXB", "AUH"},
	"sg": {"SIN"},
	"jp": {"HND", "NRT"},
	"au": {"SYD", "MEL"},
	"de": {"FRA", "MUC"},
	"fr": {"CDG", "ORY"},
}

// NormalizeCountryCode resolves a country name or code to a two-letter code.
// Returns "" when the input cannot be resolved.
func NormalizeCountryCode(country string) string {
	token := strings.ToLower(strings.TrimSpace(country))
	if token == "" {
		return ""
	}
	if code, ok := countryNameToCode[token]; ok {
		return code
	}
	if len(token) == 2 {
		return token
	}
	return ""
}

// destinationCandidates generates plausible arrival codes for a free-text
// destination. Kept small and deterministic: the caller stages these, it
// does not fan them out.
func destinationCandidates(destination string) []string {
	raw := strings.TrimSpace(destination)
	if raw == "" {
		return nil
	}
	var candidates []string

	up := strings.ToUpper(raw)
	if (len(up) == 3 || len(up) == 4) && isAlpha(up) {
		candidates = append(candidates, up)
	}

	cityToken := strings.ToLower(strings.TrimSpace(strings.Split(raw, ",")[0]))
	if code, ok := cityToIATA[cityToken]; ok {
		candidates = append(candidates, code)
	}

	countryToken := strings.ToLower(raw)
	if hubs, ok := countryToHubs[countryToken]; ok {
		candidates = append(candidates, hubs...)
	}

	return uniqueStrings(candidates)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return len(s) > 0
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
