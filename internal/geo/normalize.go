// Package geo turns noisy free-text French locations into the canonical
// forms used to match against the commune referential.
package geo

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	deptPrefixRe = regexp.MustCompile(`^\d{2,3}\s*-\s*`)
	arrondRe     = regexp.MustCompile(`(?i)^(.+?)\s+(\d{1,2})(?:er|ère|ème|eme|e|è)\s+arrondissement`)
	saintRe      = regexp.MustCompile(`(?i)\bsaint-`)
	sainteRe     = regexp.MustCompile(`(?i)\bsainte-`)
	stRe         = regexp.MustCompile(`(?i)\bst-`)
	steRe        = regexp.MustCompile(`(?i)\bste-`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldSaint(city string) string {
	city = sainteRe.ReplaceAllString(city, "STE ")
	city = saintRe.ReplaceAllString(city, "ST ")
	city = steRe.ReplaceAllString(city, "STE ")
	city = stRe.ReplaceAllString(city, "ST ")
	return city
}

// CleanCityName produces the display-cleaned form stored with the offer and
// used as cache key: uppercase, department prefix removed, arrondissement
// ordinals expanded to a zero-padded suffix, Saint/Sainte folded.
//
//	"75 - Paris"                -> "PARIS"
//	"Paris 1er Arrondissement"  -> "PARIS 01"
//	"Saint-Denis"               -> "ST DENIS"
//	"  grenoble  "              -> "GRENOBLE"
//
// Empty input yields an empty string. Applying the function to its own
// output is a no-op.
func CleanCityName(city string) string {
	if city == "" {
		return ""
	}

	city = deptPrefixRe.ReplaceAllString(city, "")

	if m := arrondRe.FindStringSubmatch(city); m != nil {
		num := m[2]
		if len(num) == 1 {
			num = "0" + num
		}
		city = strings.TrimSpace(m[1]) + " " + num
	}

	city = foldSaint(city)
	city = spaceRe.ReplaceAllString(city, " ")

	return strings.ToUpper(strings.TrimSpace(city))
}

// NormalizeForSearch produces the matching form: Saint/Sainte folded,
// accents stripped, hyphens and apostrophes replaced by spaces, lowercase.
//
//	"Charleville-Mézières" -> "charleville mezieres"
//	"Saint-Étienne"        -> "st etienne"
//	"Nîmes"                -> "nimes"
func NormalizeForSearch(city string) string {
	if city == "" {
		return ""
	}

	city = foldSaint(city)

	if folded, _, err := transform.String(stripAccents, city); err == nil {
		city = folded
	}

	city = strings.ReplaceAll(city, "-", " ")
	city = strings.ReplaceAll(city, "'", " ")
	city = spaceRe.ReplaceAllString(city, " ")

	return strings.ToLower(strings.TrimSpace(city))
}
