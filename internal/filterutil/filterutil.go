// Package filterutil sanitizes free-text search input before it is
// embedded in a SQL LIKE clause. Chunk scalar fields are queried with bound
// parameters everywhere except the keyword-extraction fallback in
// internal/search, which interpolates extracted keywords into a LIKE
// pattern — this package is the gate that input passes through first.
package filterutil

import (
	"regexp"
	"strings"

	"github.com/codegraph-dev/codegraph/internal/errs"
)

// forbiddenKeywords are SQL keywords that must never appear as whole words
// in sanitized input, since they would otherwise let a crafted query alter
// the shape of the LIKE clause it's interpolated into.
var forbiddenKeywords = []string{
	"OR", "AND", "DROP", "DELETE", "INSERT", "UPDATE", "UNION", "SELECT",
}

var wordPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Sanitize rejects input containing a forbidden keyword as a whole word
// (case-insensitive) or a bare semicolon, doubles every `"` so the result
// is safe to embed inside a double-quoted SQL identifier or literal, and
// returns the trimmed input otherwise.
func Sanitize(input string) (string, error) {
	if strings.Contains(input, ";") {
		return "", errs.NewFilterInjectionError(input)
	}

	for _, word := range wordPattern.FindAllString(input, -1) {
		upper := strings.ToUpper(word)
		for _, forbidden := range forbiddenKeywords {
			if upper == forbidden {
				return "", errs.NewFilterInjectionError(input)
			}
		}
	}

	doubled := strings.ReplaceAll(input, `"`, `""`)
	return strings.TrimSpace(doubled), nil
}

var likeEscaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// SanitizeLike runs Sanitize and then escapes the SQL LIKE wildcard
// characters `%` and `_` (and the escape character itself) so the result
// can be embedded in a `... LIKE '%' || ? || '%' ESCAPE '\'` clause as a
// literal substring match.
func SanitizeLike(input string) (string, error) {
	clean, err := Sanitize(input)
	if err != nil {
		return "", err
	}
	return likeEscaper.Replace(clean), nil
}
