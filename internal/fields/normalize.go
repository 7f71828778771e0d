package fields

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/recebe/internal/model"
)

// NotInformed is shown in place of absent or placeholder values
const NotInformed = "Not informed"

// placeholders are compared after fold + separator collapsing
var placeholders = map[string]bool{
	"NOT INFORMED":   true,
	"NOT DECLARED":   true,
	"UNDECLARED":     true,
	"UNINFORMED":     true,
	"NAO DECLARADO":  true,
	"NAO INFORMADO":  true,
	"SEM INFORMACAO": true,
	"NAO SE APLICA":  true,
	"NOT APPLICABLE": true,
	"N/A":            true,
	"N A":            true,
	"NA":             true,
	"N.A.":           true,
	"NULL":           true,
	"NONE":           true,
	"NIL":            true,
	"NAN":            true,
	"UNDEFINED":      true,
	"-":              true,
	"--":             true,
	"---":            true,
}

var (
	separatorRun = regexp.MustCompile(`[\s_]+`)
	slashSpacing = regexp.MustCompile(`\s*/\s*`)
)

// fold uppercases, strips diacritics and trims
func fold(s string) string {
	// transform.Chain is stateful, so build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.TrimSpace(out))
}

// IsPlaceholder reports whether s is a known "no data" token
func IsPlaceholder(s string) bool {
	key := slashSpacing.ReplaceAllString(fold(s), "/")
	key = separatorRun.ReplaceAllString(key, " ")
	return placeholders[strings.TrimSpace(key)]
}

// enumKey is the canonical lookup form of an enum token
func enumKey(s string) string {
	return separatorRun.ReplaceAllString(fold(s), "_")
}

// Normalize converts a raw value into its display string using the catalog's
// enum tables. It never fails and is idempotent on its own output.
func (c *Catalog) Normalize(v model.Value, fieldName string) string {
	switch v.Kind {
	case model.KindNull:
		return NotInformed
	case model.KindString:
		return c.NormalizeString(v.Str, fieldName)
	case model.KindNumber:
		return c.NormalizeString(v.Str, fieldName)
	case model.KindBool:
		if v.Bool {
			return "Yes"
		}
		return "No"
	case model.KindList:
		var parts []string
		for _, item := range v.List {
			s := c.Normalize(item, fieldName)
			if s != NotInformed {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return NotInformed
		}
		return strings.Join(parts, ", ")
	case model.KindObject:
		if v.Object == nil {
			return NotInformed
		}
		var parts []string
		for _, key := range v.Object.Keys() {
			item, _ := v.Object.Get(key)
			s := c.Normalize(item, key)
			if s != NotInformed {
				parts = append(parts, Humanize(key)+": "+s)
			}
		}
		if len(parts) == 0 {
			return NotInformed
		}
		return strings.Join(parts, "; ")
	}
	return NotInformed
}

// NormalizeString is Normalize for a string value
func (c *Catalog) NormalizeString(s, fieldName string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || IsPlaceholder(trimmed) {
		return NotInformed
	}
	if table, ok := c.enums[fieldName]; ok {
		if phrase, ok := table[enumKey(trimmed)]; ok {
			return phrase
		}
	}
	return trimmed
}

// Meaningful reports whether the value normalizes to something other than NotInformed
func (c *Catalog) Meaningful(v model.Value, fieldName string) bool {
	return c.Normalize(v, fieldName) != NotInformed
}

// Normalize uses the default catalog
func Normalize(v model.Value, fieldName string) string {
	return defaultCatalog.Normalize(v, fieldName)
}

// Meaningful uses the default catalog
func Meaningful(v model.Value, fieldName string) bool {
	return defaultCatalog.Meaningful(v, fieldName)
}
