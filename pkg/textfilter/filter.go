// Package textfilter softens profanity in authored narrative text so that
// scenarios marked with a family rating stay within it even when trigger
// prompts were written carelessly.
package textfilter

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// replacements maps filtered words to family-friendly alternatives.
var replacements = map[string]string{
	"fuck":     "fudge",
	"shit":     "shoot",
	"damn":     "dang",
	"hell":     "heck",
	"ass":      "butt",
	"bitch":    "jerk",
	"bastard":  "jerk",
	"crap":     "crud",
	"goddamn":  "gosh-dang",
	"asshole":  "jerk",
	"bullshit": "baloney",
	"prick":    "jerk",
}

// PromptFilter replaces profanity in narrative prompts.
type PromptFilter struct {
	regexes map[string]*regexp.Regexp
}

func NewPromptFilter() *PromptFilter {
	pf := &PromptFilter{
		regexes: make(map[string]*regexp.Regexp, len(replacements)),
	}
	for word := range replacements {
		// Word boundaries keep "classical" from matching "ass".
		pf.regexes[word] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	}
	return pf
}

// FilterText replaces each filtered word with its alternative, preserving
// the case pattern of the original.
func (pf *PromptFilter) FilterText(text string) string {
	result := text
	for word, replacement := range replacements {
		result = pf.regexes[word].ReplaceAllStringFunc(result, func(match string) string {
			return preserveCase(match, replacement)
		})
	}
	return result
}

// ContainsProfanity checks if the text contains any filtered word.
func (pf *PromptFilter) ContainsProfanity(text string) bool {
	for _, regex := range pf.regexes {
		if regex.MatchString(text) {
			return true
		}
	}
	return false
}

// ShouldFilterContent determines if content should be filtered based on the
// scenario's rating.
func ShouldFilterContent(rating string) bool {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "G", "PG", "PG13", "PG-13":
		return true
	default:
		return false
	}
}

// preserveCase applies the case pattern of the original word to the
// replacement.
func preserveCase(original, replacement string) string {
	if original == "" {
		return replacement
	}

	if strings.ToUpper(original) == original {
		return strings.ToUpper(replacement)
	}
	if strings.ToLower(original) == original {
		return strings.ToLower(replacement)
	}

	titleCaser := cases.Title(language.English)
	if titleCaser.String(strings.ToLower(original)) == original {
		return titleCaser.String(replacement)
	}

	// Mixed case: mirror character by character, lowercase for any overflow.
	originalRunes := []rune(original)
	result := make([]rune, 0, len(replacement))
	for i, r := range []rune(replacement) {
		if i < len(originalRunes) && unicode.IsUpper(originalRunes[i]) {
			result = append(result, unicode.ToUpper(r))
		} else {
			result = append(result, unicode.ToLower(r))
		}
	}
	return string(result)
}
