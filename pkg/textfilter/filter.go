// Package textfilter softens profanity in narrator output for family ratings.
package textfilter

import (
	"cmp"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const censored = "[censored]"

// replacements maps each filtered word to its stand-in.
var replacements = map[string]string{
	"fuck": "fudge", "motherfucker": "scoundrel",
	"shit": "shoot", "bullshit": "nonsense", "horseshit": "nonsense",
	"dipshit": "dope", "shithead": "dope",
	"damn": "dang", "goddamn": "gosh-darn",
	"hell": "heck", "crap": "crud", "piss": "ticked",
	"ass": "butt", "asshole": "jerk", "dumbass": "dope",
	"jackass": "jerk", "smartass": "smarty",
	"bitch": "jerk", "bastard": "jerk", "prick": "jerk",
	"dick": "jerk", "dickhead": "jerk", "douche": "jerk", "douchebag": "jerk",
	"cock": censored, "pussy": censored, "tits": censored, "boobs": censored,
	"whore": censored, "slut": censored, "fag": censored, "retard": censored,
}

// Filter replaces listed words, keeping the case pattern and a plural "s".
type Filter struct {
	re *regexp.Regexp
}

// New builds a filter over the full word list.
func New() *Filter {
	words := slices.SortedFunc(maps.Keys(replacements), func(a, b string) int {
		// longer words first so compounds win over their stems
		return cmp.Or(cmp.Compare(len(b), len(a)), strings.Compare(a, b))
	})
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return &Filter{re: regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)(s?)\b`)}
}

// Applies reports whether a content rating calls for filtering.
func Applies(rating string) bool {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "G", "PG", "PG13", "PG-13":
		return true
	default:
		return false
	}
}

// ForRating returns a filter for family ratings and nil otherwise.
func ForRating(rating string) *Filter {
	if !Applies(rating) {
		return nil
	}
	return New()
}

// Apply returns text with listed words replaced. A nil filter returns text unchanged.
func (f *Filter) Apply(text string) string {
	if f == nil || text == "" {
		return text
	}
	return f.re.ReplaceAllStringFunc(text, func(match string) string {
		sub := f.re.FindStringSubmatch(match)
		word, plural := sub[1], sub[2]
		return matchCase(word, replacements[strings.ToLower(word)]) + plural
	})
}

// Contains reports whether text holds a listed word.
func (f *Filter) Contains(text string) bool {
	return f != nil && f.re.MatchString(text)
}

// matchCase shapes replacement like original: upper, lower, title, or
// letter by letter for mixed case.
func matchCase(original, replacement string) string {
	switch {
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return replacement
	}
	title := cases.Title(language.English)
	if title.String(strings.ToLower(original)) == original {
		return title.String(replacement)
	}

	orig := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}
