package association

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// DefaultIDSuffix is the identifier suffix used when no rules are configured.
const DefaultIDSuffix = "ID"

// ErrConflictingRules is returned when two naming rule keys normalize to the
// same word but map to different values.
var ErrConflictingRules = errors.New("conflicting naming rules")

// NamingRules configures how column and table names are normalized into
// matching tokens.
type NamingRules struct {
	// IDSuffixes are the words that mark an identifier column ("ID", "KEY").
	IDSuffixes []string
	// Irregular maps plural table words to their singular form and is
	// consulted before the inflection rules.
	Irregular map[string]string
	// Abbreviations expands words before tokens are built ("cust" -> "customer").
	Abbreviations map[string]string
	// Singularize replaces the default inflection-based singularizer.
	Singularize func(string) string
}

// Normalizer turns identifiers into case-insensitive, separator-free tokens.
// It is safe for concurrent use once constructed.
type Normalizer struct {
	suffixes  []string
	irregular map[string]string
	abbrev    map[string][]string
	singular  func(string) string
}

// NewNormalizer builds a Normalizer from rules. Rule keys and values are
// normalized the same way names are, so "Order_Lines" and "orderlines" are
// interchangeable in the rules. Keys that normalize alike must agree on
// their value.
func NewNormalizer(rules NamingRules) (*Normalizer, error) {
	n := &Normalizer{
		irregular: make(map[string]string, len(rules.Irregular)),
		abbrev:    make(map[string][]string, len(rules.Abbreviations)),
		singular:  rules.Singularize,
	}
	if n.singular == nil {
		n.singular = inflection.Singular
	}

	for _, s := range rules.IDSuffixes {
		if tok := joinUpper(splitWords(s)); tok != "" {
			n.suffixes = append(n.suffixes, tok)
		}
	}
	if len(n.suffixes) == 0 {
		n.suffixes = []string{DefaultIDSuffix}
	}

	from := make(map[string]string)
	for _, abbr := range slices.Sorted(maps.Keys(rules.Abbreviations)) {
		key := joinUpper(splitWords(abbr))
		if key == "" {
			continue
		}
		var words []string
		for _, w := range splitWords(rules.Abbreviations[abbr]) {
			words = append(words, strings.ToUpper(w))
		}
		if len(words) == 0 {
			continue
		}
		if prev, ok := n.abbrev[key]; ok && !slices.Equal(prev, words) {
			return nil, fmt.Errorf("%w: abbreviations %q and %q both normalize to %s",
				ErrConflictingRules, from[key], abbr, key)
		}
		n.abbrev[key] = words
		from[key] = abbr
	}

	clear(from)
	for _, plural := range slices.Sorted(maps.Keys(rules.Irregular)) {
		p, s := n.Token(plural), n.Token(rules.Irregular[plural])
		if p == "" || s == "" {
			continue
		}
		if prev, ok := n.irregular[p]; ok && prev != s {
			return nil, fmt.Errorf("%w: irregular plurals %q and %q both normalize to %s",
				ErrConflictingRules, from[p], plural, p)
		}
		n.irregular[p] = s
		from[p] = plural
	}
	return n, nil
}

// DefaultNormalizer uses the "ID" suffix and inflection singularization.
func DefaultNormalizer() *Normalizer {
	n, _ := NewNormalizer(NamingRules{})
	return n
}

// Words splits a name at separators and camel-case transitions, upper-cases
// each word and expands abbreviations.
func (n *Normalizer) Words(name string) []string {
	raw := splitWords(name)
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.ToUpper(w)
		if full, ok := n.abbrev[w]; ok {
			words = append(words, full...)
			continue
		}
		words = append(words, w)
	}
	return words
}

// Token is the concatenation of Words: CUSTOMER_ID, CustomerId and
// customerid all yield "CUSTOMERID".
func (n *Normalizer) Token(name string) string {
	return strings.Join(n.Words(name), "")
}

// Singular returns the token of a table name with its last word
// singularized. An irregular rule for the whole name takes precedence.
func (n *Normalizer) Singular(table string) string {
	words := n.Words(table)
	if len(words) == 0 {
		return ""
	}
	if s, ok := n.irregular[strings.Join(words, "")]; ok {
		return s
	}
	last := len(words) - 1
	words[last] = n.singularWord(words[last])
	return strings.Join(words, "")
}

func (n *Normalizer) singularWord(w string) string {
	if s, ok := n.irregular[w]; ok {
		return s
	}
	s := strings.ToUpper(n.singular(strings.ToLower(w)))
	if s == "" {
		return w
	}
	return s
}

// IsIDSuffix reports whether token is one of the configured bare identifier
// suffixes, e.g. a column named just "id".
func (n *Normalizer) IsIDSuffix(token string) bool {
	for _, s := range n.suffixes {
		if token == s {
			return true
		}
	}
	return false
}

// IsNaturalID reports whether a column token names its own table's
// identifier: the bare suffix, or the singular table name plus a suffix.
func (n *Normalizer) IsNaturalID(table, columnToken string) bool {
	if n.IsIDSuffix(columnToken) {
		return true
	}
	singular := n.Singular(table)
	if singular == "" {
		return false
	}
	for _, s := range n.suffixes {
		if columnToken == singular+s {
			return true
		}
	}
	return false
}

// KeyToken is the token a key column is indexed under. Bare suffix columns
// are qualified with the singular table name so CUSTOMER.ID indexes as
// "CUSTOMERID".
func (n *Normalizer) KeyToken(table, columnToken string) string {
	if n.IsIDSuffix(columnToken) {
		return n.Singular(table) + columnToken
	}
	return columnToken
}

// splitWords breaks on any non-alphanumeric rune, on lower-to-upper
// transitions (customerId) and at the end of an upper-case run that is
// followed by a lower-case letter (HTTPServer -> HTTP, Server).
func splitWords(name string) []string {
	runes := []rune(name)
	var words []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, string(runes[start:end]))
		}
		start = -1
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		switch {
		case (unicode.IsLower(prev) || unicode.IsDigit(prev)) && unicode.IsUpper(r):
			flush(i)
			start = i
		case unicode.IsUpper(prev) && unicode.IsUpper(r) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			flush(i)
			start = i
		}
	}
	flush(len(runes))
	return words
}

func joinUpper(words []string) string {
	return strings.ToUpper(strings.Join(words, ""))
}
